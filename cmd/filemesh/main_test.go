package main

import (
	"testing"

	"github.com/rcowham/filemesh/config"
	"github.com/rcowham/filemesh/internal/errs"
	"github.com/rcowham/filemesh/share"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestShare(t *testing.T) *share.Share {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	s, err := share.Open(t.TempDir(), "host", config.Default(), logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRunTouchThenGet(t *testing.T) {
	s := newTestShare(t)

	require.NoError(t, run(s, "touch", "/hello.txt", "", true, false, 0))
	require.NoError(t, run(s, "get", "/hello.txt", "", false, false, 0))
}

func TestRunMkdirThenLs(t *testing.T) {
	s := newTestShare(t)

	require.NoError(t, run(s, "mkdir", "/dir", "", true, true, 0))
	require.NoError(t, run(s, "touch", "/dir/a.txt", "", true, false, 0))
	require.NoError(t, run(s, "ls", "/dir", "", false, false, 0))
}

func TestRunMoveRequiresDestination(t *testing.T) {
	s := newTestShare(t)
	require.NoError(t, run(s, "touch", "/a.txt", "", true, false, 0))

	err := run(s, "mv", "/a.txt", "", false, false, 0)
	require.Error(t, err)
	ae, ok := err.(*errs.ActionError)
	require.True(t, ok)
	assert.Equal(t, errs.Invalid, ae.Code)

	require.NoError(t, run(s, "mv", "/a.txt", "/b.txt", false, false, 0))
}

func TestRunSetpermAndSettime(t *testing.T) {
	s := newTestShare(t)
	require.NoError(t, run(s, "touch", "/f.txt", "", false, false, 0))
	require.NoError(t, run(s, "setperm", "/f.txt", "", true, true, 0))
	require.NoError(t, run(s, "settime", "/f.txt", "", false, false, 1700000000))
}

func TestRunRm(t *testing.T) {
	s := newTestShare(t)
	require.NoError(t, run(s, "touch", "/f.txt", "", true, false, 0))
	require.NoError(t, run(s, "rm", "/f.txt", "", false, false, 0))
}

func TestRunRealpath(t *testing.T) {
	s := newTestShare(t)
	require.NoError(t, run(s, "touch", "/f.txt", "", true, false, 0))
	require.NoError(t, run(s, "realpath", "/f.txt", "", false, false, 0))
}

func TestRunUnknownOp(t *testing.T) {
	s := newTestShare(t)
	err := run(s, "frobnicate", "/", "", false, false, 0)
	require.Error(t, err)
}

func TestRunGetMissingReturnsActionError(t *testing.T) {
	s := newTestShare(t)
	err := run(s, "get", "/nope", "", false, false, 0)
	require.Error(t, err)
	ae, ok := err.(*errs.ActionError)
	require.True(t, ok)
	assert.Equal(t, errs.Missing, ae.Code)
}
