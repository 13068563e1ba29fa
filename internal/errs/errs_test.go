package errs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewOKIsNil(t *testing.T) {
	assert.Nil(t, New(OK))
}

func TestIsMatchesCode(t *testing.T) {
	err := New(Missing)
	assert.True(t, Is(err, Missing))
	assert.False(t, Is(err, Invalid))
	assert.False(t, Is(nil, Missing))
	assert.False(t, Is(errors.New("plain"), Missing))
}

func TestSystemErrorUnwraps(t *testing.T) {
	inner := errors.New("disk full")
	se := Systemf(inner, "writing %s", "log.txt")
	assert.ErrorIs(t, se, inner)
	assert.Contains(t, se.Error(), "writing log.txt")
	assert.Contains(t, se.Error(), "disk full")
}

func TestActionCodeString(t *testing.T) {
	assert.Equal(t, "Missing", Missing.String())
	assert.Equal(t, "OK", OK.String())
}
