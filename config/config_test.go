package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsApplyOnEmptyConfig(t *testing.T) {
	cfg := loadOrFail(t, "")
	assert.Equal(t, DefaultAppName, cfg.AppName)
	assert.True(t, cfg.FsyncLog)
	assert.False(t, cfg.StrangePaths)
	assert.Empty(t, cfg.ReservedNames)
}

func TestOverridesApply(t *testing.T) {
	const cfgString = `
app_name: myshare
strange_paths: true
fsync_log: false
reserved_names:
  - splits
  - lost+found
`
	cfg := loadOrFail(t, cfgString)
	assert.Equal(t, "myshare", cfg.AppName)
	assert.True(t, cfg.StrangePaths)
	assert.False(t, cfg.FsyncLog)
	assert.Equal(t, []string{"splits", "lost+found"}, cfg.ReservedNames)
}

func TestEmptyAppNameRejected(t *testing.T) {
	ensureFail(t, "app_name: \"\"\n", "empty app_name")
}

func TestEmptyReservedNameRejected(t *testing.T) {
	ensureFail(t, "reserved_names:\n  - \"\"\n", "empty reserved name")
}

func TestMalformedYAMLRejected(t *testing.T) {
	ensureFail(t, "app_name: [unterminated\n", "malformed yaml")
}

func TestLoadConfigFileMissingReturnsDefault(t *testing.T) {
	cfg, err := LoadConfigFile("/nonexistent/path/filemesh.yaml")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func ensureFail(t *testing.T, cfgString string, desc string) {
	_, err := Unmarshal([]byte(cfgString))
	if err == nil {
		t.Fatalf("expected config error not found: %s", desc)
	}
	t.Logf("config err: %v", err.Error())
}

func loadOrFail(t *testing.T, cfgString string) *ShareConfig {
	cfg, err := Unmarshal([]byte(cfgString))
	if err != nil {
		t.Fatalf("failed to read config: %v", err.Error())
	}
	return cfg
}
