package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultTargetStrictScore, cfg.TargetStrictScore)
	assert.Equal(t, DefaultNoiseBudget, cfg.FindingNoiseBudget)
	assert.Equal(t, DefaultToolTimeout, cfg.ToolTimeout)
	assert.Equal(t, DefaultScanTimeout, cfg.ScanTimeout)
	assert.Empty(t, cfg.Exclude)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultTargetStrictScore, cfg.TargetStrictScore)
}

func TestLoadTOML(t *testing.T) {
	path := writeConfig(t, `
target_strict_score = 90
exclude = ["dist/**", "build/"]
ignore = ["legacy/**"]
large_files_threshold = 800
finding_noise_budget = 5

[zone_overrides]
"sandbox/**" = "script"

[languages.python]
large_files_threshold = 600
complexity_threshold = 12

[languages.javascript]
disabled = true
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 90, cfg.TargetStrictScore)
	assert.Equal(t, []string{"dist/**", "build/"}, cfg.Exclude)
	assert.Equal(t, []string{"legacy/**"}, cfg.Ignore)
	assert.Equal(t, 800, cfg.LargeFilesThreshold)
	assert.Equal(t, 5, cfg.FindingNoiseBudget)
	assert.Equal(t, "script", cfg.ZoneOverrides["sandbox/**"])

	py := cfg.Languages["python"]
	assert.Equal(t, 600, py.LargeFilesThreshold)
	assert.Equal(t, 12, py.ComplexityThreshold)
	assert.True(t, cfg.Languages["javascript"].Disabled)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "target_strict_score = 90\n")
	t.Setenv("SCOUR_TARGET_STRICT_SCORE", "85")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 85, cfg.TargetStrictScore)
}

func TestLoadUnparseableFileFails(t *testing.T) {
	path := writeConfig(t, "target_strict_score = [broken\n")
	_, err := Load(path)
	require.Error(t, err)
}

func TestValidateRanges(t *testing.T) {
	path := writeConfig(t, "target_strict_score = 150\n")
	_, err := Load(path)
	require.Error(t, err)

	path = writeConfig(t, "finding_noise_budget = -1\n")
	_, err = Load(path)
	require.Error(t, err)

	// Zero timeouts fall back to defaults instead of failing.
	path = writeConfig(t, "tool_timeout = 0\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultToolTimeout, cfg.ToolTimeout)
}

func TestLoadDurations(t *testing.T) {
	path := writeConfig(t, "tool_timeout = \"45s\"\nscan_timeout = \"5m\"\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, cfg.ToolTimeout)
	assert.Equal(t, 5*time.Minute, cfg.ScanTimeout)
}

func TestUnknownKeysIgnored(t *testing.T) {
	path := writeConfig(t, "target_strict_score = 92\nnot_a_real_key = true\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 92, cfg.TargetStrictScore)
}
