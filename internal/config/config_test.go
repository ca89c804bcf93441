package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"LABSHEETS_LOG_LEVEL", "LOG_LEVEL", "LABSHEETS_LOG_FORMAT", "LOG_FORMAT",
		"LABSHEETS_LOG_FILE", "LABSHEETS_LAYOUT_FILE", "LABSHEETS_SUBMISSION_TYPES",
		"LABSHEETS_OUTPUT_SUFFIX",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "_parsed", cfg.Output.Suffix)
	assert.Contains(t, cfg.Layout.SubmissionTypes, "Bacterial Culture")
	assert.Empty(t, cfg.Layout.File)
}

func TestLoad_OverrideDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("LABSHEETS_LOG_FORMAT", "json")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LABSHEETS_SUBMISSION_TYPES", " Wastewater , ,Food ")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, []string{"Wastewater", "Food"}, cfg.Layout.SubmissionTypes)
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	env := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(env, []byte("LABSHEETS_OUTPUT_SUFFIX=_out\n"), 0o644))
	// godotenv leaves variables that are already set alone.
	os.Unsetenv("LABSHEETS_OUTPUT_SUFFIX")

	cfg, err := Load(env, filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "_out", cfg.Output.Suffix)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
		want string
	}{
		{"Bad level", "LABSHEETS_LOG_LEVEL", "loud", "LABSHEETS_LOG_LEVEL"},
		{"Bad format", "LABSHEETS_LOG_FORMAT", "xml", "LABSHEETS_LOG_FORMAT"},
		{"Missing layout", "LABSHEETS_LAYOUT_FILE", "/nonexistent/layout.yaml", "LABSHEETS_LAYOUT_FILE"},
		{"Suffix with separator", "LABSHEETS_OUTPUT_SUFFIX", "out/x", "LABSHEETS_OUTPUT_SUFFIX"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestOutputPath(t *testing.T) {
	cfg := &Config{Output: OutputConfig{Suffix: "_parsed"}}
	assert.Equal(t, "/data/run 1_parsed.json", cfg.OutputPath("/data/run 1.xlsx", ".json"))
	assert.Equal(t, "plate_parsed.csv", cfg.OutputPath("plate", ".csv"))
}
