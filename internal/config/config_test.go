package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliskhannn/image-resizer/internal/model"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "skipped_files.txt", cfg.SkipLedgerFileName)
	assert.Equal(t, 100.0, cfg.SizeCeilingMB)
	assert.Equal(t, int64(100*1024*1024), cfg.CeilingBytes())
	assert.Len(t, cfg.Profiles, 15)
	assert.Equal(t, 1, cfg.Workers)
	assert.False(t, cfg.Storage.Enabled)
	assert.False(t, cfg.Kafka.Enabled)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
watch_folder: /data/watch
output_folder: /data/out
skip_ledger_file_name: skipped.log
size_ceiling_mb: 2.5
workers: 4
file_timeout: 90s
profiles:
  - {width: 100, height: 200, dpi: 150}
  - {width: 300, height: 400, dpi: 300}
retry:
  attempts: 5
  delay: 250ms
  backoff: 1.5
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "/data/watch", cfg.WatchFolder)
	assert.Equal(t, "/data/out", cfg.OutputFolder)
	assert.Equal(t, "skipped.log", cfg.SkipLedgerFileName)
	assert.Equal(t, int64(2.5*1024*1024), cfg.CeilingBytes())
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 90*time.Second, cfg.FileTimeout)
	assert.Equal(t, []model.Profile{
		{Width: 100, Height: 200, DPI: 150},
		{Width: 300, Height: 400, DPI: 300},
	}, cfg.Profiles)
	assert.Equal(t, Retry{Attempts: 5, Delay: 250 * time.Millisecond, Backoff: 1.5}, cfg.Retry)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"), nil)
	assert.Error(t, err)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("RESIZER_OUTPUT_FOLDER", "/env/out")
	t.Setenv("RESIZER_SIZE_CEILING_MB", "50")
	t.Setenv("MINIO_SECRET_KEY", "s3cr3t")

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "/env/out", cfg.OutputFolder)
	assert.Equal(t, 50.0, cfg.SizeCeilingMB)
	assert.Equal(t, "s3cr3t", cfg.Storage.SecretKey)
}

func TestLoadFlagOverride(t *testing.T) {
	path := writeConfig(t, "watch_folder: /from/file\nworkers: 2\n")

	fs := Flags()
	require.NoError(t, fs.Parse([]string{"--watch", "/from/flag", "--ceiling-mb", "10"}))

	cfg, err := Load(path, fs)
	require.NoError(t, err)

	assert.Equal(t, "/from/flag", cfg.WatchFolder)
	assert.Equal(t, 10.0, cfg.SizeCeilingMB)
	assert.Equal(t, 2, cfg.Workers, "unchanged flag must not override the file")
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "zero ceiling", body: "size_ceiling_mb: 0\n"},
		{name: "zero workers", body: "workers: 0\n"},
		{name: "ledger with path", body: "skip_ledger_file_name: ../escape.txt\n"},
		{name: "bad profile", body: "profiles:\n  - {width: 0, height: 10, dpi: 72}\n"},
		{name: "storage without endpoint", body: "storage:\n  enabled: true\n"},
		{name: "kafka without brokers", body: "kafka:\n  enabled: true\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body), nil)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestShippedConfigMatchesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "config", "config.yml"), nil)
	require.NoError(t, err)

	defaults, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, defaults.Profiles, cfg.Profiles)
	assert.Equal(t, defaults.SizeCeilingMB, cfg.SizeCeilingMB)
	assert.Equal(t, defaults.SkipLedgerFileName, cfg.SkipLedgerFileName)
	assert.Equal(t, 2, cfg.Workers)
	assert.False(t, cfg.Storage.Enabled)
	assert.False(t, cfg.Kafka.Enabled)
}
