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
	path := filepath.Join(t.TempDir(), "etl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestGetConfigDefaults(t *testing.T) {
	cfg := GetConfig()

	assert.Equal(t, "assignment_docs", cfg.SourceDir)
	assert.Equal(t, time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC), cfg.Sentinel())
	assert.Equal(t, time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), cfg.Cutoff())
	assert.Equal(t, 1.0, cfg.RevenueTolerance)
	assert.False(t, cfg.Warehouse.Enabled)
}

func TestLoadOverlaysFile(t *testing.T) {
	path := writeConfig(t, `
source_dir: data/in
output_dir: data/out
compress: true
cutoff_date: "2025-06-30"
revenue_tolerance: 0.01
run_interval: 30m
stage_timeout: 10s
log_format: json
warehouse:
  enabled: true
  driver: mysql
  host: db
  dbname: dice
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "data/in", cfg.SourceDir)
	assert.Equal(t, "data/out", cfg.OutputDir)
	assert.True(t, cfg.Compress)
	assert.Equal(t, 30*time.Minute, cfg.RunInterval)
	assert.Equal(t, 10*time.Second, cfg.StageTimeout)
	assert.Equal(t, 0.01, cfg.RevenueTolerance)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC), cfg.Cutoff())

	// незаданные ключи остаются по умолчанию
	assert.Equal(t, "9999-01-01", cfg.SentinelDate)
	assert.Equal(t, ":8080", cfg.HTTPAddress)
	assert.Equal(t, 3306, cfg.Warehouse.Port)
	assert.Equal(t, "root:@tcp(db:3306)/dice?parseTime=true", cfg.Warehouse.DSN())
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultETLConfig.SourceDir, cfg.SourceDir)
	assert.False(t, cfg.Sentinel().IsZero())
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "source_dir: [unclosed"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*ETLConfig)
	}{
		{"empty source dir", func(c *ETLConfig) { c.SourceDir = "" }},
		{"bad sentinel", func(c *ETLConfig) { c.SentinelDate = "never" }},
		{"bad cutoff", func(c *ETLConfig) { c.CutoffDate = "2024-13-01" }},
		{"cutoff after sentinel", func(c *ETLConfig) { c.CutoffDate = "9999-02-01" }},
		{"negative tolerance", func(c *ETLConfig) { c.RevenueTolerance = -1 }},
		{"zero stage timeout", func(c *ETLConfig) { c.StageTimeout = 0 }},
		{"unknown driver", func(c *ETLConfig) {
			c.Warehouse.Enabled = true
			c.Warehouse.Driver = "postgres"
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultETLConfig
			tt.modify(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSQLiteDSN(t *testing.T) {
	c := DatabaseConfig{Driver: "sqlite", Path: "/tmp/warehouse.db"}
	assert.Equal(t, "/tmp/warehouse.db", c.DSN())
}
