package app

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withoutEnvFile(t *testing.T) {
	t.Helper()
	t.Setenv(envFileVar, filepath.Join(t.TempDir(), "missing.env"))
}

func TestLoadConfigDefaults(t *testing.T) {
	withoutEnvFile(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, "http://localhost:8000", cfg.KPIAPIURL)
	assert.Equal(t, 10, cfg.KPITopLimit)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 1000, cfg.MaxSessions)
	assert.Equal(t, "fr-FR", cfg.Locale)
	assert.Equal(t, "EUR", cfg.Currency)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigReadsEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dashboard.env")
	content := "KPI_API_URL=http://kpi.internal:9000\nDASHBOARD_CURRENCY=GBP\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv(envFileVar, path)
	t.Setenv("DASHBOARD_CURRENCY", "USD")
	t.Cleanup(func() { _ = os.Unsetenv("KPI_API_URL") })

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://kpi.internal:9000", cfg.KPIAPIURL)
	assert.Equal(t, "USD", cfg.Currency, "the process environment wins over the file")
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	cases := map[string][2]string{
		"top limit":    {"KPI_TOP_LIMIT", "0"},
		"log format":   {"LOG_FORMAT", "xml"},
		"api url":      {"KPI_API_URL", "localhost"},
		"currency":     {"DASHBOARD_CURRENCY", "EURO"},
		"max sessions": {"DASHBOARD_MAX_SESSIONS", "0"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			withoutEnvFile(t)
			t.Setenv(kv[0], kv[1])
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&Config{AppEnv: "production", LogFormat: "json"}, &buf)
	logger.Debug("hidden")
	logger.Info("visible")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "visible", line["msg"])
	assert.Equal(t, "superstore-dashboard", line["service"])
	assert.Equal(t, "production", line["env"])
}
