package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFrom(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		file        string
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "defaults without file or env",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
				assert.Equal(t, []string{"http://localhost:8080"}, cfg.Security.AllowedOrigins)
				assert.True(t, cfg.Security.RateLimit.Enabled)
				assert.Equal(t, "Eventsnew_data.xlsx", cfg.Data.SourceFile)
				assert.Equal(t, 20, cfg.Data.HistogramBins)
				assert.Equal(t, 10, cfg.Data.TopDiagnoses)
				assert.Equal(t, "json", cfg.Logging.Format)
				assert.Equal(t, "console", cfg.Logging.Output)
				assert.True(t, cfg.Telemetry.EnableMetrics)
			},
		},
		{
			name: "file overrides defaults",
			file: `
server:
  port: 9090
data:
  source_file: /srv/events.xlsx
  sheet: Events
  histogram_bins: 30
`,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, "/srv/events.xlsx", cfg.Data.SourceFile)
				assert.Equal(t, "Events", cfg.Data.Sheet)
				assert.Equal(t, 30, cfg.Data.HistogramBins)
				// untouched sections keep defaults
				assert.Equal(t, 10, cfg.Data.TopDiagnoses)
				assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
			},
		},
		{
			name: "env overrides file",
			file: `
server:
  port: 9090
data:
  top_diagnoses: 5
`,
			env: map[string]string{
				"EVENTDASH_SERVER_PORT":              "7070",
				"EVENTDASH_DATA_SOURCE_FILE":         "events.csv",
				"EVENTDASH_LOGGING_LEVEL":            "debug",
				"EVENTDASH_SECURITY_ALLOWED_ORIGINS": "http://a.test,http://b.test",
				"EVENTDASH_SERVER_REQUEST_TIMEOUT":   "5s",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 7070, cfg.Server.Port)
				assert.Equal(t, "events.csv", cfg.Data.SourceFile)
				assert.Equal(t, 5, cfg.Data.TopDiagnoses)
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Security.AllowedOrigins)
				assert.Equal(t, 5*time.Second, cfg.Server.RequestTimeout)
			},
		},
		{
			name:    "invalid port",
			env:     map[string]string{"EVENTDASH_SERVER_PORT": "70000"},
			wantErr: true,
		},
		{
			name:    "malformed env value",
			env:     map[string]string{"EVENTDASH_DATA_HISTOGRAM_BINS": "many"},
			wantErr: true,
		},
		{
			name:    "malformed yaml",
			file:    "server: [unterminated",
			wantErr: true,
		},
		{
			name:    "zero histogram bins",
			file:    "data:\n  histogram_bins: 0\n",
			wantErr: true,
		},
		{
			name:    "histogram bins above cap from env",
			env:     map[string]string{"EVENTDASH_DATA_HISTOGRAM_BINS": "100000000"},
			wantErr: true,
		},
		{
			name: "histogram bins at cap",
			env:  map[string]string{"EVENTDASH_DATA_HISTOGRAM_BINS": "500"},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, MaxHistogramBins, cfg.Data.HistogramBins)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.file != "" {
				path = writeConfigFile(t, tt.file)
			}

			cfg, err := LoadFrom(path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.validateCfg != nil {
				tt.validateCfg(t, cfg)
			}
		})
	}
}

func TestLoadFrom_MissingFile(t *testing.T) {
	_, err := LoadFrom(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
		check   func(*testing.T, *Config)
	}{
		{name: "default is valid", modify: func(*Config) {}},
		{name: "zero read timeout", modify: func(c *Config) { c.Server.ReadTimeout = 0 }, wantErr: true},
		{name: "zero write timeout", modify: func(c *Config) { c.Server.WriteTimeout = 0 }, wantErr: true},
		{name: "cors without origins", modify: func(c *Config) { c.Security.AllowedOrigins = nil }, wantErr: true},
		{
			name:   "no origins when cors disabled",
			modify: func(c *Config) { c.Security.EnableCORS = false; c.Security.AllowedOrigins = nil },
		},
		{name: "bad rate limit", modify: func(c *Config) { c.Security.RateLimit.RPS = 0 }, wantErr: true},
		{name: "blank source", modify: func(c *Config) { c.Data.SourceFile = "  " }, wantErr: true},
		{name: "histogram bins above cap", modify: func(c *Config) { c.Data.HistogramBins = MaxHistogramBins + 1 }, wantErr: true},
		{name: "zero top diagnoses", modify: func(c *Config) { c.Data.TopDiagnoses = 0 }, wantErr: true},
		{name: "sample ratio above one", modify: func(c *Config) { c.Telemetry.SampleRatio = 1.5 }, wantErr: true},
		{
			name:   "format forced to json",
			modify: func(c *Config) { c.Logging.Format = "text" },
			check:  func(t *testing.T, c *Config) { assert.Equal(t, "json", c.Logging.Format) },
		},
		{
			name:   "unknown output falls back to both",
			modify: func(c *Config) { c.Logging.Output = "syslog" },
			check:  func(t *testing.T, c *Config) { assert.Equal(t, "both", c.Logging.Output) },
		},
		{
			name:   "empty log path defaulted",
			modify: func(c *Config) { c.Logging.FilePath = "" },
			check:  func(t *testing.T, c *Config) { assert.Equal(t, "logs/app.log", c.Logging.FilePath) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := cfg.validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestServerConfig_Addr(t *testing.T) {
	assert.Equal(t, ":8080", Default().Server.Addr())
	assert.Equal(t, "127.0.0.1:9000", ServerConfig{Host: "127.0.0.1", Port: 9000}.Addr())
}
