package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Port:             "8080",
		MaxUploadBytes:   5 << 20,
		LogLevel:         "INFO",
		RateSourceURL:    "https://nbg.gov.ge/gw/api/ct/monetarypolicy/currencies/en/json/",
		RateLookbackDays: 7,
		RateHTTPTimeout:  10 * time.Second,
		RateMaxRetries:   3,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		modify      func(c *Config)
		wantErr     bool
		errorString string
	}{
		{
			name:   "valid config",
			modify: func(c *Config) {},
		},
		{
			name:   "lower-case log level",
			modify: func(c *Config) { c.LogLevel = "debug" },
		},
		{
			name:   "zero retries",
			modify: func(c *Config) { c.RateMaxRetries = 0 },
		},
		{
			name:        "invalid port - non-numeric",
			modify:      func(c *Config) { c.Port = "abc" },
			wantErr:     true,
			errorString: "invalid port 'abc': must be a number",
		},
		{
			name:        "invalid port - out of range",
			modify:      func(c *Config) { c.Port = "70000" },
			wantErr:     true,
			errorString: "invalid port 70000: must be between 1 and 65535",
		},
		{
			name:        "invalid log level",
			modify:      func(c *Config) { c.LogLevel = "VERBOSE" },
			wantErr:     true,
			errorString: "invalid log level 'VERBOSE'",
		},
		{
			name:        "invalid rate source scheme",
			modify:      func(c *Config) { c.RateSourceURL = "ftp://nbg.gov.ge/rates" },
			wantErr:     true,
			errorString: "invalid rate source URL scheme 'ftp'",
		},
		{
			name:        "lookback too long",
			modify:      func(c *Config) { c.RateLookbackDays = 60 },
			wantErr:     true,
			errorString: "invalid rate lookback 60",
		},
		{
			name:        "timeout too short",
			modify:      func(c *Config) { c.RateHTTPTimeout = time.Millisecond },
			wantErr:     true,
			errorString: "invalid rate HTTP timeout 1ms",
		},
		{
			name:        "negative retries",
			modify:      func(c *Config) { c.RateMaxRetries = -1 },
			wantErr:     true,
			errorString: "invalid rate max retries -1",
		},
		{
			name:        "upload size",
			modify:      func(c *Config) { c.MaxUploadBytes = 0 },
			wantErr:     true,
			errorString: "invalid max upload size 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(&cfg)

			err := cfg.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorString)
		})
	}
}

func TestConfig_ValidateCollectsEveryProblem(t *testing.T) {
	cfg := validConfig()
	cfg.Port = "abc"
	cfg.RateLookbackDays = 0

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid port")
	assert.Contains(t, err.Error(), "invalid rate lookback 0")
}

func TestLoad(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		for _, key := range []string{"PORT", "LOG_LEVEL", "RATE_SOURCE_URL", "RATE_LOOKBACK_DAYS",
			"RATE_HTTP_TIMEOUT", "RATE_MAX_RETRIES", "RATE_ARCHIVE_PATH", "GOOGLE_KEY_PATH",
			"GOOGLE_SERVICE_ACCOUNT_JSON", "MAX_UPLOAD_BYTES"} {
			t.Setenv(key, "")
		}

		cfg := Load()

		assert.Equal(t, "8080", cfg.Port)
		assert.Equal(t, "INFO", cfg.LogLevel)
		assert.Equal(t, 7, cfg.RateLookbackDays)
		assert.Equal(t, 10*time.Second, cfg.RateHTTPTimeout)
		assert.Equal(t, 3, cfg.RateMaxRetries)
		assert.Equal(t, "", cfg.RateArchivePath)
		assert.Equal(t, "service_account.json", cfg.GoogleKeyPath)
		assert.Equal(t, int64(5<<20), cfg.MaxUploadBytes)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("Environment overrides", func(t *testing.T) {
		t.Setenv("PORT", "9090")
		t.Setenv("RATE_LOOKBACK_DAYS", "3")
		t.Setenv("RATE_HTTP_TIMEOUT", "2s")
		t.Setenv("RATE_ARCHIVE_PATH", "/var/lib/rates")

		cfg := Load()

		assert.Equal(t, "9090", cfg.Port)
		assert.Equal(t, 3, cfg.RateLookbackDays)
		assert.Equal(t, 2*time.Second, cfg.RateHTTPTimeout)
		assert.Equal(t, "/var/lib/rates", cfg.RateArchivePath)
	})

	t.Run("Malformed numbers fail validation", func(t *testing.T) {
		t.Setenv("RATE_LOOKBACK_DAYS", "a week")
		t.Setenv("RATE_HTTP_TIMEOUT", "10")
		t.Setenv("MAX_UPLOAD_BYTES", "5MB")

		cfg := Load()
		err := cfg.Validate()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid RATE_LOOKBACK_DAYS 'a week'")
		assert.Contains(t, err.Error(), "invalid RATE_HTTP_TIMEOUT '10'")
		assert.Contains(t, err.Error(), "invalid MAX_UPLOAD_BYTES '5MB'")
	})

	t.Run("Whitespace around numbers is accepted", func(t *testing.T) {
		t.Setenv("RATE_MAX_RETRIES", " 5 ")

		cfg := Load()

		assert.Equal(t, 5, cfg.RateMaxRetries)
		assert.NoError(t, cfg.Validate())
	})
}

func TestHasSheetsCredentials(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "service_account.json")

	cfg := validConfig()
	cfg.GoogleKeyPath = keyPath
	assert.False(t, cfg.HasSheetsCredentials())

	require.NoError(t, os.WriteFile(keyPath, []byte(`{}`), 0600))
	assert.True(t, cfg.HasSheetsCredentials())

	cfg.GoogleKeyPath = ""
	cfg.GoogleServiceAccountJSON = `{"type": "service_account"}`
	assert.True(t, cfg.HasSheetsCredentials())
}
