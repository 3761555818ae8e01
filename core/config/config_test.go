package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
		check   func(t *testing.T, cfg Config)
	}{
		{
			name:    "token required",
			cfg:     Config{},
			wantErr: "telegram token is required",
		},
		{
			name: "polling alias",
			cfg:  Config{Telegram: TelegramConfig{Token: "t", RunMode: " Polling "}},
			check: func(t *testing.T, cfg Config) {
				assert.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)
			},
		},
		{
			name:    "webhook needs url",
			cfg:     Config{Telegram: TelegramConfig{Token: "t", RunMode: "webhook"}},
			wantErr: "webhook.url is required",
		},
		{
			name:    "unknown run mode",
			cfg:     Config{Telegram: TelegramConfig{Token: "t", RunMode: "smoke"}},
			wantErr: "invalid telegram.run_mode",
		},
		{
			name: "rate limit exclusions lower-cased",
			cfg: Config{
				Telegram:  TelegramConfig{Token: "t"},
				RateLimit: RateLimitConfig{IntervalMS: 300, ExcludeUpdates: []string{" Callback "}},
			},
			check: func(t *testing.T, cfg Config) {
				assert.Equal(t, []string{UpdateCallback}, cfg.RateLimit.ExcludeUpdates)
				assert.Equal(t, int64(300), cfg.RateLimit.Interval().Milliseconds())
			},
		},
		{
			name: "inline queries are not a wallet update",
			cfg: Config{
				Telegram:  TelegramConfig{Token: "t"},
				RateLimit: RateLimitConfig{ExcludeUpdates: []string{"inline_query"}},
			},
			wantErr: "invalid rate_limit.exclude_updates",
		},
		{
			name:    "negative sender workers",
			cfg:     Config{Telegram: TelegramConfig{Token: "t"}, Sender: SenderConfig{Workers: -1}},
			wantErr: "sender settings",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			err := Normalize(&cfg)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
telegram:
  token: from-file
  admin_id: 10
sender:
  workers: 2
`), 0o600))
	t.Setenv("TELEGRAM_BOT_TOKEN", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Telegram.Token)
	assert.Equal(t, int64(10), cfg.Telegram.AdminID)
	assert.Equal(t, 2, cfg.Sender.Workers)
	assert.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}
