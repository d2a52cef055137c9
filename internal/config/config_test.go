package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"tickerbot/internal/config"
)

const validYAML = `
discord:
  token: "t0ken"
  guild_id: "123"
  channels: ["111", "222"]
gemini:
  api_key: "k3y"
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := config.LoadConfig(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Logger.Level != "info" {
		t.Errorf("logger.level = %q, want info", cfg.Logger.Level)
	}
	if cfg.Context.Timezone != "Asia/Jerusalem" {
		t.Errorf("context.timezone = %q, want Asia/Jerusalem", cfg.Context.Timezone)
	}
	if cfg.Backfill.LookbackDays != 7 {
		t.Errorf("backfill.lookback_days = %d, want 7", cfg.Backfill.LookbackDays)
	}
	if cfg.Gainers.FanOut != 4 {
		t.Errorf("gainers.fan_out = %d, want 4", cfg.Gainers.FanOut)
	}
	if len(cfg.Discord.Channels) != 2 {
		t.Errorf("discord.channels = %v, want two entries", cfg.Discord.Channels)
	}
	if task, ok := cfg.Scheduler.Tasks["backfill"]; !ok || !task.Enabled {
		t.Errorf("scheduler.tasks[backfill] = %+v, want enabled default", task)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	cfg, err := config.LoadConfig(writeConfig(t, validYAML+`
logger:
  level: debug
  json: false
backfill:
  lookback_days: 30
`))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Logger.Level != "debug" || cfg.Logger.JSON {
		t.Errorf("logger = %+v, want debug text", cfg.Logger)
	}
	if cfg.Backfill.LookbackDays != 30 {
		t.Errorf("backfill.lookback_days = %d, want 30", cfg.Backfill.LookbackDays)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing token", `
discord:
  guild_id: "123"
  channels: ["111"]
gemini:
  api_key: "k3y"
`},
		{"no channels", `
discord:
  token: "t0ken"
  guild_id: "123"
  channels: []
gemini:
  api_key: "k3y"
`},
		{"bad log level", validYAML + `
logger:
  level: loud
`},
		{"publish enabled without repo dir", validYAML + `
publish:
  enabled: true
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := config.LoadConfig(writeConfig(t, tt.body)); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("BOT_DISCORD_TOKEN", "env-token")

	// Without the required discord/gemini fields provided, validation
	// must still fail even though the file itself is optional.
	_, err := config.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("expected validation error for incomplete configuration")
	}
}
