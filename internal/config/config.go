package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"growell/internal/schedule"
)

// EnvPrefix is the prefix of environment overrides: GROWELL_TELEGRAM__CHAT_ID sets telegram.chat_id.
const EnvPrefix = "GROWELL_"

// Config keeps runtime settings for the reminder service.
type Config struct {
	Database  DatabaseConfig  `koanf:"database"`
	Telegram  TelegramConfig  `koanf:"telegram"`
	Timezone  string          `koanf:"timezone"`
	Digest    DigestConfig    `koanf:"digest"`
	Reminders RemindersConfig `koanf:"reminders"`
	Log       LogConfig       `koanf:"log"`
	MCP       MCPConfig       `koanf:"mcp"`
}

type DatabaseConfig struct {
	DSN string `koanf:"dsn"`
}

type TelegramConfig struct {
	Token string `koanf:"token"`
	// ChatID is the only chat the bot answers and delivers to. 0 accepts the first private chat.
	ChatID int64 `koanf:"chat_id"`
}

type DigestConfig struct {
	Time string `koanf:"time"` // HH:MM, empty disables the digest
}

type RemindersConfig struct {
	SeedDefaults bool   `koanf:"seed_defaults"`
	PastDates    string `koanf:"past_dates"` // keep | roll
}

type MCPConfig struct {
	// Addr is where serve exposes the MCP tools over streamable HTTP, e.g.
	// "127.0.0.1:8765". Empty disables the endpoint.
	Addr string `koanf:"addr"`
}

type LogConfig struct {
	Debug bool   `koanf:"debug"`
	Dir   string `koanf:"dir"`
}

// Load layers defaults, the optional YAML file at configPath and environment variables.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(NewDefaultProvider(), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		configPath = expandPath(configPath)
		if _, err := os.Stat(configPath); err == nil {
			if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file: %w", err)
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// Plain variables understood by earlier deployments.
	if v := strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")); v != "" && k.String("telegram.token") == "" {
		k.Set("telegram.token", v)
	}
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" && os.Getenv(EnvPrefix+"DATABASE__DSN") == "" {
		k.Set("database.dsn", v)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Database.DSN = expandPath(cfg.Database.DSN)
	cfg.Log.Dir = expandPath(cfg.Log.Dir)

	return &cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Validate checks the values every command depends on.
func (c *Config) Validate() error {
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := c.PastDatePolicy(); err != nil {
		return err
	}
	if c.Digest.Time != "" {
		if _, _, err := ParseClock(c.Digest.Time); err != nil {
			return fmt.Errorf("digest.time: %w", err)
		}
	}
	return nil
}

// RequireTelegram checks the settings needed to run the bot.
func (c *Config) RequireTelegram() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required (set TELEGRAM_TOKEN or telegram.token)")
	}
	return nil
}

// Location resolves the configured timezone; empty means the local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c *Config) PastDatePolicy() (schedule.PastDatePolicy, error) {
	return schedule.ParsePastDatePolicy(c.Reminders.PastDates)
}

// ParseClock parses a 24-hour "HH:MM" string.
func ParseClock(s string) (int, int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return hour, minute, nil
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
