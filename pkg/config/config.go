package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed config.toml.sample
var configTemplate string

// Config holds the full runtime configuration of the forum backend.
type Config struct {
	// DatabasePath is the sqlite database file. Defaults to
	// <user-config-dir>/agora/agora.db.
	DatabasePath string `toml:"database_path"`

	// Host and Port for the HTTP/WebSocket server.
	Host string `toml:"host"`
	Port int    `toml:"port"`

	// RedisURL enables the cross-process pub/sub bridge and the shared
	// cache. When empty, in-memory implementations are used and realtime
	// events only reach clients connected to this process.
	RedisURL string `toml:"redis_url"`

	// SessionTTL controls how long issued access tokens stay valid.
	SessionTTL Duration `toml:"session_ttl"`

	// AdminEmail/AdminPassword bootstrap the initial ADMIN account on first
	// start. Ignored once the account exists.
	AdminEmail    string `toml:"admin_email"`
	AdminPassword string `toml:"admin_password"`

	// Debug components get debug logging enabled at startup
	// (e.g. ["realtime", "notifications"]).
	Debug []string `toml:"debug"`
}

// Duration wraps time.Duration for TOML text (un)marshaling.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func GetDefaultConfig() (*Config, error) {
	dbPath, err := GetDefaultDatabasePath()
	if err != nil {
		return nil, fmt.Errorf("getting default database path: %w", err)
	}
	return &Config{
		DatabasePath: dbPath,
		Host:         "localhost",
		Port:         8080,
		SessionTTL:   Duration{24 * time.Hour},
	}, nil
}

// LoadConfig reads the TOML config at configPath, falling back to defaults
// when the file does not exist. Missing fields are filled with defaults.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return GetDefaultConfig()
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if config.DatabasePath == "" {
		dbPath, err := GetDefaultDatabasePath()
		if err != nil {
			return nil, fmt.Errorf("getting default database path: %w", err)
		}
		config.DatabasePath = dbPath
	}

	if config.Host == "" {
		config.Host = "localhost"
	}

	if config.Port == 0 {
		config.Port = 8080
	}

	if config.SessionTTL.Duration == 0 {
		config.SessionTTL = Duration{24 * time.Hour}
	}

	return &config, nil
}

// SaveSample writes the embedded sample configuration to configPath. It
// refuses to overwrite an existing file.
func SaveSample(configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config file already exists: %s", configPath)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(configTemplate), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

func GetDefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("getting user config directory: %w", err)
	}
	return filepath.Join(configDir, "agora", "config.toml"), nil
}

func GetDefaultDatabasePath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("getting user config directory: %w", err)
	}
	return filepath.Join(configDir, "agora", "agora.db"), nil
}
