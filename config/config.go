package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DB       DBConfig       `yaml:"db"`
	HTTP     HTTPConfig     `yaml:"http"`
	Telegram TelegramConfig `yaml:"telegram"`
	OAuth    OAuthConfig    `yaml:"oauth"`
	Menu     MenuConfig     `yaml:"menu"`
	Session  SessionConfig  `yaml:"session"`
	Log      LogConfig      `yaml:"log"`

	AutoMigrate bool `yaml:"auto_migrate"`
}

type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

type HTTPConfig struct {
	Addr      string `yaml:"addr"`
	PublicURL string `yaml:"public_url"` // used to build the OAuth redirect URL
}

type TelegramConfig struct {
	Token string `yaml:"token"` // empty disables the bot
}

// OAuthConfig configures the hosted consent flow. Without a client ID the
// web surface falls back to the password form.
type OAuthConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

func (o OAuthConfig) Enabled() bool {
	return o.ClientID != "" && o.ClientSecret != ""
}

type MenuConfig struct {
	CarouselInterval time.Duration `yaml:"carousel_interval"`
	Fanout           int           `yaml:"fanout"`
	LoadTimeout      time.Duration `yaml:"load_timeout"`
}

type SessionConfig struct {
	Idle time.Duration `yaml:"idle"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// Default returns the configuration used when neither a file nor the
// environment sets a value.
func Default() *Config {
	return &Config{
		DB: DBConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Database: "knowyourplate",
			SSLMode:  "disable",
		},
		HTTP: HTTPConfig{
			Addr:      ":8080",
			PublicURL: "http://localhost:8080",
		},
		Menu: MenuConfig{
			CarouselInterval: 3 * time.Second,
			Fanout:           8,
			LoadTimeout:      15 * time.Second,
		},
		Session: SessionConfig{
			Idle: 24 * time.Hour,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads .env (if present), then the optional YAML file named by
// CONFIG_FILE, then applies environment overrides.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path := getEnv("CONFIG_FILE", ""); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.DB.Host = getEnv("DB_HOST", c.DB.Host)
	c.DB.User = getEnv("DB_USER", c.DB.User)
	c.DB.Password = getEnv("DB_PASSWORD", c.DB.Password)
	c.DB.Database = getEnv("DB_NAME", c.DB.Database)
	c.DB.SSLMode = getEnv("DB_SSLMODE", c.DB.SSLMode)
	if v := getEnv("DB_PORT", ""); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DB_PORT: %w", err)
		}
		c.DB.Port = port
	}

	c.HTTP.Addr = getEnv("HTTP_ADDR", c.HTTP.Addr)
	c.HTTP.PublicURL = strings.TrimRight(getEnv("PUBLIC_URL", c.HTTP.PublicURL), "/")
	c.Telegram.Token = getEnv("TOKEN", c.Telegram.Token)
	c.OAuth.ClientID = getEnv("GOOGLE_CLIENT_ID", c.OAuth.ClientID)
	c.OAuth.ClientSecret = getEnv("GOOGLE_CLIENT_SECRET", c.OAuth.ClientSecret)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)

	var err error
	if c.Menu.CarouselInterval, err = getDuration("CAROUSEL_INTERVAL", c.Menu.CarouselInterval); err != nil {
		return err
	}
	if c.Menu.LoadTimeout, err = getDuration("LOAD_TIMEOUT", c.Menu.LoadTimeout); err != nil {
		return err
	}
	if c.Session.Idle, err = getDuration("SESSION_IDLE", c.Session.Idle); err != nil {
		return err
	}
	if v := getEnv("MENU_FANOUT", ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MENU_FANOUT: %w", err)
		}
		c.Menu.Fanout = n
	}
	if v := strings.TrimSpace(getEnv("AUTO_MIGRATE", "")); v != "" {
		c.AutoMigrate = v == "1" || strings.EqualFold(v, "true")
	}
	return nil
}

// Validate rejects values the server cannot run with.
func (c *Config) Validate() error {
	if c.DB.Port < 1 || c.DB.Port > 65535 {
		return fmt.Errorf("db port %d out of range", c.DB.Port)
	}
	if c.HTTP.Addr == "" {
		return fmt.Errorf("http addr is required")
	}
	if c.Menu.CarouselInterval <= 0 {
		return fmt.Errorf("carousel interval must be > 0")
	}
	if c.Menu.Fanout < 1 {
		return fmt.Errorf("menu fanout must be >= 1")
	}
	if c.Menu.LoadTimeout <= 0 {
		return fmt.Errorf("load timeout must be > 0")
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := getEnv(key, "")
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
