// Package config loads service settings from an optional YAML file and the
// process environment. Environment values win.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"
	// Minimal images ship without zoneinfo.
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

const (
	CacheRedis    = "redis"
	CachePostgres = "postgres"
)

type SiteConfig struct {
	URL            string        `yaml:"url"`
	Username       string        `yaml:"username"`
	Password       string        `yaml:"password"`
	SkipTLSVerify  bool          `yaml:"skip_tls_verify"`
	Timeout        time.Duration `yaml:"timeout"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	// Taxonomy bundles for the report issue lists, when they differ from
	// the relationship vocabulary names.
	WildlifeBundle string `yaml:"wildlife_bundle"`
	OtherBundle    string `yaml:"other_bundle"`
}

type SlackConfig struct {
	BotToken      string `yaml:"bot_token"`
	SigningSecret string `yaml:"signing_secret"`
	// APIURL overrides the Slack Web API root, used against test doubles.
	APIURL string `yaml:"api_url"`
	// AdminUserIDs may delete cache keys from chat.
	AdminUserIDs []string `yaml:"admin_user_ids"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN is the postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type CacheConfig struct {
	Backend string        `yaml:"backend"` // redis | postgres
	Prefix  string        `yaml:"prefix"`
	TTL     time.Duration `yaml:"ttl"`
}

type AuthConfig struct {
	AccessSecret  string        `yaml:"access_secret"`
	RefreshSecret string        `yaml:"refresh_secret"`
	AccessTTL     time.Duration `yaml:"access_ttl"`
	RefreshTTL    time.Duration `yaml:"refresh_ttl"`
	// Seeded on startup when no admin with this email exists.
	AdminEmail    string `yaml:"admin_email"`
	AdminPassword string `yaml:"admin_password"`
}

type Config struct {
	HTTPAddr  string `yaml:"http_addr"`
	Timezone  string `yaml:"timezone"`
	PrimeCron string `yaml:"prime_cron"`
	LogLevel  string `yaml:"log_level"`

	Site     SiteConfig     `yaml:"site"`
	Slack    SlackConfig    `yaml:"slack"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Cache    CacheConfig    `yaml:"cache"`
	Auth     AuthConfig     `yaml:"auth"`
}

func Default() Config {
	return Config{
		HTTPAddr:  ":8080",
		Timezone:  "America/Los_Angeles",
		PrimeCron: "0 0 * * * *",
		LogLevel:  "info",
		Site: SiteConfig{
			Timeout:        30 * time.Second,
			ConnectTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{Host: "localhost", Port: "5432", SSLMode: "disable"},
		Redis:    RedisConfig{Addr: "localhost:6379"},
		Cache:    CacheConfig{Backend: CacheRedis, Prefix: "docent:", TTL: 48 * time.Hour},
		Auth:     AuthConfig{AccessTTL: 15 * time.Minute, RefreshTTL: 7 * 24 * time.Hour},
	}
}

// Load reads path when it is set and exists, then applies the environment
// and validates. Every missing or invalid key is reported in one error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	var invalid []string
	applyEnv(&cfg, &invalid)

	missing := cfg.missing()
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		invalid = append(invalid, "RESERVE_TIMEZONE")
	}
	if cfg.Cache.Backend != CacheRedis && cfg.Cache.Backend != CachePostgres {
		invalid = append(invalid, "CACHE_BACKEND")
	}

	var errs []error
	if len(missing) > 0 {
		errs = append(errs, fmt.Errorf("missing required settings: %s", strings.Join(missing, ", ")))
	}
	if len(invalid) > 0 {
		errs = append(errs, fmt.Errorf("invalid settings: %s", strings.Join(invalid, ", ")))
	}
	if len(errs) > 0 {
		return Config{}, fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return cfg, nil
}

// Location is the reserve's time zone. Load has already validated it.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c Config) missing() []string {
	var missing []string
	required := []struct {
		key, value string
	}{
		{"SITE_URL", c.Site.URL},
		{"SITE_USERNAME", c.Site.Username},
		{"SITE_PASSWORD", c.Site.Password},
		{"SLACK_BOT_TOKEN", c.Slack.BotToken},
		{"SLACK_SIGNING_SECRET", c.Slack.SigningSecret},
		{"JWT_ACCESS_SECRET", c.Auth.AccessSecret},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.key)
		}
	}
	return missing
}

func applyEnv(cfg *Config, invalid *[]string) {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil || d < 0 {
				*invalid = append(*invalid, key)
				return
			}
			*dst = d
		}
	}
	boolean := func(key string, dst *bool) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				*invalid = append(*invalid, key)
				return
			}
			*dst = b
		}
	}

	str("HTTP_ADDR", &cfg.HTTPAddr)
	str("RESERVE_TIMEZONE", &cfg.Timezone)
	str("PRIME_CRON", &cfg.PrimeCron)
	str("LOG_LEVEL", &cfg.LogLevel)

	str("SITE_URL", &cfg.Site.URL)
	str("SITE_USERNAME", &cfg.Site.Username)
	str("SITE_PASSWORD", &cfg.Site.Password)
	boolean("SITE_SKIP_TLS_VERIFY", &cfg.Site.SkipTLSVerify)
	dur("SITE_TIMEOUT", &cfg.Site.Timeout)
	dur("SITE_CONNECT_TIMEOUT", &cfg.Site.ConnectTimeout)
	str("SITE_WILDLIFE_BUNDLE", &cfg.Site.WildlifeBundle)
	str("SITE_OTHER_BUNDLE", &cfg.Site.OtherBundle)

	str("SLACK_BOT_TOKEN", &cfg.Slack.BotToken)
	str("SLACK_SIGNING_SECRET", &cfg.Slack.SigningSecret)
	str("SLACK_API_URL", &cfg.Slack.APIURL)
	if v := strings.TrimSpace(os.Getenv("SLACK_ADMIN_IDS")); v != "" {
		cfg.Slack.AdminUserIDs = nil
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				cfg.Slack.AdminUserIDs = append(cfg.Slack.AdminUserIDs, id)
			}
		}
	}

	str("DB_HOST", &cfg.Database.Host)
	str("DB_PORT", &cfg.Database.Port)
	str("DB_USER", &cfg.Database.User)
	str("DB_PASSWORD", &cfg.Database.Password)
	str("DB_NAME", &cfg.Database.Name)
	str("DB_SSLMODE", &cfg.Database.SSLMode)

	str("REDIS_ADDR", &cfg.Redis.Addr)
	str("REDIS_PASSWORD", &cfg.Redis.Password)
	if v := strings.TrimSpace(os.Getenv("REDIS_DB")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			*invalid = append(*invalid, "REDIS_DB")
		} else {
			cfg.Redis.DB = n
		}
	}

	str("CACHE_BACKEND", &cfg.Cache.Backend)
	str("CACHE_PREFIX", &cfg.Cache.Prefix)
	dur("CACHE_TTL", &cfg.Cache.TTL)

	str("JWT_ACCESS_SECRET", &cfg.Auth.AccessSecret)
	str("JWT_REFRESH_SECRET", &cfg.Auth.RefreshSecret)
	dur("JWT_ACCESS_TTL", &cfg.Auth.AccessTTL)
	dur("JWT_REFRESH_TTL", &cfg.Auth.RefreshTTL)
	str("ADMIN_EMAIL", &cfg.Auth.AdminEmail)
	str("ADMIN_PASSWORD", &cfg.Auth.AdminPassword)

	if cfg.Auth.RefreshSecret == "" {
		cfg.Auth.RefreshSecret = cfg.Auth.AccessSecret
	}
}
