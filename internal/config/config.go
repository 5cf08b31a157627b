package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds configuration for both the client front-ends and rticd.
type Config struct {
	Directory DirectoryConfig `mapstructure:"directory"`
	Mail      MailConfig      `mapstructure:"mail"`
	Wizard    WizardConfig    `mapstructure:"wizard"`
	Log       LogConfig       `mapstructure:"log"`
	Server    ServerConfig    `mapstructure:"server"`
}

// DirectoryConfig points at the identity directory API.
type DirectoryConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// MailConfig points at the mail-store API.
type MailConfig struct {
	BaseURL  string `mapstructure:"base_url"`
	PageSize int    `mapstructure:"page_size"`
}

// WizardConfig selects between the verification wizard variants.
type WizardConfig struct {
	PacingDelay       time.Duration `mapstructure:"pacing_delay"`
	AllowClose        bool          `mapstructure:"allow_close"`
	LookupErrorPolicy string        `mapstructure:"lookup_error_policy"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Path  string `mapstructure:"path"`
	Level string `mapstructure:"level"`
}

// ServerConfig holds rticd settings.
type ServerConfig struct {
	Addr           string   `mapstructure:"addr"`
	DBPath         string   `mapstructure:"db_path"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	SeedDemo       bool     `mapstructure:"seed_demo"`
}

// Lookup error policies.
const (
	PolicyRegister = "register"
	PolicyRetry    = "retry"
)

// Load reads configuration from file and env. Env var overrides use prefix RTIC_.
func Load() (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("toml")

	cfgPath := os.Getenv("RTIC_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "rtic"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("RTIC")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// an explicitly named file must be readable; the default location is optional
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgPath != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

func setDefaults(v *viper.Viper) {
	home := os.Getenv("HOME")
	v.SetDefault("directory.base_url", "http://localhost:8080")
	v.SetDefault("mail.base_url", "http://localhost:8080")
	v.SetDefault("mail.page_size", 10)
	v.SetDefault("wizard.pacing_delay", "2s")
	v.SetDefault("wizard.allow_close", true)
	v.SetDefault("wizard.lookup_error_policy", PolicyRegister)
	v.SetDefault("log.path", filepath.Join(home, ".local", "state", "rtic", "rtic.log"))
	v.SetDefault("log.level", "info")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.db_path", filepath.Join(home, ".local", "share", "rtic", "rticd.db"))
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000", "http://localhost:8080"})
	v.SetDefault("server.seed_demo", false)
}

// Validate reports the first setting that cannot be used.
func Validate(c Config) error {
	for name, raw := range map[string]string{
		"directory.base_url": c.Directory.BaseURL,
		"mail.base_url":      c.Mail.BaseURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("config: %s %q is not an absolute URL", name, raw)
		}
	}
	if c.Mail.PageSize <= 0 {
		return fmt.Errorf("config: mail.page_size must be positive, got %d", c.Mail.PageSize)
	}
	if c.Wizard.PacingDelay < 0 {
		return fmt.Errorf("config: wizard.pacing_delay must not be negative")
	}
	for _, o := range c.Server.AllowedOrigins {
		if strings.TrimSpace(o) == "*" {
			return fmt.Errorf("config: server.allowed_origins must list explicit origins, not %q", o)
		}
	}
	switch c.Wizard.LookupErrorPolicy {
	case PolicyRegister, PolicyRetry:
	default:
		return fmt.Errorf("config: unknown wizard.lookup_error_policy %q", c.Wizard.LookupErrorPolicy)
	}
	return nil
}
