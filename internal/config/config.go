// Package config loads the cardgate JSON configuration.
package config

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/eliteGoblin/focusd/card_gate/internal/domain"
	"github.com/eliteGoblin/focusd/card_gate/internal/infra"
)

const (
	// DefaultFileName is the config file created next to the executable.
	DefaultFileName = "config.json"

	configEnvVar = "CARDGATE_CONFIG"
)

// Config holds every setting read at startup. It is read-only after Load.
type Config struct {
	ServiceURL           string        `mapstructure:"service_url"`
	Hostnames            []string      `mapstructure:"hostnames"`
	CardsPerMinute       float64       `mapstructure:"cards_per_minute"`
	DefaultRewardMinutes int           `mapstructure:"default_reward_minutes"`
	PollInterval         time.Duration `mapstructure:"poll_interval"`
	RequestTimeout       time.Duration `mapstructure:"request_timeout"`
	StallThreshold       int           `mapstructure:"stall_threshold"`
	HostsPath            string        `mapstructure:"hosts_path"`
	SoundFile            string        `mapstructure:"sound_file"`
	LogFile              string        `mapstructure:"log_file"`
	GuardHosts           bool          `mapstructure:"guard_hosts"`

	// Path is the file the config was loaded from.
	Path string `mapstructure:"-"`
}

// DefaultHostnames is the block list written on first run.
var DefaultHostnames = []string{"www.youtube.com", "youtube.com", "www.reddit.com", "reddit.com"}

// ResolvePath returns $CARDGATE_CONFIG, or config.json inside dir.
func ResolvePath(dir string) string {
	if fromEnv := strings.TrimSpace(os.Getenv(configEnvVar)); fromEnv != "" {
		return infra.ExpandHome(fromEnv)
	}
	return filepath.Join(dir, DefaultFileName)
}

// EnsureExists writes a default config to path if none exists.
// Returns true when the file was created.
func EnsureExists(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("stat config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("create config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigType("json")
	setDefaults(v)
	if err := v.SafeWriteConfigAs(path); err != nil {
		return false, fmt.Errorf("write default config: %w", err)
	}
	return true, nil
}

// Load reads and validates the config at path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := checkIntegral(v, integerKeys...); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Path = path

	resolvePaths(&cfg, filepath.Dir(path))

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Setup creates the config on first run and loads it.
func Setup(dir string) (cfg *Config, created bool, err error) {
	path := ResolvePath(dir)
	created, err = EnsureExists(path)
	if err != nil {
		return nil, false, err
	}
	cfg, err = Load(path)
	if err != nil {
		return nil, created, err
	}
	return cfg, created, nil
}

// integerKeys are decoded into int fields. viper decodes weakly and would
// truncate 1.5 to 1, so fractions are rejected before Unmarshal.
var integerKeys = []string{"default_reward_minutes", "stall_threshold"}

func checkIntegral(v *viper.Viper, keys ...string) error {
	for _, key := range keys {
		switch n := v.Get(key).(type) {
		case float64:
			if n != math.Trunc(n) {
				return fmt.Errorf("%s must be a whole number, got %v", key, n)
			}
		case float32:
			if float64(n) != math.Trunc(float64(n)) {
				return fmt.Errorf("%s must be a whole number, got %v", key, n)
			}
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service_url", infra.DefaultAnkiURL)
	v.SetDefault("hostnames", DefaultHostnames)
	v.SetDefault("cards_per_minute", 5)
	v.SetDefault("default_reward_minutes", 1)
	v.SetDefault("poll_interval", "1.5s")
	v.SetDefault("request_timeout", "1s")
	v.SetDefault("stall_threshold", 3)
	v.SetDefault("hosts_path", infra.DefaultHostsPath)
	v.SetDefault("sound_file", "success.wav")
	v.SetDefault("log_file", infra.DefaultLogPath)
	v.SetDefault("guard_hosts", true)
}

// resolvePaths expands ~ and anchors a relative sound file at the config dir.
func resolvePaths(cfg *Config, dir string) {
	cfg.HostsPath = infra.ExpandHome(cfg.HostsPath)
	cfg.LogFile = infra.ExpandHome(cfg.LogFile)
	if cfg.SoundFile != "" {
		cfg.SoundFile = infra.ExpandHome(cfg.SoundFile)
		if !filepath.IsAbs(cfg.SoundFile) {
			cfg.SoundFile = filepath.Join(dir, cfg.SoundFile)
		}
	}
}

// ValidateServiceURL ensures the review service URL is an absolute http(s) URL.
func ValidateServiceURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid service_url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid service_url %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid service_url %q: missing host", raw)
	}
	return nil
}

func validateConfig(cfg *Config) error {
	if err := ValidateServiceURL(cfg.ServiceURL); err != nil {
		return err
	}

	hosts := make([]string, 0, len(cfg.Hostnames))
	for _, h := range cfg.Hostnames {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		if strings.ContainsAny(h, " \t#") {
			return fmt.Errorf("invalid hostname %q", h)
		}
		hosts = append(hosts, h)
	}
	if len(hosts) == 0 {
		return errors.New("hostnames must contain at least one entry")
	}
	cfg.Hostnames = hosts

	if cfg.CardsPerMinute <= 0 {
		return errors.New("cards_per_minute must be > 0")
	}
	if !domain.ValidRewardMinutes(cfg.DefaultRewardMinutes) {
		return fmt.Errorf("default_reward_minutes must be between 1 and %d", domain.MaxRewardMinutes)
	}
	if cfg.PollInterval <= 0 {
		return errors.New("poll_interval must be > 0")
	}
	if cfg.RequestTimeout <= 0 {
		return errors.New("request_timeout must be > 0")
	}
	if cfg.StallThreshold < 1 {
		return errors.New("stall_threshold must be >= 1")
	}
	if cfg.HostsPath == "" {
		return errors.New("hosts_path is required")
	}
	return nil
}
