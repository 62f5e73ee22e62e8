package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// AppConfig holds the filter's startup parameters. Values come from
// defaults, then an optional YAML file, then environment variables
// with the SINKHOLE_ prefix (highest precedence).
type AppConfig struct {
	// BlockFile is the path of the blocklist source (one hostname per line).
	BlockFile string `koanf:"block_file" validate:"required"`

	// AllowFile is the path of the allowlist source.
	AllowFile string `koanf:"allow_file" validate:"required"`

	// StartupDelay is the number of seconds to wait before activation,
	// giving the host environment time to finish its own initialization.
	StartupDelay int `koanf:"startup_delay" validate:"gte=0"`

	// ReloadInterval is the number of seconds between rule-set reloads.
	ReloadInterval int `koanf:"reload_interval" validate:"required,gte=1"`

	// SelfTest enables the one-shot blocked-resolution probe at activation.
	SelfTest bool `koanf:"self_test"`

	// WatchFiles additionally triggers a reload whenever a rule file
	// changes on disk, instead of waiting for the next interval.
	WatchFiles bool `koanf:"watch_files"`

	// CacheSize bounds the decision cache; 0 disables caching.
	CacheSize int `koanf:"cache_size" validate:"gte=0"`

	// JournalPath is the block-event journal database; empty disables it.
	JournalPath string `koanf:"journal_path"`

	// AdminAddr is the listen address for the admin HTTP endpoint;
	// empty disables it.
	AdminAddr string `koanf:"admin_addr" validate:"omitempty,hostname_port"`

	// Env is the runtime environment, either "dev" or "prod".
	Env string `koanf:"env" validate:"required,oneof=dev prod"`

	// LogLevel controls log verbosity: "debug", "info", "warn", or "error".
	LogLevel string `koanf:"log_level" validate:"required,oneof=debug info warn error"`
}

// StartupDelayDuration returns the startup delay as a time.Duration.
func (c *AppConfig) StartupDelayDuration() time.Duration {
	return time.Duration(c.StartupDelay) * time.Second
}

// ReloadIntervalDuration returns the reload interval as a time.Duration.
func (c *AppConfig) ReloadIntervalDuration() time.Duration {
	return time.Duration(c.ReloadInterval) * time.Second
}

// DEFAULT_APP_CONFIG defines the default settings for the filter:
// list locations, activation timing, cache sizing, and logging.
var DEFAULT_APP_CONFIG = AppConfig{
	BlockFile:      "/etc/sinkhole/trackers.txt",
	AllowFile:      "/etc/sinkhole/allow.txt",
	StartupDelay:   5,
	ReloadInterval: 300,
	SelfTest:       true,
	WatchFiles:     false,
	CacheSize:      1024,
	JournalPath:    "",
	AdminAddr:      "",
	Env:            "prod",
	LogLevel:       "info",
}

// envConfigFile names the environment variable pointing at an optional
// YAML config file.
const envConfigFile = "SINKHOLE_CONFIG_FILE"

// defaultLoader loads default values into the provided Koanf instance
// using the structs provider.
var defaultLoader = func(k *koanf.Koanf) error {
	return k.Load(structs.Provider(DEFAULT_APP_CONFIG, "koanf"), nil)
}

// fileLoader loads the optional YAML config file named by
// SINKHOLE_CONFIG_FILE. A missing variable is not an error; a named
// but unreadable file is.
var fileLoader = func(k *koanf.Koanf) error {
	path := os.Getenv(envConfigFile)
	if path == "" {
		return nil
	}
	return k.Load(file.Provider(path), yaml.Parser())
}

// envLoader loads environment variables with the prefix "SINKHOLE_",
// transforming keys to lowercase without the prefix.
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: "SINKHOLE_",
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, "SINKHOLE_"))
			return key, strings.TrimSpace(value)
		},
	}), nil)
}

// Load assembles an AppConfig from defaults, the optional config file,
// and environment variables, then validates it.
func Load() (*AppConfig, error) {
	k := koanf.New(".")

	if err := defaultLoader(k); err != nil {
		return nil, fmt.Errorf("error loading default config: %w", err)
	}

	if err := fileLoader(k); err != nil {
		return nil, fmt.Errorf("error loading config file: %w", err)
	}

	if err := envLoader(k); err != nil {
		return nil, fmt.Errorf("error loading env: %w", err)
	}

	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &cfg, nil
}
