package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/image-resizer/internal/model"
	"github.com/aliskhannn/image-resizer/internal/profile"
)

// ErrInvalidConfig wraps every validation failure returned by Load.
var ErrInvalidConfig = errors.New("invalid config")

const envPrefix = "RESIZER"

// Config holds the main configuration for the application.
// It is built once at startup and never mutated afterwards.
type Config struct {
	WatchFolder        string          `mapstructure:"watch_folder"`          // Folder scanned for .tif sources
	OutputFolder       string          `mapstructure:"output_folder"`         // Flat folder for renditions and the ledger
	SkipLedgerFileName string          `mapstructure:"skip_ledger_file_name"` // Ledger file name inside OutputFolder
	SizeCeilingMB      float64         `mapstructure:"size_ceiling_mb"`       // Per-rendition maximum size
	Profiles           []model.Profile `mapstructure:"profiles"`              // Ordered rendition catalog
	Workers            int             `mapstructure:"workers"`               // Profiles rendered concurrently per source
	FileTimeout        time.Duration   `mapstructure:"file_timeout"`          // 0 disables the per-file deadline
	MaxSourcePixels    int64           `mapstructure:"max_source_pixels"`     // Decode guard, 0 disables it

	Retry   Retry   `mapstructure:"retry"`
	Storage Storage `mapstructure:"storage"`
	Kafka   Kafka   `mapstructure:"kafka"`
}

// Storage holds configuration for the optional S3-compatible mirror of
// accepted renditions.
type Storage struct {
	Enabled    bool   `mapstructure:"enabled"`
	Endpoint   string `mapstructure:"endpoint"`
	AccessKey  string `mapstructure:"access_key"`
	SecretKey  string `mapstructure:"secret_key"`
	BucketName string `mapstructure:"bucket_name"`
	UseSSL     bool   `mapstructure:"use_ssl"`
	Prefix     string `mapstructure:"prefix"` // Object key prefix
}

// Kafka holds configuration for the optional rendition event stream.
type Kafka struct {
	Enabled bool     `mapstructure:"enabled"`
	Topic   string   `mapstructure:"topic"`   // Kafka topic name
	Brokers []string `mapstructure:"brokers"` // List of Kafka broker addresses
}

// Retry defines retry policy configuration.
type Retry struct {
	Attempts int           `mapstructure:"attempts"` // Number of retry attempts
	Delay    time.Duration `mapstructure:"delay"`    // Initial delay between retries
	Backoff  float64       `mapstructure:"backoff"`  // Backoff multiplier for delays
}

// CeilingBytes converts SizeCeilingMB into a byte count (MB × 1024 × 1024).
func (c *Config) CeilingBytes() int64 {
	return int64(c.SizeCeilingMB * 1024 * 1024)
}

// Flags returns the command line flags understood by Load.
func Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("image-resizer", pflag.ContinueOnError)
	fs.StringP("config", "c", "./config/config.yml", "path to the yaml config file")
	fs.StringP("watch", "w", "", "folder with .tif sources (overrides watch_folder)")
	fs.StringP("output", "o", "", "output folder (overrides output_folder)")
	fs.Int("workers", 0, "profiles rendered concurrently per source (overrides workers)")
	fs.Float64("ceiling-mb", 0, "per-rendition size ceiling in MB (overrides size_ceiling_mb)")
	return fs
}

// flagBindings maps config keys to the flags that override them.
var flagBindings = map[string]string{
	"watch_folder":    "watch",
	"output_folder":   "output",
	"workers":         "workers",
	"size_ceiling_mb": "ceiling-mb",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("watch_folder", "./watch")
	v.SetDefault("output_folder", "./file-outputs")
	v.SetDefault("skip_ledger_file_name", "skipped_files.txt")
	v.SetDefault("size_ceiling_mb", 100.0)
	v.SetDefault("profiles", profile.Default())
	v.SetDefault("workers", 1)
	v.SetDefault("file_timeout", time.Duration(0))
	v.SetDefault("max_source_pixels", int64(1)<<30)

	v.SetDefault("retry.attempts", 3)
	v.SetDefault("retry.delay", time.Second)
	v.SetDefault("retry.backoff", 2.0)

	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.access_key", "")
	v.SetDefault("storage.secret_key", "")
	v.SetDefault("storage.bucket_name", "")
	v.SetDefault("storage.use_ssl", false)
	v.SetDefault("storage.prefix", "")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.topic", "renditions")
	v.SetDefault("kafka.brokers", []string{})
}

// mustBindEnv binds secrets to well-known environment variables.
//
// It panics if any environment variable cannot be bound.
func mustBindEnv(v *viper.Viper) {
	bindings := map[string]string{
		"storage.access_key": "MINIO_ACCESS_KEY",
		"storage.secret_key": "MINIO_SECRET_KEY",
	}

	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			zlog.Logger.Panic().Err(err).Msgf("failed to bind env %s", env)
		}
	}
}

// Load builds the configuration from defaults, the yaml file at path (skipped
// when path is empty), RESIZER_* environment variables and changed flags, in
// increasing order of precedence. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	mustBindEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if flags != nil {
		for key, name := range flagBindings {
			f := flags.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.WatchFolder == "" {
		return fmt.Errorf("%w: watch_folder is required", ErrInvalidConfig)
	}
	if c.OutputFolder == "" {
		return fmt.Errorf("%w: output_folder is required", ErrInvalidConfig)
	}
	if c.SkipLedgerFileName == "" || strings.ContainsAny(c.SkipLedgerFileName, `/\`) {
		return fmt.Errorf("%w: skip_ledger_file_name must be a plain file name", ErrInvalidConfig)
	}
	if c.SizeCeilingMB <= 0 {
		return fmt.Errorf("%w: size_ceiling_mb must be positive", ErrInvalidConfig)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1", ErrInvalidConfig)
	}
	if c.FileTimeout < 0 {
		return fmt.Errorf("%w: file_timeout must not be negative", ErrInvalidConfig)
	}
	if err := profile.Validate(c.Profiles); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Storage.Enabled && (c.Storage.Endpoint == "" || c.Storage.BucketName == "") {
		return fmt.Errorf("%w: storage.endpoint and storage.bucket_name are required when storage is enabled", ErrInvalidConfig)
	}
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		return fmt.Errorf("%w: kafka.brokers and kafka.topic are required when kafka is enabled", ErrInvalidConfig)
	}

	return nil
}
