// Package config loads mlkit settings from a file and MLKIT_ environment variables.
package config

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/YuminosukeSato/mlkit/pkg/errors"
	"github.com/YuminosukeSato/mlkit/pkg/log"
	"github.com/YuminosukeSato/mlkit/storage"
)

// EnvPrefix prefixes every environment override, e.g. MLKIT_OUTPUT_DIR.
const EnvPrefix = "MLKIT"

// Config is the root of the settings tree.
type Config struct {
	Output  OutputConfig  `mapstructure:"output"`
	Storage StorageConfig `mapstructure:"storage"`
	Log     LogConfig     `mapstructure:"log"`
	Train   TrainConfig   `mapstructure:"train"`
	Search  SearchConfig  `mapstructure:"search"`
}

// OutputConfig controls where pipeline artifacts go.
type OutputConfig struct {
	Dir       string `mapstructure:"dir" validate:"required"`
	Versioned bool   `mapstructure:"versioned"`
}

// StorageConfig selects the artifact store. S3 is only checked when Type is s3.
type StorageConfig struct {
	Type string           `mapstructure:"type" validate:"oneof=posix s3"`
	S3   storage.S3Config `mapstructure:"s3" validate:"-"`
}

// LogConfig sets the process log level.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
}

// TrainConfig holds the hold-out split, feature scaling and averaging used by
// the pipelines.
type TrainConfig struct {
	TestSize float64 `mapstructure:"test_size" validate:"gt=0,lt=1"`
	Seed     int64   `mapstructure:"seed"`
	Average  string  `mapstructure:"average" validate:"oneof=binary macro micro weighted"`
	// Scale is none, standard or minmax.
	Scale    string `mapstructure:"scale" validate:"omitempty,oneof=none standard minmax"`
	Stratify bool   `mapstructure:"stratify"`
}

// SearchConfig holds randomized search settings.
type SearchConfig struct {
	Trials  int    `mapstructure:"trials" validate:"gt=0"`
	Folds   int    `mapstructure:"folds" validate:"gte=2"`
	Sampler string `mapstructure:"sampler" validate:"oneof=random tpe"`
	Scoring string `mapstructure:"scoring" validate:"required"`
}

var validate = validator.New()

func setDefaults(v *viper.Viper) {
	v.SetDefault("output.dir", "models_storage")
	v.SetDefault("output.versioned", false)
	v.SetDefault("storage.type", "posix")
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.access_key_id", "")
	v.SetDefault("storage.s3.secret_access_key", "")
	v.SetDefault("storage.s3.bucket", "")
	v.SetDefault("storage.s3.prefix", "")
	v.SetDefault("storage.s3.use_ssl", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("train.test_size", 0.2)
	v.SetDefault("train.seed", 42)
	v.SetDefault("train.average", "binary")
	v.SetDefault("train.scale", "")
	v.SetDefault("train.stratify", false)
	v.SetDefault("search.trials", 10)
	v.SetDefault("search.folds", 10)
	v.SetDefault("search.sampler", "random")
	v.SetDefault("search.scoring", "f1_weighted")
}

// Load reads settings from path (optional; any format viper recognises by
// extension), applies MLKIT_ environment overrides and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the settings Load produces with no file and no environment.
func Default() *Config {
	return &Config{
		Output:  OutputConfig{Dir: "models_storage"},
		Storage: StorageConfig{Type: "posix"},
		Log:     LogConfig{Level: "info"},
		Train:   TrainConfig{TestSize: 0.2, Seed: 42, Average: "binary"},
		Search:  SearchConfig{Trials: 10, Folds: 10, Sampler: "random", Scoring: "f1_weighted"},
	}
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.NewValidationError("config", err.Error(), nil)
	}
	if c.Storage.Type == "s3" {
		if err := validate.Struct(c.Storage.S3); err != nil {
			return errors.NewValidationError("storage.s3", err.Error(), nil)
		}
	}
	return nil
}

// Store builds the configured artifact store. The POSIX store is rooted at
// Output.Dir; the S3 store writes under S3.Prefix.
func (c *Config) Store() (storage.Store, error) {
	switch c.Storage.Type {
	case "", "posix":
		return storage.NewPOSIX(c.Output.Dir), nil
	case "s3":
		s3, err := storage.NewS3(c.Storage.S3)
		if err != nil {
			return nil, err
		}
		return s3, nil
	default:
		return nil, errors.NewValidationError("storage.type", "must be posix or s3", c.Storage.Type)
	}
}

// ApplyLogging installs a zerolog provider at the configured level.
func (c *Config) ApplyLogging() {
	log.SetProvider(log.NewZerologProvider(log.ToLogLevel(c.Log.Level)))
}
