package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g.
// STIXPAT_CACHE_SIZE overrides cache.size.
const EnvPrefix = "STIXPAT"

// Config holds all configuration for the stixpat tool
type Config struct {
	Log struct {
		// Level is one of debug, info, warn, error
		Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
		// Format is console or json
		Format string `mapstructure:"format" validate:"oneof=console json"`
	} `mapstructure:"log"`

	Cache struct {
		// Size is the number of parsed patterns kept; 0 disables caching
		Size int `mapstructure:"size" validate:"min=0,max=1000000"`
	} `mapstructure:"cache"`

	Semantic struct {
		// RegexTimeout bounds a single MATCHES regex evaluation (ReDoS protection)
		RegexTimeout time.Duration `mapstructure:"regex_timeout" validate:"gt=0,lte=60s"`
		// KnownTypesOnly rejects object types outside the STIX 2.1 vocabulary
		KnownTypesOnly bool `mapstructure:"known_types_only"`
	} `mapstructure:"semantic"`

	Bundle struct {
		Workers     int   `mapstructure:"workers" validate:"min=1,max=256"`
		MaxFileSize int64 `mapstructure:"max_file_size" validate:"min=1"` // bytes
	} `mapstructure:"bundle"`

	Output struct {
		// Format is text, json or yaml
		Format string `mapstructure:"format" validate:"oneof=text json yaml"`
		Color  bool   `mapstructure:"color"`
	} `mapstructure:"output"`
}

// setDefaults sets default values for all configuration keys
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "console")
	v.SetDefault("cache.size", 1024)
	v.SetDefault("semantic.regex_timeout", 100*time.Millisecond)
	v.SetDefault("semantic.known_types_only", false)
	v.SetDefault("bundle.workers", 4)
	v.SetDefault("bundle.max_file_size", 64<<20) // 64MB
	v.SetDefault("output.format", "text")
	v.SetDefault("output.color", true)
}

// loadFromEnv sets up environment variable loading
func loadFromEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// STIXPAT_COLOR is short for STIXPAT_OUTPUT_COLOR. Aliases must not
	// spell a section name such as STIXPAT_OUTPUT: viper would read it as
	// the whole section and hide every key below it.
	_ = v.BindEnv("output.color", EnvPrefix+"_COLOR", EnvPrefix+"_OUTPUT_COLOR")
}

// Default returns the configuration built from defaults and environment
// variables only.
func Default() (*Config, error) {
	return LoadConfig("", nil)
}

// LoadConfig loads configuration from a YAML file, environment variables and
// explicit overrides, in increasing order of precedence. With an empty path
// stixpat.yaml is looked up in the working directory and in
// $HOME/.config/stixpat; a missing file is not an error unless path was
// given explicitly.
func LoadConfig(path string, overrides map[string]interface{}) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	loadFromEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("stixpat")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/stixpat")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	for key, value := range overrides {
		v.Set(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// validateConfig checks struct tags and reports the first failing key by
// its configuration name.
func validateConfig(cfg *Config) error {
	validate := validator.New()
	validate.RegisterTagNameFunc(mapstructureName)

	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", configKey(fe.Namespace()), fe.Tag(), fe.Value()))
	}
	return errors.New(strings.Join(msgs, "; "))
}
