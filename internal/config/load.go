package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "GLOBSYNC"

// SetDefaults registers the defaults of every key so env variables resolve without a config file
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("root", d.Root)
	v.SetDefault("bucket", "")
	v.SetDefault("region", d.Region)
	v.SetDefault("endpoint", "")
	v.SetDefault("access_key", "")
	v.SetDefault("secret_key", "")
	v.SetDefault("path_style", false)
	v.SetDefault("accelerate", false)
	v.SetDefault("prefix", "")
	v.SetDefault("cache_policy", "")
	v.SetDefault("acl", "")
	v.SetDefault("rules", []string{})
	v.SetDefault("rules_file", "")
	v.SetDefault("exclude", []string{})
	v.SetDefault("dry_run", false)
	v.SetDefault("delete_orphaned", d.DeleteOrphaned)
	v.SetDefault("compare_cache_policy", false)
	v.SetDefault("wait_before_delete", d.WaitBeforeDelete)
	v.SetDefault("concurrency", d.Concurrency)
	v.SetDefault("continue_on_error", false)
	v.SetDefault("dummy", false)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_file", "")
}

// ReadConfigFile points v at path, or at the default search locations when path is empty, and
// reads it. A missing file in the default locations is not an error.
func ReadConfigFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(DefaultConfigDir)
		v.AddConfigPath(".")
		v.SetConfigName("globsync")
		v.SetConfigType("yaml")
		if _, err := os.Stat(DefaultConfigPath); err == nil {
			v.SetConfigFile(DefaultConfigPath)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || (path == "" && errors.Is(err, os.ErrNotExist)) {
			return nil
		}
		return fmt.Errorf("config read '%s': %w", v.ConfigFileUsed(), err)
	}
	return nil
}

// LoadEnvFiles loads .env and .env.local from the working directory. Existing variables win.
func LoadEnvFiles() {
	for _, name := range []string{".env", ".env.local"} {
		if _, err := os.Stat(name); err == nil {
			_ = godotenv.Load(name)
		}
	}
}

// BindEnv makes GLOBSYNC_<KEY> override the config file
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

// decodeHook keeps viper's duration and comma separated list decoding, except for RuleList
// which only splits on newlines.
func decodeHook() viper.DecoderConfigOption {
	return viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		stringToRuleListHook,
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
}

func stringToRuleListHook(f reflect.Type, t reflect.Type, data any) (any, error) {
	if f.Kind() != reflect.String || t != reflect.TypeOf(RuleList{}) {
		return data, nil
	}

	rules := RuleList{}
	for _, line := range strings.Split(data.(string), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			rules = append(rules, line)
		}
	}
	return rules, nil
}

// Load builds a validated Config from v
func Load(v *viper.Viper) (*Config, error) {
	cfg := Default()
	if err := v.Unmarshal(cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	cfg.Path = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
