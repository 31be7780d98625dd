package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/openmined/globsync/internal/blob"
	"github.com/openmined/globsync/internal/policy"
	"github.com/openmined/globsync/internal/reconcile"
	"github.com/openmined/globsync/internal/utils"
)

var (
	home, _           = os.UserHomeDir()
	DefaultConfigDir  = filepath.Join(home, ".globsync")
	DefaultConfigPath = filepath.Join(DefaultConfigDir, "config.yaml")
)

const (
	DefaultRegion           = "us-east-1"
	DefaultLogLevel         = "info"
	DefaultWaitBeforeDelete = reconcile.DefaultWaitBeforeDelete
	DefaultConcurrency      = reconcile.DefaultConcurrency
)

var ErrInvalidConfig = errors.New("invalid config")

// RuleList holds "glob=cache-policy[;acl]" rules. Cache policies contain commas, so a rule list
// given as a single string is split on newlines only.
type RuleList []string

type Config struct {
	Root string `mapstructure:"root"`

	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	PathStyle bool   `mapstructure:"path_style"`
	// Accelerate sends requests to the bucket's Transfer Acceleration endpoint
	Accelerate bool   `mapstructure:"accelerate"`
	Prefix     string `mapstructure:"prefix"`

	// CachePolicy and ACL are the defaults for files no rule matches. Empty values fall back to
	// the rules file defaults, then to policy.DefaultCachePolicy and policy.DefaultACL.
	CachePolicy string   `mapstructure:"cache_policy"`
	ACL         string   `mapstructure:"acl"`
	Rules       RuleList `mapstructure:"rules"`
	RulesFile   string   `mapstructure:"rules_file"`
	Excludes    []string `mapstructure:"exclude"`

	DryRun             bool          `mapstructure:"dry_run"`
	DeleteOrphaned     bool          `mapstructure:"delete_orphaned"`
	CompareCachePolicy bool          `mapstructure:"compare_cache_policy"`
	WaitBeforeDelete   time.Duration `mapstructure:"wait_before_delete"`
	Concurrency        int           `mapstructure:"concurrency"`
	ContinueOnError    bool          `mapstructure:"continue_on_error"`

	Dummy    bool   `mapstructure:"dummy"`
	LogLevel string `mapstructure:"log_level"`
	// LogFile additionally receives every log record as plain text
	LogFile string `mapstructure:"log_file"`

	// Path is the config file that was read, if any
	Path string `mapstructure:"-"`
}

// Default returns a Config with every default applied
func Default() *Config {
	return &Config{
		Root:             ".",
		Region:           DefaultRegion,
		DeleteOrphaned:   true,
		WaitBeforeDelete: DefaultWaitBeforeDelete,
		Concurrency:      DefaultConcurrency,
		LogLevel:         DefaultLogLevel,
	}
}

// Validate checks the config and normalizes paths. Every error wraps ErrInvalidConfig.
func (c *Config) Validate() error {
	if c.Root == "" {
		return invalid("root directory is required")
	}
	// WalkDir does not descend into a symlinked root, so keep the target
	root, err := utils.ResolveDir(c.Root)
	if err != nil {
		return invalid("root %q: %v", c.Root, err)
	}
	c.Root = root

	if c.Bucket == "" && !c.Dummy {
		return invalid("bucket is required")
	}

	if c.Endpoint != "" {
		u, err := url.Parse(c.Endpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return invalid("endpoint %q must be an http(s) url", c.Endpoint)
		}
	}

	if c.Accelerate && (c.Endpoint != "" || c.PathStyle) {
		return invalid("accelerate cannot be combined with a custom endpoint or path-style addressing")
	}

	if (c.AccessKey == "") != (c.SecretKey == "") {
		return invalid("access key and secret key must be set together")
	}

	if c.Concurrency < 0 {
		return invalid("concurrency must be positive, got %d", c.Concurrency)
	} else if c.Concurrency == 0 {
		c.Concurrency = DefaultConcurrency
	}

	if c.WaitBeforeDelete < 0 {
		return invalid("wait before delete must not be negative, got %s", c.WaitBeforeDelete)
	}

	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return invalid("%v", err)
	}

	if c.LogFile != "" {
		logFile, err := utils.ExpandPath(c.LogFile)
		if err != nil {
			return invalid("log file %q: %v", c.LogFile, err)
		}
		c.LogFile = logFile
	}

	for _, raw := range c.Rules {
		if _, err := policy.ParseRuleFlag(raw); err != nil {
			return invalid("%v", err)
		}
	}

	if c.RulesFile != "" {
		rulesFile, err := utils.ExpandPath(c.RulesFile)
		if err != nil {
			return invalid("rules file %q: %v", c.RulesFile, err)
		}
		if !utils.IsRegularFile(rulesFile) {
			return invalid("rules file %q does not exist", c.RulesFile)
		}
		c.RulesFile = rulesFile
	}

	return nil
}

// BlobConfig returns the S3 client settings
func (c *Config) BlobConfig() *blob.S3BlobConfig {
	if c.Endpoint != "" {
		cfg := blob.WithMinioConfig(c.Endpoint, c.Bucket, c.AccessKey, c.SecretKey)
		cfg.UsePathStyle = c.PathStyle || cfg.UsePathStyle
		if c.Region != "" {
			cfg.Region = c.Region
		}
		return cfg
	}

	cfg := blob.WithS3Config(c.Bucket, c.Region, c.AccessKey, c.SecretKey, c.Accelerate)
	cfg.UsePathStyle = c.PathStyle
	return cfg
}

// Resolver builds the policy resolver. Command line rules are evaluated before the rules
// file so they can override it.
func (c *Config) Resolver() (*policy.Resolver, error) {
	var rules []policy.Rule
	for _, raw := range c.Rules {
		rule, err := policy.ParseRuleFlag(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		rules = append(rules, rule)
	}

	defaults := reconcile.FileMetadata{
		CachePolicy: policy.DefaultCachePolicy,
		ACL:         policy.DefaultACL,
	}

	if c.RulesFile != "" {
		file, err := policy.LoadRules(c.RulesFile)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		defaults.CachePolicy = file.Defaults.CachePolicy
		defaults.ACL = file.Defaults.ACL
		rules = append(rules, file.Rules...)
	}

	if c.CachePolicy != "" {
		defaults.CachePolicy = c.CachePolicy
	}
	if c.ACL != "" {
		defaults.ACL = c.ACL
	}

	return policy.NewResolver(defaults, rules)
}

// ExecutorOptions maps the run settings onto the executor
func (c *Config) ExecutorOptions() reconcile.Options {
	return reconcile.Options{
		DryRun:           c.DryRun,
		DeleteOrphaned:   c.DeleteOrphaned,
		WaitBeforeDelete: c.WaitBeforeDelete,
		Concurrency:      c.Concurrency,
		ContinueOnError:  c.ContinueOnError,
	}
}

// ParseLogLevel accepts debug, info, warn and error
func ParseLogLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
	}
	return l, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
