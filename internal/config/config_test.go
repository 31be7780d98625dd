package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg := Default()
	cfg.Root = t.TempDir()
	cfg.Bucket = "my-site"
	return cfg
}

func TestConfig_Validate_NormalizesAndDefaults(t *testing.T) {
	cfg := validConfig(t)
	cfg.Concurrency = 0
	cfg.LogLevel = ""

	require.NoError(t, cfg.Validate())
	assert.True(t, filepath.IsAbs(cfg.Root))
	assert.Equal(t, DefaultConcurrency, cfg.Concurrency)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.True(t, cfg.DeleteOrphaned)
	assert.Equal(t, 5*time.Second, cfg.WaitBeforeDelete)
}

func TestConfig_Validate_ResolvesSymlinkedRoot(t *testing.T) {
	base := t.TempDir()
	realDir := filepath.Join(base, "realdir")
	require.NoError(t, os.Mkdir(realDir, 0o755))
	link := filepath.Join(base, "site")
	require.NoError(t, os.Symlink(realDir, link))

	cfg := validConfig(t)
	cfg.Root = link
	require.NoError(t, cfg.Validate())

	want, err := filepath.EvalSymlinks(realDir)
	require.NoError(t, err)
	assert.Equal(t, want, cfg.Root)
}

func TestConfig_Validate_ErrorsOnInvalidInputs(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"missing root", func(c *Config) { c.Root = "" }, "root directory is required"},
		{"missing root directory", func(c *Config) { c.Root = filepath.Join(c.Root, "missing") }, "no such file or directory"},
		{"root is a file", func(c *Config) {
			file := filepath.Join(c.Root, "index.html")
			_ = os.WriteFile(file, []byte("x"), 0o644)
			c.Root = file
		}, "not a directory"},
		{"missing bucket", func(c *Config) { c.Bucket = "" }, "bucket is required"},
		{"bad endpoint", func(c *Config) { c.Endpoint = "ftp://minio" }, "endpoint"},
		{"half credentials", func(c *Config) { c.AccessKey = "AKIA" }, "set together"},
		{"accelerate with endpoint", func(c *Config) {
			c.Accelerate = true
			c.Endpoint = "http://localhost:9000"
		}, "accelerate"},
		{"accelerate with path style", func(c *Config) {
			c.Accelerate = true
			c.PathStyle = true
		}, "accelerate"},
		{"negative concurrency", func(c *Config) { c.Concurrency = -1 }, "concurrency"},
		{"negative wait", func(c *Config) { c.WaitBeforeDelete = -time.Second }, "wait before delete"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "unknown log level"},
		{"malformed rule", func(c *Config) { c.Rules = []string{"**/*.html"} }, "invalid rule"},
		{"malformed rule glob", func(c *Config) { c.Rules = []string{"[a-=no-cache"} }, "invalid glob"},
		{"missing rules file", func(c *Config) { c.RulesFile = filepath.Join(c.Root, "rules.yaml") }, "does not exist"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestConfig_Validate_DummyNeedsNoBucket(t *testing.T) {
	cfg := validConfig(t)
	cfg.Bucket = ""
	cfg.Dummy = true
	assert.NoError(t, cfg.Validate())
}

func TestConfig_BlobConfig(t *testing.T) {
	cfg := validConfig(t)
	cfg.Region = "eu-central-1"

	s3cfg := cfg.BlobConfig()
	assert.Equal(t, "my-site", s3cfg.BucketName)
	assert.Equal(t, "eu-central-1", s3cfg.Region)
	assert.False(t, s3cfg.UsePathStyle)
	assert.False(t, s3cfg.UseAccelerate)
	assert.Empty(t, s3cfg.Endpoint)

	cfg.Accelerate = true
	assert.True(t, cfg.BlobConfig().UseAccelerate)
	cfg.Accelerate = false

	cfg.Endpoint = "http://localhost:9000"
	minio := cfg.BlobConfig()
	assert.Equal(t, "http://localhost:9000", minio.Endpoint)
	assert.True(t, minio.UsePathStyle)
	assert.Equal(t, "eu-central-1", minio.Region)
}

func TestConfig_Resolver(t *testing.T) {
	t.Run("built-in defaults", func(t *testing.T) {
		cfg := validConfig(t)
		r, err := cfg.Resolver()
		require.NoError(t, err)

		meta := r.Resolve("index.html")
		assert.Equal(t, "no-store", meta.CachePolicy)
		assert.Equal(t, "public-read", meta.ACL)
	})

	t.Run("command line rules come before the rules file", func(t *testing.T) {
		cfg := validConfig(t)
		rulesFile := filepath.Join(cfg.Root, "rules.yaml")
		require.NoError(t, os.WriteFile(rulesFile, []byte(`
defaults:
  cache_policy: max-age=60
  acl: private
rules:
  - glob: "**/*.html"
    cache_policy: no-cache
  - glob: "assets/**"
    cache_policy: max-age=31536000
`), 0o644))
		cfg.RulesFile = rulesFile
		cfg.Rules = []string{"index.html=no-store;public-read"}
		require.NoError(t, cfg.Validate())

		r, err := cfg.Resolver()
		require.NoError(t, err)

		assert.Equal(t, "no-store", r.Resolve("index.html").CachePolicy)
		assert.Equal(t, "public-read", r.Resolve("index.html").ACL)
		assert.Equal(t, "no-cache", r.Resolve("blog/post.html").CachePolicy)
		assert.Equal(t, "private", r.Resolve("blog/post.html").ACL)
		assert.Equal(t, "max-age=31536000", r.Resolve("assets/app.js").CachePolicy)
		assert.Equal(t, "max-age=60", r.Resolve("robots.txt").CachePolicy)
	})

	t.Run("explicit defaults override the rules file", func(t *testing.T) {
		cfg := validConfig(t)
		rulesFile := filepath.Join(cfg.Root, "rules.yaml")
		require.NoError(t, os.WriteFile(rulesFile, []byte("defaults:\n  cache_policy: max-age=60\n"), 0o644))
		cfg.RulesFile = rulesFile
		cfg.CachePolicy = "no-cache"

		r, err := cfg.Resolver()
		require.NoError(t, err)
		assert.Equal(t, "no-cache", r.Resolve("robots.txt").CachePolicy)
		assert.Equal(t, "public-read", r.Resolve("robots.txt").ACL)
	})
}

func TestConfig_ExecutorOptions(t *testing.T) {
	cfg := validConfig(t)
	cfg.DryRun = true
	cfg.Concurrency = 4
	cfg.ContinueOnError = true

	opts := cfg.ExecutorOptions()
	assert.True(t, opts.DryRun)
	assert.True(t, opts.DeleteOrphaned)
	assert.True(t, opts.ContinueOnError)
	assert.Equal(t, 4, opts.Concurrency)
	assert.Equal(t, 5*time.Second, opts.WaitBeforeDelete)
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLogLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLogLevel("chatty")
	assert.Error(t, err)
}

func TestLoad_FileEnvAndDefaults(t *testing.T) {
	root := t.TempDir()
	configPath := filepath.Join(t.TempDir(), "globsync.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(`
root: `+root+`
bucket: from-file
prefix: preview/
wait_before_delete: 2s
exclude:
  - "**/*.map"
`), 0o644))

	t.Setenv("GLOBSYNC_BUCKET", "from-env")
	t.Setenv("GLOBSYNC_DRY_RUN", "true")

	v := viper.New()
	SetDefaults(v)
	require.NoError(t, ReadConfigFile(v, configPath))
	BindEnv(v)

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, configPath, cfg.Path)
	assert.Equal(t, "from-env", cfg.Bucket)
	assert.Equal(t, "preview/", cfg.Prefix)
	assert.True(t, cfg.DryRun)
	assert.True(t, cfg.DeleteOrphaned)
	assert.Equal(t, 2*time.Second, cfg.WaitBeforeDelete)
	assert.Equal(t, []string{"**/*.map"}, cfg.Excludes)
	assert.Equal(t, DefaultRegion, cfg.Region)
}

func TestLoad_RulesKeepCommas(t *testing.T) {
	const rule = "assets/**=public, max-age=600"

	tests := []struct {
		name string
		yaml string
		env  string
		want RuleList
	}{
		{
			name: "single rule from env",
			env:  rule,
			want: RuleList{rule},
		},
		{
			name: "newline separated rules from env",
			env:  rule + "\n\n  **/*.html=no-cache;private \n",
			want: RuleList{rule, "**/*.html=no-cache;private"},
		},
		{
			name: "scalar rules in config file",
			yaml: "rules: \"" + rule + "\"\n",
			want: RuleList{rule},
		},
		{
			name: "rule list in config file",
			yaml: "rules:\n  - \"" + rule + "\"\n  - \"**/*.css=public, max-age=60, immutable\"\n",
			want: RuleList{rule, "**/*.css=public, max-age=60, immutable"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "globsync.yaml")
			content := "root: " + t.TempDir() + "\nbucket: site\n" + tt.yaml
			require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))
			if tt.env != "" {
				t.Setenv("GLOBSYNC_RULES", tt.env)
			}

			v := viper.New()
			SetDefaults(v)
			require.NoError(t, ReadConfigFile(v, configPath))
			BindEnv(v)

			cfg, err := Load(v)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Rules)

			resolver, err := cfg.Resolver()
			require.NoError(t, err)
			assert.Equal(t, "public, max-age=600", resolver.Resolve("assets/app.js").CachePolicy)
		})
	}
}

func TestLoad_ExcludesStillSplitOnCommas(t *testing.T) {
	t.Setenv("GLOBSYNC_EXCLUDE", "*.tmp,**/*.map")

	v := viper.New()
	SetDefaults(v)
	v.Set("root", t.TempDir())
	v.Set("bucket", "site")
	BindEnv(v)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, []string{"*.tmp", "**/*.map"}, cfg.Excludes)
}

func TestReadConfigFile_Errors(t *testing.T) {
	t.Run("explicit missing file", func(t *testing.T) {
		v := viper.New()
		err := ReadConfigFile(v, filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})

	t.Run("malformed file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("bucket: [unterminated"), 0o644))

		err := ReadConfigFile(viper.New(), path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "config read")
	})
}

func TestLoad_InvalidConfig(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("root", t.TempDir())

	_, err := Load(v)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
