package main

import (
	"log/slog"
	"strings"

	"github.com/openmined/globsync/internal/config"
	"github.com/openmined/globsync/internal/policy"
	"github.com/openmined/globsync/internal/syncer"
	"github.com/openmined/globsync/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flag name -> config key, where they differ beyond dashes
var flagKeys = map[string]string{
	"rule": "rules",
}

func newRootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "globsync",
		Short: "Mirror a local directory into an S3 bucket with per-glob cache and ACL rules",
		Long: `globsync uploads new files, re-uploads changed ones and deletes orphaned objects under
a bucket prefix. Cache-Control and ACL of every upload come from the first matching rule.`,
		Version: version.Current().String(),
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, v)
			if err != nil {
				return err
			}

			// all good now, errors from here on are not usage errors
			cmd.SilenceUsage = true

			s, err := syncer.NewFromConfig(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			res, err := s.Run(cmd.Context())
			if res != nil {
				printResult(cmd.OutOrStdout(), res, cfg.DryRun)
			}
			return err
		},
	}

	addSyncFlags(cmd.Flags())

	cmd.AddCommand(newPlanCmd(v))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func addSyncFlags(flags *pflag.FlagSet) {
	d := config.Default()

	flags.SortFlags = false
	flags.StringP("config", "c", "", "config file (default "+config.DefaultConfigPath+" or ./globsync.yaml)")
	flags.String("log-level", d.LogLevel, "log level: debug, info, warn, error")
	flags.String("log-file", "", "also write logs to this file")

	flags.StringP("root", "r", d.Root, "local directory to sync")
	flags.StringP("bucket", "b", "", "target S3 bucket")
	flags.StringP("prefix", "p", "", "key prefix inside the bucket, used verbatim (e.g. 'preview/')")
	flags.String("region", d.Region, "bucket region")
	flags.String("endpoint", "", "S3 compatible endpoint url (e.g. MinIO)")
	flags.String("access-key", "", "access key, defaults to the AWS credential chain")
	flags.String("secret-key", "", "secret key, defaults to the AWS credential chain")
	flags.Bool("path-style", false, "use path-style addressing")
	flags.Bool("accelerate", false, "use the S3 Transfer Acceleration endpoint")

	flags.String("cache-policy", "", "default Cache-Control (default \""+policy.DefaultCachePolicy+"\")")
	flags.String("acl", "", "default canned ACL (default \""+policy.DefaultACL+"\")")
	flags.StringArray("rule", nil, "rule 'glob=cache-policy[;acl]', first match wins, repeatable")
	flags.String("rules-file", "", "YAML rules file, evaluated after --rule")
	flags.StringArray("exclude", nil, "glob of local paths to skip, repeatable")

	flags.BoolP("dry-run", "n", false, "report actions without touching the bucket")
	flags.Bool("delete-orphaned", d.DeleteOrphaned, "delete remote objects without a local file")
	flags.Bool("compare-cache-policy", false, "re-upload when the remote Cache-Control differs")
	flags.Duration("wait-before-delete", d.WaitBeforeDelete, "pause between updates and deletes")
	flags.IntP("concurrency", "j", d.Concurrency, "parallel operations per phase")
	flags.Bool("continue-on-error", false, "keep going after a failed item and report all errors")
	flags.Bool("dummy", false, "use an in-memory remote instead of S3")
}

// loadConfig merges .env files, the config file, GLOBSYNC_* env and flags into a validated Config
func loadConfig(cmd *cobra.Command, v *viper.Viper) (*config.Config, error) {
	config.LoadEnvFiles()
	config.SetDefaults(v)

	configPath, _ := cmd.Flags().GetString("config")
	if err := config.ReadConfigFile(v, configPath); err != nil {
		return nil, err
	}

	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Name == "config" || f.Name == "help" || f.Name == "version" {
			return
		}
		key, ok := flagKeys[f.Name]
		if !ok {
			key = strings.ReplaceAll(f.Name, "-", "_")
		}
		if err := v.BindPFlag(key, f); err != nil && bindErr == nil {
			bindErr = err
		}
	})
	if bindErr != nil {
		return nil, bindErr
	}

	config.BindEnv(v)

	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}

	level, _ := config.ParseLogLevel(cfg.LogLevel)
	logLevel.Set(level)

	if cfg.LogFile != "" {
		if err := enableLogFile(cfg.LogFile); err != nil {
			return nil, err
		}
	}

	if cfg.Path != "" {
		slog.Debug("config loaded", "path", cfg.Path)
	}
	return cfg, nil
}
