package main

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/openmined/globsync/internal/reconcile"
	"github.com/openmined/globsync/internal/syncer"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newPlanCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show what a sync would create, update and delete",
		Long: `plan scans and lists like a sync and prints the resulting actions with their
resolved cache policy and ACL. Updates are candidates; unchanged files are skipped at sync time.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, v)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			s, err := syncer.NewFromConfig(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			plan, err := s.Plan(cmd.Context())
			if err != nil {
				return err
			}

			printPlan(cmd.OutOrStdout(), plan, cfg.Prefix, cfg.DeleteOrphaned)
			return nil
		},
	}

	addSyncFlags(cmd.Flags())

	return cmd
}

func printPlan(w io.Writer, plan *reconcile.Plan, prefix string, deleteOrphaned bool) {
	for _, c := range plan.Create {
		fmt.Fprintf(w, "%s %s %s\n",
			green.Render("+ create"),
			prefix+c.Local.RelPath,
			gray.Render(metaString(c.Meta, c.Local.Size)),
		)
	}
	for _, u := range plan.Update {
		fmt.Fprintf(w, "%s %s %s\n",
			cyan.Render("~ update"),
			u.Remote.Key,
			gray.Render(metaString(u.Meta, u.Local.Size)),
		)
	}
	if deleteOrphaned {
		for _, o := range plan.Delete {
			fmt.Fprintf(w, "%s %s\n", red.Render("- delete"), o.Key)
		}
	}

	deletes := len(plan.Delete)
	if !deleteOrphaned {
		deletes = 0
	}
	fmt.Fprintln(w, lightGray.Render(fmt.Sprintf("%d to create, %d to check for update, %d to delete",
		len(plan.Create), len(plan.Update), deletes)))
}

func printResult(w io.Writer, res *reconcile.Result, dryRun bool) {
	summary := fmt.Sprintf("%d created, %d updated, %d unchanged, %d deleted, %s uploaded in %s",
		res.Created, res.Updated, res.Skipped, res.Deleted,
		humanize.Bytes(uint64(res.BytesUploaded)), res.Duration.Round(time.Millisecond))
	if dryRun {
		summary = "DRY-RUN " + summary
	}

	if len(res.Errors) > 0 {
		fmt.Fprintln(w, red.Render(fmt.Sprintf("%s, %d failed", summary, len(res.Errors))))
		return
	}
	fmt.Fprintln(w, green.Render(summary))
}

func metaString(meta reconcile.FileMetadata, size int64) string {
	return fmt.Sprintf("(%s, cache=%q, acl=%s)", humanize.Bytes(uint64(size)), meta.CachePolicy, meta.ACL)
}
