package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/kris-hansen/tagup/utils/display"
	"github.com/kris-hansen/tagup/utils/history"
)

var historyOpts struct {
	model      string
	limit      int
	olderThan  time.Duration
	jsonOutput bool
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent upsample runs",
	Long: `List the runs recorded in the history journal, newest first.

Runs are recorded by 'tagup upsample' and the server's /v1/upsample endpoint
in history_path (default ~/.tagup/history.db).`,
	Example: `  tagup history --limit 5
  tagup history show 01J9Z3Q4M5N6P7Q8R9S0T1V2W3
  tagup history prune --older-than 720h`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withJournal(cmd, func(ctx context.Context, j *history.Journal) error {
			entries, err := j.List(ctx, historyOpts.model, historyOpts.limit)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if historyOpts.jsonOutput {
				return printJSON(w, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(w, "No runs recorded")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				out := e.AllTags
				if e.Error != "" {
					out = "error: " + e.Error
				}
				rows = append(rows, []string{
					e.ID,
					e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
					e.Model,
					truncate(e.Input, 40),
					truncate(out, 60),
				})
			}
			fmt.Fprint(w, display.NewStyler(w).Table([]string{"ID", "TIME", "MODEL", "INPUT", "OUTPUT"}, rows))
			return nil
		})
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one recorded run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withJournal(cmd, func(ctx context.Context, j *history.Journal) error {
			e, err := j.Get(ctx, args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if historyOpts.jsonOutput {
				return printJSON(w, e)
			}

			styler := display.NewStyler(w)
			seed := "-"
			if e.Seed != nil {
				seed = strconv.Itoa(*e.Seed)
			}
			fmt.Fprintln(w, styler.Title(e.ID))
			for _, f := range [][2]string{
				{"time", e.CreatedAt.Local().Format(time.RFC3339)},
				{"model", fmt.Sprintf("%s (%s)", e.Model, e.Version)},
				{"seed", seed},
				{"duration", e.Duration.Round(time.Millisecond).String()},
				{"input", e.Input},
				{"tags", e.AllTags},
				{"raw", e.Raw},
			} {
				if line := styler.Field(f[0], f[1]); line != "" {
					fmt.Fprintln(w, line)
				}
			}
			if e.Error != "" {
				fmt.Fprintln(w, styler.Error("error: "+e.Error))
			}
			return nil
		})
	},
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete runs older than --older-than",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if historyOpts.olderThan <= 0 {
			return fmt.Errorf("--older-than must be positive")
		}
		return withJournal(cmd, func(ctx context.Context, j *history.Journal) error {
			n, err := j.Prune(ctx, time.Now().Add(-historyOpts.olderThan))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d runs\n", n)
			return nil
		})
	},
}

func withJournal(cmd *cobra.Command, fn func(context.Context, *history.Journal) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	j, err := openJournal(ctx)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer j.Close()
	return fn(ctx, j)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func init() {
	historyCmd.PersistentFlags().BoolVar(&historyOpts.jsonOutput, "json", false, "print entries as JSON")
	historyCmd.Flags().StringVarP(&historyOpts.model, "model", "m", "", "only show runs of this model")
	historyCmd.Flags().IntVarP(&historyOpts.limit, "limit", "n", 20, "maximum number of runs to show")
	historyPruneCmd.Flags().DurationVar(&historyOpts.olderThan, "older-than", 30*24*time.Hour, "age of the runs to delete")
	historyCmd.AddCommand(historyShowCmd, historyPruneCmd)
	rootCmd.AddCommand(historyCmd)
}
