package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	sqliteadapter "github.com/ericfisherdev/revbot/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/revbot/internal/config"
	"github.com/ericfisherdev/revbot/internal/domain/model"
)

var (
	// runsLimit is the maximum number of runs to print.
	runsLimit int

	// runsDBPath overrides REVBOT_DB_PATH.
	runsDBPath string

	// runsJSON prints runs as JSON instead of a table.
	runsJSON bool
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent review runs",
	Long:  `Print the most recent review runs recorded in the run ledger.`,
	Args:  cobra.NoArgs,
	RunE:  runRuns,
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "Maximum number of runs to show")
	runsCmd.Flags().StringVar(&runsDBPath, "db", "", "Path to the SQLite ledger (default: $REVBOT_DB_PATH or revbot.db)")
	runsCmd.Flags().BoolVar(&runsJSON, "json", false, "Print runs as JSON")
}

func runRuns(cmd *cobra.Command, _ []string) error {
	if runsLimit < 1 {
		return fmt.Errorf("--limit must be positive, got %d", runsLimit)
	}

	path := runsDBPath
	if path == "" {
		path = config.DBPath()
	}

	ctx := cmd.Context()

	db, err := sqliteadapter.NewDB(ctx, path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}

	runs, err := sqliteadapter.NewRunRepo(db).ListRecent(ctx, runsLimit)
	if err != nil {
		return err
	}

	if runsJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}
	return printRuns(cmd.OutOrStdout(), runs)
}

func printRuns(out io.Writer, runs []model.ReviewRun) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(out, "No review runs recorded.")
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tPULL\tACTION\tSTATUS\tEVENT\tFINDINGS\tDURATION\tERROR")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			r.StartedAt.Local().Format(time.DateTime),
			r.Pull,
			r.Action,
			r.Status,
			r.ReviewEvent,
			r.FindingCount,
			r.Duration().Round(time.Millisecond),
			r.Error,
		)
	}
	return tw.Flush()
}
