package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/scourdev/scour/pkg/scan"
	"github.com/scourdev/scour/pkg/search"
	"github.com/scourdev/scour/pkg/state"
)

var scanNoCache bool

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run a full analysis pass",
	Long:  "Discovers files, runs every detector, merges findings into state,\nrecomputes all four score channels, and reconciles the plan.\nInterrupting a scan leaves all files untouched.",
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := repoRoot()
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		report, err := scan.Run(ctx, scan.Options{RepoRoot: root, NoCache: scanNoCache})
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("scan interrupted; nothing was written")
			}
			return err
		}

		// Refresh the search index from the saved state. Failures here do
		// not fail the scan; the index is a derived artifact.
		refreshSearchIndex(root)

		if flagJSON {
			return printJSON(report)
		}

		fmt.Printf("\n%s\n\n", headerColor("=== Scan "+report.ScanID+" ==="))
		if report.Commit != "" {
			fmt.Printf("  Commit:    %s\n", report.Commit)
		}
		fmt.Printf("  Languages: %v\n", report.Languages)
		fmt.Printf("  Files:     %d (%d LOC)\n", report.Stats.Files, report.Stats.LOC)
		fmt.Printf("  Duration:  %v\n\n", report.Duration.Round(1e7))

		b := report.Scores
		fmt.Printf("  Overall:         %s\n", formatScore(b.Overall))
		fmt.Printf("  Objective:       %s\n", formatScore(b.Objective))
		fmt.Printf("  Strict:          %s\n", formatScore(b.Strict))
		fmt.Printf("  Verified strict: %s\n\n", formatScore(b.VerifiedStrict))

		d := report.Diff
		fmt.Printf("  %s new, %s resolved, %s reopened (delta %+.2f)\n",
			warnColor(len(d.New)), goodColor(len(d.Resolved)), badColor(len(d.Reopened)), d.ScoreDelta)

		for phase, code := range report.Failures {
			fmt.Printf("  %s %s: %s\n", badColor("!"), phase, code)
		}
		for _, w := range report.Integrity.Warnings {
			fmt.Printf("  %s %s: %s\n", warnColor("!"), w.Code, w.Message)
		}
		if report.Integrity.Status == "penalized" {
			fmt.Printf("  %s subjective dimensions penalized: %v\n",
				badColor("!"), report.Integrity.PenalizedDims)
		}
		return nil
	},
}

func init() {
	scanCmd.Flags().BoolVar(&scanNoCache, "no-cache", false, "bypass the extraction cache")
}

func refreshSearchIndex(root string) {
	st, err := state.NewStore(root)
	if err != nil {
		return
	}
	s, err := st.Load()
	if err != nil {
		return
	}
	ix, err := search.Open(st.Path(search.IndexDir))
	if err != nil {
		fmt.Fprintf(os.Stderr, "scour: search index: %v\n", err)
		return
	}
	defer ix.Close()
	if err := ix.Sync(s); err != nil {
		fmt.Fprintf(os.Stderr, "scour: search index: %v\n", err)
	}
}
