package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/scourdev/scour/pkg/scoring"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show scores, counts, and scan history",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, s, err := openState()
		if err != nil {
			return err
		}

		if flagJSON {
			return printJSON(s)
		}

		fmt.Printf("\n%s\n\n", headerColor("=== scour status ==="))
		fmt.Printf("  Overall:         %s\n", formatScore(s.Overall))
		fmt.Printf("  Objective:       %s\n", formatScore(s.Objective))
		fmt.Printf("  Strict:          %s\n", formatScore(s.Strict))
		fmt.Printf("  Verified strict: %s\n\n", formatScore(s.VerifiedStrict))

		fmt.Printf("  Files: %d   LOC: %d   Dirs: %d\n", s.Stats.Files, s.Stats.LOC, s.Stats.Dirs)

		statuses := make([]string, 0, len(s.Stats.ByStatus))
		for st := range s.Stats.ByStatus {
			statuses = append(statuses, st)
		}
		sort.Strings(statuses)
		for _, st := range statuses {
			fmt.Printf("    %-15s %d\n", st+":", s.Stats.ByStatus[st])
		}

		if len(s.Subjective) > 0 {
			fmt.Printf("\n  %s\n", headerColor("Subjective dimensions"))
			for _, dim := range scoring.SubjectiveDimensions {
				a, ok := s.Subjective[dim]
				if !ok {
					continue
				}
				stale := ""
				if a.NeedsReviewRefresh {
					stale = warnColor(" (stale)")
				}
				fmt.Printf("    %-20s %s%s\n", dim, formatScore(a.Score), stale)
			}
		}

		if s.Integrity.Status != "" && s.Integrity.Status != "pass" {
			fmt.Printf("\n  Integrity: %s", warnColor(s.Integrity.Status))
			if len(s.Integrity.MatchedDimensions) > 0 {
				fmt.Printf(" (matched: %v)", s.Integrity.MatchedDimensions)
			}
			fmt.Println()
		}

		if n := len(s.ScanHistory); n > 0 {
			fmt.Printf("\n  %s\n", headerColor("Recent scans"))
			start := n - 5
			if start < 0 {
				start = 0
			}
			for _, h := range s.ScanHistory[start:] {
				fmt.Printf("    %s  %s  overall %s  +%d/-%d\n",
					h.Timestamp.Format("2006-01-02 15:04"),
					dimColor(h.ScanID),
					formatScore(h.Overall), h.New, h.Resolved)
			}
		}
		fmt.Println()
		return nil
	},
}
