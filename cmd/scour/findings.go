package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/scourdev/scour/pkg/finding"
	"github.com/scourdev/scour/pkg/search"
	"github.com/scourdev/scour/pkg/state"
)

var findingsCmd = &cobra.Command{
	Use:   "findings",
	Short: "List, show, and search findings",
}

var listOpts struct {
	status   string
	detector string
	file     string
	tier     int
}

var findingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List findings with filters",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, s, err := openState()
		if err != nil {
			return err
		}

		var out []*finding.Finding
		for _, f := range s.Findings {
			if listOpts.status != "" && f.Status != listOpts.status {
				continue
			}
			if listOpts.detector != "" && f.Detector != listOpts.detector {
				continue
			}
			if listOpts.file != "" && !strings.HasPrefix(f.File, listOpts.file) {
				continue
			}
			if listOpts.tier != 0 && f.Tier != listOpts.tier {
				continue
			}
			out = append(out, f)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

		if flagJSON {
			return printJSON(out)
		}
		renderFindings(out)
		return nil
	},
}

var findingsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one finding in full",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, s, err := openState()
		if err != nil {
			return err
		}
		f, ok := s.Findings[args[0]]
		if !ok {
			return state.ErrNotFound
		}
		return printJSON(f)
	},
}

var searchOpts struct {
	detector string
	status   string
	file     string
	limit    int
}

var findingsSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search over finding summaries",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := repoRoot()
		if err != nil {
			return err
		}
		st, err := state.NewStore(root)
		if err != nil {
			return err
		}
		s, err := st.Load()
		if err != nil {
			return err
		}

		ix, err := search.Open(st.Path(search.IndexDir))
		if err != nil {
			return err
		}
		defer ix.Close()
		// Keep the index honest before querying; cheap at this scale.
		if err := ix.Sync(s); err != nil {
			return err
		}

		results, err := ix.Search(s, strings.Join(args, " "), search.Options{
			Detector: searchOpts.detector,
			Status:   searchOpts.status,
			File:     searchOpts.file,
			Limit:    searchOpts.limit,
		})
		if err != nil {
			return err
		}

		if flagJSON {
			return printJSON(results)
		}
		if len(results) == 0 {
			fmt.Println(dimColor("No matches."))
			return nil
		}
		var fs []*finding.Finding
		for _, r := range results {
			fs = append(fs, r.Finding)
		}
		renderFindings(fs)
		return nil
	},
}

func renderFindings(fs []*finding.Finding) {
	if len(fs) == 0 {
		fmt.Println(dimColor("No findings."))
		return
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("ID", "Tier", "Status", "Summary")
	for _, f := range fs {
		status := f.Status
		switch f.Status {
		case finding.StatusOpen:
			status = badColor(status)
		case finding.StatusFixed, finding.StatusAutoResolved:
			status = goodColor(status)
		default:
			status = warnColor(status)
		}
		table.Append([]string{
			truncate(f.ID, 60),
			fmt.Sprintf("T%d", f.Tier),
			status,
			truncate(f.Summary, 60),
		})
	}
	table.Render()
	fmt.Printf("\n%d finding(s)\n", len(fs))
}

func init() {
	f := findingsListCmd.Flags()
	f.StringVar(&listOpts.status, "status", "", "filter by status")
	f.StringVar(&listOpts.detector, "detector", "", "filter by detector")
	f.StringVar(&listOpts.file, "file", "", "filter by path prefix")
	f.IntVar(&listOpts.tier, "tier", 0, "filter by tier")

	sf := findingsSearchCmd.Flags()
	sf.StringVar(&searchOpts.detector, "detector", "", "exact detector filter")
	sf.StringVar(&searchOpts.status, "status", "", "exact status filter")
	sf.StringVar(&searchOpts.file, "file", "", "exact file filter")
	sf.IntVar(&searchOpts.limit, "limit", search.DefaultLimit, "max results")

	findingsCmd.AddCommand(findingsListCmd, findingsShowCmd, findingsSearchCmd)
}
