package main

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/scourdev/scour/pkg/queue"
)

var nextOpts struct {
	tier       int
	count      int
	scope      string
	status     string
	subjective bool
	threshold  float64
	chronic    bool
	noFallback bool
	collapse   bool
	skipped    bool
	cluster    string
}

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Show the ranked work queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, s, err := openState()
		if err != nil {
			return err
		}
		p, err := openPlan(st)
		if err != nil {
			return err
		}

		res, err := queue.Build(s, p, queue.Options{
			Tier:                nextOpts.tier,
			Count:               nextOpts.count,
			Scope:               nextOpts.scope,
			Status:              nextOpts.status,
			IncludeSubjective:   nextOpts.subjective,
			SubjectiveThreshold: nextOpts.threshold,
			Chronic:             nextOpts.chronic,
			NoTierFallback:      nextOpts.noFallback,
			CollapseClusters:    nextOpts.collapse,
			IncludeSkipped:      nextOpts.skipped,
			Cluster:             nextOpts.cluster,
		})
		if err != nil {
			return err
		}

		if flagJSON {
			return printJSON(res)
		}

		if res.FallbackReason != "" {
			fmt.Println(warnColor(res.FallbackReason))
		}
		if len(res.Items) == 0 {
			fmt.Println(dimColor("Queue is empty. Nothing to do."))
			return nil
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.Header("#", "Tier", "Kind", "File", "Summary")
		for i, it := range res.Items {
			tier := fmt.Sprintf("T%d", it.EffectiveTier)
			if it.Kind == queue.KindCluster {
				tier = "-"
			}
			summary := it.Summary
			if it.PlanSkipped {
				summary = "[skipped] " + summary
			}
			if it.Kind == queue.KindCluster {
				summary = fmt.Sprintf("%s (%d members)", summary, len(it.MemberIDs))
			}
			table.Append([]string{
				fmt.Sprintf("%d", i+1),
				tier,
				it.Kind,
				truncate(it.File, 40),
				truncate(summary, 70),
			})
		}
		table.Render()

		fmt.Printf("\n%d of %d items", len(res.Items), res.Total)
		if res.SelectedTier > 0 {
			fmt.Printf(" (tier %d)", res.SelectedTier)
		}
		fmt.Println()
		return nil
	},
}

func init() {
	f := nextCmd.Flags()
	f.IntVar(&nextOpts.tier, "tier", 0, "restrict to one tier (1-4)")
	f.IntVarP(&nextOpts.count, "count", "n", 10, "max items (0 = all)")
	f.StringVar(&nextOpts.scope, "scope", "", "path prefix filter")
	f.StringVar(&nextOpts.status, "status", "", "status filter (default open)")
	f.BoolVar(&nextOpts.subjective, "subjective", false, "include weak subjective dimensions")
	f.Float64Var(&nextOpts.threshold, "subjective-threshold", 70, "dimension score below which it queues")
	f.BoolVar(&nextOpts.chronic, "chronic", false, "only repeatedly reopened findings")
	f.BoolVar(&nextOpts.noFallback, "no-tier-fallback", false, "empty tier returns empty instead of falling back")
	f.BoolVar(&nextOpts.collapse, "collapse-clusters", false, "fold cluster members into one item")
	f.BoolVar(&nextOpts.skipped, "include-skipped", false, "show plan-skipped items at the end")
	f.StringVar(&nextOpts.cluster, "cluster", "", "restrict to one cluster")
}
