package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/scourdev/scour/pkg/plan"
	"github.com/scourdev/scour/pkg/state"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Inspect and edit the living plan",
}

// withPlan loads state+plan, runs fn, and saves the plan if fn succeeds.
func withPlan(fn func(st *state.Store, s *state.State, p *plan.Plan) error) error {
	st, s, err := openState()
	if err != nil {
		return err
	}
	p, err := openPlan(st)
	if err != nil {
		return err
	}
	if err := fn(st, s, p); err != nil {
		return err
	}
	return plan.Save(st, p)
}

var planShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current plan",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, _, err := openState()
		if err != nil {
			return err
		}
		p, err := openPlan(st)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(p)
		}

		fmt.Printf("\n%s\n\n", headerColor("=== plan ==="))
		if p.ActiveCluster != "" {
			fmt.Printf("  Focus: %s\n\n", warnColor(p.ActiveCluster))
		}

		if len(p.QueueOrder) > 0 {
			fmt.Printf("  %s\n", headerColor("Pinned order"))
			for i, id := range p.QueueOrder {
				fmt.Printf("    %2d. %s\n", i+1, id)
			}
			fmt.Println()
		}

		names := make([]string, 0, len(p.Clusters))
		for name := range p.Clusters {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			c := p.Clusters[name]
			kind := dimColor("auto")
			if c.UserModified {
				kind = goodColor("user")
			}
			fmt.Printf("  %s [%s] %d members", name, kind, len(c.FindingIDs))
			if c.Description != "" {
				fmt.Printf("  %s", dimColor(c.Description))
			}
			fmt.Println()
		}

		if len(p.Skipped) > 0 {
			fmt.Printf("\n  %s\n", headerColor("Skipped"))
			ids := make([]string, 0, len(p.Skipped))
			for id := range p.Skipped {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			for _, id := range ids {
				sk := p.Skipped[id]
				note := sk.Reason
				if sk.Resurfaced {
					note = warnColor("resurfaced") + " " + note
				}
				fmt.Printf("    %s (%s) %s\n", id, sk.Kind, note)
			}
		}

		if len(p.Superseded) > 0 {
			fmt.Printf("\n  %s\n", headerColor("Superseded"))
			ids := make([]string, 0, len(p.Superseded))
			for id := range p.Superseded {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			for _, id := range ids {
				sup := p.Superseded[id]
				fmt.Printf("    %s", id)
				if len(sup.Candidates) > 0 {
					fmt.Printf("  %s %v", dimColor("remap candidates:"), sup.Candidates)
				}
				fmt.Println()
			}
		}
		fmt.Println()
		return nil
	},
}

var (
	skipPermanent   bool
	skipReason      string
	skipReviewAfter int
)

var planSkipCmd = &cobra.Command{
	Use:   "skip <id>...",
	Short: "Skip items in the queue",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := plan.SkipTemporary
		if skipPermanent {
			kind = plan.SkipPermanent
		}
		return withPlan(func(st *state.Store, s *state.State, p *plan.Plan) error {
			return p.SkipItems(args, kind, skipReason, skipReviewAfter)
		})
	},
}

var planUnskipCmd = &cobra.Command{
	Use:   "unskip <id>...",
	Short: "Remove skips",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPlan(func(st *state.Store, s *state.State, p *plan.Plan) error {
			p.UnskipItems(args)
			return nil
		})
	},
}

var planFrontCmd = &cobra.Command{
	Use:   "front <id>...",
	Short: "Pin items to the head of the queue",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPlan(func(st *state.Store, s *state.State, p *plan.Plan) error {
			p.MoveToFront(args)
			return nil
		})
	},
}

var clusterDescription string

var planClusterCmd = &cobra.Command{
	Use:   "cluster <name> <id>...",
	Short: "Create a cluster from findings",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPlan(func(st *state.Store, s *state.State, p *plan.Plan) error {
			return p.CreateCluster(args[0], clusterDescription, args[1:])
		})
	},
}

var planClusterAddCmd = &cobra.Command{
	Use:   "cluster-add <name> <id>...",
	Short: "Add findings to a cluster",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPlan(func(st *state.Store, s *state.State, p *plan.Plan) error {
			return p.AddToCluster(args[0], args[1:])
		})
	},
}

var planClusterRemoveCmd = &cobra.Command{
	Use:   "cluster-remove <name> <id>...",
	Short: "Remove findings from a cluster",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPlan(func(st *state.Store, s *state.State, p *plan.Plan) error {
			return p.RemoveFromCluster(args[0], args[1:])
		})
	},
}

var planClusterDeleteCmd = &cobra.Command{
	Use:   "cluster-delete <name>",
	Short: "Delete a cluster",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPlan(func(st *state.Store, s *state.State, p *plan.Plan) error {
			return p.DeleteCluster(args[0])
		})
	},
}

var planFocusCmd = &cobra.Command{
	Use:   "focus [name]",
	Short: "Restrict the queue to one cluster (no argument clears focus)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := ""
		if len(args) == 1 {
			name = args[0]
		}
		return withPlan(func(st *state.Store, s *state.State, p *plan.Plan) error {
			return p.SetFocus(name)
		})
	},
}

var planRemapCmd = &cobra.Command{
	Use:   "remap <old-id> <new-id>",
	Short: "Apply a proposed remap of a superseded item",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPlan(func(st *state.Store, s *state.State, p *plan.Plan) error {
			return p.ApplyRemap(args[0], args[1])
		})
	},
}

var (
	annotateDescription string
	annotateNote        string
)

var planAnnotateCmd = &cobra.Command{
	Use:   "annotate <id>",
	Short: "Attach a description or note to an item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPlan(func(st *state.Store, s *state.State, p *plan.Plan) error {
			p.Annotate(args[0], annotateDescription, annotateNote)
			return nil
		})
	},
}

func init() {
	planSkipCmd.Flags().BoolVar(&skipPermanent, "permanent", false, "permanent skip (never resurfaces)")
	planSkipCmd.Flags().StringVar(&skipReason, "reason", "", "why this is being skipped")
	planSkipCmd.Flags().IntVar(&skipReviewAfter, "review-after", 0, "resurface after this many scans")
	planClusterCmd.Flags().StringVar(&clusterDescription, "description", "", "cluster description")
	planAnnotateCmd.Flags().StringVar(&annotateDescription, "description", "", "item description")
	planAnnotateCmd.Flags().StringVar(&annotateNote, "note", "", "item note")

	planCmd.AddCommand(
		planShowCmd,
		planSkipCmd,
		planUnskipCmd,
		planFrontCmd,
		planClusterCmd,
		planClusterAddCmd,
		planClusterRemoveCmd,
		planClusterDeleteCmd,
		planFocusCmd,
		planRemapCmd,
		planAnnotateCmd,
	)
}
