package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/scourdev/scour/pkg/finding"
	"github.com/scourdev/scour/pkg/state"
)

var resolveOpts struct {
	status string
	by     string
	reason string
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <id>...",
	Short: "Mark findings fixed, wontfix, or false_positive",
	Long:  "Transitions findings out of the open set. wontfix and false_positive\nrequire --by and --reason; the attestation is stored with the finding.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, s, err := openState()
		if err != nil {
			return err
		}

		var att *finding.Attestation
		if resolveOpts.by != "" || resolveOpts.reason != "" {
			att = &finding.Attestation{
				By:     resolveOpts.by,
				Reason: resolveOpts.reason,
				At:     time.Now().UTC(),
			}
		}

		now := time.Now().UTC()
		for _, id := range args {
			if err := state.Resolve(s, id, resolveOpts.status, att, now); err != nil {
				return fmt.Errorf("%s: %w", id, err)
			}
		}
		if err := st.Save(s); err != nil {
			return err
		}
		fmt.Printf("%d finding(s) -> %s\n", len(args), resolveOpts.status)
		return nil
	},
}

func init() {
	resolveCmd.Flags().StringVar(&resolveOpts.status, "status", finding.StatusFixed, "target status (fixed, wontfix, false_positive)")
	resolveCmd.Flags().StringVar(&resolveOpts.by, "by", "", "who is attesting (required for wontfix/false_positive)")
	resolveCmd.Flags().StringVar(&resolveOpts.reason, "reason", "", "attestation reason")
}
