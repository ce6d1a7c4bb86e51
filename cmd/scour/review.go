package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/scourdev/scour/pkg/concern"
	"github.com/scourdev/scour/pkg/review"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Prepare review packets and import review results",
}

var prepareMaxFiles int

var reviewPrepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Emit a score-free review packet on stdout",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, s, err := openState()
		if err != nil {
			return err
		}
		packet := review.Prepare(s, concern.Generate(s), prepareMaxFiles)
		return printJSON(packet)
	},
}

var importOpts struct {
	trust string
	file  string
}

var reviewImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a review result JSON (stdin or --file)",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, s, err := openState()
		if err != nil {
			return err
		}

		var raw []byte
		if importOpts.file != "" {
			raw, err = os.ReadFile(importOpts.file)
		} else {
			raw, err = io.ReadAll(os.Stdin)
		}
		if err != nil {
			return err
		}

		var result review.Result
		if err := json.Unmarshal(raw, &result); err != nil {
			return fmt.Errorf("parse review result: %w", err)
		}

		summary, err := review.Import(s, &result, importOpts.trust, concern.Generate(s), time.Now().UTC())
		if err != nil {
			return err
		}
		if err := st.Save(s); err != nil {
			return err
		}

		if flagJSON {
			return printJSON(summary)
		}
		fmt.Printf("Applied %d dimension(s), discarded %d, %d new holistic finding(s)\n",
			len(summary.Applied), len(summary.Discarded), len(summary.NewHolistic))
		for _, w := range summary.Warnings {
			fmt.Printf("  %s %s: %s\n", warnColor("!"), w.Code, w.Message)
		}
		return nil
	},
}

func init() {
	reviewPrepareCmd.Flags().IntVar(&prepareMaxFiles, "max-files", 0, "cap the packet's file list (0 = all)")
	reviewImportCmd.Flags().StringVar(&importOpts.trust, "trust", review.TrustedInternal,
		"trust level: trusted_internal, attested_external, manual_override, findings_only")
	reviewImportCmd.Flags().StringVar(&importOpts.file, "file", "", "read the result from a file instead of stdin")

	reviewCmd.AddCommand(reviewPrepareCmd, reviewImportCmd)
}
