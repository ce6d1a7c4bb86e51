package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scourdev/scour/pkg/concern"
)

var concernsCmd = &cobra.Command{
	Use:   "concerns",
	Short: "Synthesized design concerns for reviewer attention",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, s, err := openState()
		if err != nil {
			return err
		}
		concerns := concern.Generate(s)
		if flagJSON {
			return printJSON(concerns)
		}
		if len(concerns) == 0 {
			fmt.Println(dimColor("No concerns."))
			return nil
		}
		for _, c := range concerns {
			fmt.Printf("\n%s %s\n", headerColor(c.Type), dimColor(c.Fingerprint))
			if c.File != "" {
				fmt.Printf("  File: %s\n", c.File)
			}
			fmt.Printf("  %s\n", c.Summary)
			for _, ev := range c.Evidence {
				fmt.Printf("    - %s\n", ev)
			}
			if c.Question != "" {
				fmt.Printf("  %s %s\n", warnColor("?"), c.Question)
			}
		}
		fmt.Println()
		return nil
	},
}

var dismissReason string

var concernsDismissCmd = &cobra.Command{
	Use:   "dismiss <fingerprint>",
	Short: "Dismiss a concern until its source findings change",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, s, err := openState()
		if err != nil {
			return err
		}
		for _, c := range concern.Generate(s) {
			if c.Fingerprint == args[0] {
				concern.Dismiss(s, c, dismissReason)
				return st.Save(s)
			}
		}
		return fmt.Errorf("no concern with fingerprint %s", args[0])
	},
}

func init() {
	concernsDismissCmd.Flags().StringVar(&dismissReason, "reason", "", "why the concern is dismissed")
	concernsCmd.AddCommand(concernsDismissCmd)
}
