package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scourdev/scour/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagJSON {
			fmt.Println(version.JSON())
			return nil
		}
		fmt.Println(version.String())
		return nil
	},
}
