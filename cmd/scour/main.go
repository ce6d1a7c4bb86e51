// Package main provides the scour CLI.
package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/scourdev/scour/internal/version"
)

var (
	flagRepo string
	flagJSON bool
)

var rootCmd = &cobra.Command{
	Use:           "scour",
	Short:         "Codebase quality analyzer",
	Long:          "scour scans a repository for mechanical quality findings, blends them\nwith imported subjective review, and maintains a ranked work queue.",
	SilenceUsage:  true,
	SilenceErrors: true,
	Version:       version.Short(),
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&flagRepo, "repo", "C", "", "repository root (default: git root or cwd)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "machine-readable JSON output")

	rootCmd.AddCommand(
		scanCmd,
		nextCmd,
		statusCmd,
		planCmd,
		resolveCmd,
		findingsCmd,
		reviewCmd,
		concernsCmd,
		watchCmd,
		versionCmd,
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "scour: %v\n", err)
		os.Exit(1)
	}
}

// repoRoot resolves the repository under analysis: --repo, else the
// enclosing git root, else the working directory.
func repoRoot() (string, error) {
	if flagRepo != "" {
		return filepath.Abs(flagRepo)
	}
	if out, err := exec.Command("git", "rev-parse", "--show-toplevel").Output(); err == nil {
		if root := strings.TrimSpace(string(out)); root != "" {
			return root, nil
		}
	}
	return os.Getwd()
}
