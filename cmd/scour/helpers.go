package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/scourdev/scour/pkg/plan"
	"github.com/scourdev/scour/pkg/state"
)

var (
	headerColor = color.New(color.FgCyan, color.Bold).SprintFunc()
	goodColor   = color.New(color.FgGreen).SprintFunc()
	warnColor   = color.New(color.FgYellow).SprintFunc()
	badColor    = color.New(color.FgRed).SprintFunc()
	dimColor    = color.New(color.FgHiBlack).SprintFunc()
)

// openState loads store + state for read-mostly commands.
func openState() (*state.Store, *state.State, error) {
	root, err := repoRoot()
	if err != nil {
		return nil, nil, err
	}
	st, err := state.NewStore(root)
	if err != nil {
		return nil, nil, err
	}
	s, err := st.Load()
	if err != nil {
		return nil, nil, err
	}
	return st, s, nil
}

// openPlan loads the living plan alongside state.
func openPlan(st *state.Store) (*plan.Plan, error) {
	return plan.Load(st)
}

// printJSON renders v as indented JSON on stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// scoreColor picks a display color for a 0-100 score.
func scoreColor(score float64) func(a ...interface{}) string {
	switch {
	case score >= 90:
		return goodColor
	case score >= 70:
		return warnColor
	default:
		return badColor
	}
}

func formatScore(score float64) string {
	return scoreColor(score)(fmt.Sprintf("%.1f", score))
}

// truncate shortens s for table cells.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
