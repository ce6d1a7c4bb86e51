package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/scourdev/scour/pkg/lang"
	"github.com/scourdev/scour/pkg/scan"
	"github.com/scourdev/scour/pkg/watch"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rescan automatically when files change",
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := repoRoot()
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		runScan := func() {
			report, err := scan.Run(ctx, scan.Options{RepoRoot: root})
			if err != nil {
				if ctx.Err() == nil {
					fmt.Fprintf(os.Stderr, "scour: scan failed: %v\n", err)
				}
				return
			}
			fmt.Printf("[%s] overall %s (%+.2f), %d new, %d resolved\n",
				time.Now().Format("15:04:05"),
				formatScore(report.Scores.Overall), report.Diff.ScoreDelta,
				len(report.Diff.New), len(report.Diff.Resolved))
		}

		w, err := watch.New(watch.Config{
			Root:     root,
			Debounce: watchDebounce,
			// Only source files a language plugin owns trigger a rescan.
			FileFilter: func(path string) bool {
				_, ok := lang.ForFile(path)
				return ok
			},
		}, func(changed map[string]fsnotify.Op) {
			runScan()
		})
		if err != nil {
			return err
		}
		if err := w.Start(); err != nil {
			return err
		}
		defer w.Stop()

		runScan() // initial pass before waiting for changes

		<-ctx.Done()
		fmt.Println("\nstopping watch")
		return nil
	},
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce, "wait after the last change before rescanning")
}
