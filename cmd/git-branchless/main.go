// Command git-branchless provides a branchless workflow for git: every
// repository mutation is recorded into an event log, from which the
// smartlog and undo commands reconstruct the commits you are still
// working on.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/untoldecay/Branchless/internal/config"
	"github.com/untoldecay/Branchless/internal/debug"
	"github.com/untoldecay/Branchless/internal/eventlog"
	"github.com/untoldecay/Branchless/internal/git"
	"github.com/untoldecay/Branchless/internal/mergebase"
	"github.com/untoldecay/Branchless/internal/ui"
)

var (
	rootCtx = context.Background()

	// Set by openEnv for commands that need the repository.
	repo    *git.Repo
	store   *eventlog.Store
	mbCache *mergebase.Cache

	asciiFlag bool
)

var rootCmd = &cobra.Command{
	Use:           "git-branchless",
	Short:         "A branchless workflow for git",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Initialize(); err != nil {
			return err
		}
		ui.ConfigureColor()
		if config.Debug() {
			debug.Enable("")
		}
		return nil
	},
}

// openEnv locates the repository and opens the event database. Callers
// that mutate or read the log go through here so that every command
// shares the same discovery and error text.
func openEnv(ctx context.Context) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting working directory: %w", err)
	}
	repo, err = git.DiscoverRepo(ctx, cwd)
	if err != nil {
		return err
	}
	if config.Debug() {
		debug.Enable(filepath.Join(repo.GitDir, "branchless", "debug.log"))
	}
	store, err = eventlog.OpenStore(ctx, eventlog.DBPath(repo.GitDir))
	if err != nil {
		return err
	}
	mbCache, err = mergebase.NewCache(ctx, store.UnderlyingDB())
	if err != nil {
		return err
	}
	return nil
}

func closeEnv() {
	if store != nil {
		_ = store.Close()
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "branchless: %v\n", err)
	os.Exit(2)
}

func main() {
	rootCmd.PersistentFlags().BoolVar(&asciiFlag, "ascii", false,
		"use ASCII glyphs instead of Unicode in graph output")

	rootCmd.AddCommand(
		initCmd,
		smartlogCmd,
		hideCmd,
		unhideCmd,
		prevCmd,
		nextCmd,
		restackCmd,
		moveCmd,
		undoCmd,
	)
	rootCmd.AddCommand(hookCmds()...)

	if err := rootCmd.Execute(); err != nil {
		fatal(err)
	}
}
