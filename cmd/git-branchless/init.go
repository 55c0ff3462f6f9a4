package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/untoldecay/Branchless/internal/config"
	"github.com/untoldecay/Branchless/internal/git"
	"github.com/untoldecay/Branchless/internal/hooks"
	"github.com/untoldecay/Branchless/internal/ui"
)

var aliases = [][2]string{
	{"smartlog", "smartlog"},
	{"sl", "smartlog"},
	{"hide", "hide"},
	{"unhide", "unhide"},
	{"prev", "prev"},
	{"next", "next"},
	{"restack", "restack"},
	{"undo", "undo"},
	{"move", "move"},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Install hooks, aliases, and configuration in the current repository",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := rootCtx
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getting working directory: %w", err)
		}
		repo, err := git.DiscoverRepo(ctx, cwd)
		if err != nil {
			return err
		}

		if err := hooks.InstallAll(ctx, repo); err != nil {
			return err
		}

		fmt.Println("Setting config (non-global): advice.detachedHead = false")
		if err := repo.SetConfig(ctx, "advice.detachedHead", "false"); err != nil {
			return err
		}

		for _, alias := range aliases {
			fmt.Printf("Installing alias (non-global): git %s -> git branchless %s\n",
				alias[0], alias[1])
			if err := repo.SetConfig(ctx, "alias."+alias[0], "branchless "+alias[1]); err != nil {
				return err
			}
		}

		mainBranch := detectMainBranch(ctx, repo)
		configPath := filepath.Join(repo.GitDir, "branchless", "config.yaml")
		if err := config.WriteDefault(configPath, mainBranch); err != nil {
			return err
		}

		version, err := git.Version(ctx)
		if err != nil {
			return err
		}
		if !git.SupportsUndo(version) {
			fmt.Print(versionWarning(version))
		}
		return nil
	},
}

func detectMainBranch(ctx context.Context, repo *git.Repo) string {
	if repo.RefExists(ctx, "refs/heads/master") {
		return "master"
	}
	if repo.RefExists(ctx, "refs/heads/main") {
		return "main"
	}
	return "master"
}

func versionWarning(version string) string {
	return fmt.Sprintf(`%s: the branchless workflow's `+"`git undo`"+` command requires Git
v2.29 or later, but your Git version is: %s

Some operations, such as branch updates, won't be correctly undone. Other
operations may be undoable. Attempt at your own risk.

Once you upgrade to Git v2.29, run `+"`git branchless init`"+` again. Any work you
do from then on will be correctly undoable.

This only applies to the `+"`git undo`"+` command. Other commands which are part of
the branchless workflow will work properly.
`, ui.WarningStyle.Render("Warning"), version)
}
