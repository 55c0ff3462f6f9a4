package main

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/untoldecay/Branchless/internal/config"
	"github.com/untoldecay/Branchless/internal/eventlog"
)

// hookCmds returns the hidden subcommands invoked by the installed git
// hooks. Each hook that records events opens one event transaction
// named after the hook and appends the corresponding events;
// pre-auto-gc records no events and opens no transaction.
func hookCmds() []*cobra.Command {
	postCommit := &cobra.Command{
		Use:    "hook-post-commit",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := rootCtx
			if err := openEnv(ctx); err != nil {
				return err
			}
			defer closeEnv()
			head, err := repo.HeadOID(ctx)
			if err != nil || head == "" {
				return err
			}
			oid, err := eventlog.ParseOID(head)
			if err != nil {
				return err
			}
			now := time.Now()
			txID, err := store.MakeTransactionID(ctx, now, "post-commit")
			if err != nil {
				return err
			}
			fmt.Println("branchless: processing commit")
			return store.AddEvents(ctx, []eventlog.Event{eventlog.CommitEvent{
				Time:      float64(now.UnixNano()) / 1e9,
				TxID:      txID,
				CommitOID: oid,
			}})
		},
	}

	postRewrite := &cobra.Command{
		Use:    "hook-post-rewrite <command>",
		Hidden: true,
		Args:   cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := rootCtx
			if err := openEnv(ctx); err != nil {
				return err
			}
			defer closeEnv()
			now := time.Now()
			txID, err := store.MakeTransactionID(ctx, now, "post-rewrite")
			if err != nil {
				return err
			}
			timestamp := float64(now.UnixNano()) / 1e9

			var events []eventlog.Event
			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				fields := strings.Fields(scanner.Text())
				if len(fields) < 2 {
					continue
				}
				oldOID, err := eventlog.ParseOID(fields[0])
				if err != nil {
					return err
				}
				newOID, err := eventlog.ParseOID(fields[1])
				if err != nil {
					return err
				}
				events = append(events, eventlog.RewriteEvent{
					Time:         timestamp,
					TxID:         txID,
					OldCommitOID: oldOID,
					NewCommitOID: newOID,
				})
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("reading rewritten commits: %w", err)
			}
			if len(events) > 0 {
				fmt.Printf("branchless: processing %s\n",
					pluralizeCount(len(events), "rewritten commit", "rewritten commits"))
			}
			return store.AddEvents(ctx, events)
		},
	}

	postCheckout := &cobra.Command{
		Use:    "hook-post-checkout <old> <new> <is-branch>",
		Hidden: true,
		Args:   cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := rootCtx
			if err := openEnv(ctx); err != nil {
				return err
			}
			defer closeEnv()
			// The third argument is 0 for file checkouts, which do not
			// move HEAD.
			if args[2] == "0" {
				return nil
			}
			fmt.Println("branchless: processing checkout")
			now := time.Now()
			txID, err := store.MakeTransactionID(ctx, now, "post-checkout")
			if err != nil {
				return err
			}
			message := "checkout"
			return store.AddEvents(ctx, []eventlog.Event{eventlog.RefUpdateEvent{
				Time:    float64(now.UnixNano()) / 1e9,
				TxID:    txID,
				RefName: "HEAD",
				OldRef:  eventlog.StringRef(args[0]),
				NewRef:  eventlog.StringRef(args[1]),
				Message: &message,
			}})
		},
	}

	referenceTransaction := &cobra.Command{
		Use:    "hook-reference-transaction <state>",
		Hidden: true,
		Args:   cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Only committed transactions are durable facts.
			if args[0] != "committed" {
				return nil
			}
			ctx := rootCtx
			if err := openEnv(ctx); err != nil {
				return err
			}
			defer closeEnv()
			now := time.Now()
			timestamp := float64(now.UnixNano()) / 1e9

			var events []eventlog.Event
			var refNames []string
			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				fields := strings.Fields(scanner.Text())
				if len(fields) != 3 {
					continue
				}
				oldValue, newValue, refName := fields[0], fields[1], fields[2]
				// HEAD moves are recorded by the post-checkout hook,
				// which sees the actual old and new positions.
				if refName == "HEAD" {
					continue
				}
				events = append(events, eventlog.RefUpdateEvent{
					Time:    timestamp,
					RefName: refName,
					OldRef:  eventlog.StringRef(oldValue),
					NewRef:  eventlog.StringRef(newValue),
				})
				refNames = append(refNames, refName)
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("reading reference updates: %w", err)
			}
			if len(events) == 0 {
				return nil
			}

			txID, err := store.MakeTransactionID(ctx, now, "reference-transaction")
			if err != nil {
				return err
			}
			for i := range events {
				refUpdate := events[i].(eventlog.RefUpdateEvent)
				refUpdate.TxID = txID
				events[i] = refUpdate
			}
			sort.Strings(refNames)
			fmt.Printf("branchless: processing %s: %s\n",
				pluralizeCount(len(events), "update", "updates"),
				strings.Join(refNames, ", "))
			return store.AddEvents(ctx, events)
		},
	}

	preAutoGC := &cobra.Command{
		Use:    "hook-pre-auto-gc",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := rootCtx
			if err := openEnv(ctx); err != nil {
				return err
			}
			defer closeEnv()
			replayer, err := eventlog.FromStore(ctx, store, config.MainBranchRef())
			if err != nil {
				return err
			}
			view := replayer.GetCursorView(replayer.MakeDefaultCursor())

			// Anchor every visible commit with a ref so git's GC
			// cannot collect the working set.
			oids := make([]string, 0, len(view.Commits))
			for oid, status := range view.Commits {
				if status.Visible {
					oids = append(oids, string(oid))
				}
			}
			sort.Strings(oids)
			for _, oid := range oids {
				if err := repo.UpdateRef(ctx, "refs/branchless/"+oid, oid, "branchless: prevent GC"); err != nil {
					// The commit may already be gone; that's fine.
					continue
				}
			}
			fmt.Println("branchless: collecting garbage")
			return nil
		},
	}

	return []*cobra.Command{postCommit, postRewrite, postCheckout, referenceTransaction, preAutoGC}
}

func pluralizeCount(amount int, singular, plural string) string {
	if amount == 1 {
		return fmt.Sprintf("%d %s", amount, singular)
	}
	return fmt.Sprintf("%d %s", amount, plural)
}
