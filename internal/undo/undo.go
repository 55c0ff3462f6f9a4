package undo

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/untoldecay/Branchless/internal/eventlog"
	"github.com/untoldecay/Branchless/internal/git"
)

// InverseEvent computes the event that undoes the given one. The
// inverse carries the new timestamp and transaction id; a ref-update's
// message does not survive inversion.
func InverseEvent(event eventlog.Event, now time.Time, txID eventlog.TransactionID) eventlog.Event {
	timestamp := float64(now.UnixNano()) / 1e9
	switch e := event.(type) {
	case eventlog.CommitEvent:
		return eventlog.HideEvent{Time: timestamp, TxID: txID, CommitOID: e.CommitOID}
	case eventlog.UnhideEvent:
		return eventlog.HideEvent{Time: timestamp, TxID: txID, CommitOID: e.CommitOID}
	case eventlog.HideEvent:
		return eventlog.UnhideEvent{Time: timestamp, TxID: txID, CommitOID: e.CommitOID}
	case eventlog.RewriteEvent:
		return eventlog.RewriteEvent{
			Time:         timestamp,
			TxID:         txID,
			OldCommitOID: e.NewCommitOID,
			NewCommitOID: e.OldCommitOID,
		}
	case eventlog.RefUpdateEvent:
		return eventlog.RefUpdateEvent{
			Time:    timestamp,
			TxID:    txID,
			RefName: e.RefName,
			OldRef:  e.NewRef,
			NewRef:  e.OldRef,
			Message: nil,
		}
	default:
		panic(fmt.Sprintf("unhandled event type %T", event))
	}
}

// OptimizeInverseEvents collapses a chain of HEAD moves into the single
// net checkout: only the most recent HEAD update survives.
func OptimizeInverseEvents(events []eventlog.Event) []eventlog.Event {
	var optimized []eventlog.Event
	seenCheckout := false
	for i := len(events) - 1; i >= 0; i-- {
		event := events[i]
		if eventlog.IsCheckout(event) {
			if seenCheckout {
				continue
			}
			seenCheckout = true
		}
		optimized = append(optimized, event)
	}
	// Reverse back into log order.
	for i, j := 0, len(optimized)-1; i < j; i, j = i+1, j-1 {
		optimized[i], optimized[j] = optimized[j], optimized[i]
	}
	return optimized
}

// SortForApplication stably moves HEAD updates to the front. Otherwise
// updating the target of a symbolic HEAD before checking out would
// leave the working copy dirty.
func SortForApplication(events []eventlog.Event) []eventlog.Event {
	sorted := make([]eventlog.Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return eventlog.IsCheckout(sorted[i]) && !eventlog.IsCheckout(sorted[j])
	})
	return sorted
}

// ComputeInverseEvents derives the inverse-event sequence that rewinds
// the repository from the present back to the cursor.
func ComputeInverseEvents(
	replayer *eventlog.Replayer,
	cursor eventlog.Cursor,
	now time.Time,
	txID eventlog.TransactionID,
) []eventlog.Event {
	since := replayer.GetEventsSinceCursor(cursor)
	var inverse []eventlog.Event
	for i := len(since) - 1; i >= 0; i-- {
		event := since[i]
		// A "create HEAD" event's inverse would delete HEAD, which is
		// meaningless.
		if refUpdate, ok := event.(eventlog.RefUpdateEvent); ok &&
			refUpdate.RefName == "HEAD" && refUpdate.OldRef == nil {
			continue
		}
		inverse = append(inverse, InverseEvent(event, now, txID))
	}
	inverse = OptimizeInverseEvents(inverse)
	return SortForApplication(inverse)
}

// ApplyEvents runs the confirmation prompt and applies the inverse
// events to the repository and the event log. Returns the process exit
// code: 0 on success or empty set, 1 on user abort.
func ApplyEvents(
	ctx context.Context,
	in io.Reader,
	out io.Writer,
	repo *git.Repo,
	store *eventlog.Store,
	inverseEvents []eventlog.Event,
) (int, error) {
	if len(inverseEvents) == 0 {
		fmt.Fprintln(out, "No undo actions to apply, exiting.")
		return 0, nil
	}

	fmt.Fprintln(out, "Will apply these actions:")
	for _, line := range DescribeEventsNumbered(ctx, repo, inverseEvents) {
		fmt.Fprintln(out, line)
	}

	if !confirm(in, out) {
		fmt.Fprintln(out, "Aborted.")
		return 1, nil
	}

	// Ref mutations from concurrent undo invocations must not
	// interleave; git's own lock files only cover individual refs.
	lock := flock.New(filepath.Join(repo.GitDir, "branchless", "undo.lock"))
	if err := lock.Lock(); err != nil {
		return 0, fmt.Errorf("acquiring undo lock: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	for _, event := range inverseEvents {
		switch e := event.(type) {
		case eventlog.RefUpdateEvent:
			switch {
			case e.RefName == "HEAD" && e.NewRef != nil:
				// An actual checkout rather than a bare HEAD update,
				// so the working copy follows. The git command invokes
				// our hooks and logs the move as part of the undo.
				if err := repo.Run(ctx, "checkout", "--detach", *e.NewRef); err != nil {
					return 0, fmt.Errorf("updating to previous HEAD location: %w", err)
				}

			case e.OldRef == nil && e.NewRef == nil:
				// Benign degenerate event; nothing to do.

			case e.NewRef == nil:
				if !repo.RefExists(ctx, e.RefName) {
					fmt.Fprintf(out, "Reference %s did not exist, not deleting it.\n", e.RefName)
					continue
				}
				if err := repo.DeleteRef(ctx, e.RefName); err != nil {
					return 0, fmt.Errorf("deleting reference %q: %w", e.RefName, err)
				}

			default:
				if err := repo.UpdateRef(ctx, e.RefName, *e.NewRef, "branchless undo"); err != nil {
					return 0, err
				}
			}

		default:
			if err := store.AddEvents(ctx, []eventlog.Event{event}); err != nil {
				return 0, err
			}
		}
	}

	fmt.Fprintf(out, "Applied %s.\n", pluralize(len(inverseEvents), "inverse event", "inverse events"))
	return 0, nil
}

// confirm accepts only an exact "y" or "Y" (after trimming).
func confirm(in io.Reader, out io.Writer) bool {
	fmt.Fprint(out, "Confirm? [yN] ")
	reader := bufio.NewReader(in)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	trimmed := strings.TrimSpace(line)
	return trimmed == "y" || trimmed == "Y"
}

func pluralize(amount int, singular, plural string) string {
	if amount == 1 {
		return fmt.Sprintf("%d %s", amount, singular)
	}
	return fmt.Sprintf("%d %s", amount, plural)
}

// Run drives the whole undo flow: select a past cursor interactively,
// compute the inverse events, and apply them with confirmation.
func Run(
	ctx context.Context,
	in io.Reader,
	out io.Writer,
	repo *git.Repo,
	store *eventlog.Store,
	selector *Selector,
) (int, error) {
	cursor, accepted, err := selector.Select()
	if err != nil {
		return 0, err
	}
	if !accepted {
		return 0, nil
	}

	now := time.Now()
	txID, err := store.MakeTransactionID(ctx, now, "undo")
	if err != nil {
		return 0, err
	}
	inverseEvents := ComputeInverseEvents(selector.Replayer, cursor, now, txID)
	return ApplyEvents(ctx, in, out, repo, store, inverseEvents)
}
