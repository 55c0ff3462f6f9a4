package eventlog

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// RefResolver resolves a reference name to a commit OID in the live
// repository. It is the only part of the VCS the replayer needs.
type RefResolver interface {
	ResolveRef(ctx context.Context, refName string) (string, error)
}

// Cursor is an immutable position in the event log: the number of
// events that have been applied. 0 is "before any events"; the event
// count is "present".
type Cursor struct {
	eventID int
}

// EventID returns the cursor position as an event count.
func (c Cursor) EventID() int {
	return c.eventID
}

// HiddenReason explains why a commit is hidden, for provenance display.
type HiddenReason struct {
	// RewrittenAs is set when the commit was hidden by a rewrite.
	RewrittenAs *OID
}

// CommitStatus is the replayed activity state of one commit.
type CommitStatus struct {
	Visible         bool
	CommittedByUser bool
	HiddenReason    *HiddenReason
}

// RepoView is the point-in-time repository state derived by folding an
// event-log prefix. It is never mutated after construction.
type RepoView struct {
	// HeadOID is the commit HEAD pointed at, if HEAD was ever set.
	HeadOID *OID
	// Refs maps reference names to their raw (possibly symbolic)
	// values.
	Refs map[string]string
	// Commits holds the activity state for every commit mentioned in
	// the prefix.
	Commits map[OID]CommitStatus
}

// Replayer folds the event log to derive repository views at arbitrary
// cursors. It holds an immutable snapshot of the log; cursors are value
// types and the replayer itself is never mutated.
type Replayer struct {
	events        []Event
	mainBranchRef string
	// txBoundaries are cursor positions immediately after the last
	// event of each transaction, ascending.
	txBoundaries []int
}

// NewReplayer builds a replayer over the given event sequence.
// mainBranchRef is the fully-qualified main branch ref, e.g.
// "refs/heads/master".
func NewReplayer(events []Event, mainBranchRef string) *Replayer {
	var boundaries []int
	for i := range events {
		if i+1 == len(events) || events[i+1].TransactionID() != events[i].TransactionID() {
			boundaries = append(boundaries, i+1)
		}
	}
	return &Replayer{
		events:        events,
		mainBranchRef: mainBranchRef,
		txBoundaries:  boundaries,
	}
}

// FromStore loads the full event log and builds a replayer over it.
func FromStore(ctx context.Context, store *Store, mainBranchRef string) (*Replayer, error) {
	events, err := store.Events(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading event log: %w", err)
	}
	return NewReplayer(events, mainBranchRef), nil
}

// MakeDefaultCursor returns the cursor denoting the present.
func (r *Replayer) MakeDefaultCursor() Cursor {
	return Cursor{eventID: len(r.events)}
}

// MakeCursor returns a cursor for the given event id, clamped to the
// log bounds. Negative ids index from the end.
func (r *Replayer) MakeCursor(eventID int) Cursor {
	n := len(r.events)
	if eventID < 0 {
		eventID = n + eventID
	}
	if eventID < 0 {
		eventID = 0
	}
	if eventID > n {
		eventID = n
	}
	return Cursor{eventID: eventID}
}

// AdvanceByTransaction moves the cursor by the given number of
// transaction boundaries, clamped to the log bounds.
func (r *Replayer) AdvanceByTransaction(c Cursor, delta int) Cursor {
	pos := c.eventID
	for ; delta > 0; delta-- {
		next := -1
		for _, b := range r.txBoundaries {
			if b > pos {
				next = b
				break
			}
		}
		if next == -1 {
			pos = len(r.events)
			break
		}
		pos = next
	}
	for ; delta < 0; delta++ {
		prev := -1
		for _, b := range r.txBoundaries {
			if b < pos {
				prev = b
			} else {
				break
			}
		}
		if prev == -1 {
			pos = 0
			break
		}
		pos = prev
	}
	return Cursor{eventID: pos}
}

// GetEventsSinceCursor returns the log suffix starting at the cursor.
func (r *Replayer) GetEventsSinceCursor(c Cursor) []Event {
	return r.events[c.eventID:]
}

// GetTxEventsBeforeCursor returns the events of the most recent
// transaction whose last event lies at or before the cursor, along with
// the id of that last event. ok is false when no transaction has
// completed yet.
func (r *Replayer) GetTxEventsBeforeCursor(c Cursor) (lastEventID int, events []Event, ok bool) {
	end := -1
	for _, b := range r.txBoundaries {
		if b <= c.eventID {
			end = b
		} else {
			break
		}
	}
	if end <= 0 {
		return 0, nil, false
	}
	txID := r.events[end-1].TransactionID()
	start := end - 1
	for start > 0 && r.events[start-1].TransactionID() == txID {
		start--
	}
	return end, r.events[start:end], true
}

// GetCursorView folds the events before the cursor into a repository
// view. For identical inputs the result is identical.
func (r *Replayer) GetCursorView(c Cursor) *RepoView {
	view := &RepoView{
		Refs:    make(map[string]string),
		Commits: make(map[OID]CommitStatus),
	}
	setStatus := func(oid OID, update func(*CommitStatus)) {
		status := view.Commits[oid]
		update(&status)
		view.Commits[oid] = status
	}
	for _, event := range r.events[:c.eventID] {
		switch e := event.(type) {
		case CommitEvent:
			setStatus(e.CommitOID, func(s *CommitStatus) {
				s.Visible = true
				s.CommittedByUser = true
				s.HiddenReason = nil
			})

		case HideEvent:
			setStatus(e.CommitOID, func(s *CommitStatus) {
				s.Visible = false
				s.HiddenReason = &HiddenReason{}
			})

		case UnhideEvent:
			setStatus(e.CommitOID, func(s *CommitStatus) {
				s.Visible = true
				s.HiddenReason = nil
			})

		case RewriteEvent:
			newOID := e.NewCommitOID
			setStatus(e.OldCommitOID, func(s *CommitStatus) {
				s.Visible = false
				s.HiddenReason = &HiddenReason{RewrittenAs: &newOID}
			})
			setStatus(e.NewCommitOID, func(s *CommitStatus) {
				s.Visible = true
				s.CommittedByUser = true
				s.HiddenReason = nil
			})

		case RefUpdateEvent:
			if e.NewRef == nil {
				delete(view.Refs, e.RefName)
			} else {
				view.Refs[e.RefName] = *e.NewRef
			}
			if e.RefName == "HEAD" {
				if e.NewRef == nil {
					view.HeadOID = nil
				} else if oid, err := ParseOID(*e.NewRef); err == nil {
					view.HeadOID = &oid
				}
			}
		}
	}
	return view
}

// GetCursorHeadOID returns the OID HEAD pointed at after folding the
// prefix, or nil if HEAD was never set.
func (r *Replayer) GetCursorHeadOID(c Cursor) *OID {
	return r.GetCursorView(c).HeadOID
}

// GetCursorMainBranchOID returns the main branch tip at the cursor,
// following logged ref updates and falling back to the live repository
// when the log never mentions the main branch.
func (r *Replayer) GetCursorMainBranchOID(ctx context.Context, c Cursor, repo RefResolver) (OID, error) {
	view := r.GetCursorView(c)
	if value, ok := view.Refs[r.mainBranchRef]; ok {
		oid, err := r.resolveRefValue(ctx, repo, value)
		if err != nil {
			return "", fmt.Errorf("resolving main branch %q: %w", r.mainBranchRef, err)
		}
		return oid, nil
	}
	value, err := repo.ResolveRef(ctx, r.mainBranchRef)
	if err != nil {
		return "", fmt.Errorf("cannot resolve main branch %q: %w", r.mainBranchRef, err)
	}
	oid, err := ParseOID(value)
	if err != nil {
		return "", fmt.Errorf("cannot resolve main branch %q: %w", r.mainBranchRef, err)
	}
	return oid, nil
}

// GetCursorBranchOIDToNames returns, for each commit with at least one
// branch pointing at it at the cursor, the sorted branch ref names.
// Only refs under refs/heads/ are considered.
func (r *Replayer) GetCursorBranchOIDToNames(ctx context.Context, c Cursor, repo RefResolver) (map[OID][]string, error) {
	view := r.GetCursorView(c)
	result := make(map[OID][]string)
	for name, value := range view.Refs {
		if !strings.HasPrefix(name, "refs/heads/") {
			continue
		}
		oid, err := r.resolveRefValue(ctx, repo, value)
		if err != nil {
			// The branch may point at a commit that no longer exists;
			// skip it rather than failing the whole view.
			continue
		}
		result[oid] = append(result[oid], name)
	}
	for oid := range result {
		sort.Strings(result[oid])
	}
	return result, nil
}

func (r *Replayer) resolveRefValue(ctx context.Context, repo RefResolver, value string) (OID, error) {
	if oid, err := ParseOID(value); err == nil {
		return oid, nil
	}
	resolved, err := repo.ResolveRef(ctx, value)
	if err != nil {
		return "", err
	}
	return ParseOID(resolved)
}
