// Package eventlog records every repository-mutating operation into an
// append-only log and replays that log to reconstruct the repository
// state at any point in time.
package eventlog

import (
	"fmt"
	"strings"
)

// OID is a 40-character lowercase hex commit identifier.
type OID string

// ZeroOID is the all-zeroes OID git uses for "no object" sides of a
// reference update.
const ZeroOID OID = "0000000000000000000000000000000000000000"

// ParseOID validates and returns a commit OID.
func ParseOID(s string) (OID, error) {
	if len(s) != 40 {
		return "", fmt.Errorf("invalid OID %q: expected 40 characters, got %d", s, len(s))
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return "", fmt.Errorf("invalid OID %q: not lowercase hex", s)
		}
	}
	return OID(s), nil
}

// Short returns the abbreviated form used in rendered output.
func (o OID) Short() string {
	if len(o) < 8 {
		return string(o)
	}
	return string(o[:8])
}

// TransactionID identifies the atomic group of events produced by a
// single hook invocation.
type TransactionID int64

// Event type tags as stored in the event table.
const (
	typeCommit  = "commit"
	typeHide    = "hide"
	typeUnhide  = "unhide"
	typeRewrite = "rewrite"
	typeRefMove = "ref-move"
)

// Event is one recorded repository mutation. Implementations are value
// types so that events compare with == in tests.
type Event interface {
	// Timestamp is seconds since the UNIX epoch.
	Timestamp() float64
	// TransactionID is the transaction this event belongs to.
	TransactionID() TransactionID

	eventType() string
	rowRefs() (ref1, ref2, ref3, message *string)
}

// CommitEvent records that a new commit appeared (post-commit hook).
type CommitEvent struct {
	Time      float64
	TxID      TransactionID
	CommitOID OID
}

// HideEvent records that a commit was marked hidden.
type HideEvent struct {
	Time      float64
	TxID      TransactionID
	CommitOID OID
}

// UnhideEvent records that a commit was un-hidden.
type UnhideEvent struct {
	Time      float64
	TxID      TransactionID
	CommitOID OID
}

// RewriteEvent records that a commit was replaced by another (amend,
// rebase, squash).
type RewriteEvent struct {
	Time         float64
	TxID         TransactionID
	OldCommitOID OID
	NewCommitOID OID
}

// RefUpdateEvent records a reference move, creation, or deletion. The
// ref values are strings rather than OIDs because a reference
// transaction may carry symbolic targets. RefName == "HEAD" marks a
// checkout.
type RefUpdateEvent struct {
	Time    float64
	TxID    TransactionID
	RefName string
	OldRef  *string
	NewRef  *string
	Message *string
}

func (e CommitEvent) Timestamp() float64            { return e.Time }
func (e CommitEvent) TransactionID() TransactionID  { return e.TxID }
func (e HideEvent) Timestamp() float64              { return e.Time }
func (e HideEvent) TransactionID() TransactionID    { return e.TxID }
func (e UnhideEvent) Timestamp() float64            { return e.Time }
func (e UnhideEvent) TransactionID() TransactionID  { return e.TxID }
func (e RewriteEvent) Timestamp() float64           { return e.Time }
func (e RewriteEvent) TransactionID() TransactionID { return e.TxID }
func (e RefUpdateEvent) Timestamp() float64         { return e.Time }
func (e RefUpdateEvent) TransactionID() TransactionID {
	return e.TxID
}

func (e CommitEvent) eventType() string  { return typeCommit }
func (e HideEvent) eventType() string    { return typeHide }
func (e UnhideEvent) eventType() string  { return typeUnhide }
func (e RewriteEvent) eventType() string { return typeRewrite }
func (e RefUpdateEvent) eventType() string {
	return typeRefMove
}

func oidRef(o OID) *string {
	s := string(o)
	return &s
}

func (e CommitEvent) rowRefs() (*string, *string, *string, *string) {
	return oidRef(e.CommitOID), nil, nil, nil
}

func (e HideEvent) rowRefs() (*string, *string, *string, *string) {
	return oidRef(e.CommitOID), nil, nil, nil
}

func (e UnhideEvent) rowRefs() (*string, *string, *string, *string) {
	return oidRef(e.CommitOID), nil, nil, nil
}

func (e RewriteEvent) rowRefs() (*string, *string, *string, *string) {
	return oidRef(e.OldCommitOID), oidRef(e.NewCommitOID), nil, nil
}

func (e RefUpdateEvent) rowRefs() (*string, *string, *string, *string) {
	name := e.RefName
	return &name, e.OldRef, e.NewRef, e.Message
}

// eventRow is the tabular shape of an event, as stored.
type eventRow struct {
	RowID     int64
	TxID      int64
	Type      string
	Timestamp float64
	Ref1      *string
	Ref2      *string
	Ref3      *string
	Message   *string
}

func eventToRow(e Event) eventRow {
	ref1, ref2, ref3, message := e.rowRefs()
	return eventRow{
		TxID:      int64(e.TransactionID()),
		Type:      e.eventType(),
		Timestamp: e.Timestamp(),
		Ref1:      ref1,
		Ref2:      ref2,
		Ref3:      ref3,
		Message:   message,
	}
}

func requireOIDColumn(row eventRow, column string, value *string) (OID, error) {
	if value == nil {
		return "", fmt.Errorf("malformed event row %d: missing %s", row.RowID, column)
	}
	oid, err := ParseOID(*value)
	if err != nil {
		return "", fmt.Errorf("malformed event row %d: %w", row.RowID, err)
	}
	return oid, nil
}

func eventFromRow(row eventRow) (Event, error) {
	txID := TransactionID(row.TxID)
	switch row.Type {
	case typeCommit, typeHide, typeUnhide:
		oid, err := requireOIDColumn(row, "commit OID", row.Ref1)
		if err != nil {
			return nil, err
		}
		switch row.Type {
		case typeCommit:
			return CommitEvent{Time: row.Timestamp, TxID: txID, CommitOID: oid}, nil
		case typeHide:
			return HideEvent{Time: row.Timestamp, TxID: txID, CommitOID: oid}, nil
		default:
			return UnhideEvent{Time: row.Timestamp, TxID: txID, CommitOID: oid}, nil
		}

	case typeRewrite:
		oldOID, err := requireOIDColumn(row, "old commit OID", row.Ref1)
		if err != nil {
			return nil, err
		}
		newOID, err := requireOIDColumn(row, "new commit OID", row.Ref2)
		if err != nil {
			return nil, err
		}
		return RewriteEvent{
			Time:         row.Timestamp,
			TxID:         txID,
			OldCommitOID: oldOID,
			NewCommitOID: newOID,
		}, nil

	case typeRefMove:
		if row.Ref1 == nil {
			return nil, fmt.Errorf("malformed event row %d: missing ref name", row.RowID)
		}
		return RefUpdateEvent{
			Time:    row.Timestamp,
			TxID:    txID,
			RefName: *row.Ref1,
			OldRef:  row.Ref2,
			NewRef:  row.Ref3,
			Message: row.Message,
		}, nil

	default:
		return nil, fmt.Errorf("malformed event row %d: unknown type %q", row.RowID, row.Type)
	}
}

// IsCheckout reports whether the event is a HEAD reference update.
func IsCheckout(e Event) bool {
	refUpdate, ok := e.(RefUpdateEvent)
	return ok && refUpdate.RefName == "HEAD"
}

// StringRef converts a possibly-zero OID string from git into an
// optional ref value. The zero OID and the empty string both mean "no
// value".
func StringRef(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" || s == string(ZeroOID) {
		return nil
	}
	return &s
}
