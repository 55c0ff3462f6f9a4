package eventlog

import (
	"testing"
)

func strPtr(s string) *string { return &s }

const (
	oidA = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	oidB = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	oidC = "cccccccccccccccccccccccccccccccccccccccc"
)

func TestParseOID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid", oidA, false},
		{"too short", "abc123", true},
		{"uppercase", "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA", true},
		{"non-hex", "zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz", true},
		{"empty", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oid, err := ParseOID(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseOID(%q) succeeded, want error", tt.input)
				}
				return
			}
			if err != nil {
				t.Errorf("ParseOID(%q) = %v", tt.input, err)
			}
			if string(oid) != tt.input {
				t.Errorf("ParseOID(%q) = %q", tt.input, oid)
			}
		})
	}
}

func TestOIDShort(t *testing.T) {
	if got := OID(oidA).Short(); got != "aaaaaaaa" {
		t.Errorf("Short() = %q, want %q", got, "aaaaaaaa")
	}
}

func TestStringRef(t *testing.T) {
	if got := StringRef(string(ZeroOID)); got != nil {
		t.Errorf("StringRef(zero OID) = %v, want nil", *got)
	}
	if got := StringRef(""); got != nil {
		t.Errorf("StringRef(empty) = %v, want nil", *got)
	}
	if got := StringRef(oidA); got == nil || *got != oidA {
		t.Errorf("StringRef(%q) = %v", oidA, got)
	}
}

func TestEventRowRoundTrip(t *testing.T) {
	events := []Event{
		CommitEvent{Time: 1.5, TxID: 1, CommitOID: oidA},
		HideEvent{Time: 2.5, TxID: 1, CommitOID: oidA},
		UnhideEvent{Time: 3.5, TxID: 2, CommitOID: oidB},
		RewriteEvent{Time: 4.5, TxID: 2, OldCommitOID: oidA, NewCommitOID: oidB},
		RefUpdateEvent{Time: 5.5, TxID: 3, RefName: "refs/heads/foo", OldRef: strPtr(oidA), NewRef: strPtr(oidB), Message: strPtr("branch update")},
		RefUpdateEvent{Time: 6.5, TxID: 3, RefName: "HEAD", OldRef: nil, NewRef: strPtr(oidB)},
		RefUpdateEvent{Time: 7.5, TxID: 3, RefName: "refs/heads/gone", OldRef: strPtr(oidA), NewRef: nil},
		// Benign degenerate event: both sides absent.
		RefUpdateEvent{Time: 8.5, TxID: 4, RefName: "refs/heads/noop"},
	}
	for _, event := range events {
		row := eventToRow(event)
		row.RowID = 42
		got, err := eventFromRow(row)
		if err != nil {
			t.Fatalf("eventFromRow(%#v) = %v", row, err)
		}
		if !eventsEqual(event, got) {
			t.Errorf("round trip mismatch:\n  in:  %#v\n  out: %#v", event, got)
		}
	}
}

// eventsEqual compares events including pointed-to ref values.
func eventsEqual(a, b Event) bool {
	ra, ok := a.(RefUpdateEvent)
	if !ok {
		return a == b
	}
	rb, ok := b.(RefUpdateEvent)
	if !ok {
		return false
	}
	strEq := func(x, y *string) bool {
		if x == nil || y == nil {
			return x == y
		}
		return *x == *y
	}
	return ra.Time == rb.Time && ra.TxID == rb.TxID && ra.RefName == rb.RefName &&
		strEq(ra.OldRef, rb.OldRef) && strEq(ra.NewRef, rb.NewRef) && strEq(ra.Message, rb.Message)
}

func TestEventFromRowMalformed(t *testing.T) {
	tests := []struct {
		name string
		row  eventRow
	}{
		{"unknown type", eventRow{RowID: 7, Type: "explode"}},
		{"commit missing oid", eventRow{RowID: 7, Type: "commit"}},
		{"commit bad oid", eventRow{RowID: 7, Type: "commit", Ref1: strPtr("nope")}},
		{"rewrite missing new", eventRow{RowID: 7, Type: "rewrite", Ref1: strPtr(oidA)}},
		{"ref-move missing name", eventRow{RowID: 7, Type: "ref-move"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := eventFromRow(tt.row); err == nil {
				t.Errorf("eventFromRow(%#v) succeeded, want error", tt.row)
			}
		})
	}
}

func TestIsCheckout(t *testing.T) {
	if !IsCheckout(RefUpdateEvent{RefName: "HEAD"}) {
		t.Error("HEAD update should be a checkout")
	}
	if IsCheckout(RefUpdateEvent{RefName: "refs/heads/foo"}) {
		t.Error("branch update should not be a checkout")
	}
	if IsCheckout(CommitEvent{CommitOID: oidA}) {
		t.Error("commit event should not be a checkout")
	}
}
