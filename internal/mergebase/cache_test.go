package mergebase

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// fakeOracle answers merge-base queries from a map and counts calls.
type fakeOracle struct {
	bases map[[2]string]string
	calls int
	fail  bool
}

func (f *fakeOracle) MergeBase(ctx context.Context, lhs, rhs string) (string, error) {
	f.calls++
	if f.fail {
		return "", fmt.Errorf("merge-base oracle unavailable")
	}
	return f.bases[[2]string{lhs, rhs}], nil
}

func setupTestCache(t *testing.T) *Cache {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "db.sqlite3"))
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	cache, err := NewCache(context.Background(), db)
	if err != nil {
		t.Fatalf("creating cache: %v", err)
	}
	return cache
}

const (
	oidA = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	oidB = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	oidM = "1111111111111111111111111111111111111111"
)

func TestGetMergeBaseOIDCaches(t *testing.T) {
	ctx := context.Background()
	cache := setupTestCache(t)
	oracle := &fakeOracle{bases: map[[2]string]string{{oidA, oidB}: oidM}}

	for i := 0; i < 3; i++ {
		got, err := cache.GetMergeBaseOID(ctx, oracle, oidA, oidB)
		if err != nil {
			t.Fatalf("GetMergeBaseOID: %v", err)
		}
		if got != oidM {
			t.Errorf("merge base = %q, want %q", got, oidM)
		}
	}
	if oracle.calls != 1 {
		t.Errorf("oracle called %d times, want 1", oracle.calls)
	}
}

func TestGetMergeBaseOIDCanonicalizesPair(t *testing.T) {
	ctx := context.Background()
	cache := setupTestCache(t)
	oracle := &fakeOracle{bases: map[[2]string]string{{oidA, oidB}: oidM}}

	if _, err := cache.GetMergeBaseOID(ctx, oracle, oidB, oidA); err != nil {
		t.Fatalf("GetMergeBaseOID: %v", err)
	}
	got, err := cache.GetMergeBaseOID(ctx, oracle, oidA, oidB)
	if err != nil {
		t.Fatalf("GetMergeBaseOID: %v", err)
	}
	if got != oidM {
		t.Errorf("merge base = %q, want %q", got, oidM)
	}
	if oracle.calls != 1 {
		t.Errorf("oracle called %d times for the unordered pair, want 1", oracle.calls)
	}
}

func TestGetMergeBaseOIDCachesNegative(t *testing.T) {
	ctx := context.Background()
	cache := setupTestCache(t)
	oracle := &fakeOracle{bases: map[[2]string]string{}}

	got, err := cache.GetMergeBaseOID(ctx, oracle, oidA, oidB)
	if err != nil || got != "" {
		t.Fatalf("GetMergeBaseOID = %q, %v; want empty", got, err)
	}
	// The negative result is served from the cache.
	if _, err := cache.GetMergeBaseOID(ctx, oracle, oidA, oidB); err != nil {
		t.Fatalf("GetMergeBaseOID: %v", err)
	}
	if oracle.calls != 1 {
		t.Errorf("oracle called %d times, want 1", oracle.calls)
	}
}

func TestGetMergeBaseOIDOracleError(t *testing.T) {
	ctx := context.Background()
	cache := setupTestCache(t)
	oracle := &fakeOracle{fail: true}

	if _, err := cache.GetMergeBaseOID(ctx, oracle, oidA, oidB); err == nil {
		t.Fatal("expected error from failing oracle")
	}

	// The error must not be cached: once the oracle recovers, the
	// query succeeds.
	oracle.fail = false
	oracle.bases = map[[2]string]string{{oidA, oidB}: oidM}
	got, err := cache.GetMergeBaseOID(ctx, oracle, oidA, oidB)
	if err != nil || got != oidM {
		t.Errorf("after recovery: %q, %v; want %q", got, err, oidM)
	}
}
