package graph

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/untoldecay/Branchless/internal/eventlog"
	"github.com/untoldecay/Branchless/internal/git/gittest"
	"github.com/untoldecay/Branchless/internal/mergebase"
)

func setupTestCache(t *testing.T) *mergebase.Cache {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "db.sqlite3"))
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	cache, err := mergebase.NewCache(context.Background(), db)
	if err != nil {
		t.Fatalf("creating cache: %v", err)
	}
	return cache
}

func visibleView(oids ...string) *eventlog.RepoView {
	view := &eventlog.RepoView{
		Refs:    map[string]string{},
		Commits: map[eventlog.OID]eventlog.CommitStatus{},
	}
	for _, oid := range oids {
		view.Commits[eventlog.OID(oid)] = eventlog.CommitStatus{
			Visible:         true,
			CommittedByUser: true,
		}
	}
	return view
}

func TestMakeStackOnMain(t *testing.T) {
	ctx := context.Background()
	r := gittest.NewRepo(t)
	m1 := r.Head()
	m2 := r.Commit("main two")
	r.Checkout(m1)
	f1 := r.Commit("feature one")
	f2 := r.Commit("feature two")

	g, err := Make(ctx, r.Repo, setupTestCache(t), visibleView(f1, f2), Options{
		HeadOID:               f2,
		MainBranchOID:         m2,
		RemoveCommitsFromMain: true,
	})
	if err != nil {
		t.Fatalf("Make: %v\n%s", err, r.Describe())
	}

	for _, oid := range []string{m1, m2, f1, f2} {
		if _, ok := g[oid]; !ok {
			t.Fatalf("node %s missing from graph\n%s", oid[:8], r.Describe())
		}
	}
	if !g[m1].IsMain || !g[m2].IsMain {
		t.Error("main branch commits should have IsMain set")
	}
	if g[f1].IsMain || g[f2].IsMain {
		t.Error("stack commits should not have IsMain set")
	}
	if g[f2].Parent != f1 {
		t.Errorf("f2 parent = %s, want %s", g[f2].Parent, f1[:8])
	}
	if g[f1].Parent != m1 {
		t.Errorf("f1 parent = %s, want %s", g[f1].Parent, m1[:8])
	}
	if g[m2].Parent != m1 {
		t.Errorf("m2 parent = %s, want %s", g[m2].Parent, m1[:8])
	}
	if !g[f1].IsVisible || !g[f2].IsVisible {
		t.Error("stack commits should be visible")
	}
}

func TestMakePrunesBareMainCommits(t *testing.T) {
	ctx := context.Background()
	r := gittest.NewRepo(t)
	m1 := r.Head()
	m2 := r.Commit("main two")
	m3 := r.Commit("main three")
	r.Checkout(m1)
	f1 := r.Commit("feature one")

	g, err := Make(ctx, r.Repo, setupTestCache(t), visibleView(f1), Options{
		HeadOID:               f1,
		MainBranchOID:         m3,
		RemoveCommitsFromMain: true,
	})
	if err != nil {
		t.Fatalf("Make: %v", err)
	}

	if _, ok := g[m2]; ok {
		t.Errorf("middle main commit %s should be pruned", m2[:8])
	}
	if _, ok := g[m3]; !ok {
		t.Fatal("main tip must survive pruning")
	}
	if _, ok := g[m1]; !ok {
		t.Fatal("merge base anchoring the stack must survive pruning")
	}
	// The tip relinks across the pruned commit.
	if g[m3].Parent != m1 {
		t.Errorf("m3 parent = %s, want %s", g[m3].Parent, m1[:8])
	}
}

func TestMakeKeepsBareMainWithoutPruning(t *testing.T) {
	ctx := context.Background()
	r := gittest.NewRepo(t)
	m1 := r.Head()
	m2 := r.Commit("main two")
	r.Checkout(m1)
	f1 := r.Commit("feature one")

	g, err := Make(ctx, r.Repo, setupTestCache(t), visibleView(f1), Options{
		HeadOID:               f1,
		MainBranchOID:         m2,
		RemoveCommitsFromMain: false,
	})
	if err != nil {
		t.Fatalf("Make: %v", err)
	}
	if _, ok := g[m2]; !ok {
		t.Error("main tip missing without pruning")
	}
}

func TestMakeHiddenHeadStaysInGraph(t *testing.T) {
	ctx := context.Background()
	r := gittest.NewRepo(t)
	m1 := r.Head()
	r.Checkout(m1)
	f1 := r.Commit("doomed")

	view := visibleView()
	view.Commits[eventlog.OID(f1)] = eventlog.CommitStatus{
		Visible:         false,
		CommittedByUser: true,
		HiddenReason:    &eventlog.HiddenReason{},
	}

	g, err := Make(ctx, r.Repo, setupTestCache(t), view, Options{
		HeadOID:               f1,
		MainBranchOID:         m1,
		RemoveCommitsFromMain: true,
	})
	if err != nil {
		t.Fatalf("Make: %v", err)
	}
	node, ok := g[f1]
	if !ok {
		t.Fatal("hidden HEAD commit must still be seeded into the graph")
	}
	if node.IsVisible {
		t.Error("hidden commit should not be visible")
	}
}

func TestMakeChildrenLinkBack(t *testing.T) {
	ctx := context.Background()
	r := gittest.NewRepo(t)
	m1 := r.Head()
	r.Checkout(m1)
	f1 := r.Commit("one")
	r.Checkout(m1)
	f2 := r.Commit("two")

	g, err := Make(ctx, r.Repo, setupTestCache(t), visibleView(f1, f2), Options{
		HeadOID:               f2,
		MainBranchOID:         m1,
		RemoveCommitsFromMain: true,
	})
	if err != nil {
		t.Fatalf("Make: %v", err)
	}
	children := g[m1].Children
	if len(children) != 2 {
		t.Fatalf("m1 has %d children, want 2: %v", len(children), children)
	}
	seen := map[string]bool{}
	for _, child := range children {
		seen[child] = true
	}
	if !seen[f1] || !seen[f2] {
		t.Errorf("children = %v, want both %s and %s", children, f1[:8], f2[:8])
	}
}
