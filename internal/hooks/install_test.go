package hooks

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/untoldecay/Branchless/internal/git/gittest"
)

func TestUpdateBetweenLines(t *testing.T) {
	input := "hello, world\n" +
		"## START BRANCHLESS CONFIG\n" +
		"contents 1\n" +
		"## END BRANCHLESS CONFIG\n" +
		"goodbye, world\n"
	want := "hello, world\n" +
		"## START BRANCHLESS CONFIG\n" +
		"contents 2\n" +
		"contents 3\n" +
		"## END BRANCHLESS CONFIG\n" +
		"goodbye, world\n"
	got := UpdateBetweenLines(input, "contents 2\ncontents 3\n")
	if got != want {
		t.Errorf("UpdateBetweenLines:\n got: %q\nwant: %q", got, want)
	}
}

func TestUpdateBetweenLinesIdempotent(t *testing.T) {
	input := "before\n## START BRANCHLESS CONFIG\nold\n## END BRANCHLESS CONFIG\nafter\n"
	body := "managed body\n"
	once := UpdateBetweenLines(input, body)
	twice := UpdateBetweenLines(once, body)
	if once != twice {
		t.Errorf("re-running install changed the file:\n once: %q\ntwice: %q", once, twice)
	}
}

func TestUpdateBetweenLinesUnterminated(t *testing.T) {
	input := "before\n## START BRANCHLESS CONFIG\nstale\n"
	got := UpdateBetweenLines(input, "fresh\n")
	want := "before\n## START BRANCHLESS CONFIG\nfresh\n## END BRANCHLESS CONFIG\n"
	if got != want {
		t.Errorf("unterminated region:\n got: %q\nwant: %q", got, want)
	}
}

func TestInstallAllCreatesHooks(t *testing.T) {
	r := gittest.NewRepo(t)
	ctx := context.Background()

	if err := InstallAll(ctx, r.Repo); err != nil {
		t.Fatalf("InstallAll: %v", err)
	}
	for _, hookType := range HookTypes {
		path := filepath.Join(r.Repo.GitDir, "hooks", hookType)
		contents, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("reading %s: %v", hookType, err)
		}
		text := string(contents)
		if !strings.HasPrefix(text, shebang+"\n") {
			t.Errorf("%s does not start with shebang: %q", hookType, text)
		}
		if !strings.Contains(text, updateMarkerStart) || !strings.Contains(text, updateMarkerEnd) {
			t.Errorf("%s missing sentinel markers: %q", hookType, text)
		}
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat %s: %v", hookType, err)
		}
		if info.Mode()&0o111 == 0 {
			t.Errorf("%s is not executable", hookType)
		}
	}
}

func TestInstallPreservesForeignContent(t *testing.T) {
	r := gittest.NewRepo(t)
	ctx := context.Background()
	hooksDir := filepath.Join(r.Repo.GitDir, "hooks")
	if err := os.MkdirAll(hooksDir, 0o755); err != nil {
		t.Fatalf("creating hooks dir: %v", err)
	}
	path := filepath.Join(hooksDir, "post-commit")
	foreign := "#!/bin/sh\necho user hook\n"
	if err := os.WriteFile(path, []byte(foreign), 0o755); err != nil {
		t.Fatalf("writing foreign hook: %v", err)
	}

	if err := Install(ctx, r.Repo, "post-commit"); err != nil {
		t.Fatalf("Install: %v", err)
	}
	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading hook: %v", err)
	}
	text := string(contents)
	if !strings.Contains(text, "echo user hook") {
		t.Errorf("foreign content was lost: %q", text)
	}
	if !strings.Contains(text, "hook-post-commit") {
		t.Errorf("managed body missing: %q", text)
	}

	// Installing again must not change the file.
	if err := Install(ctx, r.Repo, "post-commit"); err != nil {
		t.Fatalf("re-install: %v", err)
	}
	again, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading hook: %v", err)
	}
	if string(again) != text {
		t.Errorf("re-install changed the hook:\n once: %q\ntwice: %q", text, again)
	}
}

func TestInstallMultiHookLayout(t *testing.T) {
	r := gittest.NewRepo(t)
	ctx := context.Background()
	if err := os.MkdirAll(filepath.Join(r.Repo.GitDir, "hooks_multi"), 0o755); err != nil {
		t.Fatalf("creating hooks_multi: %v", err)
	}

	if err := Install(ctx, r.Repo, "post-commit"); err != nil {
		t.Fatalf("Install: %v", err)
	}
	path := filepath.Join(r.Repo.GitDir, "hooks_multi", "post-commit.d", "00_local_branchless")
	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("multi-hook file missing: %v", err)
	}
	if !strings.Contains(string(contents), "hook-post-commit") {
		t.Errorf("multi-hook body = %q", contents)
	}
}
