package cleanup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestWorkspace(t *testing.T) {
	root := t.TempDir()
	ws, err := NewWorkspace(root, "task-1")
	if err != nil {
		t.Fatalf("new workspace: %v", err)
	}
	if err := os.WriteFile(ws.Path("a.mp4"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if ws.Dir() != filepath.Join(root, "task-1") {
		t.Fatalf("unexpected dir %s", ws.Dir())
	}
	if err := ws.Remove(); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := os.Stat(ws.Dir()); !os.IsNotExist(err) {
		t.Fatal("workspace still exists")
	}
}

func TestWorkspace_RejectsPathLikeIDs(t *testing.T) {
	for _, id := range []string{"", "../escape", "a/b"} {
		if _, err := NewWorkspace(t.TempDir(), id); err == nil {
			t.Errorf("expected error for %q", id)
		}
	}
}

type pruner struct {
	calls  int
	maxAge time.Duration
}

func (p *pruner) PruneTerminal(maxAge time.Duration) int {
	p.calls++
	p.maxAge = maxAge
	return 2
}

func TestScheduler_Sweep(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "old.mp4")
	fresh := filepath.Join(dir, "fresh.mp4")
	oldWorkspace := filepath.Join(dir, "stale-task")
	for _, p := range []string{old, fresh} {
		if err := os.WriteFile(p, []byte("data"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.MkdirAll(oldWorkspace, 0755); err != nil {
		t.Fatal(err)
	}
	os.WriteFile(filepath.Join(oldWorkspace, "input.mp4"), []byte("data"), 0644)

	past := time.Now().Add(-48 * time.Hour)
	os.Chtimes(old, past, past)
	os.Chtimes(oldWorkspace, past, past)

	p := &pruner{}
	s := NewScheduler(Config{
		Dirs:          []string{dir, filepath.Join(dir, "missing")},
		MaxAge:        24 * time.Hour,
		TaskRetention: 6 * time.Hour,
	}, p, zerolog.Nop())
	s.Sweep()

	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("old file survived")
	}
	if _, err := os.Stat(oldWorkspace); !os.IsNotExist(err) {
		t.Error("stale workspace survived")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Error("fresh file removed")
	}
	if p.calls != 1 || p.maxAge != 6*time.Hour {
		t.Fatalf("registry not pruned: %+v", p)
	}
}

func TestScheduler_StopIsIdempotent(t *testing.T) {
	s := NewScheduler(Config{Dirs: []string{t.TempDir()}, Interval: time.Hour}, nil, zerolog.Nop())
	s.Start()
	s.Stop()
	s.Stop()
}

func TestEnsureDirs(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "a", "b")
	if err := EnsureDirs(a, ""); err != nil {
		t.Fatal(err)
	}
	if info, err := os.Stat(a); err != nil || !info.IsDir() {
		t.Fatal("directory not created")
	}
}
