package retention

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rdjoudi/mybak/internal/logger"
	"github.com/rdjoudi/mybak/internal/snapshot"
)

func makeSnapshot(t *testing.T, root, name string, markerTime time.Time) string {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", name, err)
	}
	marker := filepath.Join(dir, snapshot.MarkerName)
	if err := os.WriteFile(marker, []byte(""), 0o644); err != nil {
		t.Fatalf("write marker: %v", err)
	}
	if err := os.Chtimes(marker, markerTime, markerTime); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	return dir
}

func surviving(t *testing.T, root string) map[string]bool {
	t.Helper()
	snaps, err := snapshot.Scan(root)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	out := map[string]bool{}
	for _, s := range snaps {
		out[filepath.Base(s.Dir)] = true
	}
	return out
}

func TestApply_EvictsOldestBeyondKeep(t *testing.T) {
	root := t.TempDir()
	base := time.Date(2026, 8, 20, 3, 0, 0, 0, time.UTC)
	// D1 < D2 < D3 < D4 by creation, plus D5 from the current run.
	for i, name := range []string{"2026-08-21", "2026-08-22", "2026-08-23", "2026-08-24", "2026-08-25"} {
		makeSnapshot(t, root, name, base.Add(time.Duration(i)*24*time.Hour))
	}

	if err := New(3, logger.NewConsole()).Apply(root); err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}

	got := surviving(t, root)
	if len(got) != 3 {
		t.Fatalf("kept %d snapshots, want 3: %v", len(got), got)
	}
	for _, name := range []string{"2026-08-23", "2026-08-24", "2026-08-25"} {
		if !got[name] {
			t.Errorf("newest snapshot %s was evicted", name)
		}
	}
	for _, name := range []string{"2026-08-21", "2026-08-22"} {
		if got[name] {
			t.Errorf("oldest snapshot %s survived", name)
		}
	}
}

func TestApply_KeepZeroDisables(t *testing.T) {
	root := t.TempDir()
	base := time.Now().Add(-10 * 24 * time.Hour)
	for i := 0; i < 6; i++ {
		makeSnapshot(t, root, time.Now().AddDate(0, 0, -i).Format("2006-01-02"), base.Add(time.Duration(i)*time.Hour))
	}

	if err := New(0, logger.NewConsole()).Apply(root); err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if got := surviving(t, root); len(got) != 6 {
		t.Errorf("keep=0 must not delete anything, %d left", len(got))
	}
}

func TestApply_UnderThresholdIsNoop(t *testing.T) {
	root := t.TempDir()
	makeSnapshot(t, root, "2026-08-26", time.Now().Add(-24*time.Hour))
	makeSnapshot(t, root, "2026-08-27", time.Now())

	if err := New(5, logger.NewConsole()).Apply(root); err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if got := surviving(t, root); len(got) != 2 {
		t.Errorf("nothing should be evicted below the threshold, %d left", len(got))
	}
}

func TestApply_IgnoresUnmarkedDirectories(t *testing.T) {
	root := t.TempDir()
	makeSnapshot(t, root, "2026-08-26", time.Now().Add(-48*time.Hour))
	makeSnapshot(t, root, "2026-08-27", time.Now())
	// A partial directory has no marker and must neither count nor be evicted.
	partial := filepath.Join(root, "2026-08-25")
	os.MkdirAll(partial, 0o755)

	if err := New(1, logger.NewConsole()).Apply(root); err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	got := surviving(t, root)
	if len(got) != 1 || !got["2026-08-27"] {
		t.Errorf("expected only the newest marked snapshot, got %v", got)
	}
	if _, err := os.Stat(partial); err != nil {
		t.Errorf("unmarked directory must not be touched by retention")
	}
}
