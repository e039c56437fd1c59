package artifact

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeAged(t *testing.T, dir, name string, age time.Duration) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	mtime := time.Now().Add(-age)
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSweepOnce(t *testing.T) {
	dir := t.TempDir()
	s := NewSweeper(30*time.Minute, discardLogger(), dir)

	expired := writeAged(t, dir, "old.mp4", time.Hour)
	fresh := writeAged(t, dir, "fresh.mp4", time.Minute)

	removed := s.SweepOnce(context.Background())

	if len(removed) != 1 || removed[0] != expired {
		t.Errorf("removed = %v, want [%s]", removed, expired)
	}
	if _, err := os.Stat(expired); !os.IsNotExist(err) {
		t.Error("expected expired file to be deleted")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Errorf("expected fresh file to survive: %v", err)
	}
}

func TestSweepOnce_MultipleDirs(t *testing.T) {
	outDir := t.TempDir()
	uploadDir := t.TempDir()
	s := NewSweeper(30*time.Minute, discardLogger(), outDir, uploadDir)

	writeAged(t, outDir, "old.mp4", time.Hour)
	writeAged(t, uploadDir, "orphan.mp4", time.Hour)

	removed := s.SweepOnce(context.Background())
	if len(removed) != 2 {
		t.Errorf("removed = %v, want 2 files", removed)
	}
}

func TestSweepOnce_Idempotent(t *testing.T) {
	dir := t.TempDir()
	s := NewSweeper(30*time.Minute, discardLogger(), dir)

	writeAged(t, dir, "old.mp4", time.Hour)

	if removed := s.SweepOnce(context.Background()); len(removed) != 1 {
		t.Fatalf("first sweep removed %v", removed)
	}
	if removed := s.SweepOnce(context.Background()); len(removed) != 0 {
		t.Errorf("second sweep removed %v, want none", removed)
	}
}

func TestSweepOnce_SkipsDirectories(t *testing.T) {
	dir := t.TempDir()
	s := NewSweeper(30*time.Minute, discardLogger(), dir)

	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0o750); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(sub, old, old); err != nil {
		t.Fatal(err)
	}

	if removed := s.SweepOnce(context.Background()); len(removed) != 0 {
		t.Errorf("removed = %v, want none", removed)
	}
	if _, err := os.Stat(sub); err != nil {
		t.Errorf("expected subdirectory to survive: %v", err)
	}
}

func TestSweepOnce_MissingDir(t *testing.T) {
	s := NewSweeper(30*time.Minute, discardLogger(), filepath.Join(t.TempDir(), "nope"))

	if removed := s.SweepOnce(context.Background()); len(removed) != 0 {
		t.Errorf("removed = %v, want none", removed)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	s := NewSweeper(30*time.Minute, discardLogger(), dir)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx, 10*time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
