package job

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *SQLiteRepository {
	t.Helper()

	repo, err := OpenSQLite(filepath.Join(t.TempDir(), "jobs.db"))
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestSQLiteRepository_RoundTrip(t *testing.T) {
	repo := openTestDB(t)
	ctx := context.Background()

	j := NewWithID("job-1", KindMerge)
	j.Inputs = []string{"a.mp4", "b.mp4"}
	j.Merge = MergeParams{Method: "concatenate", OutputName: "out.mp4"}

	if err := repo.Save(ctx, j); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	found, err := repo.FindByID(ctx, "job-1")
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if found.Kind != KindMerge || found.Status != StatusPending {
		t.Errorf("found = %+v", found)
	}
	if len(found.Inputs) != 2 || found.Inputs[0] != "a.mp4" {
		t.Errorf("Inputs = %v", found.Inputs)
	}
	if found.Merge.Method != "concatenate" || found.Merge.OutputName != "out.mp4" {
		t.Errorf("Merge = %+v", found.Merge)
	}
	if found.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to survive the round trip")
	}
}

func TestSQLiteRepository_Upsert(t *testing.T) {
	repo := openTestDB(t)
	ctx := context.Background()

	j := NewWithID("job-1", KindConvert)
	j.Convert = ConvertParams{Width: 1920, Height: 1080, FPS: 30}
	if err := repo.Save(ctx, j); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if err := j.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	j.SetOutput("/out/a.mp4", "a.mp4", "")
	if err := j.Complete(); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if err := repo.Save(ctx, j); err != nil {
		t.Fatalf("Save() update error = %v", err)
	}

	found, err := repo.FindByID(ctx, "job-1")
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if found.Status != StatusDone {
		t.Errorf("status = %v, want %v", found.Status, StatusDone)
	}
	if found.ArtifactToken != "a.mp4" || found.OutputPath != "/out/a.mp4" {
		t.Errorf("artifact fields = %q %q", found.ArtifactToken, found.OutputPath)
	}
	if found.Convert.Width != 1920 || found.Convert.FPS != 30 {
		t.Errorf("Convert = %+v", found.Convert)
	}
	if found.StartedAt.IsZero() || found.CompletedAt.IsZero() {
		t.Error("expected lifecycle timestamps to survive the round trip")
	}

	jobs, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(jobs) != 1 {
		t.Errorf("len(jobs) = %d, want 1 after upsert", len(jobs))
	}
}

func TestSQLiteRepository_FindMissing(t *testing.T) {
	repo := openTestDB(t)

	_, err := repo.FindByID(context.Background(), "job-missing")
	if !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("FindByID() error = %v, want ErrJobNotFound", err)
	}
}

func TestSQLiteRepository_Delete(t *testing.T) {
	repo := openTestDB(t)
	ctx := context.Background()

	if err := repo.Save(ctx, NewWithID("job-1", KindMerge)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := repo.Delete(ctx, "job-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := repo.Delete(ctx, "job-1"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("Delete() twice error = %v, want ErrJobNotFound", err)
	}
}

func TestSQLiteRepository_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.db")
	ctx := context.Background()

	repo, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	j := NewWithID("job-1", KindMerge)
	if err := repo.Save(ctx, j); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := repo.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer func() { _ = reopened.Close() }()

	found, err := reopened.FindByID(ctx, "job-1")
	if err != nil {
		t.Fatalf("FindByID() after reopen error = %v", err)
	}
	if found.ID != "job-1" {
		t.Errorf("found.ID = %q", found.ID)
	}
}
