package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"audiopress/internal/media"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenPath(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleConversion(jobID, title string) Conversion {
	return Conversion{
		JobID:               jobID,
		SourceURL:           "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		Title:               title,
		FileName:            title + ".mp3",
		FileSizeBytes:       4_200_000,
		Quality:             media.Quality128,
		MeasuredBitrateKbps: 128,
		Strategy:            "targeted",
		DurationSeconds:     214,
		ExpiresAt:           time.Now().Add(5 * 24 * time.Hour),
	}
}

func TestRecordAndListRecent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i, title := range []string{"First_Track", "Second_Track", "Third_Track"} {
		conv := sampleConversion(string(rune('a'+i))+"-job", title)
		if err := s.RecordConversion(ctx, conv); err != nil {
			t.Fatalf("RecordConversion: %v", err)
		}
	}

	recent, err := s.ListRecent(ctx, 2)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("got %d rows, want 2", len(recent))
	}
	if recent[0].Title != "Third_Track" || recent[1].Title != "Second_Track" {
		t.Fatalf("order wrong: %q then %q", recent[0].Title, recent[1].Title)
	}
	if recent[0].Quality != media.Quality128 {
		t.Fatalf("quality round-trip failed: %q", recent[0].Quality)
	}
	if recent[0].ExpiresAt.IsZero() {
		t.Fatal("expiry did not round-trip")
	}
}

func TestCounters(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.RecordConversion(ctx, sampleConversion("job-1", "Track")); err != nil {
		t.Fatalf("RecordConversion: %v", err)
	}
	if err := s.RecordFailure(ctx, Failure{SourceURL: "https://youtu.be/bad", Stage: "resolve", Reason: "unresolvable"}); err != nil {
		t.Fatalf("RecordFailure: %v", err)
	}

	counters, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if counters.Completed != 1 || counters.Failed != 1 {
		t.Fatalf("counters = %+v", counters)
	}
}

func TestPruneExpired(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	stale := sampleConversion("job-old", "Old_Track")
	stale.ExpiresAt = time.Now().Add(-time.Hour)
	fresh := sampleConversion("job-new", "New_Track")

	if err := s.RecordConversion(ctx, stale); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordConversion(ctx, fresh); err != nil {
		t.Fatal(err)
	}

	pruned, err := s.PruneExpired(ctx, time.Now())
	if err != nil {
		t.Fatalf("PruneExpired: %v", err)
	}
	if pruned != 1 {
		t.Fatalf("pruned %d rows, want 1", pruned)
	}
	recent, err := s.ListRecent(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 1 || recent[0].Title != "New_Track" {
		t.Fatalf("unexpected survivors: %+v", recent)
	}
}

func TestSchemaVersionGuard(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := OpenPath(path)
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	if _, err := s.db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	if _, err := OpenPath(path); err == nil {
		t.Fatal("expected schema mismatch error")
	}
}
