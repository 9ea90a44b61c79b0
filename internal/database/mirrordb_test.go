package database

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/harmirror/internal/model"
)

// openTestDB creates a MirrorDB in a temp directory and registers cleanup.
func openTestDB(t *testing.T) *MirrorDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close database: %v", err)
		}
	})
	return db
}

// TestOpen tests database creation and the CreateIfNotExists behavior.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database and schema", func(t *testing.T) {
		t.Parallel()
		db := openTestDB(t)
		if db.dbPath == "" {
			t.Error("expected database path to be set")
		}
	})

	t.Run("missing database without create option is an error", func(t *testing.T) {
		t.Parallel()
		_, err := Open(filepath.Join(t.TempDir(), "nonexistent"), Options{CreateIfNotExists: false})
		if err == nil {
			t.Error("expected an error for a missing database")
		}
	})

	t.Run("reopening an existing database works", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()

		first, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if err := first.Close(); err != nil {
			t.Fatal(err)
		}

		second, err := Open(dir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("expected reopen to work, got %v", err)
		}
		if err := second.Close(); err != nil {
			t.Fatal(err)
		}
	})
}

// TestFileRecords tests file record insert, upsert, and retrieval.
func TestFileRecords(t *testing.T) {
	t.Parallel()

	t.Run("insert and retrieve a record", func(t *testing.T) {
		t.Parallel()
		db := openTestDB(t)
		ctx := context.Background()

		record := &FileRecord{
			URL:       "https://example.com/js/app.js",
			SiteRoot:  "/srv/www",
			LocalPath: "js/app.js",
			Status:    "written",
			Size:      42,
			Hash:      "deadbeef",
		}
		if _, err := db.InsertFileRecord(ctx, record); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		got, err := db.GetFileRecord(ctx, record.URL, record.SiteRoot)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got == nil {
			t.Fatal("expected a record")
		}
		if got.LocalPath != "js/app.js" || got.Status != "written" || got.Size != 42 {
			t.Errorf("unexpected record: %+v", got)
		}
	})

	t.Run("same URL and root upserts instead of duplicating", func(t *testing.T) {
		t.Parallel()
		db := openTestDB(t)
		ctx := context.Background()

		first := &FileRecord{
			URL: "https://example.com/a.css", SiteRoot: ".", LocalPath: "a.css",
			Status: "written", Size: 10, Hash: "aaa",
		}
		if _, err := db.InsertFileRecord(ctx, first); err != nil {
			t.Fatal(err)
		}

		second := &FileRecord{
			URL: "https://example.com/a.css", SiteRoot: ".", LocalPath: "a.css",
			Status: "written", Size: 20, Hash: "bbb",
		}
		if _, err := db.InsertFileRecord(ctx, second); err != nil {
			t.Fatal(err)
		}

		got, err := db.GetFileRecord(ctx, first.URL, first.SiteRoot)
		if err != nil {
			t.Fatal(err)
		}
		if got.Size != 20 || got.Hash != "bbb" {
			t.Errorf("expected latest run to win, got %+v", got)
		}
	})

	t.Run("same URL under a different root is a separate record", func(t *testing.T) {
		t.Parallel()
		db := openTestDB(t)
		ctx := context.Background()

		for _, root := range []string{"/a", "/b"} {
			record := &FileRecord{
				URL: "https://example.com/x.js", SiteRoot: root,
				LocalPath: "x.js", Status: "written",
			}
			if _, err := db.InsertFileRecord(ctx, record); err != nil {
				t.Fatal(err)
			}
		}

		for _, root := range []string{"/a", "/b"} {
			got, err := db.GetFileRecord(ctx, "https://example.com/x.js", root)
			if err != nil {
				t.Fatal(err)
			}
			if got == nil {
				t.Errorf("expected record for root %s", root)
			}
		}
	})

	t.Run("missing record returns nil without error", func(t *testing.T) {
		t.Parallel()
		db := openTestDB(t)

		got, err := db.GetFileRecord(context.Background(), "https://nowhere.invalid/x", ".")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got != nil {
			t.Errorf("expected nil record, got %+v", got)
		}
	})
}

// sampleReport builds a small report for run-storage tests.
func sampleReport(archive string) *model.MirrorReport {
	r := model.NewMirrorReport(archive, "/srv/www")
	r.SetHosts([]string{"example.com"})
	r.AddFile(model.FileResult{
		URL: "https://example.com/app.js", LocalPath: "app.js",
		Status: model.StatusWritten, Size: 12, Hash: "abc",
	})
	r.AddFile(model.FileResult{
		URL: "https://example.com/logo.png", LocalPath: "logo.png",
		Status: model.StatusSkippedImage,
	})
	r.Patched = true
	r.EntryFile = "/srv/www/index.html"
	return r
}

// TestSaveMirrorReport tests run storage and retrieval round trips.
func TestSaveMirrorReport(t *testing.T) {
	t.Parallel()

	t.Run("saved report round-trips through GetLatestReport", func(t *testing.T) {
		t.Parallel()
		db := openTestDB(t)
		ctx := context.Background()

		if err := db.SaveMirrorReport(ctx, sampleReport("site.har")); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		got, err := db.GetLatestReport(ctx, "site.har")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got == nil {
			t.Fatal("expected a report")
		}
		if got.Archive != "site.har" || !got.Patched || len(got.Files) != 2 {
			t.Errorf("unexpected report: %+v", got)
		}
		if len(got.Hosts) != 1 || got.Hosts[0] != "example.com" {
			t.Errorf("unexpected hosts: %v", got.Hosts)
		}
	})

	t.Run("file records are written alongside the run", func(t *testing.T) {
		t.Parallel()
		db := openTestDB(t)
		ctx := context.Background()

		if err := db.SaveMirrorReport(ctx, sampleReport("site.har")); err != nil {
			t.Fatal(err)
		}

		record, err := db.GetFileRecord(ctx, "https://example.com/app.js", "/srv/www")
		if err != nil {
			t.Fatal(err)
		}
		if record == nil {
			t.Fatal("expected file record from saved report")
		}
		if record.Status != "written" || record.Hash != "abc" {
			t.Errorf("unexpected record: %+v", record)
		}
	})

	t.Run("unmirrored archive returns nil report", func(t *testing.T) {
		t.Parallel()
		db := openTestDB(t)

		got, err := db.GetLatestReport(context.Background(), "never.har")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got != nil {
			t.Errorf("expected nil report, got %+v", got)
		}
	})
}

// TestListMirroredArchives tests the distinct archive listing.
func TestListMirroredArchives(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	ctx := context.Background()

	for _, archive := range []string{"b.har", "a.har", "b.har"} {
		if err := db.SaveMirrorReport(ctx, sampleReport(archive)); err != nil {
			t.Fatal(err)
		}
	}

	archives, err := db.ListMirroredArchives(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(archives) != 2 || archives[0] != "a.har" || archives[1] != "b.har" {
		t.Errorf("unexpected archive list: %v", archives)
	}
}

// TestGetRunHistory tests run metadata retrieval and filtering.
func TestGetRunHistory(t *testing.T) {
	t.Parallel()

	t.Run("history carries the summary counts", func(t *testing.T) {
		t.Parallel()
		db := openTestDB(t)
		ctx := context.Background()

		if err := db.SaveMirrorReport(ctx, sampleReport("site.har")); err != nil {
			t.Fatal(err)
		}

		runs, err := db.GetRunHistory(ctx, "site.har")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(runs) != 1 {
			t.Fatalf("expected 1 run, got %d", len(runs))
		}

		run := runs[0]
		if run.Archive != "site.har" || run.SiteRoot != "/srv/www" {
			t.Errorf("unexpected metadata: %+v", run)
		}
		if run.Summary["written"] != 1 || run.Summary["skipped_image"] != 1 {
			t.Errorf("unexpected summary: %v", run.Summary)
		}
		if run.Timestamp.IsZero() {
			t.Error("expected parsed timestamp")
		}
	})

	t.Run("empty archive filter returns every run", func(t *testing.T) {
		t.Parallel()
		db := openTestDB(t)
		ctx := context.Background()

		for _, archive := range []string{"a.har", "b.har"} {
			if err := db.SaveMirrorReport(ctx, sampleReport(archive)); err != nil {
				t.Fatal(err)
			}
		}

		runs, err := db.GetRunHistory(ctx, "")
		if err != nil {
			t.Fatal(err)
		}
		if len(runs) != 2 {
			t.Errorf("expected 2 runs, got %d", len(runs))
		}
	})

	t.Run("archive filter restricts the listing", func(t *testing.T) {
		t.Parallel()
		db := openTestDB(t)
		ctx := context.Background()

		for _, archive := range []string{"a.har", "b.har"} {
			if err := db.SaveMirrorReport(ctx, sampleReport(archive)); err != nil {
				t.Fatal(err)
			}
		}

		runs, err := db.GetRunHistory(ctx, "a.har")
		if err != nil {
			t.Fatal(err)
		}
		if len(runs) != 1 || runs[0].Archive != "a.har" {
			t.Errorf("unexpected filtered history: %+v", runs)
		}
	})
}

// TestParseTimestamp tests the multi-format timestamp parser.
func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		valid bool
	}{
		{name: "sqlite default", input: "2026-08-31 12:30:45", valid: true},
		{name: "iso8601 with Z", input: "2026-08-31T12:30:45Z", valid: true},
		{name: "rfc3339 with offset", input: "2026-08-31T12:30:45+09:00", valid: true},
		{name: "garbage", input: "not a time", valid: false},
		{name: "empty", input: "", valid: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := parseTimestamp(tt.input)
			if tt.valid && got.IsZero() {
				t.Errorf("expected %q to parse", tt.input)
			}
			if !tt.valid && !got.IsZero() {
				t.Errorf("expected %q to fail, got %v", tt.input, got)
			}
		})
	}
}

// TestSaveMirrorReportSerializesError verifies the error message survives
// the JSON round trip.
func TestSaveMirrorReportSerializesError(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	ctx := context.Background()

	r := model.NewMirrorReport("broken.har", ".")
	r.RecordError(errors.New("extraction failed: bad archive"))

	if err := db.SaveMirrorReport(ctx, r); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	got, err := db.GetLatestReport(ctx, "broken.har")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got.ErrorMessage, "extraction failed") {
		t.Errorf("expected serialized error message, got %q", got.ErrorMessage)
	}
	if got.Error != nil {
		t.Error("expected typed error to not survive serialization")
	}
}
