package patch

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/harmirror/internal/config"
)

// TestFindEntryFile tests the ordered candidate search.
func TestFindEntryFile(t *testing.T) {
	t.Parallel()

	t.Run("first existing candidate wins", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		second := filepath.Join(dir, "index.html")
		if err := os.WriteFile(second, []byte("<html></html>"), 0600); err != nil {
			t.Fatal(err)
		}

		candidates := []string{
			filepath.Join(dir, "missing.html"),
			second,
		}
		if got := FindEntryFile(candidates); got != second {
			t.Errorf("expected %s, got %s", second, got)
		}
	})

	t.Run("order matters when several candidates exist", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		first := filepath.Join(dir, "a.html")
		second := filepath.Join(dir, "b.html")
		for _, p := range []string{first, second} {
			if err := os.WriteFile(p, []byte("x"), 0600); err != nil {
				t.Fatal(err)
			}
		}

		if got := FindEntryFile([]string{first, second}); got != first {
			t.Errorf("expected %s, got %s", first, got)
		}
	})

	t.Run("directories are skipped", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		sub := filepath.Join(dir, "index.html")
		if err := os.Mkdir(sub, 0750); err != nil {
			t.Fatal(err)
		}

		if got := FindEntryFile([]string{sub}); got != "" {
			t.Errorf("expected empty result, got %s", got)
		}
	})

	t.Run("no existing candidate returns empty string", func(t *testing.T) {
		t.Parallel()
		if got := FindEntryFile([]string{filepath.Join(t.TempDir(), "x")}); got != "" {
			t.Errorf("expected empty result, got %s", got)
		}
	})
}

// TestPatcherPatch covers the full patch pass on a real file.
func TestPatcherPatch(t *testing.T) {
	t.Parallel()

	policy := NewPolicy([]string{"example.com"}, config.DefaultImageExtensions)

	t.Run("rewrites the entry document in place", func(t *testing.T) {
		t.Parallel()
		entry := filepath.Join(t.TempDir(), "index.html")
		doc := `<script src="https://example.com/js/app.js"></script>`
		if err := os.WriteFile(entry, []byte(doc), 0600); err != nil {
			t.Fatal(err)
		}

		p := New(WithBackup(false))
		result, err := p.Patch(entry, policy)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !result.Patched || !result.Changed {
			t.Errorf("expected patched and changed, got %+v", result)
		}

		data, err := os.ReadFile(entry)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(data), `src="./js/app.js"`) {
			t.Errorf("expected rewritten document, got %q", string(data))
		}
	})

	t.Run("backup carries the original bytes and a timestamped name", func(t *testing.T) {
		t.Parallel()
		entry := filepath.Join(t.TempDir(), "index.html")
		doc := `<script src="https://example.com/app.js"></script>`
		if err := os.WriteFile(entry, []byte(doc), 0600); err != nil {
			t.Fatal(err)
		}

		fixed := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
		p := New(WithNow(func() time.Time { return fixed }))

		result, err := p.Patch(entry, policy)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		wantBackup := entry + ".bak-20260314-150926"
		if result.BackupFile != wantBackup {
			t.Errorf("expected backup %s, got %s", wantBackup, result.BackupFile)
		}

		backup, err := os.ReadFile(result.BackupFile)
		if err != nil {
			t.Fatalf("expected backup file, got %v", err)
		}
		if string(backup) != doc {
			t.Errorf("expected backup to hold original bytes, got %q", string(backup))
		}
	})

	t.Run("no backup when disabled", func(t *testing.T) {
		t.Parallel()
		entry := filepath.Join(t.TempDir(), "index.html")
		if err := os.WriteFile(entry, []byte("<html></html>"), 0600); err != nil {
			t.Fatal(err)
		}

		p := New(WithBackup(false))
		result, err := p.Patch(entry, policy)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.BackupFile != "" {
			t.Errorf("expected no backup, got %s", result.BackupFile)
		}
	})

	t.Run("document without matching references is patched but unchanged", func(t *testing.T) {
		t.Parallel()
		entry := filepath.Join(t.TempDir(), "index.html")
		doc := `<html><body>plain</body></html>`
		if err := os.WriteFile(entry, []byte(doc), 0600); err != nil {
			t.Fatal(err)
		}

		p := New(WithBackup(false))
		result, err := p.Patch(entry, policy)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !result.Patched {
			t.Error("expected patched to be true")
		}
		if result.Changed {
			t.Error("expected changed to be false")
		}
	})

	t.Run("empty entry path is not an error", func(t *testing.T) {
		t.Parallel()
		p := New()
		result, err := p.Patch("", policy)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.Patched {
			t.Error("expected nothing to be patched")
		}
	})

	t.Run("missing entry file is not an error", func(t *testing.T) {
		t.Parallel()
		p := New()
		result, err := p.Patch(filepath.Join(t.TempDir(), "index.html"), policy)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.Patched {
			t.Error("expected nothing to be patched")
		}
		if result.EntryFile != "" {
			t.Errorf("expected no entry file recorded, got %s", result.EntryFile)
		}
	})

	t.Run("custom rewriter is used", func(t *testing.T) {
		t.Parallel()
		entry := filepath.Join(t.TempDir(), "index.html")
		if err := os.WriteFile(entry, []byte("original"), 0600); err != nil {
			t.Fatal(err)
		}

		p := New(WithBackup(false), WithRewriter(staticRewriter{}))
		result, err := p.Patch(entry, policy)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !result.Changed {
			t.Error("expected change from custom rewriter")
		}

		data, err := os.ReadFile(entry)
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != "replaced" {
			t.Errorf("expected custom rewriter output, got %q", string(data))
		}
	})
}

// staticRewriter replaces the whole document, for exercising the rewriter
// injection point.
type staticRewriter struct{}

func (staticRewriter) Rewrite(_ string, _ *Policy) (string, error) { return "replaced", nil }
func (staticRewriter) Name() string                                { return "static" }
