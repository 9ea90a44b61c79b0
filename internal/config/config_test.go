package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// TestNewConfig verifies that NewConfig returns a Config with all expected
// default values. Changes to defaults are intentional when these fail.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default SiteRoot is current directory", func(t *testing.T) {
		t.Parallel()
		if cfg.SiteRoot != "." {
			t.Errorf("expected SiteRoot to be '.', got '%s'", cfg.SiteRoot)
		}
	})

	t.Run("default BatchSize is 1", func(t *testing.T) {
		t.Parallel()
		if cfg.BatchSize != DefaultBatchSize {
			t.Errorf("expected BatchSize to be %d, got %d", DefaultBatchSize, cfg.BatchSize)
		}
	})

	t.Run("default Backup is true", func(t *testing.T) {
		t.Parallel()
		if !cfg.Backup {
			t.Error("expected Backup to be true")
		}
	})

	t.Run("default ImageExtensions match the built-in list", func(t *testing.T) {
		t.Parallel()
		if len(cfg.ImageExtensions) != len(DefaultImageExtensions) {
			t.Fatalf("expected %d image extensions, got %d",
				len(DefaultImageExtensions), len(cfg.ImageExtensions))
		}
		for i, ext := range DefaultImageExtensions {
			if cfg.ImageExtensions[i] != ext {
				t.Errorf("expected extension %d to be %s, got %s", i, ext, cfg.ImageExtensions[i])
			}
		}
	})

	t.Run("default UseDOMRewriter is false", func(t *testing.T) {
		t.Parallel()
		if cfg.UseDOMRewriter {
			t.Error("expected UseDOMRewriter to be false")
		}
	})
}

// TestConfigValidate tests the Validate method with various configurations.
// Each test case covers one specific validation rule.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	// validConfig returns a minimal valid configuration.
	// Tests modify specific fields to trigger validation rules.
	validConfig := func() *Config {
		return &Config{
			Archives:  []string{"capture.har"},
			SiteRoot:  ".",
			BatchSize: 1,
		}
	}

	t.Run("valid config returns nil", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("multiple archives is valid", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.Archives = []string{"a.har", "b.har", "c.har"}

		if err := cfg.Validate(); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("empty archives returns ErrNoArchive", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.Archives = nil

		if !errors.Is(cfg.Validate(), ErrNoArchive) {
			t.Errorf("expected ErrNoArchive, got %v", cfg.Validate())
		}
	})

	t.Run("empty site root returns ErrEmptySiteRoot", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.SiteRoot = ""

		if !errors.Is(cfg.Validate(), ErrEmptySiteRoot) {
			t.Errorf("expected ErrEmptySiteRoot, got %v", cfg.Validate())
		}
	})

	t.Run("zero batch size returns ErrInvalidBatchSize", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.BatchSize = 0

		if !errors.Is(cfg.Validate(), ErrInvalidBatchSize) {
			t.Errorf("expected ErrInvalidBatchSize, got %v", cfg.Validate())
		}
	})

	t.Run("negative batch size returns ErrInvalidBatchSize", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.BatchSize = -3

		if !errors.Is(cfg.Validate(), ErrInvalidBatchSize) {
			t.Errorf("expected ErrInvalidBatchSize, got %v", cfg.Validate())
		}
	})

	t.Run("both report formats returns ErrConflictingReportFormats", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.JSONReport = true
		cfg.MarkdownReport = true

		if !errors.Is(cfg.Validate(), ErrConflictingReportFormats) {
			t.Errorf("expected ErrConflictingReportFormats, got %v", cfg.Validate())
		}
	})

	t.Run("single report format is valid", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.JSONReport = true

		if err := cfg.Validate(); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})
}

// TestXDGDirs verifies the XDG helpers end in the application name.
func TestXDGDirs(t *testing.T) {
	t.Parallel()

	if filepath.Base(XDGDataDir()) != AppName {
		t.Errorf("expected data dir to end in %s, got %s", AppName, XDGDataDir())
	}
	if filepath.Base(XDGConfigDir()) != AppName {
		t.Errorf("expected config dir to end in %s, got %s", AppName, XDGConfigDir())
	}
}

// TestLoadConfigFile tests YAML config file loading.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("missing file returns ErrConfigNotFound", func(t *testing.T) {
		t.Parallel()
		_, err := LoadConfigFile(filepath.Join(t.TempDir(), "nonexistent"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("invalid YAML returns an error", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		if err := os.WriteFile(path, []byte("archives: [not: closed"), 0600); err != nil {
			t.Fatal(err)
		}

		if _, err := LoadConfigFile(path); err == nil {
			t.Error("expected an error for invalid YAML")
		}
	})

	t.Run("empty file yields empty config with initialized map", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		if err := os.WriteFile(path, []byte(""), 0600); err != nil {
			t.Fatal(err)
		}

		cf, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cf.Archives == nil {
			t.Error("expected Archives map to be initialized")
		}
	})

	t.Run("full config parses all fields", func(t *testing.T) {
		t.Parallel()
		content := `
defaults:
  backup: false
  extraHosts:
    - cdn.example.net
archives:
  site.har:
    imageExtensions:
      - .png
    entryCandidates:
      - public/index.html
    extraHosts:
      - static.example.org
    backup: true
`
		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		cf, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if cf.Defaults.Backup == nil || *cf.Defaults.Backup {
			t.Error("expected defaults.backup to be false")
		}

		ac, ok := cf.Archives["site.har"]
		if !ok {
			t.Fatal("expected archive config for site.har")
		}
		if len(ac.ImageExtensions) != 1 || ac.ImageExtensions[0] != ".png" {
			t.Errorf("unexpected image extensions: %v", ac.ImageExtensions)
		}
		if len(ac.EntryCandidates) != 1 || ac.EntryCandidates[0] != "public/index.html" {
			t.Errorf("unexpected entry candidates: %v", ac.EntryCandidates)
		}
		if ac.Backup == nil || !*ac.Backup {
			t.Error("expected archive backup override to be true")
		}
	})
}

// TestFindConfigFile tests explicit-path config file resolution.
// The cwd/home fallbacks are environment dependent and not exercised here.
func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("explicit existing path is returned as-is", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "custom.yml")
		if err := os.WriteFile(path, []byte("archives: {}"), 0600); err != nil {
			t.Fatal(err)
		}

		if got := FindConfigFile(path); got != path {
			t.Errorf("expected %s, got %s", path, got)
		}
	})

	t.Run("explicit missing path returns empty string", func(t *testing.T) {
		t.Parallel()
		missing := filepath.Join(t.TempDir(), "missing.yml")
		if got := FindConfigFile(missing); got != "" {
			t.Errorf("expected empty string, got %s", got)
		}
	})
}

// TestGetArchiveConfig tests the merge of per-archive config with defaults.
func TestGetArchiveConfig(t *testing.T) {
	t.Parallel()

	boolPtr := func(b bool) *bool { return &b }

	cf := &File{
		Defaults: ArchiveConfig{
			ExtraHosts: []string{"cdn.example.net"},
			Backup:     boolPtr(false),
		},
		Archives: map[string]ArchiveConfig{
			"site.har": {
				ImageExtensions: []string{".png"},
				ExtraHosts:      []string{"static.example.org"},
				Backup:          boolPtr(true),
			},
		},
	}

	t.Run("unknown archive gets defaults", func(t *testing.T) {
		t.Parallel()
		ac := cf.GetArchiveConfig("other.har")
		if len(ac.ExtraHosts) != 1 || ac.ExtraHosts[0] != "cdn.example.net" {
			t.Errorf("unexpected extra hosts: %v", ac.ExtraHosts)
		}
		if ac.Backup == nil || *ac.Backup {
			t.Error("expected inherited backup false")
		}
	})

	t.Run("known archive overrides defaults", func(t *testing.T) {
		t.Parallel()
		ac := cf.GetArchiveConfig("site.har")
		if len(ac.ImageExtensions) != 1 || ac.ImageExtensions[0] != ".png" {
			t.Errorf("unexpected image extensions: %v", ac.ImageExtensions)
		}
		if ac.Backup == nil || !*ac.Backup {
			t.Error("expected backup override true")
		}
	})

	t.Run("extra hosts accumulate across defaults and archive", func(t *testing.T) {
		t.Parallel()
		ac := cf.GetArchiveConfig("site.har")
		if len(ac.ExtraHosts) != 2 {
			t.Fatalf("expected 2 extra hosts, got %v", ac.ExtraHosts)
		}
		if ac.ExtraHosts[0] != "cdn.example.net" || ac.ExtraHosts[1] != "static.example.org" {
			t.Errorf("unexpected merge order: %v", ac.ExtraHosts)
		}
	})
}
