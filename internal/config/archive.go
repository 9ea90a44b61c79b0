package config

// ArchiveConfig holds archive-specific configuration for a single HAR file.
// This allows customizing extraction and patch behavior per capture.
type ArchiveConfig struct {
	// ImageExtensions overrides the global image suffix list for this
	// archive. When empty, the global list is used.
	ImageExtensions []string `yaml:"imageExtensions,omitempty"`

	// EntryCandidates overrides the ordered entry-document search list.
	// Paths are tried in order; the first existing file is patched.
	EntryCandidates []string `yaml:"entryCandidates,omitempty"`

	// ExtraHosts are additional hosts treated as rewritable even when the
	// archive never recorded a request to them. Useful when a CDN host only
	// appears in markup, not in the capture.
	ExtraHosts []string `yaml:"extraHosts,omitempty"`

	// Backup controls the pre-patch snapshot for this archive.
	// Nil means inherit the global setting.
	Backup *bool `yaml:"backup,omitempty"`
}

// File represents the structure of the .harmirror configuration file.
type File struct {
	// Archives maps HAR file base names to their specific configurations.
	Archives map[string]ArchiveConfig `yaml:"archives,omitempty"`

	// Defaults contains default archive configuration applied to all
	// archives unless overridden per archive.
	Defaults ArchiveConfig `yaml:"defaults,omitempty"`
}

// GetArchiveConfig returns the configuration for a specific archive,
// merging the archive-specific configuration with defaults.
func (cf *File) GetArchiveConfig(name string) ArchiveConfig {
	// Start with defaults
	result := cf.Defaults

	// Override with archive-specific configuration if present
	if ac, ok := cf.Archives[name]; ok {
		if len(ac.ImageExtensions) > 0 {
			result.ImageExtensions = ac.ImageExtensions
		}
		if len(ac.EntryCandidates) > 0 {
			result.EntryCandidates = ac.EntryCandidates
		}
		if len(ac.ExtraHosts) > 0 {
			result.ExtraHosts = append(append([]string(nil), result.ExtraHosts...), ac.ExtraHosts...)
		}
		if ac.Backup != nil {
			result.Backup = ac.Backup
		}
	}

	return result
}
