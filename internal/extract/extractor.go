package extract

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/crypto/sha3"

	"github.com/nao1215/harmirror/internal/config"
	"github.com/nao1215/harmirror/internal/har"
	"github.com/nao1215/harmirror/internal/model"
)

// Extractor writes the response bodies recorded in a HAR archive to disk
// and collects the set of distinct hosts observed across all entries.
//
// Design decision: Per-entry failures become FileResult values rather than
// aborting extraction. The original workflow's catch-log-continue loop made
// the skip policy invisible; returning explicit results makes it testable
// and lets report writers show exactly what happened to every entry.
type Extractor struct {
	// outDir is the directory extracted files are written under.
	outDir string

	// imageExts are the path suffixes skipped before any write.
	// Compared case-insensitively against the decoded path.
	imageExts []string

	// logger reports per-entry progress and skips.
	logger *slog.Logger
}

// Result holds everything one extraction pass produced.
type Result struct {
	// Hosts is the sorted set of distinct URL authorities observed.
	Hosts []string

	// HostsFile is the path of the written host-set artifact.
	HostsFile string

	// Files holds one result per entry with a resolvable URL, in archive order.
	Files []model.FileResult
}

// Written returns the number of files written to disk.
func (r *Result) Written() int {
	n := 0
	for _, f := range r.Files {
		if f.Status == model.StatusWritten {
			n++
		}
	}
	return n
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets a custom logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// WithImageExtensions overrides the image suffix list.
func WithImageExtensions(exts []string) Option {
	return func(e *Extractor) {
		if len(exts) > 0 {
			e.imageExts = exts
		}
	}
}

// New creates an Extractor that writes under outDir.
func New(outDir string, opts ...Option) *Extractor {
	e := &Extractor{
		outDir:    outDir,
		imageExts: config.DefaultImageExtensions,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = slog.Default()
	}

	return e
}

// Extract walks every archive entry, writes non-image bodies under the
// output directory, and writes the host-set artifact.
//
// The host of every entry with a non-empty URL joins the host set BEFORE
// the image filter is applied: an image entry still contributes its host,
// because that host may also serve scripts or stylesheets that need
// rewriting. Entries with an empty or unparseable URL contribute nothing.
//
// Only context cancellation and a failure to write the hosts artifact are
// returned as errors; everything else is recorded per entry in the Result.
func (e *Extractor) Extract(ctx context.Context, archive *har.Archive) (*Result, error) {
	result := &Result{}
	hosts := make(map[string]struct{})

	for _, entry := range archive.Log.Entries {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		rawURL := entry.Request.URL
		if rawURL == "" {
			continue
		}

		u, err := url.Parse(rawURL)
		if err != nil || u.Host == "" {
			continue
		}
		hosts[u.Host] = struct{}{}

		localPath := DerivePath(u)
		fileResult := e.extractEntry(&entry, rawURL, localPath)
		result.Files = append(result.Files, fileResult)
	}

	result.Hosts = make([]string, 0, len(hosts))
	for h := range hosts {
		result.Hosts = append(result.Hosts, h)
	}
	sort.Strings(result.Hosts)

	hostsFile, err := e.writeHosts(result.Hosts)
	if err != nil {
		return nil, err
	}
	result.HostsFile = hostsFile

	e.logger.Debug("extraction complete",
		"written", result.Written(),
		"entries", len(result.Files),
		"hosts", len(result.Hosts),
	)

	return result, nil
}

// extractEntry produces the FileResult for a single entry whose URL parsed
// and carried a host.
func (e *Extractor) extractEntry(entry *har.Entry, rawURL, localPath string) model.FileResult {
	fileResult := model.FileResult{
		URL:       rawURL,
		LocalPath: localPath,
	}

	if e.isImagePath(localPath) {
		fileResult.Status = model.StatusSkippedImage
		fileResult.StatusText = fileResult.Status.String()
		e.logger.Debug("skipping image entry", "url", rawURL)
		return fileResult
	}

	content := &entry.Response.Content
	if !content.HasBody() {
		fileResult.Status = model.StatusSkippedNoBody
		fileResult.StatusText = fileResult.Status.String()
		fileResult.HTTPStatus = entry.Response.Status
		e.logger.Info("skipping entry without body",
			"url", rawURL,
			"status", entry.Response.Status,
		)
		return fileResult
	}

	data, _, err := content.Body()
	if err != nil {
		fileResult.Status = model.StatusFailed
		fileResult.StatusText = fileResult.Status.String()
		fileResult.Reason = err.Error()
		e.logger.Warn("failed to decode entry body", "url", rawURL, "error", err)
		return fileResult
	}

	outPath := filepath.Join(e.outDir, filepath.FromSlash(localPath))
	if err := safeWrite(outPath, data); err != nil {
		fileResult.Status = model.StatusFailed
		fileResult.StatusText = fileResult.Status.String()
		fileResult.Reason = err.Error()
		e.logger.Warn("failed to write entry", "path", outPath, "error", err)
		return fileResult
	}

	sum := sha3.Sum256(data)
	fileResult.Status = model.StatusWritten
	fileResult.StatusText = fileResult.Status.String()
	fileResult.Size = int64(len(data))
	fileResult.Hash = hex.EncodeToString(sum[:])
	e.logger.Debug("wrote entry", "path", outPath, "size", len(data))

	return fileResult
}

// DerivePath maps a parsed request URL to its path relative to the output
// root: the percent-decoded URL path with all leading slashes stripped, or
// <host>/index.html when the path is empty.
//
// Entries that derive the same path silently overwrite each other, later
// entries winning. This matches browser behavior: the last response for a
// resource is the one the page ultimately used.
func DerivePath(u *url.URL) string {
	// url.Parse already percent-decodes Path.
	p := strings.TrimLeft(u.Path, "/")
	if p == "" {
		p = u.Host + "/" + config.EntryFileName
	}
	return p
}

// isImagePath reports whether the decoded path ends in a recognized image
// extension.
func (e *Extractor) isImagePath(path string) bool {
	lower := strings.ToLower(path)
	for _, ext := range e.imageExts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// safeWrite writes data to path, creating parent directories as needed.
// Text and binary bodies take the same route: by this point both are raw
// bytes, so a single write call preserves content byte for byte.
func safeWrite(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("create parent directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

// writeHosts writes the sorted host set, newline-joined, to the hosts
// artifact in the output directory.
func (e *Extractor) writeHosts(hosts []string) (string, error) {
	path := filepath.Join(e.outDir, config.HostsFileName)
	if err := safeWrite(path, []byte(strings.Join(hosts, "\n"))); err != nil {
		return "", fmt.Errorf("write hosts artifact: %w", err)
	}
	return path, nil
}
