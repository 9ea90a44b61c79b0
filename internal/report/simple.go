package report

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/harmirror/internal/model"
)

// statusCaser renders file statuses as title-cased labels ("Skipped No Body").
var statusCaser = cases.Title(language.English)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with clear section
// formatting.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors because it works in all terminals and pipes cleanly to
// files and other tools.
type SimpleWriter struct {
	baseWriter

	// showFiles controls whether the per-file listing is printed.
	// The summary counts are always printed.
	showFiles bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowFiles enables the per-file listing in the output.
func WithShowFiles(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showFiles = show
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *model.MirrorReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeSummary(&sb, report)
	w.writeHosts(&sb, report)
	w.writeSkipsAndFailures(&sb, report)
	if w.showFiles {
		w.writeFiles(&sb, report)
	}
	w.writeFooter(&sb, report)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with run information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.MirrorReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                         HARMIRROR REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Archive:        %s\n", report.Archive))
	sb.WriteString(fmt.Sprintf("Site Root:      %s\n", report.SiteRoot))
	sb.WriteString(fmt.Sprintf("Mirror Date:    %s\n", report.DateMirrored.Format("2006-01-02 15:04:05 MST")))

	if report.ErrorMessage != "" {
		sb.WriteString(fmt.Sprintf("Status:         ERROR - %s\n", report.ErrorMessage))
	} else {
		sb.WriteString("Status:         Complete\n")
	}

	sb.WriteString("\n")
}

// writeSummary writes the per-status entry counts.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, report *model.MirrorReport) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("EXTRACTION SUMMARY\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("  Written:          %d\n", report.CountByStatus(model.StatusWritten)))
	sb.WriteString(fmt.Sprintf("  Skipped (image):  %d\n", report.CountByStatus(model.StatusSkippedImage)))
	sb.WriteString(fmt.Sprintf("  Skipped (no body): %d\n", report.CountByStatus(model.StatusSkippedNoBody)))
	sb.WriteString(fmt.Sprintf("  Failed:           %d\n", report.CountByStatus(model.StatusFailed)))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("  TOTAL:            %d entries\n", len(report.Files)))
	if report.CopiedFiles > 0 {
		sb.WriteString(fmt.Sprintf("  Copied to root:   %d\n", report.CopiedFiles))
	}
	sb.WriteString("\n")
}

// writeHosts writes the observed host set.
func (w *SimpleWriter) writeHosts(sb *strings.Builder, report *model.MirrorReport) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("OBSERVED HOSTS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(report.Hosts) == 0 {
		sb.WriteString("  No hosts observed\n")
	} else {
		for _, host := range report.Hosts {
			sb.WriteString(fmt.Sprintf("  [+] %s\n", host))
		}
	}
	sb.WriteString("\n")
}

// writeSkipsAndFailures lists bodiless entries and failed writes.
// These are the conditions an operator usually wants to review: a skipped
// body means the capture itself lacked the data.
func (w *SimpleWriter) writeSkipsAndFailures(sb *strings.Builder, report *model.MirrorReport) {
	noBody := report.CountByStatus(model.StatusSkippedNoBody)
	failed := report.FailedCount()
	if noBody == 0 && failed == 0 {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("SKIPPED AND FAILED ENTRIES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	for _, f := range report.Files {
		switch f.Status {
		case model.StatusSkippedNoBody:
			sb.WriteString(fmt.Sprintf("  [no body] %s (status %d)\n", f.URL, f.HTTPStatus))
		case model.StatusFailed:
			sb.WriteString(fmt.Sprintf("  [failed]  %s: %s\n", f.URL, f.Reason))
		case model.StatusWritten, model.StatusSkippedImage:
			// Listed only in the full file listing.
		}
	}
	sb.WriteString("\n")
}

// writeFiles lists every entry with its status label.
func (w *SimpleWriter) writeFiles(sb *strings.Builder, report *model.MirrorReport) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("FILES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	for _, f := range report.Files {
		label := statusCaser.String(f.Status.String())
		sb.WriteString(fmt.Sprintf("  [%s] %s", label, f.URL))
		if f.LocalPath != "" && f.Status == model.StatusWritten {
			sb.WriteString(fmt.Sprintf(" -> %s", f.LocalPath))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
}

// writeFooter writes the patch-phase outcome.
func (w *SimpleWriter) writeFooter(sb *strings.Builder, report *model.MirrorReport) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	if report.Patched {
		sb.WriteString(fmt.Sprintf("Patched entry document: %s\n", report.EntryFile))
		if report.BackupFile != "" {
			sb.WriteString(fmt.Sprintf("Backup:                 %s\n", report.BackupFile))
		}
		sb.WriteString("Scripts and stylesheets now resolve locally; images remain remote.\n")
	} else {
		sb.WriteString("Entry document was not patched (no entry file found).\n")
	}
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
