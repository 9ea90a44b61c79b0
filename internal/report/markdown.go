package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"

	"github.com/nao1215/harmirror/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides type-safe tables, lists, and GitHub-flavored
// alerts.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.MirrorReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeSummary(md, report)
	w.writeHosts(md, report)
	w.writeFailures(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.MirrorReport) {
	md.H1("Mirror Report")
	md.PlainText("")

	status := "Complete"
	if report.ErrorMessage != "" {
		status = "Error: " + report.ErrorMessage
	}

	entry := report.EntryFile
	if entry == "" {
		entry = "(none found)"
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Archive", "`" + report.Archive + "`"},
			{"Site Root", "`" + report.SiteRoot + "`"},
			{"Mirror Date", report.DateMirrored.Format("2006-01-02 15:04:05 MST")},
			{"Entry Document", "`" + entry + "`"},
			{"Status", status},
		},
	})
	md.PlainText("")
}

// writeSummary writes the per-status entry counts.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.MirrorReport) {
	md.H2("Extraction Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Outcome", "Count"},
		Rows: [][]string{
			{"Written", strconv.Itoa(report.CountByStatus(model.StatusWritten))},
			{"Skipped (image)", strconv.Itoa(report.CountByStatus(model.StatusSkippedImage))},
			{"Skipped (no body)", strconv.Itoa(report.CountByStatus(model.StatusSkippedNoBody))},
			{"Failed", strconv.Itoa(report.CountByStatus(model.StatusFailed))},
			{"Total entries", strconv.Itoa(len(report.Files))},
		},
	})
	md.PlainText("")

	if report.FailedCount() > 0 {
		md.Warningf("%d entries failed to extract; see the failures table below.", report.FailedCount())
	} else {
		md.Note("All extractable entries were written. Image references intentionally remain remote.")
	}
	md.PlainText("")
}

// writeHosts writes the observed host set.
func (w *MarkdownWriter) writeHosts(md *markdown.Markdown, report *model.MirrorReport) {
	md.H2("Observed Hosts")
	md.PlainText("")

	if len(report.Hosts) == 0 {
		md.PlainText("No hosts observed.")
		md.PlainText("")
		return
	}

	md.BulletList(report.Hosts...)
	md.PlainText("")
}

// writeFailures writes a table of failed entries.
func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, report *model.MirrorReport) {
	failures := report.Failures()
	if len(failures) == 0 {
		return
	}

	md.H2("Failures")
	md.PlainText("")

	rows := make([][]string, 0, len(failures))
	for _, f := range failures {
		rows = append(rows, []string{"`" + f.URL + "`", f.Reason})
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Reason"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("Generated by harmirror.")
}
