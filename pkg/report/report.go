// Package report aggregates per-file outcomes into a sorted, counted report
// and renders it as text or JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Tag is the outcome of one file.
type Tag string

const (
	TagFixed           Tag = "fixed"
	TagAlreadyCorrect  Tag = "already_correct"
	TagMetadataAbsent  Tag = "metadata_absent"
	TagIgnored         Tag = "ignored"
	TagIOError         Tag = "io_error"
	TagPermissionError Tag = "permission_error"
)

// Tags lists every tag in report order.
var Tags = []Tag{
	TagFixed,
	TagAlreadyCorrect,
	TagMetadataAbsent,
	TagIgnored,
	TagIOError,
	TagPermissionError,
}

var labels = map[Tag]string{
	TagFixed:           "fixed",
	TagAlreadyCorrect:  "already correct",
	TagMetadataAbsent:  "metadata absent",
	TagIgnored:         "ignored",
	TagIOError:         "io errors",
	TagPermissionError: "permission errors",
}

// Failed reports whether the tag is an error outcome.
func (t Tag) Failed() bool {
	return t == TagIOError || t == TagPermissionError
}

// Record is the outcome for a single path.
type Record struct {
	Path    string `json:"path"`
	Tag     Tag    `json:"tag"`
	Message string `json:"message,omitempty"`
}

// Report is the result of one run.
type Report struct {
	Root    string        `json:"root"`
	DryRun  bool          `json:"dry_run,omitempty"`
	Records []Record      `json:"records"`
	Counts  map[Tag]int   `json:"counts"`
	Elapsed time.Duration `json:"elapsed_ns,omitempty"`
}

// Build sorts records by path and derives the counts. Records sharing a path
// keep their relative order.
func Build(root string, records []Record) *Report {
	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Path < sorted[j].Path
	})

	counts := make(map[Tag]int, len(Tags))
	for _, t := range Tags {
		counts[t] = 0
	}
	for _, r := range sorted {
		counts[r.Tag]++
	}

	return &Report{Root: root, Records: sorted, Counts: counts}
}

// Total is the number of records.
func (r *Report) Total() int {
	return len(r.Records)
}

// Failures returns the number of error records.
func (r *Report) Failures() int {
	return r.Counts[TagIOError] + r.Counts[TagPermissionError]
}

// Text renders the report.
func (r *Report) Text() string {
	var b strings.Builder
	_ = r.WriteText(&b)
	return b.String()
}

// WriteText renders counts in fixed tag order, then the fixed files and the
// failures. Other outcomes appear as counts only.
func (r *Report) WriteText(w io.Writer) error {
	var b strings.Builder

	fmt.Fprintf(&b, "mfdf report for files in %s:\n", r.Root)
	if r.DryRun {
		b.WriteString("  (dry run, no attributes were written)\n")
	}
	fmt.Fprintf(&b, "  %-18s %d\n", "examined:", r.Total())
	for _, t := range Tags {
		fmt.Fprintf(&b, "  %-18s %d\n", labels[t]+":", r.Counts[t])
	}

	var fixed, failed []Record
	for _, rec := range r.Records {
		switch {
		case rec.Tag == TagFixed:
			fixed = append(fixed, rec)
		case rec.Tag.Failed():
			failed = append(failed, rec)
		}
	}

	if len(fixed) > 0 {
		b.WriteString("\nfixed:\n")
		for i, rec := range fixed {
			fmt.Fprintf(&b, "  %d. '%s'", i+1, r.rel(rec.Path))
			if rec.Message != "" {
				fmt.Fprintf(&b, ": %s", rec.Message)
			}
			b.WriteByte('\n')
		}
	}

	if len(failed) > 0 {
		b.WriteString("\nfailure details:\n")
		for i, rec := range failed {
			fmt.Fprintf(&b, "  %d. %s in '%s'", i+1, rec.Tag, r.rel(rec.Path))
			if rec.Message != "" {
				fmt.Fprintf(&b, ": %s", rec.Message)
			}
			b.WriteByte('\n')
		}
	}

	if r.Elapsed > 0 {
		fmt.Fprintf(&b, "\ntime taken: %s\n", r.Elapsed.Round(time.Millisecond))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteJSON renders the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// rel shortens path to be relative to the root when it lies inside it.
func (r *Report) rel(path string) string {
	rel, err := filepath.Rel(r.Root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return filepath.ToSlash(rel)
}
