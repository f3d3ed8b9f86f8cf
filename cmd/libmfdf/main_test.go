//go:build cgo

package main

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestMakeReport_NilPath(t *testing.T) {
	if out := make_report(nil); out != nil {
		free_string(out)
		t.Fatalf("expected nil for a nil path")
	}
}

func TestMakeReport_Failures(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"empty", ""},
		{"invalid utf-8", "/tmp/\xff\xfe"},
		{"missing directory", filepath.Join(t.TempDir(), "missing")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := cString(tt.path)
			defer free_string(in)

			if out := make_report(in); out != nil {
				free_string(out)
				t.Fatalf("expected nil for %q", tt.path)
			}
		})
	}
}

func TestMakeReport_ReturnsReport(t *testing.T) {
	dir := t.TempDir()

	in := cString(dir)
	defer free_string(in)

	out := make_report(in)
	if out == nil {
		t.Fatalf("expected a report for %s", dir)
	}
	text := goString(out)
	free_string(out)

	if !strings.HasPrefix(text, "mfdf report for files in ") || !strings.Contains(text, dir) {
		t.Fatalf("unexpected report: %q", text)
	}
}

func TestFreeString_Nil(t *testing.T) {
	free_string(nil)
}
