package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRootHasExpectedSubcommands(t *testing.T) {
	root := NewRootCmd()
	want := map[string]bool{"run": false, "batch": false, "verify": false, "gpus": false}
	for _, c := range root.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestRunRequiresExactlyOnePDF(t *testing.T) {
	root := NewRootCmd()
	root.SetArgs([]string{"run"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	if err := root.Execute(); err == nil {
		t.Fatal("want arg-count error for bare run")
	}
}

func TestRunMissingInputFails(t *testing.T) {
	root := NewRootCmd()
	root.SetArgs([]string{"run", "--settings", "does-not-exist.json", "no/such/file.pdf"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	err := root.Execute()
	if err == nil {
		t.Fatal("want error for missing input PDF")
	}
	if !strings.Contains(err.Error(), "input PDF not found") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunRejectsSkipPageSelection(t *testing.T) {
	dir := t.TempDir()
	pdf := filepath.Join(dir, "TCS_AR_2024.pdf")
	if err := os.WriteFile(pdf, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatal(err)
	}

	root := NewRootCmd()
	root.SetArgs([]string{"run", "--settings", "does-not-exist.json", "--output-dir", dir, "--skip-page-selection", pdf})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	err := root.Execute()
	if err == nil {
		t.Fatal("want error for --skip-page-selection")
	}
	if !strings.Contains(err.Error(), "is not supported") {
		t.Fatalf("unexpected error: %v", err)
	}
}
