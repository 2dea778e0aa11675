package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewArtifactsPaths(t *testing.T) {
	a, err := NewArtifacts("input/TCS_AR_2024.pdf", "out")
	if err != nil {
		t.Fatalf("NewArtifacts: %v", err)
	}
	if a.DocID != "TCS_AR_2024" {
		t.Fatalf("DocID = %q, want TCS_AR_2024", a.DocID)
	}
	want := map[string]string{
		"StructureJSON":    filepath.Join("out", "stage0_structure", "TCS_AR_2024_structure.json"),
		"FlaggedJSON":      filepath.Join("out", "stage1_flagged_pages", "TCS_AR_2024_flagged.json"),
		"ImageManifest":    filepath.Join("out", "stage2_images", "TCS_AR_2024", "manifest.json"),
		"ExtractionsDir":   filepath.Join("out", "stage3_extractions", "TCS_AR_2024"),
		"ConsolidatedJSON": filepath.Join("out", "stage4_consolidated", "TCS_AR_2024_consolidated.json"),
		"FilteredJSON":     filepath.Join("out", "stage4_5_filtered", "TCS_AR_2024_filtered.json"),
		"VerifiedJSON":     filepath.Join("out", "stage5_verified", "TCS_AR_2024_verified.json"),
		"ReviewedJSON":     filepath.Join("out", "stage6_gemini_reviewed", "TCS_AR_2024_gemini_reviewed.json"),
		"DocumentCSV":      filepath.Join("out", "final", "TCS_AR_2024_extractions.csv"),
		"MasterCSV":        filepath.Join("out", "final", "extractions_for_bq.csv"),
	}
	got := map[string]string{
		"StructureJSON":    a.StructureJSON,
		"FlaggedJSON":      a.FlaggedJSON,
		"ImageManifest":    a.ImageManifest,
		"ExtractionsDir":   a.ExtractionsDir,
		"ConsolidatedJSON": a.ConsolidatedJSON,
		"FilteredJSON":     a.FilteredJSON,
		"VerifiedJSON":     a.VerifiedJSON,
		"ReviewedJSON":     a.ReviewedJSON,
		"DocumentCSV":      a.DocumentCSV,
		"MasterCSV":        a.MasterCSV,
	}
	for k, w := range want {
		if got[k] != w {
			t.Errorf("%s = %q, want %q", k, got[k], w)
		}
	}
	// every per-document artifact embeds the id verbatim
	for k, p := range got {
		if k == "MasterCSV" {
			continue
		}
		if !strings.Contains(p, "TCS_AR_2024") {
			t.Errorf("%s = %q does not embed the document id", k, p)
		}
	}
}

func TestNewArtifactsValidation(t *testing.T) {
	if _, err := NewArtifacts("", "out"); err == nil {
		t.Error("expected error for empty source path")
	}
	if _, err := NewArtifacts("a.pdf", ""); err == nil {
		t.Error("expected error for empty output root")
	}
}

func TestEnsureDirs(t *testing.T) {
	root := t.TempDir()
	a, err := NewArtifacts("TCS_AR_2024.pdf", root)
	if err != nil {
		t.Fatal(err)
	}
	if err := a.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs: %v", err)
	}
	for _, d := range []string{
		a.StructureDir, a.FlaggedDir, a.ImagesDir, a.ExtractionsRoot,
		a.ConsolidatedDir, a.FilteredDir, a.VerifiedDir, a.ReviewedDir, a.FinalDir,
	} {
		fi, err := os.Stat(d)
		if err != nil || !fi.IsDir() {
			t.Errorf("missing stage dir %s", d)
		}
	}
}
