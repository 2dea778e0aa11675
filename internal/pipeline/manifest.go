package pipeline

import (
	"fmt"
	"path/filepath"

	"finpipe/internal/common/fsutil"
)

// Artifacts is the typed manifest of every path a run produces. All stage
// wiring reads from here; nothing re-derives paths at call sites. The
// document id is embedded verbatim in every derived name.
type Artifacts struct {
	DocID string
	Root  string
	PDF   string

	StructureDir    string
	FlaggedDir      string
	ImagesDir       string
	ExtractionsRoot string
	ConsolidatedDir string
	FilteredDir     string
	VerifiedDir     string
	ReviewedDir     string
	FinalDir        string

	StructureJSON    string
	FlaggedJSON      string
	ImageManifest    string
	ExtractionsDir   string
	ConsolidatedJSON string
	FilteredJSON     string
	VerifiedJSON     string
	ReviewedJSON     string
	DocumentCSV      string
	MasterCSV        string
}

// NewArtifacts derives the full manifest for one document run.
func NewArtifacts(pdfPath, outputRoot string) (Artifacts, error) {
	if pdfPath == "" {
		return Artifacts{}, fmt.Errorf("empty source path")
	}
	if outputRoot == "" {
		return Artifacts{}, fmt.Errorf("empty output root")
	}
	id := DocumentID(pdfPath)
	if id == "" {
		return Artifacts{}, fmt.Errorf("cannot derive document id from %q", pdfPath)
	}

	a := Artifacts{DocID: id, Root: outputRoot, PDF: pdfPath}
	a.StructureDir = filepath.Join(outputRoot, "stage0_structure")
	a.FlaggedDir = filepath.Join(outputRoot, "stage1_flagged_pages")
	a.ImagesDir = filepath.Join(outputRoot, "stage2_images")
	a.ExtractionsRoot = filepath.Join(outputRoot, "stage3_extractions")
	a.ConsolidatedDir = filepath.Join(outputRoot, "stage4_consolidated")
	a.FilteredDir = filepath.Join(outputRoot, "stage4_5_filtered")
	a.VerifiedDir = filepath.Join(outputRoot, "stage5_verified")
	a.ReviewedDir = filepath.Join(outputRoot, "stage6_gemini_reviewed")
	a.FinalDir = filepath.Join(outputRoot, "final")

	a.StructureJSON = filepath.Join(a.StructureDir, id+"_structure.json")
	a.FlaggedJSON = filepath.Join(a.FlaggedDir, id+"_flagged.json")
	a.ImageManifest = filepath.Join(a.ImagesDir, id, "manifest.json")
	a.ExtractionsDir = filepath.Join(a.ExtractionsRoot, id)
	a.ConsolidatedJSON = filepath.Join(a.ConsolidatedDir, id+"_consolidated.json")
	a.FilteredJSON = filepath.Join(a.FilteredDir, id+"_filtered.json")
	a.VerifiedJSON = filepath.Join(a.VerifiedDir, id+"_verified.json")
	a.ReviewedJSON = filepath.Join(a.ReviewedDir, id+"_gemini_reviewed.json")
	a.DocumentCSV = filepath.Join(a.FinalDir, id+"_extractions.csv")
	a.MasterCSV = filepath.Join(a.FinalDir, "extractions_for_bq.csv")
	return a, nil
}

// EnsureDirs creates every stage output directory up front so stage
// scripts only ever write into existing paths.
func (a Artifacts) EnsureDirs() error {
	dirs := []string{
		a.StructureDir, a.FlaggedDir, a.ImagesDir, a.ExtractionsRoot,
		a.ConsolidatedDir, a.FilteredDir, a.VerifiedDir, a.ReviewedDir,
		a.FinalDir,
	}
	for _, d := range dirs {
		if err := fsutil.EnsureDir(d); err != nil {
			return fmt.Errorf("create %s: %w", d, err)
		}
	}
	return nil
}
