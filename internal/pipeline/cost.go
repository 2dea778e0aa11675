package pipeline

import (
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// PageCount returns the page count of the source PDF. Used only for the
// pre-run cost preview; the pipeline never parses document content.
func PageCount(pdfPath string) (int, error) {
	return api.PageCountFile(pdfPath)
}

// Estimate is a pre-run cost preview for one document.
type Estimate struct {
	Stage1 float64
	Stage3 float64
	Stage5 float64
	Stage6 float64
	Total  float64
}

// stage3BaselinePages is the page volume the stage 3 constant was
// calibrated against.
const stage3BaselinePages = 40

// EstimateForDocument scales the flat stage constants by document size.
// Only stage 3 scales with pages; the others are per-document.
func EstimateForDocument(costs CostTable, backend Backend, numPages int) Estimate {
	if costs == nil {
		costs = DefaultCosts()
	}
	if backend == "" {
		backend = BackendVast
	}
	b := string(backend)
	e := Estimate{
		Stage1: costs["stage1."+b],
		Stage3: costs["stage3."+b],
		Stage5: costs["stage5."+b],
		Stage6: costs["stage6.gemini"],
	}
	if numPages > 0 {
		e.Stage3 = e.Stage3 * float64(numPages) / stage3BaselinePages
	}
	e.Total = e.Stage1 + e.Stage3 + e.Stage5 + e.Stage6
	return e
}
