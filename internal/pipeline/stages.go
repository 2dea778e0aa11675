package pipeline

import (
	"fmt"
	"path/filepath"
	"strconv"
)

// Backend selects which implementation runs the inference-heavy stages
// (1, 3, 5): dedicated rented GPU compute, or the hosted Gemini API.
type Backend string

const (
	BackendVast   Backend = "vast"
	BackendGemini Backend = "gemini"
)

// CostTable maps "<stage>.<backend>" to a flat estimated cost in USD.
// These are static estimates, not metered billing, so they stay
// overridable from the settings store.
type CostTable map[string]float64

// DefaultCosts returns the compiled-in estimates. Local stages (0, 2, 4,
// 4.5, 7) carry no direct cost and have no entry.
func DefaultCosts() CostTable {
	return CostTable{
		"stage1.vast":   0.006,
		"stage1.gemini": 0.02,
		"stage3.vast":   0.012,
		"stage3.gemini": 0.15,
		"stage5.vast":   0.006,
		"stage5.gemini": 0.02,
		"stage6.gemini": 0.03,
	}
}

// Merge returns a copy of t with entries from over replacing defaults.
func (t CostTable) Merge(over map[string]float64) CostTable {
	out := make(CostTable, len(t))
	for k, v := range t {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}

// Options controls plan construction for a single document run.
type Options struct {
	Backend           Backend
	SkipPageSelection bool
	SkipVerification  bool
	SkipReview        bool
	ReviewThreshold   float64
	AppendMaster      bool
	PythonBin         string
	ScriptsDir        string
	DPI               int
	Costs             CostTable
}

// StageSpec is one planned external invocation.
type StageSpec struct {
	Label   string // "0", "1", ..., "4.5", ..., "7"
	Title   string
	Script  string
	Args    []string
	CostUSD float64
	Output  string // declared primary output artifact
}

// Plan is the fully resolved stage sequence for one document, with skip
// aliasing already applied to the artifact chain.
type Plan struct {
	Artifacts Artifacts
	Stages    []StageSpec

	// VerifiedJSON and FinalJSON are the post-aliasing artifact paths:
	// skipping stage 5 aliases VerifiedJSON to the filtered output, and
	// skipping stage 6 aliases FinalJSON to VerifiedJSON.
	VerifiedJSON string
	FinalJSON    string

	// HostedAPIUsed is set when the higher-cost hosted backend replaced
	// dedicated compute for the extraction stages.
	HostedAPIUsed bool
}

// BuildPlan resolves the ordered stage list for art under opts.
// Requesting a skip of stage 1 fails here, before anything runs: the
// flag is reserved and the pipeline has no defined all-pages fallback.
func BuildPlan(art Artifacts, opts Options) (Plan, error) {
	if opts.SkipPageSelection {
		return Plan{}, ErrSkipUnsupported("1")
	}
	switch opts.Backend {
	case "", BackendVast:
		opts.Backend = BackendVast
	case BackendGemini:
	default:
		return Plan{}, fmt.Errorf("unknown backend %q", opts.Backend)
	}
	if opts.PythonBin == "" {
		opts.PythonBin = "python3"
	}
	if opts.ScriptsDir == "" {
		opts.ScriptsDir = "scripts"
	}
	if opts.DPI == 0 {
		opts.DPI = 300
	}
	if opts.ReviewThreshold == 0 {
		opts.ReviewThreshold = 0.70
	}
	if opts.Costs == nil {
		opts.Costs = DefaultCosts()
	}

	backend := string(opts.Backend)
	cost := func(stage string) float64 { return opts.Costs[stage+"."+backend] }

	p := Plan{
		Artifacts:     art,
		HostedAPIUsed: opts.Backend == BackendGemini,
	}
	add := func(s StageSpec) { p.Stages = append(p.Stages, s) }

	add(StageSpec{
		Label:  "0",
		Title:  "Structure Extraction",
		Script: filepath.Join(opts.ScriptsDir, "stage0_structure.py"),
		Args:   []string{art.PDF, "--output-dir", art.StructureDir},
		Output: art.StructureJSON,
	})
	add(StageSpec{
		Label:   "1",
		Title:   "Page Selection",
		Script:  filepath.Join(opts.ScriptsDir, "stage1_page_selection_"+backend+".py"),
		Args:    []string{art.StructureJSON, art.PDF, "--output-dir", art.FlaggedDir},
		CostUSD: cost("stage1"),
		Output:  art.FlaggedJSON,
	})
	add(StageSpec{
		Label:  "2",
		Title:  "Image Conversion",
		Script: filepath.Join(opts.ScriptsDir, "stage2_convert_images.py"),
		Args: []string{
			art.FlaggedJSON, art.PDF,
			"--output-dir", art.ImagesDir,
			"--dpi", strconv.Itoa(opts.DPI),
		},
		Output: art.ImageManifest,
	})
	add(StageSpec{
		Label:   "3",
		Title:   "KPI Extraction",
		Script:  filepath.Join(opts.ScriptsDir, "stage3_extract_kpis_"+backend+".py"),
		Args:    []string{art.ImageManifest, art.StructureJSON, "--output-dir", art.ExtractionsRoot},
		CostUSD: cost("stage3"),
		Output:  art.ExtractionsDir,
	})
	add(StageSpec{
		Label:  "4",
		Title:  "Consolidation",
		Script: filepath.Join(opts.ScriptsDir, "stage4_consolidate.py"),
		Args:   []string{art.ExtractionsDir, "--output-dir", art.ConsolidatedDir},
		Output: art.ConsolidatedJSON,
	})
	add(StageSpec{
		Label:  "4.5",
		Title:  "Garbage Filtering",
		Script: filepath.Join(opts.ScriptsDir, "stage4_5_filter_garbage.py"),
		Args:   []string{art.ConsolidatedJSON, "--output-dir", art.FilteredDir},
		Output: art.FilteredJSON,
	})

	p.VerifiedJSON = art.FilteredJSON
	if !opts.SkipVerification {
		add(StageSpec{
			Label:   "5",
			Title:   "Self-Verification",
			Script:  filepath.Join(opts.ScriptsDir, "stage5_self_verify_"+backend+".py"),
			Args:    []string{art.FilteredJSON, art.ImageManifest, "--output-dir", art.VerifiedDir},
			CostUSD: cost("stage5"),
			Output:  art.VerifiedJSON,
		})
		p.VerifiedJSON = art.VerifiedJSON
	}

	p.FinalJSON = p.VerifiedJSON
	if !opts.SkipReview {
		add(StageSpec{
			Label:  "6",
			Title:  "Gemini Review",
			Script: filepath.Join(opts.ScriptsDir, "stage6_gemini_review.py"),
			Args: []string{
				p.VerifiedJSON, art.ImageManifest,
				"--output-dir", art.ReviewedDir,
				"--threshold", strconv.FormatFloat(opts.ReviewThreshold, 'f', 2, 64),
			},
			CostUSD: opts.Costs["stage6.gemini"],
			Output:  art.ReviewedJSON,
		})
		p.FinalJSON = art.ReviewedJSON
	}

	exportArgs := []string{p.FinalJSON, "--output-dir", art.FinalDir}
	if !opts.AppendMaster {
		exportArgs = append(exportArgs, "--no-append")
	}
	add(StageSpec{
		Label:  "7",
		Title:  "CSV Export",
		Script: filepath.Join(opts.ScriptsDir, "stage7_export_csv.py"),
		Args:   exportArgs,
		Output: art.DocumentCSV,
	})

	return p, nil
}

// TotalEstimatedCost sums the flat cost constants of every planned stage.
func (p Plan) TotalEstimatedCost() float64 {
	var sum float64
	for _, s := range p.Stages {
		sum += s.CostUSD
	}
	return sum
}
