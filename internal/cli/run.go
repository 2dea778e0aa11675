package cli

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"finpipe/internal/common/fsutil"
	"finpipe/internal/pipeline"
)

type runFlags struct {
	useGemini         bool
	skipPageSelection bool
	skipVerification  bool
	skipReview        bool
	noAppend          bool
	stream            bool
	outputDir         string
	threshold         float64
}

func newRunCmd(st *rootState) *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run <annual-report.pdf>",
		Short: "Run the full extraction pipeline for one PDF",
		Example: "  finpipe run input_pdfs/TCS_AR_2024.pdf\n" +
			"  finpipe run --use-gemini --skip-verification input_pdfs/TCS_AR_2024.pdf",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDocument(cmd, st, f, args[0])
		},
	}

	cmd.Flags().BoolVar(&f.useGemini, "use-gemini", false, "Run stages 1/3/5 on the hosted Gemini API instead of rented GPU compute")
	cmd.Flags().BoolVar(&f.skipPageSelection, "skip-page-selection", false, "Reserved; page selection cannot be skipped")
	cmd.Flags().BoolVar(&f.skipVerification, "skip-verification", false, "Skip stage 5; filtered output feeds review directly")
	cmd.Flags().BoolVar(&f.skipReview, "skip-review", false, "Skip stage 6; verified output feeds export directly")
	cmd.Flags().BoolVar(&f.noAppend, "no-append", false, "Do not append this document to the master BigQuery CSV")
	cmd.Flags().BoolVar(&f.stream, "stream", false, "Mirror stage script output live")
	cmd.Flags().StringVar(&f.outputDir, "output-dir", "", "Output root (defaults to the settings store's paths.output)")
	cmd.Flags().Float64Var(&f.threshold, "threshold", 0, "Confidence below which stage 6 re-reviews a value (defaults from settings)")
	return cmd
}

func runDocument(cmd *cobra.Command, st *rootState, f runFlags, pdfPath string) error {
	if !fsutil.PathExists(pdfPath) {
		return fmt.Errorf("input PDF not found: %s", pdfPath)
	}

	settings := st.loadSettings()
	outputDir := f.outputDir
	if outputDir == "" {
		outputDir = settings.Paths.Output
	}
	threshold := f.threshold
	if threshold == 0 {
		threshold = settings.Processing.ReviewThreshold
	}

	art, err := pipeline.NewArtifacts(pdfPath, outputDir)
	if err != nil {
		return err
	}
	if err := art.EnsureDirs(); err != nil {
		return err
	}

	backend := pipeline.BackendVast
	if f.useGemini {
		backend = pipeline.BackendGemini
	}
	costs := pipeline.DefaultCosts().Merge(settings.CostEstimates)
	plan, err := pipeline.BuildPlan(art, pipeline.Options{
		Backend:           backend,
		SkipPageSelection: f.skipPageSelection,
		SkipVerification:  f.skipVerification,
		SkipReview:        f.skipReview,
		ReviewThreshold:   threshold,
		AppendMaster:      !f.noAppend,
		ScriptsDir:        settings.Paths.Scripts,
		DPI:               settings.Processing.ImageDPI,
		Costs:             costs,
	})
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	printPreview(art, plan, costs, backend)
	st.log.Info().Str("run_id", runID).Str("doc", art.DocID).Int("stages", len(plan.Stages)).Msg("run starting")

	runner := &pipeline.Runner{Log: st.log, Stream: f.stream}
	start := time.Now()
	tot, results, runErr := runner.Run(cmd.Context(), plan, pipeline.Totals{})
	printSummary(runID, plan, tot, results, time.Since(start), runErr)
	return runErr
}

func printPreview(art pipeline.Artifacts, plan pipeline.Plan, costs pipeline.CostTable, backend pipeline.Backend) {
	fmt.Printf("Document: %s\n", art.DocID)
	pages, err := pipeline.PageCount(art.PDF)
	if err != nil {
		color.Yellow("⚠ could not count pages (%v); preview uses baseline volume", err)
		pages = 0
	} else {
		fmt.Printf("Pages:    %d\n", pages)
	}
	est := pipeline.EstimateForDocument(costs, backend, pages)
	fmt.Printf("Stages:   %d planned\n", len(plan.Stages))
	fmt.Printf("Estimate: $%.3f (stage1 $%.3f, stage3 $%.3f, stage5 $%.3f, stage6 $%.3f)\n",
		est.Total, est.Stage1, est.Stage3, est.Stage5, est.Stage6)
}

func printSummary(runID string, plan pipeline.Plan, tot pipeline.Totals, results []pipeline.StageResult, wall time.Duration, runErr error) {
	art := plan.Artifacts
	fmt.Println()
	if runErr == nil {
		color.Green("Pipeline complete: %s", art.DocID)
	} else if label, ok := pipeline.FailedStage(runErr); ok {
		color.Red("Pipeline aborted at stage %s: %s", label, art.DocID)
	} else {
		color.Red("Pipeline aborted: %s", art.DocID)
	}
	fmt.Printf("  run id:        %s\n", runID)
	fmt.Printf("  stages run:    %d\n", len(results))
	fmt.Printf("  stage time:    %s\n", tot.Elapsed.Round(time.Second))
	fmt.Printf("  wall time:     %s\n", wall.Round(time.Second))
	fmt.Printf("  est. cost:     $%.3f\n", tot.CostUSD)
	if runErr == nil {
		fmt.Printf("  document csv:  %s\n", art.DocumentCSV)
		fmt.Printf("  master csv:    %s\n", art.MasterCSV)
		if plan.HostedAPIUsed {
			color.Yellow("⚠ hosted API ran the extraction stages; production runs should prefer dedicated compute")
		}
	}
}
