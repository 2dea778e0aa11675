package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"finpipe/internal/batch"
	"finpipe/internal/pipeline"
)

func newBatchCmd(st *rootState) *cobra.Command {
	var (
		inputDir    string
		metricsAddr string
		interval    time.Duration
		once        bool
		useGemini   bool
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Process every PDF in the input directory, watching for new arrivals",
		Example: "  finpipe batch\n" +
			"  finpipe batch --once --input input_pdfs\n" +
			"  finpipe batch --metrics-addr :9090",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := st.loadSettings()
			if inputDir == "" {
				inputDir = settings.Paths.InputPDFs
			}

			backend := pipeline.BackendVast
			if useGemini {
				backend = pipeline.BackendGemini
			}
			costs := pipeline.DefaultCosts().Merge(settings.CostEstimates)

			m := batch.NewMetrics()
			if metricsAddr != "" {
				srv := &http.Server{Addr: metricsAddr, Handler: m.Router()}
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						st.log.Error().Err(err).Msg("metrics listener stopped")
					}
				}()
				defer srv.Close()
				st.log.Info().Str("addr", metricsAddr).Msg("metrics listener up")
			}

			w := &batch.Watcher{
				InputDir: inputDir,
				Log:      st.log,
				Metrics:  m,
				Run: func(ctx context.Context, pdf string) (pipeline.Totals, error) {
					art, err := pipeline.NewArtifacts(pdf, settings.Paths.Output)
					if err != nil {
						return pipeline.Totals{}, err
					}
					if err := art.EnsureDirs(); err != nil {
						return pipeline.Totals{}, err
					}
					plan, err := pipeline.BuildPlan(art, pipeline.Options{
						Backend:         backend,
						ReviewThreshold: settings.Processing.ReviewThreshold,
						AppendMaster:    true,
						ScriptsDir:      settings.Paths.Scripts,
						DPI:             settings.Processing.ImageDPI,
						Costs:           costs,
					})
					if err != nil {
						return pipeline.Totals{}, err
					}
					runner := &pipeline.Runner{Log: st.log, Observe: m.ObserveStage}
					tot, _, err := runner.Run(ctx, plan, pipeline.Totals{})
					return tot, err
				},
			}

			if once {
				sum, err := w.Sweep(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Printf("Batch sweep: %d processed, %d failed, %d skipped, est. cost $%.3f\n",
					sum.Processed, sum.Failed, sum.Skipped, sum.Totals.CostUSD)
				if sum.Failed > 0 {
					return fmt.Errorf("%d document(s) failed", sum.Failed)
				}
				return nil
			}
			return w.Watch(cmd.Context(), interval)
		},
	}

	cmd.Flags().StringVar(&inputDir, "input", "", "Input directory (defaults to the settings store's paths.input_pdfs)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve /metrics and /healthz on this address (empty disables)")
	cmd.Flags().DurationVar(&interval, "interval", 60*time.Second, "How often to re-scan the input directory")
	cmd.Flags().BoolVar(&once, "once", false, "Sweep the directory once and exit instead of watching")
	cmd.Flags().BoolVar(&useGemini, "use-gemini", false, "Run stages 1/3/5 on the hosted Gemini API")
	return cmd
}
