package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"finpipe/internal/vast"
)

func newGPUsCmd(st *rootState) *cobra.Command {
	var (
		gpuType string
		count   int
		minRAM  int
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "gpus",
		Short: "List rentable GPU offers matching the pipeline's needs",
		Example: "  finpipe gpus\n" +
			"  finpipe gpus --type RTX_4090 --count 1\n" +
			"  finpipe gpus --type H100_SXM --count 4 --min-ram 70",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := st.loadSettings()
			if settings.VastAPIKey == "" {
				return fmt.Errorf("no rental API key: set vast_api_key in %s or VAST_API_KEY", st.settingsPath)
			}

			tier := settings.Tier()
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			offers, err := withSpinnerOffers("searching offers", func() ([]vast.Offer, error) {
				return vast.New(settings.VastAPIKey).SearchOffers(ctx, vast.OfferQuery{
					GPUType:       gpuType,
					GPUCount:      count,
					MinGPURamGB:   minRAM,
					Interruptible: tier.UseSpotInstances,
				})
			})
			if err != nil {
				return err
			}
			if len(offers) == 0 {
				color.Yellow("No offers match %s x%d.", gpuType, count)
				return nil
			}

			kind := "on-demand"
			if tier.UseSpotInstances {
				kind = "interruptible"
			}
			fmt.Printf("%d %s offer(s) for %s x%d:\n", len(offers), kind, gpuType, count)
			if len(offers) > limit {
				offers = offers[:limit]
			}
			for _, o := range offers {
				fmt.Printf("  #%-10d %-20s x%d  %5.1f GB  $%.3f/hr  reliability %.3f\n",
					o.ID, o.GPUName, o.NumGPUs, float64(o.GPURamMB)/1024, o.PricePerHour, o.Reliability)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&gpuType, "type", "RTX_4090", "GPU model, underscores for spaces")
	cmd.Flags().IntVar(&count, "count", 1, "GPUs per instance")
	cmd.Flags().IntVar(&minRAM, "min-ram", 20, "Minimum VRAM per GPU in GB")
	cmd.Flags().IntVar(&limit, "limit", 10, "Show at most this many offers")
	return cmd
}

func withSpinnerOffers(msg string, fn func() ([]vast.Offer, error)) ([]vast.Offer, error) {
	var offers []vast.Offer
	err := withSpinner(msg, func() error {
		var err error
		offers, err = fn()
		return err
	})
	return offers, err
}
