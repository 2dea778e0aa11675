package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"finpipe/internal/bootstrap"
	"finpipe/internal/vast"
)

func newRentCmd(st *rootState) *cobra.Command {
	var (
		mode    string
		gpuType string
		count   int
		minRAM  int
		wait    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "rent",
		Short: "Rent a GPU instance and boot a model server on it",
		Long: "Searches offers within the active tier's price limit, launches the\n" +
			"cheapest match with an onstart script that clones the pipeline repo and\n" +
			"boots the server for the requested mode, then waits for the instance to\n" +
			"come up.",
		Example: "  finpipe rent --mode page_selection --type RTX_4090\n" +
			"  finpipe rent --mode extraction --type H100_SXM --count 4 --min-ram 70",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := bootstrap.Resolve(mode); err != nil {
				return err
			}
			settings := st.loadSettings()
			if settings.VastAPIKey == "" {
				return fmt.Errorf("no rental API key: set vast_api_key in %s or VAST_API_KEY", st.settingsPath)
			}
			onstart, err := vast.OnstartScript(settings, mode)
			if err != nil {
				return err
			}

			tier := settings.Tier()
			client := vast.New(settings.VastAPIKey)
			ctx := cmd.Context()

			offers, err := withSpinnerOffers("searching offers", func() ([]vast.Offer, error) {
				return client.SearchOffers(ctx, vast.OfferQuery{
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
				return fmt.Errorf("no offers match %s x%d", gpuType, count)
			}
			offer := offers[0]

			image := settings.DockerImage
			if image == "" {
				image = vast.DefaultImage
			}
			st.log.Info().
				Int64("offer", offer.ID).
				Str("gpu", offer.GPUName).
				Float64("price_per_hour", offer.PricePerHour).
				Str("mode", mode).
				Msg("launching instance")

			id, err := client.LaunchInstance(ctx, offer.ID, vast.LaunchRequest{
				Image:   image,
				Onstart: onstart,
				DiskGB:  100,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Instance %d launched ($%.3f/hr, %s x%d)\n", id, offer.PricePerHour, offer.GPUName, offer.NumGPUs)

			var inst *vast.Instance
			err = withSpinner("waiting for instance to start", func() error {
				inst, err = client.WaitRunning(ctx, id, wait)
				return err
			})
			if err != nil {
				color.Yellow("Instance %d not running yet (%v); it keeps booting in the background.", id, err)
				fmt.Printf("Check later with: finpipe verify --server <url>, destroy with: finpipe destroy %d\n", id)
				return nil
			}
			color.Green("Instance %d running.", id)
			if url := inst.APIURL(); url != "" {
				fmt.Printf("  server:  %s (healthy once model weights finish downloading)\n", url)
			}
			fmt.Printf("  destroy: finpipe destroy %d\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "extraction", "Serving mode: page_selection|extraction|verification")
	cmd.Flags().StringVar(&gpuType, "type", "RTX_4090", "GPU model, underscores for spaces")
	cmd.Flags().IntVar(&count, "count", 1, "GPUs per instance")
	cmd.Flags().IntVar(&minRAM, "min-ram", 20, "Minimum VRAM per GPU in GB")
	cmd.Flags().DurationVar(&wait, "wait", 5*time.Minute, "How long to wait for the instance to reach running")
	return cmd
}

func newDestroyCmd(st *rootState) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "destroy <instance-id>",
		Short:   "Destroy a rented GPU instance",
		Example: "  finpipe destroy 123456",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("instance id must be numeric: %q", args[0])
			}
			settings := st.loadSettings()
			if settings.VastAPIKey == "" {
				return fmt.Errorf("no rental API key: set vast_api_key in %s or VAST_API_KEY", st.settingsPath)
			}
			if err := vast.New(settings.VastAPIKey).DestroyInstance(cmd.Context(), id); err != nil {
				return err
			}
			color.Green("Instance %d destroyed.", id)
			return nil
		},
	}
	return cmd
}
