package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"finpipe/internal/bootstrap"
	"finpipe/internal/config"
	"finpipe/internal/execx"
	"finpipe/internal/vast"
)

type checkResult struct {
	name string
	ok   bool
	note string
}

func newVerifyCmd(st *rootState) *cobra.Command {
	var serverURL string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check that the environment can run the pipeline",
		Long: "Runs a checklist over the local environment: settings store, API keys,\n" +
			"stage scripts, interpreter, GPU tooling, rental API auth, and optionally a\n" +
			"running model server.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			checks := runChecks(cmd.Context(), st, serverURL)
			failed := 0
			for _, c := range checks {
				mark := color.GreenString("✓")
				if !c.ok {
					mark = color.RedString("✗")
					failed++
				}
				fmt.Printf("%s %-24s %s\n", mark, c.name, c.note)
			}
			if failed > 0 {
				return fmt.Errorf("%d check(s) failed", failed)
			}
			color.Green("Environment ready.")
			return nil
		},
	}

	cmd.Flags().StringVar(&serverURL, "server", "", "Also probe a model server's /health at this base URL")
	return cmd
}

func runChecks(ctx context.Context, st *rootState, serverURL string) []checkResult {
	var checks []checkResult
	add := func(name string, ok bool, note string) {
		checks = append(checks, checkResult{name: name, ok: ok, note: note})
	}

	settings, err := config.Load(st.settingsPath)
	if err != nil {
		settings = config.Default()
		add("settings store", false, fmt.Sprintf("%s: %v (pilot defaults in effect)", st.settingsPath, err))
	} else {
		add("settings store", true, st.settingsPath)
	}

	add("gemini api key", settings.GeminiAPIKey != "", keyNote(settings.GeminiAPIKey, "set gemini_api_key or GEMINI_API_KEY"))
	add("vast api key", settings.VastAPIKey != "", keyNote(settings.VastAPIKey, "set vast_api_key or VAST_API_KEY"))

	if fi, err := os.Stat(settings.Paths.Scripts); err == nil && fi.IsDir() {
		add("stage scripts", true, settings.Paths.Scripts)
	} else {
		add("stage scripts", false, settings.Paths.Scripts+" missing")
	}

	add("python3", execx.LookPath("python3"), "stage scripts run under python3")

	if gpus, err := bootstrap.ProbeGPUs(ctx); err != nil {
		add("local gpu", false, "nvidia-smi unavailable (fine for driver-only hosts)")
	} else {
		add("local gpu", true, fmt.Sprintf("%d device(s)", len(gpus)))
	}

	if settings.VastAPIKey != "" {
		err := withSpinner("checking rental API auth", func() error {
			authCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			defer cancel()
			return vast.New(settings.VastAPIKey).VerifyAuth(authCtx)
		})
		if err != nil {
			add("rental api auth", false, err.Error())
		} else {
			add("rental api auth", true, "authenticated")
		}
	}

	if serverURL != "" {
		err := withSpinner("probing model server", func() error {
			return bootstrap.WaitHealthy(ctx, serverURL, 15*time.Second)
		})
		if err != nil {
			add("model server", false, fmt.Sprintf("%s: %v", serverURL, err))
		} else {
			add("model server", true, serverURL+" healthy")
		}
	}

	return checks
}

func keyNote(key, hint string) string {
	if key != "" {
		return "present"
	}
	return hint
}

// withSpinner wraps a network probe with a terminal spinner so slow
// checks are visibly in flight.
func withSpinner(msg string, fn func() error) error {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + msg
	s.Start()
	defer s.Stop()
	return fn()
}
