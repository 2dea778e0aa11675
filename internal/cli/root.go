// Package cli wires the finpipe command tree: single-document runs,
// directory batch mode, environment verification, and GPU offer lookup.
package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"finpipe/internal/config"
)

// rootState carries the persistent flag values shared by every
// subcommand.
type rootState struct {
	settingsPath string
	logLevel     string
	noColor      bool

	log zerolog.Logger
}

// loadSettings reads the settings store. A missing or malformed store
// is a warning, not a failure: the pipeline falls back to pilot-mode
// defaults so a fresh checkout still runs.
func (st *rootState) loadSettings() config.Settings {
	s, err := config.Load(st.settingsPath)
	if err != nil {
		st.log.Warn().Err(err).Str("path", st.settingsPath).Msg("settings unavailable, using pilot defaults")
		return config.Default()
	}
	return s
}

// NewRootCmd constructs the finpipe command tree.
func NewRootCmd() *cobra.Command {
	st := &rootState{}

	root := &cobra.Command{
		Use:           "finpipe",
		Short:         "Financial KPI extraction pipeline driver for annual-report PDFs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&st.settingsPath, "settings", config.DefaultPath, "Path to the settings store (json, yaml or toml)")
	root.PersistentFlags().StringVar(&st.logLevel, "log-level", "info", "Log level: debug|info|warn|error")
	root.PersistentFlags().BoolVar(&st.noColor, "no-color", false, "Disable colored status output")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if st.noColor {
			color.NoColor = true
		}
		lvl, err := zerolog.ParseLevel(st.logLevel)
		if err != nil {
			lvl = zerolog.InfoLevel
		}
		st.log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: st.noColor}).
			Level(lvl).
			With().Timestamp().Logger()
	}

	root.AddCommand(newRunCmd(st), newBatchCmd(st), newVerifyCmd(st), newGPUsCmd(st), newRentCmd(st), newDestroyCmd(st))
	return root
}

// Execute runs the command tree and returns a process exit code.
func Execute() int {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error: %v", err))
		return 1
	}
	return 0
}
