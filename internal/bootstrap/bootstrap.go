package bootstrap

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"

	"finpipe/internal/execx"
)

// Options configures one container bootstrap.
type Options struct {
	Mode      string // EXTRACTION_MODE value; empty means DefaultMode
	CacheDir  string
	ServerDir string // directory holding the server programs
	PythonBin string
	HubURL    string
	Port      int
}

// Run resolves the serving mode, ensures model weights are cached, and
// hands off to the selected server program. It returns only when the
// server exits; a clean server exit returns nil, anything else is the
// fatal startup/runtime error to report.
func Run(ctx context.Context, opts Options, log zerolog.Logger) error {
	mode, err := Resolve(opts.Mode)
	if err != nil {
		return err
	}
	if opts.PythonBin == "" {
		opts.PythonBin = "python3"
	}
	if opts.Port == 0 {
		opts.Port = ServePort
	}
	log.Info().
		Str("mode", mode.Name).
		Str("model", mode.ModelID).
		Str("server", mode.Server).
		Msg("bootstrap starting")

	// Inventory probe is informational; a host without nvidia-smi still
	// boots (CPU smoke environments, CI).
	if gpus, err := ProbeGPUs(ctx); err != nil {
		log.Warn().Err(err).Msg("GPU probe failed, continuing")
	} else {
		for _, g := range gpus {
			log.Info().Str("gpu", g.Name).Int("memory_mb", g.MemoryMB).Msg("GPU detected")
		}
	}

	dl := NewDownloader(opts.HubURL, opts.CacheDir)
	if dl.Cached(mode.ModelID) {
		log.Info().Str("path", dl.CachePath(mode.ModelID)).Msg("model weights cached, skipping download")
	} else {
		log.Info().Str("model", mode.ModelID).Msg("downloading model weights (one-time, may take minutes)")
		if err := dl.Ensure(ctx, mode.ModelID); err != nil {
			return fmt.Errorf("model download: %w", err)
		}
	}

	server := filepath.Join(opts.ServerDir, mode.Server)
	log.Info().Str("server", server).Int("port", opts.Port).Msg("handing off to server")
	res, err := execx.Run(ctx, execx.Cmd{
		Path: opts.PythonBin,
		Args: []string{server},
		Env: map[string]string{
			EnvMode:      mode.Name,
			"MODEL_ID":   mode.ModelID,
			"MODEL_PATH": dl.CachePath(mode.ModelID),
			"PORT":       strconv.Itoa(opts.Port),
		},
		Stream: true,
	})
	if err != nil {
		return fmt.Errorf("server %s exited with code %d: %w", mode.Server, res.ExitCode, err)
	}
	return nil
}
