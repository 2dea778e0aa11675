package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/rs/zerolog"

	"finpipe/internal/bootstrap"
)

func main() {
	// Flags with environment variable defaults; the container normally
	// drives everything through EXTRACTION_MODE.
	defaultCache := "/workspace/models"
	if v := os.Getenv("MODEL_CACHE_DIR"); v != "" {
		defaultCache = v
	}
	mode := flag.String("mode", os.Getenv(bootstrap.EnvMode), "Serving mode: page_selection|extraction|verification (defaults EXTRACTION_MODE or extraction)")
	cacheDir := flag.String("cache-dir", defaultCache, "Directory for downloaded model weights")
	serverDir := flag.String("server-dir", ".", "Directory holding the server programs")
	hubURL := flag.String("hub-url", bootstrap.DefaultHubURL, "Model hub base URL")
	port := flag.Int("port", bootstrap.ServePort, "Port the server binds")
	waitFor := flag.Duration("wait", 0, "Instead of booting, wait up to this long for a running server's /health")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger()

	// SIGTERM from the container runtime cancels the download or stops
	// the server cleanly.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *waitFor > 0 {
		s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		s.Suffix = fmt.Sprintf(" waiting for server health on port %d", *port)
		s.Start()
		err := bootstrap.WaitHealthy(ctx, fmt.Sprintf("http://127.0.0.1:%d", *port), *waitFor)
		s.Stop()
		if err != nil {
			fmt.Fprintf(os.Stderr, "modelboot: %v\n", err)
			os.Exit(1)
		}
		log.Info().Int("port", *port).Msg("server healthy")
		return
	}

	if err := bootstrap.Run(ctx, bootstrap.Options{
		Mode:      *mode,
		CacheDir:  *cacheDir,
		ServerDir: *serverDir,
		HubURL:    *hubURL,
		Port:      *port,
	}, log); err != nil {
		fmt.Fprintf(os.Stderr, "modelboot: %v\n", err)
		os.Exit(1)
	}
}
