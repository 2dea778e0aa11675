package main

import (
	"os"

	"github.com/joho/godotenv"

	"finpipe/internal/cli"
)

func main() {
	// Optional .env for local API keys; absence is not an error.
	_ = godotenv.Load()
	os.Exit(cli.Execute())
}
