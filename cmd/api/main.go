package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/utilitysplitter/backend/internal/cli"
	"github.com/utilitysplitter/backend/internal/infrastructure/config"
)

func main() {
	// Load .env if present, real env vars win
	_ = godotenv.Load()

	flags := cli.ParseServeFlags()
	cfg := config.LoadOrEnvWithPath(flags.ConfigPath)

	if err := cli.RunServe(cfg, flags); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
