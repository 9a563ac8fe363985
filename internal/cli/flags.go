package cli

import (
	"flag"

	"github.com/utilitysplitter/backend/internal/application/service"
)

// SyncFlags are common flags for the sync command
type SyncFlags struct {
	ConfigPath string
	DryRun     bool
	Verbose    bool
}

// ParseSyncFlags parses common sync flags from command line
func ParseSyncFlags() SyncFlags {
	var flags SyncFlags
	flag.StringVar(&flags.ConfigPath, "config", "config.yaml", "Path to config file")
	flag.BoolVar(&flags.DryRun, "dry-run", false, "Run without making changes")
	flag.BoolVar(&flags.Verbose, "verbose", false, "Verbose output")
	flag.Parse()
	return flags
}

// ToSyncRequest converts SyncFlags to a service request
func (f SyncFlags) ToSyncRequest() service.SyncRequest {
	return service.SyncRequest{
		DryRun:  f.DryRun,
		Verbose: f.Verbose,
	}
}
