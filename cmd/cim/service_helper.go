package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"cim/internal/command"
	"cim/internal/config"
	"cim/internal/format"
	"cim/internal/slogutil"
)

var (
	serviceOnce   sync.Once
	sharedService *command.Service
	serviceErr    error
)

// getService returns a shared command Service instance.
// The service (and the model behind it) is lazily loaded on first use.
func getService(repoRoot string, logger *slog.Logger) (*command.Service, error) {
	serviceOnce.Do(func() {
		cfg, err := config.LoadConfig(repoRoot)
		if err != nil {
			logger.Warn("failed to load config, using defaults", "error", err)
			cfg = config.DefaultConfig()
		}

		svc, err := command.NewService(repoRoot, cfg, logger)
		if err != nil {
			serviceErr = err
			return
		}
		sharedService = svc
	})

	return sharedService, serviceErr
}

// mustGetService returns the shared Service or exits on error.
// Model-load failures (missing or malformed model) are fatal by design.
func mustGetService(repoRoot string, logger *slog.Logger) *command.Service {
	svc, err := getService(repoRoot, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return svc
}

// getRepoRoot resolves the repository root from --repo-root or the
// working directory.
func getRepoRoot() (string, error) {
	if repoRootFlag != "" {
		return filepath.Abs(repoRootFlag)
	}
	return os.Getwd()
}

// mustGetRepoRoot returns the repository root or exits on error.
func mustGetRepoRoot() string {
	repoRoot, err := getRepoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return repoRoot
}

// newLogger builds the CLI logger. Logs go to stderr so stdout stays
// clean for command output.
func newLogger() *slog.Logger {
	return slogutil.NewStderrLogger(slogutil.LevelFromVerbosity(verbosity, quietFlag))
}

// newContext creates a context for command execution.
func newContext() context.Context {
	return context.Background()
}

// render writes a command response to stdout in the requested format,
// or exits with an error for an unknown format.
func render(v interface{}) {
	f, err := format.Parse(formatFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := format.Render(os.Stdout, f, v); err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}
}

// exitErr reports a command failure on stderr and exits.
func exitErr(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
