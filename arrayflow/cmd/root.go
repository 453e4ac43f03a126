// Package cmd provides the command-line interface for arrayflow.
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// Environment variables that provide flag defaults. They can also be set in a
// .env file in the working directory.
const (
	EnvDB          = "ARRAYFLOW_DB"
	EnvMonitorPort = "ARRAYFLOW_MONITOR_PORT"
	EnvIterations  = "ARRAYFLOW_ITERATIONS"
	EnvRecordTo    = "ARRAYFLOW_RECORD_TO"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "arrayflow",
		Short: "arrayflow runs multidimensional dataflow graphs.",
		Long: `arrayflow runs multidimensional dataflow graphs described in ` +
			`JSON files. It can execute a graph, print its static schedule, ` +
			`show how a port walks through an array and list the firings ` +
			`a run recorded.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newScheduleCmd())
	rootCmd.AddCommand(newAddressCmd())
	rootCmd.AddCommand(newFiringsCmd())

	return rootCmd
}

// Execute loads the .env file, runs the command given on the command line
// and exits.
func Execute() {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Cannot load .env: %v\n", err)
	}

	if err := newRootCmd().Execute(); err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

func envString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}

	return fallback
}

func envInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ignoring %s=%q: %v\n", key, v, err)
		return fallback
	}

	return n
}
