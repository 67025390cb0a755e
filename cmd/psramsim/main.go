// Package main provides the psramsim command-line tool that runs traffic
// scenarios against the simulated PSRAM timing controller.
package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

var rootCmd = &cobra.Command{
	Use:   "psramsim",
	Short: "psramsim simulates a timing controller for page-mode PSRAM",
	Long: `psramsim runs cycle-accurate simulations of a timing controller ` +
		`driving an asynchronous page-mode PSRAM part. It reports access ` +
		`counts, page-hit rates, and simulated time, and can record a full ` +
		`access trace.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}

	// Flushes the trace recorders.
	atexit.Exit(0)
}
