// Icsneo is a command-line host for vehicle-network interface devices.
//
// It opens a device through a named profile (serial port, TCP socket,
// WebSocket bridge or the built-in simulator), and provides commands to
// read identity, monitor and transmit bus traffic, inspect and change the
// device settings structure, and share a locally attached device over the
// network.
//
// Usage:
//
//	icsneo [command] [flags]
//
// See 'icsneo --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/intrepidcs/libicsneo-sub002/internal/logging"
	"github.com/intrepidcs/libicsneo-sub002/internal/version"
)

func main() {
	err := rootCmd.Execute()
	logging.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Global flags
var (
	profileName string
	configPath  string
	logLevel    string
)

var rootCmd = &cobra.Command{
	Use:   "icsneo",
	Short: "Vehicle network interface host",
	Long: `A host utility for vehicle network interface devices.

Devices are reached through profiles stored in the configuration file.
The built-in "sim" profile talks to a simulated device and needs no
hardware, which makes it a good place to start:

  icsneo serial --profile sim`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := logLevel
		if level == "" && os.Getenv(logging.LogLevelEnvVar) == "" {
			if reg, _, err := loadRegistry(); err == nil && reg.Preferences != nil {
				level = reg.Preferences.LogLevel
			}
		}
		return logging.Initialize(level)
	},
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVarP(&profileName, "profile", "p", "", "Device profile (default: the configured default, else sim)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("icsneo %s\n", version.Full())
		if !version.IsRelease() {
			fmt.Printf("development build, %s\n", version.Get().GoVersion)
		}
	},
}
