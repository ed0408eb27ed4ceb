package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"jordanella.com/escort-bot/internal/config"
	"jordanella.com/escort-bot/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:           "escort-bot",
	Short:         "Replays recorded escort routes and solves the puzzles along the way",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "Settings.ini", "path to Settings.ini")
	rootCmd.PersistentFlags().String("log-level", "", "override [Logging] Level (DEBUG, INFO, WARN, ERROR)")

	rootCmd.AddCommand(runCmd, pathsCmd, historyCmd, initCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadSettings reads the --config file, resolves its relative paths and
// applies the log level
func loadSettings(cmd *cobra.Command) (*config.Settings, error) {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	settings, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, err
	}
	settings.Resolve(filepath.Dir(configPath))

	level := settings.Logging.Level
	if override, _ := cmd.Flags().GetString("log-level"); override != "" {
		level = override
	}
	logging.SetDefaultLevel(logging.ParseLevel(level))
	return settings, nil
}
