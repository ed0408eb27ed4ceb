package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"jordanella.com/escort-bot/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default Settings.ini and routes.yaml",
	RunE:  initFiles,
}

func init() {
	initCmd.Flags().Bool("force", false, "overwrite existing files")
}

func initFiles(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	force, _ := cmd.Flags().GetBool("force")

	settings := config.Default()
	routesPath := settings.Escort.RoutesFile
	if !filepath.IsAbs(routesPath) {
		routesPath = filepath.Join(filepath.Dir(configPath), routesPath)
	}

	if err := writeIfMissing(configPath, force, func() error { return config.Save(settings, configPath) }); err != nil {
		return err
	}
	return writeIfMissing(routesPath, force, func() error { return config.DefaultRoutes().Save(routesPath) })
}

func writeIfMissing(path string, force bool, write func() error) error {
	if _, err := os.Stat(path); err == nil && !force {
		fmt.Printf("%s exists, skipping (use --force to overwrite)\n", path)
		return nil
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := write(); err != nil {
		return err
	}
	fmt.Println("Wrote", path)
	return nil
}
