package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"jordanella.com/escort-bot/internal/config"
	"jordanella.com/escort-bot/internal/escort"
	"jordanella.com/escort-bot/internal/path"
)

var pathsCmd = &cobra.Command{
	Use:   "paths",
	Short: "Inspect the recorded escort sequences, puzzle paths and reference points",
	RunE:  showPaths,
}

func init() {
	pathsCmd.Flags().Int("width", 0, "scale reference points to this frame width")
	pathsCmd.Flags().Int("height", 0, "scale reference points to this frame height")
}

func showPaths(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	routes, err := config.LoadRoutes(settings.Escort.RoutesFile)
	if err != nil {
		return err
	}
	library, err := path.LoadLibrary(settings.Escort.PathsFile)
	if err != nil {
		return err
	}

	marker := path.KeyReleaseMarker(routes.MarkerKey)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SEQUENCE\tEVENTS\tSEGMENTS\tMARKERS\tDURATION")
	for _, name := range library.Names() {
		seq, err := library.Get(name)
		if err != nil {
			return err
		}
		segments := path.Split(seq, marker)
		markers := 0
		for _, s := range segments {
			if s.EndsOnMarker {
				markers++
			}
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%.2fs\n", name, len(seq), len(segments), markers, seq.Duration())
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if book, err := path.LoadPuzzleBook(settings.Puzzle.PathsFile); err != nil {
		fmt.Printf("\nPuzzle paths: unavailable (%v)\n", err)
	} else {
		fmt.Printf("\nPuzzle paths: %d\n", book.Len())
	}

	width, _ := cmd.Flags().GetInt("width")
	height, _ := cmd.Flags().GetInt("height")
	if width <= 0 || height <= 0 {
		width, height = routes.BaseWidth, routes.BaseHeight
	}

	fmt.Printf("\nInitial sequence: %s\nReference points at %dx%d:\n", settingsOr(settings.Escort.InitialSequence, routes.InitialSequence), width, height)
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tX\tY\tSEQUENCE")
	for _, p := range escort.ScaleReferencePoints(routes.ReferencePoints, routes.BaseWidth, routes.BaseHeight, width, height) {
		fmt.Fprintf(w, "%d\t%d\t%d\t%s\n", p.PathID, p.X, p.Y, p.Name)
	}
	return w.Flush()
}

func settingsOr(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
