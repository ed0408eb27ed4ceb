package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"jordanella.com/escort-bot/internal/playback"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the escort loop, puzzle watcher and auto-move",
	RunE:  runBot,
}

func init() {
	runCmd.Flags().Bool("stay", false, "keep the puzzle watcher and hotkeys running after the escort run ends")
	runCmd.Flags().Int("rounds", 0, "override [Escort] TargetRounds")
	runCmd.Flags().Bool("acknowledge", false, "acknowledge the usage notice for this run")
}

func runBot(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if rounds, _ := cmd.Flags().GetInt("rounds"); rounds > 0 {
		settings.Escort.TargetRounds = rounds
	}
	if ack, _ := cmd.Flags().GetBool("acknowledge"); ack {
		settings.Escort.Acknowledged = true
	}
	stay, _ := cmd.Flags().GetBool("stay")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Windows timers default to ~15.6ms granularity
	defer playback.BeginHighResolutionTimer()()

	a, err := newApp(ctx, settings)
	if err != nil {
		return err
	}
	defer a.close()

	a.logger.Info(fmt.Sprintf("Target rounds: %d, stop hotkey: %s", settings.Escort.TargetRounds, settings.Hotkeys.Stop))

	if err := a.host.Start(); err != nil {
		return fmt.Errorf("start tasks: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	runCtx, cancel := context.WithCancel(gctx)
	defer cancel()

	g.Go(func() error {
		return a.hotkeys.Run(runCtx)
	})
	if a.status != nil {
		g.Go(func() error {
			a.logger.Info("Status server listening on " + settings.Status.Listen)
			return a.status.Run(runCtx)
		})
	}
	g.Go(func() error {
		select {
		case <-a.host.Done(taskEscort):
			if stay {
				a.logger.Info("Escort run ended, other tasks keep running until interrupted")
				<-runCtx.Done()
				return nil
			}
			a.logger.Info("Escort run ended, shutting down")
			cancel()
		case <-runCtx.Done():
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
