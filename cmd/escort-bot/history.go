package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"jordanella.com/escort-bot/internal/database"
	"jordanella.com/escort-bot/internal/escort"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past escort sessions and per-branch statistics",
	RunE:  showHistory,
}

func init() {
	historyCmd.Flags().Int("limit", 10, "number of sessions to list")
	historyCmd.Flags().String("session", "", "show the attempts of one session")
	historyCmd.Flags().String("backup", "", "write a copy of the history database to this path")
}

func showHistory(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	db, err := database.OpenAndMigrate(settings.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	if backup, _ := cmd.Flags().GetString("backup"); backup != "" {
		if err := db.Backup(backup); err != nil {
			return err
		}
		fmt.Println("Backup written to", backup)
		return nil
	}

	if id, _ := cmd.Flags().GetString("session"); id != "" {
		return showSession(db, id)
	}

	limit, _ := cmd.Flags().GetInt("limit")
	sessions, err := db.ListSessions(limit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SESSION\tSTARTED\tROUNDS\tFAILED\tELAPSED")
	for _, s := range sessions {
		elapsed := "running"
		if s.ElapsedSeconds != nil {
			elapsed = escort.FormatDuration(time.Duration(*s.ElapsedSeconds) * time.Second)
		}
		fmt.Fprintf(w, "%s\t%s\t%d/%d\t%d\t%s\n", s.ID, s.StartedAt.Local().Format("2006-01-02 15:04"),
			s.RoundsCompleted, s.TargetRounds, s.FailedAttempts, elapsed)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	stats, err := db.GetPathStats()
	if err != nil {
		return err
	}
	if len(stats) == 0 {
		return nil
	}
	fmt.Println()
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "BRANCH\tATTEMPTS\tCOMPLETED\tAVG ROUND")
	for _, p := range stats {
		avg := escort.FormatDuration(time.Duration(p.AvgRoundSeconds * float64(time.Second)))
		fmt.Fprintf(w, "%d %s\t%d\t%d\t%s\n", p.PathID, p.PathName, p.Attempts, p.Completed, avg)
	}
	return w.Flush()
}

func showSession(db *database.DB, id string) error {
	session, err := db.GetSession(id)
	if err != nil {
		return err
	}
	attempts, err := db.ListAttempts(id)
	if err != nil {
		return err
	}

	fmt.Printf("Session %s: %d/%d rounds, %d failed attempts\n\n",
		session.ID, session.RoundsCompleted, session.TargetRounds, session.FailedAttempts)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tSEQUENCE\tBRANCH\tSTATUS\tDETAIL")
	for _, a := range attempts {
		branch := "-"
		if a.PathName != nil {
			branch = *a.PathName
		}
		detail := ""
		switch {
		case a.Reason != nil:
			detail = *a.Reason
		case a.RoundSeconds != nil:
			detail = escort.FormatDuration(time.Duration(*a.RoundSeconds * float64(time.Second)))
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", a.Attempt, a.Sequence, branch, a.Status, detail)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	reasons, err := db.GetFailureReasons(id)
	if err != nil || len(reasons) == 0 {
		return err
	}
	keys := make([]string, 0, len(reasons))
	for k := range reasons {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Println("\nFailures:")
	for _, k := range keys {
		fmt.Printf("  %-24s %d\n", k, reasons[k])
	}
	return nil
}
