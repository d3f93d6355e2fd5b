package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/chris/phoenix/internal/session"
	"github.com/chris/phoenix/internal/stats"
	"github.com/chris/phoenix/internal/store"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	summaryWindow int
	exportFormat  string
)

var statsCmd = &cobra.Command{
	Use:   "stats [habit]",
	Short: "Show success rate, cravings and streaks",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := loadSession(cmd.Context())
		if err != nil {
			return err
		}
		printStats(cmd.OutOrStdout(), doc, habitsFor(doc, args), time.Now())
		return nil
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary [habit]",
	Short: "List the most recent check-ins",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := loadSession(cmd.Context())
		if err != nil {
			return err
		}
		for _, h := range habitsFor(doc, args) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s\n\n", h, stats.Summarize(doc.Logs, h, summaryWindow))
		}
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the whole session document to stdout",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		doc, err := st.Load(cmd.Context())
		if errors.Is(err, store.ErrNotFound) {
			return errors.New("nothing stored yet; run phoenix to start a session")
		}
		if err != nil {
			return err
		}
		return exportDocument(cmd.OutOrStdout(), doc, exportFormat)
	},
}

func init() {
	summaryCmd.Flags().IntVarP(&summaryWindow, "window", "n", stats.DefaultWindow, "Number of entries to show")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "Output format: json or yaml")
}

func loadSession(ctx context.Context) (*session.Document, error) {
	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}
	defer st.Close()
	return store.LoadOrEmpty(ctx, st, logger)
}

// habitsFor returns the named habit, or every logged habit, or the intake habit.
func habitsFor(doc *session.Document, args []string) []string {
	if len(args) > 0 {
		return args
	}
	if names := stats.HabitNames(doc.Logs); len(names) > 0 {
		return names
	}
	if h := doc.Habit(); h != "" {
		return []string{h}
	}
	return nil
}

func printStats(w io.Writer, doc *session.Document, habits []string, now time.Time) {
	if len(habits) == 0 {
		fmt.Fprintln(w, "No session yet. Run phoenix to start your intake.")
		return
	}
	for _, h := range habits {
		s := stats.ComputeStats(doc.Logs, h)
		fmt.Fprintln(w, h)
		if s.TotalDays == 0 {
			fmt.Fprintf(w, "  %s\n\n", stats.NoLogs)
			continue
		}
		current, longest := stats.Streaks(doc.Logs, h, now)
		fmt.Fprintf(w, "  days logged:   %d (%d success, %d slip, %d relapse)\n", s.TotalDays, s.SuccessDays, s.SlipDays, s.RelapseDays)
		fmt.Fprintf(w, "  success rate:  %.1f%%\n", s.SuccessRate)
		fmt.Fprintf(w, "  avg craving:   %.1f\n", s.AvgCraving)
		fmt.Fprintf(w, "  streak:        %d current, %d best\n", current, longest)
		if last, ok := stats.LastLogged(doc.Logs, h); ok {
			fmt.Fprintf(w, "  last check-in: %s\n", humanize.RelTime(last, now, "ago", "from now"))
		}
		fmt.Fprintln(w)
	}
}

func exportDocument(w io.Writer, doc *session.Document, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "    ")
		return enc.Encode(doc)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown format %q (want json or yaml)", format)
}
