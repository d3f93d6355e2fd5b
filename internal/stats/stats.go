// Package stats summarises a habit's logged check-ins.
package stats

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/chris/phoenix/internal/session"
)

// NoLogs is returned by Summarize when the habit has no entries.
const NoLogs = "No logs yet for this habit."

// DefaultWindow is the number of entries Summarize shows.
const DefaultWindow = 7

type HabitStats struct {
	HabitName   string  `json:"habit_name" yaml:"habit_name"`
	TotalDays   int     `json:"total_days" yaml:"total_days"`
	SuccessDays int     `json:"success_days" yaml:"success_days"`
	SlipDays    int     `json:"slip_days" yaml:"slip_days"`
	RelapseDays int     `json:"relapse_days" yaml:"relapse_days"`
	SuccessRate float64 `json:"success_rate" yaml:"success_rate"` // percent, 0 to 100
	AvgCraving  float64 `json:"avg_craving" yaml:"avg_craving"`
}

// ForHabit returns the entries for habit, in log order.
func ForHabit(logs []session.HabitLogEntry, habit string) []session.HabitLogEntry {
	var out []session.HabitLogEntry
	for _, l := range logs {
		if l.HabitName == habit {
			out = append(out, l)
		}
	}
	return out
}

// ComputeStats counts outcomes and averages cravings. Empty input yields zeros.
func ComputeStats(logs []session.HabitLogEntry, habit string) HabitStats {
	st := HabitStats{HabitName: habit}
	cravings := 0
	for _, l := range ForHabit(logs, habit) {
		st.TotalDays++
		cravings += l.CravingsLevel
		switch l.Status {
		case session.StatusSuccess:
			st.SuccessDays++
		case session.StatusSlip:
			st.SlipDays++
		case session.StatusRelapse:
			st.RelapseDays++
		}
	}
	if st.TotalDays == 0 {
		return st
	}
	st.SuccessRate = float64(st.SuccessDays) / float64(st.TotalDays) * 100.0
	st.AvgCraving = float64(cravings) / float64(st.TotalDays)
	return st
}

// Summarize renders the last window entries for habit, oldest first.
func Summarize(logs []session.HabitLogEntry, habit string, window int) string {
	if window <= 0 {
		window = DefaultWindow
	}
	entries := ForHabit(logs, habit)
	if len(entries) == 0 {
		return NoLogs
	}
	if len(entries) > window {
		entries = entries[len(entries)-window:]
	}
	lines := make([]string, 0, len(entries))
	for _, l := range entries {
		lines = append(lines, fmt.Sprintf("%s | %s | craving=%d | notes=%s",
			l.Timestamp, strings.ToUpper(string(l.Status)), l.CravingsLevel, l.Notes))
	}
	return strings.Join(lines, "\n")
}

// HabitNames returns each habit that appears in logs, in first-seen order.
func HabitNames(logs []session.HabitLogEntry) []string {
	seen := make(map[string]bool)
	var names []string
	for _, l := range logs {
		if !seen[l.HabitName] {
			seen[l.HabitName] = true
			names = append(names, l.HabitName)
		}
	}
	return names
}

// LastLogged returns the time of the most recent entry for habit.
func LastLogged(logs []session.HabitLogEntry, habit string) (time.Time, bool) {
	entries := ForHabit(logs, habit)
	for i := len(entries) - 1; i >= 0; i-- {
		t, err := time.ParseInLocation(session.TimestampLayout, entries[i].Timestamp, time.Local)
		if err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Streaks returns the current and longest runs of consecutive success days.
// The current streak only counts if the last success was today or yesterday.
func Streaks(logs []session.HabitLogEntry, habit string, today time.Time) (current, longest int) {
	dates := successDates(logs, habit)
	return currentStreak(dates, today), longestStreak(dates)
}

func successDates(logs []session.HabitLogEntry, habit string) []time.Time {
	seen := make(map[string]bool)
	var dates []time.Time
	for _, l := range ForHabit(logs, habit) {
		if l.Status != session.StatusSuccess || len(l.Timestamp) < 10 {
			continue
		}
		day := l.Timestamp[:10]
		if seen[day] {
			continue
		}
		d, err := time.Parse("2006-01-02", day)
		if err != nil {
			continue
		}
		seen[day] = true
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

const oneDay = 24 * time.Hour

func currentStreak(dates []time.Time, today time.Time) int {
	if len(dates) == 0 {
		return 0
	}
	t := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	if t.Sub(dates[len(dates)-1]) > oneDay {
		return 0
	}
	streak := 1
	for i := len(dates) - 2; i >= 0; i-- {
		if dates[i+1].Sub(dates[i]) != oneDay {
			break
		}
		streak++
	}
	return streak
}

func longestStreak(dates []time.Time) int {
	if len(dates) == 0 {
		return 0
	}
	longest, run := 1, 1
	for i := 1; i < len(dates); i++ {
		if dates[i].Sub(dates[i-1]) == oneDay {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}
