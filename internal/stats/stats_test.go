package stats

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/chris/phoenix/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(ts, habit string, status session.Status, craving int) session.HabitLogEntry {
	return session.HabitLogEntry{Timestamp: ts, UserID: "u1", HabitName: habit, Status: status, CravingsLevel: craving}
}

func TestComputeStats_Empty(t *testing.T) {
	st := ComputeStats(nil, "smoking")
	assert.Equal(t, HabitStats{HabitName: "smoking"}, st)

	other := []session.HabitLogEntry{entry("2026-01-01T10:00:00", "vaping", session.StatusSlip, 5)}
	st = ComputeStats(other, "smoking")
	assert.Zero(t, st.TotalDays)
	assert.Zero(t, st.SuccessRate)
	assert.Zero(t, st.AvgCraving)
}

func TestComputeStats_ThreeOutcomes(t *testing.T) {
	d := session.New()
	require.NoError(t, d.SetIntakeResult(&session.Intake{Habit: "smoking"}, &session.RootCause{}, &session.Plan{}))
	for _, in := range []struct {
		status  session.Status
		craving int
	}{
		{session.StatusSuccess, 2},
		{session.StatusSlip, 6},
		{session.StatusRelapse, 9},
	} {
		_, err := d.AppendHabitLog(session.HabitLogEntry{HabitName: "smoking", Status: in.status, CravingsLevel: in.craving})
		require.NoError(t, err)
	}

	st := ComputeStats(d.Logs, "smoking")
	assert.Equal(t, 3, st.TotalDays)
	assert.Equal(t, 1, st.SuccessDays)
	assert.Equal(t, 1, st.SlipDays)
	assert.Equal(t, 1, st.RelapseDays)
	assert.InDelta(t, 33.33, st.SuccessRate, 0.01)
	assert.InDelta(t, 5.67, st.AvgCraving, 0.01)
}

func TestComputeStats_CountsNeverExceedTotal(t *testing.T) {
	logs := []session.HabitLogEntry{
		entry("2026-01-01T10:00:00", "smoking", session.StatusSuccess, 1),
		entry("2026-01-02T10:00:00", "smoking", "unknown", 3),
		entry("2026-01-03T10:00:00", "smoking", session.StatusSlip, 4),
	}
	st := ComputeStats(logs, "smoking")
	assert.Equal(t, 3, st.TotalDays)
	assert.LessOrEqual(t, st.SuccessDays+st.SlipDays+st.RelapseDays, st.TotalDays)
	assert.Equal(t, 2, st.SuccessDays+st.SlipDays+st.RelapseDays)
}

func TestSummarize_NoLogs(t *testing.T) {
	assert.Equal(t, NoLogs, Summarize(nil, "smoking", 7))
	assert.Equal(t, "No logs yet for this habit.", Summarize(nil, "smoking", 0))
}

func TestSummarize_LastWindowInOrder(t *testing.T) {
	var logs []session.HabitLogEntry
	for i := 1; i <= 9; i++ {
		logs = append(logs, entry(fmt.Sprintf("2026-01-%02dT08:00:00", i), "smoking", session.StatusSuccess, i))
		logs = append(logs, entry(fmt.Sprintf("2026-01-%02dT09:00:00", i), "gaming", session.StatusSlip, 1))
	}

	lines := strings.Split(Summarize(logs, "smoking", 7), "\n")
	require.Len(t, lines, 7)
	assert.Equal(t, "2026-01-03T08:00:00 | SUCCESS | craving=3 | notes=", lines[0])
	assert.Equal(t, "2026-01-09T08:00:00 | SUCCESS | craving=9 | notes=", lines[6])

	assert.Len(t, strings.Split(Summarize(logs, "smoking", 0), "\n"), DefaultWindow)
	assert.Len(t, strings.Split(Summarize(logs, "smoking", 20), "\n"), 9)
}

func TestSummarize_IncludesNotes(t *testing.T) {
	logs := []session.HabitLogEntry{{Timestamp: "2026-02-01T22:10:00", HabitName: "smoking", Status: session.StatusRelapse, CravingsLevel: 8, Notes: "party"}}
	assert.Equal(t, "2026-02-01T22:10:00 | RELAPSE | craving=8 | notes=party", Summarize(logs, "smoking", 7))
}

func TestHabitNames(t *testing.T) {
	logs := []session.HabitLogEntry{
		entry("2026-01-01T10:00:00", "smoking", session.StatusSuccess, 1),
		entry("2026-01-01T11:00:00", "gaming", session.StatusSuccess, 1),
		entry("2026-01-02T10:00:00", "smoking", session.StatusSlip, 1),
	}
	assert.Equal(t, []string{"smoking", "gaming"}, HabitNames(logs))
	assert.Nil(t, HabitNames(nil))
}

func TestLastLogged(t *testing.T) {
	logs := []session.HabitLogEntry{
		entry("2026-01-01T10:00:00", "smoking", session.StatusSuccess, 1),
		entry("2026-01-04T21:30:00", "smoking", session.StatusSlip, 1),
		entry("2026-01-05T10:00:00", "gaming", session.StatusSlip, 1),
	}
	got, ok := LastLogged(logs, "smoking")
	require.True(t, ok)
	assert.True(t, got.Equal(time.Date(2026, 1, 4, 21, 30, 0, 0, time.Local)), "got %v", got)

	_, ok = LastLogged(logs, "vaping")
	assert.False(t, ok)
}

func success(day string) session.HabitLogEntry {
	return entry(day+"T09:00:00", "smoking", session.StatusSuccess, 1)
}

func TestStreaks(t *testing.T) {
	today := time.Date(2026, 1, 10, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		logs        []session.HabitLogEntry
		wantCurrent int
		wantLongest int
	}{
		{"no logs", nil, 0, 0},
		{"single today", []session.HabitLogEntry{success("2026-01-10")}, 1, 1},
		{"run ending yesterday", []session.HabitLogEntry{success("2026-01-07"), success("2026-01-08"), success("2026-01-09")}, 3, 3},
		{"stale run", []session.HabitLogEntry{success("2026-01-01"), success("2026-01-02")}, 0, 2},
		{"gap resets current", []session.HabitLogEntry{
			success("2026-01-02"), success("2026-01-03"), success("2026-01-04"),
			success("2026-01-09"), success("2026-01-10"),
		}, 2, 3},
		{"slips do not count", []session.HabitLogEntry{
			success("2026-01-08"),
			entry("2026-01-09T09:00:00", "smoking", session.StatusSlip, 5),
			success("2026-01-10"),
		}, 1, 1},
		{"duplicate days collapse", []session.HabitLogEntry{success("2026-01-09"), success("2026-01-09"), success("2026-01-10")}, 2, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cur, longest := Streaks(tt.logs, "smoking", today)
			assert.Equal(t, tt.wantCurrent, cur, "current")
			assert.Equal(t, tt.wantLongest, longest, "longest")
		})
	}
}
