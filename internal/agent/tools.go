package agent

import (
	"encoding/json"
	"time"

	"github.com/chris/phoenix/internal/session"
	"github.com/chris/phoenix/internal/stats"
)

const defaultEventLimit = 5

type habitStatsResult struct {
	stats.HabitStats
	CurrentStreak int    `json:"current_streak"`
	LongestStreak int    `json:"longest_streak"`
	LastLogged    string `json:"last_logged,omitempty"`
}

// executeTool runs a read-only support tool against doc and returns its
// JSON result. Failures are reported to the model as {"error": ...}.
func (a *Agent) executeTool(doc *session.Document, name string, params map[string]any) string {
	var result any
	now := a.now()

	switch name {
	case "get_habit_stats":
		habit := habitParam(doc, params)
		r := habitStatsResult{HabitStats: stats.ComputeStats(doc.Logs, habit)}
		r.CurrentStreak, r.LongestStreak = stats.Streaks(doc.Logs, habit, now)
		if last, ok := stats.LastLogged(doc.Logs, habit); ok {
			r.LastLogged = last.Format(session.TimestampLayout)
		}
		result = r

	case "summarize_logs":
		habit := habitParam(doc, params)
		window, _ := getInt(params, "window")
		result = map[string]any{"habit": habit, "summary": stats.Summarize(doc.Logs, habit, int(window))}

	case "get_plan_day":
		n, ok := getInt(params, "day")
		if !ok {
			result = map[string]any{"error": "day is required"}
			break
		}
		var plan *session.Plan
		if doc.Context != nil {
			plan = doc.Context.Plan
		}
		if day := plan.Day(int(n)); day != nil {
			result = day
		} else {
			result = map[string]any{"error": "no plan entry for that day"}
		}

	case "get_recent_events":
		kind, _ := getString(params, "kind")
		limit, ok := getInt(params, "limit")
		if !ok || limit <= 0 {
			limit = defaultEventLimit
		}
		switch k := session.EventKind(kind); k {
		case session.EventCheckIn, session.EventCraving, session.EventRelapse:
			events := doc.Events(k)
			if int(limit) < len(events) {
				events = events[len(events)-int(limit):]
			}
			if events == nil {
				events = []session.Event{}
			}
			result = events
		default:
			result = map[string]any{"error": "unknown event kind: " + kind}
		}

	case "get_time":
		result = map[string]any{
			"now":      now.Format(time.RFC1123),
			"date":     now.Format("2006-01-02"),
			"weekday":  now.Weekday().String(),
			"plan_day": PlanDayNumber(doc, now),
		}

	default:
		result = map[string]any{"error": "unknown tool: " + name}
	}

	b, _ := json.Marshal(result) // result is always a plain struct, map or slice
	return string(b)
}

func habitParam(doc *session.Document, params map[string]any) string {
	if h, ok := getString(params, "habit"); ok && h != "" {
		return h
	}
	return doc.Habit()
}

// LLMs send numbers as float64 in JSON.
func getInt(params map[string]any, key string) (int64, bool) {
	v, ok := params[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	}
	return 0, false
}

func getString(params map[string]any, key string) (string, bool) {
	v, ok := params[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
