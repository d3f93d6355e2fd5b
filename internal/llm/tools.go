package llm

// SupportTools are the read-only tools offered during a support conversation.
// None of them modify the session.
var SupportTools = []Tool{
	{
		Name:        "get_habit_stats",
		Description: "Get outcome counts, success rate, average craving level and streaks for a habit. Defaults to the habit the user is working on.",
		Parameters: obj(map[string]any{
			"habit": prop("string", "Habit name (optional)"),
		}),
	},
	{
		Name:        "summarize_logs",
		Description: "Get the most recent check-in log lines for a habit, oldest first.",
		Parameters: obj(map[string]any{
			"habit":  prop("string", "Habit name (optional)"),
			"window": prop("integer", "How many entries to include (default 7)"),
		}),
	},
	{
		Name:        "get_plan_day",
		Description: "Get the focus and actions for one day of the user's recovery plan.",
		Parameters: objReq(map[string]any{
			"day": prop("integer", "Plan day number, starting at 1"),
		}, "day"),
	},
	{
		Name:        "get_recent_events",
		Description: "Get the user's most recent check-ins, cravings or relapses with what Phoenix said at the time.",
		Parameters: objReq(map[string]any{
			"kind":  prop("string", "One of: checkin, craving, relapse"),
			"limit": prop("integer", "Maximum number of events (default 5)"),
		}, "kind"),
	},
	{
		Name:        "get_time",
		Description: "Get the current local date and time.",
		Parameters:  obj(nil),
	},
}

func prop(typ, desc string) map[string]any {
	return map[string]any{"type": typ, "description": desc}
}

func obj(properties map[string]any) map[string]any {
	if properties == nil {
		properties = map[string]any{}
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
	}
}

func objReq(properties map[string]any, required ...string) map[string]any {
	s := obj(properties)
	s["required"] = required
	return s
}
