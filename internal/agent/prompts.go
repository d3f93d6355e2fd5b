package agent

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/chris/phoenix/internal/session"
	"github.com/chris/phoenix/internal/stats"
	"github.com/dustin/go-humanize"
)

// PlanLength is the number of days the generated plan covers.
const PlanLength = 14

// Tone defaults used when the root cause leaves a score blank.
const (
	DefaultFragility = "moderate"
	DefaultStress    = "medium"
)

func RootCausePrompt(intake *session.Intake) string {
	var b strings.Builder
	b.WriteString("You are Agent Phoenix's Root-Cause Analysis Agent.\n\n")
	b.WriteString("Analyze the user's intake answers and produce a deep psychological and behavioral root-cause map.\n\n")
	b.WriteString("## Intake\n")
	b.Write(indentJSON(intake))
	b.WriteString("\n\n## Output\nReturn strict JSON with exactly these string fields:\n{\n")
	for i, k := range session.RootCauseKeys {
		sep := ","
		if i == len(session.RootCauseKeys)-1 {
			sep = ""
		}
		fmt.Fprintf(&b, "  %q: \"\"%s\n", k, sep)
	}
	b.WriteString("}\nScores and levels may be short phrases or numbers written as strings. Never include text outside the JSON.")
	return b.String()
}

func PlanPrompt(intake *session.Intake, rc *session.RootCause) string {
	var b strings.Builder
	b.WriteString("You are Agent Phoenix's Personalized Plan Agent.\n\n")
	fmt.Fprintf(&b, "Using the intake and root-cause analysis below, write a %d-day adaptive recovery plan. ", PlanLength)
	b.WriteString("Account for the emotional root, relationship and social triggers, stress index, dependency level, relapse likelihood, predicted craving times, environment, financial vulnerability and the suggested tone. ")
	b.WriteString("Make it realistic for this person's daily life.\n\n")
	b.WriteString("## Intake\n")
	b.Write(indentJSON(intake))
	b.WriteString("\n\n## Root cause\n")
	b.Write(indentJSON(rc))
	b.WriteString(`

## Output
Return strict JSON in this shape:
{
  "summary": "",
  "daily_plan": [
    { "day": 1, "focus": "", "actions": [] }
  ],
  "emergency_protocol": [],
  "craving_replacement_kit": [],
  "emotional_support_script": "",
  "relapse_response_guide": "",
  "long_term_protection_plan": ""
}
`)
	fmt.Fprintf(&b, "daily_plan must have one entry per day, 1 to %d. Do not include explanations outside the JSON.", PlanLength)
	return b.String()
}

// CheckInPrompt asks for a reflection on the entry the user just logged.
func CheckInPrompt(doc *session.Document, entry session.HabitLogEntry, today time.Time) string {
	var b strings.Builder
	b.WriteString("You are Agent Phoenix in Daily Check-In mode.\n\n")
	writeHabit(&b, doc)

	fmt.Fprintf(&b, "\n## Today's check-in\nStatus: %s\nCraving level: %d/10\n", entry.Status, entry.CravingsLevel)
	if entry.Notes != "" {
		fmt.Fprintf(&b, "Notes: %s\n", entry.Notes)
	}

	if len(doc.Logs) > 0 {
		b.WriteString("\n## Recent check-ins\n")
		b.WriteString(stats.Summarize(doc.Logs, doc.Habit(), stats.DefaultWindow))
		b.WriteString("\n")
	}
	writePlanDay(&b, doc, today)

	b.WriteString("\nGive a short reflection on how today went, one improvement tip tied to their plan, and one encouragement line. Keep it under 8 to 10 sentences.")
	return b.String()
}

func CravingPrompt(doc *session.Document, details string) string {
	var b strings.Builder
	b.WriteString("You are Agent Phoenix in Craving Intervention mode.\n\n")
	writeHabit(&b, doc)
	fmt.Fprintf(&b, "\n## What the user is feeling right now\n%s\n", details)
	if kit := cravingKit(doc); len(kit) > 0 {
		b.WriteString("\n## Their craving replacement kit\n")
		for _, k := range kit {
			fmt.Fprintf(&b, "- %s\n", k)
		}
	}
	b.WriteString("\nGive a 60 to 90 second survival routine: a grounding exercise, a breathing pattern, a sensory reset, quick distraction ideas and one line of emotional validation. Keep it practical and gentle.")
	return b.String()
}

func RelapsePrompt(doc *session.Document, details string) string {
	var b strings.Builder
	b.WriteString("You are Agent Phoenix in Relapse Recovery mode.\n\n")
	writeHabit(&b, doc)
	fmt.Fprintf(&b, "\n## What happened\n%s\n", details)
	if doc != nil && doc.Context != nil && doc.Context.Plan != nil && doc.Context.Plan.RelapseResponseGuide != "" {
		fmt.Fprintf(&b, "\n## Their relapse response guide\n%s\n", doc.Context.Plan.RelapseResponseGuide)
	}
	b.WriteString(`
Provide:
1. No-shame reassurance (2 to 3 lines)
2. A short analysis of what likely triggered this
3. Three concrete actions for the next 12 hours
4. One reminder that this does NOT erase their progress`)
	return b.String()
}

// NudgePrompt builds the scheduled evening reminder.
func NudgePrompt(doc *session.Document, today time.Time) string {
	var b strings.Builder
	b.WriteString("It's time for Agent Phoenix's daily nudge.\n\n")
	writeHabit(&b, doc)

	habit := doc.Habit()
	st := stats.ComputeStats(doc.Logs, habit)
	current, longest := stats.Streaks(doc.Logs, habit, today)
	b.WriteString("\n## Progress\n")
	fmt.Fprintf(&b, "Days logged: %d (success %d, slip %d, relapse %d)\n", st.TotalDays, st.SuccessDays, st.SlipDays, st.RelapseDays)
	fmt.Fprintf(&b, "Current streak: %d days, longest: %d days\n", current, longest)
	if last, ok := stats.LastLogged(doc.Logs, habit); ok {
		fmt.Fprintf(&b, "Last check-in: %s\n", humanize.RelTime(last, today, "ago", "from now"))
	} else {
		b.WriteString("No check-ins logged yet.\n")
	}
	writePlanDay(&b, doc, today)

	b.WriteString("\nWrite a two or three sentence message inviting them to do today's check-in. Mention today's focus if there is one. No guilt.")
	return b.String()
}

// ToneFor reads the fragility and stress scores from the root cause.
func ToneFor(rc *session.RootCause) (fragility, stress string) {
	fragility, stress = DefaultFragility, DefaultStress
	if rc == nil {
		return
	}
	if s := strings.TrimSpace(rc.EmotionalFragilityScore.String()); s != "" {
		fragility = s
	}
	if s := strings.TrimSpace(rc.StressIndex.String()); s != "" {
		stress = s
	}
	return
}

// ToneGuidance tells the model how gently to speak.
func ToneGuidance(rc *session.RootCause) string {
	fragility, stress := ToneFor(rc)
	var b strings.Builder
	fmt.Fprintf(&b, "Tone:\nEmotional fragility: %s\nStress level: %s\n", fragility, stress)
	b.WriteString("If fragility is high, be soft, validating and slow. If it is low, you may be more direct but still kind.")
	if rc != nil && rc.SuggestedAgentTone != "" {
		fmt.Fprintf(&b, "\nSuggested tone from the analysis: %s", rc.SuggestedAgentTone)
	}
	return b.String()
}

// PlanDayNumber maps today onto the plan. Day 1 is the date of the first
// logged check-in; before any check-in it is today. Days past the end of the
// plan stay on the last day.
func PlanDayNumber(doc *session.Document, today time.Time) int {
	if len(doc.Logs) == 0 {
		return 1
	}
	start, err := time.ParseInLocation(session.TimestampLayout, doc.Logs[0].Timestamp, today.Location())
	if err != nil {
		return 1
	}
	startDay := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, today.Location())
	todayDay := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())
	n := int(math.Round(todayDay.Sub(startDay).Hours()/24)) + 1
	if n < 1 {
		n = 1
	}
	if doc.Context != nil && doc.Context.Plan != nil {
		if days := len(doc.Context.Plan.DailyPlan); days > 0 && n > days {
			n = days
		}
	}
	return n
}

func writeHabit(b *strings.Builder, doc *session.Document) {
	if doc == nil || doc.Context == nil || doc.Context.Intake == nil {
		return
	}
	in := doc.Context.Intake
	fmt.Fprintf(b, "## The user\nHabit they are working on: %s\nTheir core why: %s\n", in.Habit, in.Why)
	if rc := doc.Context.RootCause; rc != nil && rc.EmotionalRoot != "" {
		fmt.Fprintf(b, "Emotional root: %s\n", rc.EmotionalRoot)
	}
}

func writePlanDay(b *strings.Builder, doc *session.Document, today time.Time) {
	if doc.Context == nil {
		return
	}
	n := PlanDayNumber(doc, today)
	day := doc.Context.Plan.Day(n)
	if day == nil {
		return
	}
	fmt.Fprintf(b, "\n## Plan day %d\nFocus: %s\n", day.Day, day.Focus)
	for _, a := range day.Actions {
		fmt.Fprintf(b, "- %s\n", a)
	}
}

func cravingKit(doc *session.Document) []string {
	if doc == nil || doc.Context == nil || doc.Context.Plan == nil {
		return nil
	}
	return doc.Context.Plan.CravingReplacementKit
}

func indentJSON(v any) []byte {
	b, _ := json.MarshalIndent(v, "", "  ") // plain record structs; marshal cannot fail
	return b
}
