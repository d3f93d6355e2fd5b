package session

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Text is a free-text field produced by the model. Models are asked for
// strings but routinely answer with numbers ("emotional_fragility_score": 7)
// or short lists, so any JSON value is accepted and flattened to text.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		*t = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = Text(s)
		return nil
	}

	var items []any
	if err := json.Unmarshal(b, &items); err == nil {
		parts := make([]string, 0, len(items))
		for _, it := range items {
			parts = append(parts, fmt.Sprint(it))
		}
		*t = Text(strings.Join(parts, ", "))
		return nil
	}

	*t = Text(raw)
	return nil
}

func (t Text) String() string { return string(t) }

// Intake holds the one-time onboarding answers.
type Intake struct {
	Habit            string `json:"habit" yaml:"habit"`
	Why              string `json:"why" yaml:"why"`
	Timeline         string `json:"timeline" yaml:"timeline"`
	EmotionalState   string `json:"emotional_state" yaml:"emotional_state"`
	PeakTrigger      string `json:"peak_trigger" yaml:"peak_trigger"`
	Environment      string `json:"environment" yaml:"environment"`
	SocialCircle     string `json:"social_circle" yaml:"social_circle"`
	FinancialContext string `json:"financial_context" yaml:"financial_context"`
	PersonalStory    string `json:"personal_story" yaml:"personal_story"`
}

// RootCause is the psychological and behavioural analysis derived from the intake.
type RootCause struct {
	EmotionalRoot               Text `json:"emotional_root" yaml:"emotional_root"`
	FinancialRoot               Text `json:"financial_root" yaml:"financial_root"`
	TraumaRoot                  Text `json:"trauma_root" yaml:"trauma_root"`
	RelationshipRoot            Text `json:"relationship_root" yaml:"relationship_root"`
	HabitLoop                   Text `json:"habit_loop" yaml:"habit_loop"`
	DependencyLevel             Text `json:"dependency_level" yaml:"dependency_level"`
	RiskLevel                   Text `json:"risk_level" yaml:"risk_level"`
	AttachmentStyle             Text `json:"attachment_style" yaml:"attachment_style"`
	CopingPattern               Text `json:"coping_pattern" yaml:"coping_pattern"`
	RelapseLikelihood           Text `json:"relapse_likelihood" yaml:"relapse_likelihood"`
	TriggerCategories           Text `json:"trigger_categories" yaml:"trigger_categories"`
	SelfWorthImpact             Text `json:"self_worth_impact" yaml:"self_worth_impact"`
	SocialPressureRating        Text `json:"social_pressure_rating" yaml:"social_pressure_rating"`
	StressIndex                 Text `json:"stress_index" yaml:"stress_index"`
	EnvironmentSafetyIndex      Text `json:"environment_safety_index" yaml:"environment_safety_index"`
	MentalFatigueLevel          Text `json:"mental_fatigue_level" yaml:"mental_fatigue_level"`
	PredictedPeakCravingTimes   Text `json:"predicted_peak_craving_times" yaml:"predicted_peak_craving_times"`
	SuggestedAgentTone          Text `json:"suggested_agent_tone" yaml:"suggested_agent_tone"`
	EmotionalFragilityScore     Text `json:"emotional_fragility_score" yaml:"emotional_fragility_score"`
	FinancialVulnerabilityScore Text `json:"financial_vulnerability_score" yaml:"financial_vulnerability_score"`
}

// RootCauseKeys lists every key the root-cause prompt asks for, in prompt order.
var RootCauseKeys = []string{
	"emotional_root",
	"financial_root",
	"trauma_root",
	"relationship_root",
	"habit_loop",
	"dependency_level",
	"risk_level",
	"attachment_style",
	"coping_pattern",
	"relapse_likelihood",
	"trigger_categories",
	"self_worth_impact",
	"social_pressure_rating",
	"stress_index",
	"environment_safety_index",
	"mental_fatigue_level",
	"predicted_peak_craving_times",
	"suggested_agent_tone",
	"emotional_fragility_score",
	"financial_vulnerability_score",
}

// Plan is the multi-day recovery plan.
type Plan struct {
	Summary                Text      `json:"summary" yaml:"summary"`
	DailyPlan              []PlanDay `json:"daily_plan" yaml:"daily_plan"`
	EmergencyProtocol      []string  `json:"emergency_protocol" yaml:"emergency_protocol"`
	CravingReplacementKit  []string  `json:"craving_replacement_kit" yaml:"craving_replacement_kit"`
	EmotionalSupportScript Text      `json:"emotional_support_script" yaml:"emotional_support_script"`
	RelapseResponseGuide   Text      `json:"relapse_response_guide" yaml:"relapse_response_guide"`
	LongTermProtectionPlan Text      `json:"long_term_protection_plan" yaml:"long_term_protection_plan"`
}

type PlanDay struct {
	Day     int      `json:"day" yaml:"day"`
	Focus   string   `json:"focus" yaml:"focus"`
	Actions []string `json:"actions" yaml:"actions"`
}

// Day returns the plan entry for the given day number, or nil.
func (p *Plan) Day(n int) *PlanDay {
	if p == nil {
		return nil
	}
	for i := range p.DailyPlan {
		if p.DailyPlan[i].Day == n {
			return &p.DailyPlan[i]
		}
	}
	return nil
}
