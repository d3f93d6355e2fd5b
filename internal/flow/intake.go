package flow

import (
	"context"
	"fmt"

	"github.com/chris/phoenix/internal/extract"
	"github.com/chris/phoenix/internal/session"
	"go.uber.org/zap"
)

type question struct {
	prompt string
	set    func(*session.Intake, string)
}

// intakeQuestions are asked in order. Empty answers are accepted.
var intakeQuestions = []question{
	{"Name of the habit you want help with: ", func(in *session.Intake, s string) { in.Habit = s }},
	{"Why do you want to change this habit? (your 'why'): ", func(in *session.Intake, s string) { in.Why = s }},
	{"Over how many days/weeks do you want to see progress?: ", func(in *session.Intake, s string) { in.Timeline = s }},
	{"1. What emotions do you feel right before doing this habit? (e.g., lonely, stressed, bored): ", func(in *session.Intake, s string) { in.EmotionalState = s }},
	{"2. When was the last time you felt the strongest urge? What caused it?: ", func(in *session.Intake, s string) { in.PeakTrigger = s }},
	{"3. Where are you usually when this habit happens the most? (home, college, work, outside): ", func(in *session.Intake, s string) { in.Environment = s }},
	{"4. Do people around you also have this habit? (friends/family/colleagues): ", func(in *session.Intake, s string) { in.SocialCircle = s }},
	{"5. Does money play a role in why this habit continues? (yes/no + explanation): ", func(in *session.Intake, s string) { in.FinancialContext = s }},
	{"6. Tell me one moment that made you realize you want to change: ", func(in *session.Intake, s string) { in.PersonalStory = s }},
}

// deeperQuestions is the index of the first of the six deeper questions.
const deeperQuestions = 3

// RunIntake collects the intake answers, obtains and validates the root
// cause and plan, then installs all three and saves. Any failure returns an
// error wrapping ErrIntakeAborted and leaves the stored document untouched.
func (c *Controller) RunIntake(ctx context.Context) error {
	if c.doc == nil {
		if err := c.Load(ctx); err != nil {
			return err
		}
	}

	intake, err := c.askIntake()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIntakeAborted, err)
	}
	c.io.Say("Deep intake complete. Moving to root-cause analysis...")

	raw, err := c.coach.RootCause(ctx, intake)
	if err != nil {
		return c.intakeFailed("root-cause analysis", err)
	}
	rc := &session.RootCause{}
	if err := c.extractor.Decode(raw, extract.RootCauseSchema, rc); err != nil {
		return c.intakeFailed("root-cause analysis", err)
	}
	c.io.Say("Root-cause analysis complete. Building your plan...")

	raw, err = c.coach.Plan(ctx, intake, rc)
	if err != nil {
		return c.intakeFailed("plan generation", err)
	}
	plan := &session.Plan{}
	if err := c.extractor.Decode(raw, extract.PlanSchema, plan); err != nil {
		return c.intakeFailed("plan generation", err)
	}

	// Install into a copy so a failed save leaves c.doc as it was.
	next := *c.doc
	if err := next.SetIntakeResult(intake, rc, plan); err != nil {
		return c.intakeFailed("installing intake", err)
	}
	prev := c.doc
	c.doc = &next
	if err := c.save(ctx); err != nil {
		c.doc = prev
		return c.intakeFailed("saving intake", err)
	}

	c.log.Info("intake complete", zap.String("habit", intake.Habit), zap.Int("plan_days", len(plan.DailyPlan)))
	c.io.Show("Your Recovery Plan", planSummary(plan))
	return nil
}

func (c *Controller) askIntake() (*session.Intake, error) {
	c.io.Say("[Agent Phoenix · Deep Intake] Let's understand you better.")
	intake := &session.Intake{}
	for i, q := range intakeQuestions {
		if i == deeperQuestions {
			c.io.Say("Great. Now a few deeper questions to understand your situation better.")
		}
		answer, err := c.ask(q.prompt)
		if err != nil {
			return nil, err
		}
		q.set(intake, answer)
	}
	return intake, nil
}

func (c *Controller) intakeFailed(step string, err error) error {
	c.log.Warn("intake failed", zap.String("step", step), zap.Error(err))
	c.io.Warn(fmt.Sprintf("Intake could not finish during %s: %v", step, err))
	c.io.Warn("Nothing was saved. Run Phoenix again to restart the intake.")
	return fmt.Errorf("%w: %s: %w", ErrIntakeAborted, step, err)
}

func planSummary(p *session.Plan) string {
	s := p.Summary.String()
	if d := p.Day(1); d != nil {
		s += fmt.Sprintf("\n\n**Day 1: %s**\n", d.Focus)
		for _, a := range d.Actions {
			s += "\n- " + a
		}
	}
	return s
}
