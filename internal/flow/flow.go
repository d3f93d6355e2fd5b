// Package flow drives a session through intake and the daily loop.
package flow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/chris/phoenix/internal/extract"
	"github.com/chris/phoenix/internal/llm"
	"github.com/chris/phoenix/internal/session"
	"github.com/chris/phoenix/internal/store"
	"go.uber.org/zap"
)

type State int

const (
	StateIntake State = iota
	StateDailyLoop
)

func (s State) String() string {
	switch s {
	case StateIntake:
		return "INTAKE"
	case StateDailyLoop:
		return "DAILY_LOOP"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// StateFor derives the phase from the document. There is no stored state.
func StateFor(doc *session.Document) State {
	if doc.IsIntakeComplete() {
		return StateDailyLoop
	}
	return StateIntake
}

// Coach produces the model-written parts of the conversation.
type Coach interface {
	RootCause(ctx context.Context, intake *session.Intake) (string, error)
	Plan(ctx context.Context, intake *session.Intake, rc *session.RootCause) (string, error)
	CheckIn(ctx context.Context, doc *session.Document, entry session.HabitLogEntry) (string, error)
	Craving(ctx context.Context, doc *session.Document, details string) (string, error)
	Relapse(ctx context.Context, doc *session.Document, details string) (string, error)
	Support(ctx context.Context, doc *session.Document, history []llm.Message, message string) (string, []llm.Message, error)
}

// Console is where the user reads and types.
type Console interface {
	Say(text string)
	Warn(text string)
	Show(title, body string)
	Ask(prompt string) (string, error)
}

// ErrIntakeAborted wraps whatever stopped intake. Nothing was saved.
var ErrIntakeAborted = errors.New("intake aborted")

type Controller struct {
	store     store.Store
	coach     Coach
	io        Console
	log       *zap.Logger
	extractor extract.Extractor

	doc     *session.Document
	history []llm.Message
	now     func() time.Time
}

// New returns a controller that extracts model JSON with the balanced scanner.
func New(st store.Store, coach Coach, io Console, log *zap.Logger) *Controller {
	return &Controller{
		store:     st,
		coach:     coach,
		io:        io,
		log:       log,
		extractor: extract.Extractor{Mode: extract.ModeBalanced},
		now:       time.Now,
	}
}

// Document returns the session being driven, or nil before Run or Load.
func (c *Controller) Document() *session.Document { return c.doc }

// Load reads the session from the store. A missing or corrupt document
// starts a fresh session.
func (c *Controller) Load(ctx context.Context) error {
	doc, err := store.LoadOrEmpty(ctx, c.store, c.log)
	if err != nil {
		return err
	}
	c.doc = doc
	return nil
}

// Run loads the session, runs intake if it has not finished, then the daily
// loop until the user exits.
func (c *Controller) Run(ctx context.Context) error {
	if err := c.Load(ctx); err != nil {
		return err
	}
	c.io.Say("=== Welcome to Agent Phoenix ===")

	if StateFor(c.doc) == StateIntake {
		if err := c.RunIntake(ctx); err != nil {
			return err
		}
		c.io.Say("Your plan is saved. From now on Agent Phoenix starts in Daily Mode.")
	}
	return c.DailyLoop(ctx)
}

func (c *Controller) save(ctx context.Context) error {
	if err := c.store.Save(ctx, c.doc); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	c.log.Debug("session saved",
		zap.Int("logs", len(c.doc.Logs)),
		zap.Int("checkins", len(c.doc.CheckIns)),
		zap.Int("cravings", len(c.doc.Cravings)),
		zap.Int("relapses", len(c.doc.Relapses)))
	return nil
}

// ask wraps end of input so callers can tell the user left.
func (c *Controller) ask(prompt string) (string, error) {
	answer, err := c.io.Ask(prompt)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		return "", fmt.Errorf("reading input: %w", err)
	}
	return answer, nil
}
