// Package session holds the user's journey through intake, analysis and
// the daily loop. A Document is owned by a single flow controller and is
// persisted whole after every state-changing event.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// CurrentVersion is stamped on new documents so later layouts can migrate.
const CurrentVersion = 1

// now is swapped in tests.
var now = time.Now

var (
	ErrIncompleteIntake = errors.New("intake, root cause and plan are all required")
	ErrUnknownEventKind = errors.New("unknown event kind")
	ErrInconsistent     = errors.New("completed_intake disagrees with context")
)

type EventKind string

const (
	EventCheckIn EventKind = "checkin"
	EventCraving EventKind = "craving"
	EventRelapse EventKind = "relapse"
)

// Event is a timestamped record in one of the append-only event logs.
// Timestamps are absolute instants, stored in UTC.
type Event struct {
	Kind      EventKind `json:"kind" yaml:"kind"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Details   string    `json:"details,omitempty" yaml:"details,omitempty"`
	Response  string    `json:"response,omitempty" yaml:"response,omitempty"`
}

// UnmarshalJSON also accepts a timestamp given as epoch seconds, which is
// how documents from before versioning recorded events.
func (e *Event) UnmarshalJSON(b []byte) error {
	type plain Event
	var raw struct {
		plain
		Timestamp json.RawMessage `json:"timestamp"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*e = Event(raw.plain)

	ts := raw.Timestamp
	if len(ts) == 0 || string(ts) == "null" {
		e.Timestamp = time.Time{}
		return nil
	}
	var secs float64
	if err := json.Unmarshal(ts, &secs); err == nil {
		whole, frac := math.Modf(secs)
		e.Timestamp = time.Unix(int64(whole), int64(math.Round(frac*1e9))).UTC()
		return nil
	}
	if err := json.Unmarshal(ts, &e.Timestamp); err != nil {
		return fmt.Errorf("event timestamp: %w", err)
	}
	return nil
}

// Payload is the caller-supplied part of an Event.
type Payload struct {
	Details  string
	Response string
}

type Context struct {
	Intake    *Intake    `json:"intake,omitempty" yaml:"intake,omitempty"`
	RootCause *RootCause `json:"root_cause,omitempty" yaml:"root_cause,omitempty"`
	Plan      *Plan      `json:"plan,omitempty" yaml:"plan,omitempty"`
}

// Document is the root persisted object.
type Document struct {
	Version         int             `json:"version" yaml:"version"`
	UserID          string          `json:"user_id,omitempty" yaml:"user_id,omitempty"`
	CompletedIntake bool            `json:"completed_intake" yaml:"completed_intake"`
	Context         *Context        `json:"context,omitempty" yaml:"context,omitempty"`
	CheckIns        []Event         `json:"checkins" yaml:"checkins"`
	Cravings        []Event         `json:"cravings" yaml:"cravings"`
	Relapses        []Event         `json:"relapses" yaml:"relapses"`
	Logs            []HabitLogEntry `json:"logs" yaml:"logs"`
}

// UnmarshalJSON fills in the kind of events that were stored without one.
func (d *Document) UnmarshalJSON(b []byte) error {
	type plain Document
	if err := json.Unmarshal(b, (*plain)(d)); err != nil {
		return err
	}
	for kind, events := range map[EventKind][]Event{
		EventCheckIn: d.CheckIns,
		EventCraving: d.Cravings,
		EventRelapse: d.Relapses,
	} {
		for i := range events {
			if events[i].Kind == "" {
				events[i].Kind = kind
			}
		}
	}
	return nil
}

// New returns an empty document. It carries no generated identifiers, so
// two empty documents always compare equal.
func New() *Document {
	return &Document{Version: CurrentVersion}
}

func (d *Document) hasContext() bool {
	return d.Context != nil && d.Context.Intake != nil && d.Context.RootCause != nil && d.Context.Plan != nil
}

// IsIntakeComplete reports whether intake finished and all three records are present.
func (d *Document) IsIntakeComplete() bool {
	return d.CompletedIntake && d.hasContext()
}

// Validate checks that the completed_intake flag agrees with the context records.
func (d *Document) Validate() error {
	if d.CompletedIntake != d.hasContext() {
		return fmt.Errorf("completed_intake=%v: %w", d.CompletedIntake, ErrInconsistent)
	}
	return nil
}

// SetIntakeResult installs all three intake records at once and marks intake complete.
func (d *Document) SetIntakeResult(intake *Intake, rootCause *RootCause, plan *Plan) error {
	if intake == nil || rootCause == nil || plan == nil {
		return ErrIncompleteIntake
	}
	if d.UserID == "" {
		d.UserID = uuid.NewString()
	}
	d.Context = &Context{Intake: intake, RootCause: rootCause, Plan: plan}
	d.CompletedIntake = true
	return nil
}

// Habit returns the tracked habit name, or "" before intake.
func (d *Document) Habit() string {
	if d.Context == nil || d.Context.Intake == nil {
		return ""
	}
	return d.Context.Intake.Habit
}

// AppendEvent stamps the payload and appends it to the log for kind.
func (d *Document) AppendEvent(kind EventKind, p Payload) (Event, error) {
	ev := Event{
		Kind:      kind,
		Timestamp: now().UTC().Truncate(time.Second),
		Details:   p.Details,
		Response:  p.Response,
	}
	switch kind {
	case EventCheckIn:
		d.CheckIns = append(d.CheckIns, ev)
	case EventCraving:
		d.Cravings = append(d.Cravings, ev)
	case EventRelapse:
		d.Relapses = append(d.Relapses, ev)
	default:
		return Event{}, fmt.Errorf("%q: %w", kind, ErrUnknownEventKind)
	}
	return ev, nil
}

// Events returns the log for kind. The slice is shared; callers must not modify it.
func (d *Document) Events(kind EventKind) []Event {
	switch kind {
	case EventCheckIn:
		return d.CheckIns
	case EventCraving:
		return d.Cravings
	case EventRelapse:
		return d.Relapses
	}
	return nil
}

// AppendHabitLog validates and appends a habit log entry. Missing timestamp
// and user id are filled in; the stored entry is returned by value.
func (d *Document) AppendHabitLog(e HabitLogEntry) (HabitLogEntry, error) {
	if e.Timestamp == "" {
		// Local on purpose, see TimestampLayout.
		e.Timestamp = now().Format(TimestampLayout)
	}
	if e.UserID == "" {
		e.UserID = d.UserID
	}
	if err := e.Validate(); err != nil {
		return HabitLogEntry{}, fmt.Errorf("appending habit log: %w", err)
	}
	d.Logs = append(d.Logs, e)
	return e, nil
}
