package session

import (
	"errors"
	"fmt"
	"strings"
)

// TimestampLayout is ISO-8601 at second precision, without zone. Habit log
// timestamps are local wall-clock time so calendar-day streaks follow the
// user's clock; event timestamps are UTC instants.
const TimestampLayout = "2006-01-02T15:04:05"

const (
	MinCravings = 0
	MaxCravings = 10
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusSlip    Status = "slip"
	StatusRelapse Status = "relapse"
)

var (
	ErrInvalidStatus      = errors.New("status must be success, slip or relapse")
	ErrCravingsOutOfRange = fmt.Errorf("cravings level must be between %d and %d", MinCravings, MaxCravings)
)

// ParseStatus accepts a status name (any case) or its menu number.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "success", "1":
		return StatusSuccess, nil
	case "slip", "2":
		return StatusSlip, nil
	case "relapse", "3":
		return StatusRelapse, nil
	}
	return "", fmt.Errorf("%q: %w", s, ErrInvalidStatus)
}

func (s Status) Valid() bool {
	return s == StatusSuccess || s == StatusSlip || s == StatusRelapse
}

// HabitLogEntry is one dated record of the user's status for a habit.
type HabitLogEntry struct {
	Timestamp     string `json:"timestamp" yaml:"timestamp"`
	UserID        string `json:"user_id" yaml:"user_id"`
	HabitName     string `json:"habit_name" yaml:"habit_name"`
	Status        Status `json:"status" yaml:"status"`
	CravingsLevel int    `json:"cravings_level" yaml:"cravings_level"`
	Notes         string `json:"notes" yaml:"notes"`
}

// NewHabitLogEntry builds a validated entry stamped with the current time.
func NewHabitLogEntry(userID, habit string, status Status, cravings int, notes string) (HabitLogEntry, error) {
	e := HabitLogEntry{
		Timestamp:     now().Format(TimestampLayout),
		UserID:        userID,
		HabitName:     habit,
		Status:        status,
		CravingsLevel: cravings,
		Notes:         notes,
	}
	if err := e.Validate(); err != nil {
		return HabitLogEntry{}, err
	}
	return e, nil
}

func (e HabitLogEntry) Validate() error {
	if !e.Status.Valid() {
		return fmt.Errorf("%q: %w", e.Status, ErrInvalidStatus)
	}
	if e.CravingsLevel < MinCravings || e.CravingsLevel > MaxCravings {
		return fmt.Errorf("%d: %w", e.CravingsLevel, ErrCravingsOutOfRange)
	}
	return nil
}
