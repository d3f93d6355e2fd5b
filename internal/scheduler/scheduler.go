// Package scheduler sends the daily nudge on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/chris/phoenix/internal/session"
	"github.com/chris/phoenix/internal/store"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultSpec fires every day at 20:00 local time.
const DefaultSpec = "0 20 * * *"

// Nudger writes the reminder text for a session.
type Nudger interface {
	Nudge(ctx context.Context, doc *session.Document) (string, error)
}

// Notifier delivers a message to the user.
type Notifier interface {
	Notify(ctx context.Context, content string) error
}

// ErrNoDelivery means no notifier is configured.
var ErrNoDelivery = errors.New("no delivery method configured")

// Chain tries each notifier in order and stops at the first success.
type Chain []Notifier

func (c Chain) Notify(ctx context.Context, content string) error {
	if len(c) == 0 {
		return ErrNoDelivery
	}
	var errs []error
	for _, n := range c {
		err := n.Notify(ctx, content)
		if err == nil {
			return nil
		}
		errs = append(errs, err)
	}
	return fmt.Errorf("all deliveries failed: %w", errors.Join(errs...))
}

type Scheduler struct {
	cron   *cron.Cron
	spec   string
	store  store.Store
	nudger Nudger
	notify Notifier
	log    *zap.Logger

	mu      sync.Mutex
	entryID cron.EntryID
	running bool
}

// New validates spec (standard five-field cron) and returns a stopped scheduler.
func New(spec string, st store.Store, nudger Nudger, notify Notifier, log *zap.Logger) (*Scheduler, error) {
	if spec == "" {
		spec = DefaultSpec
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid nudge schedule %q: %w", spec, err)
	}
	return &Scheduler{
		cron:   cron.New(),
		spec:   spec,
		store:  st,
		nudger: nudger,
		notify: notify,
		log:    log,
	}, nil
}

func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	id, err := s.cron.AddFunc(s.spec, func() {
		if err := s.RunOnce(context.Background()); err != nil {
			s.log.Warn("nudge failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("scheduling nudge: %w", err)
	}
	s.entryID = id
	s.running = true
	s.cron.Start()
	s.log.Info("scheduler started", zap.String("spec", s.spec))
	return nil
}

// Stop halts the schedule. The returned context is done once a nudge that
// is already running has finished.
func (s *Scheduler) Stop() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		s.cron.Remove(s.entryID)
		s.running = false
	}
	return s.cron.Stop()
}

// RunOnce loads the session and sends one nudge. A session without a
// finished intake has no plan to nudge about and is skipped. The session
// is only read.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	doc, err := store.LoadOrEmpty(ctx, s.store, s.log)
	if err != nil {
		return err
	}
	if !doc.IsIntakeComplete() {
		s.log.Info("intake not finished, skipping nudge")
		return nil
	}

	msg, err := s.nudger.Nudge(ctx, doc)
	if err != nil {
		return fmt.Errorf("writing nudge: %w", err)
	}
	if err := s.notify.Notify(ctx, msg); err != nil {
		return fmt.Errorf("delivering nudge: %w", err)
	}
	s.log.Info("nudge delivered", zap.String("habit", doc.Habit()))
	return nil
}
