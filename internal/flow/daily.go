package flow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/chris/phoenix/internal/llm"
	"github.com/chris/phoenix/internal/session"
	"github.com/chris/phoenix/internal/stats"
	"go.uber.org/zap"
)

const (
	menu = `
Choose an option:
1. Daily Check-In
2. I am having a craving
3. I relapsed
4. Talk to Phoenix (emotional support)
5. Exit`

	farewell = "See you tomorrow, Agent. Stay strong."

	// maxAttempts bounds re-prompting for a malformed answer.
	maxAttempts = 3
)

// ErrTooManyAttempts means the user never gave a usable answer.
var ErrTooManyAttempts = errors.New("no valid answer")

// DailyLoop shows the menu until the user exits or input ends. A failed
// action is reported and the menu comes back; only the exit choice, end of
// input or a cancelled ctx end the loop.
func (c *Controller) DailyLoop(ctx context.Context) error {
	if c.doc == nil {
		if err := c.Load(ctx); err != nil {
			return err
		}
	}
	c.io.Say("Daily Mode activated. Agent Phoenix is with you.")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.io.Say(c.progressLine() + menu)

		choice, err := c.ask("\nEnter choice (1-5): ")
		if errors.Is(err, io.EOF) {
			c.io.Say(farewell)
			return nil
		}
		if err != nil {
			return err
		}

		var actionErr error
		switch choice {
		case "1":
			actionErr = c.CheckIn(ctx)
		case "2":
			actionErr = c.Craving(ctx)
		case "3":
			actionErr = c.Relapse(ctx)
		case "4":
			actionErr = c.Talk(ctx)
		case "5":
			c.io.Say(farewell)
			return nil
		default:
			c.io.Warn("Invalid choice. Try again.")
			continue
		}

		if actionErr == nil {
			continue
		}
		if errors.Is(actionErr, io.EOF) {
			c.io.Say(farewell)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn("daily action failed", zap.String("choice", choice), zap.Error(actionErr))
		c.io.Warn(describe(actionErr))
	}
}

func (c *Controller) progressLine() string {
	habit := c.doc.Habit()
	if len(stats.ForHabit(c.doc.Logs, habit)) == 0 {
		return ""
	}
	current, longest := stats.Streaks(c.doc.Logs, habit, c.now())
	return fmt.Sprintf("\n%s: current streak %d days (best %d)", habit, current, longest)
}

// CheckIn records how today went. The coach replies first; the log entry
// and the checkin event are appended and saved together afterwards.
func (c *Controller) CheckIn(ctx context.Context) error {
	status, err := c.askStatus()
	if err != nil {
		return err
	}
	cravings, err := c.askCravings()
	if err != nil {
		return err
	}
	notes, err := c.ask("Anything you want to note? (optional): ")
	if err != nil {
		return err
	}

	entry, err := session.NewHabitLogEntry(c.doc.UserID, c.doc.Habit(), status, cravings, notes)
	if err != nil {
		return err
	}
	reply, err := c.coach.CheckIn(ctx, c.doc, entry)
	if err != nil {
		return err
	}

	snap := c.snapshot()
	if _, err := c.doc.AppendHabitLog(entry); err != nil {
		return err
	}
	details := fmt.Sprintf("status=%s cravings=%d", entry.Status, entry.CravingsLevel)
	if notes != "" {
		details += " notes=" + notes
	}
	if _, err := c.doc.AppendEvent(session.EventCheckIn, session.Payload{Details: details, Response: reply}); err != nil {
		c.restore(snap)
		return err
	}
	if err := c.commit(ctx, snap); err != nil {
		return err
	}
	c.io.Show("Daily Check-In", reply)
	return nil
}

func (c *Controller) Craving(ctx context.Context) error {
	details, err := c.ask("\nDescribe what you're feeling right now: ")
	if err != nil {
		return err
	}
	reply, err := c.coach.Craving(ctx, c.doc, details)
	if err != nil {
		return err
	}
	if err := c.record(ctx, session.EventCraving, details, reply); err != nil {
		return err
	}
	c.io.Show("Craving Intervention", reply)
	return nil
}

func (c *Controller) Relapse(ctx context.Context) error {
	details, err := c.ask("\nTell me what happened: ")
	if err != nil {
		return err
	}
	reply, err := c.coach.Relapse(ctx, c.doc, details)
	if err != nil {
		return err
	}
	if err := c.record(ctx, session.EventRelapse, details, reply); err != nil {
		return err
	}
	c.io.Show("Relapse Recovery", reply)
	return nil
}

// Talk is one turn of the support conversation. The history lives only as
// long as the process; nothing is saved.
func (c *Controller) Talk(ctx context.Context) error {
	message, err := c.ask("\nTell Phoenix what's on your mind: ")
	if err != nil {
		return err
	}
	if message == "" {
		return nil
	}
	reply, history, err := c.coach.Support(ctx, c.doc, c.history, message)
	if err != nil {
		return err
	}
	c.history = history
	c.io.Show("Phoenix", reply)
	return nil
}

func (c *Controller) record(ctx context.Context, kind session.EventKind, details, reply string) error {
	snap := c.snapshot()
	if _, err := c.doc.AppendEvent(kind, session.Payload{Details: details, Response: reply}); err != nil {
		return err
	}
	return c.commit(ctx, snap)
}

type snapshot struct {
	checkins, cravings, relapses, logs int
}

func (c *Controller) snapshot() snapshot {
	return snapshot{len(c.doc.CheckIns), len(c.doc.Cravings), len(c.doc.Relapses), len(c.doc.Logs)}
}

func (c *Controller) restore(s snapshot) {
	c.doc.CheckIns = c.doc.CheckIns[:s.checkins]
	c.doc.Cravings = c.doc.Cravings[:s.cravings]
	c.doc.Relapses = c.doc.Relapses[:s.relapses]
	c.doc.Logs = c.doc.Logs[:s.logs]
}

// commit saves, undoing the appends since snap if the save fails so memory
// never runs ahead of the store.
func (c *Controller) commit(ctx context.Context, snap snapshot) error {
	if err := c.save(ctx); err != nil {
		c.restore(snap)
		return err
	}
	return nil
}

func (c *Controller) askStatus() (session.Status, error) {
	for i := 0; i < maxAttempts; i++ {
		answer, err := c.ask("How did today go? 1) success 2) slip 3) relapse: ")
		if err != nil {
			return "", err
		}
		status, err := session.ParseStatus(answer)
		if err == nil {
			return status, nil
		}
		c.io.Warn("Please answer success, slip or relapse (or 1, 2, 3).")
	}
	return "", fmt.Errorf("status: %w", ErrTooManyAttempts)
}

func (c *Controller) askCravings() (int, error) {
	prompt := fmt.Sprintf("Craving level today (%d-%d): ", session.MinCravings, session.MaxCravings)
	for i := 0; i < maxAttempts; i++ {
		answer, err := c.ask(prompt)
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(answer)
		if err == nil && n >= session.MinCravings && n <= session.MaxCravings {
			return n, nil
		}
		c.io.Warn(fmt.Sprintf("Please enter a whole number from %d to %d.", session.MinCravings, session.MaxCravings))
	}
	return 0, fmt.Errorf("cravings level: %w", ErrTooManyAttempts)
}

func describe(err error) string {
	var ie *llm.InvocationError
	if errors.As(err, &ie) {
		if ie.Timeout() {
			return "Phoenix took too long to answer. Nothing was saved; please try again."
		}
		return fmt.Sprintf("Phoenix couldn't answer right now (%v). Nothing was saved.", ie.Err)
	}
	return fmt.Sprintf("Something went wrong: %v. Nothing was saved.", err)
}
