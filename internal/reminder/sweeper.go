package reminder

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"wellcheck/internal/attendance"
	"wellcheck/internal/auth"
	"wellcheck/internal/metrics"
	"wellcheck/internal/queue"
	"wellcheck/internal/user"
)

// Reminder is the body of a queue.TypeReminder message.
type Reminder struct {
	UserID  string             `json:"userId"`
	Name    string             `json:"name"`
	Email   string             `json:"email"`
	Day     string             `json:"day"`
	Warning attendance.Warning `json:"warning"`
	Message string             `json:"message"`
}

// Members lists the users to sweep. *user.Service implements it.
type Members interface {
	List(ctx context.Context, ids ...string) ([]user.User, error)
}

// Warner evaluates one user's warning. *attendance.Service implements it.
type Warner interface {
	Warning(ctx context.Context, userID string, now time.Time) (attendance.Warning, error)
}

// Publisher delivers reminders to the worker.
type Publisher interface {
	Publish(ctx context.Context, msg queue.Message) error
}

// Sweeper evaluates attendance warnings for every member and publishes a
// reminder the first time each warning appears on a given day. Managers are
// not swept.
type Sweeper struct {
	members Members
	warner  Warner
	pub     Publisher
	loc     *time.Location
	now     func() time.Time

	mu   sync.Mutex
	sent map[string]bool
	day  string
}

// NewSweeper creates a sweeper. Days are computed in loc.
func NewSweeper(members Members, warner Warner, pub Publisher, loc *time.Location) *Sweeper {
	if loc == nil {
		loc = time.UTC
	}
	return &Sweeper{
		members: members,
		warner:  warner,
		pub:     pub,
		loc:     loc,
		now:     time.Now,
		sent:    map[string]bool{},
	}
}

// Sweep runs one pass and returns the number of members per warning.
func (s *Sweeper) Sweep(ctx context.Context) (map[attendance.Warning]int, error) {
	now := s.now()
	day := attendance.Day(now, s.loc)

	users, err := s.members.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("sweep: list members: %w", err)
	}

	counts := map[attendance.Warning]int{
		attendance.WarningCheckinReminder: 0,
		attendance.WarningCheckinMissed:   0,
		attendance.WarningCheckoutOverdue: 0,
	}
	for _, u := range users {
		if err := ctx.Err(); err != nil {
			return counts, err
		}
		if auth.IsManagerRole(u.Role) {
			continue
		}
		w, err := s.warner.Warning(ctx, u.ID, now)
		if err != nil {
			log.Printf("sweep: warning for user %s: %v", u.ID, err)
			continue
		}
		if w == attendance.WarningNone {
			continue
		}
		counts[w]++
		if s.markSent(day, u.ID, w) {
			s.publish(ctx, Reminder{UserID: u.ID, Name: u.Name, Email: u.Email, Day: day, Warning: w, Message: w.Message()})
		}
	}

	for w, n := range counts {
		metrics.Warnings.WithLabelValues(string(w)).Set(float64(n))
	}
	return counts, nil
}

// markSent records that w was sent to userID on day and reports whether it is new.
func (s *Sweeper) markSent(day, userID string, w attendance.Warning) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.day != day {
		s.day = day
		s.sent = map[string]bool{}
	}
	key := userID + "|" + string(w)
	if s.sent[key] {
		return false
	}
	s.sent[key] = true
	return true
}

func (s *Sweeper) publish(ctx context.Context, r Reminder) {
	if s.pub == nil {
		return
	}
	msg, err := queue.JSON(queue.TypeReminder, r)
	if err != nil {
		log.Printf("sweep: encode reminder: %v", err)
		return
	}
	if err := s.pub.Publish(ctx, msg); err != nil {
		log.Printf("sweep: publish reminder for %s: %v", r.UserID, err)
	}
}

// Start schedules Sweep on spec (standard cron or @every) and starts the
// scheduler. Overlapping runs are skipped. Stop the returned cron to end it.
func (s *Sweeper) Start(spec string, timeout time.Duration) (*cron.Cron, error) {
	c := cron.New(
		cron.WithLocation(s.loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
	)
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		counts, err := s.Sweep(ctx)
		if err != nil {
			log.Printf("reminder sweep failed: %v", err)
			return
		}
		log.Printf("reminder sweep: reminder=%d missed=%d overdue=%d",
			counts[attendance.WarningCheckinReminder],
			counts[attendance.WarningCheckinMissed],
			counts[attendance.WarningCheckoutOverdue])
	})
	if err != nil {
		return nil, fmt.Errorf("reminder schedule %q: %w", spec, err)
	}
	c.Start()
	return c, nil
}
