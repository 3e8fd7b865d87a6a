package attendance

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"wellcheck/internal/metrics"
	"wellcheck/internal/queue"
)

// Store is the persistence the service needs. *Repository implements it.
type Store interface {
	ListDay(ctx context.Context, userID, day string) ([]Record, error)
	Insert(ctx context.Context, rec Record) (Record, error)
	List(ctx context.Context, f Filter) ([]Record, error)
	Get(ctx context.Context, id string) (Record, error)
	SetSelfieURL(ctx context.Context, id, url string) error
}

// Publisher hands work to the background worker.
type Publisher interface {
	Publish(ctx context.Context, msg queue.Message) error
}

// publishTimeout bounds how long Submit waits on the queue after insert.
const publishTimeout = 2 * time.Second

// Filter narrows List results. Zero values mean no restriction.
type Filter struct {
	UserID string
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
	// OmitSelfie leaves SelfieURL empty, for callers that never show images.
	OmitSelfie bool
}

// Service applies the attendance gate to submissions and persists records.
type Service struct {
	store  Store
	pub    Publisher
	policy Policy
}

// NewService creates a service. pub may be nil, in which case selfies stay inline.
func NewService(store Store, pub Publisher, policy Policy) *Service {
	if policy.Location == nil {
		policy.Location = time.UTC
	}
	return &Service{store: store, pub: pub, policy: policy}
}

// Policy returns the thresholds in effect.
func (s *Service) Policy() Policy { return s.policy }

// Today returns the user's records for the calendar day holding now.
func (s *Service) Today(ctx context.Context, userID string, now time.Time) ([]Record, error) {
	if userID == "" {
		return nil, ErrUserRequired
	}
	recs, err := s.store.ListDay(ctx, userID, Day(now, s.policy.Location))
	if err != nil {
		return nil, fmt.Errorf("list today: %w", err)
	}
	if recs == nil {
		recs = []Record{}
	}
	return recs, nil
}

// Eligibility evaluates the gate for the user at now.
func (s *Service) Eligibility(ctx context.Context, userID string, now time.Time) (Eligibility, error) {
	recs, err := s.Today(ctx, userID, now)
	if err != nil {
		return Eligibility{}, err
	}
	return Evaluate(recs, now, s.policy), nil
}

// Warning evaluates the dashboard warning for the user at now.
func (s *Service) Warning(ctx context.Context, userID string, now time.Time) (Warning, error) {
	recs, err := s.Today(ctx, userID, now)
	if err != nil {
		return WarningNone, err
	}
	return Warn(recs, now, s.policy), nil
}

// Submit validates sub, re-evaluates the gate against stored records and
// creates the record. Gate rejections return ErrCheckInLocked or
// ErrCheckOutLocked; a concurrent duplicate returns ErrAlreadyRecorded.
func (s *Service) Submit(ctx context.Context, userID string, sub Submission, now time.Time) (Record, error) {
	if userID == "" {
		return Record{}, ErrUserRequired
	}
	if err := sub.Validate(); err != nil {
		metrics.Submissions.WithLabelValues(string(sub.Kind), "invalid").Inc()
		return Record{}, err
	}

	today, err := s.Today(ctx, userID, now)
	if err != nil {
		return Record{}, err
	}
	e := Evaluate(today, now, s.policy)
	switch {
	case sub.Kind == KindCheckIn && e.CheckInLocked:
		metrics.Submissions.WithLabelValues(string(sub.Kind), "stale").Inc()
		return Record{}, ErrCheckInLocked
	case sub.Kind == KindCheckOut && e.CheckOutLocked:
		metrics.Submissions.WithLabelValues(string(sub.Kind), "stale").Inc()
		if e.CheckOutUnlockAt != nil && !e.HasCheckedOut {
			return Record{}, fmt.Errorf("%w until %s", ErrCheckOutLocked, e.CheckOutUnlockAt.In(s.policy.Location).Format(time.Kitchen))
		}
		return Record{}, ErrCheckOutLocked
	}

	rec, err := s.store.Insert(ctx, sub.Record(userID, now, s.policy.Location))
	if err != nil {
		result := "error"
		if IsStale(err) {
			result = "stale"
		}
		metrics.Submissions.WithLabelValues(string(sub.Kind), result).Inc()
		return Record{}, err
	}
	metrics.Submissions.WithLabelValues(string(sub.Kind), "created").Inc()

	if s.pub != nil && IsInlineSelfie(rec.SelfieURL) {
		// The record is committed; a slow or full queue must not fail the request.
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		err := s.pub.Publish(pubCtx, queue.Message{Type: queue.TypeSelfieStore, Body: []byte(rec.ID)})
		cancel()
		if err != nil {
			log.Printf("queue publish failed for record %s, selfie stays inline: %v", rec.ID, err)
		}
	}
	return rec, nil
}

// List returns records matching f.
func (s *Service) List(ctx context.Context, f Filter) ([]Record, error) {
	recs, err := s.store.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	if recs == nil {
		recs = []Record{}
	}
	if f.OmitSelfie {
		for i := range recs {
			recs[i].SelfieURL = ""
		}
	}
	return recs, nil
}

// Get returns a single record.
func (s *Service) Get(ctx context.Context, id string) (Record, error) {
	return s.store.Get(ctx, id)
}

// AttachSelfie replaces an inline selfie with its stored URL.
func (s *Service) AttachSelfie(ctx context.Context, id, url string) error {
	if url == "" {
		return fmt.Errorf("attach selfie %s: empty url", id)
	}
	return s.store.SetSelfieURL(ctx, id, url)
}

// IsInlineSelfie reports whether v is still an embedded image rather than a URL.
func IsInlineSelfie(v string) bool {
	if v == "" {
		return false
	}
	return strings.HasPrefix(v, "data:") || !strings.Contains(v, "://")
}
