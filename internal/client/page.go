package client

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"wellcheck/internal/attendance"
	"wellcheck/internal/faceclient"
	"wellcheck/internal/project"
	"wellcheck/internal/team"
	"wellcheck/internal/user"
)

// ErrNoFaceDetected means the captured frame had no face. The preview is
// discarded and the selfie must be retaken.
var ErrNoFaceDetected = errors.New("no face detected, please retake your selfie")

// Detector runs face inference on a captured frame. *faceclient.Client implements it.
type Detector interface {
	Detect(ctx context.Context, frame []byte) ([]faceclient.Face, error)
}

// Page holds the check-in page state: today's records, reference lists and
// the selfie captured for the next submission.
type Page struct {
	api      *Client
	detector Detector
	policy   attendance.Policy
	now      func() time.Time

	mu       sync.RWMutex
	records  []attendance.Record
	profile  user.User
	users    []user.User
	teams    []team.Team
	projects []project.Detail
	selfie   string
	face     *attendance.FaceAttributes
}

// NewPage creates page state. detector may be nil, in which case check-in
// moods fall back to unknown.
func NewPage(api *Client, detector Detector, policy attendance.Policy) *Page {
	if policy.Location == nil {
		policy.Location = time.UTC
	}
	return &Page{api: api, detector: detector, policy: policy, now: time.Now}
}

// Refresh fetches today's records, the profile and the reference lists in
// parallel and applies them together once all have arrived.
func (p *Page) Refresh(ctx context.Context) error {
	var (
		records  []attendance.Record
		profile  user.User
		users    []user.User
		teams    []team.Team
		projects []project.Detail
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { records, err = p.api.Today(gctx); return })
	g.Go(func() (err error) { profile, err = p.api.Profile(gctx); return })
	g.Go(func() (err error) { users, err = p.api.Users(gctx); return })
	g.Go(func() (err error) { teams, err = p.api.Teams(gctx); return })
	g.Go(func() (err error) { projects, err = p.api.Projects(gctx); return })
	if err := g.Wait(); err != nil {
		return err
	}

	p.mu.Lock()
	p.records, p.profile, p.users, p.teams, p.projects = records, profile, users, teams, projects
	p.mu.Unlock()
	return nil
}

// ReloadToday refetches only today's records.
func (p *Page) ReloadToday(ctx context.Context) error {
	records, err := p.api.Today(ctx)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.records = records
	p.mu.Unlock()
	return nil
}

// Records returns a copy of today's records as last fetched.
func (p *Page) Records() []attendance.Record {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]attendance.Record(nil), p.records...)
}

// Profile returns the signed-in user as last fetched.
func (p *Page) Profile() user.User {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.profile
}

// Reference returns the users, teams and projects as last fetched.
func (p *Page) Reference() ([]user.User, []team.Team, []project.Detail) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.users, p.teams, p.projects
}

// Eligibility evaluates the gate over the last fetched records at now.
func (p *Page) Eligibility(now time.Time) attendance.Eligibility {
	return attendance.Evaluate(p.Records(), now, p.policy)
}

// Warning evaluates the dashboard warning over the last fetched records at now.
func (p *Page) Warning(now time.Time) attendance.Warning {
	return attendance.Warn(p.Records(), now, p.policy)
}

// Capture keeps frame as the selfie for the next submission and runs face
// inference on it. Zero detections discard the preview and return
// ErrNoFaceDetected. When inference is unavailable the selfie is kept with no
// face attributes and nil is returned.
func (p *Page) Capture(ctx context.Context, frame []byte) (*attendance.FaceAttributes, error) {
	if len(frame) == 0 {
		return nil, attendance.ErrSelfieRequired
	}
	var face *attendance.FaceAttributes
	if p.detector != nil {
		faces, err := p.detector.Detect(ctx, frame)
		switch {
		case errors.Is(err, faceclient.ErrNoFace) || (err == nil && len(faces) == 0):
			p.ClearCapture()
			return nil, ErrNoFaceDetected
		case err != nil:
			log.Printf("face inference unavailable: %v", err)
		default:
			face = faces[0].Attributes()
		}
	}

	p.mu.Lock()
	p.selfie = faceclient.DataURL(frame)
	p.face = face
	p.mu.Unlock()
	return face, nil
}

// ClearCapture discards the captured selfie.
func (p *Page) ClearCapture() {
	p.mu.Lock()
	p.selfie, p.face = "", nil
	p.mu.Unlock()
}

// HasSelfie reports whether a selfie is ready to submit.
func (p *Page) HasSelfie() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.selfie != ""
}

// Submit sends a check-in or check-out built from the captured selfie.
// Missing fields and a locked gate are rejected without a network call. On
// success the form is reset; on a stale-state rejection today's records are
// refetched so the gate reflects the backend.
func (p *Page) Submit(ctx context.Context, kind attendance.Kind, mood, note string) (attendance.Record, error) {
	p.mu.RLock()
	sub := attendance.Submission{Kind: kind, Mood: mood, Note: note, SelfieImage: p.selfie}
	if kind == attendance.KindCheckIn {
		sub.Face = p.face
	}
	p.mu.RUnlock()

	if err := sub.Validate(); err != nil {
		return attendance.Record{}, err
	}
	e := p.Eligibility(p.now())
	if kind == attendance.KindCheckIn && e.CheckInLocked {
		return attendance.Record{}, attendance.ErrCheckInLocked
	}
	if kind == attendance.KindCheckOut && e.CheckOutLocked {
		return attendance.Record{}, attendance.ErrCheckOutLocked
	}

	rec, err := p.api.Submit(ctx, sub.Normalized())
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Stale() {
			if rerr := p.ReloadToday(ctx); rerr != nil {
				log.Printf("resync after stale submission failed: %v", rerr)
			}
		}
		return attendance.Record{}, err
	}

	p.mu.Lock()
	p.records = append(p.records, rec)
	p.selfie, p.face = "", nil
	p.mu.Unlock()
	return rec, nil
}

// Watch calls fn with the gate evaluation now and then every interval until
// ctx ends, so the check-out lock flips without a reload. interval defaults
// to one minute.
func (p *Page) Watch(ctx context.Context, interval time.Duration, fn func(time.Time, attendance.Eligibility)) error {
	if interval <= 0 {
		interval = time.Minute
	}
	now := p.now()
	fn(now, p.Eligibility(now))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			now := p.now()
			fn(now, p.Eligibility(now))
		}
	}
}
