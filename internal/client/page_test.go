package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wellcheck/internal/attendance"
	"wellcheck/internal/faceclient"
)

var frame = []byte("\xff\xd8\xff\xe0 fake jpeg")

// backend is a fake REST API that counts calls per route.
type backend struct {
	mu          sync.Mutex
	calls       map[string]int
	today       []attendance.Record
	submitCode  int
	submitError string
	lastSubmit  attendance.Submission
}

func newBackend(t *testing.T) (*backend, *Client) {
	t.Helper()
	b := &backend{calls: map[string]int{}, today: []attendance.Record{}, submitCode: http.StatusCreated}
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)
	c := New(srv.URL)
	c.SetToken("tok")
	return b, c
}

func (b *backend) count(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[route]
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	route := r.Method + " " + r.URL.Path
	b.calls[route]++

	if r.Header.Get("Authorization") != "Bearer tok" {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"missing or invalid token"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	switch route {
	case "GET /api/checkins/today":
		_ = json.NewEncoder(w).Encode(b.today)
	case "GET /api/user/profile":
		_, _ = w.Write([]byte(`{"id":"u1","name":"Ayu","role":"member"}`))
	case "GET /api/users":
		_, _ = w.Write([]byte(`[{"id":"u1","name":"Ayu","role":"member"}]`))
	case "GET /api/teams":
		_, _ = w.Write([]byte(`[{"id":"t1","name":"Core","members":["u1"]}]`))
	case "GET /api/projects":
		_, _ = w.Write([]byte(`[]`))
	case "POST /api/checkins":
		_ = json.NewDecoder(r.Body).Decode(&b.lastSubmit)
		if b.submitCode != http.StatusCreated {
			w.WriteHeader(b.submitCode)
			_, _ = w.Write([]byte(b.submitError))
			return
		}
		rec := b.lastSubmit.Record("u1", time.Now(), time.UTC)
		rec.ID = "rec-1"
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(rec)
	default:
		http.NotFound(w, r)
	}
}

type stubDetector struct {
	faces []faceclient.Face
	err   error
	calls int32
}

func (s *stubDetector) Detect(context.Context, []byte) ([]faceclient.Face, error) {
	atomic.AddInt32(&s.calls, 1)
	return s.faces, s.err
}

func happyFace() []faceclient.Face {
	return []faceclient.Face{{Age: 31, Gender: "female", Expressions: map[string]float64{"happy": 0.8, "neutral": 0.2}}}
}

func at(h, m int) time.Time {
	return time.Date(2026, 10, 12, h, m, 0, 0, time.UTC)
}

func newPage(t *testing.T, det Detector) (*Page, *backend) {
	t.Helper()
	b, c := newBackend(t)
	p := NewPage(c, det, attendance.DefaultPolicy())
	p.now = func() time.Time { return at(9, 0) }
	return p, b
}

func TestRefreshFetchesEverythingOnce(t *testing.T) {
	p, b := newPage(t, nil)
	b.today = []attendance.Record{{ID: "r1", Kind: attendance.KindCheckIn, OccurredAt: at(8, 0)}}

	require.NoError(t, p.Refresh(context.Background()))
	for _, route := range []string{"GET /api/checkins/today", "GET /api/user/profile", "GET /api/users", "GET /api/teams", "GET /api/projects"} {
		assert.Equal(t, 1, b.count(route), route)
	}
	assert.Equal(t, "Ayu", p.Profile().Name)
	users, teams, projects := p.Reference()
	assert.Len(t, users, 1)
	assert.Len(t, teams, 1)
	assert.Empty(t, projects)

	e := p.Eligibility(at(15, 59))
	assert.True(t, e.CheckInLocked)
	assert.True(t, e.CheckOutLocked)
	assert.Equal(t, attendance.TabCheckOut, e.DefaultTab)
	require.NotNil(t, e.CheckOutUnlockAt)
	assert.True(t, e.CheckOutUnlockAt.Equal(at(16, 0)))
	assert.False(t, p.Eligibility(at(16, 0)).CheckOutLocked)
}

func TestRefreshPropagatesErrors(t *testing.T) {
	p, _ := newPage(t, nil)
	p.api.SetToken("expired")

	err := p.Refresh(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "missing or invalid token", apiErr.Message)
}

func TestSubmitCheckInWithoutSelfieMakesNoCall(t *testing.T) {
	p, b := newPage(t, nil)

	_, err := p.Submit(context.Background(), attendance.KindCheckIn, "", "")
	assert.ErrorIs(t, err, attendance.ErrSelfieRequired)
	assert.Zero(t, b.count("POST /api/checkins"))
}

func TestSubmitCheckOutWithoutMoodMakesNoCall(t *testing.T) {
	p, b := newPage(t, nil)
	b.today = []attendance.Record{{Kind: attendance.KindCheckIn, OccurredAt: at(8, 0)}}
	require.NoError(t, p.ReloadToday(context.Background()))
	p.now = func() time.Time { return at(17, 0) }

	_, err := p.Capture(context.Background(), frame)
	require.NoError(t, err)
	_, err = p.Submit(context.Background(), attendance.KindCheckOut, "  ", "")
	assert.ErrorIs(t, err, attendance.ErrMoodRequired)
	assert.Zero(t, b.count("POST /api/checkins"))
	assert.True(t, p.HasSelfie(), "form is kept after a validation failure")
}

func TestSubmitCheckInDerivesMoodAndResetsForm(t *testing.T) {
	det := &stubDetector{faces: happyFace()}
	p, b := newPage(t, det)

	face, err := p.Capture(context.Background(), frame)
	require.NoError(t, err)
	require.NotNil(t, face)
	assert.Equal(t, "happy", face.Expression)

	rec, err := p.Submit(context.Background(), attendance.KindCheckIn, "", "feeling good")
	require.NoError(t, err)
	assert.Equal(t, "happy", rec.Mood)
	assert.Equal(t, "happy", b.lastSubmit.Mood)
	assert.Equal(t, "female", b.lastSubmit.Face.Gender)
	assert.Equal(t, 1, b.count("POST /api/checkins"))

	assert.False(t, p.HasSelfie())
	assert.True(t, p.Eligibility(at(9, 1)).CheckInLocked)

	_, err = p.Capture(context.Background(), frame)
	require.NoError(t, err)
	_, err = p.Submit(context.Background(), attendance.KindCheckIn, "", "")
	assert.ErrorIs(t, err, attendance.ErrCheckInLocked)
	assert.Equal(t, 1, b.count("POST /api/checkins"), "locked gate makes no call")
}

func TestCaptureNoFaceDiscardsPreview(t *testing.T) {
	det := &stubDetector{faces: happyFace()}
	p, _ := newPage(t, det)
	_, err := p.Capture(context.Background(), frame)
	require.NoError(t, err)
	require.True(t, p.HasSelfie())

	det.faces, det.err = nil, faceclient.ErrNoFace
	_, err = p.Capture(context.Background(), frame)
	assert.ErrorIs(t, err, ErrNoFaceDetected)
	assert.False(t, p.HasSelfie())

	det.err = nil
	_, err = p.Capture(context.Background(), frame)
	assert.ErrorIs(t, err, ErrNoFaceDetected)
}

func TestCaptureInferenceUnavailableFallsBackToUnknown(t *testing.T) {
	det := &stubDetector{err: errors.New("face service unavailable")}
	p, b := newPage(t, det)

	face, err := p.Capture(context.Background(), frame)
	require.NoError(t, err)
	assert.Nil(t, face)

	rec, err := p.Submit(context.Background(), attendance.KindCheckIn, "", "")
	require.NoError(t, err)
	assert.Equal(t, attendance.MoodUnknown, rec.Mood)
	assert.Nil(t, b.lastSubmit.Face)
}

func TestStaleRejectionRefetchesToday(t *testing.T) {
	p, b := newPage(t, &stubDetector{faces: happyFace()})
	b.submitCode = http.StatusConflict
	b.submitError = `{"error":"already checked in today"}`

	_, err := p.Capture(context.Background(), frame)
	require.NoError(t, err)
	// Another session checked in meanwhile.
	b.mu.Lock()
	b.today = []attendance.Record{{Kind: attendance.KindCheckIn, OccurredAt: at(8, 30)}}
	b.mu.Unlock()

	_, err = p.Submit(context.Background(), attendance.KindCheckIn, "", "")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.Stale())
	assert.Equal(t, "already checked in today", apiErr.Message)
	assert.Equal(t, 1, b.count("GET /api/checkins/today"))
	assert.True(t, p.Eligibility(at(9, 0)).CheckInLocked)
}

func TestBackendErrorWithoutMessageIsGeneric(t *testing.T) {
	p, b := newPage(t, nil)
	b.submitCode = http.StatusBadGateway
	b.submitError = `<html>bad gateway</html>`

	_, err := p.Capture(context.Background(), frame)
	require.NoError(t, err)
	_, err = p.Submit(context.Background(), attendance.KindCheckIn, "", "")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, genericMessage, apiErr.Message)
	assert.False(t, apiErr.Stale())
	assert.Zero(t, b.count("GET /api/checkins/today"))
	assert.True(t, p.HasSelfie(), "user may retry by resubmitting")
}

func TestWatchFlipsCheckoutLock(t *testing.T) {
	p, b := newPage(t, nil)
	b.today = []attendance.Record{{Kind: attendance.KindCheckIn, OccurredAt: at(9, 0)}}
	require.NoError(t, p.ReloadToday(context.Background()))

	var mu sync.Mutex
	clock := at(16, 59)
	p.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Minute)
		return clock.Add(-time.Minute)
	}

	ctx, cancel := context.WithCancel(context.Background())
	var seen []bool
	err := p.Watch(ctx, time.Millisecond, func(_ time.Time, e attendance.Eligibility) {
		seen = append(seen, e.CheckOutLocked)
		if len(seen) == 2 {
			cancel()
		}
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []bool{true, false}, seen)
}
