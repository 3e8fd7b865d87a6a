package project

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wellcheck/internal/team"
	"wellcheck/internal/user"
)

type memStore struct {
	projects map[string]Project
}

func (m *memStore) List(context.Context) ([]Project, error) {
	var out []Project
	for _, p := range m.projects {
		out = append(out, p)
	}
	return out, nil
}

func (m *memStore) Get(_ context.Context, id string) (Project, error) {
	p, ok := m.projects[id]
	if !ok {
		return Project{}, ErrNotFound
	}
	return p, nil
}

func (m *memStore) Create(_ context.Context, p Project) error {
	m.projects[p.ID] = p
	return nil
}

func (m *memStore) Update(_ context.Context, p Project) error {
	old, ok := m.projects[p.ID]
	if !ok {
		return ErrNotFound
	}
	p.CreatedAt = old.CreatedAt
	m.projects[p.ID] = p
	return nil
}

func (m *memStore) Delete(_ context.Context, id string) error {
	if _, ok := m.projects[id]; !ok {
		return ErrNotFound
	}
	delete(m.projects, id)
	return nil
}

type staticTeams []team.Team

func (s staticTeams) List(context.Context) ([]team.Team, error) { return s, nil }

type staticUsers struct {
	users []user.User
	calls int
	err   error
}

func (s *staticUsers) List(_ context.Context, ids ...string) ([]user.User, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var out []user.User
	for _, u := range s.users {
		if want[u.ID] {
			out = append(out, u)
		}
	}
	return out, nil
}

func fixture() (*Service, team.Team, *staticUsers) {
	alice := user.User{ID: uuid.NewString(), Name: "Alice", Role: "member"}
	bob := user.User{ID: uuid.NewString(), Name: "Bob", Role: "manager"}
	tm := team.Team{ID: uuid.NewString(), Name: "Core", Members: []string{alice.ID, bob.ID, uuid.NewString()}, Lead: bob.ID}
	users := &staticUsers{users: []user.User{alice, bob}}
	svc := NewService(&memStore{projects: map[string]Project{}}, staticTeams{tm}, users)
	return svc, tm, users
}

func TestCreateExpandsTeams(t *testing.T) {
	svc, tm, users := fixture()
	start := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	d, err := svc.Create(context.Background(), Input{
		Name:      "Wellbeing",
		StartDate: &start,
		Teams:     []string{tm.ID, "not-a-uuid", uuid.NewString()},
	})
	require.NoError(t, err)
	require.Len(t, d.Teams, 1, "unknown team ids are skipped")
	assert.Equal(t, "Core", d.Teams[0].Name)
	assert.Equal(t, tm.Lead, d.Teams[0].Lead)

	names := []string{}
	for _, m := range d.Teams[0].Members {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"Alice", "Bob"}, names, "unknown member ids are skipped")
	assert.Equal(t, 1, users.calls)
}

func TestListEmpty(t *testing.T) {
	svc, _, users := fixture()
	got, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Zero(t, users.calls)
}

func TestInputValidation(t *testing.T) {
	svc, _, _ := fixture()
	start := time.Date(2026, 10, 10, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, -1)

	_, err := svc.Create(context.Background(), Input{Name: ""})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Create(context.Background(), Input{Name: "x", StartDate: &start, EndDate: &end})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Get(context.Background(), "bad")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUpdateDelete(t *testing.T) {
	svc, _, _ := fixture()
	ctx := context.Background()
	d, err := svc.Create(ctx, Input{Name: "A"})
	require.NoError(t, err)

	got, err := svc.Update(ctx, d.ID, Input{Name: "B", Description: " desc "})
	require.NoError(t, err)
	assert.Equal(t, "B", got.Name)
	assert.Equal(t, "desc", got.Description)
	assert.Equal(t, d.CreatedAt, got.CreatedAt)

	require.NoError(t, svc.Delete(ctx, d.ID))
	_, err = svc.Get(ctx, d.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExpandErrorPropagates(t *testing.T) {
	svc, tm, users := fixture()
	users.err = errors.New("db down")
	_, err := svc.Create(context.Background(), Input{Name: "A", Teams: []string{tm.ID}})
	assert.ErrorContains(t, err, "db down")
}
