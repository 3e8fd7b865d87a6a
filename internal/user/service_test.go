package user

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wellcheck/internal/auth"
)

type memStore struct {
	mu    sync.Mutex
	users map[string]User
}

func newMemStore() *memStore { return &memStore{users: map[string]User{}} }

func (m *memStore) Create(_ context.Context, u User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return ErrEmailTaken
		}
	}
	m.users[u.ID] = u
	return nil
}

func (m *memStore) ByEmail(_ context.Context, email string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (m *memStore) ByID(_ context.Context, id string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (m *memStore) Update(_ context.Context, u User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return ErrNotFound
	}
	m.users[u.ID] = u
	return nil
}

func (m *memStore) List(_ context.Context, ids ...string) ([]User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var out []User
	for _, u := range m.users {
		if len(ids) == 0 || want[u.ID] {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

var testTokens = TokenConfig{Issuer: "wellcheck-test", SigningKey: "k", TTL: time.Hour}

func TestRegisterAndLogin(t *testing.T) {
	svc := NewService(newMemStore(), testTokens)
	ctx := context.Background()

	u, err := svc.Register(ctx, RegisterInput{Name: " Ayu ", Email: "Ayu@Example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "Ayu", u.Name)
	assert.Equal(t, "ayu@example.com", u.Email)
	assert.Equal(t, auth.RoleMember, u.Role)
	assert.NotEqual(t, "secret1", u.PasswordHash)

	_, err = svc.Register(ctx, RegisterInput{Name: "Other", Email: "ayu@example.com", Password: "secret2"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	sess, err := svc.Login(ctx, LoginInput{Email: "AYU@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, u.ID, sess.User.ID)

	claims, err := auth.Parse(sess.Token, testTokens.SigningKey, testTokens.Issuer)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
	assert.Equal(t, auth.RoleMember, claims.Role)

	_, err = svc.Login(ctx, LoginInput{Email: "ayu@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterValidation(t *testing.T) {
	svc := NewService(newMemStore(), testTokens)
	cases := []RegisterInput{
		{Email: "a@example.com", Password: "secret1"},
		{Name: "A", Email: "not-an-email", Password: "secret1"},
		{Name: "A", Email: "a@example.com", Password: "123"},
	}
	for _, in := range cases {
		_, err := svc.Register(context.Background(), in)
		assert.ErrorIs(t, err, ErrInvalidInput, "%+v", in)
	}
}

func TestUpdateProfile(t *testing.T) {
	svc := NewService(newMemStore(), testTokens)
	ctx := context.Background()
	u, err := svc.Register(ctx, RegisterInput{Name: "Budi", Email: "budi@example.com", Password: "secret1"})
	require.NoError(t, err)

	name, avatar, pw := "Budi S.", "https://cdn.example.com/b.png", "newsecret"
	got, err := svc.UpdateProfile(ctx, u.ID, ProfileUpdate{Name: &name, Avatar: &avatar, Password: &pw})
	require.NoError(t, err)
	assert.Equal(t, "Budi S.", got.Name)
	assert.Equal(t, avatar, got.Avatar)

	_, err = svc.Login(ctx, LoginInput{Email: "budi@example.com", Password: "newsecret"})
	assert.NoError(t, err)

	empty := "  "
	_, err = svc.UpdateProfile(ctx, u.ID, ProfileUpdate{Name: &empty})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.UpdateProfile(ctx, "missing", ProfileUpdate{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestList(t *testing.T) {
	svc := NewService(newMemStore(), testTokens)
	ctx := context.Background()

	users, err := svc.List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, users)

	a, _ := svc.Register(ctx, RegisterInput{Name: "A", Email: "a@example.com", Password: "secret1"})
	_, _ = svc.Register(ctx, RegisterInput{Name: "B", Email: "b@example.com", Password: "secret1"})

	users, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	users, err = svc.List(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "A", users[0].Name)
}
