package user

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"wellcheck/internal/auth"
)

// Store is the persistence the service needs. *Repository implements it.
type Store interface {
	Create(ctx context.Context, u User) error
	ByEmail(ctx context.Context, email string) (User, error)
	ByID(ctx context.Context, id string) (User, error)
	Update(ctx context.Context, u User) error
	List(ctx context.Context, ids ...string) ([]User, error)
}

// TokenConfig controls access tokens issued on login.
type TokenConfig struct {
	Issuer     string
	SigningKey string
	TTL        time.Duration
}

// Session is what a successful login returns.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      User      `json:"user"`
}

// Service manages accounts.
type Service struct {
	store  Store
	tokens TokenConfig
}

// NewService creates a service.
func NewService(store Store, tokens TokenConfig) *Service {
	return &Service{store: store, tokens: tokens}
}

// Register creates a member account.
func (s *Service) Register(ctx context.Context, in RegisterInput) (User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	if err := check(in); err != nil {
		return User{}, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	u := User{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         auth.RoleMember,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.Create(ctx, u); err != nil {
		return User{}, err
	}
	log.Printf("registered user %s", u.ID)
	return u, nil
}

// Login verifies credentials and issues an access token.
func (s *Service) Login(ctx context.Context, in LoginInput) (Session, error) {
	in.Email = normalizeEmail(in.Email)
	if err := check(in); err != nil {
		return Session{}, err
	}
	u, err := s.store.ByEmail(ctx, in.Email)
	if errors.Is(err, ErrNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if !auth.CheckPassword(u.PasswordHash, in.Password) {
		return Session{}, ErrInvalidCredentials
	}
	tok, err := auth.Issue(auth.Claims{UserID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role},
		s.tokens.Issuer, s.tokens.SigningKey, s.tokens.TTL)
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}
	return Session{Token: tok.AccessToken, ExpiresAt: tok.ExpiresAt, User: u}, nil
}

// Profile returns the user with id.
func (s *Service) Profile(ctx context.Context, id string) (User, error) {
	return s.store.ByID(ctx, id)
}

// UpdateProfile applies upd to the user with id.
func (s *Service) UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) (User, error) {
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		upd.Name = &name
	}
	if err := check(upd); err != nil {
		return User{}, err
	}
	u, err := s.store.ByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.Avatar != nil {
		u.Avatar = strings.TrimSpace(*upd.Avatar)
	}
	if upd.Password != nil {
		hash, err := auth.HashPassword(*upd.Password)
		if err != nil {
			return User{}, fmt.Errorf("hash password: %w", err)
		}
		u.PasswordHash = hash
	}
	if err := s.store.Update(ctx, u); err != nil {
		return User{}, err
	}
	return u, nil
}

// List returns users, optionally restricted to ids.
func (s *Service) List(ctx context.Context, ids ...string) ([]User, error) {
	users, err := s.store.List(ctx, ids...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	if users == nil {
		users = []User{}
	}
	return users, nil
}
