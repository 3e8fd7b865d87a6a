package team

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Store is the persistence the service needs. *Repository implements it.
type Store interface {
	List(ctx context.Context) ([]Team, error)
	Get(ctx context.Context, id string) (Team, error)
	Create(ctx context.Context, t Team) error
	Update(ctx context.Context, t Team) error
	Delete(ctx context.Context, id string) error
}

// Service manages teams.
type Service struct {
	store Store
}

// NewService creates a service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// List returns all teams.
func (s *Service) List(ctx context.Context) ([]Team, error) {
	teams, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	if teams == nil {
		teams = []Team{}
	}
	return teams, nil
}

// Get returns one team.
func (s *Service) Get(ctx context.Context, id string) (Team, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Team{}, fmt.Errorf("%w: team id", ErrInvalidInput)
	}
	return s.store.Get(ctx, id)
}

// Create validates in and stores a new team.
func (s *Service) Create(ctx context.Context, in Input) (Team, error) {
	in, err := in.normalize()
	if err != nil {
		return Team{}, err
	}
	t := Team{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Description: in.Description,
		Members:     in.Members,
		Lead:        in.Lead,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.Create(ctx, t); err != nil {
		return Team{}, fmt.Errorf("create team: %w", err)
	}
	return s.store.Get(ctx, t.ID)
}

// Update replaces the team's fields and membership.
func (s *Service) Update(ctx context.Context, id string, in Input) (Team, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Team{}, fmt.Errorf("%w: team id", ErrInvalidInput)
	}
	in, err := in.normalize()
	if err != nil {
		return Team{}, err
	}
	t := Team{ID: id, Name: in.Name, Description: in.Description, Members: in.Members, Lead: in.Lead}
	if err := s.store.Update(ctx, t); err != nil {
		return Team{}, err
	}
	return s.store.Get(ctx, id)
}

// Delete removes a team.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: team id", ErrInvalidInput)
	}
	return s.store.Delete(ctx, id)
}
