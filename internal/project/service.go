package project

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"wellcheck/internal/team"
	"wellcheck/internal/user"
)

// Store is the persistence the service needs. *Repository implements it.
type Store interface {
	List(ctx context.Context) ([]Project, error)
	Get(ctx context.Context, id string) (Project, error)
	Create(ctx context.Context, p Project) error
	Update(ctx context.Context, p Project) error
	Delete(ctx context.Context, id string) error
}

// TeamLister supplies teams for expansion. *team.Service implements it.
type TeamLister interface {
	List(ctx context.Context) ([]team.Team, error)
}

// UserLister supplies member profiles. *user.Service implements it.
type UserLister interface {
	List(ctx context.Context, ids ...string) ([]user.User, error)
}

// Service manages projects.
type Service struct {
	store Store
	teams TeamLister
	users UserLister
}

// NewService creates a service.
func NewService(store Store, teams TeamLister, users UserLister) *Service {
	return &Service{store: store, teams: teams, users: users}
}

// List returns every project with teams and members expanded.
func (s *Service) List(ctx context.Context) ([]Detail, error) {
	projects, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return s.expand(ctx, projects)
}

// Get returns one project with teams and members expanded.
func (s *Service) Get(ctx context.Context, id string) (Detail, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Detail{}, fmt.Errorf("%w: project id", ErrInvalidInput)
	}
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	out, err := s.expand(ctx, []Project{p})
	if err != nil {
		return Detail{}, err
	}
	return out[0], nil
}

// Create validates in and stores a new project.
func (s *Service) Create(ctx context.Context, in Input) (Detail, error) {
	in, err := in.normalize()
	if err != nil {
		return Detail{}, err
	}
	p := Project{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Description: in.Description,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		Teams:       in.Teams,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.Create(ctx, p); err != nil {
		return Detail{}, fmt.Errorf("create project: %w", err)
	}
	return s.Get(ctx, p.ID)
}

// Update replaces the project's fields and team links.
func (s *Service) Update(ctx context.Context, id string, in Input) (Detail, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Detail{}, fmt.Errorf("%w: project id", ErrInvalidInput)
	}
	in, err := in.normalize()
	if err != nil {
		return Detail{}, err
	}
	p := Project{ID: id, Name: in.Name, Description: in.Description, StartDate: in.StartDate, EndDate: in.EndDate, Teams: in.Teams}
	if err := s.store.Update(ctx, p); err != nil {
		return Detail{}, err
	}
	return s.Get(ctx, id)
}

// Delete removes a project.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: project id", ErrInvalidInput)
	}
	return s.store.Delete(ctx, id)
}

// expand resolves team ids and member ids with one lookup each.
func (s *Service) expand(ctx context.Context, projects []Project) ([]Detail, error) {
	out := make([]Detail, 0, len(projects))
	if len(projects) == 0 {
		return out, nil
	}

	teams, err := s.teams.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("expand teams: %w", err)
	}
	teamByID := make(map[string]team.Team, len(teams))
	var memberIDs []string
	for _, t := range teams {
		teamByID[t.ID] = t
		memberIDs = append(memberIDs, t.Members...)
	}

	userByID := map[string]user.User{}
	if len(memberIDs) > 0 {
		users, err := s.users.List(ctx, memberIDs...)
		if err != nil {
			return nil, fmt.Errorf("expand members: %w", err)
		}
		for _, u := range users {
			userByID[u.ID] = u
		}
	}

	for _, p := range projects {
		d := Detail{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			StartDate:   p.StartDate,
			EndDate:     p.EndDate,
			Teams:       []TeamDetail{},
			CreatedAt:   p.CreatedAt,
		}
		for _, tid := range p.Teams {
			t, ok := teamByID[tid]
			if !ok {
				continue
			}
			td := TeamDetail{
				ID:          t.ID,
				Name:        t.Name,
				Description: t.Description,
				Members:     []user.User{},
				Lead:        t.Lead,
				CreatedAt:   t.CreatedAt,
			}
			for _, mid := range t.Members {
				if u, ok := userByID[mid]; ok {
					td.Members = append(td.Members, u)
				}
			}
			d.Teams = append(d.Teams, td)
		}
		out = append(out, d)
	}
	return out, nil
}
