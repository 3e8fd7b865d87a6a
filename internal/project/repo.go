package project

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

// Repository persists projects in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const selectProjects = `
	SELECT p.id, p.name, p.description, p.start_date, p.end_date, p.created_at,
	       COALESCE(string_agg(pt.team_id::text, ',' ORDER BY pt.team_id), '')
	FROM projects p
	LEFT JOIN project_teams pt ON pt.project_id = p.id
`

func scanProject(row interface{ Scan(...any) error }) (Project, error) {
	var (
		p          Project
		start, end sql.NullTime
		teams      string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &start, &end, &p.CreatedAt, &teams); err != nil {
		return Project{}, err
	}
	if start.Valid {
		p.StartDate = &start.Time
	}
	if end.Valid {
		p.EndDate = &end.Time
	}
	p.Teams = []string{}
	if teams != "" {
		p.Teams = strings.Split(teams, ",")
	}
	return p, nil
}

// List returns every project, newest first.
func (r *Repository) List(ctx context.Context) ([]Project, error) {
	rows, err := r.db.QueryContext(ctx, selectProjects+` GROUP BY p.id ORDER BY p.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Get returns a single project.
func (r *Repository) Get(ctx context.Context, id string) (Project, error) {
	p, err := scanProject(r.db.QueryRowContext(ctx, selectProjects+` WHERE p.id::text = $1 GROUP BY p.id`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Project{}, ErrNotFound
	}
	return p, err
}

// Create inserts p and links its teams. Unknown team ids are ignored.
func (r *Repository) Create(ctx context.Context, p Project) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO projects (id, name, description, start_date, end_date, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, p.ID, p.Name, p.Description, p.StartDate, p.EndDate, p.CreatedAt); err != nil {
			return err
		}
		return setTeams(ctx, tx, p.ID, p.Teams)
	})
}

// Update replaces the project's fields and team links.
func (r *Repository) Update(ctx context.Context, p Project) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE projects SET name = $2, description = $3, start_date = $4, end_date = $5
			WHERE id::text = $1
		`, p.ID, p.Name, p.Description, p.StartDate, p.EndDate)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM project_teams WHERE project_id::text = $1`, p.ID); err != nil {
			return err
		}
		return setTeams(ctx, tx, p.ID, p.Teams)
	})
}

// Delete removes a project.
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id::text = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func setTeams(ctx context.Context, tx *sql.Tx, projectID string, teams []string) error {
	if len(teams) == 0 {
		return nil
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO project_teams (project_id, team_id)
		SELECT $1::uuid, t.id FROM teams t WHERE t.id::text = ANY($2)
		ON CONFLICT DO NOTHING
	`, projectID, teams)
	return err
}

func (r *Repository) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
