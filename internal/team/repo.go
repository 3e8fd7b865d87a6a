package team

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

// Repository persists teams and their membership in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const selectTeams = `
	SELECT t.id, t.name, t.description, COALESCE(t.lead_id::text, ''), t.created_at,
	       COALESCE(string_agg(m.user_id::text, ',' ORDER BY m.user_id), '')
	FROM teams t
	LEFT JOIN team_members m ON m.team_id = t.id
`

func scanTeam(row interface{ Scan(...any) error }) (Team, error) {
	var (
		t       Team
		members string
	)
	if err := row.Scan(&t.ID, &t.Name, &t.Description, &t.Lead, &t.CreatedAt, &members); err != nil {
		return Team{}, err
	}
	t.Members = []string{}
	if members != "" {
		t.Members = strings.Split(members, ",")
	}
	return t, nil
}

// List returns every team, newest first.
func (r *Repository) List(ctx context.Context) ([]Team, error) {
	rows, err := r.db.QueryContext(ctx, selectTeams+` GROUP BY t.id ORDER BY t.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Team
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Get returns a single team.
func (r *Repository) Get(ctx context.Context, id string) (Team, error) {
	t, err := scanTeam(r.db.QueryRowContext(ctx, selectTeams+` WHERE t.id::text = $1 GROUP BY t.id`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Team{}, ErrNotFound
	}
	return t, err
}

// Create inserts t and its members. Ids of unknown users are ignored.
func (r *Repository) Create(ctx context.Context, t Team) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO teams (id, name, description, lead_id, created_at)
			VALUES ($1, $2, $3, (SELECT id FROM users WHERE id::text = $4), $5)
		`, t.ID, t.Name, t.Description, t.Lead, t.CreatedAt); err != nil {
			return err
		}
		return setMembers(ctx, tx, t.ID, t.Members)
	})
}

// Update replaces the team's fields and membership.
func (r *Repository) Update(ctx context.Context, t Team) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE teams SET name = $2, description = $3, lead_id = (SELECT id FROM users WHERE id::text = $4)
			WHERE id::text = $1
		`, t.ID, t.Name, t.Description, t.Lead)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM team_members WHERE team_id::text = $1`, t.ID); err != nil {
			return err
		}
		return setMembers(ctx, tx, t.ID, t.Members)
	})
}

// Delete removes a team; membership rows cascade.
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM teams WHERE id::text = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func setMembers(ctx context.Context, tx *sql.Tx, teamID string, members []string) error {
	if len(members) == 0 {
		return nil
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO team_members (team_id, user_id)
		SELECT $1::uuid, u.id FROM users u WHERE u.id::text = ANY($2)
		ON CONFLICT DO NOTHING
	`, teamID, members)
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
