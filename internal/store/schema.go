package store

import (
	"context"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            UUID PRIMARY KEY,
	name          TEXT NOT NULL,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	avatar        TEXT NOT NULL DEFAULT '',
	role          TEXT NOT NULL DEFAULT 'member',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS teams (
	id          UUID PRIMARY KEY,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	lead_id     UUID REFERENCES users(id) ON DELETE SET NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS team_members (
	team_id UUID NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
	user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	PRIMARY KEY (team_id, user_id)
);

CREATE TABLE IF NOT EXISTS projects (
	id          UUID PRIMARY KEY,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	start_date  TIMESTAMPTZ,
	end_date    TIMESTAMPTZ,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS project_teams (
	project_id UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	team_id    UUID NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
	PRIMARY KEY (project_id, team_id)
);

CREATE TABLE IF NOT EXISTS attendance_records (
	id              UUID PRIMARY KEY,
	user_id         UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	kind            TEXT NOT NULL CHECK (kind IN ('checkin', 'checkout')),
	mood            TEXT NOT NULL DEFAULT '',
	note            TEXT NOT NULL DEFAULT '',
	selfie_url      TEXT NOT NULL DEFAULT '',
	face_gender     TEXT,
	face_age        DOUBLE PRECISION,
	face_expression TEXT,
	status          TEXT NOT NULL DEFAULT 'present',
	day             TEXT NOT NULL,
	occurred_at     TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS uq_attendance_user_kind_day ON attendance_records(user_id, kind, day);
CREATE INDEX IF NOT EXISTS idx_attendance_occurred ON attendance_records(occurred_at);
`

// Migrate creates the tables the API uses if they do not exist yet.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.Client.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
