package attendance

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// Repository persists attendance records in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const recordColumns = `id, user_id, kind, mood, note, selfie_url, face_gender, face_age, face_expression, status, day, occurred_at`

// listColumns is recordColumns with the selfie payload replaced by an empty string.
const listColumns = `id, user_id, kind, mood, note, '' AS selfie_url, face_gender, face_age, face_expression, status, day, occurred_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var (
		rec    Record
		gender sql.NullString
		age    sql.NullFloat64
		expr   sql.NullString
	)
	if err := row.Scan(&rec.ID, &rec.UserID, &rec.Kind, &rec.Mood, &rec.Note, &rec.SelfieURL,
		&gender, &age, &expr, &rec.Status, &rec.Day, &rec.OccurredAt); err != nil {
		return Record{}, err
	}
	if gender.Valid || age.Valid || expr.Valid {
		rec.Face = &FaceAttributes{Gender: gender.String, Age: age.Float64, Expression: expr.String}
	}
	rec.OccurredAt = rec.OccurredAt.UTC()
	return rec, nil
}

// ListDay returns the user's records for one calendar day, oldest first.
func (r *Repository) ListDay(ctx context.Context, userID, day string) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM attendance_records
		WHERE user_id = $1 AND day = $2
		ORDER BY occurred_at ASC
	`, userID, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

// Insert writes a new record. The (user_id, kind, day) unique index turns a
// concurrent duplicate into ErrAlreadyRecorded.
func (r *Repository) Insert(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Status == "" {
		rec.Status = StatusPresent
	}
	var gender, expr sql.NullString
	var age sql.NullFloat64
	if rec.Face != nil {
		gender = sql.NullString{String: rec.Face.Gender, Valid: true}
		age = sql.NullFloat64{Float64: rec.Face.Age, Valid: true}
		expr = sql.NullString{String: rec.Face.Expression, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance_records (`+recordColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, rec.ID, rec.UserID, string(rec.Kind), rec.Mood, rec.Note, rec.SelfieURL,
		gender, age, expr, rec.Status, rec.Day, rec.OccurredAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Record{}, ErrAlreadyRecorded
		}
		return Record{}, err
	}
	return rec, nil
}

// Get returns a single record by id.
func (r *Repository) Get(ctx context.Context, id string) (Record, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM attendance_records WHERE id = $1`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return rec, err
}

// SetSelfieURL stores the uploaded selfie location.
func (r *Repository) SetSelfieURL(ctx context.Context, id, url string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE attendance_records SET selfie_url = $2 WHERE id = $1`, id, url)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns records with basic filters, newest first.
func (r *Repository) List(ctx context.Context, f Filter) ([]Record, error) {
	limit, offset := f.Limit, f.Offset
	if limit <= 0 {
		limit = 500
	}
	if offset < 0 {
		offset = 0
	}
	columns := recordColumns
	if f.OmitSelfie {
		columns = listColumns
	}
	query := `SELECT ` + columns + ` FROM attendance_records`
	args := []any{}
	clauses := []string{}
	if f.UserID != "" {
		args = append(args, f.UserID)
		clauses = append(clauses, "user_id = $"+strconv.Itoa(len(args)))
	}
	if !f.From.IsZero() {
		args = append(args, f.From)
		clauses = append(clauses, "occurred_at >= $"+strconv.Itoa(len(args)))
	}
	if !f.To.IsZero() {
		args = append(args, f.To)
		clauses = append(clauses, "occurred_at < $"+strconv.Itoa(len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY occurred_at DESC LIMIT $" + strconv.Itoa(len(args)+1) + " OFFSET $" + strconv.Itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}
