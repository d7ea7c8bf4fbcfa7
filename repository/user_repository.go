package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"adminSeeder/internal/db"
	"adminSeeder/models"
)

const userColumns = `id, email, name, role, created_at`

type UserRepository struct {
	db *db.Conn
}

func NewUserRepository(d *db.Conn) *UserRepository {
	return &UserRepository{db: d}
}

// Create inserts u as a single atomic statement and returns the stored copy
// with its generated ID. Role defaults to "user" and CreatedAt to now.
// A taken email yields ErrDuplicateEmail; nothing is written in that case.
// The insert carries no deadline of its own: it waits as long as ctx and
// the driver's busy handling allow.
func (r *UserRepository) Create(ctx context.Context, u *models.User) (*models.User, error) {
	out := *u
	if out.Role == "" {
		out.Role = models.RoleUser
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = time.Now().UTC()
	}

	const insert = `INSERT INTO users (email, name, role, created_at) VALUES (?, ?, ?, ?)`
	args := []any{out.Email, out.Name, string(out.Role), out.CreatedAt}

	if r.db.Dialect == db.Postgres {
		// pgx does not support LastInsertId.
		err := r.db.QueryRowContext(ctx, r.db.Rebind(insert+` RETURNING id`), args...).Scan(&out.ID)
		if err != nil {
			return nil, mapCreateErr(err)
		}
		return &out, nil
	}

	res, err := r.db.ExecContext(ctx, insert, args...)
	if err != nil {
		return nil, mapCreateErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	out.ID = id
	return &out, nil
}

func mapCreateErr(err error) error {
	if isUniqueViolation(err) {
		return ErrDuplicateEmail
	}
	return err
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	row := r.db.QueryRowContext(ctx, r.db.Rebind(`SELECT `+userColumns+` FROM users WHERE id = ?`), id)
	return scanUser(row)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	row := r.db.QueryRowContext(ctx, r.db.Rebind(`SELECT `+userColumns+` FROM users WHERE email = ?`), email)
	return scanUser(row)
}

func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, r.db.Rebind(`SELECT `+userColumns+` FROM users ORDER BY id LIMIT ? OFFSET ?`), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *UserRepository) Count(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// scanUser returns (nil, nil) when the row does not exist.
func scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}
