package repository

import (
	"context"
	"database/sql"
	"errors"
)

// UserRepo handles users.
type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

const userColumns = `email, password_hash, account_type, email_purpose, mitid_username, created_at`

// Create inserts u. It fails with a constraint error if the email is taken.
func (r *UserRepo) Create(ctx context.Context, u User) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO users(`+userColumns+`)
	VALUES (?, ?, ?, ?, ?, ?);
	`, u.Email, u.PasswordHash, u.AccountType, u.Purpose, u.IdentityToken, u.CreatedAt)
	return err
}

// Get returns nil, nil when no user has that email.
func (r *UserRepo) Get(ctx context.Context, email string) (*User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ListByIdentity returns the users registered to an identity token in creation order.
func (r *UserRepo) ListByIdentity(ctx context.Context, token string) ([]User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users WHERE mitid_username = ? ORDER BY created_at, rowid`, token)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Delete reports whether a row was removed.
func (r *UserRepo) Delete(ctx context.Context, email string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE email = ?`, email)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *UserRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (User, error) {
	var u User
	err := s.Scan(&u.Email, &u.PasswordHash, &u.AccountType, &u.Purpose, &u.IdentityToken, &u.CreatedAt)
	return u, err
}
