package repository

import (
	"context"
	"database/sql"
	"errors"
)

// EmailRepo handles emails.
type EmailRepo struct {
	db *sql.DB
}

func NewEmailRepo(db *sql.DB) *EmailRepo { return &EmailRepo{db: db} }

const emailColumns = `id, sender_email, receiver_email, email_tag, mitid_username, text, created_at`

func (r *EmailRepo) Create(ctx context.Context, e Email) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO emails(`+emailColumns+`)
	VALUES (?, ?, ?, ?, ?, ?, ?);
	`, e.ID, e.Sender, e.Receiver, e.Tag, e.IdentityToken, e.Text, e.CreatedAt)
	return err
}

// Get returns nil, nil when the id is unknown.
func (r *EmailRepo) Get(ctx context.Context, id string) (*Email, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+emailColumns+` FROM emails WHERE id = ?`, id)
	e, err := scanEmail(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListFor returns every email the address sent or received, newest first.
func (r *EmailRepo) ListFor(ctx context.Context, address string) ([]Email, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT `+emailColumns+` FROM emails
	WHERE receiver_email = ? OR sender_email = ?
	ORDER BY created_at DESC, rowid DESC`, address, address)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Email
	for rows.Next() {
		e, err := scanEmail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *EmailRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM emails WHERE id = ?`, id)
	return err
}

func scanEmail(s scanner) (Email, error) {
	var e Email
	err := s.Scan(&e.ID, &e.Sender, &e.Receiver, &e.Tag, &e.IdentityToken, &e.Text, &e.CreatedAt)
	return e, err
}
