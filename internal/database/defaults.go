package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/jask/rtic/internal/database/repository"
)

// DemoPassword is the password of every seeded demo account.
const DemoPassword = "demo"

// SeedDemo creates a demo identity with two addresses and a welcome message
// when the users table is empty. It is idempotent.
func SeedDemo(ctx context.Context, db *sql.DB) error {
	users := repository.NewUserRepo(db)
	n, err := users.Count(ctx)
	if err != nil {
		return fmt.Errorf("seed: count users: %w", err)
	}
	if n > 0 {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("seed: hash password: %w", err)
	}
	now := Now()
	return WithTx(db, func(tx *sql.Tx) error {
		for _, u := range []repository.User{
			{Email: "demo@rtic.local", AccountType: "personal", Purpose: "standard"},
			{Email: "demo.news@rtic.local", AccountType: "personal", Purpose: "newsletter"},
		} {
			if _, err := tx.ExecContext(ctx, `
			INSERT INTO users(email, password_hash, account_type, email_purpose, mitid_username, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`, u.Email, string(hash), u.AccountType, u.Purpose, "demo", now); err != nil {
				return fmt.Errorf("seed user %s: %w", u.Email, err)
			}
		}
		_, err := tx.ExecContext(ctx, `
		INSERT INTO emails(id, sender_email, receiver_email, email_tag, mitid_username, text, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), "demo.news@rtic.local", "demo@rtic.local", "newsletter", "demo",
			"Welcome to RTIC mail. Reply to this address to try compose.", now)
		return err
	})
}
