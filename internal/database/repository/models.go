package repository

import "time"

// User represents a users row.
type User struct {
	Email         string
	PasswordHash  string
	AccountType   string
	Purpose       string
	IdentityToken string
	CreatedAt     time.Time
}

// Email represents an emails row.
type Email struct {
	ID            string
	Sender        string
	Receiver      string
	Tag           string
	IdentityToken string
	Text          string
	CreatedAt     time.Time
}
