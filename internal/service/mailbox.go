package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jask/rtic/internal/database"
	"github.com/jask/rtic/internal/database/repository"
	"github.com/jask/rtic/internal/directory"
	"github.com/jask/rtic/internal/mailstore"
)

var (
	ErrForbiddenSender = errors.New("you can only send emails from your own account")
	ErrForbiddenDelete = errors.New("you do not have permission to delete this email")
	ErrEmailNotFound   = errors.New("email not found")
)

// MailboxService stores messages between registered addresses.
type MailboxService struct {
	Emails *repository.EmailRepo
}

// List returns everything user sent or received, newest first.
func (s *MailboxService) List(ctx context.Context, user directory.User) ([]mailstore.Message, error) {
	rows, err := s.Emails.ListFor(ctx, user.Address)
	if err != nil {
		return nil, fmt.Errorf("list emails: %w", err)
	}
	out := make([]mailstore.Message, len(rows))
	for i, e := range rows {
		out[i] = toMessage(e)
	}
	return out, nil
}

// Send stores d as sent by user. The message is tagged with the sender's purpose.
func (s *MailboxService) Send(ctx context.Context, user directory.User, d mailstore.Draft) (mailstore.Message, error) {
	verr := &ValidationError{}
	if !validEmail(d.Sender) {
		verr.add("sender_email", "value is not a valid email address", "value_error")
	}
	if !validEmail(d.Receiver) {
		verr.add("receiver_email", "value is not a valid email address", "value_error")
	}
	if strings.TrimSpace(d.Text) == "" {
		verr.add("text", "field required", "missing")
	}
	if err := verr.orNil(); err != nil {
		return mailstore.Message{}, err
	}
	if d.Sender != user.Address {
		return mailstore.Message{}, ErrForbiddenSender
	}
	e := repository.Email{
		ID:            uuid.NewString(),
		Sender:        d.Sender,
		Receiver:      d.Receiver,
		Tag:           string(user.Purpose),
		IdentityToken: user.IdentityToken,
		Text:          d.Text,
		CreatedAt:     database.Now(),
	}
	if err := s.Emails.Create(ctx, e); err != nil {
		return mailstore.Message{}, fmt.Errorf("store email: %w", err)
	}
	return toMessage(e), nil
}

// Delete removes a message the user sent or received.
func (s *MailboxService) Delete(ctx context.Context, user directory.User, id string) error {
	e, err := s.Emails.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("lookup email: %w", err)
	}
	if e == nil {
		return ErrEmailNotFound
	}
	if e.Sender != user.Address && e.Receiver != user.Address {
		return ErrForbiddenDelete
	}
	if err := s.Emails.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete email: %w", err)
	}
	return nil
}

func toMessage(e repository.Email) mailstore.Message {
	return mailstore.Message{
		ID:            e.ID,
		Sender:        e.Sender,
		Receiver:      e.Receiver,
		Tag:           e.Tag,
		IdentityToken: e.IdentityToken,
		Text:          e.Text,
		Date:          e.CreatedAt,
	}
}
