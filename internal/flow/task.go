package flow

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jask/rtic/internal/directory"
)

// Task is deferred work produced by the controller. Run may block and is meant
// to execute off the event loop; its Event must be handed back to Apply on the
// loop. Restarting the session cancels the task's context, and Apply ignores
// events from a session that is no longer current.
type Task struct {
	Session uuid.UUID
	Name    string

	ctx context.Context
	run func(ctx context.Context) Event
}

// Run executes the task and returns its result event.
func (t Task) Run() Event {
	return t.run(t.ctx)
}

// Event is the result of a Task.
type Event interface {
	SessionID() uuid.UUID
}

// LookupResult is the outcome of a directory lookup. Err is
// directory.ErrNotFound for unknown tokens and a transport error otherwise.
type LookupResult struct {
	Person directory.Person
	Err    error
}

// LookupDone carries a lookup result back to the controller.
type LookupDone struct {
	Session uuid.UUID
	Result  LookupResult
}

func (e LookupDone) SessionID() uuid.UUID { return e.Session }

// RegistrationDone carries a registration result back to the controller.
type RegistrationDone struct {
	Session uuid.UUID
	Request directory.Registration
	Record  directory.Record
	Err     error
}

func (e RegistrationDone) SessionID() uuid.UUID { return e.Session }

// sleep waits for d unless ctx ends first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
