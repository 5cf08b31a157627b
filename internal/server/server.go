// Package server is rticd's HTTP API: the identity directory and the mail
// store the rtic front-ends talk to.
package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jask/rtic/internal/service"
)

// Deps aggregates what the routes need.
type Deps struct {
	Accounts       *service.AccountService
	Mailbox        *service.MailboxService
	Logger         zerolog.Logger
	AllowedOrigins []string
}

// Server wraps the Fiber application.
type Server struct {
	app  *fiber.App
	addr string
}

func New(addr string, d Deps) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "rticd",
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(d.Logger),
	})
	setup(app, d)
	return &Server{app: app, addr: addr}
}

// App exposes the Fiber application for tests and adaptors.
func (s *Server) App() *fiber.App { return s.app }

// Listen blocks serving HTTP until Shutdown.
func (s *Server) Listen() error {
	return s.app.Listen(s.addr)
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
