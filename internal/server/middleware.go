package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jask/rtic/internal/directory"
	"github.com/jask/rtic/internal/mailstore"
	"github.com/jask/rtic/internal/service"
)

const userKey = "user"

// detail is the error body shape every rtic client understands.
type detail struct {
	Detail any `json:"detail"`
}

var sentinels = []struct {
	err    error
	status int
	msg    string
}{
	{service.ErrUserExists, http.StatusBadRequest, "User already exists"},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid credentials"},
	{service.ErrPersonNotFound, http.StatusNotFound, "Person not found"},
	{service.ErrEmailNotFound, http.StatusNotFound, "Email not found"},
	{service.ErrForbiddenSender, http.StatusForbidden, "You can only send emails from your own account"},
	{service.ErrForbiddenDelete, http.StatusForbidden, "You do not have permission to delete this email"},
}

func errorHandler(log zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			return c.Status(http.StatusUnprocessableEntity).JSON(detail{verr.Issues})
		}
		for _, s := range sentinels {
			if errors.Is(err, s.err) {
				return c.Status(s.status).JSON(detail{s.msg})
			}
		}
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(detail{fe.Message})
		}
		log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("unhandled error")
		return c.Status(http.StatusInternalServerError).JSON(detail{http.StatusText(http.StatusInternalServerError)})
	}
}

// requestLogger writes one line per request. Handler errors are rendered here
// so the logged status matches the response.
func requestLogger(logger zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		if err := c.Next(); err != nil {
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(http.StatusInternalServerError)
			}
		}

		status := c.Response().StatusCode()
		event := logger.Info()
		if status >= 500 {
			event = logger.Error()
		} else if status >= 400 {
			event = logger.Warn()
		}

		path := c.Route().Path
		if path == "" || path == "/" {
			path = c.Path()
		}
		event.
			Str("method", c.Method()).
			Str("path", path).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.IP()).
			Int("bytes", len(c.Response().Body())).
			Msg("http_request")
		return nil
	}
}

// requireUser authenticates the email and password headers.
func requireUser(accounts *service.AccountService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		email := c.Get(mailstore.HeaderEmail)
		password := c.Get(mailstore.HeaderPassword)
		verr := &service.ValidationError{}
		for _, h := range []struct{ name, value string }{
			{mailstore.HeaderEmail, email},
			{mailstore.HeaderPassword, password},
		} {
			if h.value == "" {
				verr.Issues = append(verr.Issues, service.Issue{Loc: []string{"header", h.name}, Msg: "Field required", Type: "missing"})
			}
		}
		if len(verr.Issues) > 0 {
			return verr
		}
		u, err := accounts.Authenticate(c.UserContext(), email, password)
		if err != nil {
			return err
		}
		c.Locals(userKey, u)
		return c.Next()
	}
}

func currentUser(c *fiber.Ctx) directory.User {
	u, _ := c.Locals(userKey).(directory.User)
	return u
}
