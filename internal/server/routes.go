package server

import (
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jask/rtic/internal/directory"
	"github.com/jask/rtic/internal/mailstore"
	"github.com/jask/rtic/internal/service"
)

type message struct {
	Message string `json:"message"`
}

func setup(app *fiber.App, d Deps) {
	app.Use(requestLogger(d.Logger))
	app.Use(recover.New())
	if len(d.AllowedOrigins) > 0 {
		// credentials are only allowed alongside an explicit origin list
		cfg := cors.Config{AllowOrigins: strings.Join(d.AllowedOrigins, ","), AllowCredentials: true}
		if slices.Contains(d.AllowedOrigins, "*") {
			cfg.AllowOrigins, cfg.AllowCredentials = "*", false
		}
		app.Use(cors.New(cfg))
	}

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	h := &handlers{accounts: d.Accounts, mailbox: d.Mailbox}
	auth := requireUser(d.Accounts)

	app.Get("/people/:mitid", h.person)
	app.Post("/users", h.register)
	app.Get("/users", auth, h.me)
	app.Delete("/users", auth, h.deleteMe)
	app.Get("/emails", auth, h.listEmails)
	app.Post("/emails", auth, h.sendEmail)
	app.Delete("/emails/:id", auth, h.deleteEmail)
}

type handlers struct {
	accounts *service.AccountService
	mailbox  *service.MailboxService
}

func (h *handlers) person(c *fiber.Ctx) error {
	token, err := url.PathUnescape(c.Params("mitid"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid identity token")
	}
	p, err := h.accounts.Person(c.UserContext(), token)
	if err != nil {
		return err
	}
	return c.JSON(p)
}

func (h *handlers) register(c *fiber.Ctx) error {
	var reg directory.Registration
	if err := parseBody(c, &reg); err != nil {
		return err
	}
	u, err := h.accounts.Register(c.UserContext(), reg)
	if err != nil {
		return err
	}
	return c.JSON(directory.Record{Message: "User created successfully", User: &u})
}

func (h *handlers) me(c *fiber.Ctx) error {
	u := currentUser(c)
	return c.JSON(mailstore.Account{
		Email:         u.Address,
		AccountType:   string(u.AccountType),
		Purpose:       string(u.Purpose),
		IdentityToken: u.IdentityToken,
	})
}

func (h *handlers) deleteMe(c *fiber.Ctx) error {
	if err := h.accounts.Delete(c.UserContext(), currentUser(c).Address); err != nil {
		return err
	}
	return c.JSON(message{"User deleted successfully"})
}

func (h *handlers) listEmails(c *fiber.Ctx) error {
	msgs, err := h.mailbox.List(c.UserContext(), currentUser(c))
	if err != nil {
		return err
	}
	return c.JSON(msgs)
}

func (h *handlers) sendEmail(c *fiber.Ctx) error {
	var d mailstore.Draft
	if err := parseBody(c, &d); err != nil {
		return err
	}
	if _, err := h.mailbox.Send(c.UserContext(), currentUser(c), d); err != nil {
		return err
	}
	return c.JSON(message{"Email sent successfully"})
}

func (h *handlers) deleteEmail(c *fiber.Ctx) error {
	if err := h.mailbox.Delete(c.UserContext(), currentUser(c), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(message{"Email deleted successfully"})
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return &service.ValidationError{Issues: []service.Issue{{
			Loc:  []string{"body"},
			Msg:  "JSON decode error",
			Type: "json_invalid",
		}}}
	}
	return nil
}
