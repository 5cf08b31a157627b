package main

import (
	"context"
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jask/rtic/internal/config"
	"github.com/jask/rtic/internal/directory"
	"github.com/jask/rtic/internal/flow"
	"github.com/jask/rtic/internal/logging"
	"github.com/jask/rtic/internal/mailstore"
	"github.com/jask/rtic/internal/tui"
	"github.com/jask/rtic/internal/webmail"
)

const usage = `usage: rtic [wizard|mail]

  wizard  identity verification and address registration (default)
  mail    webmail client`

func main() {
	mode := "wizard"
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}
	if mode == "-h" || mode == "--help" || mode == "help" {
		fmt.Println(usage)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatal(err)
	}

	logger, closer, err := logging.OpenFile(cfg.Log.Path, cfg.Log.Level, "rtic-"+mode)
	if err != nil {
		log.Fatalf("log: %v", err)
	}
	defer closer.Close()

	var model tea.Model
	switch mode {
	case "wizard":
		dir, err := directory.New(cfg.Directory.BaseURL, directory.WithLogger(logger))
		if err != nil {
			log.Fatalf("directory: %v", err)
		}
		policy := flow.FallbackToRegistration
		if cfg.Wizard.LookupErrorPolicy == config.PolicyRetry {
			policy = flow.StayForRetry
		}
		ctl := flow.NewController(ctx, dir, flow.Options{
			PacingDelay:       cfg.Wizard.PacingDelay,
			AllowClose:        cfg.Wizard.AllowClose,
			LookupErrorPolicy: policy,
			Logger:            logger,
		})
		model = tui.NewWizard(ctl)
	case "mail":
		store, err := mailstore.New(cfg.Mail.BaseURL, mailstore.WithLogger(logger))
		if err != nil {
			log.Fatalf("mailstore: %v", err)
		}
		ctl := webmail.NewController(ctx, store, webmail.Options{PageSize: cfg.Mail.PageSize, Logger: logger})
		model = tui.NewMail(ctl)
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	logger.Info().Str("mode", mode).Msg("starting")
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		fmt.Printf("error: %v\n", err)
	}
}
