package app

import (
	"database/sql"

	"github.com/go-chi/oauth"

	"github.com/purposewaze/form-studio/config"
	"github.com/purposewaze/form-studio/dyntable"
	"github.com/purposewaze/form-studio/flow"
	"github.com/purposewaze/form-studio/report"
	"github.com/purposewaze/form-studio/webhook"
)

type App struct {
	*sql.DB
	*oauth.BearerServer
	config.Config

	Tables   dyntable.Tables
	Reports  report.Store
	Notifier webhook.Notifier
	Poller   flow.Poller
}

func New(db *sql.DB, bearerServer *oauth.BearerServer, cfg config.Config) App {
	reports := report.Store{DB: db}
	return App{
		DB:           db,
		BearerServer: bearerServer,
		Config:       cfg,
		Tables:       dyntable.Tables{DB: db},
		Reports:      reports,
		Notifier:     webhook.NewNotifier(cfg.DefaultWebhookURL, cfg.FilesWebhookURL),
		Poller: flow.Poller{
			Source:      reports,
			Interval:    cfg.PollInterval,
			MaxAttempts: cfg.PollMaxAttempts,
		},
	}
}
