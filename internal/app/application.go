package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/raysh454/sitepulse/internal/logging"
	"github.com/raysh454/sitepulse/internal/notify"
)

// Application is the global runtime state container. It owns the storage,
// the pipeline components and the job orchestrator, and shuts them down in
// reverse order.
type Application struct {
	Config *Config
	Logger logging.Logger

	Store      *SiteStore
	Components *Components
	Auditor    *Auditor
	Orch       *Orchestrator

	publisher *notify.Publisher
}

// NewApplication opens storage under cfg.StorageRoot and wires every component.
// When cfg.NATSURL is set, job events are also published to NATS.
func NewApplication(cfg *Config, logger logging.Logger) (*Application, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = logging.Nop()
	}

	store, err := OpenSiteStore(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open site store: %w", err)
	}
	comps, err := NewComponents(cfg, logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	a := &Application{
		Config:     cfg,
		Logger:     logger,
		Store:      store,
		Components: comps,
	}
	a.Auditor = NewAuditor(cfg, comps, store, logger)
	a.Orch = NewOrchestrator(cfg, a.Auditor, logger)

	if cfg.NATSURL != "" {
		pub, err := notify.Connect(cfg.NATSURL, logger)
		if err != nil {
			logger.Warn("nats unavailable, job events stay in-process",
				logging.Field{Key: "url", Value: cfg.NATSURL},
				logging.Field{Key: "error", Value: err.Error()})
		} else {
			a.publisher = pub
			a.Orch.WithPublisher(pub)
		}
	}
	return a, nil
}

// Shutdown stops running jobs with a bounded wait, then releases the
// publisher, the web client and the stores.
func (a *Application) Shutdown(ctx context.Context) error {
	if a == nil {
		return errors.New("application is nil")
	}
	a.Logger.Info("application shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	var errs []error
	if a.Orch != nil {
		if err := a.Orch.Shutdown(shutdownCtx); err != nil {
			a.Logger.Warn("orchestrator shutdown returned error", logging.Field{Key: "error", Value: err.Error()})
			errs = append(errs, err)
		}
	}
	if a.publisher != nil {
		a.publisher.Close()
	}
	if err := a.Components.Close(); err != nil {
		errs = append(errs, err)
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
