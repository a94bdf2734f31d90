package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/raysh454/sitepulse/internal/app"
	"github.com/raysh454/sitepulse/internal/export"
	"github.com/raysh454/sitepulse/internal/logging"
	"github.com/raysh454/sitepulse/internal/model"
	"github.com/raysh454/sitepulse/internal/pagespeed"
	"github.com/raysh454/sitepulse/internal/server"
)

// ErrBelowMinScore is returned when an audit finishes under -min-score.
var ErrBelowMinScore = errors.New("health score below minimum")

// Run executes the command described by a. Reports go to stdout; progress and
// logs go to stderr. ctx cancellation stops a running audit or server.
func Run(ctx context.Context, a *Args, stdout, stderr io.Writer) error {
	cfg, err := app.LoadConfig(a.ConfigPath)
	if err != nil {
		return err
	}
	if a.Addr != "" {
		cfg.ListenAddr = a.Addr
	}
	if a.LogLevel != "" {
		cfg.LogLevel = a.LogLevel
	}
	if a.Strategy != "" {
		cfg.PageSpeed.Strategy = pagespeed.Strategy(a.Strategy)
	}

	var logger logging.Logger
	if a.Serve {
		logger = logging.NewStdoutLogger("sitepulse").SetLevel(logging.ParseLevel(cfg.LogLevel))
	} else {
		logger = logging.NewWriterLogger("sitepulse", stderr).SetLevel(logging.ParseLevel(cfg.LogLevel))
	}

	application, err := app.NewApplication(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := application.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown", logging.Field{Key: "error", Value: err.Error()})
		}
	}()

	if a.Serve {
		return serve(ctx, application, logger)
	}
	return audit(ctx, a, application, stdout, stderr)
}

func audit(ctx context.Context, a *Args, application *app.Application, stdout, stderr io.Writer) error {
	snap, err := application.Auditor.Run(ctx, &app.AuditRequest{
		URL:           a.Target,
		CrawlDepth:    a.Depth,
		SkipPageSpeed: a.SkipPageSpeed,
		Strategy:      pagespeed.Strategy(a.Strategy),
	}, ProgressPrinter(stderr))
	if err != nil {
		return err
	}

	if err := writeReport(a, snap, stdout); err != nil {
		return err
	}
	if a.MinScore > 0 && snap.HealthScore < a.MinScore {
		return fmt.Errorf("%w: %d < %d", ErrBelowMinScore, snap.HealthScore, a.MinScore)
	}
	return nil
}

func writeReport(a *Args, snap *model.AuditSnapshot, stdout io.Writer) (err error) {
	w := stdout
	if a.Output != "" {
		f, ferr := os.Create(a.Output)
		if ferr != nil {
			return fmt.Errorf("create report file: %w", ferr)
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		w = f
	}

	switch a.Format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	case FormatCSV:
		return export.WriteCSV(w, snap)
	case FormatXLSX:
		return export.WriteXLSX(w, snap)
	default:
		return RenderReport(w, snap)
	}
}

func serve(ctx context.Context, application *app.Application, logger logging.Logger) error {
	srv := server.NewWithApplication(server.Config{
		ListenAddr: application.Config.ListenAddr,
		AppConfig:  application.Config,
		Logger:     logger,
	}, application)
	hs := srv.HTTPServer()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", logging.Field{Key: "addr", Value: hs.Addr})
		errCh <- hs.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	srv.Close()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
