package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bakery/display"
	apperrors "bakery/internal/errors"
	"bakery/internal/handlers"
	"bakery/panel"
	"bakery/routes"
)

// Application runs the panel, the device registry and the optional status API.
type Application struct {
	container  *Container
	backend    display.Backend
	reporter   *display.Reporter
	panel      *panel.Panel
	httpServer *http.Server
	listener   net.Listener
	logger     *slog.Logger
}

// NewApplication wires the panel to backend.
func NewApplication(container *Container, backend display.Backend) *Application {
	logger := container.Logger
	reporter := display.NewReporter(backend, logger.With(slog.String("component", "display")))
	cfg := container.Config

	p := panel.New(backend, reporter, container.Catalog, container.Registry, container.Writer, panel.Options{
		LongPress: cfg.Display.LongPress,
		Dwell:     cfg.Display.Dwell,
		Cells:     cfg.Display.Cells,
		Logger:    logger.With(slog.String("component", "panel")),
	})

	return &Application{
		container: container,
		backend:   backend,
		reporter:  reporter,
		panel:     p,
		logger:    logger,
	}
}

// Start scans the catalog, activates the registry and opens the status API.
// A failed scan is shown on the display and leaves the catalog empty.
func (a *Application) Start(ctx context.Context) error {
	a.reporter.Start()

	if err := a.container.Catalog.Rescan(); err != nil {
		var appErr *apperrors.AppError
		if apperrors.IsAppError(err, &appErr) {
			apperrors.LogError(a.logger, appErr)
		}
		a.panel.ShowError(ctx, err)
	}

	if err := a.container.Registry.Activate(ctx); err != nil {
		return apperrors.NewDeviceError("activate registry", err)
	}

	if listen := a.container.Config.HTTP.Listen; listen != "" {
		h := handlers.NewHandlers(a.container.Catalog, a.container.Registry, a.container.Writer,
			a.container.History, a.container.Config, a.logger.With(slog.String("component", "api")))

		ln, err := net.Listen("tcp", listen)
		if err != nil {
			a.container.Registry.Deactivate()
			return fmt.Errorf("failed to listen on %s: %w", listen, err)
		}
		a.listener = ln
		a.httpServer = &http.Server{
			Handler:           routes.Setup(h, a.logger),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			a.logger.Info("Status API listening", slog.String("address", ln.Addr().String()))
			if err := a.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("Status API failed", slog.String("error", err.Error()))
			}
		}()
	}
	return nil
}

// Stop shuts everything down in reverse order.
func (a *Application) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if a.httpServer != nil {
		if err := a.httpServer.Shutdown(ctx); err != nil {
			a.logger.Error("Error shutting down status API", slog.String("error", err.Error()))
		}
	}

	a.container.Registry.Deactivate()
	a.reporter.Close()

	if err := a.backend.Close(); err != nil {
		a.logger.Error("Error closing display", slog.String("error", err.Error()))
	}
	if err := a.container.Close(); err != nil {
		a.logger.Error("Error closing container", slog.String("error", err.Error()))
		return err
	}
	return nil
}

// Run blocks until the panel exits, a signal arrives or the registry hits a
// fatal inconsistency. A write in progress is always allowed to finish unless
// the registry failed.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}
	a.logger.Info("Bakery started",
		slog.String("display", a.backend.Name()),
		slog.Int("images", a.container.Catalog.Len()))

	menuCtx, cancelMenu := context.WithCancel(ctx)
	defer cancelMenu()

	menuDone := make(chan error, 1)
	go func() { menuDone <- a.panel.Menu(menuCtx) }()

	var runErr error
	select {
	case err := <-menuDone:
		runErr = err
	case err := <-a.container.Registry.Fatal():
		a.logger.Error("Device registry failed", slog.String("error", err.Error()))
		cancelMenu()
		runErr = err
	case <-ctx.Done():
		a.logger.Info("Shutting down")
		if _, busy := a.container.Writer.Active(); busy {
			a.logger.Warn("Waiting for the running write to finish")
		}
		runErr = <-menuDone
	}

	if err := a.Stop(); err != nil && runErr == nil {
		runErr = err
	}
	a.logger.Info("Bakery stopped")
	return runErr
}

// Addr returns the status API address once started.
func (a *Application) Addr() string {
	if a.listener == nil {
		return ""
	}
	return a.listener.Addr().String()
}

// GetContainer returns the application's container
func (a *Application) GetContainer() *Container {
	return a.container
}
