package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"bakery/app"
	"bakery/display"

	"github.com/spf13/cobra"
)

func newRunCommand(opts *rootOptions) *cobra.Command {
	var backendName string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the panel, the device watcher and the status API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if backendName != "" {
				cfg.Display.Backend = backendName
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			logger := opts.logger(cfg, os.Stderr)

			backend, err := display.New(cfg.Display.Backend, logger)
			if err != nil {
				return err
			}

			// The terminal display owns the tty, logs go to a file next to the database.
			if backend.Name() == "terminal" {
				path := filepath.Join(cfg.DB.DBPath, "bakery.log")
				if err := os.MkdirAll(cfg.DB.DBPath, 0755); err != nil {
					backend.Close()
					return err
				}
				f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
				if err != nil {
					backend.Close()
					return fmt.Errorf("failed to open log file: %w", err)
				}
				defer f.Close()
				logger = opts.logger(cfg, f)
			}

			container, err := app.NewContainer(cfg, logger)
			if err != nil {
				backend.Close()
				return err
			}

			logger.Info("Configuration loaded",
				slog.Any("sources", cfg.Images.Sources),
				slog.String("database", cfg.GetDatabasePath()),
				slog.String("display", backend.Name()))

			return app.NewApplication(container, backend).Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&backendName, "display", "", "display backend: auto, terminal or headless")
	return cmd
}
