package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"bakery/app"
	"bakery/config"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

// NewRootCommand builds the bakery command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "bakery",
		Short:         "Flash disk images onto removable media from a button panel",
		Long:          "Bakery writes disk images onto SD cards and USB sticks. It watches the card slots, drives a two line display with buttons and keeps a history of every write.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "configuration file (default /etc/bakery.cfg, then conf/bakery.cfg)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override the configured log level")

	root.AddCommand(
		newRunCommand(opts),
		newImagesCommand(opts),
		newDevicesCommand(opts),
		newWriteCommand(opts),
		newHistoryCommand(opts),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, red("Error:"), err)
		return 1
	}
	return 0
}

func (o *rootOptions) load() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		if _, statErr := os.Stat(o.configPath); statErr != nil {
			return nil, fmt.Errorf("config file: %w", statErr)
		}
		cfg, err = config.Load(o.configPath)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	return cfg, nil
}

// logger switches to text output when w is a terminal.
func (o *rootOptions) logger(cfg *config.Config, w io.Writer) *slog.Logger {
	logCfg := cfg.Log
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		logCfg.Format = "text"
	}
	logger := app.NewLogger(logCfg, w)
	slog.SetDefault(logger)
	return logger
}
