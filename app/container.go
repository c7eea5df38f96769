package app

import (
	"fmt"
	"log/slog"
	"strings"

	"bakery/catalog"
	"bakery/config"
	"bakery/db"
	"bakery/device"
	"bakery/flash"

	"github.com/spf13/afero"
)

// Container holds all application dependencies
type Container struct {
	Config   *config.Config
	Logger   *slog.Logger
	Database db.Database
	History  flash.HistoryRepository
	Catalog  *catalog.Catalog
	Registry *device.Registry
	Writer   *flash.Writer
}

// NewContainer creates and wires up all dependencies. Nothing is started.
func NewContainer(cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}

	database, err := db.NewBoltDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	history := flash.NewHistoryRepository(database, cfg.DB.Bucket, logger)

	images := catalog.New(afero.NewOsFs(), cfg.Images.Sources, logger.With(slog.String("component", "catalog")))

	registry := device.NewRegistry(device.Options{
		Source:        &device.UeventSource{Majors: cfg.Device.Majors, Logger: logger},
		Enumerator:    device.BlockEnumerator{Majors: cfg.Device.Majors},
		Prober:        NewProber(cfg, logger),
		ProbeInterval: cfg.Device.ProbeInterval,
		Logger:        logger.With(slog.String("component", "registry")),
	})

	writer := flash.NewWriter(flash.NewOptions(cfg), history, logger.With(slog.String("component", "writer")))

	return &Container{
		Config:   cfg,
		Logger:   logger,
		Database: database,
		History:  history,
		Catalog:  images,
		Registry: registry,
		Writer:   writer,
	}, nil
}

// NewProber returns the configured presence probe.
func NewProber(cfg *config.Config, logger *slog.Logger) device.Prober {
	if cmd := strings.Fields(cfg.Device.ProbeCommand); len(cmd) > 0 {
		return device.ExecProber{Command: cmd, Logger: logger}
	}
	return device.PartitionTableProber{}
}

// Close closes all resources held by the container
func (c *Container) Close() error {
	if c.Database != nil {
		return c.Database.Close()
	}
	return nil
}
