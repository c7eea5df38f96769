package handlers

import (
	"context"
	"log/slog"

	"bakery/catalog"
	"bakery/config"
	"bakery/device"
	"bakery/flash"
)

// ImageCatalog is the catalog surface served by the API.
type ImageCatalog interface {
	Snapshot() catalog.Snapshot
	Rescan() error
}

// DeviceList reports the attached adapters.
type DeviceList interface {
	Snapshot() []device.Device
}

// WriteTracker reports the write in progress, if any.
type WriteTracker interface {
	Active() (flash.WriteRecord, bool)
}

// WriteHistory is the read side of the write history.
type WriteHistory interface {
	Get(ctx context.Context, id string) (*flash.WriteRecord, error)
	GetAll(ctx context.Context) ([]*flash.WriteRecord, error)
}

// Handlers holds dependencies needed by HTTP handlers
type Handlers struct {
	Catalog ImageCatalog
	Devices DeviceList
	Writer  WriteTracker
	History WriteHistory
	Config  *config.Config
	Logger  *slog.Logger
}

// NewHandlers creates a new Handlers instance with dependencies
func NewHandlers(images ImageCatalog, devices DeviceList, writer WriteTracker, history WriteHistory, cfg *config.Config, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		Catalog: images,
		Devices: devices,
		Writer:  writer,
		History: history,
		Config:  cfg,
		Logger:  logger,
	}
}
