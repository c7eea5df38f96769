package testdata

import (
	"context"
	"log/slog"
	"time"

	"bakery/flash"
)

// Config holds the data maintenance switches of the history command.
type Config struct {
	MockData  bool
	ClearData bool
}

// Requested reports whether any data operation was asked for.
func (c *Config) Requested() bool {
	return c.MockData || c.ClearData
}

// HandleDataOperations clears and/or populates the write history. Clearing
// runs first so both switches together leave only mock data behind.
func HandleDataOperations(config *Config, history flash.HistoryRepository, logger *slog.Logger) error {
	if !config.Requested() {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}

	mockService := NewMockDataService(history)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if config.ClearData {
		logger.Info("Clearing write history")
		if err := mockService.ClearAllData(ctx); err != nil {
			return err
		}
	}

	if config.MockData {
		logger.Info("Populating write history with mock data")
		if err := mockService.PopulateMockData(ctx); err != nil {
			return err
		}
	}
	return nil
}
