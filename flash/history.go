package flash

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"bakery/db"

	"github.com/google/uuid"
)

// Status of a write attempt.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// WriteRecord is the persisted history entry of one write attempt.
type WriteRecord struct {
	ID          string     `json:"id"`
	Device      string     `json:"device"`
	Image       string     `json:"image"`
	Directory   string     `json:"directory"`
	Format      string     `json:"format"`
	Size        int64      `json:"size"`
	Status      Status     `json:"status"`
	Progress    int        `json:"progress"` // Percentage 0-100
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Duration returns how long the attempt ran, or has been running.
func (r *WriteRecord) Duration() time.Duration {
	if r.CompletedAt != nil {
		return r.CompletedAt.Sub(r.StartedAt)
	}
	return time.Since(r.StartedAt)
}

// HistoryRepository persists write records.
type HistoryRepository interface {
	// Save stores a record, assigning an ID to new ones
	Save(ctx context.Context, record *WriteRecord) error

	// Get retrieves a record by ID
	Get(ctx context.Context, id string) (*WriteRecord, error)

	// GetAll returns every record, newest first
	GetAll(ctx context.Context) ([]*WriteRecord, error)

	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
}

// HistoryRepositoryImpl implements HistoryRepository using BoltDB
type HistoryRepositoryImpl struct {
	*db.GenericRepository[WriteRecord]
}

// NewHistoryRepository creates a history repository in bucket.
func NewHistoryRepository(database db.Database, bucket string, logger *slog.Logger) HistoryRepository {
	return &HistoryRepositoryImpl{
		GenericRepository: db.NewGenericRepository[WriteRecord](database, bucket, logger),
	}
}

func (r *HistoryRepositoryImpl) Save(ctx context.Context, record *WriteRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.StartedAt.IsZero() {
		record.StartedAt = time.Now()
	}
	return r.GenericRepository.Save(ctx, record.ID, *record)
}

func (r *HistoryRepositoryImpl) Get(ctx context.Context, id string) (*WriteRecord, error) {
	record, err := r.GenericRepository.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *HistoryRepositoryImpl) GetAll(ctx context.Context) ([]*WriteRecord, error) {
	recordMap, err := r.GenericRepository.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]*WriteRecord, 0, len(recordMap))
	for _, record := range recordMap {
		recordCopy := record
		records = append(records, &recordCopy)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].StartedAt.After(records[j].StartedAt)
	})
	return records, nil
}

func (r *HistoryRepositoryImpl) Delete(ctx context.Context, id string) error {
	return r.GenericRepository.Delete(ctx, id)
}

func (r *HistoryRepositoryImpl) DeleteAll(ctx context.Context) error {
	return r.GenericRepository.DeleteAll(ctx)
}
