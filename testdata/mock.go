package testdata

import (
	"context"
	"time"

	"bakery/flash"
)

// MockDataService fills the write history with sample records for trying out
// the history listing and the status API.
type MockDataService struct {
	history flash.HistoryRepository
	now     func() time.Time
}

// NewMockDataService creates a new mock data service
func NewMockDataService(history flash.HistoryRepository) *MockDataService {
	return &MockDataService{history: history, now: time.Now}
}

// MockRecords returns the sample records relative to now.
func MockRecords(now time.Time) []*flash.WriteRecord {
	at := func(ago, took time.Duration) (time.Time, *time.Time) {
		start := now.Add(-ago)
		end := start.Add(took)
		return start, &end
	}

	s1, e1 := at(72*time.Hour, 6*time.Minute+12*time.Second)
	s2, e2 := at(26*time.Hour, 41*time.Second)
	s3, e3 := at(3*time.Hour, 9*time.Minute+30*time.Second)
	s4, e4 := at(40*time.Minute, 2*time.Minute)

	return []*flash.WriteRecord{
		{
			Device: "/dev/sda", Image: "raspios", Directory: "/srv/bakery/images/raspios",
			Format: "gzip", Size: 4_294_967_296, Status: flash.StatusCompleted, Progress: 100,
			StartedAt: s1, CompletedAt: e1,
		},
		{
			Device: "/dev/sda", Image: "alpine", Directory: "/srv/bakery/images/alpine",
			Format: "gzip", Size: 268_435_456, Status: flash.StatusFailed, Progress: 30,
			Error: "copy stage: exit status 1", StartedAt: s2, CompletedAt: e2,
		},
		{
			Device: "/dev/mmcblk0", Image: "ubuntu", Directory: "/srv/bakery/images/ubuntu",
			Format: "raw", Size: 8_053_063_680, Status: flash.StatusCompleted, Progress: 100,
			StartedAt: s3, CompletedAt: e3,
		},
		{
			Device: "/dev/sdb", Image: "raspios", Directory: "/srv/bakery/images/raspios",
			Format: "gzip", Status: flash.StatusFailed,
			Error: "image size: unexpected EOF", StartedAt: s4, CompletedAt: e4,
		},
	}
}

// PopulateMockData stores MockRecords.
func (m *MockDataService) PopulateMockData(ctx context.Context) error {
	for _, record := range MockRecords(m.now()) {
		if err := m.history.Save(ctx, record); err != nil {
			return err
		}
	}
	return nil
}

// ClearAllData removes every history record.
func (m *MockDataService) ClearAllData(ctx context.Context) error {
	return m.history.DeleteAll(ctx)
}
