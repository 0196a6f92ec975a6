package sink

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/BaSui01/pricescout/types"
)

// TaskRecord is one row in the task history table.
type TaskRecord struct {
	ID            string `gorm:"primaryKey;size:36"`
	Status        string `gorm:"size:32;index"`
	Query         string
	ResultCount   int
	MatchingCount int
	BestPrice     *float64
	Currency      string `gorm:"size:8"`
	ExecutionMs   int64
	CreatedAt     time.Time `gorm:"index"`
	CompletedAt   time.Time
}

// TableName keeps the table name stable across gorm naming strategies.
func (TaskRecord) TableName() string { return "task_history" }

// HistoryStore keeps finished task summaries in SQLite for later querying.
type HistoryStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewHistoryStore opens (and migrates) the history database at path.
func NewHistoryStore(path string, logger *zap.Logger) (*HistoryStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open history store %s: %w", path, err)
	}
	if err := db.AutoMigrate(&TaskRecord{}); err != nil {
		return nil, fmt.Errorf("migrate history store: %w", err)
	}
	return &HistoryStore{db: db, logger: logger.With(zap.String("component", "sink.history"))}, nil
}

// Record stores a finished task's summary.
func (h *HistoryStore) Record(task *types.Task) error {
	rec := TaskRecord{
		ID:          task.ID,
		Status:      string(task.Status),
		Query:       task.OriginalQuery,
		ResultCount: len(task.Results),
		ExecutionMs: task.ExecutionTime.Milliseconds(),
		CreatedAt:   task.CreatedAt,
		CompletedAt: task.CompletedAt,
	}
	for _, r := range task.Results {
		if r.MeetsCriteria {
			rec.MatchingCount++
		}
		if rec.BestPrice == nil || r.CurrentPrice < *rec.BestPrice {
			price := r.CurrentPrice
			rec.BestPrice = &price
			rec.Currency = r.Currency
		}
	}
	if err := h.db.Create(&rec).Error; err != nil {
		return fmt.Errorf("record task %s: %w", task.ID, err)
	}
	return nil
}

// Recent returns the latest n task records, newest first.
func (h *HistoryStore) Recent(n int) ([]TaskRecord, error) {
	var records []TaskRecord
	err := h.db.Order("created_at DESC").Limit(n).Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	return records, nil
}

// ByStatus returns records with the given terminal status, newest first.
func (h *HistoryStore) ByStatus(status types.TaskStatus, n int) ([]TaskRecord, error) {
	var records []TaskRecord
	err := h.db.Where("status = ?", string(status)).
		Order("created_at DESC").Limit(n).Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("query history by status: %w", err)
	}
	return records, nil
}

// Close releases the underlying database handle.
func (h *HistoryStore) Close() error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
