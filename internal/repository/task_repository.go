package repository

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/pictech-gateway/internal/retry"
)

// Task kinds recorded in the ledger.
const (
	KindTranslation       = "translation"
	KindBackgroundRemoval = "background_removal"
	KindInpaint           = "inpaint"
)

// ErrNotFound is returned when no record matches.
var ErrNotFound = errors.New("record not found")

// TaskRecord is one vendor job as seen by this service.
type TaskRecord struct {
	ID         uint      `gorm:"primaryKey"`
	RequestID  string    `gorm:"column:request_id;uniqueIndex;size:128"`
	Kind       string    `gorm:"column:kind;size:32;index"`
	Status     string    `gorm:"column:status;size:32;index"`
	Message    string    `gorm:"column:message;type:text"`
	ErrorCode  string    `gorm:"column:error_code;size:64"`
	Attempts   int       `gorm:"column:attempts"`
	OutputURL  string    `gorm:"column:output_url;type:text"`
	OutputPath string    `gorm:"column:output_path;type:text"`
	DurationMs int64     `gorm:"column:duration_ms"`
	CreatedAt  time.Time `gorm:"column:created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at"`
}

// TableName overrides the default table name.
func (TaskRecord) TableName() string {
	return "vendor_tasks"
}

// StatusCount is one row of the per kind/status aggregation.
type StatusCount struct {
	Kind   string
	Status string
	Count  int64
}

// TaskRepository persists the task ledger.
type TaskRepository struct {
	db      *gorm.DB
	retries retry.Policy
}

// NewTaskRepository creates a new repository instance.
func NewTaskRepository(db *gorm.DB, logger *zap.Logger) *TaskRepository {
	retries := retry.Default(logger.Named("task_repository"), "postgres")
	retries.Expected = func(err error) bool { return errors.Is(err, ErrNotFound) }
	return &TaskRepository{db: db, retries: retries}
}

// AutoMigrate ensures the schema is available.
func (r *TaskRepository) AutoMigrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&TaskRecord{}, &CanvasState{})
}

// SaveTask inserts a record or updates the existing one with the same RequestID.
func (r *TaskRepository) SaveTask(ctx context.Context, record *TaskRecord) error {
	return r.retries.Do(ctx, "repository.save_task", record.RequestID, func() error {
		return r.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "request_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"kind", "status", "message", "error_code", "attempts",
				"output_url", "output_path", "duration_ms", "updated_at",
			}),
		}).Create(record).Error
	})
}

// FindByRequestID retrieves a task by its vendor RequestId.
func (r *TaskRepository) FindByRequestID(ctx context.Context, requestID string) (*TaskRecord, error) {
	var record TaskRecord
	err := r.retries.Do(ctx, "repository.find_task", requestID, func() error {
		err := r.db.WithContext(ctx).First(&record, "request_id = ?", requestID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// CountByStatus aggregates the ledger per kind and status.
func (r *TaskRepository) CountByStatus(ctx context.Context) ([]StatusCount, error) {
	var rows []StatusCount
	err := r.retries.Do(ctx, "repository.count_by_status", "", func() error {
		rows = rows[:0]
		return r.db.WithContext(ctx).
			Model(&TaskRecord{}).
			Select("kind, status, count(*) AS count").
			Group("kind, status").
			Order("kind, status").
			Scan(&rows).Error
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}
