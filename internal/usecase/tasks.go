package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/example/pictech-gateway/internal/logging"
	"github.com/example/pictech-gateway/internal/poller"
	"github.com/example/pictech-gateway/internal/repository"
)

const (
	taskCacheTTL    = 24 * time.Hour
	taskCachePrefix = "task:"
)

// TaskStatus is the cached and served view of one ledger entry.
type TaskStatus struct {
	RequestID  string    `json:"request_id"`
	Kind       string    `json:"kind"`
	Status     string    `json:"status"`
	Message    string    `json:"message,omitempty"`
	ErrorCode  string    `json:"error_code,omitempty"`
	Attempts   int       `json:"attempts"`
	OutputURL  string    `json:"output_url,omitempty"`
	OutputPath string    `json:"output_path,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ErrTaskNotFound is returned when neither the cache nor the ledger knows a task.
var ErrTaskNotFound = errors.New("task not found")

func taskCacheKey(requestID string) string {
	return taskCachePrefix + requestID
}

func statusFromRecord(record *repository.TaskRecord) *TaskStatus {
	return &TaskStatus{
		RequestID:  record.RequestID,
		Kind:       record.Kind,
		Status:     record.Status,
		Message:    record.Message,
		ErrorCode:  record.ErrorCode,
		Attempts:   record.Attempts,
		OutputURL:  record.OutputURL,
		OutputPath: record.OutputPath,
		DurationMs: record.DurationMs,
		UpdatedAt:  record.UpdatedAt,
	}
}

func recordFromOutcome(kind string, outcome *poller.Outcome) *repository.TaskRecord {
	return &repository.TaskRecord{
		RequestID:  outcome.RequestID,
		Kind:       kind,
		Status:     string(outcome.State),
		Message:    outcome.Message,
		ErrorCode:  outcome.ErrorCode,
		Attempts:   outcome.Attempts,
		OutputURL:  outcome.OutputURL,
		OutputPath: outcome.SavedPath,
		DurationMs: outcome.Duration.Milliseconds(),
	}
}

// recordTask writes the ledger entry and refreshes the status cache. Neither
// failure is returned: the vendor result is what the caller waits for.
func (uc *ImageUseCase) recordTask(ctx context.Context, record *repository.TaskRecord) {
	if record.RequestID == "" {
		record.RequestID = uc.newID()
	}
	now := uc.now()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	opLogger := logging.WithOperation(uc.logger, "usecase.record_task", record.RequestID)

	if uc.repo != nil {
		if err := uc.repo.SaveTask(ctx, record); err != nil {
			opLogger.Error("failed to persist task", zap.Error(err))
		}
	}

	if uc.cache == nil {
		return
	}
	payload, err := json.Marshal(statusFromRecord(record))
	if err != nil {
		opLogger.Error("failed to encode task status", zap.Error(err))
		return
	}
	err = uc.cacheRetry.Do(ctx, "usecase.cache_task", record.RequestID, func() error {
		return uc.cache.Set(ctx, taskCacheKey(record.RequestID), payload, taskCacheTTL)
	})
	if err != nil {
		opLogger.Warn("failed to cache task status", zap.Error(err))
	}
}

// GetTask returns the latest known status of a task, trying the cache before
// the ledger.
func (uc *ImageUseCase) GetTask(ctx context.Context, requestID string) (*TaskStatus, error) {
	const op = "usecase.get_task"
	if requestID == "" {
		return nil, invalidInput("request id is required")
	}

	opLogger := logging.WithOperation(uc.logger, op, requestID)

	if uc.cache != nil {
		cached, err := uc.withRedisGet(ctx, requestID, "usecase.get_cached_task", taskCacheKey(requestID))
		if err == nil {
			var status TaskStatus
			jsonErr := json.Unmarshal([]byte(cached), &status)
			if jsonErr == nil {
				return &status, nil
			}
			opLogger.Warn("discarding unreadable cache entry", zap.Error(jsonErr))
		}
	}

	if uc.repo == nil {
		return nil, logging.NewOperationError(op, requestID, ErrTaskNotFound)
	}
	record, err := uc.repo.FindByRequestID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, logging.NewOperationError(op, requestID, ErrTaskNotFound)
		}
		return nil, logging.NewOperationError(op, requestID, err)
	}
	return statusFromRecord(record), nil
}
