package usecase

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/pictech-gateway/internal/imageprocessor"
	"github.com/example/pictech-gateway/internal/repository"
	"github.com/example/pictech-gateway/internal/retry"
	"github.com/example/pictech-gateway/internal/storage"
)

// ErrInvalidInput marks caller mistakes that never reach the vendor.
var ErrInvalidInput = errors.New("invalid input")

// TaskRepository defines the persistence operations needed by the use case.
type TaskRepository interface {
	SaveTask(ctx context.Context, record *repository.TaskRecord) error
	FindByRequestID(ctx context.Context, requestID string) (*repository.TaskRecord, error)
	CountByStatus(ctx context.Context) ([]repository.StatusCount, error)
	SaveCanvasState(ctx context.Context, state *repository.CanvasState) error
	FindCanvasState(ctx context.Context, requestID string) (*repository.CanvasState, error)
}

// ImageUseCase orchestrates vendor calls, result storage and the task ledger
// behind the HTTP surface.
type ImageUseCase struct {
	vendor    imageprocessor.Client
	remover   imageprocessor.BackgroundRemover
	repo      TaskRepository
	cache     Cache
	store     storage.Store
	uploadDir string
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string

	cacheRetry retry.Policy
}

// NewImageUseCase constructs a new use case instance.
func NewImageUseCase(
	vendor imageprocessor.Client,
	remover imageprocessor.BackgroundRemover,
	repo TaskRepository,
	cache Cache,
	store storage.Store,
	uploadDir string,
	logger *zap.Logger,
) *ImageUseCase {
	logger = logger.Named("image_usecase")
	cacheRetry := retry.Default(logger, "redis")
	// A miss is an answer, not a failure.
	cacheRetry.Expected = func(err error) bool { return errors.Is(err, redis.Nil) }
	return &ImageUseCase{
		vendor:     vendor,
		remover:    remover,
		repo:       repo,
		cache:      cache,
		store:      store,
		uploadDir:  uploadDir,
		logger:     logger,
		now:        time.Now,
		newID:      uuid.NewString,
		cacheRetry: cacheRetry,
	}
}

// datedDir returns uploadDir/<section>/<yyyy-mm-dd> and the date folder.
func (uc *ImageUseCase) datedDir(section string) (string, string) {
	date := uc.now().Format("2006-01-02")
	return filepath.Join(uc.uploadDir, section, date), date
}

func invalidInput(message string) error {
	return &inputError{message: message}
}

type inputError struct{ message string }

func (e *inputError) Error() string { return e.message }

func (e *inputError) Is(target error) bool { return target == ErrInvalidInput }
