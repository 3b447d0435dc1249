package usecase

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/example/pictech-gateway/internal/imagefile"
	"github.com/example/pictech-gateway/internal/logging"
	"github.com/example/pictech-gateway/internal/repository"
)

// InpaintedImagesPath is both the storage section and the URL prefix of
// images uploaded by SaveInpaintedImage.
const InpaintedImagesPath = "iopaint_front"

// ErrCanvasNotFound is returned when no editor state was saved for a job.
var ErrCanvasNotFound = errors.New("canvas state not found")

// CanvasInput is the editor state posted by the frontend.
type CanvasInput struct {
	RequestID     string
	FinalImageURL string
	InPaintingURL string
	SourceURL     string
	TemplateJSON  string
}

// SaveExportedImage stores an exported Base64 image under
// UPLOAD_DIR/export/<date> and returns its public path "/<date>/<name>". The
// extension comes from filename when it names an image type, otherwise from
// the content.
func (uc *ImageUseCase) SaveExportedImage(ctx context.Context, imageBase64, filename string) (string, error) {
	const op = "usecase.save_exported_image"

	data, err := imagefile.DecodeBase64(imageBase64)
	if err != nil {
		return "", invalidInput(err.Error())
	}

	dir, date := uc.datedDir("export")
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if !imagefile.IsImageExtension(ext) {
		ext = imagefile.Extension(data)
	}
	fileName := uc.newID() + ext
	if _, err := uc.store.Save(ctx, dir, fileName, data); err != nil {
		logging.WithOperation(uc.logger, op, "").Error("failed to store exported image", zap.Error(err))
		return "", logging.NewOperationError(op, "", err)
	}
	return "/" + date + "/" + fileName, nil
}

// SaveInpaintedImage stores an image inpainted in the browser under
// UPLOAD_DIR/iopaint_front/<date> and returns its public URL.
func (uc *ImageUseCase) SaveInpaintedImage(ctx context.Context, imageBase64 string) (string, error) {
	const op = "usecase.save_inpainted_image"

	data, err := imagefile.DecodeBase64(imageBase64)
	if err != nil {
		return "", invalidInput(err.Error())
	}

	dir, date := uc.datedDir(InpaintedImagesPath)
	fileName := uc.newID() + ".png"
	if _, err := uc.store.Save(ctx, dir, fileName, data); err != nil {
		logging.WithOperation(uc.logger, op, "").Error("failed to store inpainted image", zap.Error(err))
		return "", logging.NewOperationError(op, "", err)
	}
	return "/" + InpaintedImagesPath + "/" + date + "/" + fileName, nil
}

// SaveCanvasState persists the editor state of a translation job and returns
// a fresh id for the save itself.
func (uc *ImageUseCase) SaveCanvasState(ctx context.Context, input CanvasInput) (string, error) {
	const op = "usecase.save_canvas_state"

	if strings.TrimSpace(input.RequestID) == "" {
		return "", invalidInput("RequestId is required")
	}

	now := uc.now()
	state := &repository.CanvasState{
		RequestID:     input.RequestID,
		FinalImageURL: input.FinalImageURL,
		InPaintingURL: input.InPaintingURL,
		SourceURL:     input.SourceURL,
		TemplateJSON:  input.TemplateJSON,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := uc.repo.SaveCanvasState(ctx, state); err != nil {
		logging.WithOperation(uc.logger, op, input.RequestID).Error("failed to save canvas state", zap.Error(err))
		return "", logging.NewOperationError(op, input.RequestID, err)
	}
	return uc.newID(), nil
}

// GetCanvasState loads the editor state last saved for a translation job.
func (uc *ImageUseCase) GetCanvasState(ctx context.Context, requestID string) (*CanvasInput, error) {
	const op = "usecase.get_canvas_state"

	if strings.TrimSpace(requestID) == "" {
		return nil, invalidInput("RequestId is required")
	}
	state, err := uc.repo.FindCanvasState(ctx, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, logging.NewOperationError(op, requestID, ErrCanvasNotFound)
		}
		return nil, logging.NewOperationError(op, requestID, err)
	}
	return &CanvasInput{
		RequestID:     state.RequestID,
		FinalImageURL: state.FinalImageURL,
		InPaintingURL: state.InPaintingURL,
		SourceURL:     state.SourceURL,
		TemplateJSON:  state.TemplateJSON,
	}, nil
}
