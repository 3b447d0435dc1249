package usecase

import (
	"context"
	"encoding/base64"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/pictech-gateway/internal/imagefile"
	"github.com/example/pictech-gateway/internal/logging"
	"github.com/example/pictech-gateway/internal/pictech"
	"github.com/example/pictech-gateway/internal/poller"
	"github.com/example/pictech-gateway/internal/repository"
)

// InpaintResult is the stored inpaint output.
type InpaintResult struct {
	RequestID   string `json:"requestId"`
	FileName    string `json:"fileName"`
	Path        string `json:"path"`
	ImageBase64 string `json:"imageBase64"`
}

// Inpaint removes the masked region from image through the blocking vendor
// endpoint, stores the PNG under UPLOAD_DIR/iopaint/<date> and returns it as
// Base64.
func (uc *ImageUseCase) Inpaint(ctx context.Context, image, mask string) (*InpaintResult, error) {
	const op = "usecase.inpaint"

	image = strings.TrimSpace(imagefile.StripDataURLPrefix(image))
	mask = strings.TrimSpace(imagefile.StripDataURLPrefix(mask))
	if image == "" || mask == "" {
		return nil, invalidInput("image and mask are required")
	}

	requestID := uc.newID()
	opLogger := logging.WithOperation(uc.logger, op, requestID)
	started := uc.now()

	record := &repository.TaskRecord{RequestID: requestID, Kind: repository.KindInpaint, Attempts: 1}
	data, err := uc.vendor.InpaintSync(ctx, image, mask)
	if err != nil {
		record.Status = string(poller.StateFailed)
		if pictech.IsKind(err, pictech.KindTimeout) {
			record.Status = string(poller.StateTimedOut)
		}
		record.Message = err.Error()
		record.DurationMs = uc.now().Sub(started).Milliseconds()
		uc.recordTask(ctx, record)
		opLogger.Error("inpaint failed", zap.Error(err))
		return nil, logging.NewOperationError(op, requestID, err)
	}

	dir, _ := uc.datedDir("iopaint")
	fileName := requestID + ".png"
	path, err := uc.store.Save(ctx, dir, fileName, data)
	if err != nil {
		record.Status = string(poller.StateFailed)
		record.Message = "store result: " + err.Error()
		record.DurationMs = uc.now().Sub(started).Milliseconds()
		uc.recordTask(ctx, record)
		opLogger.Error("failed to store inpaint result", zap.Error(err))
		return nil, logging.NewOperationError(op, requestID, err)
	}

	record.Status = string(poller.StateSucceeded)
	record.OutputPath = path
	record.DurationMs = uc.now().Sub(started).Milliseconds()
	uc.recordTask(ctx, record)

	opLogger.Info("inpaint stored",
		zap.String("path", path),
		zap.Int("bytes", len(data)),
		zap.Duration("duration", time.Duration(record.DurationMs)*time.Millisecond),
	)
	return &InpaintResult{
		RequestID:   requestID,
		FileName:    fileName,
		Path:        path,
		ImageBase64: base64.StdEncoding.EncodeToString(data),
	}, nil
}
