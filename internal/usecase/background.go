package usecase

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/example/pictech-gateway/internal/imagefile"
	"github.com/example/pictech-gateway/internal/logging"
	"github.com/example/pictech-gateway/internal/pictech"
	"github.com/example/pictech-gateway/internal/poller"
	"github.com/example/pictech-gateway/internal/repository"
)

// RemoveBackgroundInput selects the source image and where the result goes.
// ImagePath wins over ImageBase64, which wins over ImageURL.
type RemoveBackgroundInput struct {
	ImagePath   string
	ImageURL    string
	ImageBase64 string
	BgColor     string

	// OutputDir defaults to UPLOAD_DIR/background/<date>, OutputFilename to
	// a fresh <uuid>.png.
	OutputDir      string
	OutputFilename string
}

// RemoveBackground runs a background removal job to completion and stores the
// result. The outcome is returned even when the job did not succeed.
func (uc *ImageUseCase) RemoveBackground(ctx context.Context, input RemoveBackgroundInput) (*poller.Outcome, error) {
	const op = "usecase.remove_background"

	request := pictech.BackgroundRemovalRequest{
		ImageURL:    strings.TrimSpace(input.ImageURL),
		ImageBase64: strings.TrimSpace(imagefile.StripDataURLPrefix(input.ImageBase64)),
		BgColor:     strings.TrimSpace(input.BgColor),
	}
	if input.ImagePath != "" {
		dataURL, err := imagefile.ReadAsDataURL(input.ImagePath)
		if err != nil {
			return nil, invalidInput(err.Error())
		}
		request.ImageBase64 = imagefile.StripDataURLPrefix(dataURL)
	}
	payload, err := request.Payload()
	if err != nil {
		return nil, invalidInput(err.Error())
	}

	dest := poller.Destination{Dir: input.OutputDir, Filename: input.OutputFilename}
	if dest.Dir == "" {
		dest.Dir, _ = uc.datedDir("background")
	}
	if dest.Filename == "" {
		dest.Filename = uc.newID() + ".png"
	}

	outcome, err := uc.remover.Run(ctx, payload, dest)
	if outcome != nil {
		uc.recordTask(ctx, recordFromOutcome(repository.KindBackgroundRemoval, outcome))
	}
	if err != nil {
		requestID := ""
		if outcome != nil {
			requestID = outcome.RequestID
		}
		logging.WithOperation(uc.logger, op, requestID).Error("background removal failed", zap.Error(err))
		return outcome, logging.NewOperationError(op, requestID, err)
	}

	logging.WithOperation(uc.logger, op, outcome.RequestID).Info("background removed",
		zap.String("path", outcome.SavedPath),
		zap.Int("attempts", outcome.Attempts),
		zap.Duration("duration", outcome.Duration),
	)
	return outcome, nil
}
