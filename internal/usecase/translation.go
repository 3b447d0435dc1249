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

// Languages names the translation direction.
type Languages struct {
	Source string
	Target string
}

func (l Languages) validate() error {
	if strings.TrimSpace(l.Source) == "" || strings.TrimSpace(l.Target) == "" {
		return invalidInput("sourceLanguage and targetLanguage are required")
	}
	return nil
}

// SubmitTranslationByURL submits a translation job for a reachable image URL.
// The vendor envelope is returned unchanged, including non-200 codes.
func (uc *ImageUseCase) SubmitTranslationByURL(ctx context.Context, imageURL string, langs Languages) (*pictech.Response, error) {
	if strings.TrimSpace(imageURL) == "" {
		return nil, invalidInput("imageUrl is required")
	}
	if err := langs.validate(); err != nil {
		return nil, err
	}
	resp, err := uc.vendor.SubmitTranslationByURL(ctx, imageURL, langs.Source, langs.Target)
	return uc.afterSubmit(ctx, "usecase.translate_url", resp, err)
}

// SubmitTranslationByBase64 submits a translation job for a Base64 image. A
// data-URL prefix is stripped before the image is sent.
func (uc *ImageUseCase) SubmitTranslationByBase64(ctx context.Context, imageBase64 string, langs Languages) (*pictech.Response, error) {
	raw := strings.TrimSpace(imagefile.StripDataURLPrefix(imageBase64))
	if raw == "" {
		return nil, invalidInput("imageBase64 is required")
	}
	if err := langs.validate(); err != nil {
		return nil, err
	}
	resp, err := uc.vendor.SubmitTranslationByBase64(ctx, raw, langs.Source, langs.Target)
	return uc.afterSubmit(ctx, "usecase.translate_base64", resp, err)
}

// SubmitTranslationUpload submits a translation job for uploaded image bytes.
func (uc *ImageUseCase) SubmitTranslationUpload(ctx context.Context, data []byte, contentType string, langs Languages) (*pictech.Response, error) {
	if len(data) == 0 {
		return nil, invalidInput("file is empty")
	}
	return uc.SubmitTranslationByBase64(ctx, imagefile.EncodeDataURL(data, contentType), langs)
}

func (uc *ImageUseCase) afterSubmit(ctx context.Context, op string, resp *pictech.Response, err error) (*pictech.Response, error) {
	if err != nil {
		uc.logger.Error("translation submit failed", zap.String("operation", op), zap.Error(err))
		return nil, logging.NewOperationError(op, "", err)
	}

	record := &repository.TaskRecord{
		RequestID: resp.RequestID,
		Kind:      repository.KindTranslation,
		Status:    string(poller.StateSubmitted),
		Message:   resp.Message,
		ErrorCode: string(resp.ErrorCode),
	}
	if !resp.Succeeded() {
		record.Status = string(poller.StateFailed)
	}
	uc.recordTask(ctx, record)

	logging.WithOperation(uc.logger, op, resp.RequestID).Info("translation submitted",
		zap.Int("code", resp.Code),
		zap.String("status", record.Status),
	)
	return resp, nil
}

// QueryTranslationResult asks the vendor for the state of a translation job
// and mirrors it into the ledger.
func (uc *ImageUseCase) QueryTranslationResult(ctx context.Context, requestID string) (*pictech.Response, error) {
	const op = "usecase.translation_result"
	if strings.TrimSpace(requestID) == "" {
		return nil, invalidInput("requestId is required")
	}

	resp, err := uc.vendor.QueryTranslationResult(ctx, requestID)
	if err != nil {
		logging.WithOperation(uc.logger, op, requestID).Error("translation query failed", zap.Error(err))
		return nil, logging.NewOperationError(op, requestID, err)
	}

	record := &repository.TaskRecord{
		RequestID: requestID,
		Kind:      repository.KindTranslation,
		Status:    translationStatus(resp),
		Message:   resp.Message,
		ErrorCode: string(resp.ErrorCode),
		OutputURL: resp.OutputURL(),
	}
	uc.recordTask(ctx, record)
	return resp, nil
}

func translationStatus(resp *pictech.Response) string {
	switch {
	case resp.Succeeded():
		return string(poller.StateSucceeded)
	case resp.InProgress():
		return string(poller.StatePolling)
	default:
		return string(poller.StateFailed)
	}
}
