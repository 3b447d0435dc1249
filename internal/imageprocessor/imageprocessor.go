package imageprocessor

import (
	"context"

	"github.com/example/pictech-gateway/internal/pictech"
	"github.com/example/pictech-gateway/internal/poller"
)

// Client exposes the vendor operations used by the translation and inpaint
// flows. *pictech.Client implements it.
type Client interface {
	SubmitTranslationByURL(ctx context.Context, imageURL, sourceLanguage, targetLanguage string) (*pictech.Response, error)
	SubmitTranslationByBase64(ctx context.Context, imageBase64, sourceLanguage, targetLanguage string) (*pictech.Response, error)
	QueryTranslationResult(ctx context.Context, requestID string) (*pictech.Response, error)
	InpaintSync(ctx context.Context, image, mask string) ([]byte, error)
}

// BackgroundRemover runs a removal job to completion. *poller.Poller
// implements it.
type BackgroundRemover interface {
	Run(ctx context.Context, payload pictech.Payload, dest poller.Destination) (*poller.Outcome, error)
}

var (
	_ Client            = (*pictech.Client)(nil)
	_ BackgroundRemover = (*poller.Poller)(nil)
)
