package pictech

import (
	"context"
	"errors"
)

// DefaultBackgroundColor is sent when a removal request names no colour.
const DefaultBackgroundColor = "white"

var errNoImage = errors.New("either an image url or base64 image is required")

// SubmitTranslationByURL submits a translation job for a publicly reachable
// image. The envelope is returned as-is; a RequestId is present on Code 200.
func (c *Client) SubmitTranslationByURL(ctx context.Context, imageURL, sourceLanguage, targetLanguage string) (*Response, error) {
	return c.Execute(ctx, c.cfg.Endpoints.TranslationSubmit, Payload{
		"ImageUrl":       imageURL,
		"SourceLanguage": sourceLanguage,
		"TargetLanguage": targetLanguage,
	})
}

// SubmitTranslationByBase64 submits a translation job for a bare Base64 image
// (no data-URL prefix).
func (c *Client) SubmitTranslationByBase64(ctx context.Context, imageBase64, sourceLanguage, targetLanguage string) (*Response, error) {
	return c.Execute(ctx, c.cfg.Endpoints.TranslationSubmit, Payload{
		"ImageBase64":    imageBase64,
		"SourceLanguage": sourceLanguage,
		"TargetLanguage": targetLanguage,
	})
}

// QueryTranslationResult fetches the current state of a translation job.
func (c *Client) QueryTranslationResult(ctx context.Context, requestID string) (*Response, error) {
	return c.Execute(ctx, c.cfg.Endpoints.TranslationQuery, Payload{"RequestId": requestID})
}

// BackgroundRemovalRequest selects the source image of a removal job. Base64
// wins over URL when both are set.
type BackgroundRemovalRequest struct {
	ImageURL    string
	ImageBase64 string
	BgColor     string
}

// Payload renders the submit body.
func (r BackgroundRemovalRequest) Payload() (Payload, error) {
	color := r.BgColor
	if color == "" {
		color = DefaultBackgroundColor
	}
	p := Payload{"BgColor": color}
	switch {
	case r.ImageBase64 != "":
		p["ImageBase64"] = r.ImageBase64
	case r.ImageURL != "":
		p["ImageUrl"] = r.ImageURL
	default:
		return nil, errNoImage
	}
	return p, nil
}

// InpaintSync sends source and mask images (bare Base64, prefixes already
// stripped) to the blocking inpaint endpoint and returns the result image.
func (c *Client) InpaintSync(ctx context.Context, image, mask string) ([]byte, error) {
	const op = "pictech.inpaint_sync"
	endpoint := c.cfg.Endpoints.Inpaint

	data, err := c.ExecuteBytes(ctx, endpoint, Payload{
		"image": image,
		"mask":  mask,
	})
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, MalformedError(op, endpoint, "vendor returned an empty image body")
	}
	return data, nil
}
