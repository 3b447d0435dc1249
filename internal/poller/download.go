package poller

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/example/pictech-gateway/internal/pictech"
)

// DefaultDownloadTimeout bounds a single result download.
const DefaultDownloadTimeout = 2 * time.Minute

// HTTPDownloader fetches result URLs with a plain, unsigned GET.
type HTTPDownloader struct {
	client *http.Client
}

var _ Downloader = (*HTTPDownloader)(nil)

// NewHTTPDownloader returns a downloader; a nil client gets a default timeout.
func NewHTTPDownloader(client *http.Client) *HTTPDownloader {
	if client == nil {
		client = &http.Client{Timeout: DefaultDownloadTimeout}
	}
	return &HTTPDownloader{client: client}
}

func (d *HTTPDownloader) Download(ctx context.Context, url string) ([]byte, error) {
	const op = "poller.download"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &pictech.Error{Kind: pictech.KindTransport, Op: op, Endpoint: url, Err: err}
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, &pictech.Error{Kind: pictech.KindTransport, Op: op, Endpoint: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &pictech.Error{
			Kind:       pictech.KindTransport,
			Op:         op,
			Endpoint:   url,
			StatusCode: resp.StatusCode,
			Body:       string(body),
			Err:        errors.New(http.StatusText(resp.StatusCode)),
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &pictech.Error{Kind: pictech.KindTransport, Op: op, Endpoint: url, StatusCode: resp.StatusCode, Err: err}
	}
	return data, nil
}
