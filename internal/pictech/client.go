package pictech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/pictech-gateway/internal/signer"
)

// maxErrorBody caps how much of a failed response is kept for diagnostics.
const maxErrorBody = 64 << 10

// Client signs and executes vendor requests. It holds no per-request state and
// is safe for concurrent use.
type Client struct {
	cfg        Config
	httpClient *http.Client
	location   *time.Location
	now        func() time.Time
	logger     *zap.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the transport. The caller owns its timeout.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithClock overrides the time source used for Timestamp.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient validates cfg and returns a ready client.
func NewClient(cfg Config, logger *zap.Logger, opts ...Option) (*Client, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		location:   loadLocation(cfg.TimeZone, logger),
		now:        time.Now,
		logger:     logger.Named("pictech_client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Endpoints exposes the configured vendor paths.
func (c *Client) Endpoints() Endpoints { return c.cfg.Endpoints }

// Execute posts a signed payload and decodes the JSON envelope. A decoded
// envelope is returned whatever its Code; interpreting it is up to the caller.
func (c *Client) Execute(ctx context.Context, endpoint string, payload Payload) (*Response, error) {
	const op = "pictech.execute"

	body, status, err := c.post(ctx, op, endpoint, payload, false)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, httpStatusError(op, endpoint, status, body)
	}

	resp, err := decodeResponse(body)
	if err != nil {
		return nil, &Error{Kind: KindDecode, Op: op, Endpoint: endpoint, StatusCode: status, Body: truncate(body), Err: err}
	}
	c.logger.Debug("vendor response",
		zap.String("endpoint", endpoint),
		zap.Int("code", resp.Code),
		zap.String("request_id", resp.RequestID),
	)
	return resp, nil
}

// ExecuteBytes posts a signed payload and returns the raw body of a 2xx
// response.
func (c *Client) ExecuteBytes(ctx context.Context, endpoint string, payload Payload) ([]byte, error) {
	const op = "pictech.execute_bytes"

	body, status, err := c.post(ctx, op, endpoint, payload, true)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, httpStatusError(op, endpoint, status, body)
	}
	return body, nil
}

// Sign injects AccountId, Timestamp and Signature into a copy of payload.
func (c *Client) Sign(payload Payload) Payload {
	signed := payload.Clone()
	signed[KeyAccountID] = c.cfg.AccountID
	signed[KeyTimestamp] = strconv.FormatInt(c.now().In(c.location).Unix(), 10)
	delete(signed, KeySignature)
	signed[KeySignature] = signer.Sign(signed.SigningParams(), c.cfg.SecretKey)
	return signed
}

func (c *Client) post(ctx context.Context, op, endpoint string, payload Payload, binary bool) ([]byte, int, error) {
	signed := c.Sign(payload)
	requestBody, err := json.Marshal(signed)
	if err != nil {
		return nil, 0, &Error{Kind: KindTransport, Op: op, Endpoint: endpoint, Err: fmt.Errorf("encode payload: %w", err)}
	}

	url := c.cfg.BaseURL + endpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(requestBody))
	if err != nil {
		return nil, 0, &Error{Kind: KindTransport, Op: op, Endpoint: endpoint, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if binary {
		req.Header.Set("Accept", "*/*")
	}

	c.logger.Debug("vendor request",
		zap.String("url", url),
		zap.Bool("binary", binary),
		zap.Any("payload", signed.redacted()),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("vendor call failed", zap.String("url", url), zap.Error(err))
		return nil, 0, &Error{Kind: KindTransport, Op: op, Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, &Error{Kind: KindTransport, Op: op, Endpoint: endpoint, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error("vendor returned non-2xx status",
			zap.String("url", url),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", []byte(truncate(body))),
		)
	}
	return body, resp.StatusCode, nil
}

// httpStatusError keeps the server body and, when it happens to be a vendor
// envelope, its Code/Message/ErrorCode.
func httpStatusError(op, endpoint string, status int, body []byte) *Error {
	e := &Error{
		Kind:       KindTransport,
		Op:         op,
		Endpoint:   endpoint,
		StatusCode: status,
		Body:       truncate(body),
		Err:        errors.New(http.StatusText(status)),
	}
	if resp, err := decodeResponse(body); err == nil {
		e.Code = resp.Code
		e.Message = resp.Message
		e.ErrorCode = string(resp.ErrorCode)
		e.RequestID = resp.RequestID
	} else if e.Body != "" {
		e.Message = strings.TrimSpace(e.Body)
	}
	return e
}

func truncate(body []byte) string {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return string(body)
}

func loadLocation(name string, logger *zap.Logger) *time.Location {
	loc, err := time.LoadLocation(name)
	if err == nil {
		return loc
	}
	// Hosts without tzdata still have to sign like everyone else.
	if name == DefaultTimeZone {
		return time.FixedZone("CST", 8*60*60)
	}
	logger.Warn("unknown vendor time zone, using UTC", zap.String("zone", name), zap.Error(err))
	return time.UTC
}
