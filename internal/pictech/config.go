package pictech

import (
	"errors"
	"strings"
	"time"
)

// Default vendor endpoint paths.
const (
	DefaultTranslationSubmitEndpoint = "/submit_task"
	DefaultTranslationQueryEndpoint  = "/query_result"
	DefaultBackgroundSubmitEndpoint  = "/submit_remove_background_task"
	DefaultBackgroundQueryEndpoint   = "/query_remove_background_result"
	DefaultInpaintEndpoint           = "/inpaint_image_sync"

	// DefaultTimeZone is the zone the vendor expects Timestamp to be read in.
	DefaultTimeZone = "Asia/Shanghai"

	// DefaultHTTPTimeout bounds a single vendor round trip. The inpaint
	// endpoint blocks for the whole job, so this stays generous.
	DefaultHTTPTimeout = 5 * time.Minute
)

// Endpoints lists the vendor paths appended to Config.BaseURL.
type Endpoints struct {
	TranslationSubmit string
	TranslationQuery  string
	BackgroundSubmit  string
	BackgroundQuery   string
	Inpaint           string
}

// DefaultEndpoints returns the paths published by the vendor.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		TranslationSubmit: DefaultTranslationSubmitEndpoint,
		TranslationQuery:  DefaultTranslationQueryEndpoint,
		BackgroundSubmit:  DefaultBackgroundSubmitEndpoint,
		BackgroundQuery:   DefaultBackgroundQueryEndpoint,
		Inpaint:           DefaultInpaintEndpoint,
	}
}

// Config carries the caller identity and transport settings for a Client.
type Config struct {
	BaseURL     string
	AccountID   string
	SecretKey   string
	Endpoints   Endpoints
	TimeZone    string
	HTTPTimeout time.Duration
}

var (
	errMissingBaseURL   = errors.New("pictech: base url is required")
	errMissingAccountID = errors.New("pictech: account id is required")
	errMissingSecretKey = errors.New("pictech: secret key is required")
)

func (c Config) withDefaults() Config {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	defaults := DefaultEndpoints()
	if c.Endpoints.TranslationSubmit == "" {
		c.Endpoints.TranslationSubmit = defaults.TranslationSubmit
	}
	if c.Endpoints.TranslationQuery == "" {
		c.Endpoints.TranslationQuery = defaults.TranslationQuery
	}
	if c.Endpoints.BackgroundSubmit == "" {
		c.Endpoints.BackgroundSubmit = defaults.BackgroundSubmit
	}
	if c.Endpoints.BackgroundQuery == "" {
		c.Endpoints.BackgroundQuery = defaults.BackgroundQuery
	}
	if c.Endpoints.Inpaint == "" {
		c.Endpoints.Inpaint = defaults.Inpaint
	}
	if c.TimeZone == "" {
		c.TimeZone = DefaultTimeZone
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = DefaultHTTPTimeout
	}
	return c
}

func (c Config) validate() error {
	if c.BaseURL == "" {
		return errMissingBaseURL
	}
	if c.AccountID == "" {
		return errMissingAccountID
	}
	if c.SecretKey == "" {
		return &Error{Kind: KindSigning, Op: "pictech.new_client", Err: errMissingSecretKey}
	}
	return nil
}
