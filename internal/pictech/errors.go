package pictech

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a failure so callers can tell retryable conditions from
// permanent ones.
type ErrorKind string

const (
	KindSigning   ErrorKind = "signing"
	KindTransport ErrorKind = "transport"
	KindDecode    ErrorKind = "decode"
	KindVendor    ErrorKind = "vendor"
	KindMalformed ErrorKind = "malformed_success"
	KindTimeout   ErrorKind = "timeout"
)

// Error is returned by every vendor call that does not succeed.
type Error struct {
	Kind       ErrorKind
	Op         string
	Endpoint   string
	StatusCode int
	Code       int
	Message    string
	ErrorCode  string
	RequestID  string
	Body       string
	Err        error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Endpoint != "" {
		fmt.Fprintf(&b, " %s", e.Endpoint)
	}
	fmt.Fprintf(&b, ": %s failure", e.Kind)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (http %d)", e.StatusCode)
	}
	if e.Code != 0 {
		fmt.Fprintf(&b, " code=%d", e.Code)
	}
	if e.ErrorCode != "" {
		fmt.Fprintf(&b, " error_code=%s", e.ErrorCode)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Retryable reports whether a caller may reasonably try the call again.
func (e *Error) Retryable() bool {
	return e != nil && (e.Kind == KindTransport || e.Kind == KindTimeout)
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var pErr *Error
	if errors.As(err, &pErr) {
		return pErr.Kind, true
	}
	return "", false
}

// IsKind reports whether err carries an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// VendorError builds a KindVendor error from a terminal response.
func VendorError(op, endpoint string, resp *Response) *Error {
	e := &Error{Kind: KindVendor, Op: op, Endpoint: endpoint}
	if resp != nil {
		e.Code = resp.Code
		e.Message = resp.Message
		e.ErrorCode = string(resp.ErrorCode)
		e.RequestID = resp.RequestID
	}
	return e
}

// MalformedError builds a KindMalformed error for a success lacking a field.
func MalformedError(op, endpoint, message string) *Error {
	return &Error{Kind: KindMalformed, Op: op, Endpoint: endpoint, Message: message}
}
