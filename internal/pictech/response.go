package pictech

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Vendor status codes.
const (
	CodeSuccess    = 200
	CodeInProgress = 202
)

// FlexString decodes a JSON string or number into a string. The vendor is not
// consistent about the type of ErrorCode.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// Response is the JSON envelope returned by every non-binary vendor endpoint.
type Response struct {
	Code      int            `json:"Code"`
	Message   string         `json:"Message"`
	RequestID string         `json:"RequestId,omitempty"`
	ErrorCode FlexString     `json:"ErrorCode,omitempty"`
	Data      map[string]any `json:"Data,omitempty"`

	// Raw keeps the undecoded body so callers can pass it through untouched.
	Raw json.RawMessage `json:"-"`
}

// Succeeded reports a terminal success code.
func (r *Response) Succeeded() bool { return r != nil && r.Code == CodeSuccess }

// InProgress reports that an async job is still running.
func (r *Response) InProgress() bool { return r != nil && r.Code == CodeInProgress }

// DataString returns Data[key] as a string, or "" when absent or not scalar.
func (r *Response) DataString(key string) string {
	if r == nil || r.Data == nil {
		return ""
	}
	switch v := r.Data[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

// OutputURL returns Data.OutputUrl.
func (r *Response) OutputURL() string {
	return r.DataString("OutputUrl")
}

func decodeResponse(body []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	resp.Raw = append(json.RawMessage(nil), body...)
	return &resp, nil
}
