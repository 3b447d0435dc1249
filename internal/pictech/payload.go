package pictech

import (
	"encoding/json"
	"strconv"
)

// Reserved payload keys injected by the executor.
const (
	KeyAccountID = "AccountId"
	KeyTimestamp = "Timestamp"
	KeySignature = "Signature"
)

// Payload is the business body of a vendor request.
type Payload map[string]any

// Clone returns a shallow copy so the executor never mutates caller state.
func (p Payload) Clone() Payload {
	out := make(Payload, len(p)+3)
	for k, v := range p {
		out[k] = v
	}
	return out
}

// SigningParams renders every entry except Signature the way it is written to
// the JSON body. Nil values and empty strings are dropped.
func (p Payload) SigningParams() map[string]string {
	params := make(map[string]string, len(p))
	for key, value := range p {
		if key == KeySignature {
			continue
		}
		rendered, ok := renderValue(value)
		if !ok || rendered == "" {
			continue
		}
		params[key] = rendered
	}
	return params
}

// renderValue returns the text a value takes in the signature. Strings sign
// raw; everything else signs as its JSON encoding so the signed text matches
// the request body. Nil and JSON null are dropped.
func renderValue(v any) (string, bool) {
	switch value := v.(type) {
	case nil:
		return "", false
	case string:
		return value, true
	case *string:
		if value == nil {
			return "", false
		}
		return *value, true
	}

	encoded, err := json.Marshal(v)
	if err != nil {
		return "", false
	}
	rendered := string(encoded)
	if rendered == "null" {
		return "", false
	}
	// Byte slices and other string-valued encodings sign without their quotes.
	if len(rendered) >= 2 && rendered[0] == '"' {
		var text string
		if json.Unmarshal(encoded, &text) == nil {
			return text, true
		}
	}
	return rendered, true
}

// redacted returns a copy suitable for debug logging with long blobs cut down.
func (p Payload) redacted() map[string]string {
	out := make(map[string]string, len(p))
	for key, value := range p {
		rendered, _ := renderValue(value)
		if len(rendered) > 64 {
			rendered = rendered[:32] + "...(" + strconv.Itoa(len(rendered)) + " bytes)"
		}
		out[key] = rendered
	}
	return out
}
