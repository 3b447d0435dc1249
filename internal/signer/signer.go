package signer

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"sort"
	"strings"
)

// SecretKeyParam is the literal appended to every canonical string.
const SecretKeyParam = "SecretKey"

// CanonicalString builds the HMAC message for params: non-empty entries sorted
// by byte-wise key order, joined as key=value with '&', followed by
// "&SecretKey=<secret>".
func CanonicalString(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for key, value := range params {
		if value == "" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, key := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(params[key])
	}
	b.WriteByte('&')
	b.WriteString(SecretKeyParam)
	b.WriteByte('=')
	b.WriteString(secret)
	return b.String()
}

// Sign returns the Base64 (standard, padded) HMAC-SHA256 of the canonical
// string, keyed with the raw bytes of secret.
func Sign(params map[string]string, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(CanonicalString(params, secret)))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
