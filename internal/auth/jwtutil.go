package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
)

var b64 = base64.RawURLEncoding

var errMalformed = errors.New("malformed token")

type jwtHeader struct {
	Alg string `json:"alg"`
	Typ string `json:"typ"`
}

var hs256Header = mustSegment(jwtHeader{Alg: "HS256", Typ: "JWT"})

// SignHS256 creates a compact JWT string using HS256.
func SignHS256(claims map[string]any, secret []byte) (string, error) {
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	unsigned := hs256Header + "." + b64.EncodeToString(payload)
	return unsigned + "." + b64.EncodeToString(mac(unsigned, secret)), nil
}

// ParseAndVerifyHS256 verifies token signature and returns claims. Tokens
// whose header names any algorithm other than HS256 are rejected.
func ParseAndVerifyHS256(token string, secret []byte) (map[string]any, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, errMalformed
	}

	rawHeader, err := b64.DecodeString(parts[0])
	if err != nil {
		return nil, errMalformed
	}
	var header jwtHeader
	if err := json.Unmarshal(rawHeader, &header); err != nil || header.Alg != "HS256" {
		return nil, errors.New("unsupported token algorithm")
	}

	sig, err := b64.DecodeString(parts[2])
	if err != nil {
		return nil, errMalformed
	}
	if !hmac.Equal(sig, mac(parts[0]+"."+parts[1], secret)) {
		return nil, errors.New("signature mismatch")
	}

	payload, err := b64.DecodeString(parts[1])
	if err != nil {
		return nil, errMalformed
	}
	var claims map[string]any
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, errMalformed
	}
	return claims, nil
}

func mac(unsigned string, secret []byte) []byte {
	h := hmac.New(sha256.New, secret)
	h.Write([]byte(unsigned))
	return h.Sum(nil)
}

func mustSegment(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b64.EncodeToString(raw)
}
