package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	SignatureHeader = "X-API-Signature"
	TimestampHeader = "X-API-Timestamp"

	// ClickUpSignatureHeader carries the hex HMAC-SHA256 of the raw body.
	ClickUpSignatureHeader = "X-Signature"

	signaturePrefix = "hmac-sha256="
	maxClockSkew    = 5 * time.Minute
)

var ErrEmptySecret = errors.New("signing secret is empty")

// GenerateSecret returns a random 32 byte secret, base64 encoded, for
// WEBHOOK_SECRET.
func GenerateSecret() (string, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}

	return base64.StdEncoding.EncodeToString(secret), nil
}

func canonicalRequest(method, path, timestamp string, body []byte) string {
	bodyHash := sha256.Sum256(body)
	return fmt.Sprintf("%s\n%s\n\n%s\nsha256:%x", method, path, timestamp, bodyHash)
}

func mac(secret []byte, message string) []byte {
	h := hmac.New(sha256.New, secret)
	h.Write([]byte(message))
	return h.Sum(nil)
}

// APIRequestSigner signs requests sent to the opsflow webhook server with a
// shared secret.
type APIRequestSigner struct {
	secret []byte
	now    func() time.Time
}

func NewAPIRequestSigner(secret string) (*APIRequestSigner, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}

	return &APIRequestSigner{secret: []byte(secret), now: time.Now}, nil
}

// SignRequest returns the signature headers for a request.
func (s *APIRequestSigner) SignRequest(method, path string, body []byte) map[string]string {
	timestamp := strconv.FormatInt(s.now().Unix(), 10)
	signature := mac(s.secret, canonicalRequest(method, path, timestamp, body))

	return map[string]string{
		SignatureHeader: signaturePrefix + base64.StdEncoding.EncodeToString(signature),
		TimestampHeader: timestamp,
	}
}

type APISignatureVerifier struct {
	secret []byte
	now    func() time.Time
}

func NewAPISignatureVerifier(secret string) (*APISignatureVerifier, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}

	return &APISignatureVerifier{secret: []byte(secret), now: time.Now}, nil
}

// VerifyRequest checks the signature and that the timestamp is within five
// minutes of now.
func (v *APISignatureVerifier) VerifyRequest(method, path, signatureHeader, timestampHeader string, body []byte) error {
	if !strings.HasPrefix(signatureHeader, signaturePrefix) {
		return fmt.Errorf("invalid signature format")
	}

	signature, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(signatureHeader, signaturePrefix))
	if err != nil {
		return fmt.Errorf("failed to decode signature: %w", err)
	}

	timestamp, err := strconv.ParseInt(timestampHeader, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp: %w", err)
	}

	skew := v.now().Sub(time.Unix(timestamp, 0))
	if skew < 0 {
		skew = -skew
	}
	if skew > maxClockSkew {
		return fmt.Errorf("timestamp outside allowed window")
	}

	expected := mac(v.secret, canonicalRequest(method, path, timestampHeader, body))
	if !hmac.Equal(expected, signature) {
		return fmt.Errorf("signature verification failed")
	}

	return nil
}

// ClickUpVerifier checks the X-Signature header ClickUp sends with webhook
// deliveries.
type ClickUpVerifier struct {
	secret []byte
}

func NewClickUpVerifier(secret string) (*ClickUpVerifier, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}

	return &ClickUpVerifier{secret: []byte(secret)}, nil
}

func (v *ClickUpVerifier) Sign(body []byte) string {
	h := hmac.New(sha256.New, v.secret)
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

func (v *ClickUpVerifier) VerifyBody(signatureHeader string, body []byte) error {
	signature, err := hex.DecodeString(strings.TrimSpace(signatureHeader))
	if err != nil || len(signature) == 0 {
		return fmt.Errorf("invalid signature format")
	}

	h := hmac.New(sha256.New, v.secret)
	h.Write(body)

	if !hmac.Equal(h.Sum(nil), signature) {
		return fmt.Errorf("signature verification failed")
	}

	return nil
}
