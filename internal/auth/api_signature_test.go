package auth

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPISignature_RoundTrip(t *testing.T) {
	signer, err := NewAPIRequestSigner("s3cret")
	require.NoError(t, err)
	verifier, err := NewAPISignatureVerifier("s3cret")
	require.NoError(t, err)

	body := []byte(`{"summary":"done"}`)
	headers := signer.SignRequest("POST", "/webhooks/session-progress", body)

	assert.NoError(t, verifier.VerifyRequest("POST", "/webhooks/session-progress", headers[SignatureHeader], headers[TimestampHeader], body))
}

func TestAPISignature_Rejects(t *testing.T) {
	signer, _ := NewAPIRequestSigner("s3cret")
	verifier, _ := NewAPISignatureVerifier("s3cret")
	other, _ := NewAPISignatureVerifier("other")

	body := []byte(`{"summary":"done"}`)
	headers := signer.SignRequest("POST", "/webhooks/session-progress", body)
	signature, timestamp := headers[SignatureHeader], headers[TimestampHeader]

	tests := []struct {
		name      string
		verifier  *APISignatureVerifier
		method    string
		path      string
		signature string
		timestamp string
		body      []byte
		wantErr   string
	}{
		{"wrong secret", other, "POST", "/webhooks/session-progress", signature, timestamp, body, "verification failed"},
		{"tampered body", verifier, "POST", "/webhooks/session-progress", signature, timestamp, []byte(`{}`), "verification failed"},
		{"other path", verifier, "POST", "/webhooks/clickup", signature, timestamp, body, "verification failed"},
		{"no prefix", verifier, "POST", "/webhooks/session-progress", "abc", timestamp, body, "invalid signature format"},
		{"bad base64", verifier, "POST", "/webhooks/session-progress", "hmac-sha256=!!", timestamp, body, "decode signature"},
		{"bad timestamp", verifier, "POST", "/webhooks/session-progress", signature, "yesterday", body, "invalid timestamp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.verifier.VerifyRequest(tt.method, tt.path, tt.signature, tt.timestamp, tt.body)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAPISignature_Expired(t *testing.T) {
	signer, _ := NewAPIRequestSigner("s3cret")
	signer.now = func() time.Time { return time.Now().Add(-10 * time.Minute) }
	verifier, _ := NewAPISignatureVerifier("s3cret")

	headers := signer.SignRequest("POST", "/x", nil)

	err := verifier.VerifyRequest("POST", "/x", headers[SignatureHeader], headers[TimestampHeader], nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside allowed window")

	_, err = strconv.ParseInt(headers[TimestampHeader], 10, 64)
	assert.NoError(t, err)
}

func TestEmptySecret(t *testing.T) {
	_, err := NewAPIRequestSigner("")
	assert.ErrorIs(t, err, ErrEmptySecret)
	_, err = NewAPISignatureVerifier("")
	assert.ErrorIs(t, err, ErrEmptySecret)
	_, err = NewClickUpVerifier("")
	assert.ErrorIs(t, err, ErrEmptySecret)
}

func TestClickUpVerifier(t *testing.T) {
	verifier, err := NewClickUpVerifier("clickup-secret")
	require.NoError(t, err)

	body := []byte(`{"event":"taskCreated","task_id":"t1"}`)
	signature := verifier.Sign(body)

	assert.Len(t, signature, 64)
	assert.NoError(t, verifier.VerifyBody(signature, body))
	assert.Error(t, verifier.VerifyBody(signature, []byte(`{"event":"taskDeleted"}`)))
	assert.Error(t, verifier.VerifyBody("not-hex", body))
	assert.Error(t, verifier.VerifyBody("", body))
}

func TestGenerateSecret(t *testing.T) {
	first, err := GenerateSecret()
	require.NoError(t, err)
	second, err := GenerateSecret()
	require.NoError(t, err)

	assert.Len(t, first, 44)
	assert.NotEqual(t, first, second)
}
