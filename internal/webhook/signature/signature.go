package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"

	"github.com/plately/plately/internal/config"
	"github.com/plately/plately/internal/webhook/domain"
)

// Verifier checks webhook authenticity with an HMAC-SHA256 over the exact
// raw request bytes, compared in constant time.
type Verifier struct {
	secret []byte
	skip   bool
}

func NewVerifier(cfg config.Config) *Verifier {
	var secret []byte
	if s := strings.TrimSpace(cfg.WebhookSharedSecret); s != "" {
		secret = []byte(s)
	}
	return &Verifier{
		secret: secret,
		skip:   cfg.WebhookSkipVerify,
	}
}

// Verify checks the provided base64 signature against payload. A missing
// secret is reported as domain.ErrSecretMissing so callers can distinguish
// misconfiguration from a forged request.
func (v *Verifier) Verify(payload []byte, provided string) error {
	if v.skip {
		return nil
	}
	if len(v.secret) == 0 {
		return domain.ErrSecretMissing
	}
	provided = strings.TrimSpace(provided)
	if provided == "" {
		return domain.ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, v.secret)
	_, _ = mac.Write(payload)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(provided), []byte(expected)) {
		return domain.ErrInvalidSignature
	}
	return nil
}
