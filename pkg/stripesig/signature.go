// Package stripesig verifies Stripe-Signature headers on inbound webhooks
// against one or more endpoint secrets. Verification never returns an error:
// any malformed or unmatched input is reported as not verified.
package stripesig

import (
	"time"

	"github.com/stripe/stripe-go/v80/webhook"
)

// Verify reports whether header carries a valid v1 signature of payload under secret.
func Verify(payload []byte, header, secret string) bool {
	return VerifyAny(payload, header, secret)
}

// VerifyAny reports whether header matches payload under any of the given
// secrets. Empty secrets are skipped.
func VerifyAny(payload []byte, header string, secrets ...string) bool {
	return verify(payload, header, secrets, 0)
}

func verify(payload []byte, header string, secrets []string, tolerance time.Duration) bool {
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		var err error
		if tolerance > 0 {
			err = webhook.ValidatePayloadWithTolerance(payload, header, secret, tolerance)
		} else {
			err = webhook.ValidatePayloadIgnoringTolerance(payload, header, secret)
		}
		if err == nil {
			return true
		}
	}
	return false
}

// SecretSource yields the webhook secrets currently accepted. It is consulted on
// every verification so rotated secrets take effect without rebuilding the verifier.
type SecretSource interface {
	WebhookSecrets() []string
}

// StaticSecrets is a fixed SecretSource.
type StaticSecrets []string

func (s StaticSecrets) WebhookSecrets() []string { return s }

// Option configures a Verifier.
type Option func(*Verifier)

// WithTolerance rejects signatures older than d. A zero or negative d
// disables the check.
func WithTolerance(d time.Duration) Option {
	return func(v *Verifier) { v.tolerance = d }
}

// Verifier checks webhook signatures against every secret of a SecretSource.
type Verifier struct {
	source    SecretSource
	tolerance time.Duration
}

func NewVerifier(source SecretSource, opts ...Option) *Verifier {
	v := &Verifier{source: source}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Configured reports whether at least one non-empty secret is available.
func (v *Verifier) Configured() bool {
	if v == nil || v.source == nil {
		return false
	}
	for _, s := range v.source.WebhookSecrets() {
		if s != "" {
			return true
		}
	}
	return false
}

// Verify reports whether header is a valid signature of payload.
func (v *Verifier) Verify(payload []byte, header string) bool {
	if v == nil || v.source == nil {
		return false
	}
	return verify(payload, header, v.source.WebhookSecrets(), v.tolerance)
}
