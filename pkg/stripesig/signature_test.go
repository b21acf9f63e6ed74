package stripesig_test

import (
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stripe/stripe-go/v80/webhook"
	"github.com/yashrajoria/chat-billing/pkg/stripesig"
)

const (
	liveSecret = "whsec_live_0123456789"
	testSecret = "whsec_test_9876543210"
)

var payloads = [][]byte{
	[]byte(`{}`),
	[]byte(`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"mode":"subscription"}}}`),
	[]byte("plain text with, commas and = signs"),
	[]byte{0x00, 0xff, 0x10, 0x7f},
}

func sign(payload []byte, secret string, at time.Time) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: at,
		Scheme:    "v1",
	}).Header
}

func v1(payload []byte, secret string, at time.Time) string {
	return hex.EncodeToString(webhook.ComputeSignature(at, payload, secret))
}

func TestSignThenVerify(t *testing.T) {
	for _, p := range payloads {
		header := sign(p, liveSecret, time.Unix(1700000000, 0))
		assert.True(t, stripesig.Verify(p, header, liveSecret), "payload %q", p)
	}
}

func TestVerify_OldTimestampAccepted(t *testing.T) {
	p := payloads[1]
	assert.True(t, stripesig.Verify(p, sign(p, liveSecret, time.Unix(1500000000, 0)), liveSecret))
}

func TestVerify_TamperedPayloadFails(t *testing.T) {
	p := payloads[1]
	header := sign(p, liveSecret, time.Unix(1700000000, 0))

	for i := range p {
		tampered := append([]byte(nil), p...)
		tampered[i] ^= 0x01
		assert.False(t, stripesig.Verify(tampered, header, liveSecret), "byte %d flipped", i)
	}
}

func TestVerify_WrongSecretFails(t *testing.T) {
	p := payloads[1]
	header := sign(p, liveSecret, time.Now())
	assert.False(t, stripesig.Verify(p, header, testSecret))
	assert.False(t, stripesig.Verify(p, header, ""))
}

func TestVerify_EmptySecretNeverMatches(t *testing.T) {
	p := payloads[1]
	assert.False(t, stripesig.Verify(p, sign(p, "", time.Now()), ""))
}

func TestVerifyAny_EitherSecret(t *testing.T) {
	p := payloads[1]

	live := sign(p, liveSecret, time.Now())
	test := sign(p, testSecret, time.Now())
	other := sign(p, "whsec_other", time.Now())

	assert.True(t, stripesig.VerifyAny(p, live, liveSecret, testSecret))
	assert.True(t, stripesig.VerifyAny(p, test, liveSecret, testSecret))
	assert.True(t, stripesig.VerifyAny(p, test, "", testSecret))
	assert.False(t, stripesig.VerifyAny(p, other, liveSecret, testSecret))
	assert.False(t, stripesig.VerifyAny(p, live))
}

func TestVerify_MultipleV1Entries(t *testing.T) {
	p := payloads[1]
	at := time.Unix(1700000000, 0)
	header := fmt.Sprintf("t=%d,v1=%s,v1=%s", at.Unix(), v1(p, "whsec_rotated_out", at), v1(p, liveSecret, at))

	assert.True(t, stripesig.Verify(p, header, liveSecret))
}

func TestVerify_MalformedHeaders(t *testing.T) {
	p := payloads[1]
	at := time.Unix(1700000000, 0)
	ts := fmt.Sprint(at.Unix())
	sig := v1(p, liveSecret, at)

	tests := []struct {
		name   string
		header string
	}{
		{name: "empty", header: ""},
		{name: "whitespace", header: "   "},
		{name: "no pairs", header: "garbage"},
		{name: "missing timestamp", header: "v1=" + sig},
		{name: "missing v1", header: "t=" + ts},
		{name: "only v0", header: "t=" + ts + ",v0=" + sig},
		{name: "empty v1", header: "t=" + ts + ",v1="},
		{name: "truncated signature", header: "t=" + ts + ",v1=" + sig[:len(sig)-2]},
		{name: "non-numeric timestamp", header: "t=soon,v1=" + sig},
		{name: "pair without equals", header: "t=" + ts + ",v1=" + sig + ",junk"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, stripesig.Verify(p, tt.header, liveSecret))
		})
	}
}

func TestVerifier_UsesEverySecret(t *testing.T) {
	p := payloads[1]
	v := stripesig.NewVerifier(stripesig.StaticSecrets{liveSecret, testSecret})

	assert.True(t, v.Configured())
	assert.True(t, v.Verify(p, sign(p, liveSecret, time.Now())))
	assert.True(t, v.Verify(p, sign(p, testSecret, time.Now())))
	assert.False(t, v.Verify(p, sign(p, "whsec_nope", time.Now())))
}

func TestVerifier_NotConfigured(t *testing.T) {
	p := payloads[1]
	v := stripesig.NewVerifier(stripesig.StaticSecrets{"", ""})

	assert.False(t, v.Configured())
	assert.False(t, v.Verify(p, sign(p, "", time.Now())))

	var nilVerifier *stripesig.Verifier
	assert.False(t, nilVerifier.Configured())
	assert.False(t, nilVerifier.Verify(p, "t=1,v1=aa"))
}

func TestVerifier_Tolerance(t *testing.T) {
	p := payloads[1]
	now := time.Now()
	v := stripesig.NewVerifier(stripesig.StaticSecrets{liveSecret}, stripesig.WithTolerance(5*time.Minute))

	assert.True(t, v.Verify(p, sign(p, liveSecret, now.Add(-4*time.Minute))))
	assert.False(t, v.Verify(p, sign(p, liveSecret, now.Add(-6*time.Minute))))

	noTolerance := stripesig.NewVerifier(stripesig.StaticSecrets{liveSecret})
	assert.True(t, noTolerance.Verify(p, sign(p, liveSecret, now.Add(-6*time.Minute))))
	assert.True(t, noTolerance.Verify(p, sign(p, liveSecret, time.Unix(1500000000, 0))))
}
