package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yashrajoria/chat-billing/services/billing-service/models"
	"github.com/yashrajoria/chat-billing/services/billing-service/services"
	"go.uber.org/zap"
)

// ---- mock SNS publisher ----

type mockSNS struct {
	topic      string
	message    []byte
	calls      int
	publishErr error
}

func (m *mockSNS) Publish(_ context.Context, topicArn string, message []byte) error {
	m.calls++
	m.topic, m.message = topicArn, message
	return m.publishErr
}

// ---- mock S3 putter ----

type mockS3 struct {
	bucket, key, contentType string
	body                     []byte
	calls                    int
	err                      error
}

func (m *mockS3) PutObject(_ context.Context, bucket, key, contentType string, body []byte) error {
	m.calls++
	m.bucket, m.key, m.contentType, m.body = bucket, key, contentType, body
	return m.err
}

func TestPlanNotifier_Publishes(t *testing.T) {
	sns := &mockSNS{}
	n := services.NewPlanNotifier(sns, "arn:aws:sns:us-east-1:000000000000:plan-events", zap.NewNop())

	n.NotifyPlanChanged(context.Background(), models.PlanChangedEvent{Type: "plan_changed", UID: "U1", Plan: models.PlanPro, EventType: "customer.subscription.updated"})

	require.Equal(t, 1, sns.calls)
	assert.Equal(t, "arn:aws:sns:us-east-1:000000000000:plan-events", sns.topic)
	var got map[string]any
	require.NoError(t, json.Unmarshal(sns.message, &got))
	assert.Equal(t, "U1", got["uid"])
	assert.Equal(t, "Pro", got["plan"])
}

func TestPlanNotifier_DisabledAndFailures(t *testing.T) {
	sns := &mockSNS{}
	services.NewPlanNotifier(sns, "", zap.NewNop()).NotifyPlanChanged(context.Background(), models.PlanChangedEvent{UID: "U1"})
	assert.Equal(t, 0, sns.calls)

	services.NewPlanNotifier(nil, "arn", zap.NewNop()).NotifyPlanChanged(context.Background(), models.PlanChangedEvent{UID: "U1"})

	sns.publishErr = errors.New("throttled")
	assert.NotPanics(t, func() {
		services.NewPlanNotifier(sns, "arn", zap.NewNop()).NotifyPlanChanged(context.Background(), models.PlanChangedEvent{UID: "U1"})
	})
	assert.Equal(t, 1, sns.calls)
}

func TestArchiveKey(t *testing.T) {
	at := time.Date(2026, 2, 3, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, "stripe-events/2026/02/03/evt_1.json", services.ArchiveKey(at, "evt_1"))
	assert.Regexp(t, regexp.MustCompile(`^stripe-events/2026/02/03/[0-9a-f-]{36}\.json$`), services.ArchiveKey(at, ""))
}

func TestEventArchiver(t *testing.T) {
	s3 := &mockS3{}
	a := services.NewEventArchiver(s3, "billing-archive", func() time.Time { return fixedNow }, zap.NewNop())

	a.Archive(context.Background(), "evt_9", []byte(`{"id":"evt_9"}`))

	require.Equal(t, 1, s3.calls)
	assert.Equal(t, "billing-archive", s3.bucket)
	assert.Equal(t, "stripe-events/2026/05/01/evt_9.json", s3.key)
	assert.Equal(t, "application/json", s3.contentType)
	assert.JSONEq(t, `{"id":"evt_9"}`, string(s3.body))

	s3.err = errors.New("access denied")
	assert.NotPanics(t, func() { a.Archive(context.Background(), "evt_10", []byte(`{}`)) })

	disabled := &mockS3{}
	services.NewEventArchiver(disabled, "", nil, zap.NewNop()).Archive(context.Background(), "evt_1", nil)
	assert.Equal(t, 0, disabled.calls)
}
