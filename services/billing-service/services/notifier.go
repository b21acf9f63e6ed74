package services

import (
	"context"
	"encoding/json"
	"time"

	awspkg "github.com/yashrajoria/chat-billing/pkg/aws"
	"github.com/yashrajoria/chat-billing/services/billing-service/models"
	"go.uber.org/zap"
)

// PlanNotifier announces plan changes to downstream consumers. Delivery is
// best effort and never fails the caller.
type PlanNotifier interface {
	NotifyPlanChanged(ctx context.Context, evt models.PlanChangedEvent)
}

type snsPlanNotifier struct {
	sns      awspkg.SNSPublisher
	topicArn string
	logger   *zap.Logger
}

// NewPlanNotifier publishes to topicArn. A nil publisher or empty topic
// disables publishing.
func NewPlanNotifier(sns awspkg.SNSPublisher, topicArn string, logger *zap.Logger) PlanNotifier {
	return &snsPlanNotifier{sns: sns, topicArn: topicArn, logger: logger}
}

func (n *snsPlanNotifier) NotifyPlanChanged(ctx context.Context, evt models.PlanChangedEvent) {
	if n.sns == nil || n.topicArn == "" {
		return
	}

	body, err := json.Marshal(evt)
	if err != nil {
		n.logger.Error("Failed to marshal plan_changed event", zap.Error(err))
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := n.sns.Publish(pubCtx, n.topicArn, body); err != nil {
		n.logger.Warn("Failed to publish plan_changed event",
			zap.String("uid", evt.UID),
			zap.String("plan", string(evt.Plan)),
			zap.Error(err),
		)
	}
}
