package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v80"
	awspkg "github.com/yashrajoria/chat-billing/pkg/aws"
	"github.com/yashrajoria/chat-billing/pkg/stripesig"
	"github.com/yashrajoria/chat-billing/services/billing-service/models"
	"github.com/yashrajoria/chat-billing/services/billing-service/services"
	apperrors "github.com/yashrajoria/chat-billing/services/common/errors"
	"go.uber.org/zap"
)

// WebhookBodyLimit caps the raw webhook body.
const WebhookBodyLimit = 2 << 20

const signatureHeader = "Stripe-Signature"

// WebhookController verifies and reconciles Stripe webhook deliveries.
type WebhookController struct {
	verifier   *stripesig.Verifier
	reconciler services.Reconciler
	archiver   services.EventArchiver
	metrics    awspkg.MetricsRecorder
	logger     *zap.Logger
}

// NewWebhookController creates a WebhookController. archiver and metrics may be nil.
func NewWebhookController(verifier *stripesig.Verifier, reconciler services.Reconciler, archiver services.EventArchiver, metrics awspkg.MetricsRecorder, logger *zap.Logger) *WebhookController {
	return &WebhookController{
		verifier:   verifier,
		reconciler: reconciler,
		archiver:   archiver,
		metrics:    metrics,
		logger:     logger,
	}
}

// HandleWebhook answers 200 for applied and ignored events, 400 for
// deliveries that can never succeed and 500 for anything Stripe should retry.
func (wc *WebhookController) HandleWebhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, WebhookBodyLimit)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			wc.logger.Warn("Webhook body exceeds limit", zap.Int64("limit", tooLarge.Limit))
		}
		wc.reject(c, apperrors.ErrInvalidPayload)
		return
	}

	sig := strings.TrimSpace(c.GetHeader(signatureHeader))
	if sig == "" || len(payload) == 0 {
		wc.reject(c, apperrors.ErrInvalidPayload)
		return
	}

	if !wc.verifier.Configured() {
		wc.logger.Error("No Stripe webhook secret configured")
		wc.reject(c, apperrors.ErrWebhookSecretMissing)
		return
	}
	if !wc.verifier.Verify(payload, sig) {
		wc.logger.Warn("Stripe webhook signature verification failed", zap.String("client_ip", c.ClientIP()))
		wc.reject(c, apperrors.ErrInvalidSignature)
		return
	}

	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil || event.Data == nil {
		wc.logger.Warn("Stripe webhook payload is not an event", zap.Error(err))
		wc.reject(c, apperrors.ErrInvalidPayload)
		return
	}

	ctx := c.Request.Context()
	wc.count(awspkg.MetricWebhookReceived, string(event.Type))
	if wc.archiver != nil {
		wc.archiver.Archive(ctx, event.ID, payload)
	}

	wc.logger.Info("Processing Stripe webhook",
		zap.String("event_type", string(event.Type)),
		zap.String("event_id", event.ID),
	)

	result, err := wc.reconciler.Reconcile(ctx, &event)
	if err != nil {
		var appErr *apperrors.Error
		if errors.As(err, &appErr) && !appErr.Retryable() {
			wc.reject(c, appErr)
			return
		}
		wc.logger.Error("Stripe webhook processing failed",
			zap.String("event_type", string(event.Type)),
			zap.String("event_id", event.ID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if result.Ignored {
		wc.count(awspkg.MetricWebhookIgnored, string(event.Type))
		c.JSON(http.StatusOK, models.WebhookResult{OK: true, Ignored: true})
		return
	}
	if result.UID != "" {
		wc.count(awspkg.MetricPlanChanged, string(event.Type))
	}
	c.JSON(http.StatusOK, models.WebhookResult{OK: true})
}

func (wc *WebhookController) reject(c *gin.Context, err *apperrors.Error) {
	wc.count(awspkg.MetricWebhookRejected, err.Message)
	c.JSON(err.Code, gin.H{"error": err.Message})
}

func (wc *WebhookController) count(metric, label string) {
	if wc.metrics == nil || !wc.metrics.IsEnabled() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = wc.metrics.RecordCount(ctx, metric, map[string]string{"Service": "billing-service", "Reason": label})
	}()
}
