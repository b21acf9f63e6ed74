package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	awspkg "github.com/yashrajoria/chat-billing/pkg/aws"
	"go.uber.org/zap"
)

// EventArchiver stores verified raw webhook payloads. Best effort.
type EventArchiver interface {
	Archive(ctx context.Context, eventID string, payload []byte)
}

type s3EventArchiver struct {
	s3     awspkg.ObjectPutter
	bucket string
	clock  Clock
	logger *zap.Logger
}

// NewEventArchiver writes to bucket. A nil putter or empty bucket disables archiving.
func NewEventArchiver(s3 awspkg.ObjectPutter, bucket string, clock Clock, logger *zap.Logger) EventArchiver {
	if clock == nil {
		clock = time.Now
	}
	return &s3EventArchiver{s3: s3, bucket: bucket, clock: clock, logger: logger}
}

// ArchiveKey is stripe-events/YYYY/MM/DD/<id>.json in UTC.
func ArchiveKey(at time.Time, eventID string) string {
	if eventID == "" {
		eventID = uuid.NewString()
	}
	at = at.UTC()
	return fmt.Sprintf("stripe-events/%04d/%02d/%02d/%s.json", at.Year(), at.Month(), at.Day(), eventID)
}

func (a *s3EventArchiver) Archive(ctx context.Context, eventID string, payload []byte) {
	if a.s3 == nil || a.bucket == "" {
		return
	}

	key := ArchiveKey(a.clock(), eventID)
	putCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := a.s3.PutObject(putCtx, a.bucket, key, "application/json", payload); err != nil {
		a.logger.Warn("Failed to archive webhook payload", zap.String("key", key), zap.Error(err))
	}
}
