package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/roach88/invitetrack/internal/invite"
)

// AttributeWithRetry is the entry point for a join.
//
// It calls Attribute once. If that found no delta, or the live fetch failed
// for a non-permission reason, it waits the retry delay and calls Attribute
// exactly once more. Permission and storage failures are returned without a
// retry.
//
// A second fetch failure is returned as ErrCodeUnavailable; callers still log
// the join without attribution.
func (e *Engine) AttributeWithRetry(ctx context.Context, communityID string) (*invite.Attribution, error) {
	first, err := e.Attribute(ctx, communityID)
	if err == nil && first != nil {
		return first, nil
	}
	if err != nil && !IsUnavailableError(err) {
		return nil, err
	}

	fields := []zap.Field{
		zap.String("community_id", communityID),
		zap.Duration("delay", e.retryDelay),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	e.log.Debug("no invite delta yet, retrying once", fields...)
	e.rec.ObserveRetry()

	if err := e.sleep(ctx, e.retryDelay); err != nil {
		return nil, fmt.Errorf("attribution retry wait: %w", err)
	}

	return e.Attribute(ctx, communityID)
}
