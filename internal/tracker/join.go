package tracker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/roach88/invitetrack/internal/engine"
	"github.com/roach88/invitetrack/internal/invite"
)

// JoinEvent is a member joining a community.
type JoinEvent struct {
	CommunityID   string
	MemberID      string
	MemberDisplay string
	JoinedAt      time.Time // zero means now
}

// Reason explains why a join was not attributed.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonNoDelta           Reason = "no_delta"
	ReasonMissingPermission Reason = "missing_permission"
	ReasonUnavailable       Reason = "unavailable"
	ReasonStorage           Reason = "storage_error"
)

// Outcome is everything HandleJoin decided about one join.
type Outcome struct {
	AttemptID   string
	RecordID    int64 // 0 when the join-log write failed
	Attribution *invite.Attribution
	Reason      Reason
	Err         error // attribution or write failure, already logged
}

// Attributed reports whether the join was attributed to a code.
func (o Outcome) Attributed() bool {
	return o.Attribution != nil
}

// Label is the metrics label for the outcome.
func (o Outcome) Label() string {
	if o.Attribution != nil {
		return "attributed"
	}
	return string(o.Reason)
}

// HandleJoin attributes a join and records it.
//
// Exactly one join-log row is written per call, attributed or not. The write
// ignores cancellation of ctx, so a join interrupted by shutdown is still
// logged. A failed write is logged and reported in Outcome.Err; it is never
// retried.
func (t *Tracker) HandleJoin(ctx context.Context, ev JoinEvent) Outcome {
	start := t.clock.Now()
	if ev.JoinedAt.IsZero() {
		ev.JoinedAt = start
	}

	out := Outcome{AttemptID: t.ids.Generate()}
	log := t.log.With(
		zap.String("attempt_id", out.AttemptID),
		zap.String("community_id", ev.CommunityID),
		zap.String("member_id", ev.MemberID),
	)

	attr, err := t.engine.AttributeWithRetry(ctx, ev.CommunityID)
	out.Attribution = attr
	out.Reason = classify(attr, err)
	out.Err = err

	switch out.Reason {
	case ReasonNone:
		log.Info("join attributed",
			zap.String("code", attr.Code),
			zap.String("inviter_id", attr.InviterID),
			zap.Int("uses_before", attr.UsesBefore),
			zap.Int("uses_after", attr.UsesAfter),
		)
	case ReasonNoDelta:
		log.Info("join not attributed: no invite counter advanced")
	case ReasonMissingPermission:
		log.Warn("join not attributed: missing permission to list invites", zap.Error(err))
	default:
		log.Error("join not attributed", zap.String("reason", string(out.Reason)), zap.Error(err))
	}

	id, werr := t.store.WriteJoin(context.WithoutCancel(ctx), invite.JoinRecord{
		CommunityID:   ev.CommunityID,
		MemberID:      ev.MemberID,
		MemberDisplay: ev.MemberDisplay,
		JoinedAt:      ev.JoinedAt,
		AttemptID:     out.AttemptID,
		Attribution:   attr,
	})
	if werr != nil {
		log.Error("join log write failed", zap.Error(werr))
		if out.Err == nil {
			out.Err = werr
		}
	}
	out.RecordID = id

	t.rec.ObserveAttribution(out.Label(), t.clock.Now().Sub(start))
	t.notify(ctx, log, ev, out)
	return out
}

func classify(attr *invite.Attribution, err error) Reason {
	switch {
	case err == nil && attr != nil:
		return ReasonNone
	case err == nil:
		return ReasonNoDelta
	case engine.IsPermissionError(err):
		return ReasonMissingPermission
	case engine.IsStorageError(err):
		return ReasonStorage
	default:
		return ReasonUnavailable
	}
}

func (t *Tracker) notify(ctx context.Context, log *zap.Logger, ev JoinEvent, out Outcome) {
	if t.audit == nil {
		return
	}
	if err := t.audit.Notify(ctx, AuditEvent{Join: ev, Outcome: out}); err != nil {
		log.Warn("audit notification failed", zap.Error(err))
	}
}
