package tracker

import (
	"context"
	"fmt"

	"github.com/roach88/invitetrack/internal/platform"
)

// AuditEvent is one processed join, as seen by an AuditSink.
type AuditEvent struct {
	Join    JoinEvent
	Outcome Outcome
}

// AuditSink receives a notification for every processed join.
type AuditSink interface {
	Notify(ctx context.Context, ev AuditEvent) error
}

// ChannelSink posts audit lines to a chat channel.
type ChannelSink struct {
	Messenger platform.Messenger
	ChannelID string
}

// Notify implements AuditSink.
func (s ChannelSink) Notify(ctx context.Context, ev AuditEvent) error {
	if s.Messenger == nil || s.ChannelID == "" {
		return nil
	}
	return s.Messenger.SendMessage(ctx, s.ChannelID, FormatAudit(ev))
}

// FormatAudit renders the one-line audit message for a join.
func FormatAudit(ev AuditEvent) string {
	member := mention(ev.Join.MemberID)
	a := ev.Outcome.Attribution
	if a == nil {
		return fmt.Sprintf("%s joined; invite unknown (%s)", member, ev.Outcome.Reason)
	}

	inviter := "unknown inviter"
	if a.InviterID != "" {
		inviter = "invited by " + mention(a.InviterID)
	}
	return fmt.Sprintf("%s joined with `%s` (%s, uses %d to %d)",
		member, a.Code, inviter, a.UsesBefore, a.UsesAfter)
}

func mention(userID string) string {
	return "<@" + userID + ">"
}
