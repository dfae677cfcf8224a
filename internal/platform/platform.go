// Package platform defines the boundary between the attribution engine and the
// chat platform that owns invitation codes.
package platform

import (
	"context"
	"errors"
	"time"

	"github.com/roach88/invitetrack/internal/invite"
)

// ErrPermission reports that the calling identity may not read (or create)
// invites in a community. Adapters wrap it so errors.Is works on their errors.
var ErrPermission = errors.New("platform: missing permission")

// InviteLister fetches the live list of active invitation codes.
//
// Implementations must return the platform's current, authoritative counters
// in the order the platform reports them.
type InviteLister interface {
	ListInvites(ctx context.Context, communityID string) ([]invite.Invite, error)
}

// InviteOptions configures a new invite.
type InviteOptions struct {
	MaxAge  time.Duration // 0 means never expires
	MaxUses int           // 0 means unlimited
	Reason  string        // recorded in the platform's audit log
}

// InviteCreator mints new invitation codes in a channel.
type InviteCreator interface {
	CreateInvite(ctx context.Context, channelID string, opts InviteOptions) (invite.Invite, error)
}

// Messenger posts plain text to a channel. Used for audit notifications.
type Messenger interface {
	SendMessage(ctx context.Context, channelID, content string) error
}

// IsPermission reports whether err is (or wraps) ErrPermission.
func IsPermission(err error) bool {
	return errors.Is(err, ErrPermission)
}
