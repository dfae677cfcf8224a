// Package discord adapts a discordgo session to the platform interfaces.
package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"github.com/roach88/invitetrack/internal/invite"
	"github.com/roach88/invitetrack/internal/platform"
)

// Session is the subset of *discordgo.Session the adapter uses.
type Session interface {
	GuildInvites(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Invite, error)
	ChannelInviteCreate(channelID string, i discordgo.Invite, options ...discordgo.RequestOption) (*discordgo.Invite, error)
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Client implements platform.InviteLister, platform.InviteCreator and
// platform.Messenger on top of the Discord REST API.
type Client struct {
	session Session
}

// New wraps a discordgo session.
func New(s Session) *Client {
	return &Client{session: s}
}

// ListInvites returns every active invite of a guild in API order.
//
// Reading invites needs the Manage Server permission; a 403 is reported as
// platform.ErrPermission.
func (c *Client) ListInvites(ctx context.Context, guildID string) ([]invite.Invite, error) {
	raw, err := c.session.GuildInvites(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("list invites for guild %s: %w", guildID, translateError(err))
	}

	out := make([]invite.Invite, 0, len(raw))
	for _, inv := range raw {
		if inv == nil {
			continue
		}
		out = append(out, fromDiscord(inv))
	}
	return out, nil
}

// CreateInvite mints a unique invite in a channel.
func (c *Client) CreateInvite(ctx context.Context, channelID string, opts platform.InviteOptions) (invite.Invite, error) {
	options := []discordgo.RequestOption{discordgo.WithContext(ctx)}
	if opts.Reason != "" {
		options = append(options, discordgo.WithAuditLogReason(opts.Reason))
	}

	created, err := c.session.ChannelInviteCreate(channelID, discordgo.Invite{
		MaxAge:  int(opts.MaxAge.Seconds()),
		MaxUses: opts.MaxUses,
		Unique:  true,
	}, options...)
	if err != nil {
		return invite.Invite{}, fmt.Errorf("create invite in channel %s: %w", channelID, translateError(err))
	}
	if created == nil {
		return invite.Invite{}, fmt.Errorf("create invite in channel %s: empty response", channelID)
	}
	return fromDiscord(created), nil
}

// SendMessage posts content to a channel.
func (c *Client) SendMessage(ctx context.Context, channelID, content string) error {
	if _, err := c.session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("send message to channel %s: %w", channelID, translateError(err))
	}
	return nil
}

func fromDiscord(inv *discordgo.Invite) invite.Invite {
	out := invite.Invite{
		Code:      inv.Code,
		Uses:      inv.Uses,
		CreatedAt: inv.CreatedAt.UTC(),
	}
	if inv.Inviter != nil {
		out.CreatorID = inv.Inviter.ID
	}
	return out
}

// translateError maps Discord permission failures onto platform.ErrPermission
// and leaves everything else untouched.
func translateError(err error) error {
	if isPermissionError(err) {
		return fmt.Errorf("%w: %v", platform.ErrPermission, err)
	}
	return err
}

func isPermissionError(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return false
	}
	if restErr.Message != nil {
		switch restErr.Message.Code {
		case discordgo.ErrCodeMissingPermissions, discordgo.ErrCodeMissingAccess:
			return true
		}
	}
	return restErr.Response != nil && restErr.Response.StatusCode == http.StatusForbidden
}
