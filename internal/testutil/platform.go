package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/roach88/invitetrack/internal/invite"
	"github.com/roach88/invitetrack/internal/platform"
)

// ListResponse is one scripted answer from ScriptedPlatform.ListInvites.
type ListResponse struct {
	Invites []invite.Invite
	Err     error
}

// ScriptedPlatform is a fake platform that answers ListInvites from a
// per-community script. Once a script is exhausted its last response repeats;
// a community with no script lists no invites.
//
// It also implements platform.InviteCreator and platform.Messenger.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type ScriptedPlatform struct {
	mu       sync.Mutex
	scripts  map[string][]ListResponse
	calls    map[string]int
	created  []CreatedInvite
	messages []SentMessage
	nextCode int

	// CreateErr, when set, is returned by CreateInvite.
	CreateErr error
	// CreatorID is reported as the creator of invites made by CreateInvite.
	CreatorID string
	// SendErr, when set, is returned by SendMessage.
	SendErr error
}

// CreatedInvite records one CreateInvite call.
type CreatedInvite struct {
	ChannelID string
	Options   platform.InviteOptions
	Invite    invite.Invite
}

// SentMessage records one SendMessage call.
type SentMessage struct {
	ChannelID string
	Content   string
}

var (
	_ platform.InviteLister  = (*ScriptedPlatform)(nil)
	_ platform.InviteCreator = (*ScriptedPlatform)(nil)
	_ platform.Messenger     = (*ScriptedPlatform)(nil)
)

// NewScriptedPlatform creates an empty fake platform.
func NewScriptedPlatform() *ScriptedPlatform {
	return &ScriptedPlatform{
		scripts: make(map[string][]ListResponse),
		calls:   make(map[string]int),
	}
}

// Script appends responses to a community's script.
func (p *ScriptedPlatform) Script(communityID string, responses ...ListResponse) *ScriptedPlatform {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scripts[communityID] = append(p.scripts[communityID], responses...)
	return p
}

// ScriptInvites appends one successful response listing invites.
func (p *ScriptedPlatform) ScriptInvites(communityID string, invites ...invite.Invite) *ScriptedPlatform {
	return p.Script(communityID, ListResponse{Invites: invites})
}

// ScriptError appends one failing response.
func (p *ScriptedPlatform) ScriptError(communityID string, err error) *ScriptedPlatform {
	return p.Script(communityID, ListResponse{Err: err})
}

// ListInvites returns the next scripted response for the community.
func (p *ScriptedPlatform) ListInvites(ctx context.Context, communityID string) ([]invite.Invite, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	idx := p.calls[communityID]
	p.calls[communityID] = idx + 1

	script := p.scripts[communityID]
	if len(script) == 0 {
		return nil, nil
	}
	if idx >= len(script) {
		idx = len(script) - 1
	}
	resp := script[idx]
	if resp.Err != nil {
		return nil, resp.Err
	}
	out := make([]invite.Invite, len(resp.Invites))
	copy(out, resp.Invites)
	return out, nil
}

// Calls returns how many times ListInvites ran for a community.
func (p *ScriptedPlatform) Calls(communityID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[communityID]
}

// CreateInvite fabricates a new code ("code-1", "code-2", ...) with zero uses.
func (p *ScriptedPlatform) CreateInvite(ctx context.Context, channelID string, opts platform.InviteOptions) (invite.Invite, error) {
	if err := ctx.Err(); err != nil {
		return invite.Invite{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.CreateErr != nil {
		return invite.Invite{}, p.CreateErr
	}
	p.nextCode++
	inv := invite.Invite{
		Code:      fmt.Sprintf("code-%d", p.nextCode),
		CreatorID: p.CreatorID,
		CreatedAt: Epoch.Add(time.Duration(p.nextCode) * time.Minute),
	}
	p.created = append(p.created, CreatedInvite{ChannelID: channelID, Options: opts, Invite: inv})
	return inv, nil
}

// Created returns every invite made by CreateInvite.
func (p *ScriptedPlatform) Created() []CreatedInvite {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]CreatedInvite, len(p.created))
	copy(out, p.created)
	return out
}

// SendMessage records the message.
func (p *ScriptedPlatform) SendMessage(ctx context.Context, channelID, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.SendErr != nil {
		return p.SendErr
	}
	p.messages = append(p.messages, SentMessage{ChannelID: channelID, Content: content})
	return nil
}

// Messages returns every message passed to SendMessage.
func (p *ScriptedPlatform) Messages() []SentMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]SentMessage, len(p.messages))
	copy(out, p.messages)
	return out
}
