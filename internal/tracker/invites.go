package tracker

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/roach88/invitetrack/internal/engine"
	"github.com/roach88/invitetrack/internal/invite"
)

// ErrNoInviteCreator is returned by CreateInvite when the tracker was built
// without a platform.InviteCreator.
var ErrNoInviteCreator = errors.New("tracker: invite creation not configured")

// HandleInviteCreated snapshots a community after a new code appears, so the
// baseline knows it before anyone uses it.
func (t *Tracker) HandleInviteCreated(ctx context.Context, communityID string) error {
	if err := t.engine.Snapshot(ctx, communityID); err != nil {
		t.logSnapshotError(communityID, err)
		return err
	}
	return nil
}

// SnapshotAll snapshots every community in order and returns how many
// succeeded. A failure in one community never stops the rest.
func (t *Tracker) SnapshotAll(ctx context.Context, communityIDs []string) int {
	ok := 0
	for _, id := range communityIDs {
		if ctx.Err() != nil {
			break
		}
		if err := t.engine.Snapshot(ctx, id); err != nil {
			t.logSnapshotError(id, err)
			continue
		}
		ok++
	}
	t.log.Info("startup snapshot complete",
		zap.Int("communities", len(communityIDs)),
		zap.Int("succeeded", ok),
	)
	return ok
}

func (t *Tracker) logSnapshotError(communityID string, err error) {
	if engine.IsPermissionError(err) {
		t.log.Warn("snapshot skipped: missing permission to list invites",
			zap.String("community_id", communityID),
			zap.Error(err),
		)
		return
	}
	t.log.Error("snapshot failed",
		zap.String("community_id", communityID),
		zap.Error(err),
	)
}

// CreateInvite mints a code in channelID for creatorID.
//
// The human creator is claimed in the baseline before the follow-up snapshot,
// so the bot that technically created the code is never stored as inviter. A
// failed snapshot is logged; the code still exists and is returned.
func (t *Tracker) CreateInvite(ctx context.Context, communityID, channelID, creatorID string) (invite.Invite, error) {
	if t.creator == nil {
		return invite.Invite{}, ErrNoInviteCreator
	}
	if communityID == "" || channelID == "" || creatorID == "" {
		return invite.Invite{}, fmt.Errorf("create invite: community, channel and creator are required")
	}

	opts := t.inviteDefaults
	opts.Reason = fmt.Sprintf("invite requested by %s", creatorID)

	inv, err := t.creator.CreateInvite(ctx, channelID, opts)
	if err != nil {
		return invite.Invite{}, fmt.Errorf("create invite: %w", err)
	}

	now := t.clock.Now()
	claim := invite.BaselineFromInvite(communityID, inv, now)
	claim.CreatorID = creatorID
	if claim.CreatedAt.IsZero() {
		claim.CreatedAt = now
	}
	if err := t.store.ClaimCreator(ctx, claim); err != nil {
		return inv, fmt.Errorf("create invite: claim %s: %w", inv.Code, err)
	}

	if err := t.engine.Snapshot(ctx, communityID); err != nil {
		t.logSnapshotError(communityID, err)
	}

	t.log.Info("invite created",
		zap.String("community_id", communityID),
		zap.String("channel_id", channelID),
		zap.String("code", inv.Code),
		zap.String("creator_id", creatorID),
	)
	return inv, nil
}

