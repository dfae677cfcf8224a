package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/roach88/invitetrack/internal/invite"
)

// Snapshot fetches the live invite list and upserts every code into the
// baseline. Stored creator ids and creation times are preserved.
//
// Called right after an invite is created, so the baseline knows the code
// before anyone can use it, and at startup for every community.
func (e *Engine) Snapshot(ctx context.Context, communityID string) error {
	live, err := e.lister.ListInvites(ctx, communityID)
	if err != nil {
		ferr := fetchError(communityID, err)
		if ferr.Code == ErrCodePermissionDenied {
			e.rec.ObserveSnapshot(SnapshotPermission)
		} else {
			e.rec.ObserveSnapshot(SnapshotFetchError)
		}
		return ferr
	}

	if err := e.refresh(ctx, communityID, live); err != nil {
		e.rec.ObserveSnapshot(SnapshotStoreError)
		return err
	}

	e.rec.ObserveSnapshot(SnapshotOK)
	e.log.Debug("baseline snapshot stored",
		zap.String("community_id", communityID),
		zap.Int("codes", len(live)),
	)
	return nil
}

// refresh writes the live state of every code as the new baseline.
func (e *Engine) refresh(ctx context.Context, communityID string, live []invite.Invite) error {
	if len(live) == 0 {
		return nil
	}

	now := e.clock.Now()
	rows := make([]invite.Baseline, 0, len(live))
	for _, inv := range live {
		if inv.Code == "" {
			continue
		}
		rows = append(rows, invite.BaselineFromInvite(communityID, inv, now))
	}

	if err := e.store.UpsertBaselines(ctx, rows); err != nil {
		return storageError(communityID, "write baseline", err)
	}
	return nil
}
