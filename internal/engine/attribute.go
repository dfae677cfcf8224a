package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/roach88/invitetrack/internal/invite"
)

// Attribute performs one diff of live counters against the stored baseline.
//
// Steps:
//  1. fetch the live invite list (after)
//  2. read the stored baseline (before); a missing code counts as 0 uses
//  3. keep codes whose counter advanced; pick the largest delta, ties going
//     to the code listed first by the platform
//  4. refresh the baseline with every live code, selected or not
//
// Returns (nil, nil) when no counter advanced. A baseline read failure
// returns no attribution rather than a guess. A failed refresh is logged and
// does not discard an attribution already computed.
func (e *Engine) Attribute(ctx context.Context, communityID string) (*invite.Attribution, error) {
	live, err := e.lister.ListInvites(ctx, communityID)
	if err != nil {
		return nil, fetchError(communityID, err)
	}

	before, err := e.store.ReadBaselines(ctx, communityID)
	if err != nil {
		return nil, storageError(communityID, "read baseline", err)
	}

	best := selectAttribution(live, before)

	if err := e.refresh(ctx, communityID, live); err != nil {
		e.log.Warn("baseline refresh failed after diff",
			zap.String("community_id", communityID),
			zap.Error(err),
		)
	}

	if best != nil {
		e.log.Debug("invite delta found",
			zap.String("community_id", communityID),
			zap.String("code", best.Code),
			zap.Int("uses_before", best.UsesBefore),
			zap.Int("uses_after", best.UsesAfter),
		)
	}
	return best, nil
}

// selectAttribution picks the live code with the largest positive delta.
//
// The inviter is the stored creator when one exists (a human recorded by an
// internal workflow), otherwise whatever the platform reports.
func selectAttribution(live []invite.Invite, before map[string]invite.Baseline) *invite.Attribution {
	var (
		best      *invite.Attribution
		bestDelta int
	)

	for _, inv := range live {
		if inv.Code == "" {
			continue
		}
		prev, known := before[inv.Code]
		usesBefore := 0
		if known {
			usesBefore = prev.Uses
		}
		usesAfter := inv.Uses
		if usesAfter < 0 {
			usesAfter = 0
		}

		delta := usesAfter - usesBefore
		if delta <= 0 {
			continue
		}
		// Strictly greater: the first code listed keeps a tie.
		if best != nil && delta <= bestDelta {
			continue
		}

		inviterID := inv.CreatorID
		if known && prev.CreatorID != "" {
			inviterID = prev.CreatorID
		}

		best = &invite.Attribution{
			Code:       inv.Code,
			InviterID:  inviterID,
			UsesBefore: usesBefore,
			UsesAfter:  usesAfter,
		}
		bestDelta = delta
	}

	return best
}
