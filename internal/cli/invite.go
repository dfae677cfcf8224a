package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/invitetrack/internal/platform"
	"github.com/roach88/invitetrack/internal/tracker"
)

// InviteResult is the output of the invite command.
type InviteResult struct {
	CommunityID string `json:"community_id"`
	ChannelID   string `json:"channel_id"`
	Code        string `json:"code"`
	CreatorID   string `json:"creator_id"`
}

func (r InviteResult) String() string {
	return fmt.Sprintf("Created invite %s in channel %s for %s", r.Code, r.ChannelID, r.CreatorID)
}

// NewInviteCommand creates the invite command.
func NewInviteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "invite <community-id> <channel-id> <creator-id>",
		Short: "Create an invite on behalf of a member",
		Long: `Create a unique invite in a channel with the configured age and use
limits, and record creator-id as its creator before the baseline is
refreshed.

Examples:
  invitetrack invite 123456789012345678 234567890123456789 987654321098765432`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInvite(rootOpts, cmd, args[0], args[1], args[2])
		},
	}
}

func runInvite(opts *RootOptions, cmd *cobra.Command, communityID, channelID, creatorID string) error {
	ctx := context.Background()

	rt, err := setup(opts, cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	p, err := rt.platform(opts)
	if err != nil {
		return err
	}

	t := tracker.New(rt.engine(p, opts.engineOptions...), rt.store,
		tracker.WithLogger(rt.log),
		tracker.WithInviteCreator(p),
		tracker.WithInviteDefaults(rt.cfg.InviteMaxAge, rt.cfg.InviteMaxUses),
	)

	inv, err := t.CreateInvite(ctx, communityID, channelID, creatorID)
	if err != nil {
		code := ErrCodePlatform
		if platform.IsPermission(err) {
			code = ErrCodePermission
		}
		_ = rt.out.Error(code, err.Error(), nil)
		return WrapExitError(ExitFailure, "failed to create invite", err)
	}
	return rt.out.Success(InviteResult{
		CommunityID: communityID,
		ChannelID:   channelID,
		Code:        inv.Code,
		CreatorID:   creatorID,
	})
}
