package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// SnapshotResult is the output of the snapshot command.
type SnapshotResult struct {
	CommunityID string `json:"community_id"`
	Codes       int    `json:"codes"`
}

func (r SnapshotResult) String() string {
	return fmt.Sprintf("Snapshot stored for %s (%d codes)", r.CommunityID, r.Codes)
}

// NewSnapshotCommand creates the snapshot command.
func NewSnapshotCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot <community-id>",
		Short: "Store the live invite counters as the new baseline",
		Long: `Fetch every active invite of a community and upsert it into the baseline.

Stored creators are never replaced. Run this after restoring a database or
when the bot missed invite events.

Examples:
  invitetrack snapshot 123456789012345678
  invitetrack snapshot 123456789012345678 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshot(rootOpts, cmd, args[0])
		},
	}
}

func runSnapshot(opts *RootOptions, cmd *cobra.Command, communityID string) error {
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

	if err := rt.engine(p, opts.engineOptions...).Snapshot(ctx, communityID); err != nil {
		return rt.engineFailure("snapshot failed", err)
	}

	rows, err := rt.store.ListBaselines(ctx, communityID)
	if err != nil {
		return rt.engineFailure("read baseline failed", err)
	}
	return rt.out.Success(SnapshotResult{CommunityID: communityID, Codes: len(rows)})
}
