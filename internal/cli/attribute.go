package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/invitetrack/internal/invite"
)

// AttributeResult is the output of the attribute command.
type AttributeResult struct {
	CommunityID string              `json:"community_id"`
	Attribution *invite.Attribution `json:"attribution"`
}

func (r AttributeResult) String() string {
	a := r.Attribution
	if a == nil {
		return fmt.Sprintf("No invite counter advanced in %s", r.CommunityID)
	}
	inviter := a.InviterID
	if inviter == "" {
		inviter = "unknown"
	}
	return fmt.Sprintf("Code %s (inviter %s, uses %d to %d)", a.Code, inviter, a.UsesBefore, a.UsesAfter)
}

// NewAttributeCommand creates the attribute command.
func NewAttributeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "attribute <community-id>",
		Short: "Run one attribution diff against the stored baseline",
		Long: `Diff the live invite counters of a community against its baseline, the
same way a member join does, including the single delayed retry.

The baseline is refreshed afterwards, so a second run reports nothing
until another counter moves. No join-log row is written.

Examples:
  invitetrack attribute 123456789012345678`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAttribute(rootOpts, cmd, args[0])
		},
	}
}

func runAttribute(opts *RootOptions, cmd *cobra.Command, communityID string) error {
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

	attr, err := rt.engine(p, opts.engineOptions...).AttributeWithRetry(ctx, communityID)
	if err != nil {
		return rt.engineFailure("attribution failed", err)
	}
	return rt.out.Success(AttributeResult{CommunityID: communityID, Attribution: attr})
}
