package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/invitetrack/internal/invite"
)

// ClaimResult is the output of the claim command.
type ClaimResult struct {
	CommunityID string `json:"community_id"`
	Code        string `json:"code"`
	CreatorID   string `json:"creator_id"`
}

func (r ClaimResult) String() string {
	return fmt.Sprintf("Code %s in %s now credits %s", r.Code, r.CommunityID, r.CreatorID)
}

// NewClaimCommand creates the claim command.
func NewClaimCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "claim <community-id> <code> <creator-id>",
		Short: "Record the human creator of an invite code",
		Long: `Overwrite the stored creator of a code. Future joins through the code are
credited to this creator, even if the platform reports someone else (for
example the bot account that created it on their behalf).

Examples:
  invitetrack claim 123456789012345678 abcDEF 987654321098765432`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClaim(rootOpts, cmd, args[0], args[1], args[2])
		},
	}
}

func runClaim(opts *RootOptions, cmd *cobra.Command, communityID, code, creatorID string) error {
	ctx := context.Background()

	rt, err := setup(opts, cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	err = rt.store.ClaimCreator(ctx, invite.Baseline{
		CommunityID: communityID,
		Code:        code,
		CreatorID:   creatorID,
		UpdatedAt:   time.Now().UTC(),
	})
	if err != nil {
		_ = rt.out.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to claim code", err)
	}
	return rt.out.Success(ClaimResult{CommunityID: communityID, Code: code, CreatorID: creatorID})
}
