package cli

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/invitetrack/internal/invite"
)

// JoinsOptions holds flags for the joins command.
type JoinsOptions struct {
	*RootOptions
	Limit int
}

// JoinRow is one join-log record in command output.
type JoinRow struct {
	ID            int64               `json:"id"`
	MemberID      string              `json:"member_id"`
	MemberDisplay string              `json:"member_display,omitempty"`
	JoinedAt      string              `json:"joined_at"`
	AttemptID     string              `json:"attempt_id,omitempty"`
	Attribution   *invite.Attribution `json:"attribution"`
}

// JoinsResult is the output of the joins command.
type JoinsResult struct {
	CommunityID string    `json:"community_id"`
	Joins       []JoinRow `json:"joins"`
}

func (r JoinsResult) String() string {
	if len(r.Joins) == 0 {
		return fmt.Sprintf("No joins recorded for %s", r.CommunityID)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Joins for %s (newest first)\n\n", r.CommunityID)
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tJOINED\tMEMBER\tCODE\tINVITER\tUSES")
	for _, j := range r.Joins {
		code, inviter, uses := "-", "-", "-"
		if a := j.Attribution; a != nil {
			code = a.Code
			inviter = orDash(a.InviterID)
			uses = fmt.Sprintf("%d to %d", a.UsesBefore, a.UsesAfter)
		}
		member := j.MemberID
		if j.MemberDisplay != "" {
			member = fmt.Sprintf("%s (%s)", j.MemberDisplay, j.MemberID)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			strconv.FormatInt(j.ID, 10), j.JoinedAt, member, code, inviter, uses)
	}
	_ = w.Flush()
	return strings.TrimRight(buf.String(), "\n")
}

// NewJoinsCommand creates the joins command.
func NewJoinsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &JoinsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "joins <community-id>",
		Short: "Show recent joins and their attributed invite codes",
		Long: `List join-log records of a community, newest first.

Unattributed joins show "-" for code, inviter and uses.

Examples:
  invitetrack joins 123456789012345678
  invitetrack joins 123456789012345678 --limit 100 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJoins(opts, cmd, args[0])
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "maximum number of joins to show (0 for all)")

	return cmd
}

func runJoins(opts *JoinsOptions, cmd *cobra.Command, communityID string) error {
	ctx := context.Background()

	if opts.Limit < 0 {
		return NewExitError(ExitCommandError, "--limit must not be negative")
	}

	rt, err := setup(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	recs, err := rt.store.ReadJoins(ctx, communityID, opts.Limit)
	if err != nil {
		_ = rt.out.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read joins", err)
	}

	result := JoinsResult{CommunityID: communityID, Joins: make([]JoinRow, 0, len(recs))}
	for _, r := range recs {
		result.Joins = append(result.Joins, JoinRow{
			ID:            r.ID,
			MemberID:      r.MemberID,
			MemberDisplay: r.MemberDisplay,
			JoinedAt:      formatTime(r.JoinedAt),
			AttemptID:     r.AttemptID,
			Attribution:   r.Attribution,
		})
	}
	return rt.out.Success(result)
}
