package cli

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/invitetrack/internal/invite"
)

// BaselineRow is one stored code in command output.
type BaselineRow struct {
	Code      string `json:"code"`
	Uses      int    `json:"uses"`
	CreatorID string `json:"creator_id,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at"`
}

// BaselineResult is the output of the baseline command.
type BaselineResult struct {
	CommunityID string        `json:"community_id"`
	Codes       []BaselineRow `json:"codes"`
}

func (r BaselineResult) String() string {
	if len(r.Codes) == 0 {
		return fmt.Sprintf("No baseline stored for %s", r.CommunityID)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Baseline for %s (%d codes)\n\n", r.CommunityID, len(r.Codes))
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CODE\tUSES\tCREATOR\tUPDATED")
	for _, c := range r.Codes {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", c.Code, c.Uses, orDash(c.CreatorID), c.UpdatedAt)
	}
	_ = w.Flush()
	return strings.TrimRight(buf.String(), "\n")
}

// NewBaselineCommand creates the baseline command.
func NewBaselineCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "baseline <community-id>",
		Short: "Show the stored invite baseline of a community",
		Long: `List every stored code of a community with its last observed use count
and recorded creator, ordered by code.

Examples:
  invitetrack baseline 123456789012345678 --db ./invitetrack.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBaseline(rootOpts, cmd, args[0])
		},
	}
}

func runBaseline(opts *RootOptions, cmd *cobra.Command, communityID string) error {
	ctx := context.Background()

	rt, err := setup(opts, cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	rows, err := rt.store.ListBaselines(ctx, communityID)
	if err != nil {
		_ = rt.out.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read baseline", err)
	}
	return rt.out.Success(newBaselineResult(communityID, rows))
}

func newBaselineResult(communityID string, rows []invite.Baseline) BaselineResult {
	out := BaselineResult{CommunityID: communityID, Codes: make([]BaselineRow, 0, len(rows))}
	for _, b := range rows {
		out.Codes = append(out.Codes, BaselineRow{
			Code:      b.Code,
			Uses:      b.Uses,
			CreatorID: b.CreatorID,
			CreatedAt: formatTime(b.CreatedAt),
			UpdatedAt: formatTime(b.UpdatedAt),
		})
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
