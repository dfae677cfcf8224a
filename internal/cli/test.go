package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/invitetrack/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Golden string // golden file directory; empty disables golden comparison
	Update bool   // regenerate golden files
}

// TestResult is the output of the test command.
type TestResult struct {
	Dir    string `json:"dir"`
	Total  int    `json:"total"`
	Passed int    `json:"passed"`
	Failed int    `json:"failed"`

	Failures []harness.ScenarioFailure `json:"failures,omitempty"`
}

func (r TestResult) String() string {
	var b strings.Builder
	for _, f := range r.Failures {
		fmt.Fprintf(&b, "✗ %s\n  %s\n", filepath.Base(f.ScenarioPath), f.Error)
	}
	fmt.Fprintf(&b, "Test Summary: %d passed, %d failed, %d total", r.Passed, r.Failed, r.Total)
	if r.Failed == 0 {
		b.WriteString("\n✓ All scenarios passed")
	}
	return b.String()
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run attribution scenarios",
		Long: `Run every YAML attribution scenario in a directory.

Each scenario runs against a fresh in-memory database with a scripted
platform and fake clock. With --golden, passing scenarios are also
compared with {golden}/{name}.golden; --update rewrites those files.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (missing directory, etc.)

Examples:
  invitetrack test ./scenarios
  invitetrack test ./scenarios --golden ./golden
  invitetrack test ./scenarios --golden ./golden --update
  invitetrack test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, cmd, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Golden, "golden", "", "directory of golden files to compare against")
	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")

	return cmd
}

func runTests(opts *TestOptions, cmd *cobra.Command, dir string) error {
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if _, err := os.Stat(dir); err != nil {
		return WrapExitError(ExitCommandError, "scenarios directory not found", err)
	}
	if opts.Update && opts.Golden == "" {
		return NewExitError(ExitCommandError, "--update requires --golden")
	}

	var suiteOpts []harness.SuiteOption
	if opts.Golden != "" {
		suiteOpts = append(suiteOpts, harness.WithGoldenDir(opts.Golden), harness.WithUpdate(opts.Update))
	}

	suite, err := harness.RunSuite(context.Background(), dir, suiteOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to run scenarios", err)
	}
	out.VerboseLog("ran %d scenarios from %s", suite.TotalScenarios, dir)

	result := TestResult{
		Dir:      dir,
		Total:    suite.TotalScenarios,
		Passed:   suite.Passed,
		Failed:   suite.Failed,
		Failures: suite.Failures,
	}
	if result.Failed == 0 {
		return out.Success(result)
	}

	msg := fmt.Sprintf("%d scenario(s) failed", result.Failed)
	if out.Format == "json" {
		_ = out.Error(ErrCodeScenario, msg, result)
	} else {
		_ = out.Success(result)
	}
	return NewExitError(ExitFailure, msg)
}
