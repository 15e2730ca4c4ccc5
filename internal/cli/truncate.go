package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/retrywrites/internal/oplog"
	"github.com/roach88/retrywrites/internal/store"
)

// TruncateOptions holds flags for the truncate command.
type TruncateOptions struct {
	*RootOptions
	Database string
	Before   string
}

// TruncateResult is the outcome of a truncation.
type TruncateResult struct {
	Before    string `json:"before"`
	Removed   int64  `json:"removed"`
	Remaining int64  `json:"remaining"`
}

func (r TruncateResult) renderText(w io.Writer) {
	fmt.Fprintf(w, "Removed %d record(s) before %s, %d remaining\n", r.Removed, r.Before, r.Remaining)
}

// NewTruncateCommand creates the truncate command.
func NewTruncateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TruncateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "truncate",
		Short: "Remove oplog records older than a position",
		Long: `Remove every record strictly before --before.

Retries whose images were removed fail with IMAGE_NOT_FOUND afterwards;
they are never answered with an empty document.

Examples:
  retrywrites truncate --db ./oplog.db --before 1:100:0`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTruncate(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Before, "before", "", "first position to keep (term:secs:inc, required)")
	_ = cmd.MarkFlagRequired("before")

	return cmd
}

func runTruncate(opts *TruncateOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	out := newFormatter(opts.RootOptions, cmd)
	logger := opts.Logger(out.GetErrWriter())

	before, err := oplog.ParseOpTime(opts.Before)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --before", err)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	removed, err := st.TruncateBefore(ctx, before)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to truncate", err)
	}
	remaining, err := st.Count(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to count records", err)
	}
	logger.Info("log truncated", "before", before.String(), "removed", removed)

	return out.Success(TruncateResult{
		Before:    before.Spec(),
		Removed:   removed,
		Remaining: remaining,
	})
}
