package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/retrywrites/internal/harness"
	"github.com/roach88/retrywrites/internal/oplog"
	"github.com/roach88/retrywrites/internal/store"
)

// AppendOptions holds flags for the append command.
type AppendOptions struct {
	*RootOptions
	Database string
	Term     int64 // term for positions assigned to an empty log

	// UUIDs overrides the collection UUID generator (for testing).
	// If nil, defaults to harness.UUIDv7Generator.
	UUIDs harness.UUIDGenerator
}

// AppendResult is the outcome of an append.
type AppendResult struct {
	Appended int    `json:"appended"`
	First    string `json:"first"`
	Last     string `json:"last"`
}

func (r AppendResult) renderText(w io.Writer) {
	fmt.Fprintf(w, "Appended %d record(s) at %s .. %s\n", r.Appended, r.First, r.Last)
}

// NewAppendCommand creates the append command.
func NewAppendCommand(rootOpts *RootOptions) *cobra.Command {
	return newAppendCommand(&AppendOptions{RootOptions: rootOpts})
}

func newAppendCommand(opts *AppendOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "append <records-file>",
		Short: "Append oplog records from a YAML file",
		Long: `Append oplog records to the database.

The file holds a records list in the same shape as a scenario's records.
Records without an explicit position are placed after the newest record
already in the log. ui: auto assigns one collection UUID per namespace.

Exit codes:
  0 - All records appended
  1 - A position already holds a different record (nothing appended)
  2 - Command error (invalid file, database error, etc.)

Examples:
  retrywrites append --db ./oplog.db records.yaml
  retrywrites append --db ./oplog.db --term 3 records.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAppend(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().Int64Var(&opts.Term, "term", 1, "term for positions assigned to an empty log")

	return cmd
}

func runAppend(opts *AppendOptions, path string, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	out := newFormatter(opts.RootOptions, cmd)
	logger := opts.Logger(out.GetErrWriter())

	file, err := harness.LoadRecordFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load records", err)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	clock, err := clockAfterLatest(ctx, st, opts.Term)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read latest position", err)
	}
	logger.Debug("assigning positions", "after", clock.Current().String())

	uuids := opts.UUIDs
	if uuids == nil {
		uuids = harness.UUIDv7Generator{}
	}
	records, err := harness.NewRecordBuilder(clock, uuids).Build(file.Records)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid records", err)
	}

	if err := st.Append(ctx, records...); err != nil {
		if errors.Is(err, store.ErrPositionConflict) {
			return WrapExitError(ExitFailure, "append rejected", err)
		}
		return WrapExitError(ExitCommandError, "failed to append records", err)
	}
	logger.Info("records appended", "path", path, "count", len(records))

	return out.Success(AppendResult{
		Appended: len(records),
		First:    records[0].OpTime.Spec(),
		Last:     records[len(records)-1].OpTime.Spec(),
	})
}

// clockAfterLatest returns a clock positioned after the newest record, or
// a fresh clock for term when the log is empty.
func clockAfterLatest(ctx context.Context, st *store.Store, term int64) (*oplog.Clock, error) {
	latest, err := st.Latest(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return oplog.NewClock(term), nil
	}
	if err != nil {
		return nil, err
	}
	return oplog.NewClockAfter(latest.OpTime), nil
}

// commandContext uses the command's context if set (for testing).
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
