package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/retrywrites/internal/oplog"
	"github.com/roach88/retrywrites/internal/store"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	Database  string
	At        string // exact position; overrides the range flags
	From      string
	Namespace string
	Limit     int
}

// RecordView is a stored record plus, for carriers, the record it relays.
type RecordView struct {
	At         string          `json:"at"`
	Op         string          `json:"op"`
	Namespace  string          `json:"ns"`
	Carrier    bool            `json:"carrier"`
	Record     json.RawMessage `json:"record"`
	Inner      json.RawMessage `json:"inner,omitempty"`
	InnerError string          `json:"inner_error,omitempty"`
}

// ShowResult holds the records printed by show.
type ShowResult struct {
	Records []RecordView `json:"records"`
}

func (r ShowResult) renderText(w io.Writer) {
	if len(r.Records) == 0 {
		fmt.Fprintln(w, "No records found.")
		return
	}
	for _, v := range r.Records {
		fmt.Fprintf(w, "%s %s %s %s\n", v.At, v.Op, v.Namespace, v.Record)
		switch {
		case v.InnerError != "":
			fmt.Fprintf(w, "  inner: malformed: %s\n", v.InnerError)
		case v.Inner != nil:
			fmt.Fprintf(w, "  inner: %s\n", v.Inner)
		}
	}
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print stored oplog records",
		Long: `Print oplog records in log order.

Carrier records are shown together with the record they relay, so the
unwrapped op kind and links can be checked before a retry is reconstructed.

Exit codes:
  0 - Records printed
  1 - No record at --at
  2 - Command error (database not found, invalid position, etc.)

Examples:
  retrywrites show --db ./oplog.db
  retrywrites show --db ./oplog.db --at 1:50:10
  retrywrites show --db ./oplog.db --ns test.user --from 1:50:0 --limit 20`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.At, "at", "", "show only the record at this position (term:secs:inc)")
	cmd.Flags().StringVar(&opts.From, "from", "", "first position to show (term:secs:inc)")
	cmd.Flags().StringVar(&opts.Namespace, "ns", "", "show only this namespace")
	cmd.Flags().IntVar(&opts.Limit, "limit", 100, "maximum records to show (0 for all)")

	return cmd
}

func runShow(opts *ShowOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	out := newFormatter(opts.RootOptions, cmd)

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	var records []oplog.Record
	switch {
	case opts.At != "":
		at, err := oplog.ParseOpTime(opts.At)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --at", err)
		}
		rec, err := st.Get(ctx, at)
		if errors.Is(err, store.ErrNotFound) {
			return WrapExitError(ExitFailure, "record not found", err)
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read record", err)
		}
		records = []oplog.Record{rec}
	default:
		var from oplog.OpTime
		if opts.From != "" {
			if from, err = oplog.ParseOpTime(opts.From); err != nil {
				return WrapExitError(ExitCommandError, "invalid --from", err)
			}
		}
		if opts.Namespace != "" {
			records, err = st.RangeNamespace(ctx, opts.Namespace, from, opts.Limit)
		} else {
			records, err = st.Range(ctx, from, opts.Limit)
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read records", err)
		}
	}

	result := ShowResult{Records: make([]RecordView, 0, len(records))}
	for _, rec := range records {
		view, err := newRecordView(rec)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to render record", err)
		}
		result.Records = append(result.Records, view)
	}
	return out.Success(result)
}

func newRecordView(rec oplog.Record) (RecordView, error) {
	data, err := oplog.Marshal(rec)
	if err != nil {
		return RecordView{}, err
	}

	view := RecordView{
		At:        rec.OpTime.Spec(),
		Op:        rec.Op.Name(),
		Namespace: rec.Namespace,
		Record:    data,
	}

	env, ok := oplog.Classify(rec).(oplog.Carrier)
	if !ok {
		return view, nil
	}
	view.Carrier = true

	inner, err := env.Inner()
	if err != nil {
		view.InnerError = err.Error()
		return view, nil
	}
	if view.Inner, err = oplog.Marshal(inner); err != nil {
		return RecordView{}, err
	}
	return view, nil
}
