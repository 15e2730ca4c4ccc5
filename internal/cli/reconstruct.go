package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/retrywrites/internal/ir"
	"github.com/roach88/retrywrites/internal/oplog"
	"github.com/roach88/retrywrites/internal/retryability"
	"github.com/roach88/retrywrites/internal/store"
)

// ReconstructOptions holds flags for the reconstruct command.
type ReconstructOptions struct {
	*RootOptions
	Database  string
	Command   string
	At        []string
	Upsert    bool
	Remove    bool
	ReturnNew bool
	Namespace string
	Parallel  int
}

// RetryReply is the answer to one retried write.
type RetryReply struct {
	At      string          `json:"at"`
	Reply   json.RawMessage `json:"reply,omitempty"`
	Code    string          `json:"code,omitempty"`
	Message string          `json:"message,omitempty"`
}

// ReconstructResult holds the replies for every requested position.
type ReconstructResult struct {
	Command   string       `json:"command"`
	Replies   []RetryReply `json:"replies"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
}

func (r ReconstructResult) renderText(w io.Writer) {
	for _, reply := range r.Replies {
		if reply.Code != "" {
			fmt.Fprintf(w, "✗ %s %s\n", reply.At, reply.Message)
			continue
		}
		fmt.Fprintf(w, "✓ %s %s\n", reply.At, reply.Reply)
	}
}

// NewReconstructCommand creates the reconstruct command.
func NewReconstructCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReconstructOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "reconstruct",
		Short: "Reconstruct retried write replies from stored records",
		Long: `Answer retried writes from the oplog records their first execution wrote.

Each --at names the record of one retried write. The records are answered
concurrently, up to --parallel at a time; replies are printed in the order
the positions were given. findAndModify reads its pre- or post-image from
the same database.

Exit codes:
  0 - Every retry was answered
  1 - One or more retries do not match their record
  2 - Command error (database not found, missing record, etc.)

Examples:
  retrywrites reconstruct --db ./oplog.db --command insert --at 1:50:10
  retrywrites reconstruct --db ./oplog.db --command findAndModify --remove --at 1:60:10
  retrywrites reconstruct --db ./oplog.db --command update --at 1:50:10 --at 1:50:12 --parallel 8`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconstruct(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Command, "command", "", "retried command: insert, update, delete or findAndModify (required)")
	_ = cmd.MarkFlagRequired("command")
	cmd.Flags().StringArrayVar(&opts.At, "at", nil, "position of the retried write's record (repeatable, required)")
	_ = cmd.MarkFlagRequired("at")
	cmd.Flags().BoolVar(&opts.Upsert, "upsert", false, "findAndModify: the retry is an upsert")
	cmd.Flags().BoolVar(&opts.Remove, "remove", false, "findAndModify: the retry removes the document")
	cmd.Flags().BoolVar(&opts.ReturnNew, "new", false, "findAndModify: the retry asks for the post-image")
	cmd.Flags().StringVar(&opts.Namespace, "ns", "", "findAndModify: namespace the retry targets")
	cmd.Flags().IntVar(&opts.Parallel, "parallel", 4, "maximum retries answered at once")

	return cmd
}

func runReconstruct(opts *ReconstructOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	out := newFormatter(opts.RootOptions, cmd)
	logger := opts.Logger(out.GetErrWriter())

	kind, err := retryability.ParseCommandKind(opts.Command)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --command", err)
	}
	if opts.Parallel < 1 {
		return NewExitError(ExitCommandError, "--parallel must be at least 1")
	}
	positions := make([]oplog.OpTime, len(opts.At))
	for i, s := range opts.At {
		if positions[i], err = oplog.ParseOpTime(s); err != nil {
			return WrapExitError(ExitCommandError, "invalid --at", err)
		}
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	registry := prometheus.NewRegistry()
	reconstructor := retryability.New(st,
		retryability.WithLogger(logger),
		retryability.WithMetrics(retryability.NewMetrics(registry)),
	)
	command := retryability.Command{
		Kind: kind,
		Intent: retryability.FindAndModifyIntent{
			Remove:    opts.Remove,
			Upsert:    opts.Upsert,
			ReturnNew: opts.ReturnNew,
			Namespace: opts.Namespace,
		},
	}

	replies := make([]RetryReply, len(positions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Parallel)
	for i, at := range positions {
		i, at := i, at
		g.Go(func() error {
			rec, err := st.Get(gctx, at)
			if err != nil {
				return err
			}
			reply, err := reconstructor.Reconstruct(gctx, command, rec)
			if err != nil {
				code := retryability.CodeOf(err)
				if code == "" {
					return fmt.Errorf("reconstruct %s: %w", at, err)
				}
				replies[i] = RetryReply{At: at.Spec(), Code: string(code), Message: err.Error()}
				return nil
			}
			data, err := ir.MarshalCanonical(reply)
			if err != nil {
				return fmt.Errorf("encode reply for %s: %w", at, err)
			}
			replies[i] = RetryReply{At: at.Spec(), Reply: data}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return WrapExitError(ExitCommandError, "retry record not found", err)
		}
		return WrapExitError(ExitCommandError, "failed to reconstruct", err)
	}

	result := ReconstructResult{Command: string(kind), Replies: replies}
	for _, r := range replies {
		if r.Code != "" {
			result.Failed++
		} else {
			result.Succeeded++
		}
	}
	logMetrics(logger, registry)

	if result.Failed > 0 {
		message := fmt.Sprintf("%d of %d retries could not be answered", result.Failed, len(replies))
		if err := out.Failure("E_RECONSTRUCT_FAILED", message, result); err != nil {
			return err
		}
		return NewExitError(ExitFailure, message)
	}
	return out.Success(result)
}

// logMetrics writes the collected counters at debug level.
func logMetrics(logger *slog.Logger, registry *prometheus.Registry) {
	families, err := registry.Gather()
	if err != nil {
		logger.Warn("failed to gather metrics", "error", err)
		return
	}
	for _, family := range families {
		for _, m := range family.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, l := range m.GetLabel() {
				labels = append(labels, l.GetName()+"="+l.GetValue())
			}
			var value float64
			switch {
			case m.GetCounter() != nil:
				value = m.GetCounter().GetValue()
			case m.GetHistogram() != nil:
				value = float64(m.GetHistogram().GetSampleCount())
			}
			logger.Debug("metric", "name", family.GetName(), "labels", strings.Join(labels, ","), "value", value)
		}
	}
}
