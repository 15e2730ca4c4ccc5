package retryability

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/retrywrites/internal/ir"
	"github.com/roach88/retrywrites/internal/oplog"
)

// CommandKind names the retried command.
type CommandKind string

const (
	CommandInsert        CommandKind = "insert"
	CommandUpdate        CommandKind = "update"
	CommandDelete        CommandKind = "delete"
	CommandFindAndModify CommandKind = "findAndModify"
)

// ParseCommandKind parses a command name.
func ParseCommandKind(s string) (CommandKind, error) {
	switch k := CommandKind(s); k {
	case CommandInsert, CommandUpdate, CommandDelete, CommandFindAndModify:
		return k, nil
	default:
		return "", fmt.Errorf("unknown command %q (want insert, update, delete or findAndModify)", s)
	}
}

// Command is a retried command. Intent is only read for find-and-modify.
type Command struct {
	Kind   CommandKind
	Intent FindAndModifyIntent
}

// Reconstructor wraps the reconstruction functions with logging, metrics and
// a fixed image lookup.
//
// It holds only read-only configuration and is safe for concurrent use.
type Reconstructor struct {
	lookup  ImageLookup
	logger  *slog.Logger
	metrics *Metrics
}

// Option configures a Reconstructor.
type Option func(*Reconstructor)

// WithLogger sets the logger. Default: discard.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconstructor) {
		r.logger = logger
	}
}

// WithMetrics sets the metrics sink. Default: none.
func WithMetrics(m *Metrics) Option {
	return func(r *Reconstructor) {
		r.metrics = m
	}
}

// New creates a Reconstructor that fetches images from lookup.
func New(lookup ImageLookup, opts ...Option) *Reconstructor {
	r := &Reconstructor{
		lookup: lookup,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Insert reconstructs a retried insert.
func (r *Reconstructor) Insert(ctx context.Context, rec oplog.Record) (WriteResult, error) {
	res, err := ReconstructInsert(rec)
	r.observe(ctx, CommandInsert, rec, err)
	return res, err
}

// Update reconstructs a retried update.
func (r *Reconstructor) Update(ctx context.Context, rec oplog.Record) (WriteResult, error) {
	res, err := ReconstructUpdate(rec)
	r.observe(ctx, CommandUpdate, rec, err)
	return res, err
}

// Delete reconstructs a retried delete.
func (r *Reconstructor) Delete(ctx context.Context, rec oplog.Record) (WriteResult, error) {
	res, err := ReconstructDelete(rec)
	r.observe(ctx, CommandDelete, rec, err)
	return res, err
}

// FindAndModify reconstructs a retried find-and-modify.
func (r *Reconstructor) FindAndModify(ctx context.Context, intent FindAndModifyIntent, rec oplog.Record) (FindAndModifyResult, error) {
	res, err := ReconstructFindAndModify(ctx, intent, rec, r.timedLookup())
	r.observe(ctx, CommandFindAndModify, rec, err)
	return res, err
}

// Reconstruct dispatches on cmd.Kind and returns the reply document.
func (r *Reconstructor) Reconstruct(ctx context.Context, cmd Command, rec oplog.Record) (ir.Document, error) {
	switch cmd.Kind {
	case CommandInsert:
		res, err := r.Insert(ctx, rec)
		if err != nil {
			return nil, err
		}
		return res.Reply(), nil
	case CommandUpdate:
		res, err := r.Update(ctx, rec)
		if err != nil {
			return nil, err
		}
		return res.Reply(), nil
	case CommandDelete:
		res, err := r.Delete(ctx, rec)
		if err != nil {
			return nil, err
		}
		return res.Reply(), nil
	case CommandFindAndModify:
		res, err := r.FindAndModify(ctx, cmd.Intent, rec)
		if err != nil {
			return nil, err
		}
		return res.Reply(), nil
	default:
		return nil, fmt.Errorf("unknown command %q", cmd.Kind)
	}
}

// timedLookup wraps the configured lookup so each fetch is timed.
func (r *Reconstructor) timedLookup() ImageLookup {
	if r.lookup == nil || r.metrics == nil {
		return r.lookup
	}
	return ImageLookupFunc(func(ctx context.Context, at oplog.OpTime) (ir.Document, bool, error) {
		start := time.Now()
		doc, found, err := r.lookup.FetchImage(ctx, at)
		r.metrics.observeLookup(time.Since(start), found, err)
		return doc, found, err
	})
}

func (r *Reconstructor) observe(ctx context.Context, command CommandKind, rec oplog.Record, err error) {
	r.metrics.observeReconstruction(command, err)

	if err == nil {
		r.logger.DebugContext(ctx, "reconstructed retried write",
			"command", command,
			"optime", rec.OpTime.String(),
			"op", rec.Op.Name(),
			"carrier", oplog.IsCarrier(rec))
		return
	}

	r.logger.WarnContext(ctx, "reconstruction failed",
		"command", command,
		"optime", rec.OpTime.String(),
		"op", rec.Op.Name(),
		"code", outcomeLabel(err),
		"error", err)
}
