package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/retrywrites/internal/ir"
	"github.com/roach88/retrywrites/internal/oplog"
	"github.com/roach88/retrywrites/internal/retryability"
	"github.com/roach88/retrywrites/internal/store"
	"github.com/roach88/retrywrites/internal/testutil"
)

// Deterministic positions for records without an explicit "at".
const (
	defaultTerm = 1
	defaultSecs = 100
)

// Harness is the test execution engine.
// It runs scenarios against a fresh store with a deterministic clock and
// deterministic collection UUIDs.
type Harness struct {
	store   *store.Store
	builder *RecordBuilder
	logger  *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
//  1. Create fresh in-memory database
//  2. Build and append the scenario's records
//  3. Truncate the log if requested
//  4. Reconstruct the retried command from the record at retry.at
//  5. Compare the reply or error code with expect
//
// A returned error means the scenario could not be executed at all;
// a retry that produced the wrong outcome is reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	return RunWithLogger(scenario, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// RunWithLogger is Run with reconstruction logging sent to logger.
func RunWithLogger(scenario *Scenario, logger *slog.Logger) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store: st,
		builder: NewRecordBuilder(
			testutil.NewDeterministicClock(defaultTerm, defaultSecs),
			testutil.NewFixedUUIDGenerator(),
		),
		logger: logger,
	}

	return h.run(context.Background(), scenario)
}

func (h *Harness) run(ctx context.Context, scenario *Scenario) (*Result, error) {
	records, err := h.builder.Build(scenario.Records)
	if err != nil {
		return nil, fmt.Errorf("failed to build records: %w", err)
	}
	if err := h.store.Append(ctx, records...); err != nil {
		return nil, fmt.Errorf("failed to append records: %w", err)
	}

	if scenario.TruncateBefore != "" {
		bound, err := oplog.ParseOpTime(scenario.TruncateBefore)
		if err != nil {
			return nil, fmt.Errorf("truncate_before: %w", err)
		}
		removed, err := h.store.TruncateBefore(ctx, bound)
		if err != nil {
			return nil, err
		}
		h.logger.Info("log truncated", "before", bound.String(), "removed", removed)
	}

	cmd, err := scenario.Retry.Command()
	if err != nil {
		return nil, fmt.Errorf("retry: %w", err)
	}

	at := records[len(records)-1].OpTime
	if scenario.Retry.At != "" {
		if at, err = oplog.ParseOpTime(scenario.Retry.At); err != nil {
			return nil, fmt.Errorf("retry.at: %w", err)
		}
	}

	rec, err := h.store.Get(ctx, at)
	if err != nil {
		return nil, fmt.Errorf("retry record: %w", err)
	}

	result := NewResult()
	result.Command = cmd.Kind
	result.At = at

	reconstructor := retryability.New(h.store, retryability.WithLogger(h.logger))
	reply, err := reconstructor.Reconstruct(ctx, cmd, rec)
	switch {
	case err == nil:
		result.Reply = reply
	case retryability.CodeOf(err) != "":
		result.ErrorCode = retryability.CodeOf(err)
		result.Error = err.Error()
	default:
		return nil, fmt.Errorf("reconstruct: %w", err)
	}

	if err := compareExpect(scenario.Expect, result); err != nil {
		result.AddError(err.Error())
	}
	return result, nil
}

var errOutcomeMismatch = errors.New("outcome mismatch")

// compareExpect checks the result against the expect clause.
func compareExpect(expect ExpectSpec, result *Result) error {
	if expect.Error != "" {
		if string(result.ErrorCode) == expect.Error {
			return nil
		}
		return fmt.Errorf("%w: expected error %s, got %s", errOutcomeMismatch, expect.Error, describe(result))
	}

	want, err := ir.DocumentFromMap(expect.Reply)
	if err != nil {
		return fmt.Errorf("expect.reply: %w", err)
	}
	if result.ErrorCode == "" && ir.Equal(want, result.Reply) {
		return nil
	}
	wantJSON, err := ir.MarshalCanonical(want)
	if err != nil {
		return fmt.Errorf("expect.reply: %w", err)
	}
	return fmt.Errorf("%w: expected reply %s, got %s", errOutcomeMismatch, wantJSON, describe(result))
}

func describe(result *Result) string {
	if result.ErrorCode != "" {
		return "error " + result.Error
	}
	data, err := ir.MarshalCanonical(result.Reply)
	if err != nil {
		return fmt.Sprintf("unprintable reply: %v", err)
	}
	return "reply " + string(data)
}
