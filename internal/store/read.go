package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/retrywrites/internal/ir"
	"github.com/roach88/retrywrites/internal/oplog"
)

// ErrNotFound is returned when no record exists at a position.
var ErrNotFound = errors.New("no record at position")

const selectColumns = `
	SELECT term, secs, inc, op, ns, ui, o, o2, pre_image_optime, post_image_optime
	FROM oplog
`

// Get returns the record at exactly at, or ErrNotFound.
func (s *Store) Get(ctx context.Context, at oplog.OpTime) (oplog.Record, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+`
		WHERE term = ? AND secs = ? AND inc = ?
	`, at.Term, at.TS.T, at.TS.I)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return oplog.Record{}, fmt.Errorf("get %s: %w", at, ErrNotFound)
	}
	if err != nil {
		return oplog.Record{}, fmt.Errorf("get %s: %w", at, err)
	}
	return rec, nil
}

// Range returns up to limit records at or after from, in log order.
// A limit <= 0 means no limit.
func (s *Store) Range(ctx context.Context, from oplog.OpTime, limit int) ([]oplog.Record, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+`
		WHERE (term, secs, inc) >= (?, ?, ?)
		ORDER BY term ASC, secs ASC, inc ASC
		LIMIT ?
	`, from.Term, from.TS.T, from.TS.I, sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query range: %w", err)
	}
	return collectRecords(rows)
}

// RangeNamespace is Range restricted to one namespace.
func (s *Store) RangeNamespace(ctx context.Context, ns string, from oplog.OpTime, limit int) ([]oplog.Record, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+`
		WHERE ns = ? AND (term, secs, inc) >= (?, ?, ?)
		ORDER BY term ASC, secs ASC, inc ASC
		LIMIT ?
	`, ns, from.Term, from.TS.T, from.TS.I, sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query namespace range: %w", err)
	}
	return collectRecords(rows)
}

// Latest returns the newest record, or ErrNotFound on an empty log.
func (s *Store) Latest(ctx context.Context) (oplog.Record, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+`
		ORDER BY term DESC, secs DESC, inc DESC
		LIMIT 1
	`)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return oplog.Record{}, fmt.Errorf("latest: %w", ErrNotFound)
	}
	if err != nil {
		return oplog.Record{}, fmt.Errorf("latest: %w", err)
	}
	return rec, nil
}

// Count returns the number of records in the log.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM oplog`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

// FetchImage returns the o payload of the record at at. A missing record is
// reported as found=false, not as an error.
func (s *Store) FetchImage(ctx context.Context, at oplog.OpTime) (ir.Document, bool, error) {
	ctx, span := s.tracer.Start(ctx, "store.FetchImage", trace.WithAttributes(
		attribute.Int64("oplog.term", at.Term),
		attribute.Int64("oplog.ts.t", int64(at.TS.T)),
		attribute.Int64("oplog.ts.i", int64(at.TS.I)),
	))
	defer span.End()

	rec, err := s.Get(ctx, at)
	if errors.Is(err, ErrNotFound) {
		span.SetAttributes(attribute.Bool("image.found", false))
		return nil, false, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, fmt.Errorf("fetch image: %w", err)
	}

	span.SetAttributes(attribute.Bool("image.found", true))
	return rec.Object, true, nil
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (oplog.Record, error) {
	var (
		rec       oplog.Record
		op        string
		ui        *string
		o, o2     []byte
		pre, post *string
	)
	err := row.Scan(
		&rec.OpTime.Term,
		&rec.OpTime.TS.T,
		&rec.OpTime.TS.I,
		&op,
		&rec.Namespace,
		&ui,
		&o,
		&o2,
		&pre,
		&post,
	)
	if err != nil {
		return oplog.Record{}, err
	}

	if rec.Op, err = oplog.ParseOpType(op); err != nil {
		return oplog.Record{}, fmt.Errorf("scan record at %s: %w", rec.OpTime, err)
	}
	if rec.UUID, err = decodeUUID(ui); err != nil {
		return oplog.Record{}, fmt.Errorf("scan record at %s: %w", rec.OpTime, err)
	}
	if rec.Object, err = decodePayload(o); err != nil {
		return oplog.Record{}, fmt.Errorf("scan record at %s: o: %w", rec.OpTime, err)
	}
	if rec.Object2, err = decodePayload(o2); err != nil {
		return oplog.Record{}, fmt.Errorf("scan record at %s: o2: %w", rec.OpTime, err)
	}
	if rec.PreImageOpTime, err = decodeOpTime(pre); err != nil {
		return oplog.Record{}, fmt.Errorf("scan record at %s: pre-image link: %w", rec.OpTime, err)
	}
	if rec.PostImageOpTime, err = decodeOpTime(post); err != nil {
		return oplog.Record{}, fmt.Errorf("scan record at %s: post-image link: %w", rec.OpTime, err)
	}
	return rec, nil
}

func collectRecords(rows *sql.Rows) ([]oplog.Record, error) {
	defer rows.Close()

	records := []oplog.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

// sqlLimit maps "no limit" to SQLite's -1.
func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}
