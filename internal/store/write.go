package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/retrywrites/internal/ir"
	"github.com/roach88/retrywrites/internal/oplog"
)

// ErrPositionConflict is returned when a different record already occupies
// the position being appended.
var ErrPositionConflict = errors.New("position already holds a different record")

// Append writes records to the log in one transaction.
//
// Each record is validated first. Uses ON CONFLICT DO NOTHING so that
// re-appending an identical record is a no-op; a record that differs from
// the one already at its position fails with ErrPositionConflict and
// nothing from the batch is written.
func (s *Store) Append(ctx context.Context, recs ...oplog.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	for _, rec := range recs {
		if err := rec.Validate(); err != nil {
			return fmt.Errorf("append record at %s: %w", rec.OpTime, err)
		}

		o, err := encodePayload(rec.Object)
		if err != nil {
			return fmt.Errorf("append record at %s: %w", rec.OpTime, err)
		}
		o2, err := encodePayload(rec.Object2)
		if err != nil {
			return fmt.Errorf("append record at %s: %w", rec.OpTime, err)
		}
		hash, err := recordHash(rec)
		if err != nil {
			return fmt.Errorf("append record at %s: %w", rec.OpTime, err)
		}

		result, err := tx.ExecContext(ctx, `
			INSERT INTO oplog
			(term, secs, inc, op, ns, ui, o, o2, pre_image_optime, post_image_optime, is_carrier, record_hash, format_version)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(term, secs, inc) DO NOTHING
		`,
			rec.OpTime.Term,
			rec.OpTime.TS.T,
			rec.OpTime.TS.I,
			string(rec.Op),
			rec.Namespace,
			encodeUUID(rec.UUID),
			o,
			o2,
			encodeOpTime(rec.PreImageOpTime),
			encodeOpTime(rec.PostImageOpTime),
			oplog.IsCarrier(rec),
			hash,
			ir.RecordFormatVersion,
		)
		if err != nil {
			return fmt.Errorf("append record at %s: %w", rec.OpTime, err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("append record at %s: rows affected: %w", rec.OpTime, err)
		}
		if rowsAffected > 0 {
			continue
		}

		// Conflict - the position is taken; only the same record is allowed
		var existing string
		err = tx.QueryRowContext(ctx, `
			SELECT record_hash FROM oplog WHERE term = ? AND secs = ? AND inc = ?
		`, rec.OpTime.Term, rec.OpTime.TS.T, rec.OpTime.TS.I).Scan(&existing)
		if err != nil {
			return fmt.Errorf("append record at %s: read existing: %w", rec.OpTime, err)
		}
		if existing != hash {
			return fmt.Errorf("append record at %s: %w", rec.OpTime, ErrPositionConflict)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("append: commit: %w", err)
	}
	return nil
}

// TruncateBefore removes every record strictly older than at and returns how
// many were removed. This is how a capped log loses old images.
func (s *Store) TruncateBefore(ctx context.Context, at oplog.OpTime) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM oplog WHERE (term, secs, inc) < (?, ?, ?)
	`, at.Term, at.TS.T, at.TS.I)
	if err != nil {
		return 0, fmt.Errorf("truncate before %s: %w", at, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("truncate before %s: rows affected: %w", at, err)
	}
	return n, nil
}
