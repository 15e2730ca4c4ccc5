package oplog

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"
)

// Timestamp is a (seconds, increment) pair. Increments order records
// written within the same second.
type Timestamp struct {
	T uint32
	I uint32
}

// Compare orders timestamps by seconds, then increment.
func (ts Timestamp) Compare(other Timestamp) int {
	if c := cmp.Compare(ts.T, other.T); c != 0 {
		return c
	}
	return cmp.Compare(ts.I, other.I)
}

// IsZero reports whether ts is Timestamp(0, 0).
func (ts Timestamp) IsZero() bool {
	return ts.T == 0 && ts.I == 0
}

func (ts Timestamp) String() string {
	return fmt.Sprintf("Timestamp(%d, %d)", ts.T, ts.I)
}

// OpTime is a record's position in the log. Positions are totally ordered
// by term, then timestamp, and unique per record.
// The zero value is the null optime, used for records that were never
// written to a log.
type OpTime struct {
	TS   Timestamp
	Term int64
}

// NewOpTime builds an OpTime from its parts.
func NewOpTime(term int64, secs, inc uint32) OpTime {
	return OpTime{TS: Timestamp{T: secs, I: inc}, Term: term}
}

// IsNull reports whether ot is the null optime.
func (ot OpTime) IsNull() bool {
	return ot.Term == 0 && ot.TS.IsZero()
}

// Compare orders optimes by term, then timestamp.
func (ot OpTime) Compare(other OpTime) int {
	if c := cmp.Compare(ot.Term, other.Term); c != 0 {
		return c
	}
	return ot.TS.Compare(other.TS)
}

// Before reports whether ot sorts strictly before other.
func (ot OpTime) Before(other OpTime) bool {
	return ot.Compare(other) < 0
}

func (ot OpTime) String() string {
	return fmt.Sprintf("{ts: %s, t: %d}", ot.TS, ot.Term)
}

// Spec returns the compact "term:secs:inc" form accepted by ParseOpTime.
func (ot OpTime) Spec() string {
	return fmt.Sprintf("%d:%d:%d", ot.Term, ot.TS.T, ot.TS.I)
}

// ParseOpTime parses the compact "term:secs:inc" form.
func ParseOpTime(s string) (OpTime, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return OpTime{}, fmt.Errorf("invalid optime %q: want term:secs:inc", s)
	}
	term, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return OpTime{}, fmt.Errorf("invalid optime %q: term: %w", s, err)
	}
	secs, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return OpTime{}, fmt.Errorf("invalid optime %q: secs: %w", s, err)
	}
	inc, err := strconv.ParseUint(parts[2], 10, 32)
	if err != nil {
		return OpTime{}, fmt.Errorf("invalid optime %q: inc: %w", s, err)
	}
	return NewOpTime(term, uint32(secs), uint32(inc)), nil
}

// Ptr returns a pointer to a copy of ot, for optional image links.
func (ot OpTime) Ptr() *OpTime {
	return &ot
}
