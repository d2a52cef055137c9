// Package snowflake provides ordering and time mapping for platform
// message identifiers. IDs encode their creation timestamp in the high
// 42 bits, which makes them numerically comparable in creation order
// and lets a wall-clock cutoff be turned into a synthetic lower bound.
package snowflake

import (
	"strconv"
	"time"
)

// Epoch is the platform ID epoch in milliseconds since the Unix epoch
// (2015-01-01T00:00:00Z).
const Epoch int64 = 1420070400000

// timestampShift is the number of non-time bits in an ID (worker,
// process, and sequence fields).
const timestampShift = 22

// ID is a numeric message identifier. The zero ID orders before every
// real ID. IDs must be compared numerically: the string forms vary in
// length, so lexical comparison corrupts ordering, and values exceed
// the float64 integer range.
type ID uint64

// Parse converts the decimal wire form into an ID. Empty or malformed
// input yields the zero ID, which callers treat as "no checkpoint".
func Parse(s string) ID {
	if s == "" {
		return 0
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0
	}
	return ID(n)
}

// FromTime builds a synthetic ID whose time bits encode t and whose
// remaining bits are zero. The result is a strict lower bound for every
// real ID created at or after t.
func FromTime(t time.Time) ID {
	ms := t.UnixMilli() - Epoch
	if ms < 0 {
		ms = 0
	}
	return ID(uint64(ms) << timestampShift)
}

// Time recovers the creation timestamp encoded in the ID.
func (id ID) Time() time.Time {
	ms := int64(uint64(id)>>timestampShift) + Epoch
	return time.UnixMilli(ms).UTC()
}

// String returns the decimal wire form. The zero ID renders as "".
func (id ID) String() string {
	if id == 0 {
		return ""
	}
	return strconv.FormatUint(uint64(id), 10)
}

// IsZero reports whether the ID is the zero value.
func (id ID) IsZero() bool {
	return id == 0
}

// Less reports whether id was created strictly before other.
func (id ID) Less(other ID) bool {
	return id < other
}
