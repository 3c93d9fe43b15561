// Package abid computes and parses ABIDs: prefixed, time-sortable identifiers
// derived from a record's own fields.
//
// An ABID has the layout
//
//	<prefix><ts>_<content>_<subtype>_<rand>
//	apt_01HKQ2N3P4R_7X3M9Q2A_K9T0_4RZ8P1WD
//
// where ts is the creation instant in microseconds, content and subtype are
// truncated SHA-256 hashes of two designated attributes and rand is taken from
// the record's random storage key. All segments use the Crockford base32
// alphabet so that byte-wise comparison of two ABIDs of the same type orders
// them by creation time.
package abid

import (
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Segment widths in characters.
const (
	TimestampLen = 11
	ContentLen   = 8
	SubtypeLen   = 4
	RandomLen    = 8
)

// ABID is an encoded identifier. The zero value means "not yet computed".
type ABID string

// Parts holds the individual segments of an ABID.
type Parts struct {
	Prefix    string
	Timestamp string
	Content   string
	Subtype   string
	Random    string
}

// String implements fmt.Stringer.
func (a ABID) String() string {
	return string(a)
}

// IsZero reports whether the ABID has not been computed.
func (a ABID) IsZero() bool {
	return a == ""
}

// Parse splits an ABID into its segments and validates each of them.
func Parse(s string) (Parts, error) {
	sep := strings.IndexByte(s, '_')
	if sep < 0 {
		return Parts{}, fmt.Errorf("%w: missing prefix in %q", ErrInvalidABID, s)
	}

	prefix := s[:sep+1]
	if err := validatePrefix(prefix); err != nil {
		return Parts{}, fmt.Errorf("%w: %v", ErrInvalidABID, err)
	}

	fields := strings.Split(s[sep+1:], "_")
	if len(fields) != 4 {
		return Parts{}, fmt.Errorf("%w: expected 4 segments after prefix, got %d", ErrInvalidABID, len(fields))
	}

	widths := [4]int{TimestampLen, ContentLen, SubtypeLen, RandomLen}
	for i, f := range fields {
		if len(f) != widths[i] {
			return Parts{}, fmt.Errorf("%w: segment %d has length %d, want %d", ErrInvalidABID, i+1, len(f), widths[i])
		}
		if _, err := decodeUint(f); err != nil {
			return Parts{}, fmt.Errorf("%w: segment %d: %v", ErrInvalidABID, i+1, err)
		}
	}

	return Parts{
		Prefix:    prefix,
		Timestamp: fields[0],
		Content:   fields[1],
		Subtype:   fields[2],
		Random:    fields[3],
	}, nil
}

// Parts returns the segments of a.
func (a ABID) Parts() (Parts, error) {
	return Parse(string(a))
}

// Prefix returns the type tag of a, or "" when a is malformed.
func (a ABID) Prefix() string {
	p, err := Parse(string(a))
	if err != nil {
		return ""
	}
	return p.Prefix
}

// Time decodes the creation instant carried in the timestamp segment.
func (a ABID) Time() (time.Time, error) {
	p, err := Parse(string(a))
	if err != nil {
		return time.Time{}, err
	}
	us, _ := decodeUint(p.Timestamp) //nolint:errcheck // validated by Parse
	return time.UnixMicro(int64(us)).UTC(), nil
}

// ULID renders the same time and entropy as a ULID: the millisecond
// timestamp, 5 bytes of the content hash, the leading byte of the subtype
// hash and the trailing 4 bytes of the random segment.
func (a ABID) ULID() (ulid.ULID, error) {
	p, err := Parse(string(a))
	if err != nil {
		return ulid.ULID{}, err
	}

	ts, _ := decodeUint(p.Timestamp)    //nolint:errcheck // validated by Parse
	content, _ := decodeUint(p.Content) //nolint:errcheck
	subtype, _ := decodeUint(p.Subtype) //nolint:errcheck
	random, _ := decodeUint(p.Random)   //nolint:errcheck

	var entropy [10]byte
	putUint40(entropy[0:5], content)
	entropy[5] = byte(subtype >> (SubtypeLen*5 - 8))
	var rb [5]byte
	putUint40(rb[:], random)
	copy(entropy[6:], rb[1:])

	var u ulid.ULID
	if err := u.SetTime(ts / 1000); err != nil {
		return ulid.ULID{}, fmt.Errorf("abid: ulid time: %w", err)
	}
	if err := u.SetEntropy(entropy[:]); err != nil {
		return ulid.ULID{}, fmt.Errorf("abid: ulid entropy: %w", err)
	}
	return u, nil
}

// putUint40 writes the low 40 bits of v big-endian into b[0:5].
func putUint40(b []byte, v uint64) {
	for i := 4; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
}
