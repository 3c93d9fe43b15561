package abid

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// crockford is the Crockford base32 alphabet. It is ordered by ASCII value,
// which keeps encoded numbers sortable as strings.
const crockford = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// maxMicros is the first instant that no longer fits in the timestamp segment.
const maxMicros = uint64(1) << (TimestampLen * 5)

var crockfordIndex = func() [256]int8 {
	var idx [256]int8
	for i := range idx {
		idx[i] = -1
	}
	for i := 0; i < len(crockford); i++ {
		idx[crockford[i]] = int8(i)
	}
	return idx
}()

// Encode assembles an ABID from already-resolved source values.
//
// ts must be a time.Time (or non-nil *time.Time) at or after the Unix epoch.
// content and subtype are hashed from their canonical string form. random is
// normally the record's UUID storage key; other values are hashed.
func Encode(prefix string, ts, content, subtype, random any) (ABID, error) {
	if err := validatePrefix(prefix); err != nil {
		return "", &EncodingError{Source: "prefix", Value: prefix, Reason: err.Error()}
	}

	tsSeg, err := encodeTimestamp(ts)
	if err != nil {
		return "", err
	}

	contentStr, err := canonical(content)
	if err != nil {
		return "", &EncodingError{Source: "content", Value: content, Reason: err.Error()}
	}

	subtypeStr, err := canonical(subtype)
	if err != nil {
		return "", &EncodingError{Source: "subtype", Value: subtype, Reason: err.Error()}
	}

	randBytes, err := randomBytes(random)
	if err != nil {
		return "", &EncodingError{Source: "random", Value: random, Reason: err.Error()}
	}

	return ABID(prefix + tsSeg +
		"_" + hashSegment(contentStr, ContentLen) +
		"_" + hashSegment(subtypeStr, SubtypeLen) +
		"_" + encodeUint(uint40(randBytes), RandomLen)), nil
}

// TimestampSegment returns the sortable encoding of t used inside ABIDs.
func TimestampSegment(t time.Time) (string, error) {
	return encodeTimestamp(t)
}

func encodeTimestamp(v any) (string, error) {
	var t time.Time
	switch x := v.(type) {
	case time.Time:
		t = x
	case *time.Time:
		if x == nil {
			return "", &EncodingError{Source: "timestamp", Value: v, Reason: "nil time"}
		}
		t = *x
	default:
		return "", &EncodingError{Source: "timestamp", Value: v, Reason: fmt.Sprintf("unsupported type %T", v)}
	}

	us := t.UnixMicro()
	if us < 0 || uint64(us) >= maxMicros {
		return "", &EncodingError{Source: "timestamp", Value: v, Reason: "instant out of encodable range"}
	}
	return encodeUint(uint64(us), TimestampLen), nil
}

// canonical returns the string form a source value is hashed from.
func canonical(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", fmt.Errorf("nil value")
	case string:
		return x, nil
	case *string:
		if x == nil {
			return "", fmt.Errorf("nil value")
		}
		return *x, nil
	case []byte:
		if x == nil {
			return "", fmt.Errorf("nil value")
		}
		return hex.EncodeToString(x), nil
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano), nil
	case *time.Time:
		if x == nil {
			return "", fmt.Errorf("nil value")
		}
		return x.UTC().Format(time.RFC3339Nano), nil
	case int:
		return strconv.Itoa(x), nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case *int64:
		if x == nil {
			return "", fmt.Errorf("nil value")
		}
		return strconv.FormatInt(*x, 10), nil
	case uint:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case *uuid.UUID:
		if x == nil {
			return "", fmt.Errorf("nil value")
		}
		return x.String(), nil
	case fmt.Stringer:
		return x.String(), nil
	default:
		return "", fmt.Errorf("unsupported type %T", v)
	}
}

// randomBytes returns the 5 bytes the random segment is built from. For UUID
// keys those are the trailing bytes, which are random in a v4 UUID.
func randomBytes(v any) ([]byte, error) {
	var id uuid.UUID
	switch x := v.(type) {
	case uuid.UUID:
		id = x
	case *uuid.UUID:
		if x == nil {
			return nil, fmt.Errorf("nil value")
		}
		id = *x
	case string:
		parsed, err := uuid.Parse(x)
		if err != nil {
			h := sha256.Sum256([]byte(x))
			return h[:5], nil
		}
		id = parsed
	default:
		s, err := canonical(v)
		if err != nil {
			return nil, err
		}
		h := sha256.Sum256([]byte(s))
		return h[:5], nil
	}
	if id == uuid.Nil {
		return nil, fmt.Errorf("nil uuid")
	}
	return id[11:16], nil
}

// hashSegment returns the leading n base32 characters of SHA-256(s).
func hashSegment(s string, n int) string {
	h := sha256.Sum256([]byte(s))
	bits := n * 5
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(h[i])
	}
	return encodeUint(v>>(64-bits), n)
}

func uint40(b []byte) uint64 {
	var v uint64
	for _, c := range b[:5] {
		v = v<<8 | uint64(c)
	}
	return v
}

// encodeUint renders the low width*5 bits of v as width base32 characters.
func encodeUint(v uint64, width int) string {
	buf := make([]byte, width)
	for i := width - 1; i >= 0; i-- {
		buf[i] = crockford[v&31]
		v >>= 5
	}
	return string(buf)
}

func decodeUint(s string) (uint64, error) {
	if len(s) > 12 {
		return 0, fmt.Errorf("segment %q too long", s)
	}
	var v uint64
	for i := 0; i < len(s); i++ {
		d := crockfordIndex[s[i]]
		if d < 0 {
			return 0, fmt.Errorf("invalid character %q", s[i])
		}
		v = v<<5 | uint64(d)
	}
	return v, nil
}

func validatePrefix(prefix string) error {
	n := len(prefix)
	if n < 3 || n > 4 || prefix[n-1] != '_' {
		return fmt.Errorf("prefix %q must be 2-3 lowercase characters followed by '_'", prefix)
	}
	for i := 0; i < n-1; i++ {
		c := prefix[i]
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return fmt.Errorf("prefix %q must be 2-3 lowercase characters followed by '_'", prefix)
		}
	}
	return nil
}
