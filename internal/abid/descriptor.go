package abid

import (
	"fmt"
	"sync"
)

// Descriptor is the declaration a record type makes to opt into ABIDs: its
// prefix and the four sources the identifier is derived from.
type Descriptor[R any] struct {
	Prefix    string
	Timestamp Source[R]
	Content   Source[R]
	Subtype   Source[R]
	Random    Source[R]
}

// Validate checks the prefix and every source path.
func (d Descriptor[R]) Validate() error {
	if err := validatePrefix(d.Prefix); err != nil {
		return &EncodingError{Source: "prefix", Value: d.Prefix, Reason: err.Error()}
	}
	for _, src := range []Source[R]{d.Timestamp, d.Content, d.Subtype, d.Random} {
		if err := src.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Compute resolves the four sources against rec and encodes them.
func (d Descriptor[R]) Compute(rec R) (ABID, error) {
	if err := d.Validate(); err != nil {
		return "", err
	}

	var values [4]any
	for i, src := range []Source[R]{d.Timestamp, d.Content, d.Subtype, d.Random} {
		v, err := Resolve(rec, src)
		if err != nil {
			return "", err
		}
		values[i] = v
	}

	id, err := Encode(d.Prefix, values[0], values[1], values[2], values[3])
	if err != nil {
		return "", fmt.Errorf("%s: %w", d.Prefix, err)
	}
	return id, nil
}

// Lazy holds a record's ABID. The first successful computation is kept for
// the lifetime of the record, so later changes to source attributes do not
// change the identifier. It is safe for concurrent use and must not be copied
// after first use.
type Lazy struct {
	mu sync.Mutex
	id ABID
}

// Get returns the bound ABID, calling compute on first use.
func (l *Lazy) Get(compute func() (ABID, error)) (ABID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.id.IsZero() {
		return l.id, nil
	}
	id, err := compute()
	if err != nil {
		return "", err
	}
	l.id = id
	return id, nil
}

// Restore binds an ABID loaded from storage. It is a no-op once a value is bound.
func (l *Lazy) Restore(id ABID) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.id.IsZero() {
		l.id = id
	}
}

// Peek returns the bound ABID without computing it.
func (l *Lazy) Peek() ABID {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.id
}
