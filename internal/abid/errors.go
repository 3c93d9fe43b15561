package abid

import (
	"errors"
	"fmt"
)

// ErrInvalidABID is returned by Parse for strings that are not well-formed ABIDs.
var ErrInvalidABID = errors.New("abid: invalid identifier")

// ResolutionError reports a source path that could not be resolved against a
// record. It is fatal for ID computation; no default is substituted.
type ResolutionError struct {
	Path   string
	Reason string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("abid: cannot resolve %q: %s", e.Path, e.Reason)
}

// EncodingError reports a resolved value that cannot be encoded into its
// segment.
type EncodingError struct {
	Source string // prefix, timestamp, content, subtype or random
	Value  any
	Reason string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("abid: cannot encode %s value %v (%T): %s", e.Source, e.Value, e.Value, e.Reason)
}
