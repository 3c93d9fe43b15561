package abid

import (
	"reflect"
	"strings"
)

// Source names the attribute of a record of type R that supplies one ABID
// input. Path is the declarative, dotted form rooted at the record
// ("self.created", "self.created_by_id"); Get is the accessor that reads it.
type Source[R any] struct {
	Path string
	Get  func(R) any
}

// Field declares a source. The accessor may read a direct field, project a
// foreign key id, or compute a derived value; it returns nil when any step
// along the path is absent.
func Field[R any](path string, get func(R) any) Source[R] {
	return Source[R]{Path: path, Get: get}
}

// Validate checks that the path is a well-formed "self." path with an accessor.
func (s Source[R]) Validate() error {
	segments := strings.Split(s.Path, ".")
	if len(segments) < 2 || segments[0] != "self" {
		return &ResolutionError{Path: s.Path, Reason: `path must start with "self."`}
	}
	for _, seg := range segments[1:] {
		if seg == "" {
			return &ResolutionError{Path: s.Path, Reason: "empty path segment"}
		}
	}
	if s.Get == nil {
		return &ResolutionError{Path: s.Path, Reason: "no accessor declared"}
	}
	return nil
}

// Resolve reads the value named by src from rec. Absent or nil values produce
// a *ResolutionError.
func Resolve[R any](rec R, src Source[R]) (any, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}

	v := src.Get(rec)
	if isNil(v) {
		return nil, &ResolutionError{Path: src.Path, Reason: "value is absent or null"}
	}
	return v, nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
