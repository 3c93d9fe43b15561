// Package schema is the record-type registry that reference strings such as
// "core.models.Snapshot" are resolved against.
package schema

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrEmptyRef is returned when registering an empty reference.
	ErrEmptyRef = errors.New("schema: empty reference")
	// ErrUnknownRef is returned when a reference does not name a registered record type.
	ErrUnknownRef = errors.New("schema: unknown reference")
	// ErrConflictingRegistration indicates an attempt to re-register a
	// reference with a different kind.
	ErrConflictingRegistration = errors.New("schema: conflicting registration")
)

// Kind describes a registered record type.
type Kind struct {
	// Ref is the dotted reference, e.g. "api.models.APIToken".
	Ref string `json:"ref"`
	// Prefix is the ABID prefix of the type, empty for types without ABIDs.
	Prefix string `json:"prefix,omitempty"`
	// VerboseName is the human-readable name shown to operators.
	VerboseName string `json:"verbose_name"`
}

// Registry maps references to record kinds. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	kinds map[string]Kind
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{kinds: make(map[string]Kind)}
}

// Default returns a registry holding the record types known to the application.
func Default() *Registry {
	r := NewRegistry()
	for _, k := range []Kind{
		{Ref: "api.models.APIToken", Prefix: "apt_", VerboseName: "API Key"},
		{Ref: "api.models.OutboundWebhook", Prefix: "whk_", VerboseName: "API Outbound Webhook"},
		{Ref: "auth.models.User", Prefix: "usr_", VerboseName: "User"},
		{Ref: "core.models.Snapshot", Prefix: "snp_", VerboseName: "Snapshot"},
		{Ref: "core.models.ArchiveResult", Prefix: "res_", VerboseName: "Archive Result"},
		{Ref: "core.models.Tag", Prefix: "tag_", VerboseName: "Tag"},
	} {
		// Built-in kinds are distinct, registration cannot fail.
		_ = r.Register(k) //nolint:errcheck
	}
	return r
}

// Register adds k. It is idempotent for an identical kind and fails with
// ErrConflictingRegistration when the reference is already bound to a
// different kind.
func (r *Registry) Register(k Kind) error {
	k.Ref = strings.TrimSpace(k.Ref)
	if k.Ref == "" {
		return ErrEmptyRef
	}
	if k.VerboseName == "" {
		k.VerboseName = k.Ref[strings.LastIndexByte(k.Ref, '.')+1:]
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.kinds[k.Ref]; ok {
		if old == k {
			return nil
		}
		return fmt.Errorf("%w: %q already registered as %+v", ErrConflictingRegistration, k.Ref, old)
	}
	r.kinds[k.Ref] = k
	return nil
}

// Lookup returns the kind registered for ref.
func (r *Registry) Lookup(ref string) (Kind, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	k, ok := r.kinds[ref]
	if !ok {
		return Kind{}, fmt.Errorf("%w: %q", ErrUnknownRef, ref)
	}
	return k, nil
}

// Has reports whether ref is registered.
func (r *Registry) Has(ref string) bool {
	_, err := r.Lookup(ref)
	return err == nil
}

// Kinds returns all registered kinds sorted by reference.
func (r *Registry) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Kind, 0, len(r.kinds))
	for _, k := range r.kinds {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ref < out[j].Ref })
	return out
}

// Len returns the number of registered kinds.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.kinds)
}
