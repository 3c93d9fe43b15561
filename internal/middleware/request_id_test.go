package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
)

// serveRequestID runs RequestID with the given incoming header and returns the
// id seen by the handler and the one echoed in the response.
func serveRequestID(t *testing.T, incoming string) (seen, echoed string) {
	t.Helper()

	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest("GET", "/api/whoami", nil)
	if incoming != "" {
		req.Header.Set(RequestIDHeader, incoming)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return seen, rec.Header().Get(RequestIDHeader)
}

func TestRequestID_GeneratesUUID(t *testing.T) {
	t.Parallel()

	seen, echoed := serveRequestID(t, "")
	if _, err := uuid.Parse(seen); err != nil {
		t.Errorf("generated id %q is not a UUID: %v", seen, err)
	}
	if echoed != seen {
		t.Errorf("response header = %q, want %q", echoed, seen)
	}
}

func TestRequestID_UniquePerRequest(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id, _ := serveRequestID(t, "")
		if seen[id] {
			t.Fatalf("duplicate request id %q", id)
		}
		seen[id] = true
	}
}

func TestRequestID_ClientSupplied(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		incoming string
		kept     bool
	}{
		{"uuid", "550e8400-e29b-41d4-a716-446655440000", true},
		{"custom format", "trace.abc_123-x", true},
		{"abid", "apt_01HN0V7Q3G9ZQ_4X2T1C9D_0AB1_7K3M9P2Q", true},
		{"max length", strings.Repeat("a", 128), true},
		{"oversized", strings.Repeat("a", 129), false},
		{"newline", "abc\nInjected: header", false},
		{"space", "abc def", false},
		{"control character", "abc\x00def", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			seen, _ := serveRequestID(t, tt.incoming)
			if got := seen == tt.incoming; got != tt.kept {
				t.Errorf("kept = %v, want %v (seen %q)", got, tt.kept, seen)
			}
		})
	}
}

func TestRequestIDFromContext(t *testing.T) {
	t.Parallel()

	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Errorf("empty context = %q, want empty", got)
	}
	ctx := WithRequestID(context.Background(), "req-1")
	if got := RequestIDFromContext(ctx); got != "req-1" {
		t.Errorf("RequestIDFromContext() = %q, want req-1", got)
	}
}
