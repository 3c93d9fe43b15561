package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sipico/archive-api/internal/auth"
	"github.com/sipico/archive-api/internal/credential"
	"github.com/sipico/archive-api/internal/models"
	"github.com/sipico/archive-api/internal/storage"
	_ "modernc.org/sqlite"
)

var fixedNow = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testEnv is an API router backed by in-memory storage with one user and
// one non-expiring token.
type testEnv struct {
	store   *storage.SQLiteStorage
	issuer  *credential.Issuer
	handler *Handler
	router  http.Handler
	user    *models.User
	token   *models.APIToken
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	store.SetClock(func() time.Time { return fixedNow })
	t.Cleanup(func() { _ = store.Close() })

	issuer := credential.NewIssuer(store, credential.Options{
		Logger: discardLogger(),
		Now:    func() time.Time { return fixedNow },
	})

	h, err := NewHandler(store, issuer, nil, new(slog.LevelVar), discardLogger())
	if err != nil {
		t.Fatalf("NewHandler failed: %v", err)
	}

	env := &testEnv{store: store, issuer: issuer, handler: h, router: h.NewRouter()}
	env.user, env.token = env.addUser(t, "alice")
	return env
}

// addUser creates a user holding one non-expiring token.
func (e *testEnv) addUser(t *testing.T, username string) (*models.User, *models.APIToken) {
	t.Helper()

	ctx := context.Background()
	user, err := e.store.CreateUser(ctx, username)
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	token, err := e.issuer.Issue(ctx, user.ID, nil)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	return user, token
}

// do sends an authenticated request as secret. A nil body sends none.
func (e *testEnv) do(t *testing.T, method, path, secret string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if secret != "" {
		req.Header.Set("Authorization", "Bearer "+secret)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// abidOf returns the record's ABID as a string.
func abidOf(t *testing.T, r models.Record) string {
	t.Helper()

	id, err := r.ABID()
	if err != nil {
		t.Fatalf("ABID failed: %v", err)
	}
	return id.String()
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

// withPrincipal returns a request carrying token as its authenticated identity.
func withPrincipal(req *http.Request, token *models.APIToken) *http.Request {
	return req.WithContext(auth.WithToken(req.Context(), token))
}

func TestNewHandler(t *testing.T) {
	t.Parallel()

	issuer := credential.NewIssuer(&storage.SQLiteStorage{}, credential.Options{})

	// nil logger, level and registry fall back to defaults
	h, err := NewHandler(nil, issuer, nil, nil, nil)
	if err != nil {
		t.Fatalf("NewHandler failed: %v", err)
	}
	if h.logger == nil || h.logLevel == nil || h.registry == nil || h.hooks == nil {
		t.Errorf("expected defaults to be set, got %+v", h)
	}

	logger := discardLogger()
	h, err = NewHandler(nil, issuer, nil, nil, logger)
	if err != nil {
		t.Fatalf("NewHandler failed: %v", err)
	}
	if h.logger != logger {
		t.Error("expected custom logger to be used")
	}
}
