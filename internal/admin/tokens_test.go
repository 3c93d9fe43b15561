package admin

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sipico/archive-api/internal/credential"
	"github.com/sipico/archive-api/internal/models"
	"github.com/sipico/archive-api/internal/storage"
	"github.com/sipico/archive-api/internal/testutil/mockstore"
)

func TestHandleCreateToken(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	expires := fixedNow.Add(24 * time.Hour)

	rec := env.do(t, "POST", "/api/tokens", env.token.Token, CreateTokenRequest{Expires: &expires})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	resp := decodeJSON[map[string]any](t, rec)
	secret, _ := resp["token"].(string)
	if len(secret) != models.TokenLength {
		t.Errorf("token = %q, want %d plaintext characters", secret, models.TokenLength)
	}
	if resp["TYPE"] != "APIToken" {
		t.Errorf("TYPE = %v, want APIToken", resp["TYPE"])
	}
	if got, _ := resp["abid"].(string); !strings.HasPrefix(got, "apt_") {
		t.Errorf("abid = %q, want apt_ prefix", got)
	}
	if resp["expires"] != expires.Format(time.RFC3339Nano) {
		t.Errorf("expires = %v, want %s", resp["expires"], expires.Format(time.RFC3339Nano))
	}

	// the new secret authenticates
	rec = env.do(t, "GET", "/api/whoami", secret, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("new token should authenticate, got %d", rec.Code)
	}
}

func TestHandleCreateTokenNoBody(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	rec := env.do(t, "POST", "/api/tokens", env.token.Token, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	resp := decodeJSON[map[string]any](t, rec)
	want := fixedNow.AddDate(100, 0, 0).Format(time.RFC3339Nano)
	if resp["expires"] != want {
		t.Errorf("expires = %v, want display horizon %s", resp["expires"], want)
	}
}

func TestHandleCreateTokenRejects(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	past := fixedNow.Add(-time.Second)

	tests := []struct {
		name     string
		body     any
		wantCode string
	}{
		{"past expiry", CreateTokenRequest{Expires: &past}, ErrCodeValidationFailed},
		{"malformed", "not an object", ErrCodeInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, "POST", "/api/tokens", env.token.Token, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if got := decodeJSON[APIError](t, rec).Error; got != tt.wantCode {
				t.Errorf("error = %q, want %q", got, tt.wantCode)
			}
		})
	}
}

func TestHandleCreateTokenExhausted(t *testing.T) {
	t.Parallel()

	store := &mockstore.MockStorage{
		CreateAPITokenFunc: func(context.Context, *models.APIToken) error { return storage.ErrDuplicate },
	}
	issuer := credential.NewIssuer(store, credential.Options{MaxAttempts: 2, Backoff: time.Millisecond, Logger: discardLogger()})
	h, err := NewHandler(store, issuer, nil, nil, discardLogger())
	if err != nil {
		t.Fatalf("NewHandler failed: %v", err)
	}

	req := withPrincipal(httptest.NewRequest("POST", "/api/tokens", nil), &models.APIToken{CreatedByID: 1})
	rec := httptest.NewRecorder()
	h.HandleCreateToken(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if got := decodeJSON[APIError](t, rec).Error; got != ErrCodeIssuanceFailed {
		t.Errorf("error = %q, want %q", got, ErrCodeIssuanceFailed)
	}
}

func TestHandleListTokensMasksSecrets(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.addUser(t, "bob")

	rec := env.do(t, "GET", "/api/tokens", env.token.Token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	tokens := decodeJSON[[]map[string]any](t, rec)
	if len(tokens) != 1 {
		t.Fatalf("expected only the caller's token, got %d", len(tokens))
	}
	if tokens[0]["abid"] != abidOf(t, env.token) {
		t.Errorf("abid = %v, want %s", tokens[0]["abid"], abidOf(t, env.token))
	}
	if tokens[0]["token"] == env.token.Token {
		t.Error("list must not expose the plaintext secret")
	}
	if tokens[0]["is_valid"] != true {
		t.Errorf("is_valid = %v, want true", tokens[0]["is_valid"])
	}
}

func TestHandleGetToken(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	_, other := env.addUser(t, "bob")

	tests := []struct {
		name       string
		abid       string
		wantStatus int
	}{
		{"own token", abidOf(t, env.token), http.StatusOK},
		{"other user's token", abidOf(t, other), http.StatusNotFound},
		{"unknown", "apt_01HN0000000000_00000000_0000_00000000", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, "GET", "/api/tokens/"+tt.abid, env.token.Token, nil)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestHandleDeleteToken(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	extra, err := env.issuer.Issue(ctx, env.user.ID, nil)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	rec := env.do(t, "DELETE", "/api/tokens/"+abidOf(t, extra), env.token.Token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}

	if _, err := env.store.GetAPITokenByToken(ctx, extra.Token); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected token to be deleted, got %v", err)
	}

	// revoked secrets no longer authenticate
	rec = env.do(t, "GET", "/api/whoami", extra.Token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("revoked token status = %d, want 401", rec.Code)
	}
}

func TestHandleDeleteTokenOtherUser(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	_, other := env.addUser(t, "bob")

	rec := env.do(t, "DELETE", "/api/tokens/"+abidOf(t, other), env.token.Token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if _, err := env.store.GetAPITokenByToken(context.Background(), other.Token); err != nil {
		t.Errorf("other user's token should survive, got %v", err)
	}
}

func TestHandleSetTokenExpiry(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	extra, err := env.issuer.Issue(ctx, env.user.ID, nil)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	path := "/api/tokens/" + abidOf(t, extra) + "/expiry"

	// expire it a second ago
	past := fixedNow.Add(-time.Second)
	rec := env.do(t, "PUT", path, env.token.Token, SetExpiryRequest{Expires: &past})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if got := decodeJSON[map[string]any](t, rec)["is_valid"]; got != false {
		t.Errorf("is_valid = %v, want false", got)
	}

	rec = env.do(t, "GET", "/api/whoami", extra.Token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expired token status = %d, want 401", rec.Code)
	}
	if got := decodeJSON[APIError](t, rec).Error; got != ErrCodeCredentialExpired {
		t.Errorf("error = %q, want %q", got, ErrCodeCredentialExpired)
	}

	// clearing the expiry revalidates it
	rec = env.do(t, "PUT", path, env.token.Token, map[string]any{"expires": nil})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := decodeJSON[map[string]any](t, rec)["is_valid"]; got != true {
		t.Errorf("is_valid = %v, want true", got)
	}
}

func TestHandleSetTokenExpiryInvalidJSON(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	req := httptest.NewRequest("PUT", "/api/tokens/"+abidOf(t, env.token)+"/expiry", strings.NewReader("{"))
	req.Header.Set("Authorization", "Bearer "+env.token.Token)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleListTokensStorageError(t *testing.T) {
	t.Parallel()

	store := &mockstore.MockStorage{
		ListAPITokensByUserFunc: func(context.Context, int64) ([]*models.APIToken, error) {
			return nil, errors.New("disk I/O error")
		},
	}
	h := newMockHandler(t, store)

	req := withPrincipal(httptest.NewRequest("GET", "/api/tokens", nil), &models.APIToken{CreatedByID: 1})
	rec := httptest.NewRecorder()
	h.HandleListTokens(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestTokenHandlersRequirePrincipal(t *testing.T) {
	t.Parallel()

	h := newMockHandler(t, &mockstore.MockStorage{})
	handlers := map[string]http.HandlerFunc{
		"list":   h.HandleListTokens,
		"create": h.HandleCreateToken,
		"get":    h.HandleGetToken,
		"whoami": h.HandleWhoami,
	}

	for name, handler := range handlers {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler(rec, httptest.NewRequest("GET", "/", nil))
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
		})
	}
}

func TestTokenRoutesPassABIDToIssuer(t *testing.T) {
	t.Parallel()

	const secret = "0123456789abcdef0123456789abcdef"
	caller := &models.APIToken{ID: uuid.New(), CreatedByID: 7, Token: secret, Created: fixedNow}
	id := abidOf(t, caller)

	var revoked, updated string
	store := &mockstore.MockStorage{
		GetAPITokenByTokenFunc: func(_ context.Context, token string) (*models.APIToken, error) {
			if token != secret {
				return nil, storage.ErrNotFound
			}
			return caller, nil
		},
		GetAPITokenByABIDFunc: func(_ context.Context, got string) (*models.APIToken, error) {
			if got != id {
				return nil, storage.ErrNotFound
			}
			return caller, nil
		},
		UpdateAPITokenExpiryFunc: func(_ context.Context, got string, expires *time.Time) (*models.APIToken, error) {
			updated = got
			return &models.APIToken{ID: caller.ID, CreatedByID: 7, Token: secret, Created: fixedNow, Expires: expires}, nil
		},
		DeleteAPITokenFunc: func(_ context.Context, got string) error {
			revoked = got
			return nil
		},
	}

	issuer := credential.NewIssuer(store, credential.Options{
		Logger: discardLogger(),
		Now:    func() time.Time { return fixedNow },
	})
	h, err := NewHandler(store, issuer, nil, nil, discardLogger())
	if err != nil {
		t.Fatalf("NewHandler failed: %v", err)
	}
	router := h.NewRouter()

	expires := fixedNow.Add(time.Hour)
	req := httptest.NewRequest("PUT", "/api/tokens/"+id+"/expiry", strings.NewReader(`{"expires":"`+expires.Format(time.RFC3339)+`"}`))
	req.Header.Set("Authorization", "Bearer "+secret)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT expiry status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if updated != id {
		t.Errorf("SetExpiry received %q, want %q", updated, id)
	}

	req = httptest.NewRequest("DELETE", "/api/tokens/"+id, nil)
	req.Header.Set("Authorization", "Bearer "+secret)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("DELETE status = %d, want 204: %s", rec.Code, rec.Body.String())
	}
	if revoked != id {
		t.Errorf("Revoke received %q, want %q", revoked, id)
	}
}
