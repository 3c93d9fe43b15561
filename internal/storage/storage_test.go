package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sipico/archive-api/internal/models"
	_ "modernc.org/sqlite"
)

// TestCreateUser verifies user creation and ABID binding.
func TestCreateUser(t *testing.T) {
	t.Parallel()

	s := newTestStorage(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "  alice ")
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if u.ID <= 0 {
		t.Errorf("expected positive ID, got %d", u.ID)
	}
	if u.Username != "alice" {
		t.Errorf("expected trimmed username, got %q", u.Username)
	}

	loaded, err := s.GetUserByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("GetUserByUsername failed: %v", err)
	}
	want, _ := u.ABID()
	got, err := loaded.ABID()
	if err != nil {
		t.Fatalf("ABID failed: %v", err)
	}
	if got != want || got.Prefix() != "usr_" {
		t.Errorf("loaded ABID %s, want %s", got, want)
	}

	if _, err := s.CreateUser(ctx, "alice"); !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
	if _, err := s.CreateUser(ctx, "   "); err == nil {
		t.Error("expected error for empty username")
	}
}

// TestGetUser verifies lookups by id and the not-found path.
func TestGetUser(t *testing.T) {
	t.Parallel()

	s := newTestStorage(t)
	ctx := context.Background()
	u := createTestUser(t, s, "alice")

	got, err := s.GetUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if got.Username != "alice" {
		t.Errorf("expected alice, got %q", got.Username)
	}
	if !got.Created.Equal(fixedNow) {
		t.Errorf("expected created %v, got %v", fixedNow, got.Created)
	}

	if _, err := s.GetUser(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.GetUserByUsername(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	users, err := s.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if len(users) != 1 {
		t.Errorf("expected 1 user, got %d", len(users))
	}
}

// TestDeleteUserCascades verifies that deleting a user removes its tokens and webhooks.
func TestDeleteUserCascades(t *testing.T) {
	t.Parallel()

	s := newTestStorage(t)
	ctx := context.Background()
	alice := createTestUser(t, s, "alice")
	bob := createTestUser(t, s, "bob")

	if err := s.CreateAPIToken(ctx, &models.APIToken{CreatedByID: alice.ID, Token: tokenValue(1)}); err != nil {
		t.Fatalf("CreateAPIToken failed: %v", err)
	}
	if err := s.CreateAPIToken(ctx, &models.APIToken{CreatedByID: bob.ID, Token: tokenValue(2)}); err != nil {
		t.Fatalf("CreateAPIToken failed: %v", err)
	}
	if err := s.CreateWebhook(ctx, testWebhook(alice.ID, models.SignalCreate, "core.models.Snapshot")); err != nil {
		t.Fatalf("CreateWebhook failed: %v", err)
	}

	if err := s.DeleteUser(ctx, alice.ID); err != nil {
		t.Fatalf("DeleteUser failed: %v", err)
	}

	tokens, err := s.ListAPITokens(ctx)
	if err != nil {
		t.Fatalf("ListAPITokens failed: %v", err)
	}
	if len(tokens) != 1 || tokens[0].CreatedByID != bob.ID {
		t.Errorf("expected only bob's token to remain, got %v", tokens)
	}

	hooks, err := s.ListWebhooks(ctx)
	if err != nil {
		t.Fatalf("ListWebhooks failed: %v", err)
	}
	if len(hooks) != 0 {
		t.Errorf("expected webhooks to cascade, got %d", len(hooks))
	}

	if err := s.DeleteUser(ctx, alice.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

// TestDataPersistence verifies that records survive closing and reopening a file database.
func TestDataPersistence(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "archive.db")
	ctx := context.Background()
	expires := fixedNow.Add(time.Hour)

	s1, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	u, err := s1.CreateUser(ctx, "alice")
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	token := &models.APIToken{CreatedByID: u.ID, Token: tokenValue(1), Created: fixedNow, Expires: &expires}
	if err := s1.CreateAPIToken(ctx, token); err != nil {
		t.Fatalf("CreateAPIToken failed: %v", err)
	}
	if err := s1.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	s2, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to reopen storage: %v", err)
	}
	defer func() { _ = s2.Close() }()

	got, err := s2.GetAPITokenByToken(ctx, token.Token)
	if err != nil {
		t.Fatalf("GetAPITokenByToken failed: %v", err)
	}
	want, _ := token.ABID()
	if id, _ := got.ABID(); id != want {
		t.Errorf("ABID after reopen %s, want %s", id, want)
	}
	if got.Expires == nil || !got.Expires.Equal(expires) {
		t.Errorf("expires after reopen %v, want %v", got.Expires, expires)
	}
}

// TestConcurrentTokenCreation verifies that concurrent inserts through the
// single connection all land.
func TestConcurrentTokenCreation(t *testing.T) {
	t.Parallel()

	s := newTestStorage(t)
	ctx := context.Background()
	u := createTestUser(t, s, "alice")

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- s.CreateAPIToken(ctx, &models.APIToken{CreatedByID: u.ID, Token: tokenValue(100 + i)})
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("concurrent CreateAPIToken failed: %v", err)
		}
	}

	tokens, err := s.ListAPITokensByUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("ListAPITokensByUser failed: %v", err)
	}
	if len(tokens) != workers {
		t.Errorf("expected %d tokens, got %d", workers, len(tokens))
	}
}

// TestPing verifies the readiness probe against a live database.
func TestPing(t *testing.T) {
	t.Parallel()

	s := newTestStorage(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func BenchmarkGetAPITokenByToken(b *testing.B) {
	s, err := New(":memory:")
	if err != nil {
		b.Fatalf("failed to create storage: %v", err)
	}
	defer func() { _ = s.Close() }()
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "bench")
	if err != nil {
		b.Fatalf("CreateUser failed: %v", err)
	}
	for i := 0; i < 1000; i++ {
		tok := &models.APIToken{CreatedByID: u.ID, Token: fmt.Sprintf("%032x", i)}
		if err := s.CreateAPIToken(ctx, tok); err != nil {
			b.Fatalf("CreateAPIToken failed: %v", err)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := s.GetAPITokenByToken(ctx, fmt.Sprintf("%032x", i%1000)); err != nil {
			b.Fatal(err)
		}
	}
}
