package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"TruthMeterService/config"
	"TruthMeterService/internal/models"
	"TruthMeterService/internal/ratelimit"
	"TruthMeterService/pkg/apperrors"

	"go.uber.org/zap"
)

var testFeedConfig = config.FeedConfig{PublicLimit: 100, AdminLimit: 200, AdminMaxLimit: 1000}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestSecretService() (*SecretService, *MockSecretStore, *testClock) {
	store := NewMockSecretStore()
	clock := &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	limiter := ratelimit.New(ratelimit.DefaultWindow, clock.Now, zap.NewNop())
	feed := NewFeedQuery(store, testFeedConfig)

	svc := NewSecretService(store, store, limiter, feed, zap.NewNop())
	svc.clock = clock.Now
	return svc, store, clock
}

func TestCreateSecret(t *testing.T) {
	ctx := context.Background()

	t.Run("StoresAndListsWithZeroTallies", func(t *testing.T) {
		svc, _, _ := newTestSecretService()

		id, err := svc.CreateSecret(ctx, "author-a", "work", "X marks the spot")
		if err != nil {
			t.Fatalf("CreateSecret failed: %v", err)
		}

		views, err := svc.ListSecrets(ctx, "")
		if err != nil {
			t.Fatalf("ListSecrets failed: %v", err)
		}
		if len(views) != 1 || views[0].ID != id {
			t.Fatalf("Expected the new secret in the feed, got %+v", views)
		}
		if views[0].TruthVotes != 0 || views[0].LieVotes != 0 {
			t.Errorf("Expected zero tallies, got %+v", views[0])
		}
	})

	t.Run("RateLimitWindow", func(t *testing.T) {
		svc, _, clock := newTestSecretService()

		if _, err := svc.CreateSecret(ctx, "author-a", "work", "first post"); err != nil {
			t.Fatalf("First post must pass: %v", err)
		}

		clock.Advance(5 * time.Second)
		_, err := svc.CreateSecret(ctx, "author-a", "work", "too soon")
		if !errors.Is(err, apperrors.ErrRateLimited) {
			t.Fatalf("Expected rate limit error, got %v", err)
		}

		if _, err := svc.CreateSecret(ctx, "author-b", "work", "someone else"); err != nil {
			t.Errorf("Other users are not throttled: %v", err)
		}

		clock.Advance(10*time.Second + time.Millisecond)
		if _, err := svc.CreateSecret(ctx, "author-a", "work", "after the window"); err != nil {
			t.Errorf("Post after the window must pass: %v", err)
		}
	})

	t.Run("InvalidInputDoesNotConsumeWindow", func(t *testing.T) {
		svc, store, _ := newTestSecretService()

		invalid := []struct{ category, content string }{
			{"gossip", "valid content"},
			{"work", "x"},
			{"work", "   "},
			{"work", strings.Repeat("x", 2001)},
		}
		for _, in := range invalid {
			if _, err := svc.CreateSecret(ctx, "author-a", in.category, in.content); !errors.Is(err, apperrors.ErrValidation) {
				t.Errorf("Expected validation error for %q/%d chars, got %v", in.category, len(in.content), err)
			}
		}
		if len(store.secrets) != 0 {
			t.Errorf("Rejected posts must not be stored")
		}

		if _, err := svc.CreateSecret(ctx, "author-a", "work", "now a valid one"); err != nil {
			t.Errorf("Valid post must not be throttled by rejected ones: %v", err)
		}
	})

	t.Run("MissingUser", func(t *testing.T) {
		svc, _, _ := newTestSecretService()
		if _, err := svc.CreateSecret(ctx, "", "work", "content"); !errors.Is(err, apperrors.ErrValidation) {
			t.Errorf("Expected validation error, got %v", err)
		}
	})

	t.Run("StorageError", func(t *testing.T) {
		svc, store, _ := newTestSecretService()
		store.failWith = apperrors.Storage("insert_secret", errors.New("disk full"))

		if _, err := svc.CreateSecret(ctx, "author-a", "work", "content"); !errors.Is(err, apperrors.ErrStorage) {
			t.Errorf("Expected storage error, got %v", err)
		}

		// Неудачная запись уже отметила окно
		store.failWith = nil
		if _, err := svc.CreateSecret(ctx, "author-a", "work", "content"); !errors.Is(err, apperrors.ErrRateLimited) {
			t.Errorf("Expected rate limit after failed insert, got %v", err)
		}
	})
}

func TestCreateSecret_ConcurrentSameUser(t *testing.T) {
	svc, store, _ := newTestSecretService()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = svc.CreateSecret(ctx, "author-a", "other", fmt.Sprintf("burst %d", i))
		}(i)
	}
	wg.Wait()

	if len(store.secrets) != 1 {
		t.Errorf("Expected exactly one post to pass the throttle, got %d", len(store.secrets))
	}
}

func TestListSecrets(t *testing.T) {
	svc, store, clock := newTestSecretService()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.CreateSecret(ctx, fmt.Sprintf("u%d", i), []string{"work", "family", "work"}[i], "some content"); err != nil {
			t.Fatalf("CreateSecret failed: %v", err)
		}
		clock.Advance(time.Second)
	}

	work, err := svc.ListSecrets(ctx, "work")
	if err != nil {
		t.Fatalf("ListSecrets failed: %v", err)
	}
	if len(work) != 2 || work[0].ID != 3 || work[1].ID != 1 {
		t.Errorf("Expected work secrets newest first, got %+v", work)
	}
	if store.lastLimit != 100 {
		t.Errorf("Expected public limit 100, got %d", store.lastLimit)
	}

	if _, err := svc.ListSecrets(ctx, "gossip"); !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("Expected validation error for unknown category, got %v", err)
	}
}

func TestGetRandomSecret(t *testing.T) {
	svc, _, _ := newTestSecretService()
	ctx := context.Background()

	if _, err := svc.GetRandomSecret(ctx); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("Expected NotFound on empty store, got %v", err)
	}

	id, _ := svc.CreateSecret(ctx, "author-a", "health", "I hate vegetables")
	view, err := svc.GetRandomSecret(ctx)
	if err != nil || view.ID != id {
		t.Errorf("Expected secret %d, got %+v %v", id, view, err)
	}
}

func TestRecordVote(t *testing.T) {
	svc, _, _ := newTestSecretService()
	ctx := context.Background()
	id, _ := svc.CreateSecret(ctx, "author-a", "family", "I ate the last cookie")

	tally, err := svc.RecordVote(ctx, id, "user-b", models.VoteTruth)
	if err != nil || tally != (models.Tally{TruthVotes: 1}) {
		t.Fatalf("First vote: %+v %v", tally, err)
	}

	tally, err = svc.RecordVote(ctx, id, "user-b", models.VoteLie)
	if err != nil || tally != (models.Tally{TruthVotes: 1}) {
		t.Fatalf("Duplicate vote must leave tallies unchanged: %+v %v", tally, err)
	}

	voteType, found, _ := svc.VoteFor(ctx, id, "user-b")
	if !found || voteType != models.VoteTruth {
		t.Errorf("Ledger must keep the first vote, got %v %v", voteType, found)
	}

	if _, err := svc.RecordVote(ctx, id, "user-c", models.VoteType("maybe")); !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("Expected validation error, got %v", err)
	}
	if _, err := svc.RecordVote(ctx, 999, "user-c", models.VoteTruth); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("Expected NotFound, got %v", err)
	}
	if _, err := svc.RecordVote(ctx, 0, "user-c", models.VoteTruth); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("Expected NotFound for zero id, got %v", err)
	}
}

func TestListCategories(t *testing.T) {
	svc, _, _ := newTestSecretService()

	categories := svc.ListCategories()
	expected := []string{"desire", "family", "work", "health", "other"}
	if len(categories) != len(expected) {
		t.Fatalf("Expected %d categories, got %v", len(expected), categories)
	}
	for i := range expected {
		if categories[i] != expected[i] {
			t.Errorf("Position %d: expected %s, got %s", i, expected[i], categories[i])
		}
	}
}

func TestFeedQuery_AdminLimit(t *testing.T) {
	store := NewMockSecretStore()
	feed := NewFeedQuery(store, testFeedConfig)

	tests := []struct {
		requested int
		expected  int
	}{
		{0, 200},
		{-5, 200},
		{1, 1},
		{500, 500},
		{5000, 1000},
	}
	for _, tt := range tests {
		if _, err := feed.Admin(context.Background(), tt.requested); err != nil {
			t.Fatalf("Admin failed: %v", err)
		}
		if store.lastLimit != tt.expected {
			t.Errorf("Requested %d: expected limit %d, got %d", tt.requested, tt.expected, store.lastLimit)
		}
	}
}
