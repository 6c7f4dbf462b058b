package redis_test

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"bugfeature-quiz-service/internal/app"
	"bugfeature-quiz-service/internal/domain"
	"bugfeature-quiz-service/internal/infra/memory"
	infraredis "bugfeature-quiz-service/internal/infra/redis"
)

func TestQuestionListIsCached(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	defer mr.Close()

	inner := &countingStore{Store: seededStore(t)}
	store := infraredis.NewCachingStore(inner, client, time.Minute)

	first, err := store.QuestionsByVotes(ctx, domain.VotesDescending)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if inner.listCalls != 1 {
		t.Fatalf("expected one inner call, got %d", inner.listCalls)
	}

	second, err := store.QuestionsByVotes(ctx, domain.VotesDescending)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if inner.listCalls != 1 {
		t.Fatalf("expected cache hit, inner calls=%d", inner.listCalls)
	}
	if len(first) != len(second) || first[0].Ident != second[0].Ident {
		t.Fatalf("cached result diverged: %+v vs %+v", first, second)
	}
}

func TestUpvoteInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	defer mr.Close()

	inner := seededStore(t)
	if err := inner.InsertUser(ctx, domain.User{Ident: "u1", Name: "alice"}); err != nil {
		t.Fatalf("insert user: %v", err)
	}
	store := infraredis.NewCachingStore(inner, client, time.Minute)

	before, err := store.QuestionsByVotes(ctx, domain.VotesDescending)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	lowest := before[len(before)-1]

	// Upvote the lowest-voted question enough that ordering changes.
	applied, _, err := store.Upvote(ctx, "u1", lowest.Ident)
	if err != nil || !applied {
		t.Fatalf("upvote: applied=%v err=%v", applied, err)
	}

	after, err := store.QuestionsByVotes(ctx, domain.VotesDescending)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	found := false
	for _, q := range after {
		if q.Ident == lowest.Ident && q.Votes == lowest.Votes+1 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected fresh vote count after invalidation, got %+v", after)
	}
}

func TestInsertQuestionInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	defer mr.Close()

	store := infraredis.NewCachingStore(seededStore(t), client, time.Minute)

	before, err := store.QuestionsByVotes(ctx, domain.VotesDescending)
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	newcomer := domain.Question{Ident: "q-new", Title: "fresh", Votes: 99}
	if err := store.InsertQuestion(ctx, newcomer); err != nil {
		t.Fatalf("insert: %v", err)
	}

	after, err := store.QuestionsByVotes(ctx, domain.VotesDescending)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(after) != len(before)+1 || after[0].Ident != "q-new" {
		t.Fatalf("expected newcomer on top after invalidation, got %+v", after)
	}
}

type countingStore struct {
	app.Store
	listCalls int
}

func (s *countingStore) QuestionsByVotes(ctx context.Context, order domain.VoteOrder) ([]domain.Question, error) {
	s.listCalls++
	return s.Store.QuestionsByVotes(ctx, order)
}

func seededStore(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.NewStore()
	for i, ident := range []string{"q1", "q2", "q3"} {
		err := store.InsertQuestion(context.Background(), domain.Question{
			Ident: ident,
			Title: ident,
			Votes: (i + 1) * 10,
		})
		if err != nil {
			t.Fatalf("seed %s: %v", ident, err)
		}
	}
	return store
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	return mr, goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
}
