package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"bugfeature-quiz-service/internal/app"
	"bugfeature-quiz-service/internal/domain"
)

// CachingStore decorates an app.Store and caches the ordered question list in
// Redis as JSON under questions:by_votes:{asc|desc}. Every vote-mutating call
// drops both keys, so selection never serves a stale ordering for long and a
// cache miss falls through to the wrapped store.
type CachingStore struct {
	app.Store
	client *redis.Client
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewCachingStore(inner app.Store, client *redis.Client, ttl time.Duration) *CachingStore {
	return &CachingStore{
		Store:  inner,
		client: client,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *CachingStore) QuestionsByVotes(ctx context.Context, order domain.VoteOrder) ([]domain.Question, error) {
	key := s.key(order)

	raw, err := s.client.Get(ctx, key).Bytes()
	if err == nil {
		var questions []domain.Question
		if err := json.Unmarshal(raw, &questions); err == nil {
			return questions, nil
		}
	}

	result, err, _ := s.sf.Do(key, func() (interface{}, error) {
		// Re-check in case another goroutine filled the key.
		raw, err := s.client.Get(ctx, key).Bytes()
		if err == nil {
			var questions []domain.Question
			if err := json.Unmarshal(raw, &questions); err == nil {
				return questions, nil
			}
		}

		questions, err := s.Store.QuestionsByVotes(ctx, order)
		if err != nil {
			return nil, err
		}
		if data, err := json.Marshal(questions); err == nil {
			_ = s.client.Set(ctx, key, data, s.ttlWithJitter()).Err()
		}
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (s *CachingStore) InsertQuestion(ctx context.Context, q domain.Question) error {
	if err := s.Store.InsertQuestion(ctx, q); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *CachingStore) SetQuestionVotes(ctx context.Context, ident string, votes int) error {
	if err := s.Store.SetQuestionVotes(ctx, ident, votes); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *CachingStore) Upvote(ctx context.Context, userIdent, questionIdent string) (bool, int, error) {
	applied, votes, err := s.Store.Upvote(ctx, userIdent, questionIdent)
	if err != nil {
		return false, 0, err
	}
	if applied {
		s.invalidate(ctx)
	}
	return applied, votes, nil
}

func (s *CachingStore) invalidate(ctx context.Context) {
	// Best effort; a failed delete only leaves the key until its TTL runs out.
	_ = s.client.Del(ctx, s.key(domain.VotesDescending), s.key(domain.VotesAscending)).Err()
}

func (s *CachingStore) key(order domain.VoteOrder) string {
	return "questions:by_votes:" + string(order)
}

func (s *CachingStore) ttlWithJitter() time.Duration {
	if s.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(s.ttl) / 10
	return s.ttl + time.Duration(s.rnd.Int63n(jitterMax+1))
}
