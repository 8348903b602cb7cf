package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/veduka/examhall-backend/internal/config"
	"github.com/veduka/examhall-backend/internal/model"
)

// questionCacheTTL bounds staleness if an invalidation is ever lost.
const questionCacheTTL = 10 * time.Minute

// CachedQuestionSource is a Redis read-through cache in front of the question
// repository. Question sets are read on every attempt view and every grading,
// but change only when an admin edits an exam, so the hit rate is high. Cache
// failures fall through to the database; the cache is never load-bearing.
type CachedQuestionSource struct {
	inner QuestionSource
	rdb   *redis.Client
	log   zerolog.Logger
}

// NewCachedQuestionSource wraps a QuestionSource with the Redis cache.
func NewCachedQuestionSource(inner QuestionSource, rdb *redis.Client) *CachedQuestionSource {
	return &CachedQuestionSource{
		inner: inner,
		rdb:   rdb,
		log:   log.With().Str("component", "question_cache").Logger(),
	}
}

// ListByExam returns the exam's questions, from cache when possible.
func (c *CachedQuestionSource) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Question, error) {
	key := config.CacheKey.ExamQuestionsKey(examID.String())

	cached, err := c.rdb.Get(ctx, key).Result()
	if err == nil {
		var questions []model.Question
		if err := json.Unmarshal([]byte(cached), &questions); err == nil {
			return questions, nil
		}
		// Unreadable entry: drop it and fall through to the source.
		_ = c.rdb.Del(ctx, key).Err()
	} else if !errors.Is(err, redis.Nil) {
		c.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Question cache read failed")
	}

	questions, err := c.inner.ListByExam(ctx, examID)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(questions); err == nil {
		if err := c.rdb.Set(ctx, key, encoded, questionCacheTTL).Err(); err != nil {
			c.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Question cache write failed")
		}
	}
	return questions, nil
}

// Invalidate drops the cached question set after an exam edit.
func (c *CachedQuestionSource) Invalidate(ctx context.Context, examID uuid.UUID) error {
	return c.rdb.Del(ctx, config.CacheKey.ExamQuestionsKey(examID.String())).Err()
}
