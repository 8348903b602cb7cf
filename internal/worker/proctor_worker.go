package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/veduka/examhall-backend/internal/config"
	"github.com/veduka/examhall-backend/internal/model"
)

const (
	BatchSize    = 50
	BatchTimeout = 2 * time.Second
	PollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
)

// ProctorWorker drains the proctor event queue and batch-persists events.
// The violation counter is already raised on the hot path; this worker only
// owns the durable audit trail, so a delayed flush never affects grading.
type ProctorWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewProctorWorker creates a new ProctorWorker.
func NewProctorWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *ProctorWorker {
	return &ProctorWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "proctor_worker").Logger(),
	}
}

// Start runs the consume loop until ctx is cancelled. Events are buffered and
// flushed on size or age, whichever comes first.
func (w *ProctorWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ProctorWorker started")

	buffer := make([]*model.QueuedProctorEvent, 0, BatchSize)
	lastFlush := time.Now()

	for {
		if len(buffer) > 0 {
			if len(buffer) >= BatchSize || time.Since(lastFlush) >= BatchTimeout {
				w.flushSafe(ctx, buffer)
				buffer = buffer[:0]
				lastFlush = time.Now()
			}
		}

		select {
		case <-ctx.Done():
			w.shutdown(buffer)
			return
		default:
		}

		result, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.ProctorEventsQueue).Result()
		if err != nil {
			if err == redis.Nil {
				continue // queue empty, loop back to check the flush timer
			}
			if ctx.Err() != nil {
				return
			}
			w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			time.Sleep(3 * time.Second)
			continue
		}

		if len(result) < 2 {
			continue
		}

		var event model.QueuedProctorEvent
		if err := json.Unmarshal([]byte(result[1]), &event); err != nil {
			// Malformed JSON cannot be retried. Log and discard.
			w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed event")
			continue
		}

		buffer = append(buffer, &event)
	}
}

// flushSafe attempts bulk insert, then row-by-row recovery with requeue.
func (w *ProctorWorker) flushSafe(ctx context.Context, batch []*model.QueuedProctorEvent) {
	if err := w.bulkInsert(ctx, batch); err != nil {
		w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk insert failed, attempting row-by-row recovery")
		w.fallbackInsert(ctx, batch)
	}
}

func (w *ProctorWorker) bulkInsert(ctx context.Context, batch []*model.QueuedProctorEvent) error {
	rows := make([][]interface{}, 0, len(batch))
	for _, e := range batch {
		rows = append(rows, []interface{}{
			e.AttemptID, e.StudentID, e.ExamID, e.EventType, payloadValue(e.Payload), time.Unix(e.RecordedAt, 0),
		})
	}

	_, err := w.pool.CopyFrom(
		ctx,
		pgx.Identifier{"proctor_events"},
		[]string{"attempt_id", "student_id", "exam_id", "event_type", "payload", "recorded_at"},
		pgx.CopyFromRows(rows),
	)
	return err
}

func (w *ProctorWorker) fallbackInsert(ctx context.Context, batch []*model.QueuedProctorEvent) {
	requeueList := make([]*model.QueuedProctorEvent, 0)

	for _, e := range batch {
		_, err := w.pool.Exec(ctx,
			`INSERT INTO proctor_events (attempt_id, student_id, exam_id, event_type, payload, recorded_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			e.AttemptID, e.StudentID, e.ExamID, e.EventType, payloadValue(e.Payload), time.Unix(e.RecordedAt, 0),
		)
		if err != nil {
			w.log.Error().Err(err).Str("attempt_id", e.AttemptID.String()).Msg("Insert failed, requeueing")
			requeueList = append(requeueList, e)
		}
	}

	if len(requeueList) > 0 {
		w.requeue(ctx, requeueList)
	}
}

func (w *ProctorWorker) requeue(ctx context.Context, items []*model.QueuedProctorEvent) {
	pipe := w.rdb.Pipeline()
	for _, e := range items {
		data, _ := json.Marshal(e)
		pipe.RPush(ctx, config.WorkerKey.ProctorEventsQueue, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Msg("CRITICAL: Failed to requeue events to Redis. Data loss occurred.")
		return
	}

	w.log.Info().Int("count", len(items)).Msg("Requeued failed events back to Redis")
	// Avoid thrashing if the database is down hard.
	time.Sleep(2 * time.Second)
}

func (w *ProctorWorker) shutdown(buffer []*model.QueuedProctorEvent) {
	w.log.Info().Msg("Worker stopping, flushing remaining buffer...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if len(buffer) > 0 {
		w.flushSafe(shutdownCtx, buffer)
	}
}

// payloadValue maps an empty payload to SQL NULL instead of invalid jsonb.
func payloadValue(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
