package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"MarketAnalyst/pkg/id"
	"MarketAnalyst/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// RedisQueue is a durable list-backed queue. Failed messages wait in a sorted
// set keyed by due time and land in a dead-letter list after RetryLimit retries.
// A queue built without jobs only publishes.
type RedisQueue struct {
	logger *logger.Logger
	cfg    *Config
	client *redis.Client
	jobs   registry
	keys   redisKeys
	ids    *id.Generator

	mu      sync.Mutex
	running bool
	wg      sync.WaitGroup
	cancel  context.CancelFunc
}

type redisKeys struct {
	pending string
	retry   string
	dead    string
}

func newRedisKeys(name string) redisKeys {
	return redisKeys{pending: name + ":pending", retry: name + ":retry", dead: name + ":dead"}
}

func NewRedisQueue(lgr *logger.Logger, cfg *Config, client *redis.Client, name string, jobs ...Job) (*RedisQueue, error) {
	if name == "" {
		name = "marketanalyst:queue"
	}
	q := &RedisQueue{
		logger: lgr,
		cfg:    cfg.withDefaults(),
		client: client,
		jobs:   registry{},
		keys:   newRedisKeys(name),
		ids:    id.NewGenerator(nil),
	}
	if err := q.jobs.add(jobs); err != nil {
		return nil, err
	}
	return q, nil
}

func (q *RedisQueue) Start() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return fmt.Errorf("queue already running")
	}

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPing()
	if err := q.client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	q.cancel = cancel
	q.running = true

	if len(q.jobs) == 0 {
		q.logger.Info("redis queue publishing only", logger.String("key", q.keys.pending))
		return nil
	}
	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx)
	}
	q.wg.Add(1)
	go q.promoteRetries(ctx)

	q.logger.Info("redis queue started",
		logger.Int("workers", q.cfg.Workers),
		logger.String("key", q.keys.pending),
		logger.String("addr", q.client.Options().Addr))
	return nil
}

func (q *RedisQueue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return nil
	}
	q.running = false
	q.cancel()
	q.mu.Unlock()

	if err := waitGroup(ctx, &q.wg); err != nil {
		q.logger.Warn("queue workers did not stop in time", logger.Error(err))
		return err
	}
	q.logger.Info("redis queue stopped")
	return nil
}

func (q *RedisQueue) Publish(ctx context.Context, msgType string, payload interface{}) (string, error) {
	if len(q.jobs) > 0 {
		if _, ok := q.jobs[msgType]; !ok {
			return "", fmt.Errorf("no job registered for type %q", msgType)
		}
	}
	msg, err := newMessage(q.ids.New(), msgType, payload, time.Now())
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("marshal message: %w", err)
	}
	if err := q.client.LPush(ctx, q.keys.pending, data).Err(); err != nil {
		return "", fmt.Errorf("lpush: %w", err)
	}
	return msg.ID, nil
}

// Depth reports the number of pending, retrying and dead messages.
func (q *RedisQueue) Depth(ctx context.Context) (pending, retrying, dead int64, err error) {
	pipe := q.client.Pipeline()
	p := pipe.LLen(ctx, q.keys.pending)
	r := pipe.ZCard(ctx, q.keys.retry)
	d := pipe.LLen(ctx, q.keys.dead)
	if _, err = pipe.Exec(ctx); err != nil {
		return 0, 0, 0, err
	}
	return p.Val(), r.Val(), d.Val(), nil
}

func (q *RedisQueue) worker(ctx context.Context) {
	defer q.wg.Done()
	for ctx.Err() == nil {
		res, err := q.client.BRPop(ctx, time.Second, q.keys.pending).Result()
		switch {
		case errors.Is(err, redis.Nil), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			continue
		case err != nil:
			q.logger.Error("brpop", logger.Error(err))
			sleep(ctx, time.Second)
			continue
		}
		if len(res) < 2 {
			continue
		}

		var msg Message
		if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
			q.logger.Error("drop malformed message", logger.Error(err))
			continue
		}
		q.handle(ctx, msg)
	}
}

func (q *RedisQueue) handle(ctx context.Context, msg Message) {
	job, ok := q.jobs[msg.Type]
	if !ok {
		q.logger.Error("no job for message", logger.String("id", msg.ID), logger.String("type", msg.Type))
		q.bury(msg)
		return
	}

	start := time.Now()
	err := job.Handle(ctx, msg.Payload)
	if err == nil {
		q.logger.Debug("job done",
			logger.String("id", msg.ID),
			logger.String("type", msg.Type),
			logger.Duration("elapsed", time.Since(start)))
		return
	}
	if errors.Is(err, context.Canceled) {
		return
	}

	msg.Attempts++
	msg.LastError = err.Error()
	if msg.Attempts > q.cfg.RetryLimit {
		q.logger.Error("job exhausted retries",
			logger.String("id", msg.ID),
			logger.String("type", msg.Type),
			logger.Error(err))
		q.bury(msg)
		return
	}

	due := time.Now().Add(q.cfg.RetryDelay * time.Duration(msg.Attempts))
	q.logger.Warn("job failed, retry scheduled",
		logger.String("id", msg.ID),
		logger.String("type", msg.Type),
		logger.Int("attempt", msg.Attempts),
		logger.Time("retry_at", due),
		logger.Error(err))

	data, _ := json.Marshal(msg)
	if err := q.client.ZAdd(context.Background(), q.keys.retry, redis.Z{Score: float64(due.Unix()), Member: data}).Err(); err != nil {
		q.logger.Error("schedule retry", logger.Error(err))
	}
}

func (q *RedisQueue) bury(msg Message) {
	data, _ := json.Marshal(msg)
	if err := q.client.LPush(context.Background(), q.keys.dead, data).Err(); err != nil {
		q.logger.Error("dead-letter push", logger.Error(err))
	}
}

func (q *RedisQueue) promoteRetries(ctx context.Context) {
	defer q.wg.Done()
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		due, err := q.client.ZRangeByScore(ctx, q.keys.retry, &redis.ZRangeBy{
			Min: "-inf",
			Max: strconv.FormatInt(time.Now().Unix(), 10),
		}).Result()
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				q.logger.Error("read retries", logger.Error(err))
			}
			continue
		}
		for _, member := range due {
			pipe := q.client.TxPipeline()
			pipe.ZRem(ctx, q.keys.retry, member)
			pipe.LPush(ctx, q.keys.pending, member)
			if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, context.Canceled) {
				q.logger.Error("promote retry", logger.Error(err))
			}
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
