package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"MarketAnalyst/pkg/id"
	"MarketAnalyst/pkg/logger"
)

// LocalQueue runs jobs on in-process workers. It backs deployments without
// Redis; messages do not survive a restart.
type LocalQueue struct {
	logger *logger.Logger
	cfg    *Config
	jobs   registry
	ch     chan Message
	ids    *id.Generator

	mu      sync.RWMutex
	running bool
	wg      sync.WaitGroup
	cancel  context.CancelFunc

	deadMu sync.Mutex
	dead   []Message
}

func NewLocalQueue(lgr *logger.Logger, cfg *Config, jobs ...Job) (*LocalQueue, error) {
	c := cfg.withDefaults()
	q := &LocalQueue{
		logger: lgr,
		cfg:    c,
		jobs:   registry{},
		ch:     make(chan Message, c.BufferSize),
		ids:    id.NewGenerator(nil),
	}
	if err := q.jobs.add(jobs); err != nil {
		return nil, err
	}
	return q, nil
}

func (q *LocalQueue) Start() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return fmt.Errorf("queue already running")
	}
	ctx, cancel := context.WithCancel(context.Background())
	q.cancel = cancel
	q.running = true
	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx)
	}
	q.logger.Info("local queue started", logger.Int("workers", q.cfg.Workers))
	return nil
}

func (q *LocalQueue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return nil
	}
	q.running = false
	q.cancel()
	q.mu.Unlock()
	return waitGroup(ctx, &q.wg)
}

func (q *LocalQueue) Publish(ctx context.Context, msgType string, payload interface{}) (string, error) {
	if _, ok := q.jobs[msgType]; !ok {
		return "", fmt.Errorf("no job registered for type %q", msgType)
	}
	msg, err := newMessage(q.ids.New(), msgType, payload, time.Now())
	if err != nil {
		return "", err
	}

	q.mu.RLock()
	defer q.mu.RUnlock()
	if !q.running {
		return "", fmt.Errorf("queue not running")
	}
	select {
	case q.ch <- msg:
		return msg.ID, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// DeadLetters returns messages that exhausted their retries.
func (q *LocalQueue) DeadLetters() []Message {
	q.deadMu.Lock()
	defer q.deadMu.Unlock()
	return append([]Message(nil), q.dead...)
}

func (q *LocalQueue) worker(ctx context.Context) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-q.ch:
			q.process(ctx, msg)
		}
	}
}

func (q *LocalQueue) process(ctx context.Context, msg Message) {
	for {
		err := q.jobs[msg.Type].Handle(ctx, msg.Payload)
		if err == nil || errors.Is(err, context.Canceled) {
			return
		}
		msg.Attempts++
		msg.LastError = err.Error()
		q.logger.Warn("job failed",
			logger.String("id", msg.ID),
			logger.String("type", msg.Type),
			logger.Int("attempt", msg.Attempts),
			logger.Error(err))

		if msg.Attempts > q.cfg.RetryLimit {
			q.deadMu.Lock()
			q.dead = append(q.dead, msg)
			q.deadMu.Unlock()
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(q.cfg.RetryDelay * time.Duration(msg.Attempts)):
		}
	}
}

func waitGroup(ctx context.Context, wg *sync.WaitGroup) error {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for workers: %w", ctx.Err())
	}
}
