package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"MarketAnalyst/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tickerPayload struct {
	Ticker string `json:"ticker"`
}

func TestDecode(t *testing.T) {
	p, err := Decode[tickerPayload](json.RawMessage(`{"ticker":"PETR4"}`))
	require.NoError(t, err)
	assert.Equal(t, "PETR4", p.Ticker)

	_, err = Decode[tickerPayload](nil)
	assert.Error(t, err)
	_, err = Decode[tickerPayload](json.RawMessage(`{`))
	assert.Error(t, err)
}

func TestLocalQueueRejectsDuplicateJobs(t *testing.T) {
	j := JobFunc{MsgType: "a", Fn: func(context.Context, json.RawMessage) error { return nil }}
	_, err := NewLocalQueue(logger.Nop(), nil, j, j)
	assert.Error(t, err)
}

func TestLocalQueueRunsJobs(t *testing.T) {
	got := make(chan string, 1)
	job := JobFunc{MsgType: "analysis.ticker", Fn: func(_ context.Context, raw json.RawMessage) error {
		p, err := Decode[tickerPayload](raw)
		if err != nil {
			return err
		}
		got <- p.Ticker
		return nil
	}}

	q, err := NewLocalQueue(logger.Nop(), &Config{Workers: 2}, job)
	require.NoError(t, err)

	_, err = q.Publish(context.Background(), "analysis.ticker", tickerPayload{Ticker: "X"})
	assert.Error(t, err, "not started")

	require.NoError(t, q.Start())
	defer q.Stop(context.Background())

	msgID, err := q.Publish(context.Background(), "analysis.ticker", tickerPayload{Ticker: "VALE3"})
	require.NoError(t, err)
	assert.NotEmpty(t, msgID)

	select {
	case ticker := <-got:
		assert.Equal(t, "VALE3", ticker)
	case <-time.After(2 * time.Second):
		t.Fatal("job never ran")
	}

	_, err = q.Publish(context.Background(), "unknown", nil)
	assert.Error(t, err)
}

func TestLocalQueueRetriesThenDeadLetters(t *testing.T) {
	var calls int32
	job := JobFunc{MsgType: "flaky", Fn: func(context.Context, json.RawMessage) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("boom")
	}}
	q, err := NewLocalQueue(logger.Nop(), &Config{RetryLimit: 2, RetryDelay: time.Millisecond}, job)
	require.NoError(t, err)
	require.NoError(t, q.Start())
	defer q.Stop(context.Background())

	_, err = q.Publish(context.Background(), "flaky", map[string]int{"n": 1})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(q.DeadLetters()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))

	dead := q.DeadLetters()[0]
	assert.Equal(t, 3, dead.Attempts)
	assert.Equal(t, "boom", dead.LastError)
}
