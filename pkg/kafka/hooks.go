package kafka

import (
	"context"
	"fmt"
	"time"

	"MarketAnalyst/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// ConsumerHook wraps every handler attempt. A BeforeHandle error skips the
// attempt and counts as a handler failure.
type ConsumerHook interface {
	BeforeHandle(ctx context.Context, km kafka.Message) (context.Context, error)
	AfterHandle(ctx context.Context, km kafka.Message, err error)
}

type NoopHook struct{}

func (NoopHook) BeforeHandle(ctx context.Context, _ kafka.Message) (context.Context, error) {
	return ctx, nil
}

func (NoopHook) AfterHandle(context.Context, kafka.Message, error) {}

// HookFuncs builds a hook from optional functions.
type HookFuncs struct {
	Before func(context.Context, kafka.Message) (context.Context, error)
	After  func(context.Context, kafka.Message, error)
}

func (h HookFuncs) BeforeHandle(ctx context.Context, km kafka.Message) (context.Context, error) {
	if h.Before == nil {
		return ctx, nil
	}
	return h.Before(ctx, km)
}

func (h HookFuncs) AfterHandle(ctx context.Context, km kafka.Message, err error) {
	if h.After != nil {
		h.After(ctx, km, err)
	}
}

// HookChain runs Before hooks in order and After hooks in reverse. A panicking
// hook is converted into an error instead of killing the worker.
type HookChain struct {
	hooks []ConsumerHook
}

func NewHookChain(hooks ...ConsumerHook) *HookChain {
	out := make([]ConsumerHook, 0, len(hooks))
	for _, h := range hooks {
		if h != nil {
			out = append(out, h)
		}
	}
	return &HookChain{hooks: out}
}

func (c *HookChain) BeforeHandle(ctx context.Context, km kafka.Message) (_ context.Context, err error) {
	for _, h := range c.hooks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("hook panic: %v", r)
				}
			}()
			ctx, err = h.BeforeHandle(ctx, km)
		}()
		if err != nil {
			return ctx, err
		}
	}
	return ctx, nil
}

func (c *HookChain) AfterHandle(ctx context.Context, km kafka.Message, err error) {
	for i := len(c.hooks) - 1; i >= 0; i-- {
		func() {
			defer func() { _ = recover() }()
			c.hooks[i].AfterHandle(ctx, km, err)
		}()
	}
}

type startKey struct{}

// RequestIDHeader carries the correlation id across producers and consumers.
const RequestIDHeader = "request_id"

// Header returns the first value of a header, or "".
func Header(km kafka.Message, key string) string {
	for _, h := range km.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

// LoggingHook logs each attempt outcome with its latency.
func LoggingHook(l *logger.Logger) ConsumerHook {
	return HookFuncs{
		Before: func(ctx context.Context, _ kafka.Message) (context.Context, error) {
			return context.WithValue(ctx, startKey{}, time.Now()), nil
		},
		After: func(ctx context.Context, km kafka.Message, err error) {
			fields := []logger.Field{
				logger.String("topic", km.Topic),
				logger.Int("partition", km.Partition),
				logger.Int64("offset", km.Offset),
				logger.String("key", string(km.Key)),
			}
			if rid := Header(km, RequestIDHeader); rid != "" {
				fields = append(fields, logger.String("request_id", rid))
			}
			if start, ok := ctx.Value(startKey{}).(time.Time); ok {
				fields = append(fields, logger.Duration("elapsed", time.Since(start)))
			}
			if err != nil {
				l.Warn("kafka message failed", append(fields, logger.Error(err))...)
				return
			}
			l.Debug("kafka message handled", fields...)
		},
	}
}
