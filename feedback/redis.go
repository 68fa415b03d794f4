package feedback

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultStream is the Redis stream records are appended to.
const DefaultStream = "mindcraft:feedback"

// RedisRecorder appends records to a Redis stream, where training jobs can
// consume them with consumer groups.
type RedisRecorder struct {
	client *redis.Client
	stream string
	maxLen int64
	owned  bool
}

// RedisOption configures a RedisRecorder.
type RedisOption func(*RedisRecorder)

// WithMaxLen caps the stream length (approximately).
func WithMaxLen(n int64) RedisOption {
	return func(r *RedisRecorder) { r.maxLen = n }
}

// NewRedisRecorder connects to addr and checks the connection.
func NewRedisRecorder(ctx context.Context, addr, stream string, opts ...RedisOption) (*RedisRecorder, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}
	r := NewRedisRecorderWithClient(client, stream, opts...)
	r.owned = true
	return r, nil
}

// NewRedisRecorderWithClient uses an existing client, which the caller
// keeps ownership of.
func NewRedisRecorderWithClient(client *redis.Client, stream string, opts ...RedisOption) *RedisRecorder {
	if stream == "" {
		stream = DefaultStream
	}
	r := &RedisRecorder{client: client, stream: stream}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record implements Recorder.
func (r *RedisRecorder) Record(ctx context.Context, rec Record) error {
	rec = stamp(rec)
	args := &redis.XAddArgs{
		Stream: r.stream,
		Values: map[string]any{
			"id":          rec.ID,
			"time":        rec.Time.Format(time.RFC3339Nano),
			"world":       rec.World,
			"character":   rec.Character,
			"mood":        rec.Mood,
			"interaction": rec.Interaction,
			"answer":      rec.Answer,
			"text":        rec.Text(),
		},
	}
	if r.maxLen > 0 {
		args.MaxLen = r.maxLen
		args.Approx = true
	}
	if err := r.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", r.stream, err)
	}
	return nil
}

// Close closes the client if the recorder created it.
func (r *RedisRecorder) Close() error {
	if r.owned {
		return r.client.Close()
	}
	return nil
}
