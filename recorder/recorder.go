// Package recorder persists episode records as JSON, to files or to redis lists.
package recorder

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zeu5/rl-abstraction/types"
	"github.com/zeu5/rl-abstraction/util"
)

// FileRecorder appends every record as a JSON line to <dir>/<key>.jsonl
type FileRecorder struct {
	dir string
	mu  sync.Mutex
}

var _ types.Recorder = &FileRecorder{}

func NewFileRecorder(dir string) *FileRecorder {
	return &FileRecorder{dir: dir}
}

func (f *FileRecorder) Path(key string) string {
	return path.Join(f.dir, key+".jsonl")
}

func (f *FileRecorder) Record(_ context.Context, key string, v any) error {
	bs, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return util.AppendToFile(f.Path(key), string(bs))
}

// RedisRecorder pushes every record as JSON to the list prefix:key
type RedisRecorder struct {
	client *redis.Client
	prefix string
}

var _ types.Recorder = &RedisRecorder{}

func NewRedisRecorder(addr, prefix string) *RedisRecorder {
	return &RedisRecorder{
		client: redis.NewClient(&redis.Options{
			Addr:        addr,
			DialTimeout: 500 * time.Millisecond,
		}),
		prefix: prefix,
	}
}

func (r *RedisRecorder) Key(key string) string {
	if r.prefix == "" {
		return key
	}
	return r.prefix + ":" + key
}

// Ping checks that the server is reachable
func (r *RedisRecorder) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisRecorder) Record(ctx context.Context, key string, v any) error {
	bs, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	if err := r.client.RPush(ctx, r.Key(key), bs).Err(); err != nil {
		return fmt.Errorf("pushing record to %s: %w", r.Key(key), err)
	}
	return nil
}

func (r *RedisRecorder) Close() error {
	return r.client.Close()
}
