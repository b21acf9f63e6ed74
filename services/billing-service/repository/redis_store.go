package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each document as a hash at "<prefix><collection>:<id>".
// Hash fields are strings; readers parse numbers and times back.
type RedisStore struct {
	client redis.Cmdable
	prefix string
}

func NewRedisStore(client redis.Cmdable, keyPrefix string) *RedisStore {
	return &RedisStore{client: client, prefix: keyPrefix}
}

func (r *RedisStore) Key(collection, id string) string {
	return fmt.Sprintf("%s%s:%s", r.prefix, collection, id)
}

func (r *RedisStore) Get(ctx context.Context, collection, id string) (Document, error) {
	fields, err := r.client.HGetAll(ctx, r.Key(collection, id)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis HGETALL %s/%s failed: %w", collection, id, err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}
	doc := make(Document, len(fields))
	for k, v := range fields {
		doc[k] = v
	}
	return doc, nil
}

func (r *RedisStore) Set(ctx context.Context, collection, id string, patch Document, opts SetOptions) error {
	key := r.Key(collection, id)
	args := HashArgs(patch)

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if !opts.Merge {
			pipe.Del(ctx, key)
		}
		if len(args) > 0 {
			pipe.HSet(ctx, key, args...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis write %s/%s failed: %w", collection, id, err)
	}
	return nil
}

// HashArgs flattens patch into HSET field/value pairs in key order.
func HashArgs(patch Document) []any {
	args := make([]any, 0, len(patch)*2)
	for _, k := range sortedKeys(patch) {
		args = append(args, k, hashValue(patch[k]))
	}
	return args
}

func hashValue(v any) string {
	switch tv := v.(type) {
	case string:
		return tv
	case int:
		return strconv.Itoa(tv)
	case int64:
		return strconv.FormatInt(tv, 10)
	case float64:
		return strconv.FormatFloat(tv, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(tv)
	case time.Time:
		return tv.UTC().Format(time.RFC3339Nano)
	case fmt.Stringer:
		return tv.String()
	default:
		return fmt.Sprint(tv)
	}
}
