package store

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/roach88/lexstore/internal/record"
)

// redisPutScript performs the version check and write atomically.
// KEYS[1] = collection hash
// KEYS[2] = set of collection names
// ARGV[1] = expected version (-1 = any)
// ARGV[2] = body
// ARGV[3] = digest
// ARGV[4] = updated_at (RFC 3339)
// ARGV[5] = collection name
//
// Returns {status, version}: status 1 = written, 0 = unchanged, -1 = conflict.
var redisPutScript = redis.NewScript(`
local current = tonumber(redis.call("HGET", KEYS[1], "version") or "0")
local expected = tonumber(ARGV[1])

if expected >= 0 and current ~= expected then
    return {-1, current}
end

if current > 0 and redis.call("HGET", KEYS[1], "digest") == ARGV[3] then
    return {0, current}
end

local next = current + 1
redis.call("HSET", KEYS[1], "body", ARGV[2], "digest", ARGV[3], "version", next, "updated_at", ARGV[4])
redis.call("SADD", KEYS[2], ARGV[5])
return {1, next}
`)

// Redis stores each collection as a hash under a key prefix.
type Redis struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedis wraps a client. prefix namespaces every key this store touches.
func NewRedis(client *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = "lexstore:"
	}
	return &Redis{client: client, prefix: prefix, now: time.Now}
}

// OpenRedis connects using a redis:// URL and verifies the server responds.
func OpenRedis(ctx context.Context, rawURL, prefix string) (*Redis, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewRedis(client, prefix), nil
}

func (r *Redis) key(name string) string {
	return r.prefix + "collection:" + name
}

func (r *Redis) indexKey() string {
	return r.prefix + "collections"
}

func (r *Redis) Get(ctx context.Context, name string) (Snapshot, error) {
	fields, err := r.client.HGetAll(ctx, r.key(name)).Result()
	if err != nil {
		return Snapshot{}, fmt.Errorf("get %q: %w", name, err)
	}
	if len(fields) == 0 {
		return Snapshot{Name: name}, nil
	}

	version, err := strconv.ParseInt(fields["version"], 10, 64)
	if err != nil {
		return Snapshot{}, fmt.Errorf("get %q: bad version %q: %w", name, fields["version"], err)
	}
	updated, _ := time.Parse(time.RFC3339Nano, fields["updated_at"])
	return Snapshot{
		Name:      name,
		Data:      []byte(fields["body"]),
		Version:   version,
		Digest:    fields["digest"],
		UpdatedAt: updated,
	}, nil
}

func (r *Redis) Put(ctx context.Context, name string, data []byte, expected int64) (int64, error) {
	res, err := redisPutScript.Run(ctx, r.client,
		[]string{r.key(name), r.indexKey()},
		expected, string(data), record.Digest(data), r.now().UTC().Format(time.RFC3339Nano), name,
	).Int64Slice()
	if err != nil {
		return 0, fmt.Errorf("put %q: %w", name, err)
	}
	if len(res) != 2 {
		return 0, fmt.Errorf("put %q: invalid response from lua script", name)
	}

	status, version := res[0], res[1]
	if status < 0 {
		return 0, &ConflictError{Collection: name, Expected: expected, Current: version}
	}
	return version, nil
}

func (r *Redis) Names(ctx context.Context) ([]string, error) {
	names, err := r.client.SMembers(ctx, r.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	slices.Sort(names)
	return names, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
