package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyHistory = "loot:history"

type redisRecord struct {
	Timestamp string `json:"timestamp"`
	ItemName  string `json:"itemName"`
	Recipient string `json:"recipient"`
}

// RedisStore keeps history as a JSON list under loot:history.
type RedisStore struct {
	rdb   *redis.Client
	owned bool
}

func NewRedisStore(rdb *redis.Client) *RedisStore { return &RedisStore{rdb: rdb} }

// NewRedisStoreFromURL dials and pings the server; the client is closed with the store.
func NewRedisStoreFromURL(ctx context.Context, url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{rdb: rdb, owned: true}, nil
}

func (s *RedisStore) Append(ctx context.Context, rec Record) error {
	raw, err := json.Marshal(redisRecord{
		Timestamp: rec.Timestamp.UTC().Format(time.RFC3339),
		ItemName:  rec.ItemName,
		Recipient: rec.Recipient,
	})
	if err != nil {
		return err
	}
	return s.rdb.RPush(ctx, keyHistory, raw).Err()
}

func (s *RedisStore) List(ctx context.Context) ([]Record, error) {
	items, err := s.rdb.LRange(ctx, keyHistory, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(items))
	for _, raw := range items {
		var r redisRecord
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			return nil, fmt.Errorf("decode history record: %w", err)
		}
		ts, err := time.Parse(time.RFC3339, r.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("history timestamp %q: %w", r.Timestamp, err)
		}
		out = append(out, Record{Timestamp: ts, ItemName: r.ItemName, Recipient: r.Recipient})
	}
	return out, nil
}

func (s *RedisStore) Close() error {
	if s == nil || s.rdb == nil || !s.owned {
		return nil
	}
	return s.rdb.Close()
}
