package cache

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrMiss = errors.New("cache miss")

const DefaultTTL = 60 * time.Second

// NotesCache is a read-through cache for serialized note listings.
// Entries are keyed per owner so a mutation can purge everything the
// owner could have cached.
type NotesCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func New(rdb *redis.Client) *NotesCache {
	return &NotesCache{rdb: rdb, ttl: DefaultTTL}
}

// Key builds the deterministic cache key for a listing query. The search
// term is canonicalized and escaped so it cannot collide with the key
// separators or another term.
func Key(ownerID, skip, limit int, search string) string {
	term := url.QueryEscape(strings.ToLower(strings.TrimSpace(search)))
	return fmt.Sprintf("notes:%d:%d:%d:%s", ownerID, skip, limit, term)
}

func ownerPattern(ownerID int) string {
	return fmt.Sprintf("notes:%d:*", ownerID)
}

func (c *NotesCache) Get(ctx context.Context, key string) ([]byte, error) {
	payload, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}
	return payload, nil
}

func (c *NotesCache) Set(ctx context.Context, key string, payload []byte) error {
	return c.rdb.Set(ctx, key, payload, c.ttl).Err()
}

// Invalidate removes every cached listing for the owner. Callers must run
// it after a successful mutation and before the response is written, so no
// subsequent read can observe a listing older than the mutation.
func (c *NotesCache) Invalidate(ctx context.Context, ownerID int) error {
	var keys []string
	iter := c.rdb.Scan(ctx, 0, ownerPattern(ownerID), 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}
