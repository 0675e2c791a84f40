package views

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Deduper decides whether a view of a question counts. A viewer is counted
// once per question per TTL window. A nil client counts every view.
type Deduper struct {
	client *redis.Client
	ttl    time.Duration
}

func NewDeduper(c *redis.Client, ttl time.Duration) *Deduper {
	return &Deduper{client: c, ttl: ttl}
}

// First reports whether this is viewer's first view of qid in the window.
func (d *Deduper) First(ctx context.Context, qid primitive.ObjectID, viewer string) (bool, error) {
	if d == nil || d.client == nil || d.ttl <= 0 || viewer == "" {
		return true, nil
	}
	key := fmt.Sprintf("qoverflow:view:%s:%s", qid.Hex(), viewer)
	ok, err := d.client.SetNX(ctx, key, 1, d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("view dedupe: %w", err)
	}
	return ok, nil
}
