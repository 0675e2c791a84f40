package mail

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/apperrors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Repository persists mail. Listings are newest first.
type Repository interface {
	Create(ctx context.Context, m *Mail) error
	Get(ctx context.Context, id primitive.ObjectID) (*Mail, error)
	// ListByReceiver returns up to limit messages for receiver older than after.
	ListByReceiver(ctx context.Context, receiver string, after *primitive.ObjectID, limit int) ([]Mail, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

var (
	_ Repository = (*MongoRepo)(nil)
	_ Repository = (*MemoryRepo)(nil)
)

type MongoRepo struct {
	col *mongo.Collection
}

func NewMongoRepo(col *mongo.Collection) *MongoRepo {
	return &MongoRepo{col: col}
}

func (r *MongoRepo) Create(ctx context.Context, m *Mail) error {
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	if _, err := r.col.InsertOne(ctx, m); err != nil {
		return fmt.Errorf("insert mail: %w", err)
	}
	return nil
}

func (r *MongoRepo) Get(ctx context.Context, id primitive.ObjectID) (*Mail, error) {
	var m Mail
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("mail", id.Hex())
		}
		return nil, fmt.Errorf("get mail: %w", err)
	}
	return &m, nil
}

func (r *MongoRepo) ListByReceiver(ctx context.Context, receiver string, after *primitive.ObjectID, limit int) ([]Mail, error) {
	filter := bson.M{"receiver": receiver}
	if after != nil {
		filter["_id"] = bson.M{"$lt": *after}
	}
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: -1}}).SetLimit(int64(limit))
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list mail: %w", err)
	}
	out := []Mail{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("list mail: %w", err)
	}
	return out, nil
}

func (r *MongoRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete mail: %w", err)
	}
	if res.DeletedCount == 0 {
		return apperrors.NotFound("mail", id.Hex())
	}
	return nil
}

// MemoryRepo is the in-process twin of MongoRepo.
type MemoryRepo struct {
	mu   sync.RWMutex
	mail map[primitive.ObjectID]Mail
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{mail: make(map[primitive.ObjectID]Mail)}
}

func (r *MemoryRepo) Create(_ context.Context, m *Mail) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	r.mail[m.ID] = *m
	return nil
}

func (r *MemoryRepo) Get(_ context.Context, id primitive.ObjectID) (*Mail, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.mail[id]
	if !ok {
		return nil, apperrors.NotFound("mail", id.Hex())
	}
	return &m, nil
}

func (r *MemoryRepo) ListByReceiver(_ context.Context, receiver string, after *primitive.ObjectID, limit int) ([]Mail, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []Mail{}
	for _, m := range r.mail {
		if m.Receiver != receiver {
			continue
		}
		if after != nil && m.ID.Hex() >= after.Hex() {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Hex() > out[j].ID.Hex() })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.mail[id]; !ok {
		return apperrors.NotFound("mail", id.Hex())
	}
	delete(r.mail, id)
	return nil
}
