package views

import (
	"context"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestDeduperCountsOncePerWindow(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	d := NewDeduper(redis.NewClient(&redis.Options{Addr: m.Addr()}), time.Minute)
	ctx := context.Background()
	q1, q2 := primitive.NewObjectID(), primitive.NewObjectID()

	first, err := d.First(ctx, q1, "amy")
	require.NoError(t, err)
	require.True(t, first)

	first, err = d.First(ctx, q1, "amy")
	require.NoError(t, err)
	require.False(t, first)

	first, err = d.First(ctx, q2, "amy")
	require.NoError(t, err)
	require.True(t, first)
	first, err = d.First(ctx, q1, "bob")
	require.NoError(t, err)
	require.True(t, first)

	m.FastForward(2 * time.Minute)
	first, err = d.First(ctx, q1, "amy")
	require.NoError(t, err)
	require.True(t, first)
}

func TestDeduperWithoutRedisCountsEverything(t *testing.T) {
	d := NewDeduper(nil, time.Minute)
	for i := 0; i < 3; i++ {
		first, err := d.First(context.Background(), primitive.NewObjectID(), "amy")
		require.NoError(t, err)
		require.True(t, first)
	}
}

func TestDeduperSurfacesRedisErrors(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: m.Addr(), MaxRetries: -1})
	m.Close()

	_, err = NewDeduper(client, time.Minute).First(context.Background(), primitive.NewObjectID(), "amy")
	require.Error(t, err)
}
