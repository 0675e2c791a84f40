package database

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestIndexesMakeUserFieldsUnique(t *testing.T) {
	unique := map[string]bool{}
	for _, m := range Indexes()[Users] {
		keys := m.Keys.(bson.D)
		if m.Options != nil && m.Options.Unique != nil && *m.Options.Unique {
			unique[keys[0].Key] = true
		}
	}
	require.Equal(t, map[string]bool{"username": true, "email": true}, unique)
}

func TestIndexesCoverListingOrders(t *testing.T) {
	covered := map[string]bool{}
	for _, m := range Indexes()[Questions] {
		keys := m.Keys.(bson.D)
		if len(keys) == 2 && keys[1].Key == "_id" {
			covered[keys[0].Key] = true
		}
	}
	for _, f := range []string{"upvotes", "sorter.uvc", "sorter.uvac"} {
		require.True(t, covered[f], f)
	}
}
