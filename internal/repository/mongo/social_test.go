package mongo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type fakeCounter struct {
	counts  map[string]int64
	err     error
	filters []bson.M
}

func (f *fakeCounter) CountDocuments(_ context.Context, filter interface{}, _ ...*options.CountOptions) (int64, error) {
	m := filter.(bson.M)
	f.filters = append(f.filters, m)
	if f.err != nil {
		return 0, f.err
	}
	for key := range m {
		return f.counts[key], nil
	}
	return f.counts[""], nil
}

func TestSocialUserRepository_SocialStats(t *testing.T) {
	since := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("maps each count", func(t *testing.T) {
		counter := &fakeCounter{counts: map[string]int64{
			"":                10,
			"isEmailVerified": 8,
			"isActive":        9,
			"role":            1,
			"provider":        7,
			"createdAt":       3,
		}}
		repo := &SocialUserRepository{collection: counter, timeout: time.Second}

		stats, err := repo.SocialStats(context.Background(), since)
		require.NoError(t, err)
		assert.True(t, stats.Available)
		assert.Equal(t, int64(10), stats.TotalUsers)
		assert.Equal(t, int64(8), stats.VerifiedUsers)
		assert.Equal(t, int64(9), stats.ActiveUsers)
		assert.Equal(t, int64(1), stats.AdminUsers)
		assert.Equal(t, int64(7), stats.GoogleUsers)
		assert.Equal(t, int64(3), stats.RecentRegistrations)
		assert.Len(t, counter.filters, 6)
	})

	t.Run("count error", func(t *testing.T) {
		repo := &SocialUserRepository{collection: &fakeCounter{err: errors.New("no server")}}

		stats, err := repo.SocialStats(context.Background(), since)
		require.Error(t, err)
		assert.False(t, stats.Available)
		assert.Contains(t, err.Error(), "failed to count total social users")
	})
}

func TestStatFilters(t *testing.T) {
	since := time.Now()
	filters := statFilters(since)

	byName := make(map[string]bson.M, len(filters))
	for _, f := range filters {
		byName[f.name] = f.filter
	}

	assert.Empty(t, byName["total"])
	assert.Equal(t, bson.M{"isEmailVerified": true}, byName["verified"])
	assert.Equal(t, bson.M{"role": bson.M{"$in": bson.A{"admin", "super-admin"}}}, byName["admin"])
	assert.Equal(t, bson.M{"provider": "google"}, byName["google"])
	assert.Equal(t, bson.M{"createdAt": bson.M{"$gte": since}}, byName["recent"])
}

func TestSocialUserRepository_CloseWithoutClient(t *testing.T) {
	repo := &SocialUserRepository{}
	assert.NoError(t, repo.Close(context.Background()))
}

func TestConnect_UnreachableServer(t *testing.T) {
	ctx := context.Background()

	// Nothing listens on port 1; the client is still built.
	repo, err := Connect(ctx, "mongodb://127.0.0.1:1/?connect=direct", "social", "users", 200*time.Millisecond)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close(context.Background()) })

	require.Error(t, repo.Ping(ctx))

	stats, err := repo.SocialStats(ctx, time.Now())
	require.Error(t, err)
	assert.False(t, stats.Available)
}

func TestConnect_MalformedURI(t *testing.T) {
	_, err := Connect(context.Background(), "not-a-mongo-uri", "social", "users", time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to mongo")
}
