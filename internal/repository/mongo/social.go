// Package mongo reads aggregate counts from the social-login user store.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ntcogk/auth-server/internal/model"
)

var _ model.SocialUserCounter = (*SocialUserRepository)(nil)

// documentCounter is the subset of *mongo.Collection used here.
type documentCounter interface {
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
}

// SocialUserRepository counts documents in the social-login users collection.
type SocialUserRepository struct {
	client     *mongo.Client
	collection documentCounter
	timeout    time.Duration
}

// Connect creates a client for uri. The driver dials lazily and keeps
// reconnecting in the background, so an unreachable server is not an error
// here: every SocialStats call finds out on its own whether the store is up.
//
// Parameters:
//   - ctx: bounds client construction
//   - uri: MongoDB connection string
//   - database, collection: where social-login users are stored
//   - timeout: server selection and per-call deadline for count queries
//
// Returns an error only when the client cannot be built, e.g. a malformed URI.
func Connect(ctx context.Context, uri, database, collection string, timeout time.Duration) (*SocialUserRepository, error) {
	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	return &SocialUserRepository{
		client:     client,
		collection: client.Database(database).Collection(collection),
		timeout:    timeout,
	}, nil
}

// Ping reports whether the server is reachable right now.
func (r *SocialUserRepository) Ping(ctx context.Context) error {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	return r.client.Ping(ctx, nil)
}

// Close disconnects the underlying client.
func (r *SocialUserRepository) Close(ctx context.Context) error {
	if r.client == nil {
		return nil
	}
	return r.client.Disconnect(ctx)
}

// SocialStats runs one count per statistic. Any failure is returned as is;
// callers decide whether the social store is optional.
func (r *SocialUserRepository) SocialStats(ctx context.Context, since time.Time) (model.SocialStats, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	stats := model.SocialStats{Available: true}
	for _, f := range statFilters(since) {
		n, err := r.collection.CountDocuments(ctx, f.filter)
		if err != nil {
			return model.SocialStats{}, fmt.Errorf("failed to count %s social users: %w", f.name, err)
		}
		*f.target(&stats) = n
	}

	return stats, nil
}

type statFilter struct {
	name   string
	filter bson.M
	target func(*model.SocialStats) *int64
}

func statFilters(since time.Time) []statFilter {
	admins := make(bson.A, 0, len(model.AdminRoles))
	for _, role := range model.AdminRoles {
		admins = append(admins, string(role))
	}

	return []statFilter{
		{"total", bson.M{}, func(s *model.SocialStats) *int64 { return &s.TotalUsers }},
		{"verified", bson.M{"isEmailVerified": true}, func(s *model.SocialStats) *int64 { return &s.VerifiedUsers }},
		{"active", bson.M{"isActive": true}, func(s *model.SocialStats) *int64 { return &s.ActiveUsers }},
		{"admin", bson.M{"role": bson.M{"$in": admins}}, func(s *model.SocialStats) *int64 { return &s.AdminUsers }},
		{"google", bson.M{"provider": "google"}, func(s *model.SocialStats) *int64 { return &s.GoogleUsers }},
		{"recent", bson.M{"createdAt": bson.M{"$gte": since}}, func(s *model.SocialStats) *int64 { return &s.RecentRegistrations }},
	}
}
