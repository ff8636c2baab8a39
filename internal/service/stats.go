package service

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ntcogk/auth-server/internal/logger"
	"github.com/ntcogk/auth-server/internal/model"
)

const topChurchesLimit = 10

// Stats builds the admin statistics report from the primary user store and
// the optional social-login store.
type Stats struct {
	users  model.UserStore
	social model.SocialUserCounter
	logger *logger.Logger
	now    func() time.Time
}

// NewStats creates a Stats service. social may be nil.
func NewStats(users model.UserStore, social model.SocialUserCounter, logger *logger.Logger) *Stats {
	return &Stats{
		users:  users,
		social: social,
		logger: logger,
		now:    time.Now,
	}
}

// AdminStats runs the primary counts concurrently and fails if any of them
// fails. The social store only degrades the report.
func (s *Stats) AdminStats(ctx context.Context) (model.AdminStats, error) {
	since := s.now().Add(-model.RecentWindow)
	verified, active := true, true

	var (
		stats    model.AdminStats
		churches []model.ChurchCount
		social   model.SocialStats
	)

	g, gctx := errgroup.WithContext(ctx)
	count := func(dst *int64, filter model.UserFilter, what string) {
		g.Go(func() error {
			n, err := s.users.Count(gctx, filter)
			if err != nil {
				return fmt.Errorf("failed to count %s users: %w", what, err)
			}
			*dst = n
			return nil
		})
	}
	count(&stats.TotalUsers, model.UserFilter{}, "total")
	count(&stats.VerifiedUsers, model.UserFilter{Verified: &verified}, "verified")
	count(&stats.ActiveUsers, model.UserFilter{Active: &active}, "active")
	count(&stats.AdminUsers, model.UserFilter{Roles: model.AdminRoles}, "admin")
	count(&stats.RecentRegistrations, model.UserFilter{CreatedSince: &since}, "recent")
	g.Go(func() error {
		var err error
		churches, err = s.users.TopChurches(gctx, topChurchesLimit)
		if err != nil {
			return fmt.Errorf("failed to group users by church: %w", err)
		}
		return nil
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		social = s.socialStats(ctx, since)
	}()

	err := g.Wait()
	<-done
	if err != nil {
		s.logger.Error("Stats service: failed to compute statistics",
			"error", err.Error())
		return model.AdminStats{}, err
	}

	stats.FormAuthUsers = stats.TotalUsers
	stats.SocialAuthUsers = social.TotalUsers
	stats.GoogleUsers = social.GoogleUsers
	stats.SocialAuthAvailable = social.Available

	stats.TotalUsers += social.TotalUsers
	stats.VerifiedUsers += social.VerifiedUsers
	stats.ActiveUsers += social.ActiveUsers
	stats.AdminUsers += social.AdminUsers
	stats.RecentRegistrations += social.RecentRegistrations

	if churches == nil {
		churches = []model.ChurchCount{}
	}
	stats.UsersByChurch = churches

	return stats, nil
}

func (s *Stats) socialStats(ctx context.Context, since time.Time) model.SocialStats {
	if s.social == nil {
		return model.SocialStats{}
	}

	social, err := s.social.SocialStats(ctx, since)
	if err != nil {
		s.logger.Warn("Stats service: social authentication store not available",
			"error", err.Error())
		return model.SocialStats{}
	}
	social.Available = true

	return social
}
