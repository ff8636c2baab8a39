package model

import (
	"context"
	"time"
)

// RecentWindow bounds "recent registrations".
const RecentWindow = 7 * 24 * time.Hour

// SocialUserCounter reports aggregate counts from the social-login user
// store, which lives outside this service.
type SocialUserCounter interface {
	SocialStats(ctx context.Context, since time.Time) (SocialStats, error)
}

// SocialStats holds counts from the social-login store. Available is false
// when the store could not be queried; all counts are zero then.
type SocialStats struct {
	Available           bool
	TotalUsers          int64
	VerifiedUsers       int64
	ActiveUsers         int64
	AdminUsers          int64
	RecentRegistrations int64
	GoogleUsers         int64
}

// AdminStats is the combined statistics report.
type AdminStats struct {
	TotalUsers          int64         `json:"totalUsers"`
	VerifiedUsers       int64         `json:"verifiedUsers"`
	ActiveUsers         int64         `json:"activeUsers"`
	AdminUsers          int64         `json:"adminUsers"`
	RecentRegistrations int64         `json:"recentRegistrations"`
	FormAuthUsers       int64         `json:"formAuthUsers"`
	SocialAuthUsers     int64         `json:"socialAuthUsers"`
	GoogleUsers         int64         `json:"googleUsers"`
	SocialAuthAvailable bool          `json:"socialAuthAvailable"`
	UsersByChurch       []ChurchCount `json:"usersByChurch"`
}
