package handler

import (
	"net/http"

	"github.com/ntcogk/auth-server/internal/api/http/response"
	"github.com/ntcogk/auth-server/internal/apierror"
	"github.com/ntcogk/auth-server/internal/logger"
)

// Admin handles administrator endpoints. Role checks happen in the
// router.
type Admin struct {
	statsService StatsService
	logger       *logger.Logger
}

// NewAdmin creates a new Admin handler.
func NewAdmin(statsService StatsService, logger *logger.Logger) *Admin {
	return &Admin{statsService: statsService, logger: logger}
}

// Stats handles GET /admin/stats.
func (h *Admin) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.statsService.AdminStats(r.Context())
	if err != nil {
		response.Error(w, h.logger, apierror.Internal(err, "Failed to get statistics"), "")
		return
	}

	response.OK(w, http.StatusOK, "", stats)
}
