package internal

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"rp-portal/internal/logging"
)

// audit appends to the trail best-effort; a failed write never fails
// the action that produced it.
func audit(c *gin.Context, s Store, actorID, action, details string) {
	ctx := c.Request.Context()
	err := s.AppendAudit(ctx, AuditEntry{ActorID: actorID, Action: action, Details: details})
	if err != nil {
		logging.FromContext(ctx).Warnw("audit write failed", "action", action, "error", err)
	}
}

// AdminLogs returns the newest audit entries.
func AdminLogs(s Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 200
		if v := c.Query("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
				limit = n
			}
		}
		entries, err := s.ListAudit(c.Request.Context(), limit)
		if err != nil {
			fail(c, err)
			return
		}
		if entries == nil {
			entries = []AuditEntry{}
		}
		c.JSON(http.StatusOK, entries)
	}
}
