package internal

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func SubmitReport(s Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			ReportedPlayer string `json:"reported_player"`
			ReportType     string `json:"report_type"`
			Description    string `json:"description"`
			Evidence       string `json:"evidence"`
		}
		if err := c.BindJSON(&req); err != nil {
			fail(c, validationf("bad json"))
			return
		}
		if strings.TrimSpace(req.ReportedPlayer) == "" {
			fail(c, validationf("reported_player is required"))
			return
		}
		if req.ReportType == "" {
			fail(c, validationf("report_type is required"))
			return
		}
		if !ValidReportType(req.ReportType) {
			fail(c, validationf("unknown report type %q", req.ReportType))
			return
		}
		if strings.TrimSpace(req.Description) == "" {
			fail(c, validationf("description is required"))
			return
		}

		ctx := c.Request.Context()
		caller, err := s.GetUser(ctx, uid(c))
		if err != nil {
			fail(c, err)
			return
		}

		rep := Report{
			ID:             uuid.NewString(),
			ReporterID:     caller.DiscordID,
			ReporterName:   caller.Username,
			ReportedPlayer: req.ReportedPlayer,
			ReportType:     req.ReportType,
			Description:    req.Description,
			Evidence:       req.Evidence,
			Status:         ReportPending,
			CreatedAt:      time.Now().UTC(),
		}
		if err := s.CreateReport(ctx, rep); err != nil {
			fail(c, err)
			return
		}
		audit(c, s, caller.DiscordID, "submit_report", "reported="+req.ReportedPlayer)
		c.JSON(http.StatusOK, rep)
	}
}

func ListReports(s Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		filterUser := uid(c)
		if callerRole(c).Admin() {
			filterUser = ""
		}
		reports, err := s.ListReports(c.Request.Context(), filterUser)
		if err != nil {
			fail(c, err)
			return
		}
		if reports == nil {
			reports = []Report{}
		}
		c.JSON(http.StatusOK, reports)
	}
}

// UpdateReport advances the report state machine. Terminal states are
// sticky; there is no path back to pending.
func UpdateReport(s Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Status     ReportStatus `json:"status"`
			AdminNotes string       `json:"admin_notes"`
		}
		if err := c.BindJSON(&req); err != nil {
			fail(c, validationf("bad json"))
			return
		}
		if !ValidReportStatus(req.Status) {
			fail(c, validationf("unknown report status %q", req.Status))
			return
		}

		ctx := c.Request.Context()
		rep, err := s.GetReport(ctx, c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		if !rep.Status.CanTransitionTo(req.Status) {
			fail(c, invalidStatef("cannot move report from %s to %s", rep.Status, req.Status))
			return
		}

		rep.Status = req.Status
		rep.AdminNotes = req.AdminNotes
		rep.HandledBy = uid(c)
		if err := s.UpdateReport(ctx, rep); err != nil {
			fail(c, err)
			return
		}
		audit(c, s, uid(c), "update_report",
			"report_id="+rep.ID+" status="+string(req.Status))
		c.JSON(http.StatusOK, rep)
	}
}
