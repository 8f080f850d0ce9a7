package internal

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"rp-portal/internal/logging"
)

// ListApplicationTypes is public: applicants browse forms before logging in.
func ListApplicationTypes(s Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		types, err := s.ListApplicationTypes(c.Request.Context())
		if err != nil {
			fail(c, err)
			return
		}
		if types == nil {
			types = []ApplicationType{}
		}
		c.JSON(http.StatusOK, types)
	}
}

func CreateApplicationType(s Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Name        string     `json:"name"`
			Description string     `json:"description"`
			Icon        string     `json:"icon"`
			Color       string     `json:"color"`
			Track       Track      `json:"track"`
			Questions   []Question `json:"questions"`
		}
		if err := c.BindJSON(&req); err != nil {
			fail(c, validationf("bad json"))
			return
		}
		if req.Name == "" || req.Description == "" {
			fail(c, validationf("name and description are required"))
			return
		}
		if len(req.Questions) == 0 {
			fail(c, validationf("at least one question is required"))
			return
		}
		if req.Track == "" {
			req.Track = TrackWhitelist
		}
		if req.Track != TrackStaff && req.Track != TrackWhitelist {
			fail(c, validationf("track must be staff or whitelist"))
			return
		}
		for i := range req.Questions {
			q := &req.Questions[i]
			if q.Label == "" {
				fail(c, validationf("question %d is missing a label", i+1))
				return
			}
			if q.Kind == "" {
				q.Kind = QuestionShortText
			}
			if !ValidQuestionKind(q.Kind) {
				fail(c, validationf("question %q has unknown kind %q", q.Label, q.Kind))
				return
			}
			if q.ID == "" {
				q.ID = uuid.NewString()
			}
		}

		t := ApplicationType{
			ID:          uuid.NewString(),
			Name:        req.Name,
			Description: req.Description,
			Icon:        req.Icon,
			Color:       req.Color,
			Track:       req.Track,
			Questions:   req.Questions,
			CreatedBy:   uid(c),
			CreatedAt:   time.Now().UTC(),
		}
		if err := s.CreateApplicationType(c.Request.Context(), t); err != nil {
			fail(c, err)
			return
		}
		audit(c, s, uid(c), "create_application_type", t.Name)
		c.JSON(http.StatusOK, t)
	}
}

func DeleteApplicationType(s Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if err := s.DeleteApplicationType(c.Request.Context(), id); err != nil {
			fail(c, err)
			return
		}
		audit(c, s, uid(c), "delete_application_type", "type_id="+id)
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

func SubmitApplication(s Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			ApplicationTypeID string            `json:"application_type_id"`
			Answers           map[string]string `json:"answers"`
		}
		if err := c.BindJSON(&req); err != nil {
			fail(c, validationf("bad json"))
			return
		}

		if req.Answers == nil {
			req.Answers = map[string]string{}
		}

		ctx := c.Request.Context()
		t, err := s.GetApplicationType(ctx, req.ApplicationTypeID)
		if err != nil {
			fail(c, err)
			return
		}
		for _, q := range t.Questions {
			if q.Required && strings.TrimSpace(req.Answers[q.ID]) == "" {
				fail(c, validationf("answer required for %q", q.Label))
				return
			}
		}

		caller, err := s.GetUser(ctx, uid(c))
		if err != nil {
			fail(c, err)
			return
		}

		app := Application{
			ID:                uuid.NewString(),
			UserID:            caller.DiscordID,
			Username:          caller.Username,
			ApplicationTypeID: t.ID,
			TypeName:          t.Name,
			Track:             t.Track,
			Answers:           req.Answers,
			Status:            AppPending,
			SubmittedAt:       time.Now().UTC(),
		}
		if err := s.CreateApplication(ctx, app); err != nil {
			fail(c, err)
			return
		}
		audit(c, s, caller.DiscordID, "submit_application", "type="+t.Name)
		c.JSON(http.StatusOK, app)
	}
}

// ListApplications scopes server-side: admins get everything, everyone
// else only their own.
func ListApplications(s Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		filterUser := uid(c)
		if callerRole(c).Admin() {
			filterUser = ""
		}
		apps, err := s.ListApplications(c.Request.Context(), filterUser)
		if err != nil {
			fail(c, err)
			return
		}
		if apps == nil {
			apps = []Application{}
		}
		c.JSON(http.StatusOK, apps)
	}
}

func SearchApplications(s Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := strings.ToLower(strings.TrimSpace(c.Query("q")))
		apps, err := s.ListApplications(c.Request.Context(), "")
		if err != nil {
			fail(c, err)
			return
		}
		out := []Application{}
		for _, a := range apps {
			if q == "" ||
				strings.Contains(strings.ToLower(a.Username), q) ||
				strings.Contains(strings.ToLower(a.TypeName), q) {
				out = append(out, a)
			}
		}
		c.JSON(http.StatusOK, out)
	}
}

// ReviewApplication settles a pending application. Approving a
// staff-track application also calls into the staff engine to promote
// the applicant and seat them on a team; that call is best-effort and
// its failure is surfaced as a warning, never rolled back.
func ReviewApplication(s Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Status AppStatus `json:"status"`
		}
		if err := c.BindJSON(&req); err != nil {
			fail(c, validationf("bad json"))
			return
		}
		if req.Status != AppApproved && req.Status != AppRejected {
			fail(c, validationf("status must be approved or rejected"))
			return
		}

		ctx := c.Request.Context()
		app, err := s.ReviewApplication(ctx, c.Param("id"), req.Status, uid(c))
		if err != nil {
			fail(c, err)
			return
		}
		audit(c, s, uid(c), "review_application",
			"app_id="+app.ID+" status="+string(req.Status))

		resp := gin.H{"success": true, "status": app.Status}
		if req.Status == AppApproved && app.Track == TrackStaff {
			if err := seatNewStaff(ctx, s, app.UserID); err != nil {
				logging.FromContext(ctx).Warnw("team assignment after approval failed",
					"app_id", app.ID, "user_id", app.UserID, "error", err)
				resp["warning"] = "application approved, but team assignment failed: " + err.Error()
			}
		}
		c.JSON(http.StatusOK, resp)
	}
}
