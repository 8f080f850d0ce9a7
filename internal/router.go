package internal

import (
	"time"

	"github.com/gin-gonic/gin"

	"rp-portal/internal/logging"
)

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logging.FromContext(c.Request.Context()).Infow("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}

// NewRouter wires the full API surface. Role gates are enforced here
// server-side; hiding panels in the UI is never the access control.
func NewRouter(cfg Config, s Store) *gin.Engine {
	authSvc := NewAuthService(cfg, s)
	bridge := NewBridgeClient(cfg.FivemBridgeURL)
	roleSync := NewRoleSync(cfg.RoleSyncURL)
	return newRouter(cfg, s, authSvc, bridge, roleSync)
}

func newRouter(cfg Config, s Store, authSvc *AuthService, bridge *BridgeClient, roleSync *RoleSync) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	api := r.Group("/api")
	{
		api.GET("/auth/login", authSvc.Login)
		api.GET("/auth/callback", authSvc.Callback)
		api.GET("/auth/me", Auth(cfg.JWTSecret), authSvc.Me)
		api.POST("/auth/logout", authSvc.Logout)

		api.GET("/application-types", ListApplicationTypes(s))
		api.POST("/application-types", Auth(cfg.JWTSecret), RequireAdmin(), CreateApplicationType(s))
		api.DELETE("/application-types/:id", Auth(cfg.JWTSecret), RequireAdmin(), DeleteApplicationType(s))

		api.GET("/applications", Auth(cfg.JWTSecret), ListApplications(s))
		api.POST("/applications", Auth(cfg.JWTSecret), SubmitApplication(s))
		api.GET("/applications/search", Auth(cfg.JWTSecret), RequireAdmin(), SearchApplications(s))
		api.POST("/applications/:id/review", Auth(cfg.JWTSecret), RequireAdmin(), ReviewApplication(s))

		api.GET("/reports", Auth(cfg.JWTSecret), ListReports(s))
		api.POST("/reports", Auth(cfg.JWTSecret), SubmitReport(s))
		api.PUT("/reports/:id", Auth(cfg.JWTSecret), RequireAdmin(), UpdateReport(s))

		// head-admin discipline panel; per-team authorization happens
		// in the handlers
		staff := api.Group("/staff", Auth(cfg.JWTSecret), RequireAdmin())
		{
			staff.GET("", ListStaff(s))
			staff.GET("/my-team", MyTeam(s))
			staff.POST("/my-team/members/:id/strike", AddStrike(s))
			staff.POST("/my-team/members/:id/note", AddNote(s))
			staff.POST("/my-team/members/:id/uprank", Uprank(s, roleSync))
			staff.DELETE("/my-team/members/:id", RemoveMember(s))
		}

		api.GET("/staff-teams", Auth(cfg.JWTSecret), RequireAdmin(), ListTeams(s))
		api.POST("/staff-teams", Auth(cfg.JWTSecret), RequireOwner(), CreateTeam(s))
		api.DELETE("/staff-teams/:id", Auth(cfg.JWTSecret), RequireOwner(), DeleteTeam(s))
		api.POST("/add-staff", Auth(cfg.JWTSecret), RequireOwner(), AddStaff(s))
		api.POST("/super-admin/strikes/remove/:id", Auth(cfg.JWTSecret), RequireOwner(), RemoveStrikeHandler(s))

		api.GET("/users", Auth(cfg.JWTSecret), RequireAdmin(), AdminUsers(s))
		api.PUT("/users/:id/role", Auth(cfg.JWTSecret), RequireOwner(), UpdateUserRole(s))
		api.GET("/stats", Auth(cfg.JWTSecret), RequireAdmin(), StatsHandler(s))

		fivem := api.Group("/fivem", Auth(cfg.JWTSecret), RequireAdmin())
		{
			fivem.GET("/players", FivemPlayers(bridge))
			fivem.POST("/:action", FivemCommand(s, bridge))
		}

		admin := api.Group("/admin", Auth(cfg.JWTSecret), RequireAdmin())
		{
			admin.GET("/logs", AdminLogs(s))
		}
	}

	return r
}
