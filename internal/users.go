package internal

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func AdminUsers(s Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		users, err := s.ListUsers(c.Request.Context())
		if err != nil {
			fail(c, err)
			return
		}
		if users == nil {
			users = []User{}
		}
		c.JSON(http.StatusOK, users)
	}
}

// UpdateUserRole is the owner-only role override. Roles are only ever
// reassigned, never deleted with the user.
func UpdateUserRole(s Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Role Role `json:"role"`
		}
		if err := c.BindJSON(&req); err != nil {
			fail(c, validationf("bad json"))
			return
		}
		if !ValidRole(req.Role) {
			fail(c, validationf("unknown role %q", req.Role))
			return
		}

		id := c.Param("id")
		if err := s.SetUserRole(c.Request.Context(), id, req.Role); err != nil {
			fail(c, err)
			return
		}
		audit(c, s, uid(c), "set_user_role", "user="+id+" role="+string(req.Role))
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

func StatsHandler(s Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		st, err := s.Stats(c.Request.Context())
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, st)
	}
}
