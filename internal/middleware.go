package internal

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	cookieName    = "rp_token"
	sessionMaxAge = 7 * 24 * time.Hour
)

type sessionClaims struct {
	UserID string `json:"uid"`
	Role   Role   `json:"role"`
	jwt.RegisteredClaims
}

func signSession(secret string, u User) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		UserID: u.DiscordID,
		Role:   u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(sessionMaxAge)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "rp-portal",
		},
	})
	return tok.SignedString([]byte(secret))
}

func Auth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, err := c.Cookie(cookieName)
		if err != nil || tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			return
		}

		tok, err := jwt.ParseWithClaims(tokenStr, &sessionClaims{}, func(token *jwt.Token) (any, error) {
			return []byte(secret), nil
		})
		if err != nil || !tok.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "bad token"})
			return
		}

		cl, ok := tok.Claims.(*sessionClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "bad claims"})
			return
		}

		c.Set("uid", cl.UserID)
		c.Set("role", cl.Role)
		c.Next()
	}
}

// RequireAdmin admits head_admin and owner.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !callerRole(c).Admin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}
		c.Next()
	}
}

// RequireOwner admits the top-level admin only.
func RequireOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		if callerRole(c) != RoleOwner {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "owner access required"})
			return
		}
		c.Next()
	}
}

func uid(c *gin.Context) string {
	v, _ := c.Get("uid")
	id, _ := v.(string)
	return id
}

func callerRole(c *gin.Context) Role {
	v, _ := c.Get("role")
	r, _ := v.(Role)
	return r
}
