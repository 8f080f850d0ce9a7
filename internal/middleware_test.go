package internal

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthRejectsMissingOrBadCookie(t *testing.T) {
	r, _ := newTestEnv(t)

	w := doJSON(t, r, http.MethodGet, "/api/applications", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/applications", nil,
		&http.Cookie{Name: cookieName, Value: "not-a-jwt"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthRejectsWrongSecret(t *testing.T) {
	r, s := newTestEnv(t)
	alice := seedUser(t, s, "alice", "Alice", RolePlayer)

	tok, err := signSession("some-other-secret", alice)
	require.NoError(t, err)
	w := doJSON(t, r, http.MethodGet, "/api/applications", nil,
		&http.Cookie{Name: cookieName, Value: tok})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminGate(t *testing.T) {
	r, s := newTestEnv(t)
	alice := seedUser(t, s, "alice", "Alice", RolePlayer)
	staffer := seedUser(t, s, "s1", "Staffer", RoleStaff)
	admin := seedUser(t, s, "a1", "Admin", RoleHeadAdmin)

	for _, u := range []User{alice, staffer} {
		w := doJSON(t, r, http.MethodGet, "/api/users", nil, cookieFor(t, u))
		assert.Equal(t, http.StatusForbidden, w.Code, u.DiscordID)
	}
	w := doJSON(t, r, http.MethodGet, "/api/users", nil, cookieFor(t, admin))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestOwnerGateBlocksHeadAdmin(t *testing.T) {
	r, s := newTestEnv(t)
	admin := seedUser(t, s, "a1", "Admin", RoleHeadAdmin)
	owner := seedUser(t, s, "o1", "Owner", RoleOwner)
	seedUser(t, s, "alice", "Alice", RolePlayer)

	w := doJSON(t, r, http.MethodPut, "/api/users/alice/role",
		map[string]any{"role": "staff"}, cookieFor(t, admin))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, r, http.MethodPut, "/api/users/alice/role",
		map[string]any{"role": "staff"}, cookieFor(t, owner))
	assert.Equal(t, http.StatusOK, w.Code)
}
