package internal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider stands in for Discord: a token endpoint and a user-info
// endpoint whose identity the test can swap out.
func fakeProvider(t *testing.T, identity *map[string]string, tokenStatus *int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if *tokenStatus != http.StatusOK {
			w.WriteHeader(*tokenStatus)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"access_token": "fake-access-token",
			"token_type":   "Bearer",
		})
	})
	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(*identity)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newAuthEnv(t *testing.T) (*MemStore, *AuthService, http.Handler, *map[string]string, *int) {
	t.Helper()
	identity := &map[string]string{"id": "alice", "username": "Alice", "avatar": "abc123"}
	tokenStatus := new(int)
	*tokenStatus = http.StatusOK
	srv := fakeProvider(t, identity, tokenStatus)

	s := NewMemStore()
	cfg := testConfig()
	a := NewAuthService(cfg, s)
	a.oauth.Endpoint.TokenURL = srv.URL + "/token"
	a.userInfoURL = srv.URL + "/me"
	r := newRouter(cfg, s, a, NewBridgeClient(""), NewRoleSync(""))
	return s, a, r, identity, tokenStatus
}

func TestLoginReturnsProviderURL(t *testing.T) {
	_, _, r, _, _ := newAuthEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/login", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp["url"], "response_type=code")
	assert.Contains(t, resp["url"], "scope=identify")
}

func TestCallbackCreatesPlayerAndSetsCookie(t *testing.T) {
	s, _, r, _, _ := newAuthEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/callback?code=good", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var sessionCookie *http.Cookie
	for _, ck := range w.Result().Cookies() {
		if ck.Name == cookieName {
			sessionCookie = ck
		}
	}
	require.NotNil(t, sessionCookie)
	assert.True(t, sessionCookie.HttpOnly)

	u, err := s.GetUser(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, RolePlayer, u.Role)
	assert.Equal(t, "Alice", u.Username)

	// the cookie authenticates /auth/me
	req = httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(sessionCookie)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var me User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	assert.Equal(t, "alice", me.DiscordID)
}

func TestCallbackRefreshesIdentityKeepsRole(t *testing.T) {
	s, _, r, identity, _ := newAuthEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/callback?code=good", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)
	require.NoError(t, s.SetUserRole(context.Background(), "alice", RoleHeadAdmin))

	(*identity)["username"] = "AliceRenamed"
	req = httptest.NewRequest(http.MethodGet, "/api/auth/callback?code=good", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	u, err := s.GetUser(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "AliceRenamed", u.Username)
	assert.Equal(t, RoleHeadAdmin, u.Role)
}

func TestCallbackFailures(t *testing.T) {
	_, _, r, _, tokenStatus := newAuthEnv(t)

	// no code
	req := httptest.NewRequest(http.MethodGet, "/api/auth/callback", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// provider down
	*tokenStatus = http.StatusInternalServerError
	req = httptest.NewRequest(http.MethodGet, "/api/auth/callback?code=good", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestLogoutClearsCookie(t *testing.T) {
	_, _, r, _, _ := newAuthEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	setCookie := w.Header().Get("Set-Cookie")
	assert.True(t, strings.Contains(setCookie, cookieName+"="))
	assert.Contains(t, setCookie, "Max-Age=0")
}
