package internal

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBridge records every command it receives and counts player
// snapshot fetches.
type fakeBridge struct {
	srv        *httptest.Server
	playerHits int64
	lastPath   string
	lastBody   map[string]any
}

func newFakeBridge(t *testing.T, players []Player) *fakeBridge {
	t.Helper()
	fb := &fakeBridge{}
	fb.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/players" {
			atomic.AddInt64(&fb.playerHits, 1)
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(players)
			return
		}
		fb.lastPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&fb.lastBody)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(fb.srv.Close)
	return fb
}

func newBridgeEnv(t *testing.T, fb *fakeBridge) (*gin.Engine, *MemStore) {
	t.Helper()
	s := NewMemStore()
	cfg := testConfig()
	base := ""
	if fb != nil {
		base = fb.srv.URL
	}
	r := newRouter(cfg, s, NewAuthService(cfg, s), NewBridgeClient(base), NewRoleSync(""))
	return r, s
}

func TestFivemPlayersProxiedAndCached(t *testing.T) {
	fb := newFakeBridge(t, []Player{
		{ServerID: 1, Name: "Joe_Smith", Ping: 40},
		{ServerID: 7, Name: "Jane_Doe", Ping: 65},
	})
	r, s := newBridgeEnv(t, fb)
	admin := seedUser(t, s, "a1", "Admin", RoleHeadAdmin)

	for i := 0; i < 3; i++ {
		w := doJSON(t, r, http.MethodGet, "/api/fivem/players", nil, cookieFor(t, admin))
		require.Equal(t, http.StatusOK, w.Code)

		var players []Player
		decodeBody(t, w, &players)
		require.Len(t, players, 2)
		assert.Equal(t, "Joe_Smith", players[0].Name)
	}

	// snapshot is cached within the TTL, so three requests hit the
	// bridge once
	assert.Equal(t, int64(1), atomic.LoadInt64(&fb.playerHits))
}

func TestFivemAdminGate(t *testing.T) {
	fb := newFakeBridge(t, nil)
	r, s := newBridgeEnv(t, fb)
	alice := seedUser(t, s, "alice", "Alice", RolePlayer)
	staff := seedUser(t, s, "s1", "Staffer", RoleStaff)

	for _, u := range []User{alice, staff} {
		w := doJSON(t, r, http.MethodGet, "/api/fivem/players", nil, cookieFor(t, u))
		assert.Equal(t, http.StatusForbidden, w.Code, u.DiscordID)
	}
}

func TestFivemCommandForwarded(t *testing.T) {
	fb := newFakeBridge(t, nil)
	r, s := newBridgeEnv(t, fb)
	admin := seedUser(t, s, "a1", "Admin", RoleHeadAdmin)

	w := doJSON(t, r, http.MethodPost, "/api/fivem/give-money", map[string]any{
		"target_id": 12,
		"params":    map[string]any{"account": "bank", "amount": 5000},
	}, cookieFor(t, admin))
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, "/give-money", fb.lastPath)
	assert.Equal(t, "give-money", fb.lastBody["action"])
	assert.Equal(t, float64(12), fb.lastBody["target_id"])
	params, ok := fb.lastBody["params"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "bank", params["account"])
}

func TestFivemCommandValidation(t *testing.T) {
	fb := newFakeBridge(t, nil)
	r, s := newBridgeEnv(t, fb)
	admin := seedUser(t, s, "a1", "Admin", RoleHeadAdmin)

	cases := []struct {
		name   string
		action string
		body   map[string]any
	}{
		{"unknown action", "explode", map[string]any{"target_id": 1}},
		{"missing target", "kick", map[string]any{}},
		{"announce without message", "announce", map[string]any{"params": map[string]any{}}},
		{"announce blank message", "announce", map[string]any{"params": map[string]any{"message": "   "}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(t, r, http.MethodPost, "/api/fivem/"+tc.action, tc.body, cookieFor(t, admin))
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
	assert.Empty(t, fb.lastPath, "no invalid command may reach the bridge")
}

func TestFivemAnnounceNeedsNoTarget(t *testing.T) {
	fb := newFakeBridge(t, nil)
	r, s := newBridgeEnv(t, fb)
	admin := seedUser(t, s, "a1", "Admin", RoleHeadAdmin)

	w := doJSON(t, r, http.MethodPost, "/api/fivem/announce", map[string]any{
		"params": map[string]any{"message": "Server restart in 10 minutes"},
	}, cookieFor(t, admin))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/announce", fb.lastPath)
}

func TestFivemUnconfiguredBridge(t *testing.T) {
	r, s := newBridgeEnv(t, nil)
	admin := seedUser(t, s, "a1", "Admin", RoleHeadAdmin)

	w := doJSON(t, r, http.MethodGet, "/api/fivem/players", nil, cookieFor(t, admin))
	assert.Equal(t, http.StatusBadGateway, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/fivem/kick", map[string]any{"target_id": 3}, cookieFor(t, admin))
	assert.Equal(t, http.StatusBadGateway, w.Code)
}
