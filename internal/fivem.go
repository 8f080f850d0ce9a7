package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// fivemActions is the closed set of commands the bridge accepts.
var fivemActions = map[string]bool{
	"kick":        true,
	"ban":         true,
	"revive":      true,
	"heal":        true,
	"teleport":    true,
	"give-money":  true,
	"set-job":     true,
	"give-item":   true,
	"give-weapon": true,
	"announce":    true,
}

const playerCacheTTL = 5 * time.Second

// BridgeClient talks to the game-server command bridge. The player
// snapshot is cached briefly so a panel polling every second does not
// hammer the game server; refresh cadence beyond the TTL stays with
// the caller. Commands are fire-and-forget, one attempt.
type BridgeClient struct {
	base    string
	http    *http.Client
	players *expirable.LRU[string, []Player]
}

func NewBridgeClient(base string) *BridgeClient {
	return &BridgeClient{
		base:    strings.TrimRight(base, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		players: expirable.NewLRU[string, []Player](4, nil, playerCacheTTL),
	}
}

func (b *BridgeClient) Players(ctx context.Context) ([]Player, error) {
	if b.base == "" {
		return nil, upstreamf("game server bridge is not configured")
	}
	if cached, ok := b.players.Get(b.base); ok {
		return cached, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.base+"/players", nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.http.Do(req)
	if err != nil {
		return nil, upstreamf("game server bridge unreachable")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, upstreamf("game server bridge returned %d", resp.StatusCode)
	}

	var players []Player
	if err := json.NewDecoder(resp.Body).Decode(&players); err != nil {
		return nil, upstreamf("bad player list from bridge")
	}
	b.players.Add(b.base, players)
	return players, nil
}

func (b *BridgeClient) Command(ctx context.Context, action string, targetID int, params map[string]any) error {
	if b.base == "" {
		return upstreamf("game server bridge is not configured")
	}

	body, err := json.Marshal(gin.H{
		"action":    action,
		"target_id": targetID,
		"params":    params,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.base+"/"+action, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.http.Do(req)
	if err != nil {
		return upstreamf("game server bridge unreachable")
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return upstreamf("game server bridge returned %d", resp.StatusCode)
	}
	return nil
}

func FivemPlayers(b *BridgeClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		players, err := b.Players(c.Request.Context())
		if err != nil {
			fail(c, err)
			return
		}
		if players == nil {
			players = []Player{}
		}
		c.JSON(http.StatusOK, players)
	}
}

// FivemCommand collapses the panel's multi-step prompts into one
// structured request: {target_id, params} against a named action.
func FivemCommand(s Store, b *BridgeClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		action := c.Param("action")
		if !fivemActions[action] {
			fail(c, validationf("unknown action %q", action))
			return
		}

		var req struct {
			TargetID int            `json:"target_id"`
			Params   map[string]any `json:"params"`
		}
		if err := c.BindJSON(&req); err != nil {
			fail(c, validationf("bad json"))
			return
		}
		if action != "announce" && req.TargetID <= 0 {
			fail(c, validationf("target_id is required"))
			return
		}
		if action == "announce" {
			if msg, _ := req.Params["message"].(string); strings.TrimSpace(msg) == "" {
				fail(c, validationf("params.message is required"))
				return
			}
		}

		if err := b.Command(c.Request.Context(), action, req.TargetID, req.Params); err != nil {
			fail(c, err)
			return
		}
		audit(c, s, uid(c), "fivem_command", "action="+action)
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}
