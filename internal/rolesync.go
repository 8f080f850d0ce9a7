package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// RoleSync mirrors staff ranks into the external role system (the
// community's Discord bot). One attempt per call; callers surface the
// outcome instead of retrying.
type RoleSync struct {
	base string
	http *http.Client
}

func NewRoleSync(base string) *RoleSync {
	return &RoleSync{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: 5 * time.Second},
	}
}

func (r *RoleSync) SyncRank(ctx context.Context, discordID string, rank StaffRank) error {
	if r.base == "" {
		return upstreamf("role sync is not configured")
	}

	body, err := json.Marshal(map[string]string{
		"discord_id": discordID,
		"rank":       string(rank),
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.base+"/roles", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		return upstreamf("role sync unreachable")
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return upstreamf("role sync returned %d", resp.StatusCode)
	}
	return nil
}
