package internal

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"rp-portal/internal/logging"
)

// seatNewStaff is the cross-engine call made when a staff-track
// application is approved: promote the applicant to staff and seat
// them on the least-loaded team. Callers treat failure as a warning.
func seatNewStaff(ctx context.Context, s Store, userID string) error {
	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if u.Role == RolePlayer {
		if err := s.SetUserRole(ctx, userID, RoleStaff); err != nil {
			return err
		}
	}
	if u.StaffRank == "" {
		if err := s.SetStaffRank(ctx, userID, RankModElev); err != nil {
			return err
		}
	}

	teams, err := s.ListTeams(ctx)
	if err != nil {
		return err
	}
	if len(teams) == 0 {
		return fmt.Errorf("no staff teams exist")
	}
	target := teams[0]
	for _, t := range teams[1:] {
		if len(t.Members) < len(target.Members) {
			target = t
		}
	}
	return s.AssignMember(ctx, target.ID, userID)
}

// memberForAction loads the :id member and enforces the discipline
// authorization rule: the caller must head the member's team, or be
// the owner.
func memberForAction(c *gin.Context, s Store) (User, StaffTeam, error) {
	ctx := c.Request.Context()
	member, err := s.GetUser(ctx, c.Param("id"))
	if err != nil {
		return User{}, StaffTeam{}, err
	}
	if !member.Role.Staff() {
		return User{}, StaffTeam{}, validationf("user is not a staff member")
	}

	if member.TeamID == "" {
		if callerRole(c) == RoleOwner {
			return member, StaffTeam{}, nil
		}
		return User{}, StaffTeam{}, forbiddenf("member is not on your team")
	}
	team, err := s.GetTeam(ctx, member.TeamID)
	if err != nil {
		return User{}, StaffTeam{}, err
	}
	if callerRole(c) != RoleOwner && team.HeadAdminID != uid(c) {
		return User{}, StaffTeam{}, forbiddenf("you are not the head admin of this member's team")
	}
	return member, team, nil
}

// ListStaff is the admin roster: everyone holding a staff role.
func ListStaff(s Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		users, err := s.ListUsers(c.Request.Context())
		if err != nil {
			fail(c, err)
			return
		}
		out := []User{}
		for _, u := range users {
			if u.Role.Staff() {
				out = append(out, u)
			}
		}
		c.JSON(http.StatusOK, out)
	}
}

// MyTeam returns the team the caller heads, with member details.
func MyTeam(s Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		team, err := s.TeamByHead(ctx, uid(c))
		if err != nil {
			fail(c, err)
			return
		}
		members := []User{}
		for _, id := range team.Members {
			u, err := s.GetUser(ctx, id)
			if err != nil {
				continue
			}
			members = append(members, u)
		}
		c.JSON(http.StatusOK, gin.H{"team": team, "members": members})
	}
}

// AddStrike increments a member's strike counter, capped at 3. The
// third strike raises requires_firing: a signal for a separate
// owner-level decision, the engine itself never removes anyone.
func AddStrike(s Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Reason string `json:"reason"`
		}
		if err := c.BindJSON(&req); err != nil || req.Reason == "" {
			fail(c, validationf("reason is required"))
			return
		}

		member, _, err := memberForAction(c, s)
		if err != nil {
			fail(c, err)
			return
		}

		note := StaffNote{
			Text:    "Strike: " + req.Reason,
			AddedBy: uid(c),
			AddedAt: time.Now().UTC(),
		}
		strikes, incremented, err := s.AddStrike(c.Request.Context(), member.DiscordID, note)
		if err != nil {
			fail(c, err)
			return
		}
		audit(c, s, uid(c), "add_strike",
			fmt.Sprintf("member=%s strikes=%d", member.DiscordID, strikes))
		c.JSON(http.StatusOK, gin.H{
			"success":         true,
			"strikes":         strikes,
			"requires_firing": incremented && strikes == maxStrikes,
		})
	}
}

func AddNote(s Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Note string `json:"note"`
		}
		if err := c.BindJSON(&req); err != nil || req.Note == "" {
			fail(c, validationf("note is required"))
			return
		}

		member, _, err := memberForAction(c, s)
		if err != nil {
			fail(c, err)
			return
		}

		note := StaffNote{Text: req.Note, AddedBy: uid(c), AddedAt: time.Now().UTC()}
		if err := s.AddNote(c.Request.Context(), member.DiscordID, note); err != nil {
			fail(c, err)
			return
		}
		audit(c, s, uid(c), "add_note", "member="+member.DiscordID)
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// Uprank moves a member strictly up the rank ladder and mirrors the
// change to the external role system. The mirror result is surfaced as
// discord_synced; a failed mirror does not roll back the rank.
func Uprank(s Store, rs *RoleSync) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			NewRank StaffRank `json:"new_rank"`
		}
		if err := c.BindJSON(&req); err != nil {
			fail(c, validationf("bad json"))
			return
		}
		if !ValidRank(req.NewRank) {
			fail(c, validationf("unknown rank %q", req.NewRank))
			return
		}

		member, _, err := memberForAction(c, s)
		if err != nil {
			fail(c, err)
			return
		}
		if !req.NewRank.Above(member.StaffRank) {
			fail(c, validationf("new rank must be higher than the current rank"))
			return
		}

		ctx := c.Request.Context()
		if err := s.SetStaffRank(ctx, member.DiscordID, req.NewRank); err != nil {
			fail(c, err)
			return
		}

		synced := true
		if err := rs.SyncRank(ctx, member.DiscordID, req.NewRank); err != nil {
			synced = false
			logging.FromContext(ctx).Warnw("discord role sync failed",
				"member", member.DiscordID, "rank", req.NewRank, "error", err)
		}

		audit(c, s, uid(c), "uprank",
			fmt.Sprintf("member=%s rank=%s", member.DiscordID, req.NewRank))
		c.JSON(http.StatusOK, gin.H{
			"success":        true,
			"new_rank":       req.NewRank,
			"discord_synced": synced,
		})
	}
}

// RemoveMember detaches a member from the team. Strikes and notes stay
// on the user record.
func RemoveMember(s Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		member, team, err := memberForAction(c, s)
		if err != nil {
			fail(c, err)
			return
		}
		if team.ID == "" {
			fail(c, validationf("member is not on a team"))
			return
		}
		if err := s.RemoveMember(c.Request.Context(), team.ID, member.DiscordID); err != nil {
			fail(c, err)
			return
		}
		audit(c, s, uid(c), "remove_member",
			"member="+member.DiscordID+" team="+team.ID)
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

func ListTeams(s Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		teams, err := s.ListTeams(c.Request.Context())
		if err != nil {
			fail(c, err)
			return
		}
		if teams == nil {
			teams = []StaffTeam{}
		}
		c.JSON(http.StatusOK, teams)
	}
}

func CreateTeam(s Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Name        string `json:"name"`
			Description string `json:"description"`
			HeadAdminID string `json:"head_admin_id"`
		}
		if err := c.BindJSON(&req); err != nil {
			fail(c, validationf("bad json"))
			return
		}
		if req.Name == "" || req.Description == "" {
			fail(c, validationf("name and description are required"))
			return
		}

		ctx := c.Request.Context()
		head, err := s.GetUser(ctx, req.HeadAdminID)
		if err != nil {
			fail(c, validationf("head admin does not exist"))
			return
		}
		if !head.Role.Admin() {
			fail(c, validationf("head admin must hold the head_admin role"))
			return
		}

		team := StaffTeam{
			ID:          uuid.NewString(),
			Name:        req.Name,
			Description: req.Description,
			HeadAdminID: head.DiscordID,
			Members:     []string{},
			CreatedAt:   time.Now().UTC(),
		}
		if err := s.CreateTeam(ctx, team); err != nil {
			fail(c, err)
			return
		}
		audit(c, s, uid(c), "create_staff_team", team.Name)
		c.JSON(http.StatusOK, team)
	}
}

func DeleteTeam(s Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if err := s.DeleteTeam(c.Request.Context(), id); err != nil {
			fail(c, err)
			return
		}
		audit(c, s, uid(c), "delete_staff_team", "team_id="+id)
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// AddStaff seats an existing user on a team directly, promoting them
// to staff when needed.
func AddStaff(s Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			DiscordID string    `json:"discord_id"`
			TeamID    string    `json:"team_id"`
			StaffRank StaffRank `json:"staff_rank"`
		}
		if err := c.BindJSON(&req); err != nil {
			fail(c, validationf("bad json"))
			return
		}
		if req.StaffRank == "" {
			req.StaffRank = RankModElev
		}
		if !ValidRank(req.StaffRank) {
			fail(c, validationf("unknown rank %q", req.StaffRank))
			return
		}

		ctx := c.Request.Context()
		u, err := s.GetUser(ctx, req.DiscordID)
		if err != nil {
			fail(c, err)
			return
		}
		if _, err := s.GetTeam(ctx, req.TeamID); err != nil {
			fail(c, err)
			return
		}

		if u.Role == RolePlayer {
			if err := s.SetUserRole(ctx, u.DiscordID, RoleStaff); err != nil {
				fail(c, err)
				return
			}
		}
		if err := s.SetStaffRank(ctx, u.DiscordID, req.StaffRank); err != nil {
			fail(c, err)
			return
		}
		if err := s.AssignMember(ctx, req.TeamID, u.DiscordID); err != nil {
			fail(c, err)
			return
		}
		audit(c, s, uid(c), "add_staff",
			"member="+u.DiscordID+" team="+req.TeamID)
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// RemoveStrikeHandler is the owner-level override that walks the
// counter back one step, floored at 0.
func RemoveStrikeHandler(s Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		memberID := c.Param("id")
		if _, err := s.GetUser(c.Request.Context(), memberID); err != nil {
			fail(c, err)
			return
		}
		strikes, err := s.RemoveStrike(c.Request.Context(), memberID)
		if err != nil {
			fail(c, err)
			return
		}
		audit(c, s, uid(c), "remove_strike",
			fmt.Sprintf("member=%s strikes=%d", memberID, strikes))
		c.JSON(http.StatusOK, gin.H{"success": true, "strikes": strikes})
	}
}
