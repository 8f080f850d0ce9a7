package internal

import "time"

// Role is the portal-wide role enum. Capabilities derive from it:
// head_admin and owner are admins, owner alone is the top-level admin.
type Role string

const (
	RolePlayer    Role = "player"
	RoleStaff     Role = "staff"
	RoleHeadAdmin Role = "head_admin"
	RoleOwner     Role = "owner"
)

func (r Role) Admin() bool {
	return r == RoleHeadAdmin || r == RoleOwner
}

func (r Role) Staff() bool {
	return r == RoleStaff || r == RoleHeadAdmin || r == RoleOwner
}

func ValidRole(r Role) bool {
	switch r {
	case RolePlayer, RoleStaff, RoleHeadAdmin, RoleOwner:
		return true
	}
	return false
}

// StaffRank is the ordered in-team rank ladder.
type StaffRank string

const (
	RankModElev       StaffRank = "mod_elev"
	RankModerator     StaffRank = "moderator"
	RankAdministrator StaffRank = "administrator"
	RankSeniorAdmin   StaffRank = "senior_admin"
)

var rankOrder = map[StaffRank]int{
	RankModElev:       0,
	RankModerator:     1,
	RankAdministrator: 2,
	RankSeniorAdmin:   3,
}

func ValidRank(r StaffRank) bool {
	_, ok := rankOrder[r]
	return ok
}

// Above reports whether r is strictly higher than other on the ladder.
func (r StaffRank) Above(other StaffRank) bool {
	return rankOrder[r] > rankOrder[other]
}

const maxStrikes = 3

type StaffNote struct {
	Text    string    `json:"text"`
	AddedBy string    `json:"added_by"`
	AddedAt time.Time `json:"added_at"`
}

type User struct {
	DiscordID   string      `json:"discord_id"`
	Username    string      `json:"username"`
	Avatar      string      `json:"avatar,omitempty"`
	Role        Role        `json:"role"`
	StaffRank   StaffRank   `json:"staff_rank,omitempty"`
	Strikes     int         `json:"strikes"`
	Notes       []StaffNote `json:"notes,omitempty"`
	OnProbation bool        `json:"on_probation"`
	TeamID      string      `json:"team_id,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Track separates staff-track application types (approval makes the
// applicant staff) from whitelist ones.
type Track string

const (
	TrackStaff     Track = "staff"
	TrackWhitelist Track = "whitelist"
)

type QuestionKind string

const (
	QuestionShortText QuestionKind = "short_text"
	QuestionLongText  QuestionKind = "long_text"
	QuestionNumber    QuestionKind = "number"
)

func ValidQuestionKind(k QuestionKind) bool {
	switch k {
	case QuestionShortText, QuestionLongText, QuestionNumber:
		return true
	}
	return false
}

type Question struct {
	ID          string       `json:"id"`
	Label       string       `json:"label"`
	Kind        QuestionKind `json:"kind"`
	Required    bool         `json:"required"`
	Placeholder string       `json:"placeholder,omitempty"`
}

type ApplicationType struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Icon        string     `json:"icon,omitempty"`
	Color       string     `json:"color,omitempty"`
	Track       Track      `json:"track"`
	Questions   []Question `json:"questions"`
	CreatedBy   string     `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
}

type AppStatus string

const (
	AppPending  AppStatus = "pending"
	AppApproved AppStatus = "approved"
	AppRejected AppStatus = "rejected"
)

type Application struct {
	ID                string            `json:"id"`
	UserID            string            `json:"user_id"`
	Username          string            `json:"username"`
	ApplicationTypeID string            `json:"application_type_id"`
	TypeName          string            `json:"type_name"`
	Track             Track             `json:"track"`
	Answers           map[string]string `json:"answers"`
	Status            AppStatus         `json:"status"`
	SubmittedAt       time.Time         `json:"submitted_at"`
	ReviewedBy        string            `json:"reviewed_by,omitempty"`
	ReviewedAt        *time.Time        `json:"reviewed_at,omitempty"`
}

type ReportStatus string

const (
	ReportPending       ReportStatus = "pending"
	ReportInvestigating ReportStatus = "investigating"
	ReportResolved      ReportStatus = "resolved"
	ReportDismissed     ReportStatus = "dismissed"
)

func ValidReportStatus(s ReportStatus) bool {
	switch s {
	case ReportPending, ReportInvestigating, ReportResolved, ReportDismissed:
		return true
	}
	return false
}

func (s ReportStatus) Terminal() bool {
	return s == ReportResolved || s == ReportDismissed
}

// CanTransitionTo encodes the report state machine:
// pending -> investigating|resolved|dismissed, investigating -> resolved|dismissed.
func (s ReportStatus) CanTransitionTo(next ReportStatus) bool {
	if s.Terminal() {
		return false
	}
	switch next {
	case ReportInvestigating:
		return s == ReportPending
	case ReportResolved, ReportDismissed:
		return true
	}
	return false
}

// ReportTypes is the closed set of rule-violation categories.
var ReportTypes = []string{
	"RDM (Random Deathmatch)",
	"VDM (Vehicle Deathmatch)",
	"FailRP",
	"Metagaming",
	"Power Gaming",
	"NLR (New Life Rule)",
	"Combat Logging",
	"Exploiting",
	"Toxicitet",
	"Andet",
}

func ValidReportType(t string) bool {
	for _, rt := range ReportTypes {
		if rt == t {
			return true
		}
	}
	return false
}

type Report struct {
	ID             string       `json:"id"`
	ReporterID     string       `json:"reporter_id"`
	ReporterName   string       `json:"reporter_name"`
	ReportedPlayer string       `json:"reported_player"`
	ReportType     string       `json:"report_type"`
	Description    string       `json:"description"`
	Evidence       string       `json:"evidence,omitempty"`
	Status         ReportStatus `json:"status"`
	AdminNotes     string       `json:"admin_notes,omitempty"`
	HandledBy      string       `json:"handled_by,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}

type StaffTeam struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	HeadAdminID string    `json:"head_admin_id"`
	Members     []string  `json:"members"`
	CreatedAt   time.Time `json:"created_at"`
}

type AuditEntry struct {
	ID        int64     `json:"id"`
	ActorID   string    `json:"actor_id"`
	Action    string    `json:"action"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"created_at"`
}

type Stats struct {
	TotalUsers          int `json:"total_users"`
	TotalTeams          int `json:"total_teams"`
	PendingApplications int `json:"pending_applications"`
	StaffCount          int `json:"staff_count"`
}

// Player is one entry in the game-server session list snapshot.
type Player struct {
	ServerID int    `json:"server_id"`
	Name     string `json:"name"`
	Ping     int    `json:"ping"`
}
