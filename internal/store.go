package internal

import "context"

// Store is the record store behind all workflow handlers. The two
// write paths with race windows are pushed down here so either
// implementation can make them atomic: CreateApplication must reject a
// duplicate pending application in the same step that inserts, and
// AddStrike must increment-and-cap in one read-modify-write.
type Store interface {
	// Users. UpsertUser creates the record on first login (role=player)
	// and refreshes username/avatar afterwards. Users are never deleted.
	UpsertUser(ctx context.Context, discordID, username, avatar string) (User, error)
	GetUser(ctx context.Context, discordID string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	SetUserRole(ctx context.Context, discordID string, role Role) error
	SetStaffRank(ctx context.Context, discordID string, rank StaffRank) error
	AddNote(ctx context.Context, discordID string, note StaffNote) error
	// AddStrike returns the resulting count and whether this call moved
	// it; at the cap the count is returned unchanged with incremented=false.
	AddStrike(ctx context.Context, discordID string, note StaffNote) (strikes int, incremented bool, err error)
	RemoveStrike(ctx context.Context, discordID string) (strikes int, err error)

	// Application types.
	ListApplicationTypes(ctx context.Context) ([]ApplicationType, error)
	GetApplicationType(ctx context.Context, id string) (ApplicationType, error)
	CreateApplicationType(ctx context.Context, t ApplicationType) error
	DeleteApplicationType(ctx context.Context, id string) error

	// Applications. userID=="" lists all.
	CreateApplication(ctx context.Context, a Application) error
	GetApplication(ctx context.Context, id string) (Application, error)
	ListApplications(ctx context.Context, userID string) ([]Application, error)
	// ReviewApplication transitions pending->status atomically and
	// stamps the reviewer; a non-pending application is InvalidState.
	ReviewApplication(ctx context.Context, id string, status AppStatus, reviewerID string) (Application, error)

	// Reports. reporterID=="" lists all.
	CreateReport(ctx context.Context, r Report) error
	GetReport(ctx context.Context, id string) (Report, error)
	ListReports(ctx context.Context, reporterID string) ([]Report, error)
	UpdateReport(ctx context.Context, r Report) error

	// Staff teams. Membership is exclusive: AssignMember detaches the
	// user from any previous team.
	CreateTeam(ctx context.Context, t StaffTeam) error
	GetTeam(ctx context.Context, id string) (StaffTeam, error)
	TeamByHead(ctx context.Context, headID string) (StaffTeam, error)
	ListTeams(ctx context.Context) ([]StaffTeam, error)
	DeleteTeam(ctx context.Context, id string) error
	AssignMember(ctx context.Context, teamID, discordID string) error
	RemoveMember(ctx context.Context, teamID, discordID string) error

	// Audit trail and dashboard counters.
	AppendAudit(ctx context.Context, e AuditEntry) error
	ListAudit(ctx context.Context, limit int) ([]AuditEntry, error)
	Stats(ctx context.Context) (Stats, error)
}
