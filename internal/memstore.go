package internal

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemStore is a mutex-guarded in-memory Store. It backs the test suite
// and DATABASE_URL-less dev runs; the single lock gives it the same
// atomicity the Postgres store gets from its constraints.
type MemStore struct {
	mu       sync.Mutex
	users    map[string]*User
	appTypes map[string]*ApplicationType
	apps     map[string]*Application
	reports  map[string]*Report
	teams    map[string]*StaffTeam
	audit    []AuditEntry
	auditSeq int64
}

func NewMemStore() *MemStore {
	return &MemStore{
		users:    map[string]*User{},
		appTypes: map[string]*ApplicationType{},
		apps:     map[string]*Application{},
		reports:  map[string]*Report{},
		teams:    map[string]*StaffTeam{},
	}
}

func cloneUser(u *User) User {
	out := *u
	out.Notes = append([]StaffNote(nil), u.Notes...)
	return out
}

func cloneApp(a *Application) Application {
	out := *a
	out.Answers = map[string]string{}
	for k, v := range a.Answers {
		out.Answers[k] = v
	}
	if a.ReviewedAt != nil {
		t := *a.ReviewedAt
		out.ReviewedAt = &t
	}
	return out
}

func cloneType(t *ApplicationType) ApplicationType {
	out := *t
	out.Questions = append([]Question(nil), t.Questions...)
	return out
}

func cloneTeam(t *StaffTeam) StaffTeam {
	out := *t
	out.Members = append([]string(nil), t.Members...)
	return out
}

// ------------------- users -------------------

func (m *MemStore) UpsertUser(_ context.Context, discordID, username, avatar string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[discordID]
	if !ok {
		u = &User{
			DiscordID: discordID,
			Role:      RolePlayer,
			CreatedAt: time.Now().UTC(),
		}
		m.users[discordID] = u
	}
	u.Username = username
	u.Avatar = avatar
	return cloneUser(u), nil
}

func (m *MemStore) GetUser(_ context.Context, discordID string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[discordID]
	if !ok {
		return User{}, notFoundf("user not found")
	}
	return cloneUser(u), nil
}

func (m *MemStore) ListUsers(_ context.Context) ([]User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].DiscordID < out[j].DiscordID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemStore) SetUserRole(_ context.Context, discordID string, role Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[discordID]
	if !ok {
		return notFoundf("user not found")
	}
	u.Role = role
	return nil
}

func (m *MemStore) SetStaffRank(_ context.Context, discordID string, rank StaffRank) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[discordID]
	if !ok {
		return notFoundf("user not found")
	}
	u.StaffRank = rank
	return nil
}

func (m *MemStore) AddNote(_ context.Context, discordID string, note StaffNote) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[discordID]
	if !ok {
		return notFoundf("user not found")
	}
	u.Notes = append(u.Notes, note)
	return nil
}

func (m *MemStore) AddStrike(_ context.Context, discordID string, note StaffNote) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[discordID]
	if !ok {
		return 0, false, notFoundf("user not found")
	}
	incremented := false
	if u.Strikes < maxStrikes {
		u.Strikes++
		incremented = true
	}
	u.Notes = append(u.Notes, note)
	return u.Strikes, incremented, nil
}

func (m *MemStore) RemoveStrike(_ context.Context, discordID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[discordID]
	if !ok {
		return 0, notFoundf("user not found")
	}
	if u.Strikes > 0 {
		u.Strikes--
	}
	return u.Strikes, nil
}

// ------------------- application types -------------------

func (m *MemStore) ListApplicationTypes(_ context.Context) ([]ApplicationType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]ApplicationType, 0, len(m.appTypes))
	for _, t := range m.appTypes {
		out = append(out, cloneType(t))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemStore) GetApplicationType(_ context.Context, id string) (ApplicationType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.appTypes[id]
	if !ok {
		return ApplicationType{}, notFoundf("application type not found")
	}
	return cloneType(t), nil
}

func (m *MemStore) CreateApplicationType(_ context.Context, t ApplicationType) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := cloneType(&t)
	m.appTypes[t.ID] = &c
	return nil
}

func (m *MemStore) DeleteApplicationType(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.appTypes[id]; !ok {
		return notFoundf("application type not found")
	}
	delete(m.appTypes, id)
	return nil
}

// ------------------- applications -------------------

func (m *MemStore) CreateApplication(_ context.Context, a Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.apps {
		if existing.UserID == a.UserID &&
			existing.ApplicationTypeID == a.ApplicationTypeID &&
			existing.Status == AppPending {
			return conflictf("you already have a pending application for this type")
		}
	}
	c := cloneApp(&a)
	m.apps[a.ID] = &c
	return nil
}

func (m *MemStore) GetApplication(_ context.Context, id string) (Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.apps[id]
	if !ok {
		return Application{}, notFoundf("application not found")
	}
	return cloneApp(a), nil
}

func (m *MemStore) ListApplications(_ context.Context, userID string) ([]Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Application
	for _, a := range m.apps {
		if userID != "" && a.UserID != userID {
			continue
		}
		out = append(out, cloneApp(a))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].SubmittedAt.After(out[j].SubmittedAt)
	})
	return out, nil
}

func (m *MemStore) ReviewApplication(_ context.Context, id string, status AppStatus, reviewerID string) (Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.apps[id]
	if !ok {
		return Application{}, notFoundf("application not found")
	}
	if a.Status != AppPending {
		return Application{}, invalidStatef("application has already been reviewed")
	}
	now := time.Now().UTC()
	a.Status = status
	a.ReviewedBy = reviewerID
	a.ReviewedAt = &now
	return cloneApp(a), nil
}

// ------------------- reports -------------------

func (m *MemStore) CreateReport(_ context.Context, r Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := r
	m.reports[r.ID] = &c
	return nil
}

func (m *MemStore) GetReport(_ context.Context, id string) (Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.reports[id]
	if !ok {
		return Report{}, notFoundf("report not found")
	}
	return *r, nil
}

func (m *MemStore) ListReports(_ context.Context, reporterID string) ([]Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Report
	for _, r := range m.reports {
		if reporterID != "" && r.ReporterID != reporterID {
			continue
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemStore) UpdateReport(_ context.Context, r Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.reports[r.ID]; !ok {
		return notFoundf("report not found")
	}
	c := r
	m.reports[r.ID] = &c
	return nil
}

// ------------------- staff teams -------------------

func (m *MemStore) CreateTeam(_ context.Context, t StaffTeam) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := cloneTeam(&t)
	m.teams[t.ID] = &c
	return nil
}

func (m *MemStore) GetTeam(_ context.Context, id string) (StaffTeam, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.teams[id]
	if !ok {
		return StaffTeam{}, notFoundf("staff team not found")
	}
	return cloneTeam(t), nil
}

func (m *MemStore) TeamByHead(_ context.Context, headID string) (StaffTeam, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range m.teams {
		if t.HeadAdminID == headID {
			return cloneTeam(t), nil
		}
	}
	return StaffTeam{}, notFoundf("you do not lead a staff team")
}

func (m *MemStore) ListTeams(_ context.Context) ([]StaffTeam, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]StaffTeam, 0, len(m.teams))
	for _, t := range m.teams {
		out = append(out, cloneTeam(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemStore) DeleteTeam(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.teams[id]
	if !ok {
		return notFoundf("staff team not found")
	}
	for _, member := range t.Members {
		if u, ok := m.users[member]; ok && u.TeamID == id {
			u.TeamID = ""
		}
	}
	delete(m.teams, id)
	return nil
}

func (m *MemStore) AssignMember(_ context.Context, teamID, discordID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.teams[teamID]
	if !ok {
		return notFoundf("staff team not found")
	}
	u, ok := m.users[discordID]
	if !ok {
		return notFoundf("user not found")
	}
	if u.TeamID == teamID {
		return nil
	}
	if prev, ok := m.teams[u.TeamID]; ok {
		prev.Members = removeString(prev.Members, discordID)
	}
	t.Members = append(t.Members, discordID)
	u.TeamID = teamID
	return nil
}

func (m *MemStore) RemoveMember(_ context.Context, teamID, discordID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.teams[teamID]
	if !ok {
		return notFoundf("staff team not found")
	}
	t.Members = removeString(t.Members, discordID)
	if u, ok := m.users[discordID]; ok && u.TeamID == teamID {
		u.TeamID = ""
	}
	return nil
}

func removeString(s []string, v string) []string {
	out := s[:0]
	for _, e := range s {
		if e != v {
			out = append(out, e)
		}
	}
	return out
}

// ------------------- audit + stats -------------------

func (m *MemStore) AppendAudit(_ context.Context, e AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.auditSeq++
	e.ID = m.auditSeq
	m.audit = append(m.audit, e)
	return nil
}

func (m *MemStore) ListAudit(_ context.Context, limit int) ([]AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]AuditEntry, 0, limit)
	for i := len(m.audit) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.audit[i])
	}
	return out, nil
}

func (m *MemStore) Stats(_ context.Context) (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := Stats{TotalUsers: len(m.users), TotalTeams: len(m.teams)}
	for _, u := range m.users {
		if u.Role.Staff() {
			st.StaffCount++
		}
	}
	for _, a := range m.apps {
		if a.Status == AppPending {
			st.PendingApplications++
		}
	}
	return st, nil
}
