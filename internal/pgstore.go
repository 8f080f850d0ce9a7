package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PGStore is the production Store on pgxpool. Duplicate-pending
// applications are rejected by the applications_pending_uniq partial
// index; strike increments are a single guarded UPDATE.
type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

const userColumns = `discord_id, username, avatar, role, staff_rank, strikes, notes,
	on_probation, COALESCE(team_id, ''), created_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	var notes []byte
	err := row.Scan(&u.DiscordID, &u.Username, &u.Avatar, &u.Role, &u.StaffRank,
		&u.Strikes, &notes, &u.OnProbation, &u.TeamID, &u.CreatedAt)
	if err != nil {
		return User{}, err
	}
	if err := json.Unmarshal(notes, &u.Notes); err != nil {
		return User{}, fmt.Errorf("decode notes: %w", err)
	}
	return u, nil
}

// ------------------- users -------------------

func (s *PGStore) UpsertUser(ctx context.Context, discordID, username, avatar string) (User, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO users (discord_id, username, avatar)
		VALUES ($1, $2, $3)
		ON CONFLICT (discord_id)
		DO UPDATE SET username = EXCLUDED.username, avatar = EXCLUDED.avatar
		RETURNING `+userColumns,
		discordID, username, avatar)
	return scanUser(row)
}

func (s *PGStore) GetUser(ctx context.Context, discordID string) (User, error) {
	u, err := scanUser(s.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE discord_id = $1`, discordID))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, notFoundf("user not found")
	}
	return u, err
}

func (s *PGStore) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at ASC, discord_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *PGStore) SetUserRole(ctx context.Context, discordID string, role Role) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE users SET role = $1 WHERE discord_id = $2`, role, discordID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return notFoundf("user not found")
	}
	return nil
}

func (s *PGStore) SetStaffRank(ctx context.Context, discordID string, rank StaffRank) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE users SET staff_rank = $1 WHERE discord_id = $2`, rank, discordID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return notFoundf("user not found")
	}
	return nil
}

func (s *PGStore) AddNote(ctx context.Context, discordID string, note StaffNote) error {
	noteJSON, err := json.Marshal([]StaffNote{note})
	if err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx,
		`UPDATE users SET notes = notes || $1::jsonb WHERE discord_id = $2`,
		noteJSON, discordID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return notFoundf("user not found")
	}
	return nil
}

func (s *PGStore) AddStrike(ctx context.Context, discordID string, note StaffNote) (int, bool, error) {
	noteJSON, err := json.Marshal([]StaffNote{note})
	if err != nil {
		return 0, false, err
	}
	var strikes, prev int
	err = s.db.QueryRow(ctx, `
		WITH prev AS (
			SELECT strikes FROM users WHERE discord_id = $1 FOR UPDATE
		)
		UPDATE users u
		SET strikes = LEAST(u.strikes + 1, 3), notes = u.notes || $2::jsonb
		FROM prev
		WHERE u.discord_id = $1
		RETURNING u.strikes, prev.strikes`,
		discordID, noteJSON).Scan(&strikes, &prev)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, notFoundf("user not found")
	}
	if err != nil {
		return 0, false, err
	}
	return strikes, strikes > prev, nil
}

func (s *PGStore) RemoveStrike(ctx context.Context, discordID string) (int, error) {
	var strikes int
	err := s.db.QueryRow(ctx, `
		UPDATE users SET strikes = GREATEST(strikes - 1, 0)
		WHERE discord_id = $1
		RETURNING strikes`, discordID).Scan(&strikes)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, notFoundf("user not found")
	}
	return strikes, err
}

// ------------------- application types -------------------

func scanApplicationType(row pgx.Row) (ApplicationType, error) {
	var t ApplicationType
	var questions []byte
	err := row.Scan(&t.ID, &t.Name, &t.Description, &t.Icon, &t.Color, &t.Track,
		&questions, &t.CreatedBy, &t.CreatedAt)
	if err != nil {
		return ApplicationType{}, err
	}
	if err := json.Unmarshal(questions, &t.Questions); err != nil {
		return ApplicationType{}, fmt.Errorf("decode questions: %w", err)
	}
	return t, nil
}

const typeColumns = `id, name, description, icon, color, track, questions, created_by, created_at`

func (s *PGStore) ListApplicationTypes(ctx context.Context) ([]ApplicationType, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+typeColumns+` FROM application_types ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ApplicationType
	for rows.Next() {
		t, err := scanApplicationType(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *PGStore) GetApplicationType(ctx context.Context, id string) (ApplicationType, error) {
	t, err := scanApplicationType(s.db.QueryRow(ctx,
		`SELECT `+typeColumns+` FROM application_types WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return ApplicationType{}, notFoundf("application type not found")
	}
	return t, err
}

func (s *PGStore) CreateApplicationType(ctx context.Context, t ApplicationType) error {
	questions, err := json.Marshal(t.Questions)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO application_types (id, name, description, icon, color, track, questions, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		t.ID, t.Name, t.Description, t.Icon, t.Color, t.Track, questions, t.CreatedBy, t.CreatedAt)
	return err
}

func (s *PGStore) DeleteApplicationType(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM application_types WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return notFoundf("application type not found")
	}
	return nil
}

// ------------------- applications -------------------

const appColumns = `id, user_id, username, application_type_id, type_name, track,
	answers, status, submitted_at, reviewed_by, reviewed_at`

func scanApplication(row pgx.Row) (Application, error) {
	var a Application
	var answers []byte
	err := row.Scan(&a.ID, &a.UserID, &a.Username, &a.ApplicationTypeID, &a.TypeName,
		&a.Track, &answers, &a.Status, &a.SubmittedAt, &a.ReviewedBy, &a.ReviewedAt)
	if err != nil {
		return Application{}, err
	}
	if err := json.Unmarshal(answers, &a.Answers); err != nil {
		return Application{}, fmt.Errorf("decode answers: %w", err)
	}
	return a, nil
}

func (s *PGStore) CreateApplication(ctx context.Context, a Application) error {
	answers, err := json.Marshal(a.Answers)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO applications (id, user_id, username, application_type_id, type_name, track, answers, status, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID, a.UserID, a.Username, a.ApplicationTypeID, a.TypeName, a.Track, answers, a.Status, a.SubmittedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return conflictf("you already have a pending application for this type")
	}
	return err
}

func (s *PGStore) GetApplication(ctx context.Context, id string) (Application, error) {
	a, err := scanApplication(s.db.QueryRow(ctx,
		`SELECT `+appColumns+` FROM applications WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Application{}, notFoundf("application not found")
	}
	return a, err
}

func (s *PGStore) ListApplications(ctx context.Context, userID string) ([]Application, error) {
	q := psql.Select("id", "user_id", "username", "application_type_id", "type_name",
		"track", "answers", "status", "submitted_at", "reviewed_by", "reviewed_at").
		From("applications").
		OrderBy("submitted_at DESC", "id DESC")
	if userID != "" {
		q = q.Where(sq.Eq{"user_id": userID})
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Application
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *PGStore) ReviewApplication(ctx context.Context, id string, status AppStatus, reviewerID string) (Application, error) {
	a, err := scanApplication(s.db.QueryRow(ctx, `
		UPDATE applications
		SET status = $2, reviewed_by = $3, reviewed_at = now()
		WHERE id = $1 AND status = 'pending'
		RETURNING `+appColumns, id, status, reviewerID))
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if chkErr := s.db.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM applications WHERE id = $1)`, id).Scan(&exists); chkErr != nil {
			return Application{}, chkErr
		}
		if !exists {
			return Application{}, notFoundf("application not found")
		}
		return Application{}, invalidStatef("application has already been reviewed")
	}
	return a, err
}

// ------------------- reports -------------------

const reportColumns = `id, reporter_id, reporter_name, reported_player, report_type,
	description, evidence, status, admin_notes, handled_by, created_at`

func scanReport(row pgx.Row) (Report, error) {
	var r Report
	err := row.Scan(&r.ID, &r.ReporterID, &r.ReporterName, &r.ReportedPlayer,
		&r.ReportType, &r.Description, &r.Evidence, &r.Status, &r.AdminNotes,
		&r.HandledBy, &r.CreatedAt)
	return r, err
}

func (s *PGStore) CreateReport(ctx context.Context, r Report) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO reports (id, reporter_id, reporter_name, reported_player, report_type, description, evidence, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		r.ID, r.ReporterID, r.ReporterName, r.ReportedPlayer, r.ReportType,
		r.Description, r.Evidence, r.Status, r.CreatedAt)
	return err
}

func (s *PGStore) GetReport(ctx context.Context, id string) (Report, error) {
	r, err := scanReport(s.db.QueryRow(ctx,
		`SELECT `+reportColumns+` FROM reports WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Report{}, notFoundf("report not found")
	}
	return r, err
}

func (s *PGStore) ListReports(ctx context.Context, reporterID string) ([]Report, error) {
	q := psql.Select("id", "reporter_id", "reporter_name", "reported_player",
		"report_type", "description", "evidence", "status", "admin_notes",
		"handled_by", "created_at").
		From("reports").
		OrderBy("created_at DESC", "id DESC")
	if reporterID != "" {
		q = q.Where(sq.Eq{"reporter_id": reporterID})
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PGStore) UpdateReport(ctx context.Context, r Report) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE reports SET status = $2, admin_notes = $3, handled_by = $4
		WHERE id = $1`,
		r.ID, r.Status, r.AdminNotes, r.HandledBy)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return notFoundf("report not found")
	}
	return nil
}

// ------------------- staff teams -------------------

func (s *PGStore) CreateTeam(ctx context.Context, t StaffTeam) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO staff_teams (id, name, description, head_admin_id, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		t.ID, t.Name, t.Description, t.HeadAdminID, t.CreatedAt)
	return err
}

func (s *PGStore) teamMembers(ctx context.Context, teamID string) ([]string, error) {
	rows, err := s.db.Query(ctx,
		`SELECT discord_id FROM users WHERE team_id = $1 ORDER BY username ASC, discord_id ASC`,
		teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *PGStore) getTeam(ctx context.Context, where string, arg any, missing string) (StaffTeam, error) {
	var t StaffTeam
	err := s.db.QueryRow(ctx,
		`SELECT id, name, description, head_admin_id, created_at FROM staff_teams WHERE `+where,
		arg).Scan(&t.ID, &t.Name, &t.Description, &t.HeadAdminID, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return StaffTeam{}, notFoundf("%s", missing)
	}
	if err != nil {
		return StaffTeam{}, err
	}
	t.Members, err = s.teamMembers(ctx, t.ID)
	return t, err
}

func (s *PGStore) GetTeam(ctx context.Context, id string) (StaffTeam, error) {
	return s.getTeam(ctx, "id = $1", id, "staff team not found")
}

func (s *PGStore) TeamByHead(ctx context.Context, headID string) (StaffTeam, error) {
	return s.getTeam(ctx, "head_admin_id = $1", headID, "you do not lead a staff team")
}

func (s *PGStore) ListTeams(ctx context.Context) ([]StaffTeam, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, name, description, head_admin_id, created_at FROM staff_teams ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StaffTeam
	for rows.Next() {
		var t StaffTeam
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.HeadAdminID, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Members, err = s.teamMembers(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *PGStore) DeleteTeam(ctx context.Context, id string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `UPDATE users SET team_id = NULL WHERE team_id = $1`, id); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM staff_teams WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return notFoundf("staff team not found")
	}
	return tx.Commit(ctx)
}

func (s *PGStore) AssignMember(ctx context.Context, teamID, discordID string) error {
	var exists bool
	if err := s.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM staff_teams WHERE id = $1)`, teamID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return notFoundf("staff team not found")
	}

	// team_id is a single column, so assignment is exclusive by construction.
	tag, err := s.db.Exec(ctx,
		`UPDATE users SET team_id = $1 WHERE discord_id = $2`, teamID, discordID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return notFoundf("user not found")
	}
	return nil
}

func (s *PGStore) RemoveMember(ctx context.Context, teamID, discordID string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE users SET team_id = NULL WHERE discord_id = $1 AND team_id = $2`,
		discordID, teamID)
	return err
}

// ------------------- audit + stats -------------------

func (s *PGStore) AppendAudit(ctx context.Context, e AuditEntry) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO logs (actor_id, action, details) VALUES ($1, $2, $3)`,
		e.ActorID, e.Action, e.Details)
	return err
}

func (s *PGStore) ListAudit(ctx context.Context, limit int) ([]AuditEntry, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, actor_id, action, details, created_at
		FROM logs ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.Details, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PGStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM staff_teams),
			(SELECT COUNT(*) FROM applications WHERE status = 'pending'),
			(SELECT COUNT(*) FROM users WHERE role IN ('staff', 'head_admin', 'owner'))
	`).Scan(&st.TotalUsers, &st.TotalTeams, &st.PendingApplications, &st.StaffCount)
	return st, err
}
