package internal

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ConnectDB dials Postgres, waiting out container startup races the
// same way the schema expects to be applied: before any request runs.
func ConnectDB(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 10

	var pool *pgxpool.Pool
	deadline := time.Now().Add(30 * time.Second)
	for {
		dialCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		pool, err = pgxpool.NewWithConfig(dialCtx, cfg)
		if err == nil {
			if pingErr := pool.Ping(dialCtx); pingErr == nil {
				cancel()
				break
			}
			pool.Close()
			err = dialCtx.Err()
		}
		cancel()

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		time.Sleep(1 * time.Second)
	}

	if err := ensureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func ensureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			discord_id   TEXT PRIMARY KEY,
			username     TEXT NOT NULL,
			avatar       TEXT NOT NULL DEFAULT '',
			role         TEXT NOT NULL DEFAULT 'player',
			staff_rank   TEXT NOT NULL DEFAULT '',
			strikes      INT NOT NULL DEFAULT 0 CHECK (strikes BETWEEN 0 AND 3),
			notes        JSONB NOT NULL DEFAULT '[]',
			on_probation BOOLEAN NOT NULL DEFAULT FALSE,
			team_id      TEXT,
			created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
		);

		CREATE TABLE IF NOT EXISTS application_types (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			description TEXT NOT NULL,
			icon        TEXT NOT NULL DEFAULT '',
			color       TEXT NOT NULL DEFAULT '',
			track       TEXT NOT NULL DEFAULT 'whitelist',
			questions   JSONB NOT NULL DEFAULT '[]',
			created_by  TEXT NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		);

		CREATE TABLE IF NOT EXISTS applications (
			id                  TEXT PRIMARY KEY,
			user_id             TEXT NOT NULL,
			username            TEXT NOT NULL,
			application_type_id TEXT NOT NULL,
			type_name           TEXT NOT NULL,
			track               TEXT NOT NULL,
			answers             JSONB NOT NULL DEFAULT '{}',
			status              TEXT NOT NULL DEFAULT 'pending',
			submitted_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
			reviewed_by         TEXT NOT NULL DEFAULT '',
			reviewed_at         TIMESTAMPTZ
		);

		CREATE UNIQUE INDEX IF NOT EXISTS applications_pending_uniq
			ON applications (user_id, application_type_id)
			WHERE status = 'pending';

		CREATE TABLE IF NOT EXISTS reports (
			id              TEXT PRIMARY KEY,
			reporter_id     TEXT NOT NULL,
			reporter_name   TEXT NOT NULL,
			reported_player TEXT NOT NULL,
			report_type     TEXT NOT NULL,
			description     TEXT NOT NULL,
			evidence        TEXT NOT NULL DEFAULT '',
			status          TEXT NOT NULL DEFAULT 'pending',
			admin_notes     TEXT NOT NULL DEFAULT '',
			handled_by      TEXT NOT NULL DEFAULT '',
			created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
		);

		CREATE TABLE IF NOT EXISTS staff_teams (
			id            TEXT PRIMARY KEY,
			name          TEXT NOT NULL,
			description   TEXT NOT NULL,
			head_admin_id TEXT NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		);

		CREATE TABLE IF NOT EXISTS logs (
			id         BIGSERIAL PRIMARY KEY,
			actor_id   TEXT NOT NULL,
			action     TEXT NOT NULL,
			details    TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
	`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
