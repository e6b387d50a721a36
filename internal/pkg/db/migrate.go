package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
)

// Execer runs schema statements.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type migration struct {
	name string
	sql  string
}

var migrations = []migration{
	{
		name: "users table",
		sql: `
		CREATE TABLE IF NOT EXISTS users (
			telegram_id BIGINT PRIMARY KEY,
			username VARCHAR(255) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
	},
	{
		name: "catalog tables",
		sql: `
		CREATE TABLE IF NOT EXISTS versions (
			version_id BIGSERIAL PRIMARY KEY,
			version_name VARCHAR(100) NOT NULL UNIQUE
		);
		CREATE TABLE IF NOT EXISTS items (
			item_id BIGSERIAL PRIMARY KEY,
			item_name VARCHAR(255) NOT NULL,
			rarity SMALLINT NOT NULL CHECK (rarity BETWEEN 1 AND 3),
			is_limited BOOLEAN NOT NULL DEFAULT FALSE,
			version_id BIGINT NOT NULL REFERENCES versions(version_id),
			UNIQUE (item_name, version_id)
		);
		CREATE INDEX IF NOT EXISTS idx_items_version ON items(version_id);`,
	},
	{
		name: "banner tables",
		sql: `
		CREATE TABLE IF NOT EXISTS rate_presets (
			preset_id BIGSERIAL PRIMARY KEY,
			preset_name VARCHAR(100) NOT NULL,
			pickup_rate NUMERIC(4,1) NOT NULL DEFAULT 0 CHECK (pickup_rate >= 0),
			r3_rate NUMERIC(4,1) NOT NULL CHECK (r3_rate >= 0),
			r2_rate NUMERIC(4,1) NOT NULL CHECK (r2_rate >= 0),
			r1_rate NUMERIC(4,1) NOT NULL CHECK (r1_rate >= 0),
			CHECK (pickup_rate <= r3_rate)
		);
		CREATE TABLE IF NOT EXISTS banners (
			banner_id BIGSERIAL PRIMARY KEY,
			banner_name VARCHAR(255) NOT NULL,
			preset_id BIGINT REFERENCES rate_presets(preset_id),
			include_limited BOOLEAN NOT NULL DEFAULT FALSE
		);
		CREATE TABLE IF NOT EXISTS banner_versions (
			banner_id BIGINT NOT NULL REFERENCES banners(banner_id) ON DELETE CASCADE,
			version_id BIGINT NOT NULL REFERENCES versions(version_id),
			PRIMARY KEY (banner_id, version_id)
		);
		CREATE TABLE IF NOT EXISTS banner_pickups (
			banner_id BIGINT NOT NULL REFERENCES banners(banner_id) ON DELETE CASCADE,
			item_id BIGINT NOT NULL REFERENCES items(item_id),
			PRIMARY KEY (banner_id, item_id)
		);
		CREATE TABLE IF NOT EXISTS banner_excludes (
			banner_id BIGINT NOT NULL REFERENCES banners(banner_id) ON DELETE CASCADE,
			item_id BIGINT NOT NULL REFERENCES items(item_id),
			PRIMARY KEY (banner_id, item_id)
		);`,
	},
	{
		name: "progression tables",
		sql: `
		CREATE TABLE IF NOT EXISTS inventory (
			user_id BIGINT NOT NULL REFERENCES users(telegram_id) ON DELETE CASCADE,
			item_id BIGINT NOT NULL REFERENCES items(item_id),
			num_obtained INT NOT NULL DEFAULT 1 CHECK (num_obtained > 0),
			first_obtained_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (user_id, item_id)
		);
		CREATE TABLE IF NOT EXISTS pull_transactions (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(telegram_id) ON DELETE CASCADE,
			banner_id BIGINT NOT NULL REFERENCES banners(banner_id),
			item_id BIGINT NOT NULL REFERENCES items(item_id),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_pull_transactions_user_time ON pull_transactions(user_id, created_at, id);`,
	},
	{
		name: "achievement tables",
		sql: `
		CREATE TABLE IF NOT EXISTS achievements (
			achievement_key VARCHAR(100) PRIMARY KEY,
			achievement_name VARCHAR(255) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			category VARCHAR(20) NOT NULL
		);
		CREATE TABLE IF NOT EXISTS achievement_unlocks (
			user_id BIGINT NOT NULL REFERENCES users(telegram_id) ON DELETE CASCADE,
			achievement_key VARCHAR(100) NOT NULL REFERENCES achievements(achievement_key),
			unlocked_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (user_id, achievement_key)
		);`,
	},
	{
		name: "assets table",
		sql: `
		CREATE TABLE IF NOT EXISTS assets (
			owner_kind VARCHAR(20) NOT NULL,
			owner_id BIGINT NOT NULL,
			asset_kind VARCHAR(20) NOT NULL,
			content_type VARCHAR(100) NOT NULL DEFAULT 'image/png',
			data BYTEA NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (owner_kind, owner_id, asset_kind)
		);`,
	},
}

// Migrate creates the schema. Every statement is idempotent.
func Migrate(ctx context.Context, db Execer) error {
	log.Info().Msg("Running database migrations...")

	for i, m := range migrations {
		if _, err := db.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", i+1, m.name, err)
		}
		log.Info().Int("migration", i+1).Str("name", m.name).Msg("Migration applied")
	}

	log.Info().Msg("All migrations completed successfully")
	return nil
}
