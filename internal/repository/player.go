// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"gacha-bot/internal/model"
	"gacha-bot/internal/pkg/db"
)

// PlayerRepository handles player persistence.
type PlayerRepository struct {
	db db.DBTX
}

// NewPlayerRepository creates a new PlayerRepository instance.
func NewPlayerRepository(conn db.DBTX) *PlayerRepository {
	return &PlayerRepository{db: conn}
}

// Create registers a player with the given Telegram ID and username.
func (r *PlayerRepository) Create(ctx context.Context, telegramID int64, username string) (*model.Player, error) {
	const query = `
		INSERT INTO users (telegram_id, username, created_at)
		VALUES ($1, $2, NOW())
		RETURNING telegram_id, username, created_at
	`

	var p model.Player
	err := r.db.QueryRow(ctx, query, telegramID, username).Scan(
		&p.TelegramID,
		&p.Username,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create player: %w", err)
	}

	return &p, nil
}

// GetByID retrieves a player by Telegram ID.
// Returns ErrPlayerNotFound if the player does not exist.
func (r *PlayerRepository) GetByID(ctx context.Context, telegramID int64) (*model.Player, error) {
	const query = `
		SELECT telegram_id, username, created_at
		FROM users
		WHERE telegram_id = $1
	`

	var p model.Player
	err := r.db.QueryRow(ctx, query, telegramID).Scan(
		&p.TelegramID,
		&p.Username,
		&p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to get player: %w", err)
	}

	return &p, nil
}

// GetOrCreate retrieves a player, registering one if it doesn't exist.
// The boolean reports whether the player was created by this call.
func (r *PlayerRepository) GetOrCreate(ctx context.Context, telegramID int64, username string) (*model.Player, bool, error) {
	p, err := r.GetByID(ctx, telegramID)
	if err == nil {
		return p, false, nil
	}
	if !errors.Is(err, ErrPlayerNotFound) {
		return nil, false, err
	}

	p, err = r.Create(ctx, telegramID, username)
	if err != nil {
		if !IsUniqueViolation(err) {
			return nil, false, err
		}
		// Another request registered the player first
		p, err = r.GetByID(ctx, telegramID)
		if err != nil {
			return nil, false, err
		}
		return p, false, nil
	}

	return p, true, nil
}

// UpdateUsername updates a player's username.
// This is useful when a user changes their Telegram username.
func (r *PlayerRepository) UpdateUsername(ctx context.Context, telegramID int64, username string) error {
	const query = `UPDATE users SET username = $2 WHERE telegram_id = $1`

	result, err := r.db.Exec(ctx, query, telegramID, username)
	if err != nil {
		return fmt.Errorf("failed to update username: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrPlayerNotFound
	}

	return nil
}
