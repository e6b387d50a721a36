package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"gacha-bot/internal/model"
	"gacha-bot/internal/repository"
)

// PlayerStore is the player persistence used by the services.
type PlayerStore interface {
	GetByID(ctx context.Context, telegramID int64) (*model.Player, error)
	GetOrCreate(ctx context.Context, telegramID int64, username string) (*model.Player, bool, error)
	UpdateUsername(ctx context.Context, telegramID int64, username string) error
}

// PlayerService handles registration. Senders that never registered draw as
// guests.
type PlayerService struct {
	players PlayerStore
}

// NewPlayerService creates a new PlayerService instance.
func NewPlayerService(players PlayerStore) *PlayerService {
	return &PlayerService{players: players}
}

// Register ensures a player exists, creating one if necessary.
// Returns the player and whether it was newly created.
func (s *PlayerService) Register(ctx context.Context, telegramID int64, username string) (*model.Player, bool, error) {
	player, created, err := s.players.GetOrCreate(ctx, telegramID, username)
	if err != nil {
		return nil, false, fmt.Errorf("failed to register player: %w", err)
	}

	if !created && username != "" && player.Username != username {
		if err := s.players.UpdateUsername(ctx, telegramID, username); err != nil {
			log.Warn().Err(err).Int64("user_id", telegramID).Msg("Failed to update username")
		} else {
			player.Username = username
		}
	}

	if created {
		log.Info().Int64("user_id", telegramID).Str("username", username).Msg("Player registered")
	}
	return player, created, nil
}

// IsRegistered reports whether the sender has a player row.
func (s *PlayerService) IsRegistered(ctx context.Context, telegramID int64) (bool, error) {
	_, err := s.players.GetByID(ctx, telegramID)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, repository.ErrPlayerNotFound) {
		return false, nil
	}
	return false, err
}
