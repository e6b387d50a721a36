package repository

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"gacha-bot/internal/model"
	"gacha-bot/internal/pkg/db"
)

// AchievementRepository handles achievement descriptors and unlock records.
type AchievementRepository struct {
	db db.DBTX
}

// NewAchievementRepository creates a new AchievementRepository instance.
func NewAchievementRepository(conn db.DBTX) *AchievementRepository {
	return &AchievementRepository{db: conn}
}

// Sync upserts the registered descriptors so unlock rows can reference them.
func (r *AchievementRepository) Sync(ctx context.Context, achievements []model.Achievement) error {
	if len(achievements) == 0 {
		return nil
	}

	insert := squirrel.
		Insert("achievements").
		Columns("achievement_key", "achievement_name", "description", "category")
	for _, a := range achievements {
		insert = insert.Values(a.Key, a.Name, a.Description, string(a.Category))
	}
	query, args, err := insert.
		Suffix(`ON CONFLICT (achievement_key) DO UPDATE SET
			achievement_name = EXCLUDED.achievement_name,
			description = EXCLUDED.description,
			category = EXCLUDED.category`).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to sync achievements: %w", err)
	}
	return nil
}

// UnlockedKeys returns the set of achievement keys the user has unlocked.
func (r *AchievementRepository) UnlockedKeys(ctx context.Context, userID int64) (map[string]struct{}, error) {
	const query = `SELECT achievement_key FROM achievement_unlocks WHERE user_id = $1`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get unlocked achievements: %w", err)
	}
	defer rows.Close()

	keys := make(map[string]struct{})
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan achievement key: %w", err)
		}
		keys[key] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating achievement keys: %w", err)
	}

	return keys, nil
}

// Unlock records an unlock. It returns false without error when the user
// already holds the achievement.
func (r *AchievementRepository) Unlock(ctx context.Context, userID int64, key string) (bool, error) {
	const query = `
		INSERT INTO achievement_unlocks (user_id, achievement_key, unlocked_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id, achievement_key) DO NOTHING
	`
	result, err := r.db.Exec(ctx, query, userID, key)
	if err != nil {
		if IsUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to unlock achievement: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// ListUnlocked returns the user's achievements in unlock order.
func (r *AchievementRepository) ListUnlocked(ctx context.Context, userID int64) ([]model.UnlockedAchievement, error) {
	const query = `
		SELECT a.achievement_key, a.achievement_name, a.description, a.category, u.unlocked_at
		FROM achievement_unlocks u
		JOIN achievements a ON a.achievement_key = u.achievement_key
		WHERE u.user_id = $1
		ORDER BY u.unlocked_at, a.achievement_key
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}
	defer rows.Close()

	var unlocked []model.UnlockedAchievement
	for rows.Next() {
		var u model.UnlockedAchievement
		var category string
		if err := rows.Scan(&u.Key, &u.Name, &u.Description, &category, &u.UnlockedAt); err != nil {
			return nil, fmt.Errorf("failed to scan achievement: %w", err)
		}
		u.Category = model.AchievementCategory(category)
		unlocked = append(unlocked, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating achievements: %w", err)
	}

	return unlocked, nil
}
