package repository

import (
	"context"
	"fmt"
	"time"

	"gacha-bot/internal/model"
	"gacha-bot/internal/pkg/db"
)

// TransactionRepository handles the append-only pull history.
type TransactionRepository struct {
	db db.DBTX
}

// NewTransactionRepository creates a new TransactionRepository instance.
func NewTransactionRepository(conn db.DBTX) *TransactionRepository {
	return &TransactionRepository{db: conn}
}

// AppendTransaction records one draw.
func (r *TransactionRepository) AppendTransaction(ctx context.Context, userID, bannerID, itemID int64) error {
	const query = `
		INSERT INTO pull_transactions (user_id, banner_id, item_id, created_at)
		VALUES ($1, $2, $3, NOW())
	`
	if _, err := r.db.Exec(ctx, query, userID, bannerID, itemID); err != nil {
		return fmt.Errorf("failed to append transaction: %w", err)
	}
	return nil
}

// CreateWithTime records one draw with a specific timestamp.
// Useful for testing and data migration.
func (r *TransactionRepository) CreateWithTime(ctx context.Context, userID, bannerID, itemID int64, createdAt time.Time) (*model.Transaction, error) {
	const query = `
		INSERT INTO pull_transactions (user_id, banner_id, item_id, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, banner_id, item_id, created_at
	`

	var tx model.Transaction
	err := r.db.QueryRow(ctx, query, userID, bannerID, itemID, createdAt).Scan(
		&tx.ID,
		&tx.UserID,
		&tx.BannerID,
		&tx.ItemID,
		&tx.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	return &tx, nil
}

// CountByUser returns the user's lifetime number of draws.
func (r *TransactionRepository) CountByUser(ctx context.Context, userID int64) (int64, error) {
	const query = `SELECT COUNT(*) FROM pull_transactions WHERE user_id = $1`

	var n int64
	if err := r.db.QueryRow(ctx, query, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return n, nil
}
