package repository

import "gacha-bot/internal/pkg/db"

// BatchStore binds the repositories a pull writes through to one connection
// or transaction. It satisfies both ledger.Store and achievement.Store.
type BatchStore struct {
	*InventoryRepository
	*TransactionRepository
	*AchievementRepository
}

// NewBatchStore creates a BatchStore over conn.
func NewBatchStore(conn db.DBTX) *BatchStore {
	return &BatchStore{
		InventoryRepository:   NewInventoryRepository(conn),
		TransactionRepository: NewTransactionRepository(conn),
		AchievementRepository: NewAchievementRepository(conn),
	}
}
