package repository

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"gacha-bot/internal/achievement"
	"gacha-bot/internal/model"
	"gacha-bot/internal/pkg/db"
)

// InventoryRepository handles per-player item ownership.
type InventoryRepository struct {
	db db.DBTX
}

// NewInventoryRepository creates a new InventoryRepository instance.
func NewInventoryRepository(conn db.DBTX) *InventoryRepository {
	return &InventoryRepository{db: conn}
}

// Prefetch returns the owned count of each listed item the user owns, in one
// round trip.
func (r *InventoryRepository) Prefetch(ctx context.Context, userID int64, itemIDs []int64) (map[int64]int, error) {
	owned := make(map[int64]int, len(itemIDs))
	if len(itemIDs) == 0 {
		return owned, nil
	}

	query, args, err := squirrel.
		Select("item_id", "num_obtained").
		From("inventory").
		Where(squirrel.Eq{"user_id": userID, "item_id": itemIDs}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to prefetch inventory: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var count int
		if err := rows.Scan(&id, &count); err != nil {
			return nil, fmt.Errorf("failed to scan inventory entry: %w", err)
		}
		owned[id] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating inventory: %w", err)
	}

	return owned, nil
}

// CreateEntry records first ownership of an item. If a concurrent writer
// created the row first it is incremented instead.
func (r *InventoryRepository) CreateEntry(ctx context.Context, userID, itemID int64) error {
	const query = `
		INSERT INTO inventory (user_id, item_id, num_obtained, first_obtained_at)
		VALUES ($1, $2, 1, NOW())
		ON CONFLICT (user_id, item_id)
		DO UPDATE SET num_obtained = inventory.num_obtained + 1
	`
	if _, err := r.db.Exec(ctx, query, userID, itemID); err != nil {
		return fmt.Errorf("failed to create inventory entry: %w", err)
	}
	return nil
}

// IncrementEntry adds one copy to an existing entry.
// Returns ErrEntryNotFound if the user does not own the item.
func (r *InventoryRepository) IncrementEntry(ctx context.Context, userID, itemID int64) error {
	const query = `
		UPDATE inventory
		SET num_obtained = num_obtained + 1
		WHERE user_id = $1 AND item_id = $2
	`
	result, err := r.db.Exec(ctx, query, userID, itemID)
	if err != nil {
		return fmt.Errorf("failed to increment inventory entry: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// GetCount returns how many copies of an item the user owns.
func (r *InventoryRepository) GetCount(ctx context.Context, userID, itemID int64) (int, error) {
	owned, err := r.Prefetch(ctx, userID, []int64{itemID})
	if err != nil {
		return 0, err
	}
	return owned[itemID], nil
}

// ListOwned returns the user's inventory joined with item details, rarest first.
func (r *InventoryRepository) ListOwned(ctx context.Context, userID int64) ([]model.OwnedItem, error) {
	query, args, err := itemColumns().
		Columns("inv.num_obtained", "inv.first_obtained_at").
		From("inventory inv").
		Join("items i ON i.item_id = inv.item_id").
		Join("versions v ON v.version_id = i.version_id").
		Where(squirrel.Eq{"inv.user_id": userID}).
		OrderBy("i.rarity DESC", "i.item_name", "i.item_id").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory: %w", err)
	}
	defer rows.Close()

	var owned []model.OwnedItem
	for rows.Next() {
		var o model.OwnedItem
		if err := scanItem(rows, &o.Item, &o.Count, &o.FirstObtained); err != nil {
			return nil, fmt.Errorf("failed to scan owned item: %w", err)
		}
		owned = append(owned, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating inventory: %w", err)
	}

	return owned, nil
}

// OwnedItems returns the user's items as name and version, the identity
// collection achievements are defined over.
func (r *InventoryRepository) OwnedItems(ctx context.Context, userID int64) ([]achievement.ItemRef, error) {
	const query = `
		SELECT i.item_name, v.version_name
		FROM inventory inv
		JOIN items i ON i.item_id = inv.item_id
		JOIN versions v ON v.version_id = i.version_id
		WHERE inv.user_id = $1
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get owned items: %w", err)
	}
	defer rows.Close()

	var refs []achievement.ItemRef
	for rows.Next() {
		var ref achievement.ItemRef
		if err := rows.Scan(&ref.Name, &ref.Version); err != nil {
			return nil, fmt.Errorf("failed to scan owned item: %w", err)
		}
		refs = append(refs, ref)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating owned items: %w", err)
	}

	return refs, nil
}
