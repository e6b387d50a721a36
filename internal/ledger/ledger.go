// Package ledger applies a drawn batch to a player's persistent progression:
// one transaction row per draw and an inventory entry per distinct item.
package ledger

import (
	"context"
	"fmt"

	"gacha-bot/internal/model"
)

// Store is the persistence surface the ledger writes through. A Store is bound
// to a single database transaction by the caller; the ledger never commits.
type Store interface {
	// Prefetch returns the owned count for each of itemIDs the user already has.
	// Items the user does not own are absent from the map.
	Prefetch(ctx context.Context, userID int64, itemIDs []int64) (map[int64]int, error)
	AppendTransaction(ctx context.Context, userID, bannerID, itemID int64) error
	CreateEntry(ctx context.Context, userID, itemID int64) error
	IncrementEntry(ctx context.Context, userID, itemID int64) error
}

// Ledger records batches. It is stateless.
type Ledger struct{}

// New creates a Ledger.
func New() *Ledger {
	return &Ledger{}
}

// Apply records items for user in draw order and classifies each slot as new
// or not. A nil user is a guest: nothing is written and no slot is new.
//
// A slot is new only when the user owned no copy before that slot, so an item
// drawn twice in one batch by a first-time owner is new once.
func (l *Ledger) Apply(ctx context.Context, store Store, user *int64, bannerID int64, items []model.Item) ([]model.DrawResult, error) {
	results := make([]model.DrawResult, len(items))
	for i, it := range items {
		results[i] = model.DrawResult{Item: it}
	}
	if user == nil || len(items) == 0 {
		return results, nil
	}
	userID := *user

	owned, err := store.Prefetch(ctx, userID, DistinctIDs(items))
	if err != nil {
		return nil, fmt.Errorf("failed to prefetch inventory: %w", err)
	}
	if owned == nil {
		owned = make(map[int64]int)
	}

	for i, it := range items {
		if err := store.AppendTransaction(ctx, userID, bannerID, it.ID); err != nil {
			return nil, fmt.Errorf("failed to record draw of item %d: %w", it.ID, err)
		}

		if owned[it.ID] == 0 {
			results[i].IsNew = true
			if err := store.CreateEntry(ctx, userID, it.ID); err != nil {
				return nil, fmt.Errorf("failed to create inventory entry for item %d: %w", it.ID, err)
			}
		} else if err := store.IncrementEntry(ctx, userID, it.ID); err != nil {
			return nil, fmt.Errorf("failed to increment inventory entry for item %d: %w", it.ID, err)
		}
		owned[it.ID]++
	}

	return results, nil
}

// DistinctIDs returns the item ids of items, first occurrence order.
func DistinctIDs(items []model.Item) []int64 {
	seen := make(map[int64]struct{}, len(items))
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it.ID]; ok {
			continue
		}
		seen[it.ID] = struct{}{}
		ids = append(ids, it.ID)
	}
	return ids
}
