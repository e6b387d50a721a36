package achievement

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"gacha-bot/internal/model"
)

// Store is the persistence surface used during evaluation. It is bound to the
// same database transaction as the ledger writes of the batch.
type Store interface {
	UnlockedKeys(ctx context.Context, userID int64) (map[string]struct{}, error)
	// OwnedItems returns every item the user owns, as name and version.
	OwnedItems(ctx context.Context, userID int64) ([]ItemRef, error)
	// Unlock records the achievement and reports whether a row was written.
	// An existing unlock is not an error.
	Unlock(ctx context.Context, userID int64, key string) (bool, error)
}

// Engine evaluates the registry's rules for one batch.
type Engine struct {
	registry *Registry
}

// NewEngine creates an Engine over a registry.
func NewEngine(registry *Registry) *Engine {
	return &Engine{registry: registry}
}

// Registry returns the engine's rule registry.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// evaluation carries per-call state: the user's unlocked set, updated as rules
// fire so a key is awarded at most once per call.
type evaluation struct {
	store    Store
	userID   int64
	unlocked map[string]struct{}
	awarded  []model.Achievement
}

// Evaluate checks LUCK rules against drawn, COLLECTION rules against the user's
// inventory (which must already include drawn) and MILESTONE rules against
// postCount. It returns the achievements unlocked by this call in evaluation
// order. Already-unlocked achievements are never returned again.
func (e *Engine) Evaluate(ctx context.Context, store Store, userID int64, drawn []model.Item, preCount, postCount int64) ([]model.Achievement, error) {
	unlocked, err := store.UnlockedKeys(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load unlocked achievements: %w", err)
	}
	if unlocked == nil {
		unlocked = make(map[string]struct{})
	}
	ev := &evaluation{store: store, userID: userID, unlocked: unlocked}

	if err := e.checkLuck(ctx, ev, drawn); err != nil {
		return nil, err
	}
	if err := e.checkCollections(ctx, ev); err != nil {
		return nil, err
	}
	if err := e.checkMilestones(ctx, ev, preCount, postCount); err != nil {
		return nil, err
	}

	return ev.awarded, nil
}

func (e *Engine) checkLuck(ctx context.Context, ev *evaluation, drawn []model.Item) error {
	var r3 int64
	for _, it := range drawn {
		if it.Rarity == model.RarityThree {
			r3++
		}
	}
	for _, rule := range e.registry.ByCategory(model.CategoryLuck) {
		if r3 >= rule.Threshold {
			if err := ev.award(ctx, rule.Achievement); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Engine) checkCollections(ctx context.Context, ev *evaluation) error {
	var pending []Rule
	for _, rule := range e.registry.ByCategory(model.CategoryCollection) {
		if _, done := ev.unlocked[rule.Key]; !done {
			pending = append(pending, rule)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	refs, err := ev.store.OwnedItems(ctx, ev.userID)
	if err != nil {
		return fmt.Errorf("failed to load owned items: %w", err)
	}
	owned := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		owned[ref.String()] = struct{}{}
	}

	for _, rule := range pending {
		if !ownsAll(owned, rule.Items) {
			continue
		}
		if err := ev.award(ctx, rule.Achievement); err != nil {
			return err
		}
	}
	return nil
}

// checkMilestones awards every threshold reached by postCount. preCount only
// feeds the log line; reached thresholds from earlier batches are caught by the
// unlocked set.
func (e *Engine) checkMilestones(ctx context.Context, ev *evaluation, preCount, postCount int64) error {
	for _, rule := range e.registry.ByCategory(model.CategoryMilestone) {
		if postCount < rule.Threshold {
			continue
		}
		if _, done := ev.unlocked[rule.Key]; !done && preCount >= rule.Threshold {
			log.Debug().Int64("user_id", ev.userID).Str("key", rule.Key).Msg("Backfilling milestone crossed earlier")
		}
		if err := ev.award(ctx, rule.Achievement); err != nil {
			return err
		}
	}
	return nil
}

func (ev *evaluation) award(ctx context.Context, a model.Achievement) error {
	if _, done := ev.unlocked[a.Key]; done {
		return nil
	}
	written, err := ev.store.Unlock(ctx, ev.userID, a.Key)
	if err != nil {
		return fmt.Errorf("failed to unlock %s: %w", a.Key, err)
	}
	ev.unlocked[a.Key] = struct{}{}
	if !written {
		// a concurrent batch got there first
		return nil
	}
	log.Info().Int64("user_id", ev.userID).Str("key", a.Key).Msg("Achievement unlocked")
	ev.awarded = append(ev.awarded, a)
	return nil
}

func ownsAll(owned map[string]struct{}, items []ItemRef) bool {
	for _, it := range items {
		if _, ok := owned[it.String()]; !ok {
			return false
		}
	}
	return true
}
