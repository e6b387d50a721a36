package service

import (
	"context"
	"fmt"
	"time"

	"gacha-bot/internal/cache"
	"gacha-bot/internal/model"
)

// TopItemsLimit is the number of items a top list shows.
const TopItemsLimit = 3

// HistoryLimit is the number of pulls the history view shows.
const HistoryLimit = 10

// Dashboard views, used as the last segment of the cache key.
const (
	ViewKPIs            = "kpis"
	ViewTopItems        = "top"
	ViewFirstR3         = "first_r3"
	ViewRarityChart     = "rarity"
	ViewBannerBreakdown = "banners"
	ViewCollection      = "collection"
	ViewAchievements    = "achievements"
	ViewHistory         = "history"
)

// DashboardKey returns the cache key of one of a player's views.
func DashboardKey(userID int64, view string) string {
	return fmt.Sprintf("dashboard:%d:%s", userID, view)
}

// DashboardPattern matches every cached view of a player.
func DashboardPattern(userID int64) string {
	return fmt.Sprintf("dashboard:%d:*", userID)
}

// DashboardReader runs the aggregate queries behind the dashboard.
type DashboardReader interface {
	RarityCounts(ctx context.Context, userID int64) (model.RarityBreakdown, error)
	TopItems(ctx context.Context, userID int64, rarity, limit int) ([]model.TopItem, error)
	FirstPullOfRarity(ctx context.Context, userID int64, rarity int) (*model.PullRecord, bool, error)
	BannerBreakdown(ctx context.Context, userID int64) ([]model.BannerRarity, error)
	ListOwned(ctx context.Context, userID int64) ([]model.OwnedItem, error)
	ListUnlocked(ctx context.Context, userID int64) ([]model.UnlockedAchievement, error)
	RecentPulls(ctx context.Context, userID int64, limit int) ([]model.PullRecord, error)
}

// DashboardService serves a player's statistics through the cache.
type DashboardService struct {
	reader          DashboardReader
	cache           cache.Cache
	ttl             time.Duration
	negativeTTL     time.Duration
	currencyPerPull int64
}

// NewDashboardService creates a new DashboardService instance.
func NewDashboardService(reader DashboardReader, c cache.Cache, ttl, negativeTTL time.Duration, currencyPerPull int64) *DashboardService {
	return &DashboardService{
		reader:          reader,
		cache:           c,
		ttl:             ttl,
		negativeTTL:     negativeTTL,
		currencyPerPull: currencyPerPull,
	}
}

// KPIs returns the player's headline numbers.
func (s *DashboardService) KPIs(ctx context.Context, userID int64) (model.DashboardKPIs, error) {
	kpis, _, err := cache.Fetch(ctx, s.cache, DashboardKey(userID, ViewKPIs), s.ttl, cache.NoCache,
		func(ctx context.Context) (model.DashboardKPIs, bool, error) {
			counts, err := s.reader.RarityCounts(ctx, userID)
			if err != nil {
				return model.DashboardKPIs{}, false, err
			}
			total := counts.R3Count + counts.R2Count + counts.R1Count
			return model.DashboardKPIs{
				TotalPulls:    total,
				CurrencySpent: total * s.currencyPerPull,
				R3Count:       counts.R3Count,
				R2Count:       counts.R2Count,
				R1Count:       counts.R1Count,
			}, true, nil
		})
	if err != nil {
		return model.DashboardKPIs{}, fmt.Errorf("failed to get kpis: %w", err)
	}
	return kpis, nil
}

// TopItems returns the player's most pulled items of a rarity.
func (s *DashboardService) TopItems(ctx context.Context, userID int64, rarity int) ([]model.TopItem, error) {
	if rarity < model.RarityOne || rarity > model.RarityThree {
		return nil, ErrInvalidRarity
	}
	key := DashboardKey(userID, fmt.Sprintf("%s_r%d", ViewTopItems, rarity))
	top, _, err := cache.Fetch(ctx, s.cache, key, s.ttl, cache.NoCache,
		func(ctx context.Context) ([]model.TopItem, bool, error) {
			top, err := s.reader.TopItems(ctx, userID, rarity, TopItemsLimit)
			return top, err == nil, err
		})
	if err != nil {
		return nil, fmt.Errorf("failed to get top items: %w", err)
	}
	return top, nil
}

// FirstR3Pull returns the player's earliest rarity-3 pull. A found record
// never changes and is cached without expiry; its absence is cached for the
// negative lifetime and cleared by the player's next pull.
func (s *DashboardService) FirstR3Pull(ctx context.Context, userID int64) (*model.PullRecord, bool, error) {
	rec, found, err := cache.Fetch(ctx, s.cache, DashboardKey(userID, ViewFirstR3), cache.NoExpiry, s.negativeTTL,
		func(ctx context.Context) (*model.PullRecord, bool, error) {
			return s.reader.FirstPullOfRarity(ctx, userID, model.RarityThree)
		})
	if err != nil {
		return nil, false, fmt.Errorf("failed to get first r3 pull: %w", err)
	}
	if !found {
		return nil, false, nil
	}
	return rec, true, nil
}

// RarityChart returns the player's pull counts per rarity.
func (s *DashboardService) RarityChart(ctx context.Context, userID int64) (model.RarityBreakdown, error) {
	counts, _, err := cache.Fetch(ctx, s.cache, DashboardKey(userID, ViewRarityChart), s.ttl, cache.NoCache,
		func(ctx context.Context) (model.RarityBreakdown, bool, error) {
			counts, err := s.reader.RarityCounts(ctx, userID)
			return counts, err == nil, err
		})
	if err != nil {
		return model.RarityBreakdown{}, fmt.Errorf("failed to get rarity chart: %w", err)
	}
	return counts, nil
}

// BannerBreakdown returns the player's rarity counts per banner.
func (s *DashboardService) BannerBreakdown(ctx context.Context, userID int64) ([]model.BannerRarity, error) {
	out, _, err := cache.Fetch(ctx, s.cache, DashboardKey(userID, ViewBannerBreakdown), s.ttl, cache.NoCache,
		func(ctx context.Context) ([]model.BannerRarity, bool, error) {
			out, err := s.reader.BannerBreakdown(ctx, userID)
			return out, err == nil, err
		})
	if err != nil {
		return nil, fmt.Errorf("failed to get banner breakdown: %w", err)
	}
	return out, nil
}

// Collection returns the player's inventory.
func (s *DashboardService) Collection(ctx context.Context, userID int64) ([]model.OwnedItem, error) {
	owned, _, err := cache.Fetch(ctx, s.cache, DashboardKey(userID, ViewCollection), s.ttl, cache.NoCache,
		func(ctx context.Context) ([]model.OwnedItem, bool, error) {
			owned, err := s.reader.ListOwned(ctx, userID)
			return owned, err == nil, err
		})
	if err != nil {
		return nil, fmt.Errorf("failed to get collection: %w", err)
	}
	return owned, nil
}

// Achievements returns the player's unlocked achievements.
func (s *DashboardService) Achievements(ctx context.Context, userID int64) ([]model.UnlockedAchievement, error) {
	list, _, err := cache.Fetch(ctx, s.cache, DashboardKey(userID, ViewAchievements), s.ttl, cache.NoCache,
		func(ctx context.Context) ([]model.UnlockedAchievement, bool, error) {
			list, err := s.reader.ListUnlocked(ctx, userID)
			return list, err == nil, err
		})
	if err != nil {
		return nil, fmt.Errorf("failed to get achievements: %w", err)
	}
	return list, nil
}

// History returns the player's latest pulls, newest first.
func (s *DashboardService) History(ctx context.Context, userID int64) ([]model.PullRecord, error) {
	pulls, _, err := cache.Fetch(ctx, s.cache, DashboardKey(userID, ViewHistory), s.ttl, cache.NoCache,
		func(ctx context.Context) ([]model.PullRecord, bool, error) {
			pulls, err := s.reader.RecentPulls(ctx, userID, HistoryLimit)
			return pulls, err == nil, err
		})
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	return pulls, nil
}
