package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"gacha-bot/internal/achievement"
	"gacha-bot/internal/cache"
	"gacha-bot/internal/gacha"
	"gacha-bot/internal/ledger"
	"gacha-bot/internal/metrics"
	"gacha-bot/internal/model"
	"gacha-bot/internal/pkg/db"
	"gacha-bot/internal/pkg/lock"
	"gacha-bot/internal/repository"
)

// CatalogProvider supplies banner configurations and the item catalog.
type CatalogProvider interface {
	GetBanner(ctx context.Context, bannerID int64) (*model.Banner, error)
	Items(ctx context.Context) ([]model.Item, error)
}

// BatchStore is everything one pull writes through: the ledger, the
// achievement engine and the lifetime draw count.
type BatchStore interface {
	ledger.Store
	achievement.Store
	CountByUser(ctx context.Context, userID int64) (int64, error)
}

// BatchRunner runs fn with a BatchStore bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
type BatchRunner func(ctx context.Context, fn func(store BatchStore) error) error

// PostgresBatches returns a BatchRunner backed by database transactions.
func PostgresBatches(b db.Beginner) BatchRunner {
	return func(ctx context.Context, fn func(store BatchStore) error) error {
		return db.WithTx(ctx, b, func(tx pgx.Tx) error {
			return fn(repository.NewBatchStore(tx))
		})
	}
}

// PullResult is the response of a pull.
type PullResult struct {
	BannerID int64
	Guest    bool
	Results  []model.DrawResult
	Unlocked []model.Achievement
}

// GachaService orchestrates a pull: draw, record, evaluate achievements and
// invalidate the player's cached views.
type GachaService struct {
	players      PlayerStore
	catalog      CatalogProvider
	batches      BatchRunner
	ledger       *ledger.Ledger
	achievements *achievement.Engine
	locks        *lock.KeyedLock
	lockTimeout  time.Duration
	cache        cache.Cache
	metrics      *metrics.Metrics
	newRand      func() gacha.Rand
}

// GachaOption configures a GachaService.
type GachaOption func(*GachaService)

// WithRandSource overrides the random source created for every pull.
func WithRandSource(newRand func() gacha.Rand) GachaOption {
	return func(s *GachaService) {
		s.newRand = newRand
	}
}

// WithLockTimeout bounds how long a pull waits for the player's earlier pull.
func WithLockTimeout(d time.Duration) GachaOption {
	return func(s *GachaService) {
		s.lockTimeout = d
	}
}

// NewGachaService creates a new GachaService instance. c and m may be nil.
func NewGachaService(
	players PlayerStore,
	catalog CatalogProvider,
	batches BatchRunner,
	achievements *achievement.Engine,
	c cache.Cache,
	m *metrics.Metrics,
	opts ...GachaOption,
) *GachaService {
	s := &GachaService{
		players:      players,
		catalog:      catalog,
		batches:      batches,
		ledger:       ledger.New(),
		achievements: achievements,
		locks:        lock.NewKeyedLock(),
		lockTimeout:  10 * time.Second,
		cache:        c,
		metrics:      m,
		newRand:      func() gacha.Rand { return gacha.NewRand() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Pull draws amount items (1 or 10) from a banner for the sender.
// Unregistered senders draw as guests and nothing is persisted.
func (s *GachaService) Pull(ctx context.Context, telegramID, bannerID int64, amount int) (*PullResult, error) {
	result, err := s.pull(ctx, telegramID, bannerID, amount)
	if err != nil {
		s.metrics.RecordPull(metrics.OutcomeError)
		return nil, err
	}
	if result.Guest {
		s.metrics.RecordPull(metrics.OutcomeGuest)
	} else {
		s.metrics.RecordPull(metrics.OutcomePlayer)
	}
	for _, r := range result.Results {
		s.metrics.RecordDraw(r.Item.Rarity)
	}
	for _, a := range result.Unlocked {
		s.metrics.RecordUnlock(string(a.Category))
	}
	return result, nil
}

func (s *GachaService) pull(ctx context.Context, telegramID, bannerID int64, amount int) (*PullResult, error) {
	if err := gacha.ValidateAmount(amount); err != nil {
		return nil, err
	}

	var user *int64
	if _, err := s.players.GetByID(ctx, telegramID); err == nil {
		user = &telegramID
	} else if !errors.Is(err, repository.ErrPlayerNotFound) {
		return nil, fmt.Errorf("failed to resolve player: %w", err)
	}

	engine, err := s.loadEngine(ctx, bannerID)
	if err != nil {
		return nil, err
	}

	items, err := engine.Draw(amount, s.newRand())
	if err != nil {
		return nil, err
	}

	result := &PullResult{BannerID: bannerID, Guest: user == nil}
	if user == nil {
		result.Results, err = s.ledger.Apply(ctx, nil, nil, bannerID, items)
		if err != nil {
			return nil, err
		}
	} else {
		err = s.locks.WithLock(ctx, telegramID, s.lockTimeout, func() error {
			return s.batches(ctx, func(store BatchStore) error {
				preCount, err := store.CountByUser(ctx, telegramID)
				if err != nil {
					return fmt.Errorf("failed to count draws: %w", err)
				}
				results, err := s.ledger.Apply(ctx, store, user, bannerID, items)
				if err != nil {
					return err
				}
				unlocked, err := s.achievements.Evaluate(ctx, store, telegramID, items, preCount, preCount+int64(len(items)))
				if err != nil {
					return err
				}
				result.Results = results
				result.Unlocked = unlocked
				return nil
			})
		})
		if err != nil {
			return nil, fmt.Errorf("failed to record pull: %w", err)
		}
		cache.Invalidate(ctx, s.cache, DashboardPattern(telegramID))
	}

	for i := range result.Results {
		result.Results[i].IsPickup = engine.IsPickup(result.Results[i].Item.ID)
	}

	log.Info().
		Int64("user_id", telegramID).
		Int64("banner_id", bannerID).
		Int("amount", amount).
		Bool("guest", result.Guest).
		Int("unlocked", len(result.Unlocked)).
		Msg("Pull completed")

	return result, nil
}

func (s *GachaService) loadEngine(ctx context.Context, bannerID int64) (*gacha.Engine, error) {
	banner, err := s.catalog.GetBanner(ctx, bannerID)
	if err != nil {
		if errors.Is(err, repository.ErrBannerNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrBannerNotFound, bannerID)
		}
		return nil, fmt.Errorf("failed to load banner: %w", err)
	}
	items, err := s.catalog.Items(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	engine, err := gacha.NewEngine(banner, items)
	if err != nil {
		log.Error().Err(err).Int64("banner_id", bannerID).Msg("Banner is misconfigured")
		return nil, err
	}
	return engine, nil
}
