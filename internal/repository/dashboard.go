package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"gacha-bot/internal/model"
	"gacha-bot/internal/pkg/db"
)

// DashboardRepository runs the aggregate queries behind a player's statistics.
type DashboardRepository struct {
	db db.DBTX
}

// NewDashboardRepository creates a new DashboardRepository instance.
func NewDashboardRepository(conn db.DBTX) *DashboardRepository {
	return &DashboardRepository{db: conn}
}

// RarityCounts counts the user's pulls per rarity.
func (r *DashboardRepository) RarityCounts(ctx context.Context, userID int64) (model.RarityBreakdown, error) {
	const query = `
		SELECT i.rarity, COUNT(*)
		FROM pull_transactions t
		JOIN items i ON i.item_id = t.item_id
		WHERE t.user_id = $1
		GROUP BY i.rarity
	`

	var out model.RarityBreakdown
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return out, fmt.Errorf("failed to count pulls by rarity: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rarity int
		var n int64
		if err := rows.Scan(&rarity, &n); err != nil {
			return out, fmt.Errorf("failed to scan rarity count: %w", err)
		}
		out.Add(rarity, n)
	}

	if err := rows.Err(); err != nil {
		return out, fmt.Errorf("error iterating rarity counts: %w", err)
	}

	return out, nil
}

// TopItems returns the user's most pulled items of one rarity, ties broken by
// the earliest pull.
func (r *DashboardRepository) TopItems(ctx context.Context, userID int64, rarity, limit int) ([]model.TopItem, error) {
	query, args, err := itemColumns().
		Columns("COUNT(*) AS pulls", "MIN(t.created_at) AS first_pull").
		From("pull_transactions t").
		Join("items i ON i.item_id = t.item_id").
		Join("versions v ON v.version_id = i.version_id").
		Where(squirrel.Eq{"t.user_id": userID, "i.rarity": rarity}).
		GroupBy("i.item_id", "v.version_name").
		OrderBy("pulls DESC", "first_pull ASC", "i.item_id").
		Limit(uint64(limit)).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get top items: %w", err)
	}
	defer rows.Close()

	var top []model.TopItem
	for rows.Next() {
		var ti model.TopItem
		if err := scanItem(rows, &ti.Item, &ti.Count, &ti.FirstObtained); err != nil {
			return nil, fmt.Errorf("failed to scan top item: %w", err)
		}
		top = append(top, ti)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating top items: %w", err)
	}

	return top, nil
}

// FirstPullOfRarity returns the user's earliest pull of an item of the given
// rarity. The boolean is false when the user has none.
func (r *DashboardRepository) FirstPullOfRarity(ctx context.Context, userID int64, rarity int) (*model.PullRecord, bool, error) {
	query, args, err := itemColumns().
		Columns("t.id", "t.banner_id", "t.created_at").
		From("pull_transactions t").
		Join("items i ON i.item_id = t.item_id").
		Join("versions v ON v.version_id = i.version_id").
		Where(squirrel.Eq{"t.user_id": userID, "i.rarity": rarity}).
		OrderBy("t.created_at", "t.id").
		Limit(1).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, false, err
	}

	var rec model.PullRecord
	err = scanItem(r.db.QueryRow(ctx, query, args...), &rec.Item, &rec.TransactionID, &rec.BannerID, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get first pull: %w", err)
	}
	return &rec, true, nil
}

// RecentPulls returns the user's latest pulls joined with their items, newest
// first.
func (r *DashboardRepository) RecentPulls(ctx context.Context, userID int64, limit int) ([]model.PullRecord, error) {
	query, args, err := itemColumns().
		Columns("t.id", "t.banner_id", "t.created_at").
		From("pull_transactions t").
		Join("items i ON i.item_id = t.item_id").
		Join("versions v ON v.version_id = i.version_id").
		Where(squirrel.Eq{"t.user_id": userID}).
		OrderBy("t.created_at DESC", "t.id DESC").
		Limit(uint64(limit)).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent pulls: %w", err)
	}
	defer rows.Close()

	var out []model.PullRecord
	for rows.Next() {
		var rec model.PullRecord
		if err := scanItem(rows, &rec.Item, &rec.TransactionID, &rec.BannerID, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan pull: %w", err)
		}
		out = append(out, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pulls: %w", err)
	}

	return out, nil
}

// BannerBreakdown counts the user's pulls per banner and rarity.
func (r *DashboardRepository) BannerBreakdown(ctx context.Context, userID int64) ([]model.BannerRarity, error) {
	const query = `
		SELECT b.banner_id, b.banner_name, i.rarity, COUNT(*)
		FROM pull_transactions t
		JOIN banners b ON b.banner_id = t.banner_id
		JOIN items i ON i.item_id = t.item_id
		WHERE t.user_id = $1
		GROUP BY b.banner_id, b.banner_name, i.rarity
		ORDER BY b.banner_id
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get banner breakdown: %w", err)
	}
	defer rows.Close()

	var out []model.BannerRarity
	for rows.Next() {
		var (
			id     int64
			name   string
			rarity int
			n      int64
		)
		if err := rows.Scan(&id, &name, &rarity, &n); err != nil {
			return nil, fmt.Errorf("failed to scan banner breakdown: %w", err)
		}
		if len(out) == 0 || out[len(out)-1].BannerID != id {
			out = append(out, model.BannerRarity{BannerID: id, BannerName: name})
		}
		out[len(out)-1].Add(rarity, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating banner breakdown: %w", err)
	}

	return out, nil
}

// DashboardStore joins the aggregate queries with the inventory and unlock
// listings shown beside them.
type DashboardStore struct {
	*DashboardRepository
	*InventoryRepository
	*AchievementRepository
}

// NewDashboardStore creates a DashboardStore over conn.
func NewDashboardStore(conn db.DBTX) *DashboardStore {
	return &DashboardStore{
		DashboardRepository:   NewDashboardRepository(conn),
		InventoryRepository:   NewInventoryRepository(conn),
		AchievementRepository: NewAchievementRepository(conn),
	}
}
