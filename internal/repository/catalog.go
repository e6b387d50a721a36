package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"gacha-bot/internal/model"
	"gacha-bot/internal/pkg/db"
)

// CatalogRepository reads banners, rate presets and the item catalog.
type CatalogRepository struct {
	db db.DBTX
}

// NewCatalogRepository creates a new CatalogRepository instance.
func NewCatalogRepository(conn db.DBTX) *CatalogRepository {
	return &CatalogRepository{db: conn}
}

// GetBanner loads a banner with its preset and pool rules.
// Returns ErrBannerNotFound if the banner does not exist.
func (r *CatalogRepository) GetBanner(ctx context.Context, bannerID int64) (*model.Banner, error) {
	// NUMERIC is read as text to keep the fixed-point value exact
	const query = `
		SELECT b.banner_id, b.banner_name, b.include_limited,
		       p.preset_id, p.preset_name,
		       p.pickup_rate::text, p.r3_rate::text, p.r2_rate::text, p.r1_rate::text
		FROM banners b
		LEFT JOIN rate_presets p ON p.preset_id = b.preset_id
		WHERE b.banner_id = $1
	`

	var (
		b                  model.Banner
		presetID           *int64
		presetName         *string
		pickup, r3, r2, r1 *string
	)
	err := r.db.QueryRow(ctx, query, bannerID).Scan(
		&b.ID,
		&b.Name,
		&b.IncludeLimited,
		&presetID,
		&presetName,
		&pickup, &r3, &r2, &r1,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBannerNotFound
		}
		return nil, fmt.Errorf("failed to get banner: %w", err)
	}

	if presetID != nil {
		preset := &model.RatePreset{ID: *presetID, Name: *presetName}
		rates := []struct {
			dst *decimal.Decimal
			src *string
		}{
			{&preset.PickupRate, pickup},
			{&preset.R3Rate, r3},
			{&preset.R2Rate, r2},
			{&preset.R1Rate, r1},
		}
		for _, rate := range rates {
			d, err := decimal.NewFromString(*rate.src)
			if err != nil {
				return nil, fmt.Errorf("failed to parse rate of preset %d: %w", *presetID, err)
			}
			*rate.dst = d
		}
		b.Preset = preset
	}

	if b.IncludedVersions, err = r.bannerIDs(ctx, "banner_versions", "version_id", bannerID); err != nil {
		return nil, err
	}
	if b.PickupIDs, err = r.bannerIDs(ctx, "banner_pickups", "item_id", bannerID); err != nil {
		return nil, err
	}
	if b.ExcludedIDs, err = r.bannerIDs(ctx, "banner_excludes", "item_id", bannerID); err != nil {
		return nil, err
	}

	return &b, nil
}

func (r *CatalogRepository) bannerIDs(ctx context.Context, table, column string, bannerID int64) ([]int64, error) {
	query, args, err := squirrel.
		Select(column).
		From(table).
		Where(squirrel.Eq{"banner_id": bannerID}).
		OrderBy(column).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", table, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", table, err)
	}
	return ids, nil
}

// Items returns the full catalog ordered by item id.
func (r *CatalogRepository) Items(ctx context.Context) ([]model.Item, error) {
	query, args, err := itemColumns().
		From("items i").
		Join("versions v ON v.version_id = i.version_id").
		OrderBy("i.item_id").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		var it model.Item
		if err := scanItem(rows, &it); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, it)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating items: %w", err)
	}

	return items, nil
}

// ListBanners returns the public banner listing ordered by id.
func (r *CatalogRepository) ListBanners(ctx context.Context) ([]model.BannerSummary, error) {
	const query = `
		SELECT b.banner_id, b.banner_name, COALESCE(p.preset_name, ''), b.include_limited
		FROM banners b
		LEFT JOIN rate_presets p ON p.preset_id = b.preset_id
		ORDER BY b.banner_id
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list banners: %w", err)
	}
	defer rows.Close()

	var banners []model.BannerSummary
	for rows.Next() {
		var b model.BannerSummary
		if err := rows.Scan(&b.ID, &b.Name, &b.PresetName, &b.IncludeLimited); err != nil {
			return nil, fmt.Errorf("failed to scan banner: %w", err)
		}
		banners = append(banners, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating banners: %w", err)
	}

	return banners, nil
}

// ========== Catalog maintenance ==========

// CreateVersion inserts a version and returns its id.
func (r *CatalogRepository) CreateVersion(ctx context.Context, name string) (int64, error) {
	const query = `
		INSERT INTO versions (version_name) VALUES ($1)
		ON CONFLICT (version_name) DO UPDATE SET version_name = EXCLUDED.version_name
		RETURNING version_id
	`
	var id int64
	if err := r.db.QueryRow(ctx, query, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to create version: %w", err)
	}
	return id, nil
}

// CreateItem inserts an item and returns its id.
func (r *CatalogRepository) CreateItem(ctx context.Context, it model.Item) (int64, error) {
	query, args, err := squirrel.
		Insert("items").
		Columns("item_name", "rarity", "is_limited", "version_id").
		Values(it.Name, it.Rarity, it.Limited, it.VersionID).
		Suffix("RETURNING item_id").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return 0, err
	}

	var id int64
	if err := r.db.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to create item: %w", err)
	}
	return id, nil
}

// CreatePreset inserts a rate preset and returns its id.
func (r *CatalogRepository) CreatePreset(ctx context.Context, p model.RatePreset) (int64, error) {
	const query = `
		INSERT INTO rate_presets (preset_name, pickup_rate, r3_rate, r2_rate, r1_rate)
		VALUES ($1, $2::text::numeric, $3::text::numeric, $4::text::numeric, $5::text::numeric)
		RETURNING preset_id
	`
	var id int64
	err := r.db.QueryRow(ctx, query, p.Name,
		p.PickupRate.String(), p.R3Rate.String(), p.R2Rate.String(), p.R1Rate.String(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create rate preset: %w", err)
	}
	return id, nil
}

// CreateBanner inserts a banner with its pool rules and returns its id.
// Run it inside a transaction to keep the rule rows consistent.
func (r *CatalogRepository) CreateBanner(ctx context.Context, b model.Banner) (int64, error) {
	var presetID *int64
	if b.Preset != nil {
		presetID = &b.Preset.ID
	}

	const query = `
		INSERT INTO banners (banner_name, preset_id, include_limited)
		VALUES ($1, $2, $3)
		RETURNING banner_id
	`
	var id int64
	if err := r.db.QueryRow(ctx, query, b.Name, presetID, b.IncludeLimited).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to create banner: %w", err)
	}

	rules := []struct {
		table  string
		column string
		ids    []int64
	}{
		{"banner_versions", "version_id", b.IncludedVersions},
		{"banner_pickups", "item_id", b.PickupIDs},
		{"banner_excludes", "item_id", b.ExcludedIDs},
	}
	for _, rule := range rules {
		if len(rule.ids) == 0 {
			continue
		}
		insert := squirrel.Insert(rule.table).Columns("banner_id", rule.column)
		for _, ref := range rule.ids {
			insert = insert.Values(id, ref)
		}
		query, args, err := insert.PlaceholderFormat(squirrel.Dollar).ToSql()
		if err != nil {
			return 0, err
		}
		if _, err := r.db.Exec(ctx, query, args...); err != nil {
			return 0, fmt.Errorf("failed to insert %s: %w", rule.table, err)
		}
	}

	return id, nil
}

// itemColumns selects an item joined with its version, aliased i and v.
func itemColumns() squirrel.SelectBuilder {
	return squirrel.Select("i.item_id", "i.item_name", "i.rarity", "i.is_limited", "i.version_id", "v.version_name")
}

// scanItem reads the columns produced by itemColumns, in order.
func scanItem(row pgx.Row, it *model.Item, extra ...any) error {
	dest := append([]any{&it.ID, &it.Name, &it.Rarity, &it.Limited, &it.VersionID, &it.VersionName}, extra...)
	return row.Scan(dest...)
}
