package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"gacha-bot/internal/pkg/db"
)

// AssetRepository stores binary images keyed by owner and kind.
type AssetRepository struct {
	db db.DBTX
}

// NewAssetRepository creates a new AssetRepository instance.
func NewAssetRepository(conn db.DBTX) *AssetRepository {
	return &AssetRepository{db: conn}
}

// Get returns an asset's bytes and content type.
// Returns ErrAssetNotFound if there is no such asset.
func (r *AssetRepository) Get(ctx context.Context, owner string, ownerID int64, kind string) ([]byte, string, error) {
	const query = `
		SELECT data, content_type
		FROM assets
		WHERE owner_kind = $1 AND owner_id = $2 AND asset_kind = $3
	`

	var data []byte
	var contentType string
	err := r.db.QueryRow(ctx, query, owner, ownerID, kind).Scan(&data, &contentType)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", ErrAssetNotFound
		}
		return nil, "", fmt.Errorf("failed to get asset: %w", err)
	}
	return data, contentType, nil
}

// Put creates or replaces an asset.
func (r *AssetRepository) Put(ctx context.Context, owner string, ownerID int64, kind, contentType string, data []byte) error {
	const query = `
		INSERT INTO assets (owner_kind, owner_id, asset_kind, content_type, data, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (owner_kind, owner_id, asset_kind)
		DO UPDATE SET content_type = EXCLUDED.content_type, data = EXCLUDED.data, updated_at = NOW()
	`
	if _, err := r.db.Exec(ctx, query, owner, ownerID, kind, contentType, data); err != nil {
		return fmt.Errorf("failed to put asset: %w", err)
	}
	return nil
}
