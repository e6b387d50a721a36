package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog/log"

	"gacha-bot/internal/cache"
	"gacha-bot/internal/model"
	"gacha-bot/internal/repository"
)

var (
	assetOwners = map[string]struct{}{
		model.AssetOwnerItem:        {},
		model.AssetOwnerBanner:      {},
		model.AssetOwnerSchool:      {},
		model.AssetOwnerAchievement: {},
	}
	assetKinds = map[string]struct{}{
		model.AssetKindPortrait: {},
		model.AssetKindArtwork:  {},
		model.AssetKindImage:    {},
	}
)

// AssetStore reads and writes binary assets.
type AssetStore interface {
	Get(ctx context.Context, owner string, ownerID int64, kind string) ([]byte, string, error)
	Put(ctx context.Context, owner string, ownerID int64, kind, contentType string, data []byte) error
}

// Asset is a cached image with its validator.
type Asset struct {
	ETag        string `json:"etag"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

// AssetMeta is the validator half of an asset, cached apart from the body.
type AssetMeta struct {
	ETag        string `json:"etag"`
	ContentType string `json:"content_type"`
}

// AssetKey returns the cache key of an asset body.
func AssetKey(owner string, ownerID int64, kind string) string {
	return "asset:" + owner + ":" + strconv.FormatInt(ownerID, 10) + ":" + kind
}

// AssetMetaKey returns the cache key of an asset's validator.
func AssetMetaKey(owner string, ownerID int64, kind string) string {
	return AssetKey(owner, ownerID, kind) + ":meta"
}

// ETag returns the strong validator of data.
func ETag(data []byte) string {
	return `"` + strconv.FormatUint(xxhash.Sum64(data), 16) + `"`
}

// AssetService serves images through the cache with content validators.
type AssetService struct {
	store AssetStore
	cache cache.Cache
	ttl   time.Duration
}

// NewAssetService creates a new AssetService instance.
func NewAssetService(store AssetStore, c cache.Cache, ttl time.Duration) *AssetService {
	return &AssetService{store: store, cache: c, ttl: ttl}
}

// Get returns an asset. When ifNoneMatch matches the current validator the
// boolean is true and the caller should answer "not modified". That answer
// comes from the cached validator alone; the body is not read.
func (s *AssetService) Get(ctx context.Context, owner string, ownerID int64, kind, ifNoneMatch string) (*Asset, bool, error) {
	if err := validateAsset(owner, kind); err != nil {
		return nil, false, err
	}
	bodyKey := AssetKey(owner, ownerID, kind)

	// loaded is set when the validator missed and the store was read here
	var loaded *Asset
	meta, found, err := cache.Fetch(ctx, s.cache, AssetMetaKey(owner, ownerID, kind), s.ttl, cache.NoCache,
		func(ctx context.Context) (AssetMeta, bool, error) {
			asset, found, err := s.load(ctx, owner, ownerID, kind)
			if err != nil || !found {
				return AssetMeta{}, found, err
			}
			loaded = &asset
			cache.Put(ctx, s.cache, bodyKey, asset, s.ttl)
			return AssetMeta{ETag: asset.ETag, ContentType: asset.ContentType}, true, nil
		})
	if err != nil {
		return nil, false, fmt.Errorf("failed to get asset: %w", err)
	}
	if !found {
		return nil, false, ErrAssetNotFound
	}

	if ifNoneMatch != "" && (ifNoneMatch == "*" || ifNoneMatch == meta.ETag) {
		return &Asset{ETag: meta.ETag, ContentType: meta.ContentType}, true, nil
	}
	if loaded != nil {
		return loaded, false, nil
	}

	asset, found, err := cache.Fetch(ctx, s.cache, bodyKey, s.ttl, cache.NoCache,
		func(ctx context.Context) (Asset, bool, error) {
			return s.load(ctx, owner, ownerID, kind)
		})
	if err != nil {
		return nil, false, fmt.Errorf("failed to get asset: %w", err)
	}
	if !found {
		return nil, false, ErrAssetNotFound
	}
	return &asset, false, nil
}

func (s *AssetService) load(ctx context.Context, owner string, ownerID int64, kind string) (Asset, bool, error) {
	data, contentType, err := s.store.Get(ctx, owner, ownerID, kind)
	if err != nil {
		if errors.Is(err, repository.ErrAssetNotFound) {
			return Asset{}, false, nil
		}
		return Asset{}, false, err
	}
	return Asset{ETag: ETag(data), ContentType: contentType, Data: data}, true, nil
}

// Put stores an asset and drops its cached body and validator.
func (s *AssetService) Put(ctx context.Context, owner string, ownerID int64, kind, contentType string, data []byte) error {
	if err := validateAsset(owner, kind); err != nil {
		return err
	}
	if err := s.store.Put(ctx, owner, ownerID, kind, contentType, data); err != nil {
		return err
	}
	if s.cache != nil {
		for _, key := range []string{AssetMetaKey(owner, ownerID, kind), AssetKey(owner, ownerID, kind)} {
			if err := s.cache.Delete(ctx, key); err != nil {
				log.Warn().Err(err).Str("key", key).Msg("Failed to drop cached asset")
			}
		}
	}
	return nil
}

func validateAsset(owner, kind string) error {
	if _, ok := assetOwners[owner]; !ok {
		return fmt.Errorf("%w: owner %q", ErrInvalidAsset, owner)
	}
	if _, ok := assetKinds[kind]; !ok {
		return fmt.Errorf("%w: kind %q", ErrInvalidAsset, kind)
	}
	return nil
}
