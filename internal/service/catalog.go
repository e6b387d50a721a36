package service

import (
	"context"
	"fmt"
	"time"

	"gacha-bot/internal/cache"
	"gacha-bot/internal/model"
)

// BannersKey is the cache key of the public banner list.
const BannersKey = "catalog:banners"

// BannerLister lists the configured banners.
type BannerLister interface {
	ListBanners(ctx context.Context) ([]model.BannerSummary, error)
}

// CatalogService serves the banner listing and clears the cache on demand.
type CatalogService struct {
	banners BannerLister
	cache   cache.Cache
	ttl     time.Duration
}

// NewCatalogService creates a new CatalogService instance.
func NewCatalogService(banners BannerLister, c cache.Cache, ttl time.Duration) *CatalogService {
	return &CatalogService{banners: banners, cache: c, ttl: ttl}
}

// Banners returns every banner ordered by id.
func (s *CatalogService) Banners(ctx context.Context) ([]model.BannerSummary, error) {
	list, _, err := cache.Fetch(ctx, s.cache, BannersKey, s.ttl, cache.NoCache,
		func(ctx context.Context) ([]model.BannerSummary, bool, error) {
			list, err := s.banners.ListBanners(ctx)
			return list, err == nil, err
		})
	if err != nil {
		return nil, fmt.Errorf("failed to list banners: %w", err)
	}
	return list, nil
}

// ClearCache drops every cached entry and returns how many were removed.
func (s *CatalogService) ClearCache(ctx context.Context) int64 {
	return cache.Invalidate(ctx, s.cache, "*")
}
