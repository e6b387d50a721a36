// Package service provides business logic implementations.
package service

import "errors"

// Common errors for service operations.
var (
	ErrBannerNotFound = errors.New("banner not found")
	ErrAssetNotFound  = errors.New("asset not found")
	ErrInvalidAsset   = errors.New("invalid asset reference")
	ErrInvalidRarity  = errors.New("rarity must be 1, 2 or 3")
)
