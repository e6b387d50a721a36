// Package model defines the data models for the gacha bot.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Rarity tiers. Higher is rarer.
const (
	RarityOne   = 1
	RarityTwo   = 2
	RarityThree = 3
)

// Player represents a registered Telegram user.
// Senders without a player row draw as guests.
type Player struct {
	TelegramID int64     `db:"telegram_id"`
	Username   string    `db:"username"`
	CreatedAt  time.Time `db:"created_at"`
}

// RatePreset holds fixed-point percentages for a banner.
// PickupRate is carved out of R3Rate, so PickupRate <= R3Rate.
type RatePreset struct {
	ID         int64           `db:"preset_id" json:"id"`
	Name       string          `db:"preset_name" json:"name"`
	PickupRate decimal.Decimal `db:"pickup_rate" json:"pickup_rate"`
	R3Rate     decimal.Decimal `db:"r3_rate" json:"r3_rate"`
	R2Rate     decimal.Decimal `db:"r2_rate" json:"r2_rate"`
	R1Rate     decimal.Decimal `db:"r1_rate" json:"r1_rate"`
}

// NonPickupR3Rate returns the share of the r3 tier left for general items.
func (p *RatePreset) NonPickupR3Rate() decimal.Decimal {
	return p.R3Rate.Sub(p.PickupRate)
}

// Banner is a draw configuration: a rate preset plus pool rules.
type Banner struct {
	ID               int64       `json:"id"`
	Name             string      `json:"name"`
	Preset           *RatePreset `json:"preset,omitempty"`
	IncludeLimited   bool        `json:"include_limited"`
	IncludedVersions []int64     `json:"included_versions"`
	PickupIDs        []int64     `json:"pickup_ids"`
	ExcludedIDs      []int64     `json:"excluded_ids"`
}

// Item is a collectible entry of the catalog.
type Item struct {
	ID          int64  `db:"item_id" json:"id"`
	Name        string `db:"item_name" json:"name"`
	Rarity      int    `db:"rarity" json:"rarity"`
	Limited     bool   `db:"is_limited" json:"limited"`
	VersionID   int64  `db:"version_id" json:"version_id"`
	VersionName string `db:"version_name" json:"version"`
}

// InventoryEntry tracks how many copies of an item a player owns.
type InventoryEntry struct {
	UserID        int64     `db:"user_id" json:"user_id"`
	ItemID        int64     `db:"item_id" json:"item_id"`
	Count         int       `db:"num_obtained" json:"count"`
	FirstObtained time.Time `db:"first_obtained_at" json:"first_obtained"`
}

// Transaction is an append-only pull record.
type Transaction struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	BannerID  int64     `db:"banner_id" json:"banner_id"`
	ItemID    int64     `db:"item_id" json:"item_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// AchievementCategory groups achievement rules by how they are evaluated.
type AchievementCategory string

// Achievement categories.
const (
	CategoryLuck       AchievementCategory = "LUCK"       // scoped to one batch
	CategoryCollection AchievementCategory = "COLLECTION" // cumulative ownership
	CategoryMilestone  AchievementCategory = "MILESTONE"  // lifetime pull count
)

// Achievement describes an unlockable achievement.
type Achievement struct {
	Key         string              `json:"key"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Category    AchievementCategory `json:"category"`
}

// UnlockRecord marks that a player earned an achievement.
type UnlockRecord struct {
	UserID         int64     `db:"user_id" json:"user_id"`
	AchievementKey string    `db:"achievement_key" json:"achievement_key"`
	UnlockedAt     time.Time `db:"unlocked_at" json:"unlocked_at"`
}

// DrawResult is one decorated slot of a pull response.
type DrawResult struct {
	Item     Item `json:"item"`
	IsNew    bool `json:"is_new"`
	IsPickup bool `json:"is_pickup"`
}

// Asset owner and asset kinds.
const (
	AssetOwnerItem        = "item"
	AssetOwnerBanner      = "banner"
	AssetOwnerSchool      = "school"
	AssetOwnerAchievement = "achievement"

	AssetKindPortrait = "portrait"
	AssetKindArtwork  = "artwork"
	AssetKindImage    = "image"
)
