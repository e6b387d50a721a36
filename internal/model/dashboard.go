package model

import "time"

// DashboardKPIs summarises a player's pull history.
type DashboardKPIs struct {
	TotalPulls    int64 `json:"total_pulls"`
	CurrencySpent int64 `json:"currency_spent"`
	R3Count       int64 `json:"r3_count"`
	R2Count       int64 `json:"r2_count"`
	R1Count       int64 `json:"r1_count"`
}

// RarityBreakdown counts pulls per rarity.
type RarityBreakdown struct {
	R3Count int64 `json:"r3_count"`
	R2Count int64 `json:"r2_count"`
	R1Count int64 `json:"r1_count"`
}

// Add counts one pull of the given rarity.
func (b *RarityBreakdown) Add(rarity int, n int64) {
	switch rarity {
	case RarityThree:
		b.R3Count += n
	case RarityTwo:
		b.R2Count += n
	case RarityOne:
		b.R1Count += n
	}
}

// TopItem is an item ranked by how often a player pulled it.
type TopItem struct {
	Item          Item      `json:"item"`
	Count         int64     `json:"count"`
	FirstObtained time.Time `json:"first_obtained"`
}

// PullRecord is a transaction joined with its item.
type PullRecord struct {
	TransactionID int64     `json:"transaction_id"`
	BannerID      int64     `json:"banner_id"`
	CreatedAt     time.Time `json:"created_at"`
	Item          Item      `json:"item"`
}

// OwnedItem is an inventory entry joined with its item.
type OwnedItem struct {
	Item          Item      `json:"item"`
	Count         int       `json:"count"`
	FirstObtained time.Time `json:"first_obtained"`
}

// BannerSummary is the public listing form of a banner.
type BannerSummary struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	PresetName     string `json:"preset_name"`
	IncludeLimited bool   `json:"include_limited"`
}

// BannerRarity is the rarity breakdown of a player's pulls on one banner.
type BannerRarity struct {
	BannerID   int64  `json:"banner_id"`
	BannerName string `json:"banner_name"`
	RarityBreakdown
}

// UnlockedAchievement is an achievement with the time the player earned it.
type UnlockedAchievement struct {
	Achievement
	UnlockedAt time.Time `json:"unlocked_at"`
}
