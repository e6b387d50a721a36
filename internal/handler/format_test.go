package handler

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gacha-bot/internal/gacha"
	"gacha-bot/internal/model"
	"gacha-bot/internal/service"
)

func TestFormatPull(t *testing.T) {
	res := &service.PullResult{
		BannerID: 7,
		Results: []model.DrawResult{
			{Item: model.Item{Name: "Aru", Rarity: 3}, IsNew: true, IsPickup: true},
			{Item: model.Item{Name: "Haruka", Rarity: 1}},
		},
		Unlocked: []model.Achievement{{Name: "Lucky", Description: "Two in one"}},
	}

	out := FormatPull(res)
	assert.Contains(t, out, " 1. ★★★ Aru 📌 🆕")
	assert.Contains(t, out, " 2. ★ Haruka")
	assert.Contains(t, out, "• Lucky: Two in one")
	assert.NotContains(t, out, "Guest")

	res.Guest = true
	assert.Contains(t, FormatPull(res), "Guest pull")
}

func TestFormatStats(t *testing.T) {
	out := FormatStats(model.DashboardKPIs{TotalPulls: 20, CurrencySpent: 2400, R3Count: 1, R2Count: 4, R1Count: 15},
		[]model.BannerRarity{{BannerName: "Aru Pickup", RarityBreakdown: model.RarityBreakdown{R3Count: 1, R2Count: 4, R1Count: 15}}})
	assert.Contains(t, out, "Total pulls: 20")
	assert.Contains(t, out, "Currency spent: 2400")
	assert.Contains(t, out, "★★★ rate: 5.00%")
	assert.Contains(t, out, "• Aru Pickup: 1 / 4 / 15")

	assert.NotContains(t, FormatStats(model.DashboardKPIs{}, nil), "rate")
}

func TestFormatTopAndFirst(t *testing.T) {
	assert.Equal(t, "📭 No ★★ pulls yet", FormatTop(2, nil))

	top := FormatTop(3, []model.TopItem{
		{Item: model.Item{Name: "Hina"}, Count: 2},
		{Item: model.Item{Name: "Aru"}, Count: 2},
	})
	assert.Contains(t, top, "🥇 Hina x2")
	assert.Contains(t, top, "🥈 Aru x2")

	assert.Contains(t, FormatFirst(nil, false), "No ★★★ pull yet")
	first := FormatFirst(&model.PullRecord{
		Item:      model.Item{Name: "Hina", VersionName: "Original"},
		CreatedAt: time.Date(2024, 3, 1, 12, 1, 0, 0, time.UTC),
	}, true)
	assert.Equal(t, "✨ Your first ★★★ was Hina (Original) on 2024-03-01 12:01", first)
}

func TestFormatBannersAndCollection(t *testing.T) {
	assert.Equal(t, "📭 No banners are open", FormatBanners(nil))
	out := FormatBanners([]model.BannerSummary{{ID: 1, Name: "Aru Pickup", PresetName: "Pickup"}, {ID: 2, Name: "Standard"}})
	assert.Contains(t, out, "#1 Aru Pickup (Pickup)")
	assert.Contains(t, out, "#2 Standard\n")

	assert.Equal(t, "📭 Your collection is empty", FormatCollection(nil))
	assert.Contains(t, FormatCollection([]model.OwnedItem{{Item: model.Item{Name: "Aru", Rarity: 3}, Count: 3}}), "★★★ Aru x3")

	assert.Equal(t, "🏆 Achievements 0/4\n", FormatAchievements(nil, 4))
}

func TestFormatHistory(t *testing.T) {
	assert.Equal(t, "📭 No pulls yet", FormatHistory(nil))
	out := FormatHistory([]model.PullRecord{
		{BannerID: 7, CreatedAt: time.Date(2024, 3, 1, 12, 1, 0, 0, time.UTC), Item: model.Item{Name: "Hina", Rarity: 3}},
		{BannerID: 7, CreatedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), Item: model.Item{Name: "Haruka", Rarity: 1}},
	})
	assert.Contains(t, out, "Last 2 pull(s)")
	assert.Contains(t, out, "03-01 12:01 ★★★ Hina (#7)\n03-01 12:00 ★ Haruka (#7)")
}

func TestParseBannerArg(t *testing.T) {
	id, err := parseBannerArg([]string{"12"})
	require.NoError(t, err)
	assert.Equal(t, int64(12), id)

	for _, args := range [][]string{nil, {"x"}, {"0"}, {"-3"}} {
		_, err := parseBannerArg(args)
		assert.Error(t, err, fmt.Sprint(args))
	}
}

func TestPullErrorMessage(t *testing.T) {
	assert.Contains(t, pullErrorMessage(fmt.Errorf("%w: 9", service.ErrBannerNotFound)), "No such banner")
	assert.Contains(t, pullErrorMessage(gacha.ErrInvalidAmount), "1 or 10")
	assert.Contains(t, pullErrorMessage(gacha.ErrConfiguration), "not available")
	assert.Contains(t, pullErrorMessage(errors.New("boom")), "Pull failed")
}
