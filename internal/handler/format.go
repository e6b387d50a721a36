// Package handler provides Telegram bot command handlers and the HTTP side
// server routes.
package handler

import (
	"fmt"
	"strings"

	"gacha-bot/internal/model"
	"gacha-bot/internal/service"
)

var rarityStars = map[int]string{
	model.RarityOne:   "★",
	model.RarityTwo:   "★★",
	model.RarityThree: "★★★",
}

// Stars renders a rarity as stars.
func Stars(rarity int) string {
	if s, ok := rarityStars[rarity]; ok {
		return s
	}
	return "?"
}

// FormatPull renders a pull result as a chat message.
func FormatPull(res *service.PullResult) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🎰 Banner #%d, %d draw(s)\n\n", res.BannerID, len(res.Results)))
	for i, r := range res.Results {
		sb.WriteString(fmt.Sprintf("%2d. %s %s", i+1, Stars(r.Item.Rarity), r.Item.Name))
		if r.IsPickup {
			sb.WriteString(" 📌")
		}
		if r.IsNew {
			sb.WriteString(" 🆕")
		}
		sb.WriteString("\n")
	}

	if res.Guest {
		sb.WriteString("\nℹ️ Guest pull, nothing was saved. Use /start to register.")
	}
	if len(res.Unlocked) > 0 {
		sb.WriteString("\n🏆 Achievements unlocked:\n")
		for _, a := range res.Unlocked {
			sb.WriteString(fmt.Sprintf("• %s: %s\n", a.Name, a.Description))
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// FormatBanners renders the banner listing.
func FormatBanners(banners []model.BannerSummary) string {
	if len(banners) == 0 {
		return "📭 No banners are open"
	}
	var sb strings.Builder
	sb.WriteString("🎪 Banners\n\n")
	for _, b := range banners {
		sb.WriteString(fmt.Sprintf("#%d %s", b.ID, b.Name))
		if b.PresetName != "" {
			sb.WriteString(fmt.Sprintf(" (%s)", b.PresetName))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\nUse /pull <id> or /pull10 <id>")
	return sb.String()
}

// FormatStats renders the headline numbers and per-banner breakdown.
func FormatStats(kpis model.DashboardKPIs, banners []model.BannerRarity) string {
	var sb strings.Builder
	sb.WriteString("📊 Your statistics\n\n")
	sb.WriteString(fmt.Sprintf("Total pulls: %d\n", kpis.TotalPulls))
	sb.WriteString(fmt.Sprintf("Currency spent: %d\n", kpis.CurrencySpent))
	sb.WriteString(fmt.Sprintf("%s %d | %s %d | %s %d\n",
		Stars(model.RarityThree), kpis.R3Count,
		Stars(model.RarityTwo), kpis.R2Count,
		Stars(model.RarityOne), kpis.R1Count))
	if kpis.TotalPulls > 0 {
		sb.WriteString(fmt.Sprintf("%s rate: %.2f%%\n", Stars(model.RarityThree),
			float64(kpis.R3Count)*100/float64(kpis.TotalPulls)))
	}

	if len(banners) > 0 {
		sb.WriteString("\nBy banner:\n")
		for _, b := range banners {
			sb.WriteString(fmt.Sprintf("• %s: %d / %d / %d\n", b.BannerName, b.R3Count, b.R2Count, b.R1Count))
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// FormatTop renders a top list for one rarity.
func FormatTop(rarity int, top []model.TopItem) string {
	if len(top) == 0 {
		return fmt.Sprintf("📭 No %s pulls yet", Stars(rarity))
	}
	medals := []string{"🥇", "🥈", "🥉"}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🏅 Top %s\n\n", Stars(rarity)))
	for i, ti := range top {
		prefix := fmt.Sprintf("%d.", i+1)
		if i < len(medals) {
			prefix = medals[i]
		}
		sb.WriteString(fmt.Sprintf("%s %s x%d\n", prefix, ti.Item.Name, ti.Count))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// FormatFirst renders the first rarity-3 pull.
func FormatFirst(rec *model.PullRecord, found bool) string {
	if !found {
		return fmt.Sprintf("📭 No %s pull yet. Keep trying!", Stars(model.RarityThree))
	}
	return fmt.Sprintf("✨ Your first %s was %s (%s) on %s",
		Stars(model.RarityThree), rec.Item.Name, rec.Item.VersionName,
		rec.CreatedAt.UTC().Format("2006-01-02 15:04"))
}

// FormatHistory renders the latest pulls, newest first.
func FormatHistory(pulls []model.PullRecord) string {
	if len(pulls) == 0 {
		return "📭 No pulls yet"
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📜 Last %d pull(s)\n\n", len(pulls)))
	for _, p := range pulls {
		sb.WriteString(fmt.Sprintf("%s %s %s (#%d)\n",
			p.CreatedAt.UTC().Format("01-02 15:04"), Stars(p.Item.Rarity), p.Item.Name, p.BannerID))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// FormatCollection renders the inventory, rarest first.
func FormatCollection(owned []model.OwnedItem) string {
	if len(owned) == 0 {
		return "📭 Your collection is empty"
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🎒 Collection (%d items)\n\n", len(owned)))
	for _, o := range owned {
		sb.WriteString(fmt.Sprintf("%s %s x%d\n", Stars(o.Item.Rarity), o.Item.Name, o.Count))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// FormatAchievements renders the unlocked achievements.
func FormatAchievements(list []model.UnlockedAchievement, total int) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🏆 Achievements %d/%d\n", len(list), total))
	for _, a := range list {
		sb.WriteString(fmt.Sprintf("\n• %s: %s", a.Name, a.Description))
	}
	return sb.String()
}
