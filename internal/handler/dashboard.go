package handler

import (
	"context"
	"strconv"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"gacha-bot/internal/model"
	"gacha-bot/internal/service"
)

// DashboardHandler handles the statistics commands.
type DashboardHandler struct {
	dashboardService  *service.DashboardService
	achievementsTotal int
}

// NewDashboardHandler creates a new DashboardHandler. achievementsTotal is the
// number of registered achievements shown next to the unlocked count.
func NewDashboardHandler(dashboardService *service.DashboardService, achievementsTotal int) *DashboardHandler {
	return &DashboardHandler{
		dashboardService:  dashboardService,
		achievementsTotal: achievementsTotal,
	}
}

const dashboardFailed = "❌ Could not load your statistics, please try again later"

// HandleStats handles the /stats command.
func (h *DashboardHandler) HandleStats(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	kpis, err := h.dashboardService.KPIs(ctx, sender.ID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Failed to load kpis")
		return c.Reply(dashboardFailed)
	}
	banners, err := h.dashboardService.BannerBreakdown(ctx, sender.ID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Failed to load banner breakdown")
		return c.Reply(dashboardFailed)
	}
	return c.Reply(FormatStats(kpis, banners))
}

// HandleTop handles the /top command.
// Format: /top [rarity], rarity defaults to 3
func (h *DashboardHandler) HandleTop(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	rarity := model.RarityThree
	if args := c.Args(); len(args) > 0 {
		r, err := strconv.Atoi(args[0])
		if err != nil || r < model.RarityOne || r > model.RarityThree {
			return c.Reply("❌ Usage: /top <1|2|3>")
		}
		rarity = r
	}

	top, err := h.dashboardService.TopItems(context.Background(), sender.ID, rarity)
	if err != nil {
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Failed to load top items")
		return c.Reply(dashboardFailed)
	}
	return c.Reply(FormatTop(rarity, top))
}

// HandleFirst handles the /first command.
func (h *DashboardHandler) HandleFirst(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	rec, found, err := h.dashboardService.FirstR3Pull(context.Background(), sender.ID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Failed to load first pull")
		return c.Reply(dashboardFailed)
	}
	return c.Reply(FormatFirst(rec, found))
}

// HandleCollection handles the /collection command.
func (h *DashboardHandler) HandleCollection(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	owned, err := h.dashboardService.Collection(context.Background(), sender.ID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Failed to load collection")
		return c.Reply(dashboardFailed)
	}
	return c.Reply(FormatCollection(owned))
}

// HandleAchievements handles the /achievements command.
func (h *DashboardHandler) HandleAchievements(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	list, err := h.dashboardService.Achievements(context.Background(), sender.ID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Failed to load achievements")
		return c.Reply(dashboardFailed)
	}
	return c.Reply(FormatAchievements(list, h.achievementsTotal))
}

// HandleHistory handles the /history command.
func (h *DashboardHandler) HandleHistory(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	pulls, err := h.dashboardService.History(context.Background(), sender.ID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Failed to load history")
		return c.Reply(dashboardFailed)
	}
	return c.Reply(FormatHistory(pulls))
}
