package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"gacha-bot/internal/gacha"
	"gacha-bot/internal/service"
)

// GachaHandler handles registration, the banner list and pulls.
type GachaHandler struct {
	playerService  *service.PlayerService
	gachaService   *service.GachaService
	catalogService *service.CatalogService
}

// NewGachaHandler creates a new GachaHandler.
func NewGachaHandler(
	playerService *service.PlayerService,
	gachaService *service.GachaService,
	catalogService *service.CatalogService,
) *GachaHandler {
	return &GachaHandler{
		playerService:  playerService,
		gachaService:   gachaService,
		catalogService: catalogService,
	}
}

// HandleStart handles the /start command.
// Registers the sender so their pulls are recorded.
func (h *GachaHandler) HandleStart(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	username := sender.Username
	if username == "" {
		username = sender.FirstName
	}

	_, created, err := h.playerService.Register(ctx, sender.ID, username)
	if err != nil {
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Failed to register player")
		return c.Reply("❌ Registration failed, please try again later")
	}

	if created {
		return c.Reply(fmt.Sprintf(
			"🎉 Welcome, %s!\n\n"+
				"Your pulls are now recorded.\n\n"+
				"Commands:\n"+
				"/banners - open banners\n"+
				"/pull <id> - single draw\n"+
				"/pull10 <id> - ten draws, one ★★ or better guaranteed\n"+
				"/stats - your statistics\n"+
				"/top <1|2|3> - most pulled items\n"+
				"/first - your first ★★★\n"+
				"/collection - your items\n"+
				"/achievements - your achievements",
				"/history - your latest pulls",
			username,
		))
	}

	return c.Reply(fmt.Sprintf("👋 Welcome back, %s!", username))
}

// HandleBanners handles the /banners command.
func (h *GachaHandler) HandleBanners(c tele.Context) error {
	banners, err := h.catalogService.Banners(context.Background())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list banners")
		return c.Reply("❌ Could not load banners, please try again later")
	}
	return c.Reply(FormatBanners(banners))
}

// HandlePull handles the /pull command.
// Format: /pull <banner_id>
func (h *GachaHandler) HandlePull(c tele.Context) error {
	return h.pull(c, gacha.SingleDraw)
}

// HandlePull10 handles the /pull10 command.
// Format: /pull10 <banner_id>
func (h *GachaHandler) HandlePull10(c tele.Context) error {
	return h.pull(c, gacha.TenDraw)
}

func (h *GachaHandler) pull(c tele.Context, amount int) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	bannerID, err := parseBannerArg(c.Args())
	if err != nil {
		return c.Reply(err.Error())
	}

	res, err := h.gachaService.Pull(context.Background(), sender.ID, bannerID, amount)
	if err != nil {
		return c.Reply(pullErrorMessage(err))
	}
	return c.Reply(FormatPull(res))
}

func parseBannerArg(args []string) (int64, error) {
	if len(args) < 1 {
		return 0, errors.New("❌ Usage: /pull <banner_id> (see /banners)")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("❌ Banner id must be a positive number")
	}
	return id, nil
}

// pullErrorMessage maps a pull failure to what the sender is told.
func pullErrorMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrBannerNotFound):
		return "❌ No such banner, see /banners"
	case errors.Is(err, gacha.ErrInvalidAmount):
		return "❌ You can draw 1 or 10 at a time"
	case errors.Is(err, gacha.ErrConfiguration), errors.Is(err, gacha.ErrEmptyPool):
		return "⚠️ This banner is not available right now"
	default:
		log.Error().Err(err).Msg("Pull failed")
		return "❌ Pull failed, please try again later"
	}
}
