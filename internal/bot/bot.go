// Package bot provides the Telegram bot initialization and handler registration.
package bot

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"gacha-bot/internal/config"
	"gacha-bot/internal/handler"
	"gacha-bot/internal/service"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot *tele.Bot
	cfg *config.Config

	// Handlers
	gachaHandler     *handler.GachaHandler
	dashboardHandler *handler.DashboardHandler
	adminHandler     *handler.AdminHandler
}

// Dependencies holds all the dependencies needed by the bot handlers.
type Dependencies struct {
	Config            *config.Config
	PlayerService     *service.PlayerService
	GachaService      *service.GachaService
	CatalogService    *service.CatalogService
	DashboardService  *service.DashboardService
	AchievementsTotal int
}

// New creates a new Bot instance with the given dependencies.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	timeout := deps.Config.Bot.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	pref := tele.Settings{
		Token:  deps.Config.Bot.Token,
		Poller: &tele.LongPoller{Timeout: timeout},
		OnError: func(err error, c tele.Context) {
			log.Error().Err(err).Msg("Telegram handler error")
		},
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := &Bot{
		bot:              teleBot,
		cfg:              deps.Config,
		gachaHandler:     handler.NewGachaHandler(deps.PlayerService, deps.GachaService, deps.CatalogService),
		dashboardHandler: handler.NewDashboardHandler(deps.DashboardService, deps.AchievementsTotal),
		adminHandler:     handler.NewAdminHandler(deps.CatalogService),
	}

	b.registerMiddleware()
	b.registerHandlers()

	return b, nil
}

// registerMiddleware registers all middleware.
func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(WhitelistMiddleware(b.cfg))
	b.bot.Use(LoggingMiddleware())
}

// registerHandlers registers all command handlers.
func (b *Bot) registerHandlers() {
	// Player and pulls
	b.bot.Handle("/start", b.gachaHandler.HandleStart)
	b.bot.Handle("/banners", b.gachaHandler.HandleBanners)
	b.bot.Handle("/pull", b.gachaHandler.HandlePull)
	b.bot.Handle("/pull10", b.gachaHandler.HandlePull10)

	// Dashboard
	b.bot.Handle("/stats", b.dashboardHandler.HandleStats)
	b.bot.Handle("/top", b.dashboardHandler.HandleTop)
	b.bot.Handle("/first", b.dashboardHandler.HandleFirst)
	b.bot.Handle("/collection", b.dashboardHandler.HandleCollection)
	b.bot.Handle("/achievements", b.dashboardHandler.HandleAchievements)
	b.bot.Handle("/history", b.dashboardHandler.HandleHistory)

	// Admin handlers (with admin middleware)
	adminGroup := b.bot.Group()
	adminGroup.Use(AdminMiddleware(b.cfg))
	adminGroup.Handle("/clear_cache", b.adminHandler.HandleClearCache)
}

// Start starts the bot polling. It blocks until Stop is called.
func (b *Bot) Start() {
	log.Info().Str("username", b.bot.Me.Username).Msg("Starting bot...")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}
