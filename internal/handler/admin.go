package handler

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"gacha-bot/internal/service"
)

// AdminHandler handles admin-only commands.
type AdminHandler struct {
	catalogService *service.CatalogService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(catalogService *service.CatalogService) *AdminHandler {
	return &AdminHandler{catalogService: catalogService}
}

// HandleClearCache handles the /clear_cache command.
func (h *AdminHandler) HandleClearCache(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	n := h.catalogService.ClearCache(context.Background())
	log.Info().
		Int64("admin_id", sender.ID).
		Int64("deleted", n).
		Msg("Admin cleared cache")

	return c.Reply(fmt.Sprintf("🧹 Cache cleared, %d entries removed", n))
}
