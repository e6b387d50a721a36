package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"gacha-bot/internal/config"
	"gacha-bot/internal/service"
)

// HealthFunc reports whether a dependency is reachable.
type HealthFunc func(ctx context.Context) error

// AssetHandler serves stored images with validators.
type AssetHandler struct {
	assetService *service.AssetService
	maxAge       time.Duration
}

// NewAssetHandler creates a new AssetHandler.
func NewAssetHandler(assetService *service.AssetService, maxAge time.Duration) *AssetHandler {
	return &AssetHandler{assetService: assetService, maxAge: maxAge}
}

// HandleImage handles GET /image/:owner/:id/:kind.
func (h *AssetHandler) HandleImage(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	asset, notModified, err := h.assetService.Get(c.Request.Context(),
		c.Param("owner"), id, c.Param("kind"), c.GetHeader("If-None-Match"))
	switch {
	case errors.Is(err, service.ErrInvalidAsset):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, service.ErrAssetNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	case err != nil:
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.Header("ETag", asset.ETag)
	c.Header("Cache-Control", fmt.Sprintf("public, max-age=%d", int(h.maxAge.Seconds())))
	if notModified {
		c.Status(http.StatusNotModified)
		return
	}
	c.Data(http.StatusOK, asset.ContentType, asset.Data)
}

// NewRouter builds the side server routes: images, metrics and health.
func NewRouter(assets *AssetHandler, metricsHandler http.Handler, health HealthFunc) *gin.Engine {
	engine := gin.New()
	engine.Use(requestLogger(), recovery())

	engine.GET("/image/:owner/:id/:kind", assets.HandleImage)
	if metricsHandler != nil {
		engine.GET("/metrics", gin.WrapH(metricsHandler))
	}
	engine.GET("/healthz", func(c *gin.Context) {
		if health != nil {
			if err := health(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return engine
}

// NewHTTPServer wraps router in an http.Server configured from cfg.
func NewHTTPServer(cfg *config.HTTPConfig, router http.Handler) *http.Server {
	return &http.Server{
		Addr:           cfg.Addr,
		Handler:        router,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := log.Debug()
		if len(c.Errors) > 0 {
			event = log.Error().Str("errors", c.Errors.String())
		} else if status >= http.StatusInternalServerError {
			event = log.Warn()
		}
		event.
			Int("status", status).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("ip", c.ClientIP()).
			Dur("latency", time.Since(start)).
			Msg("HTTP request")
	}
}

func recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().
					Interface("panic", r).
					Str("path", c.Request.URL.Path).
					Msg("Recovered from panic in HTTP handler")
				c.AbortWithStatus(http.StatusInternalServerError)
			}
		}()
		c.Next()
	}
}
