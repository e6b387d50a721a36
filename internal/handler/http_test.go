package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gacha-bot/internal/cache"
	"gacha-bot/internal/metrics"
	"gacha-bot/internal/model"
	"gacha-bot/internal/repository"
	"gacha-bot/internal/service"
)

type stubAssets struct {
	data map[string][]byte
	err  error
}

func (s *stubAssets) Get(_ context.Context, owner string, id int64, kind string) ([]byte, string, error) {
	if s.err != nil {
		return nil, "", s.err
	}
	d, ok := s.data[service.AssetKey(owner, id, kind)]
	if !ok {
		return nil, "", repository.ErrAssetNotFound
	}
	return d, "image/png", nil
}

func (s *stubAssets) Put(_ context.Context, owner string, id int64, kind, _ string, data []byte) error {
	s.data[service.AssetKey(owner, id, kind)] = data
	return nil
}

func newTestRouter(store *stubAssets, health HealthFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	assets := NewAssetHandler(service.NewAssetService(store, cache.NewMemoryCache(), time.Hour), 24*time.Hour)
	m := metrics.New()
	m.RecordPull(metrics.OutcomeGuest)
	return NewRouter(assets, m.Handler(), health)
}

func TestHandleImage(t *testing.T) {
	store := &stubAssets{data: map[string][]byte{
		service.AssetKey(model.AssetOwnerItem, 1, model.AssetKindPortrait): []byte("img"),
	}}
	router := newTestRouter(store, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/image/item/1/portrait", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "img", w.Body.String())
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, "public, max-age=86400", w.Header().Get("Cache-Control"))
	etag := w.Header().Get("ETag")
	assert.Equal(t, service.ETag([]byte("img")), etag)

	req := httptest.NewRequest(http.MethodGet, "/image/item/1/portrait", nil)
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotModified, w.Code)
	assert.Empty(t, w.Body.Bytes())
	assert.Equal(t, etag, w.Header().Get("ETag"))
}

func TestHandleImage_Errors(t *testing.T) {
	router := newTestRouter(&stubAssets{data: map[string][]byte{}}, nil)

	tests := []struct {
		path string
		code int
	}{
		{"/image/item/1/portrait", http.StatusNotFound},
		{"/image/item/abc/portrait", http.StatusBadRequest},
		{"/image/player/1/portrait", http.StatusBadRequest},
		{"/image/item/1/thumb", http.StatusBadRequest},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
		assert.Equal(t, tt.code, w.Code, tt.path)
	}

	broken := newTestRouter(&stubAssets{err: errors.New("db down")}, nil)
	w := httptest.NewRecorder()
	broken.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/image/item/1/portrait", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestMetricsAndHealth(t *testing.T) {
	router := newTestRouter(&stubAssets{data: map[string][]byte{}}, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `gacha_pulls_total{outcome="guest"} 1`)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	down := newTestRouter(&stubAssets{}, func(context.Context) error { return errors.New("no db") })
	w = httptest.NewRecorder()
	down.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "no db")
}
