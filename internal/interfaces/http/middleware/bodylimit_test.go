package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func setupBodyLimitRouter(maxBytes int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(BodyLimit(maxBytes))
	engine.POST("/api/v1/billing/webhook", func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.String(http.StatusRequestEntityTooLarge, "too large")
			return
		}
		c.String(http.StatusOK, "%d", len(body))
	})
	return engine
}

func TestBodyLimit(t *testing.T) {
	t.Run("body within the limit passes", func(t *testing.T) {
		engine := setupBodyLimitRouter(64)

		req := httptest.NewRequest("POST", "/api/v1/billing/webhook",
			strings.NewReader(`{"portalId":"123"}`))
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("declared oversize body is rejected before the handler", func(t *testing.T) {
		engine := setupBodyLimitRouter(16)

		req := httptest.NewRequest("POST", "/api/v1/billing/webhook",
			bytes.NewReader(make([]byte, 64)))
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Contains(t, w.Body.String(), "REQUEST_TOO_LARGE")
	})

	t.Run("chunked oversize body fails while the handler reads", func(t *testing.T) {
		engine := setupBodyLimitRouter(16)

		req := httptest.NewRequest("POST", "/api/v1/billing/webhook",
			bytes.NewReader(make([]byte, 64)))
		req.ContentLength = -1
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})
}
