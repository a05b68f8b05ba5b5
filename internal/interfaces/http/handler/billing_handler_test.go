package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	domainbilling "github.com/backupflow/backend/internal/domain/billing"
)

func setupBillingRouter(m *handlerMocks) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewBillingHandler(m.reconciler())

	engine := gin.New()
	engine.POST("/api/v1/billing/validate-connection", h.ValidateConnection)
	engine.POST("/api/v1/billing/update-usage", h.UpdateUsage)
	return engine
}

func postJSON(engine *gin.Engine, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestBillingHandler_ValidateConnection(t *testing.T) {
	t.Run("valid portal answers 200 with isValid true", func(t *testing.T) {
		m := newHandlerMocks()
		m.gateway.On("ValidateConnection", mock.Anything, "portal-1").Return(nil)

		engine := setupBillingRouter(m)
		w := postJSON(engine, "/api/v1/billing/validate-connection", []byte(`{"portalId":"portal-1"}`))

		assert.Equal(t, http.StatusOK, w.Code)
		data := decodeResponse(t, w)["data"].(map[string]any)
		assert.Equal(t, true, data["isValid"])
		assert.Equal(t, "portal-1", data["portalId"])
	})

	t.Run("unreachable portal still answers 200", func(t *testing.T) {
		m := newHandlerMocks()
		m.gateway.On("ValidateConnection", mock.Anything, "portal-9").
			Return(errors.New("portal not found"))

		engine := setupBillingRouter(m)
		w := postJSON(engine, "/api/v1/billing/validate-connection", []byte(`{"portalId":"portal-9"}`))

		assert.Equal(t, http.StatusOK, w.Code)
		data := decodeResponse(t, w)["data"].(map[string]any)
		assert.Equal(t, false, data["isValid"])
		assert.Contains(t, data["message"], "portal not found")
	})

	t.Run("missing portalId is a bad request", func(t *testing.T) {
		m := newHandlerMocks()

		engine := setupBillingRouter(m)
		w := postJSON(engine, "/api/v1/billing/validate-connection", []byte(`{}`))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		m.gateway.AssertNotCalled(t, "ValidateConnection", mock.Anything, mock.Anything)
	})
}

func TestBillingHandler_UpdateUsage(t *testing.T) {
	validBody := []byte(`{
		"portalId": "portal-1",
		"userId": "user-1",
		"usageType": "STORAGE_GB",
		"usageAmount": "42.5",
		"billingPeriod": "2026-02"
	}`)

	t.Run("forwards the update and returns the receipt", func(t *testing.T) {
		m := newHandlerMocks()
		m.gateway.On("SubmitUsage", mock.Anything, mock.MatchedBy(func(u domainbilling.UsageUpdate) bool {
			return u.PortalID == "portal-1" && u.UsageType == "STORAGE_GB" &&
				u.UsageAmount.String() == "42.5" && u.BillingPeriod == "2026-02"
		})).Return(&domainbilling.UsageReceipt{Ref: "hs-usage-7", Status: "accepted"}, nil)

		engine := setupBillingRouter(m)
		w := postJSON(engine, "/api/v1/billing/update-usage", validBody)

		assert.Equal(t, http.StatusOK, w.Code)
		data := decodeResponse(t, w)["data"].(map[string]any)
		assert.Equal(t, "hs-usage-7", data["ref"])
		assert.Equal(t, "accepted", data["status"])
	})

	t.Run("unavailable gateway answers 502", func(t *testing.T) {
		m := newHandlerMocks()
		m.gateway.On("SubmitUsage", mock.Anything, mock.Anything).
			Return(nil, domainbilling.ErrGatewayUnavailable)

		engine := setupBillingRouter(m)
		w := postJSON(engine, "/api/v1/billing/update-usage", validBody)

		assert.Equal(t, http.StatusBadGateway, w.Code)
		var resp struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "ERR_GATEWAY_UNAVAILABLE", resp.Error.Code)
	})

	t.Run("missing fields are a bad request", func(t *testing.T) {
		m := newHandlerMocks()

		engine := setupBillingRouter(m)
		w := postJSON(engine, "/api/v1/billing/update-usage", []byte(`{"portalId":"portal-1"}`))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		m.gateway.AssertNotCalled(t, "SubmitUsage", mock.Anything, mock.Anything)
	})
}
