package billing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainbilling "github.com/backupflow/backend/internal/domain/billing"
)

func testConfig(baseURL string) *HubSpotConfig {
	return &HubSpotConfig{
		APIBaseURL:     baseURL,
		APIToken:       "test-token",
		RequestTimeout: 5 * time.Second,
	}
}

func testRecord() *domainbilling.BillingRecord {
	return &domainbilling.BillingRecord{
		UserID:           uuid.New(),
		UserEmail:        "owner@example.com",
		ExternalPortalID: "portal-1",
		OverageID:        uuid.New(),
		Type:             domainbilling.OverageTypeAPICalls,
		Amount:           decimal.RequireFromString("100"),
		PeriodStart:      time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:        time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
		UnitPrice:        decimal.RequireFromString("0.5"),
		TotalAmount:      decimal.RequireFromString("50"),
	}
}

func TestNewHubSpotAdapter(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		adapter, err := NewHubSpotAdapter(testConfig("https://api.hubapi.com"))

		require.NoError(t, err)
		assert.NotNil(t, adapter)
	})

	t.Run("missing token", func(t *testing.T) {
		cfg := testConfig("https://api.hubapi.com")
		cfg.APIToken = ""

		adapter, err := NewHubSpotAdapter(cfg)

		require.Error(t, err)
		assert.Nil(t, adapter)
	})

	t.Run("missing base URL", func(t *testing.T) {
		cfg := testConfig("")

		_, err := NewHubSpotAdapter(cfg)

		require.Error(t, err)
	})

	t.Run("non-positive timeout", func(t *testing.T) {
		cfg := testConfig("https://api.hubapi.com")
		cfg.RequestTimeout = 0

		_, err := NewHubSpotAdapter(cfg)

		require.Error(t, err)
	})
}

func TestHubSpotAdapter_ReportOverage(t *testing.T) {
	ctx := context.Background()

	t.Run("successful report", func(t *testing.T) {
		var gotAuth string
		var gotBody map[string]string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/billing/v1/overage-events", r.URL.Path)
			gotAuth = r.Header.Get("Authorization")
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"id": "evt-1", "status": "recorded"})
		}))
		defer server.Close()

		adapter, err := NewHubSpotAdapter(testConfig(server.URL))
		require.NoError(t, err)

		record := testRecord()
		receipt, err := adapter.ReportOverage(ctx, record)

		require.NoError(t, err)
		assert.Equal(t, "evt-1", receipt.Ref)
		assert.Equal(t, "recorded", receipt.Status)
		assert.True(t, receipt.Amount.Equal(record.TotalAmount))
		assert.Equal(t, "Bearer test-token", gotAuth)
		assert.Equal(t, "portal-1", gotBody["portalId"])
		assert.Equal(t, "100", gotBody["quantity"])
		assert.Equal(t, "50", gotBody["totalAmount"])
		assert.Equal(t, "2026-03-01", gotBody["periodStart"])
	})

	t.Run("record without portal ID fails locally", func(t *testing.T) {
		adapter, err := NewHubSpotAdapter(testConfig("http://127.0.0.1:1"))
		require.NoError(t, err)

		record := testRecord()
		record.ExternalPortalID = ""

		_, err = adapter.ReportOverage(ctx, record)

		assert.ErrorIs(t, err, domainbilling.ErrGatewayRequestFailed)
	})

	t.Run("API error surfaces the message", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			json.NewEncoder(w).Encode(map[string]string{"status": "error", "message": "portal is suspended"})
		}))
		defer server.Close()

		adapter, err := NewHubSpotAdapter(testConfig(server.URL))
		require.NoError(t, err)

		_, err = adapter.ReportOverage(ctx, testRecord())

		require.Error(t, err)
		assert.ErrorIs(t, err, domainbilling.ErrGatewayRequestFailed)
		assert.Contains(t, err.Error(), "portal is suspended")
	})

	t.Run("response without event ID is invalid", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]string{"status": "recorded"})
		}))
		defer server.Close()

		adapter, err := NewHubSpotAdapter(testConfig(server.URL))
		require.NoError(t, err)

		_, err = adapter.ReportOverage(ctx, testRecord())

		assert.ErrorIs(t, err, domainbilling.ErrGatewayInvalidResponse)
	})

	t.Run("unreachable host maps to gateway unavailable", func(t *testing.T) {
		adapter, err := NewHubSpotAdapter(testConfig("http://127.0.0.1:1"))
		require.NoError(t, err)

		_, err = adapter.ReportOverage(ctx, testRecord())

		assert.ErrorIs(t, err, domainbilling.ErrGatewayUnavailable)
	})

	t.Run("context timeout maps to gateway unavailable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
			json.NewEncoder(w).Encode(map[string]string{"id": "evt-1", "status": "recorded"})
		}))
		defer server.Close()

		adapter, err := NewHubSpotAdapter(testConfig(server.URL))
		require.NoError(t, err)

		timeoutCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()

		_, err = adapter.ReportOverage(timeoutCtx, testRecord())

		assert.ErrorIs(t, err, domainbilling.ErrGatewayUnavailable)
	})
}

func TestHubSpotAdapter_ValidateConnection(t *testing.T) {
	ctx := context.Background()

	t.Run("reachable portal", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "/billing/v1/portals/portal-1", r.URL.Path)
			json.NewEncoder(w).Encode(map[string]string{"id": "portal-1", "status": "active"})
		}))
		defer server.Close()

		adapter, err := NewHubSpotAdapter(testConfig(server.URL))
		require.NoError(t, err)

		assert.NoError(t, adapter.ValidateConnection(ctx, "portal-1"))
	})

	t.Run("unknown portal", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"status": "error", "message": "portal not found"})
		}))
		defer server.Close()

		adapter, err := NewHubSpotAdapter(testConfig(server.URL))
		require.NoError(t, err)

		err = adapter.ValidateConnection(ctx, "portal-404")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "portal not found")
	})

	t.Run("empty portal ID fails locally", func(t *testing.T) {
		adapter, err := NewHubSpotAdapter(testConfig("http://127.0.0.1:1"))
		require.NoError(t, err)

		err = adapter.ValidateConnection(ctx, "")

		assert.ErrorIs(t, err, domainbilling.ErrGatewayRequestFailed)
	})

	t.Run("portal ID is path escaped", func(t *testing.T) {
		var gotPath string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.EscapedPath()
			json.NewEncoder(w).Encode(map[string]string{"id": "x", "status": "active"})
		}))
		defer server.Close()

		adapter, err := NewHubSpotAdapter(testConfig(server.URL))
		require.NoError(t, err)

		require.NoError(t, adapter.ValidateConnection(ctx, "portal/1"))
		assert.Equal(t, "/billing/v1/portals/portal%2F1", gotPath)
	})
}

func TestHubSpotAdapter_SubmitUsage(t *testing.T) {
	ctx := context.Background()
	update := domainbilling.UsageUpdate{
		PortalID:      "portal-1",
		UserID:        "user-1",
		UsageType:     "WORKFLOW_RUNS",
		UsageAmount:   decimal.RequireFromString("17"),
		BillingPeriod: "2026-03",
	}

	t.Run("successful submission", func(t *testing.T) {
		var gotBody domainbilling.UsageUpdate
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/billing/v1/usage-updates", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			json.NewEncoder(w).Encode(map[string]string{"id": "usage-1", "status": "accepted"})
		}))
		defer server.Close()

		adapter, err := NewHubSpotAdapter(testConfig(server.URL))
		require.NoError(t, err)

		receipt, err := adapter.SubmitUsage(ctx, update)

		require.NoError(t, err)
		assert.Equal(t, "usage-1", receipt.Ref)
		assert.Equal(t, "accepted", receipt.Status)
		assert.Equal(t, "portal-1", gotBody.PortalID)
		assert.True(t, gotBody.UsageAmount.Equal(update.UsageAmount))
	})

	t.Run("server error without message body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		adapter, err := NewHubSpotAdapter(testConfig(server.URL))
		require.NoError(t, err)

		_, err = adapter.SubmitUsage(ctx, update)

		require.Error(t, err)
		assert.ErrorIs(t, err, domainbilling.ErrGatewayRequestFailed)
		assert.Contains(t, err.Error(), "HTTP 502")
	})
}
