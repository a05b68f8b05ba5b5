package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/backupflow/backend/internal/domain/billing"
)

const (
	hubspotOverageEventPath = "/billing/v1/overage-events"
	hubspotUsageUpdatePath  = "/billing/v1/usage-updates"
	hubspotPortalPath       = "/billing/v1/portals/%s"
)

// HubSpotAdapter implements the billing.Gateway interface against the
// HubSpot API. Every call carries the caller's context; the reconciler
// wraps each call in its own timeout.
type HubSpotAdapter struct {
	config     *HubSpotConfig
	httpClient *http.Client
}

// NewHubSpotAdapter creates a new HubSpot billing adapter
func NewHubSpotAdapter(config *HubSpotConfig) (*HubSpotAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &HubSpotAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: config.RequestTimeout,
		},
	}, nil
}

type hubspotOverageEventRequest struct {
	PortalID    string `json:"portalId"`
	Email       string `json:"email"`
	OverageID   string `json:"overageId"`
	UsageType   string `json:"usageType"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unitPrice"`
	TotalAmount string `json:"totalAmount"`
	PeriodStart string `json:"periodStart"`
	PeriodEnd   string `json:"periodEnd"`
	Description string `json:"description"`
}

type hubspotEventResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type hubspotErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ReportOverage submits one billing record and returns HubSpot's reference
func (a *HubSpotAdapter) ReportOverage(ctx context.Context, record *billing.BillingRecord) (*billing.GatewayReceipt, error) {
	if record.ExternalPortalID == "" {
		return nil, fmt.Errorf("%w: billing record has no portal ID", billing.ErrGatewayRequestFailed)
	}

	body := hubspotOverageEventRequest{
		PortalID:    record.ExternalPortalID,
		Email:       record.UserEmail,
		OverageID:   record.OverageID.String(),
		UsageType:   record.Type.String(),
		Quantity:    record.Amount.String(),
		UnitPrice:   record.UnitPrice.String(),
		TotalAmount: record.TotalAmount.String(),
		PeriodStart: record.PeriodStart.Format("2006-01-02"),
		PeriodEnd:   record.PeriodEnd.Format("2006-01-02"),
		Description: record.Description,
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("hubspot: failed to marshal request: %w", err)
	}

	respBody, err := a.doRequest(ctx, http.MethodPost, hubspotOverageEventPath, bodyBytes)
	if err != nil {
		return nil, err
	}

	var resp hubspotEventResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", billing.ErrGatewayInvalidResponse, err)
	}
	if resp.ID == "" {
		return nil, fmt.Errorf("%w: response has no event ID", billing.ErrGatewayInvalidResponse)
	}

	return &billing.GatewayReceipt{
		Ref:    resp.ID,
		Status: resp.Status,
		Amount: record.TotalAmount,
	}, nil
}

// ValidateConnection checks that a portal ID resolves to a reachable account
func (a *HubSpotAdapter) ValidateConnection(ctx context.Context, portalID string) error {
	if portalID == "" {
		return fmt.Errorf("%w: portal ID is empty", billing.ErrGatewayRequestFailed)
	}

	path := fmt.Sprintf(hubspotPortalPath, url.PathEscape(portalID))
	if _, err := a.doRequest(ctx, http.MethodGet, path, nil); err != nil {
		return err
	}
	return nil
}

// SubmitUsage forwards a usage update without touching local state
func (a *HubSpotAdapter) SubmitUsage(ctx context.Context, update billing.UsageUpdate) (*billing.UsageReceipt, error) {
	bodyBytes, err := json.Marshal(update)
	if err != nil {
		return nil, fmt.Errorf("hubspot: failed to marshal request: %w", err)
	}

	respBody, err := a.doRequest(ctx, http.MethodPost, hubspotUsageUpdatePath, bodyBytes)
	if err != nil {
		return nil, err
	}

	var resp hubspotEventResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", billing.ErrGatewayInvalidResponse, err)
	}

	return &billing.UsageReceipt{
		Ref:    resp.ID,
		Status: resp.Status,
	}, nil
}

// doRequest performs an authenticated API call and returns the response body
func (a *HubSpotAdapter) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.config.APIBaseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("hubspot: failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.config.APIToken)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", billing.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("hubspot: failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp hubspotErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Message != "" {
			return nil, fmt.Errorf("%w: %s", billing.ErrGatewayRequestFailed, errResp.Message)
		}
		return nil, fmt.Errorf("%w: HTTP %d", billing.ErrGatewayRequestFailed, resp.StatusCode)
	}

	return respBody, nil
}

// Ensure HubSpotAdapter implements the Gateway interface
var _ billing.Gateway = (*HubSpotAdapter)(nil)
