package dto

import "github.com/shopspring/decimal"

// ProcessOveragesRequest selects which overages to report. An omitted or
// empty list means "process all unbilled".
type ProcessOveragesRequest struct {
	OverageIDs []string `json:"overageIds" binding:"omitempty,dive,uuid"`
}

// ValidateConnectionRequest asks whether a portal ID resolves to a reachable
// HubSpot account
type ValidateConnectionRequest struct {
	PortalID string `json:"portalId" binding:"required"`
}

// UpdateUsageRequest is a pass-through usage submission to HubSpot
type UpdateUsageRequest struct {
	PortalID      string          `json:"portalId" binding:"required"`
	UserID        string          `json:"userId" binding:"required"`
	UsageType     string          `json:"usageType" binding:"required"`
	UsageAmount   decimal.Decimal `json:"usageAmount" binding:"required"`
	BillingPeriod string          `json:"billingPeriod" binding:"required"`
}

// MessageResponse is the bare message body used by the webhook endpoint,
// whose response shape is dictated by the HubSpot integration contract.
type MessageResponse struct {
	Message string `json:"message"`
}
