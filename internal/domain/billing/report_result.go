package billing

import "github.com/shopspring/decimal"

// ReportData holds the gateway confirmation for a successfully reported overage
type ReportData struct {
	Ref    string          `json:"ref"`
	Amount decimal.Decimal `json:"amount"`
	Status string          `json:"status"`
}

// ReportResult is the outcome of reporting a single overage. Exactly one of
// Data and Error is set, depending on Success.
type ReportResult struct {
	OverageID string      `json:"overageId"`
	Success   bool        `json:"success"`
	Data      *ReportData `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// ProcessSummary aggregates the outcome of a bulk reporting run. Results
// preserve the order the overages were processed in.
type ProcessSummary struct {
	TotalProcessed int            `json:"totalProcessed"`
	Successful     int            `json:"successful"`
	Failed         int            `json:"failed"`
	Results        []ReportResult `json:"results"`
}

// BillingSummary aggregates a single user's overage rows by billed state.
// Monetary totals are amount times unit price per row.
type BillingSummary struct {
	TotalBilled   decimal.Decimal `json:"totalBilled"`
	TotalUnbilled decimal.Decimal `json:"totalUnbilled"`
	OverageCount  int             `json:"overageCount"`
	BilledCount   int             `json:"billedCount"`
	UnbilledCount int             `json:"unbilledCount"`
}
