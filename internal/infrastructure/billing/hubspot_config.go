package billing

import (
	"fmt"
	"time"
)

// HubSpotConfig holds HubSpot API configuration
type HubSpotConfig struct {
	// APIBaseURL is the HubSpot API endpoint
	APIBaseURL string

	// APIToken is the private app access token
	APIToken string

	// RequestTimeout bounds each outbound API call
	RequestTimeout time.Duration
}

// DefaultHubSpotConfig returns a config with production defaults
func DefaultHubSpotConfig() *HubSpotConfig {
	return &HubSpotConfig{
		APIBaseURL:     "https://api.hubapi.com",
		RequestTimeout: 10 * time.Second,
	}
}

// Validate checks the configuration is complete
func (c *HubSpotConfig) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("hubspot: API base URL is required")
	}
	if c.APIToken == "" {
		return fmt.Errorf("hubspot: API token is required")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("hubspot: request timeout must be positive")
	}
	return nil
}
