// FilePath: internal/partner/partner.go
package partner

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/greenmind-iot/hub/internal/config"
	"github.com/greenmind-iot/hub/internal/errors"
)

// Client talks to the external pairing authority that vouches for
// one-time pairing codes and records registered device identities.
type Client struct {
	http *resty.Client
}

// NewClient builds a Client for the configured partner base URL.
func NewClient(cfg config.PartnerConfig) *Client {
	c := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetAllowGetMethodPayload(true)
	return &Client{http: c}
}

// ValidateCode checks a one-time pairing code with the partner. Any
// non-200 response rejects the code.
func (c *Client) ValidateCode(ctx context.Context, code string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"code": code}).
		Get("/api/v1/auth_code")
	if err != nil {
		return errors.NewUpstreamError("pairing authority unreachable", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return errors.NewValidationError(
			fmt.Sprintf("invalid pairing code (partner status %d)", resp.StatusCode()), nil)
	}
	return nil
}

// RegisterDevice completes the pairing handshake by announcing the new
// device identity to the partner.
func (c *Client) RegisterDevice(ctx context.Context, code, deviceID string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"code": code, "device": deviceID}).
		Post("/api/v1/devices")
	if err != nil {
		return errors.NewUpstreamError("pairing authority unreachable", err)
	}
	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusCreated {
		return errors.NewUpstreamError(
			fmt.Sprintf("device registration rejected (partner status %d)", resp.StatusCode()), nil)
	}
	return nil
}
