package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/jack/shortlink-analytics/internal/model"
)

// IPWhois queries an ipwho.is compatible HTTP endpoint.
type IPWhois struct {
	baseURL string
	client  *http.Client
}

func NewIPWhois(baseURL string, client *http.Client) *IPWhois {
	if client == nil {
		client = http.DefaultClient
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &IPWhois{baseURL: baseURL, client: client}
}

type ipwhoisResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	CountryCode string `json:"country_code"`
	Region      string `json:"region"`
	City        string `json:"city"`
}

func (l *IPWhois) Lookup(ctx context.Context, ip string) (model.Geo, error) {
	if ip == "" || isPrivateIP(ip) {
		return model.Geo{}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+url.PathEscape(ip), nil)
	if err != nil {
		return model.Geo{}, fmt.Errorf("failed to build geo request: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return model.Geo{}, fmt.Errorf("failed to query geo service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.Geo{}, fmt.Errorf("geo service returned status %d", resp.StatusCode)
	}

	var out ipwhoisResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return model.Geo{}, fmt.Errorf("failed to decode geo response: %w", err)
	}
	// success=false means the address is reserved or unknown, not an outage.
	if !out.Success {
		return model.Geo{}, nil
	}

	country := strings.ToUpper(strings.TrimSpace(out.CountryCode))
	if len(country) != 2 {
		country = ""
	}

	return model.Geo{
		Country: country,
		Region:  strings.TrimSpace(out.Region),
		City:    strings.TrimSpace(out.City),
	}, nil
}
