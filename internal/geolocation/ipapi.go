package geolocation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/UnknownOlympus/compass/internal/models"
	"golang.org/x/time/rate"
)

// IPAPIBaseURL is the ipapi.co API base URL.
const IPAPIBaseURL = "https://ipapi.co"

// HTTPClient defines the interface for making HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// IPLocator approximates a location from a client IP address.
// An empty ip means "the address the request comes from".
type IPLocator interface {
	Locate(ctx context.Context, ip string) (IPLocation, error)
}

// IPLocation is an IP geolocation reading with both coordinate fields present.
type IPLocation struct {
	Coordinates models.Coordinates
	City        string
	Region      string
	Country     string
}

// Label returns the first non-empty of city, region and country name.
func (l IPLocation) Label() string {
	for _, s := range []string{l.City, l.Region, l.Country} {
		if s != "" {
			return s
		}
	}

	return ""
}

// ipapiResponse matches the subset of the ipapi.co JSON document we read.
// Every field is optional.
type ipapiResponse struct {
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	City        string   `json:"city"`
	Region      string   `json:"region"`
	CountryName string   `json:"country_name"`
	Error       bool     `json:"error"`
	Reason      string   `json:"reason"`
}

// IPAPIProvider implements IPLocator using ipapi.co.
type IPAPIProvider struct {
	client  HTTPClient    // HTTP client for making requests
	baseURL string        // Base URL for the ipapi API
	limiter *rate.Limiter // Client side rate limiter
	log     *slog.Logger
}

// NewIPAPIProvider creates an ipapi.co client limited to rateLimit requests per second.
// A non-positive rateLimit disables limiting. An empty baseURL uses IPAPIBaseURL.
func NewIPAPIProvider(baseURL string, rateLimit int, log *slog.Logger) *IPAPIProvider {
	const timeout = 10

	limiter := rate.NewLimiter(rate.Inf, 0)
	if rateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(rateLimit), rateLimit)
	}

	return NewIPAPIProviderWithClient(&http.Client{Timeout: timeout * time.Second}, baseURL, limiter, log)
}

// NewIPAPIProviderWithClient allows injecting a custom HTTP client and limiter.
func NewIPAPIProviderWithClient(
	client HTTPClient,
	baseURL string,
	limiter *rate.Limiter,
	log *slog.Logger,
) *IPAPIProvider {
	if baseURL == "" {
		baseURL = IPAPIBaseURL
	}

	return &IPAPIProvider{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		limiter: limiter,
		log:     log,
	}
}

// Locate implements IPLocator. Private and loopback addresses are not sent to the service,
// so ipapi falls back to the address the request arrives from.
func (p *IPAPIProvider) Locate(ctx context.Context, ip string) (IPLocation, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return IPLocation{}, fmt.Errorf("%w: rate limit exceeded: %w", ErrNetwork, err)
	}

	reqURL := p.baseURL + "/json/"
	if isPublicIP(ip) {
		reqURL = p.baseURL + "/" + ip + "/json/"
	}

	p.log.DebugContext(ctx, "Locating client by IP", "url", reqURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return IPLocation{}, fmt.Errorf("%w: failed to create request: %w", ErrNetwork, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "compass/1.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return IPLocation{}, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return IPLocation{}, fmt.Errorf("%w: failed to read response body: %w", ErrNetwork, err)
	}

	if resp.StatusCode != http.StatusOK {
		p.log.WarnContext(ctx, "ipapi returned non-OK status", "status", resp.StatusCode, "body", string(body))
		return IPLocation{}, fmt.Errorf("%w: status %d", ErrNetwork, resp.StatusCode)
	}

	var result ipapiResponse
	if err = json.Unmarshal(body, &result); err != nil {
		return IPLocation{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	if result.Error {
		return IPLocation{}, fmt.Errorf("%w: %s", ErrMalformedResponse, result.Reason)
	}

	if result.Latitude == nil || result.Longitude == nil {
		return IPLocation{}, fmt.Errorf("%w: missing coordinates", ErrMalformedResponse)
	}

	loc := IPLocation{
		Coordinates: models.Coordinates{Latitude: *result.Latitude, Longitude: *result.Longitude},
		City:        result.City,
		Region:      result.Region,
		Country:     result.CountryName,
	}
	if err = loc.Coordinates.Validate(); err != nil {
		return IPLocation{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	return loc, nil
}

func isPublicIP(s string) bool {
	ip := net.ParseIP(s)
	if ip == nil {
		return false
	}

	return !ip.IsLoopback() && !ip.IsPrivate() && !ip.IsUnspecified() && !ip.IsLinkLocalUnicast()
}
