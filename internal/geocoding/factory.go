package geocoding

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"googlemaps.github.io/maps"
)

// ProviderType names a place search backend.
type ProviderType string

const (
	// ProviderTypeGoogle is the Google Maps Geocoding API. It needs an API key.
	ProviderTypeGoogle ProviderType = "google"
	// ProviderTypeNominatim is the public OpenStreetMap Nominatim instance.
	ProviderTypeNominatim ProviderType = "nominatim"
	// ProviderTypeNone turns place search off. Session search then only matches businesses.
	ProviderTypeNone ProviderType = "none"
)

const (
	googleRateLimit    = 50
	nominatimRateLimit = 1 // usage policy of the public instance
)

// ErrProviderDisabled is returned by NewProvider for ProviderTypeNone.
var ErrProviderDisabled = errors.New("place search provider disabled")

// ProviderConfig holds configuration for creating a place search provider.
type ProviderConfig struct {
	Type      ProviderType
	APIKey    string // google only
	RateLimit int    // requests per second, 0 picks the provider default
	Logger    *slog.Logger
}

// ParseProviderType accepts a provider name in any case. A blank name means none.
func ParseProviderType(name string) (ProviderType, error) {
	switch t := ProviderType(strings.ToLower(strings.TrimSpace(name))); t {
	case "", ProviderTypeNone:
		return ProviderTypeNone, nil
	case ProviderTypeGoogle, ProviderTypeNominatim:
		return t, nil
	default:
		return "", fmt.Errorf("unsupported provider type: %s", name)
	}
}

// NewProvider builds the place search provider selected by config.Type.
func NewProvider(config ProviderConfig) (Provider, error) {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	switch config.Type {
	case ProviderTypeGoogle:
		return newGoogleProvider(config)
	case ProviderTypeNominatim:
		return newNominatimProvider(config), nil
	case ProviderTypeNone:
		return nil, ErrProviderDisabled
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", config.Type)
	}
}

func limitOrDefault(config ProviderConfig, fallback int) int {
	if config.RateLimit > 0 {
		return config.RateLimit
	}
	config.Logger.Info("Place search rate limit not set, using provider default",
		"provider", config.Type, "value", fallback)

	return fallback
}

func newGoogleProvider(config ProviderConfig) (Provider, error) {
	if config.APIKey == "" {
		return nil, errors.New("API key is required for Google provider")
	}

	client, err := maps.NewClient(
		maps.WithAPIKey(config.APIKey),
		maps.WithRateLimit(limitOrDefault(config, googleRateLimit)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google Maps client: %w", err)
	}

	return NewGoogleProvider(client, config.Logger), nil
}

func newNominatimProvider(config ProviderConfig) Provider {
	return NewNominatimProvider(limitOrDefault(config, nominatimRateLimit), config.Logger)
}
