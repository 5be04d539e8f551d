package models

// Strategy identifies which step of the location fallback chain produced a coordinate.
type Strategy string

const (
	// StrategyNone marks a state that has not settled yet.
	StrategyNone Strategy = ""
	// StrategyDeviceGPS is a reading from the user's device positioning hardware.
	StrategyDeviceGPS Strategy = "device_gps"
	// StrategyIPGeolocation is an approximation derived from the client's IP address.
	StrategyIPGeolocation Strategy = "ip_geolocation"
	// StrategyDefaultFallback is the fixed default location used when everything else failed.
	StrategyDefaultFallback Strategy = "default_fallback"
)

// ResolutionAttempt records which strategy settled a resolution cycle.
// Label is a human-readable place name (city, region, country) when one is known.
type ResolutionAttempt struct {
	Strategy Strategy `json:"strategy"`
	Label    string   `json:"label,omitempty"`
}
