package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/UnknownOlympus/compass/internal/models"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the configuration settings for the compass service.
//
// Values come from the environment (COMPASS_* and DB_* variables, optionally
// loaded from a .env file) and from an optional config file named by
// COMPASS_CONFIG_FILE. Environment variables win over the file.
type Config struct {
	Env            string         // Env is the current environment: local, development, production.
	Port           int            // Port is the monitoring server port.
	APIPort        int            // APIPort is the public HTTP API port.
	SearchRadiusKm float64        // Radius of the nearby query run after a location settles.
	SeedSample     bool           // Insert sample businesses into an empty database.
	Geocoder       GeocoderConfig // Place search provider.
	Locator        LocatorConfig  // Location resolution chain.
	Database       PostgresConfig // Database holds the postgres database configuration
}

// GeocoderConfig selects the forward geocoding provider used by place search.
type GeocoderConfig struct {
	Type      string // google, nominatim or none
	APIKey    string // Required for google.
	RateLimit int    // Requests per second.
}

// LocatorConfig tunes the resolution chain.
type LocatorConfig struct {
	DeviceTimeout time.Duration // How long to wait for a device fix.
	DeviceMaxAge  time.Duration // Oldest cached device fix that is accepted.
	IPTimeout     time.Duration // Bound of the IP geolocation request.
	IPAPIURL      string        // Base URL of the ipapi service.
	IPRateLimit   int           // IP geolocation requests per second.
	DefaultLat    float64       // Fallback latitude.
	DefaultLon    float64       // Fallback longitude.
	DefaultLabel  string        // Fallback name.
}

// PostgresConfig struct holds the configuration details for connecting to a PostgreSQL database.
type PostgresConfig struct {
	Host     string // Host is the database server address.
	Port     string // Port is the database server port.
	User     string // User is the database user.
	Password string // Password is the database user's password.
	Name     string // Name is the name of the database.
}

// MustLoad loads the configuration and panics when a value cannot be parsed.
func MustLoad() *Config {
	_ = godotenv.Load()

	v := newViper()
	if file := os.Getenv("COMPASS_CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			panic("failed to read configuration file")
		}
	}

	healthPort, err := strconv.Atoi(v.GetString("health_port"))
	if err != nil {
		panic("failed to parse port for monitoring server from configuration")
	}

	apiPort, err := strconv.Atoi(v.GetString("api_port"))
	if err != nil {
		panic("failed to parse port for api server from configuration")
	}

	radius, err := strconv.ParseFloat(v.GetString("search_radius"), 64)
	if err != nil || radius <= 0 {
		panic("failed to parse search radius from configuration, must be a positive number")
	}

	seed, err := strconv.ParseBool(v.GetString("seed_sample"))
	if err != nil {
		panic("failed to parse seed flag from configuration, must be a boolean")
	}

	geocoderRate, err := strconv.Atoi(v.GetString("geocoder.rate_limit"))
	if err != nil {
		panic("failed to parse geocoder rate limit from configuration, must be an integer types")
	}

	return &Config{
		Env:            v.GetString("env"),
		Port:           healthPort,
		APIPort:        apiPort,
		SearchRadiusKm: radius,
		SeedSample:     seed,
		Geocoder: GeocoderConfig{
			Type:      v.GetString("geocoder.type"),
			APIKey:    v.GetString("geocoder.api_key"),
			RateLimit: geocoderRate,
		},
		Locator: mustLoadLocator(v),
		Database: PostgresConfig{
			Host:     v.GetString("postgres.host"),
			Port:     v.GetString("postgres.port"),
			User:     v.GetString("postgres.user"),
			Password: v.GetString("postgres.password"),
			Name:     v.GetString("postgres.db_name"),
		},
	}
}

func mustLoadLocator(v *viper.Viper) LocatorConfig {
	deviceTimeout, err := time.ParseDuration(v.GetString("locator.device_timeout"))
	if err != nil || deviceTimeout <= 0 {
		panic("failed to parse device timeout from configuration, must be a positive duration")
	}

	deviceMaxAge, err := time.ParseDuration(v.GetString("locator.device_max_age"))
	if err != nil || deviceMaxAge <= 0 {
		panic("failed to parse device max age from configuration, must be a positive duration")
	}

	ipTimeout, err := time.ParseDuration(v.GetString("locator.ip_timeout"))
	if err != nil || ipTimeout <= 0 {
		panic("failed to parse ip timeout from configuration, must be a positive duration")
	}

	ipRate, err := strconv.Atoi(v.GetString("locator.ip_rate_limit"))
	if err != nil {
		panic("failed to parse ip rate limit from configuration, must be an integer types")
	}

	lat, errLat := strconv.ParseFloat(v.GetString("locator.default_latitude"), 64)
	lon, errLon := strconv.ParseFloat(v.GetString("locator.default_longitude"), 64)
	if errLat != nil || errLon != nil {
		panic("failed to parse default location from configuration")
	}
	if err = (models.Coordinates{Latitude: lat, Longitude: lon}).Validate(); err != nil {
		panic("invalid default location in configuration, latitude must be in [-90, 90] and longitude in [-180, 180]")
	}

	return LocatorConfig{
		DeviceTimeout: deviceTimeout,
		DeviceMaxAge:  deviceMaxAge,
		IPTimeout:     ipTimeout,
		IPAPIURL:      v.GetString("locator.ipapi_url"),
		IPRateLimit:   ipRate,
		DefaultLat:    lat,
		DefaultLon:    lon,
		DefaultLabel:  v.GetString("locator.default_label"),
	}
}

// newViper maps nested keys to COMPASS_ variables ("locator.ip_timeout" is
// COMPASS_LOCATOR_IP_TIMEOUT) and the database keys to the shared DB_ variables.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("COMPASS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := map[string]any{
		"env":                       "production",
		"health_port":               "8080",
		"api_port":                  "8000",
		"search_radius":             "10000",
		"seed_sample":               "false",
		"geocoder.type":             "nominatim",
		"geocoder.api_key":          "",
		"geocoder.rate_limit":       "0",
		"locator.device_timeout":    "30s",
		"locator.device_max_age":    "5m",
		"locator.ip_timeout":        "10s",
		"locator.ipapi_url":         "https://ipapi.co",
		"locator.ip_rate_limit":     "1",
		"locator.default_latitude":  "43.6532",
		"locator.default_longitude": "-79.3832",
		"locator.default_label":     "Toronto",
		"postgres.port":             "5432",
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	dbEnv := map[string]string{
		"postgres.host":     "DB_HOST",
		"postgres.port":     "DB_PORT",
		"postgres.user":     "DB_USERNAME",
		"postgres.password": "DB_PASSWORD",
		"postgres.db_name":  "DB_NAME",
	}
	for key, env := range dbEnv {
		_ = v.BindEnv(key, env)
	}

	return v
}
