// Package config handles configuration loading and shared data structures.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Defaults used when the configuration file leaves a value unset.
const (
	DefaultLocale          = "en"
	DefaultSearchDebounce  = time.Second
	DefaultSearchLimit     = 1000
	DefaultListLimit       = 20
	DefaultZoom            = 6
	DefaultFocusZoom       = 15
	DefaultClusterMaxZoom  = 15
	DefaultFlyDelay        = 500 * time.Millisecond
	DefaultRequestTimeout  = 15 * time.Second
	DefaultEnrichTimeout   = 5 * time.Second
	DefaultEnrichRate      = 5.0
	DefaultEnrichBurst     = 10
	DefaultSessionTTL      = 30 * time.Minute
	DefaultCenterLatitude  = -4.775231
	DefaultCenterLongitude = 109.042028
	DefaultTileURL         = "https://tile.openstreetmap.org/{z}/{x}/{y}.png"
	DefaultAttribution     = `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors`
)

// Config represents the root configuration file structure.
type Config struct {
	LocationAPI LocationAPI `yaml:"location_api"`
	Enrichment  Enrichment  `yaml:"enrichment"`
	Search      Search      `yaml:"search"`
	Map         Map         `yaml:"map"`
	Session     Session     `yaml:"session"`
	Locale      string      `yaml:"locale,omitempty" validate:"omitempty,oneof=en id"`
}

// LocationAPI describes the primary outlet search backend.
type LocationAPI struct {
	BaseURL string        `yaml:"base_url" validate:"required,url"`
	Timeout time.Duration `yaml:"timeout,omitempty" validate:"gte=0"`
}

// Enrichment describes the third-party surrounding area and facility service.
// URL may contain a {code} placeholder; otherwise the code is appended as a path segment.
type Enrichment struct {
	URL     string        `yaml:"url" validate:"required"`
	Timeout time.Duration `yaml:"timeout,omitempty" validate:"gte=0"`
	Rate    float64       `yaml:"rate,omitempty" validate:"gte=0"`
	Burst   int           `yaml:"burst,omitempty" validate:"gte=0"`
}

// Search holds search controller tuning.
type Search struct {
	Debounce  time.Duration `yaml:"debounce,omitempty" validate:"gte=0"`
	Limit     int           `yaml:"limit,omitempty" validate:"gte=0"`
	ListLimit int           `yaml:"list_limit,omitempty" validate:"gte=0"`
}

// Map holds the initial viewport and map behaviour.
type Map struct {
	TileURL        string        `yaml:"tile_url,omitempty"`
	Attribution    string        `yaml:"attribution,omitempty"`
	Center         *LatLng       `yaml:"center,omitempty"`
	Zoom           int           `yaml:"zoom,omitempty" validate:"gte=0,lte=22"`
	FocusZoom      int           `yaml:"focus_zoom,omitempty" validate:"gte=0,lte=22"`
	ClusterMaxZoom int           `yaml:"cluster_max_zoom,omitempty" validate:"gte=0,lte=22"`
	FlyDelay       time.Duration `yaml:"fly_delay,omitempty" validate:"gte=0"`
}

// LatLng is a WGS84 coordinate pair.
type LatLng struct {
	Lat float64 `yaml:"lat" json:"lat" validate:"gte=-90,lte=90"`
	Lng float64 `yaml:"lng" json:"lng" validate:"gte=-180,lte=180"`
}

// Session controls in-memory viewer sessions.
type Session struct {
	TTL time.Duration `yaml:"ttl,omitempty" validate:"gte=0"`
}

// Load reads and parses the YAML configuration file from the specified path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return Parse(data)
}

// Parse decodes, normalizes and validates configuration bytes.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Locale == "" {
		c.Locale = DefaultLocale
	}
	if c.LocationAPI.Timeout <= 0 {
		c.LocationAPI.Timeout = DefaultRequestTimeout
	}

	if c.Enrichment.Timeout <= 0 {
		c.Enrichment.Timeout = DefaultEnrichTimeout
	}
	if c.Enrichment.Rate <= 0 {
		c.Enrichment.Rate = DefaultEnrichRate
	}
	if c.Enrichment.Burst <= 0 {
		c.Enrichment.Burst = DefaultEnrichBurst
	}

	if c.Search.Debounce <= 0 {
		c.Search.Debounce = DefaultSearchDebounce
	}
	if c.Search.Limit <= 0 {
		c.Search.Limit = DefaultSearchLimit
	}
	if c.Search.ListLimit <= 0 {
		c.Search.ListLimit = DefaultListLimit
	}

	if c.Map.TileURL == "" {
		c.Map.TileURL = DefaultTileURL
	}
	if c.Map.Attribution == "" {
		c.Map.Attribution = DefaultAttribution
	}
	if c.Map.Center == nil {
		c.Map.Center = &LatLng{Lat: DefaultCenterLatitude, Lng: DefaultCenterLongitude}
	}
	if c.Map.Zoom <= 0 {
		c.Map.Zoom = DefaultZoom
	}
	if c.Map.FocusZoom <= 0 {
		c.Map.FocusZoom = DefaultFocusZoom
	}
	if c.Map.ClusterMaxZoom <= 0 {
		c.Map.ClusterMaxZoom = DefaultClusterMaxZoom
	}
	if c.Map.FlyDelay <= 0 {
		c.Map.FlyDelay = DefaultFlyDelay
	}

	if c.Session.TTL <= 0 {
		c.Session.TTL = DefaultSessionTTL
	}
}
