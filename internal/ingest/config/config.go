// Package config loads the ingestion service configuration from YAML, with
// secrets overridable from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gartstein/jobscraper/internal/ingest/controller"
	"github.com/gartstein/jobscraper/internal/ingest/db"
	"github.com/gartstein/jobscraper/internal/ingest/geocode"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	EnvConfigPath   = "JOBSCRAPER_CONFIG"
	EnvDBPassword   = "JOBSCRAPER_DB_PASSWORD"
	EnvKakaoAPIKey  = "JOBSCRAPER_KAKAO_API_KEY"
	EnvKafkaBrokers = "JOBSCRAPER_KAFKA_BROKERS"
)

// DefaultPath is used when neither a flag nor JOBSCRAPER_CONFIG names a file.
var DefaultPath = filepath.Join("internal", "ingest", "config", "config.yaml")

// Config struct for YAML configuration
type Config struct {
	GRPCPort int `yaml:"GRPC_PORT" validate:"required,min=1,max=65535"`
	HTTPPort int `yaml:"HTTP_PORT" validate:"required,min=1,max=65535,nefield=GRPCPort"`

	DBDriver     string        `yaml:"DB_DRIVER" validate:"omitempty,oneof=postgres sqlite"`
	DBHost       string        `yaml:"DB_HOST" validate:"required_unless=DBDriver sqlite"`
	DBPort       int           `yaml:"DB_PORT" validate:"gte=0,lte=65535"`
	DBUser       string        `yaml:"DB_USER" validate:"required_unless=DBDriver sqlite"`
	DBPassword   string        `yaml:"DB_PASSWORD"`
	DBName       string        `yaml:"DB_NAME" validate:"required_unless=DBDriver sqlite"`
	DBSSLMode    string        `yaml:"DB_SSLMODE"`
	DBPath       string        `yaml:"DB_PATH" validate:"required_if=DBDriver sqlite"`
	DBRetries    uint64        `yaml:"DB_RETRIES"`
	QueryTimeout time.Duration `yaml:"DB_QUERY_TIMEOUT"`

	KafkaBrokers []string `yaml:"KAFKA_BROKERS" validate:"required,min=1,dive,hostname_port"`
	ResultsTopic string   `yaml:"RESULTS_TOPIC" validate:"required"`
	EventsTopic  string   `yaml:"EVENTS_TOPIC" validate:"required,nefield=ResultsTopic"`
	GroupID      string   `yaml:"GROUP_ID" validate:"required"`

	GeocoderBaseURL string        `yaml:"GEOCODER_BASE_URL" validate:"omitempty,url"`
	KakaoAPIKey     string        `yaml:"KAKAO_API_KEY"`
	GeocoderTimeout time.Duration `yaml:"GEOCODER_TIMEOUT"`
	GeocoderRate    float64       `yaml:"GEOCODER_RATE" validate:"gte=0"`
	GeocoderBurst   int           `yaml:"GEOCODER_BURST" validate:"gte=0"`
	GeocoderRetries uint64        `yaml:"GEOCODER_RETRIES"`
	GeocodePolicy   string        `yaml:"GEOCODE_POLICY" validate:"omitempty,oneof=soft hard"`

	Workers int `yaml:"WORKERS" validate:"gte=0"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Path resolves the config file: an explicit flag wins over
// JOBSCRAPER_CONFIG, which wins over DefaultPath.
func Path(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return DefaultPath
}

// Load reads, overrides and validates the configuration at path.
func Load(path string) (*Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(file)
}

// Parse decodes YAML data and applies environment overrides.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.applyEnv()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v, ok := os.LookupEnv(EnvDBPassword); ok {
		c.DBPassword = v
	}
	if v, ok := os.LookupEnv(EnvKakaoAPIKey); ok {
		c.KakaoAPIKey = v
	}
	if v, ok := os.LookupEnv(EnvKafkaBrokers); ok && v != "" {
		c.KafkaBrokers = splitList(v)
	}
}

// Database converts the DB_* keys into the store configuration.
func (c *Config) Database() *db.Config {
	retries := c.DBRetries
	if retries == 0 {
		retries = 3
	}
	return &db.Config{
		Driver:       c.DBDriver,
		Host:         c.DBHost,
		Port:         c.DBPort,
		User:         c.DBUser,
		Password:     c.DBPassword,
		DBName:       c.DBName,
		SSLMode:      c.DBSSLMode,
		Path:         c.DBPath,
		MaxRetries:   retries,
		QueryTimeout: c.QueryTimeout,
	}
}

// Geocoding reports whether a geocoder is configured at all.
func (c *Config) Geocoding() bool {
	return c.KakaoAPIKey != ""
}

func (c *Config) Geocoder() geocode.Config {
	return geocode.Config{
		BaseURL:       c.GeocoderBaseURL,
		APIKey:        c.KakaoAPIKey,
		Timeout:       c.GeocoderTimeout,
		RatePerSecond: c.GeocoderRate,
		Burst:         c.GeocoderBurst,
		MaxRetries:    c.GeocoderRetries,
	}
}

func (c *Config) Policy() (controller.GeocodePolicy, error) {
	return controller.ParseGeocodePolicy(c.GeocodePolicy)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
