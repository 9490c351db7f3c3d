package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gartstein/jobscraper/internal/ingest/controller"
	"github.com/gartstein/jobscraper/internal/ingest/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sqliteConfig = `
GRPC_PORT: 50051
HTTP_PORT: 8080
DB_DRIVER: sqlite
DB_PATH: ":memory:"
KAFKA_BROKERS: ["localhost:9092"]
RESULTS_TOPIC: results
EVENTS_TOPIC: events
GROUP_ID: ingest
`

func TestLoadShippedConfig(t *testing.T) {
	cfg, err := Load("config.yaml")
	require.NoError(t, err)

	assert.Equal(t, 50051, cfg.GRPCPort)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 10*time.Second, cfg.QueryTimeout)
	assert.Equal(t, 5*time.Second, cfg.GeocoderTimeout)

	dbCfg := cfg.Database()
	assert.Equal(t, db.DriverPostgres, dbCfg.Driver)
	assert.Equal(t, uint64(3), dbCfg.MaxRetries)
	assert.Equal(t, 10*time.Second, dbCfg.QueryTimeout)

	policy, err := cfg.Policy()
	require.NoError(t, err)
	assert.Equal(t, controller.GeocodeSoft, policy)
}

func TestParseSQLite(t *testing.T) {
	cfg, err := Parse([]byte(sqliteConfig))
	require.NoError(t, err)

	dbCfg := cfg.Database()
	assert.Equal(t, db.DriverSQLite, dbCfg.Driver)
	assert.Equal(t, ":memory:", dbCfg.Path)
	assert.False(t, cfg.Geocoding())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvDBPassword, "s3cret")
	t.Setenv(EnvKakaoAPIKey, "kakao-key")
	t.Setenv(EnvKafkaBrokers, "kafka-1:9092, kafka-2:9092,")

	cfg, err := Parse([]byte(sqliteConfig))
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.DBPassword)
	assert.True(t, cfg.Geocoding())
	assert.Equal(t, "kakao-key", cfg.Geocoder().APIKey)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"malformed", "GRPC_PORT: [1"},
		{"missing ports", "DB_DRIVER: sqlite\nDB_PATH: x\nKAFKA_BROKERS: [\"k:9092\"]\nRESULTS_TOPIC: r\nEVENTS_TOPIC: e\nGROUP_ID: g"},
		{"postgres without host", "GRPC_PORT: 1\nHTTP_PORT: 2\nKAFKA_BROKERS: [\"k:9092\"]\nRESULTS_TOPIC: r\nEVENTS_TOPIC: e\nGROUP_ID: g"},
		{"same topics", sqliteConfig + "\nEVENTS_TOPIC: results"},
		{"bad policy", sqliteConfig + "\nGEOCODE_POLICY: strict"},
		{"bad broker", "GRPC_PORT: 1\nHTTP_PORT: 2\nDB_DRIVER: sqlite\nDB_PATH: x\nKAFKA_BROKERS: [\"no-port\"]\nRESULTS_TOPIC: r\nEVENTS_TOPIC: e\nGROUP_ID: g"},
		{"unknown driver", "GRPC_PORT: 1\nHTTP_PORT: 2\nDB_DRIVER: mysql\nDB_HOST: h\nDB_USER: u\nDB_NAME: n\nKAFKA_BROKERS: [\"k:9092\"]\nRESULTS_TOPIC: r\nEVENTS_TOPIC: e\nGROUP_ID: g"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestPath(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	assert.Equal(t, DefaultPath, Path(""))

	t.Setenv(EnvConfigPath, "/etc/jobscraper.yaml")
	assert.Equal(t, "/etc/jobscraper.yaml", Path(""))
	assert.Equal(t, "local.yaml", Path("local.yaml"))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
