package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fekuna/spaceflow-wms-service/internal/location"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig
	Logger     LoggerConfig
	Data       DataConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	Kafka      KafkaConfig
	Translator TranslatorConfig
	Simulation SimulationConfig
	Warehouse  WarehouseConfig
	Locale     string
}

type ServerConfig struct {
	AppEnv      string
	GRPCPort    string
	MetricsPort string
}

type LoggerConfig struct {
	Level             string
	Encoding          string
	DisableCaller     bool
	DisableStacktrace bool
}

// DataConfig selects where the initial pallet snapshot comes from.
// EventLedger appends every event to pallet_events (postgres only).
type DataConfig struct {
	Source      string // json or postgres
	File        string
	SaveOnExit  bool
	EventLedger bool
}

type PostgresConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
	ConnMaxIdleTime int
}

func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

type RedisConfig struct {
	Enabled        bool
	Addr           string
	Password       string
	DB             int
	IntentCacheTTL time.Duration
}

type KafkaConfig struct {
	Enabled      bool
	Brokers      []string
	EventTopic   string
	ScannerTopic string
	GroupID      string
}

type TranslatorConfig struct {
	BaseURL          string
	APIKey           string
	Model            string
	Timeout          time.Duration
	Temperature      float64
	LegacyVocabulary bool
}

type SimulationConfig struct {
	Enabled bool
	Period  time.Duration
	Seed    int64
}

type WarehouseConfig struct {
	LayoutFile string
}

func LoadEnv() *Config {
	return &Config{
		Server: ServerConfig{
			AppEnv:      getEnv("APP_ENV", "dev"),
			GRPCPort:    getEnv("GRPC_PORT", ":8082"),
			MetricsPort: getEnv("METRICS_PORT", ":9102"),
		},
		Logger: LoggerConfig{
			Level:             getEnv("LOGGER_LEVEL", "debug"),
			Encoding:          getEnv("LOGGER_ENCODING", "console"),
			DisableCaller:     getEnvBool("LOGGER_DISABLE_CALLER", false),
			DisableStacktrace: getEnvBool("LOGGER_DISABLE_STACKTRACE", true),
		},
		Data: DataConfig{
			Source:      getEnv("DATA_SOURCE", "json"),
			File:        getEnv("DATA_FILE", "data/pallets.json"),
			SaveOnExit:  getEnvBool("DATA_SAVE_ON_EXIT", false),
			EventLedger: getEnvBool("DATA_EVENT_LEDGER", true),
		},
		Postgres: PostgresConfig{
			Host:            getEnv("POSTGRES_HOST", "localhost"),
			Port:            getEnv("POSTGRES_PORT", "5433"),
			User:            getEnv("POSTGRES_USER", "spaceflow"),
			Password:        getEnv("POSTGRES_PASSWORD", "spaceflow"),
			DBName:          getEnv("POSTGRES_DB", "spaceflow_wms"),
			SSLMode:         getEnv("POSTGRES_SSLMODE", "disable"),
			MaxOpenConns:    getEnvInt("POSTGRES_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvInt("POSTGRES_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvInt("POSTGRES_CONN_MAX_LIFETIME", 300),
			ConnMaxIdleTime: getEnvInt("POSTGRES_CONN_MAX_IDLE_TIME", 60),
		},
		Redis: RedisConfig{
			Enabled:        getEnvBool("REDIS_ENABLED", true),
			Addr:           getEnv("REDIS_ADDR", "localhost:6379"),
			Password:       getEnv("REDIS_PASSWORD", ""),
			DB:             getEnvInt("REDIS_DB", 0),
			IntentCacheTTL: getEnvDuration("INTENT_CACHE_TTL", 10*time.Minute),
		},
		Kafka: KafkaConfig{
			Enabled:      getEnvBool("KAFKA_ENABLED", false),
			Brokers:      getEnvSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
			EventTopic:   getEnv("KAFKA_TOPIC_PALLET_EVENTS", "wms.pallet-events"),
			ScannerTopic: getEnv("KAFKA_TOPIC_SCANNER", "wms.scanner"),
			GroupID:      getEnv("KAFKA_GROUP_SCANNER", "spaceflow-wms"),
		},
		Translator: TranslatorConfig{
			BaseURL:          getEnv("TRANSLATOR_BASE_URL", ""),
			APIKey:           getEnv("OPENAI_API_KEY", ""),
			Model:            getEnv("TRANSLATOR_MODEL", "gpt-4o-mini"),
			Timeout:          getEnvDuration("TRANSLATOR_TIMEOUT", 15*time.Second),
			Temperature:      getEnvFloat("TRANSLATOR_TEMPERATURE", 0),
			LegacyVocabulary: getEnvBool("TRANSLATOR_LEGACY_VOCABULARY", false),
		},
		Simulation: SimulationConfig{
			Enabled: getEnvBool("SIMULATION_ENABLED", false),
			Period:  getEnvDuration("SIMULATION_PERIOD", 2500*time.Millisecond),
			Seed:    int64(getEnvInt("SIMULATION_SEED", 0)),
		},
		Warehouse: WarehouseConfig{
			LayoutFile: getEnv("WAREHOUSE_LAYOUT_FILE", ""),
		},
		Locale: getEnv("LOCALE", "en"),
	}
}

// LoadLayout reads the warehouse layout from a YAML file. An empty path
// yields the default layout; fields missing from the file keep their
// default values.
func LoadLayout(path string) (location.Layout, error) {
	layout := location.DefaultLayout()
	if path == "" {
		return layout, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return layout, fmt.Errorf("read layout: %w", err)
	}
	if err := yaml.Unmarshal(raw, &layout); err != nil {
		return layout, fmt.Errorf("parse layout %s: %w", path, err)
	}
	for i, z := range layout.Zones {
		layout.Zones[i] = strings.ToUpper(strings.TrimSpace(z))
	}
	if err := layout.Validate(); err != nil {
		return layout, err
	}
	return layout, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.Split(value, ",")
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
