package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Playback.
	PlaybackMinYear   int
	PlaybackMaxYear   int
	PlaybackStepDelay time.Duration
	PlaybackAutostart bool

	// Dataset source.
	DatasetSource      string
	DatasetPath        string
	DatasetTable       string
	DatasetLoadRetries int
	ClassMappingsPath  string
	RegionsPath        string
	RegionCacheSize    int

	// Optional Redis region cache.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTTL      time.Duration

	// Optional Kafka frame mirroring.
	KafkaEnabled     bool
	KafkaBrokers     []string
	KafkaFramesTopic string
}

var datasetSources = []string{"csv", "geojson", "postgres", "sqlite3"}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	minYear, err := parseInt("PLAYBACK_MIN_YEAR", 1900)
	if err != nil {
		return nil, err
	}
	maxYear, err := parseInt("PLAYBACK_MAX_YEAR", 2013)
	if err != nil {
		return nil, err
	}
	if minYear > maxYear {
		return nil, fmt.Errorf("PLAYBACK_MIN_YEAR (%d) must not exceed PLAYBACK_MAX_YEAR (%d)", minYear, maxYear)
	}

	stepDelay, err := parsePositiveDuration("PLAYBACK_STEP_DELAY", "1s")
	if err != nil {
		return nil, err
	}
	redisTTL, err := parsePositiveDuration("REDIS_TTL", "24h")
	if err != nil {
		return nil, err
	}

	retries, err := parseInt("DATASET_LOAD_RETRIES", 3)
	if err != nil || retries < 1 {
		return nil, errors.New("invalid DATASET_LOAD_RETRIES: must be a positive integer")
	}
	cacheSize, err := parseInt("REGION_CACHE_SIZE", 4096)
	if err != nil || cacheSize < 1 {
		return nil, errors.New("invalid REGION_CACHE_SIZE: must be a positive integer")
	}
	redisDB, err := parseInt("REDIS_DB", 0)
	if err != nil || redisDB < 0 {
		return nil, errors.New("invalid REDIS_DB: must be a non-negative integer")
	}

	brokers := sharedcfg.ParseBrokers(os.Getenv("KAFKA_BROKERS"))
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		PlaybackMinYear:   minYear,
		PlaybackMaxYear:   maxYear,
		PlaybackStepDelay: stepDelay,
		PlaybackAutostart: sharedcfg.EnvOrDefault("PLAYBACK_AUTOSTART", "true") == "true",

		DatasetSource:      strings.ToLower(sharedcfg.EnvOrDefault("DATASET_SOURCE", "csv")),
		DatasetPath:        sharedcfg.EnvOrDefault("DATASET_PATH", "data/classified-meteorite-landings.csv"),
		DatasetTable:       sharedcfg.EnvOrDefault("DATASET_TABLE", "meteorite_landings"),
		DatasetLoadRetries: retries,
		ClassMappingsPath:  os.Getenv("CLASS_MAPPINGS_PATH"),
		RegionsPath:        os.Getenv("REGIONS_PATH"),
		RegionCacheSize:    cacheSize,

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,
		RedisTTL:      redisTTL,

		KafkaEnabled:     kafkaEnabled,
		KafkaBrokers:     brokers,
		KafkaFramesTopic: sharedcfg.EnvOrDefault("KAFKA_FRAMES_TOPIC", "meteorite-playback-frames"),
	}

	if !validSource(cfg.DatasetSource) {
		return nil, fmt.Errorf("invalid DATASET_SOURCE %q: must be one of %s", cfg.DatasetSource, strings.Join(datasetSources, ", "))
	}
	if cfg.DatasetPath == "" {
		return nil, errors.New("DATASET_PATH is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.KafkaEnabled && cfg.KafkaFramesTopic == "" {
		return nil, errors.New("KAFKA_FRAMES_TOPIC is required")
	}

	return cfg, nil
}

func validSource(s string) bool {
	for _, v := range datasetSources {
		if s == v {
			return true
		}
	}
	return false
}

func parseInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func parsePositiveDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive duration", key)
	}
	return d, nil
}
