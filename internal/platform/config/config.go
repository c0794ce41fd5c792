package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr        string
	APIKey      string
	CORSOrigins []string
	RulesFile   string
	Pipeline    PipelineConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	Tracing     TracingConfig
}

// PipelineConfig tunes the application processing pipeline and its checks.
type PipelineConfig struct {
	IntegrationTimeout time.Duration
	MockLatency        bool
	LockTTL            time.Duration
	BreakerFailures    int
	BreakerCooldown    time.Duration
}

// RedisConfig enables the distributed per-application lock when URL is set.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig enables the Kafka audit sink when Brokers is non-empty.
type KafkaConfig struct {
	Brokers         []string
	AuditTopic      string
	CreateTopic     bool
	AuditPartitions int
}

// TracingConfig toggles the stdout span exporter.
type TracingConfig struct {
	Enabled     bool
	ServiceName string
}

// DefaultIntegrationTimeout bounds a single external check.
const DefaultIntegrationTimeout = 30 * time.Second

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	return Server{
		Addr:        getEnv("ACCOUNTFLOW_ADDR", ":8080"),
		APIKey:      os.Getenv("ACCOUNTFLOW_API_KEY"),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "*")),
		RulesFile:   os.Getenv("RULES_FILE"),
		Pipeline: PipelineConfig{
			IntegrationTimeout: getDuration("INTEGRATION_TIMEOUT", DefaultIntegrationTimeout),
			MockLatency:        getBool("MOCK_LATENCY", true),
			LockTTL:            getDuration("LOCK_TTL", 2*time.Minute),
			BreakerFailures:    getInt("BREAKER_FAILURES", 5),
			BreakerCooldown:    getDuration("BREAKER_COOLDOWN", 30*time.Second),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:         splitList(os.Getenv("KAFKA_BROKERS")),
			AuditTopic:      getEnv("KAFKA_AUDIT_TOPIC", "accountflow.audit"),
			CreateTopic:     getBool("KAFKA_CREATE_TOPIC", true),
			AuditPartitions: getInt("KAFKA_AUDIT_PARTITIONS", 3),
		},
		Tracing: TracingConfig{
			Enabled:     getBool("TRACING_ENABLED", false),
			ServiceName: getEnv("SERVICE_NAME", "accountflow"),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// splitList splits a comma separated value, dropping blanks and repeats.
// Order is preserved.
func splitList(v string) []string {
	if v == "" {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, part := range strings.Split(v, ",") {
		p := strings.TrimSpace(part)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
