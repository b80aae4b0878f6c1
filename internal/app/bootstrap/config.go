package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration. File values override the
// defaults and environment variables override both.
type Config struct {
	ServiceID string

	HTTPPort int
	GRPCPort int

	DatabaseURL   string
	MaxDBConns    int32
	RunMigrations bool
	RedisURL      string

	KafkaBrokers []string
	KafkaTopics  map[string]string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxClaimTTL     time.Duration
	OutboxMaxRetries   int

	JWTSecret     string
	JWTIssuer     string
	WebhookSecret string

	LocalOffset      string
	CommissionBase   string
	WebhookReplayTTL time.Duration
	RateCacheTTL     time.Duration

	EvidenceDir     string
	EvidenceBaseURL string
	MaxBodyBytes    int64
	MaxUploadBytes  int64
}

type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL  string            `yaml:"postgres_url"`
		MaxDBConns   int32             `yaml:"max_db_conns"`
		RedisURL     string            `yaml:"redis_url"`
		KafkaBrokers []string          `yaml:"kafka_brokers"`
		KafkaTopics  map[string]string `yaml:"kafka_topics"`
	} `yaml:"dependencies"`
	Outbox struct {
		PollSeconds     int `yaml:"poll_seconds"`
		BatchSize       int `yaml:"batch_size"`
		ClaimTTLSeconds int `yaml:"claim_ttl_seconds"`
		MaxRetries      int `yaml:"max_retries"`
	} `yaml:"outbox"`
	Auth struct {
		JWTIssuer string `yaml:"jwt_issuer"`
	} `yaml:"auth"`
	Business struct {
		LocalOffset             string `yaml:"local_offset"`
		CommissionBase          string `yaml:"commission_base"`
		WebhookReplayTTLSeconds int    `yaml:"webhook_replay_ttl_seconds"`
		RateCacheTTLSeconds     int    `yaml:"rate_cache_ttl_seconds"`
	} `yaml:"business"`
	Evidence struct {
		Dir            string `yaml:"dir"`
		PublicBaseURL  string `yaml:"public_base_url"`
		MaxUploadBytes int64  `yaml:"max_upload_bytes"`
	} `yaml:"evidence"`
	HTTP struct {
		MaxBodyBytes int64 `yaml:"max_body_bytes"`
	} `yaml:"http"`
}

// LoadConfig resolves configuration in priority order: defaults -> file -> env.
// A missing file is not an error.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:          "volante-express",
		HTTPPort:           8080,
		GRPCPort:           9090,
		MaxDBConns:         20,
		RunMigrations:      true,
		KafkaTopics:        map[string]string{},
		OutboxPollInterval: 2 * time.Second,
		OutboxBatchSize:    100,
		OutboxClaimTTL:     30 * time.Second,
		OutboxMaxRetries:   5,
		JWTIssuer:          "volante-express",
		LocalOffset:        "-03:00",
		CommissionBase:     "net",
		WebhookReplayTTL:   10 * time.Minute,
		RateCacheTTL:       5 * time.Minute,
		EvidenceDir:        "data/evidence",
		EvidenceBaseURL:    "/evidence",
		MaxBodyBytes:       1 << 20,
		MaxUploadBytes:     10 << 20,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		applyFile(&cfg, f)
	}

	cfg.ServiceID = envOrDefault("SERVICE_ID", cfg.ServiceID)
	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RunMigrations = envBool("RUN_MIGRATIONS", cfg.RunMigrations)
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.JWTSecret = envOrDefault("JWT_SECRET", cfg.JWTSecret)
	cfg.JWTIssuer = envOrDefault("JWT_ISSUER", cfg.JWTIssuer)
	cfg.WebhookSecret = envOrDefault("WEBHOOK_SECRET", cfg.WebhookSecret)
	cfg.LocalOffset = envOrDefault("LOCAL_UTC_OFFSET", cfg.LocalOffset)
	cfg.CommissionBase = strings.ToLower(strings.TrimSpace(envOrDefault("COMMISSION_BASE", cfg.CommissionBase)))
	cfg.EvidenceDir = envOrDefault("EVIDENCE_DIR", cfg.EvidenceDir)
	cfg.EvidenceBaseURL = envOrDefault("EVIDENCE_PUBLIC_BASE_URL", cfg.EvidenceBaseURL)

	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))
	cfg.OutboxPollInterval = time.Duration(envInt("OUTBOX_POLL_SECONDS", int(cfg.OutboxPollInterval.Seconds()))) * time.Second
	cfg.OutboxBatchSize = envInt("OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.OutboxClaimTTL = time.Duration(envInt("OUTBOX_CLAIM_TTL_SECONDS", int(cfg.OutboxClaimTTL.Seconds()))) * time.Second
	cfg.OutboxMaxRetries = envInt("OUTBOX_MAX_RETRIES", cfg.OutboxMaxRetries)
	cfg.WebhookReplayTTL = time.Duration(envInt("WEBHOOK_REPLAY_TTL_SECONDS", int(cfg.WebhookReplayTTL.Seconds()))) * time.Second
	cfg.RateCacheTTL = time.Duration(envInt("RATE_CACHE_TTL_SECONDS", int(cfg.RateCacheTTL.Seconds()))) * time.Second
	cfg.MaxBodyBytes = int64(envInt("HTTP_MAX_BODY_BYTES", int(cfg.MaxBodyBytes)))
	cfg.MaxUploadBytes = int64(envInt("EVIDENCE_MAX_UPLOAD_BYTES", int(cfg.MaxUploadBytes)))

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("missing DB_URL/POSTGRES_URL")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("missing JWT_SECRET")
	}
	if cfg.CommissionBase != "net" && cfg.CommissionBase != "gross" {
		return Config{}, fmt.Errorf("invalid COMMISSION_BASE %q", cfg.CommissionBase)
	}
	return cfg, nil
}

func applyFile(cfg *Config, f configFile) {
	if f.Service.ID != "" {
		cfg.ServiceID = f.Service.ID
	}
	if f.Service.HTTPPort > 0 {
		cfg.HTTPPort = f.Service.HTTPPort
	}
	if f.Service.GRPCPort > 0 {
		cfg.GRPCPort = f.Service.GRPCPort
	}
	if f.Dependencies.PostgresURL != "" {
		cfg.DatabaseURL = f.Dependencies.PostgresURL
	}
	if f.Dependencies.MaxDBConns > 0 {
		cfg.MaxDBConns = f.Dependencies.MaxDBConns
	}
	if f.Dependencies.RedisURL != "" {
		cfg.RedisURL = f.Dependencies.RedisURL
	}
	if len(f.Dependencies.KafkaBrokers) > 0 {
		cfg.KafkaBrokers = f.Dependencies.KafkaBrokers
	}
	for event, topic := range f.Dependencies.KafkaTopics {
		cfg.KafkaTopics[event] = topic
	}
	if f.Outbox.PollSeconds > 0 {
		cfg.OutboxPollInterval = time.Duration(f.Outbox.PollSeconds) * time.Second
	}
	if f.Outbox.BatchSize > 0 {
		cfg.OutboxBatchSize = f.Outbox.BatchSize
	}
	if f.Outbox.ClaimTTLSeconds > 0 {
		cfg.OutboxClaimTTL = time.Duration(f.Outbox.ClaimTTLSeconds) * time.Second
	}
	if f.Outbox.MaxRetries > 0 {
		cfg.OutboxMaxRetries = f.Outbox.MaxRetries
	}
	if f.Auth.JWTIssuer != "" {
		cfg.JWTIssuer = f.Auth.JWTIssuer
	}
	if f.Business.LocalOffset != "" {
		cfg.LocalOffset = f.Business.LocalOffset
	}
	if f.Business.CommissionBase != "" {
		cfg.CommissionBase = f.Business.CommissionBase
	}
	if f.Business.WebhookReplayTTLSeconds > 0 {
		cfg.WebhookReplayTTL = time.Duration(f.Business.WebhookReplayTTLSeconds) * time.Second
	}
	if f.Business.RateCacheTTLSeconds > 0 {
		cfg.RateCacheTTL = time.Duration(f.Business.RateCacheTTLSeconds) * time.Second
	}
	if f.Evidence.Dir != "" {
		cfg.EvidenceDir = f.Evidence.Dir
	}
	if f.Evidence.PublicBaseURL != "" {
		cfg.EvidenceBaseURL = f.Evidence.PublicBaseURL
	}
	if f.Evidence.MaxUploadBytes > 0 {
		cfg.MaxUploadBytes = f.Evidence.MaxUploadBytes
	}
	if f.HTTP.MaxBodyBytes > 0 {
		cfg.MaxBodyBytes = f.HTTP.MaxBodyBytes
	}
}

func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// envInt falls back on empty or unparsable values.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envBool(name string, fallback bool) bool {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return fallback
	}
}

func envCSV(name string, fallback []string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		parts = append(parts, trimmed)
	}
	return parts
}
