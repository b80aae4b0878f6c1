package bootstrap

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigFileThenEnv(t *testing.T) {
	path := writeConfig(t, `
service:
  id: volante-test
  http_port: 8181
dependencies:
  postgres_url: postgres://file/db
  kafka_brokers: ["k1:9092"]
  kafka_topics:
    appointment.completed: volante.appointments
business:
  local_offset: "-04:00"
  webhook_replay_ttl_seconds: 60
outbox:
  batch_size: 25
`)
	t.Setenv("DB_URL", "postgres://env/db")
	t.Setenv("JWT_SECRET", "0123456789abcdef")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,")
	t.Setenv("RUN_MIGRATIONS", "false")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ServiceID != "volante-test" || cfg.HTTPPort != 8181 || cfg.GRPCPort != 9090 {
		t.Fatalf("unexpected service settings: %+v", cfg)
	}
	if cfg.DatabaseURL != "postgres://env/db" {
		t.Fatalf("expected env to override file url, got %s", cfg.DatabaseURL)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "b:9092" {
		t.Fatalf("unexpected brokers: %v", cfg.KafkaBrokers)
	}
	if cfg.KafkaTopics["appointment.completed"] != "volante.appointments" {
		t.Fatalf("unexpected topics: %v", cfg.KafkaTopics)
	}
	if cfg.LocalOffset != "-04:00" || cfg.WebhookReplayTTL != time.Minute || cfg.OutboxBatchSize != 25 {
		t.Fatalf("unexpected business settings: %+v", cfg)
	}
	if cfg.RunMigrations {
		t.Fatalf("expected RUN_MIGRATIONS=false to disable migrations")
	}
}

func TestLoadConfigRequiresDatabaseAndSecret(t *testing.T) {
	t.Setenv("DB_URL", "")
	t.Setenv("POSTGRES_URL", "")
	t.Setenv("JWT_SECRET", "0123456789abcdef")
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected missing database url error")
	}

	t.Setenv("DB_URL", "postgres://env/db")
	t.Setenv("JWT_SECRET", "")
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected missing jwt secret error")
	}
}

func TestLoadConfigRejectsUnknownCommissionBase(t *testing.T) {
	t.Setenv("DB_URL", "postgres://env/db")
	t.Setenv("JWT_SECRET", "0123456789abcdef")
	t.Setenv("COMMISSION_BASE", "profit")
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected invalid commission base error")
	}
}
