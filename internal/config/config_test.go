package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.ServerPort == "" {
		t.Fatalf("expected default server port")
	}
	if cfg.PostgresURL == "" {
		t.Fatalf("expected default postgres url")
	}
	if cfg.NearbyLimit != 6 {
		t.Fatalf("expected default nearby limit 6, got %d", cfg.NearbyLimit)
	}
	if cfg.LogLevel == "" {
		t.Fatalf("expected default log level")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", ":9000")
	t.Setenv("POSTGRES_URL", "postgres://example")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_PASSWORD", "pw")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("NEARBY_LIMIT", "10")
	t.Setenv("STORAGE_PUBLIC_URL", "https://cdn.example/")

	cfg := Load()
	if cfg.ServerPort != ":9000" {
		t.Fatalf("expected override port")
	}
	if cfg.PostgresURL != "postgres://example" {
		t.Fatalf("expected override postgres")
	}
	if cfg.RedisAddr != "redis:6379" || cfg.RedisPassword != "pw" {
		t.Fatalf("expected override redis")
	}
	if cfg.JWTSecret != "secret" {
		t.Fatalf("expected override secret")
	}
	if cfg.NearbyLimit != 10 {
		t.Fatalf("expected override nearby limit, got %d", cfg.NearbyLimit)
	}
	if cfg.StoragePublicURL != "https://cdn.example/" {
		t.Fatalf("expected override storage url")
	}
}

func TestLoadNonPositiveLimitFallsBack(t *testing.T) {
	t.Setenv("NEARBY_LIMIT", "0")
	if cfg := Load(); cfg.NearbyLimit != 6 {
		t.Fatalf("expected fallback limit, got %d", cfg.NearbyLimit)
	}
}
