package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"DATABASE_URL", "VAXBOOK_DATABASE_URL", "GRPC_ADDR", "GRPC_HOST", "GRPC_PORT", "HTTP_ADDR"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.GRPCAddr != "0.0.0.0:50051" {
		t.Fatalf("GRPCAddr = %q, want %q", cfg.GRPCAddr, "0.0.0.0:50051")
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8080")
	}
	if cfg.DatabaseURL != "" {
		t.Fatalf("DatabaseURL = %q, want empty", cfg.DatabaseURL)
	}
	if cfg.HorizonDays != 6 {
		t.Fatalf("HorizonDays = %d, want 6", cfg.HorizonDays)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Fatalf("ShutdownTimeout = %v, want 10s", cfg.ShutdownTimeout)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("VAXBOOK_GRPC_ADDR", "127.0.0.1:6000")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/vaxbook")
	t.Setenv("VAXBOOK_SCHEDULING_HORIZON_DAYS", "10")
	t.Setenv("VAXBOOK_DATA_FILE", " seed.csv ")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.GRPCHost != "127.0.0.1" || cfg.GRPCPort != 6000 {
		t.Fatalf("grpc = %s:%d, want 127.0.0.1:6000", cfg.GRPCHost, cfg.GRPCPort)
	}
	if cfg.DatabaseURL != "postgres://u:p@db:5432/vaxbook" {
		t.Fatalf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.HorizonDays != 10 {
		t.Fatalf("HorizonDays = %d, want 10", cfg.HorizonDays)
	}
	if cfg.DataFile != "seed.csv" {
		t.Fatalf("DataFile = %q, want %q", cfg.DataFile, "seed.csv")
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{name: "bad shutdown timeout", key: "VAXBOOK_SHUTDOWN_TIMEOUT", value: "soon"},
		{name: "bad request timeout", key: "VAXBOOK_GRPC_REQUEST_TIMEOUT", value: "10"},
		{name: "zero horizon", key: "VAXBOOK_SCHEDULING_HORIZON_DAYS", value: "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
