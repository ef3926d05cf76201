package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	GRPCHost           string
	GRPCPort           int
	GRPCAddr           string
	GRPCRequestTimeout time.Duration
	HTTPAddr           string
	DatabaseURL        string
	DatabaseMigrate    bool
	DBMaxOpenConns     int
	DBMaxIdleConns     int
	DBConnMaxLifetime  time.Duration
	DBConnMaxIdleTime  time.Duration
	ShutdownTimeout    time.Duration
	LogLevel           string
	HorizonDays        int
	DataFile           string
}

// Load reads configuration from VAXBOOK_* environment variables. An empty database URL
// selects the in-memory store.
func Load() (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("VAXBOOK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("grpc.host", "0.0.0.0")
	v.SetDefault("grpc.port", 50051)
	v.SetDefault("grpc.addr", "")
	v.SetDefault("grpc.request_timeout", "10s")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("database.url", "")
	v.SetDefault("database.migrate", true)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.conn_max_idle_time", "5m")
	v.SetDefault("shutdown.timeout", "10s")
	v.SetDefault("log.level", "info")
	v.SetDefault("scheduling.horizon_days", 6)
	v.SetDefault("data.file", "")

	_ = v.BindEnv("grpc.host", "VAXBOOK_GRPC_HOST", "GRPC_HOST")
	_ = v.BindEnv("grpc.port", "VAXBOOK_GRPC_PORT", "GRPC_PORT")
	_ = v.BindEnv("grpc.addr", "VAXBOOK_GRPC_ADDR", "GRPC_ADDR")
	_ = v.BindEnv("grpc.request_timeout", "VAXBOOK_GRPC_REQUEST_TIMEOUT")
	_ = v.BindEnv("http.addr", "VAXBOOK_HTTP_ADDR", "HTTP_ADDR")
	_ = v.BindEnv("database.url", "VAXBOOK_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("database.migrate", "VAXBOOK_DATABASE_MIGRATE")
	_ = v.BindEnv("database.max_open_conns", "VAXBOOK_DATABASE_MAX_OPEN_CONNS")
	_ = v.BindEnv("database.max_idle_conns", "VAXBOOK_DATABASE_MAX_IDLE_CONNS")
	_ = v.BindEnv("database.conn_max_lifetime", "VAXBOOK_DATABASE_CONN_MAX_LIFETIME")
	_ = v.BindEnv("database.conn_max_idle_time", "VAXBOOK_DATABASE_CONN_MAX_IDLE_TIME")
	_ = v.BindEnv("shutdown.timeout", "VAXBOOK_SHUTDOWN_TIMEOUT", "SHUTDOWN_TIMEOUT")
	_ = v.BindEnv("log.level", "VAXBOOK_LOG_LEVEL", "LOG_LEVEL")
	_ = v.BindEnv("scheduling.horizon_days", "VAXBOOK_SCHEDULING_HORIZON_DAYS")
	_ = v.BindEnv("data.file", "VAXBOOK_DATA_FILE")

	timeout, err := time.ParseDuration(v.GetString("shutdown.timeout"))
	if err != nil {
		return Config{}, fmt.Errorf("shutdown.timeout: %w", err)
	}
	grpcTimeout, err := time.ParseDuration(v.GetString("grpc.request_timeout"))
	if err != nil {
		return Config{}, fmt.Errorf("grpc.request_timeout: %w", err)
	}
	connMaxLifetime, err := time.ParseDuration(v.GetString("database.conn_max_lifetime"))
	if err != nil {
		return Config{}, fmt.Errorf("database.conn_max_lifetime: %w", err)
	}
	connMaxIdleTime, err := time.ParseDuration(v.GetString("database.conn_max_idle_time"))
	if err != nil {
		return Config{}, fmt.Errorf("database.conn_max_idle_time: %w", err)
	}

	horizon := v.GetInt("scheduling.horizon_days")
	if horizon < 1 {
		return Config{}, fmt.Errorf("scheduling.horizon_days must be at least 1, got %d", horizon)
	}

	if addr := strings.TrimSpace(v.GetString("grpc.addr")); addr != "" {
		host, portStr, err := net.SplitHostPort(addr)
		if err == nil {
			if host != "" {
				v.Set("grpc.host", host)
			}
			if port, err := strconv.Atoi(portStr); err == nil {
				v.Set("grpc.port", port)
			}
		}
	}
	host := strings.TrimSpace(v.GetString("grpc.host"))
	port := v.GetInt("grpc.port")

	return Config{
		GRPCHost:           host,
		GRPCPort:           port,
		GRPCAddr:           net.JoinHostPort(host, strconv.Itoa(port)),
		GRPCRequestTimeout: grpcTimeout,
		HTTPAddr:           strings.TrimSpace(v.GetString("http.addr")),
		DatabaseURL:        strings.TrimSpace(v.GetString("database.url")),
		DatabaseMigrate:    v.GetBool("database.migrate"),
		DBMaxOpenConns:     v.GetInt("database.max_open_conns"),
		DBMaxIdleConns:     v.GetInt("database.max_idle_conns"),
		DBConnMaxLifetime:  connMaxLifetime,
		DBConnMaxIdleTime:  connMaxIdleTime,
		ShutdownTimeout:    timeout,
		LogLevel:           v.GetString("log.level"),
		HorizonDays:        horizon,
		DataFile:           strings.TrimSpace(v.GetString("data.file")),
	}, nil
}
