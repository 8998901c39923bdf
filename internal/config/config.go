package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"shopsim/internal/sim"

	"github.com/joho/godotenv"
)

const (
	BackendPostgres = "postgres"
	BackendDynamo   = "dynamodb"
	BackendMemory   = "memory"
)

type APIConfig struct {
	Addr         string
	StoreBackend     string
	DatabaseURL      string
	DatabaseMaxConns int32

	DynamoBusinessesTable string
	DynamoOrdersTable     string
	DynamoOwnersTable     string
	DynamoEndpoint        string
	AWSRegion             string

	JWTSecret       string
	SupabaseURL     string
	SupabaseAnonKey string

	EmbeddedSim      bool
	SpoolDir         string
	Seed             int64
	MarketVolatility string
	Sim              sim.Config
}

type CLIConfig struct {
	APIBaseURL string
}

// loadDotEnv reads .env from the working directory when present. Variables
// already set in the environment win.
func loadDotEnv() {
	_ = godotenv.Load()
}

func LoadAPIFromEnv() (APIConfig, error) {
	loadDotEnv()

	addr := os.Getenv("PORT")
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("SHOPSIM_API_ADDR", ":8080")
	}

	cfg := APIConfig{
		Addr:                  addr,
		StoreBackend:          strings.ToLower(envDefault("SHOPSIM_STORE", BackendPostgres)),
		DatabaseURL:           strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DatabaseMaxConns:      int32(envIntDefault("DATABASE_MAX_CONNS", 20)),
		DynamoBusinessesTable: envDefault("DYNAMODB_BUSINESSES_TABLE", "shopsim_businesses"),
		DynamoOrdersTable:     envDefault("DYNAMODB_ORDERS_TABLE", "shopsim_orders"),
		DynamoOwnersTable:     envDefault("DYNAMODB_OWNERS_TABLE", "shopsim_owners"),
		DynamoEndpoint:        strings.TrimSpace(os.Getenv("DYNAMODB_ENDPOINT")),
		AWSRegion:             envDefault("AWS_REGION", "us-east-1"),
		JWTSecret:             strings.TrimSpace(os.Getenv("JWT_SECRET")),
		SupabaseURL:           strings.TrimRight(strings.TrimSpace(os.Getenv("SUPABASE_URL")), "/"),
		SupabaseAnonKey:       strings.TrimSpace(os.Getenv("SUPABASE_ANON_KEY")),
		EmbeddedSim:           envBoolDefault("SHOPSIM_EMBEDDED_SIM", true),
		SpoolDir:              envDefault("SHOPSIM_SPOOL_DIR", "spool"),
		Seed:                  envIntDefault("SHOPSIM_SEED", 0),
		MarketVolatility:      envVolatilityDefault(),
		Sim:                   loadSimConfig(),
	}

	switch cfg.StoreBackend {
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return cfg, fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
	case BackendDynamo, BackendMemory:
	default:
		return cfg, fmt.Errorf("SHOPSIM_STORE must be postgres, dynamodb or memory, got %q", cfg.StoreBackend)
	}
	if cfg.JWTSecret == "" && cfg.SupabaseURL == "" {
		return cfg, fmt.Errorf("JWT_SECRET or SUPABASE_URL is required")
	}
	if cfg.SupabaseURL != "" && cfg.SupabaseAnonKey == "" {
		return cfg, fmt.Errorf("SUPABASE_ANON_KEY is required with SUPABASE_URL")
	}
	return cfg, nil
}

func loadSimConfig() sim.Config {
	def := sim.DefaultConfig()
	return sim.Config{
		BaseTick:     envDurationDefault("SHOPSIM_TICK_EVERY", def.BaseTick),
		Restock:      envDurationDefault("SHOPSIM_RESTOCK_EVERY", def.Restock),
		Recruitment:  envDurationDefault("SHOPSIM_RECRUITMENT_EVERY", def.Recruitment),
		AutoWork:     envDurationDefault("SHOPSIM_AUTOWORK_EVERY", def.AutoWork),
		Wages:        envDurationDefault("SHOPSIM_WAGES_EVERY", def.Wages),
		Economy:      envDurationDefault("SHOPSIM_ECONOMY_EVERY", def.Economy),
		DailyClose:   envDurationDefault("SHOPSIM_DAILY_CLOSE_EVERY", def.DailyClose),
		Flush:        envDurationDefault("SHOPSIM_FLUSH_EVERY", def.Flush),
		FlushTimeout: envDurationDefault("SHOPSIM_FLUSH_TIMEOUT", def.FlushTimeout),
		MarketTick:   envDurationDefault("SHOPSIM_MARKET_TICK_EVERY", def.MarketTick),
		AutoRestock:  envBoolDefault("SHOPSIM_AUTO_RESTOCK", def.AutoRestock),
	}
}

func LoadCLIFromEnv() CLIConfig {
	loadDotEnv()
	return CLIConfig{
		APIBaseURL: strings.TrimRight(envDefault("ECON_API_BASE_URL", "http://localhost:8080"), "/"),
	}
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func envIntDefault(key string, fallback int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func envBoolDefault(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envVolatilityDefault() string {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("VOLATILITY")))
	if v == "" {
		v = strings.ToLower(strings.TrimSpace(os.Getenv("SHOPSIM_MARKET_VOLATILITY")))
	}
	switch v {
	case "calm", "mor", "wild":
		return v
	default:
		return "mor"
	}
}
