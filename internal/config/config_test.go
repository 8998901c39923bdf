package config

import (
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"PORT", "SHOPSIM_API_ADDR", "SHOPSIM_STORE", "DATABASE_URL", "JWT_SECRET", "SUPABASE_URL", "SUPABASE_ANON_KEY", "SHOPSIM_TICK_EVERY", "VOLATILITY", "SHOPSIM_MARKET_VOLATILITY"} {
		t.Setenv(k, "")
	}
}

func TestLoadAPIValidation(t *testing.T) {
	cases := []struct {
		name    string
		env     map[string]string
		wantErr bool
	}{
		{"postgres needs url", map[string]string{"JWT_SECRET": "s"}, true},
		{"memory with jwt", map[string]string{"SHOPSIM_STORE": "memory", "JWT_SECRET": "s"}, false},
		{"no auth", map[string]string{"SHOPSIM_STORE": "memory"}, true},
		{"supabase without key", map[string]string{"SHOPSIM_STORE": "memory", "SUPABASE_URL": "https://x.supabase.co"}, true},
		{"unknown backend", map[string]string{"SHOPSIM_STORE": "redis", "JWT_SECRET": "s"}, true},
		{"dynamo", map[string]string{"SHOPSIM_STORE": "DynamoDB", "JWT_SECRET": "s"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := LoadAPIFromEnv()
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestLoadAPIDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("SHOPSIM_STORE", "memory")
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("PORT", "9000")
	t.Setenv("SHOPSIM_TICK_EVERY", "250ms")
	t.Setenv("SHOPSIM_WAGES_EVERY", "nonsense")

	cfg, err := LoadAPIFromEnv()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9000" {
		t.Fatalf("addr = %q", cfg.Addr)
	}
	if cfg.Sim.BaseTick != 250*time.Millisecond {
		t.Fatalf("base tick = %s", cfg.Sim.BaseTick)
	}
	if cfg.Sim.Wages != 3*time.Hour {
		t.Fatalf("wages = %s, want default", cfg.Sim.Wages)
	}
	if cfg.MarketVolatility != "mor" {
		t.Fatalf("volatility = %q", cfg.MarketVolatility)
	}
	if cfg.DatabaseMaxConns != 20 {
		t.Fatalf("max conns = %d", cfg.DatabaseMaxConns)
	}
}
