package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	APIBaseURL     string
	RoutesFile     string
	StorefrontAddr string
	TokenBackend   string
	SQLitePath     string
	RedisAddr      string
	RedisNamespace string
	ReceiptsDSN    string
	// Zero means no client-side deadline; the transport default applies.
	HTTPTimeout time.Duration
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func Load() Config {
	_ = godotenv.Load() // load .env if it exists
	cfg := Config{
		APIBaseURL:     getenv("SHOP_API_BASE_URL", "http://127.0.0.1:8000/api/shop"),
		RoutesFile:     getenv("SHOP_ROUTES_FILE", ""),
		StorefrontAddr: getenv("STOREFRONT_ADDR", ":8090"),
		TokenBackend:   getenv("TOKEN_BACKEND", "sqlite"),
		SQLitePath:     getenv("TOKEN_SQLITE_PATH", "./storefront.db"),
		RedisAddr:      getenv("REDIS_ADDR", "localhost:6379"),
		RedisNamespace: getenv("REDIS_NAMESPACE", "storefront:session"),
		ReceiptsDSN:    getenv("RECEIPTS_POSTGRES_DSN", ""),
	}
	if raw := getenv("SHOP_HTTP_TIMEOUT", ""); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			log.Printf("[config] ignoring SHOP_HTTP_TIMEOUT=%q: %v", raw, err)
		} else {
			cfg.HTTPTimeout = d
		}
	}
	log.Printf("[config] SHOP_API_BASE_URL=%s", cfg.APIBaseURL)
	log.Printf("[config] STOREFRONT_ADDR=%s", cfg.StorefrontAddr)
	log.Printf("[config] TOKEN_BACKEND=%s", cfg.TokenBackend)
	return cfg
}
