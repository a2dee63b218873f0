package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"noirbleed_cart/internal/cart"
	"noirbleed_cart/internal/storage"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

type Config struct {
	StorageKey string
	Rate       decimal.Decimal
	Backend    string
	FilePath   string
	Redis      storage.RedisConfig
	CartTTL    time.Duration
	Port       string
	Debug      bool

	// EnvFileLoaded vaut false si aucun .env n'a été trouvé.
	EnvFileLoaded bool
}

// Load charge .env (facultatif) puis lit les variables d'environnement. Un
// fichier absent n'est pas une erreur, un fichier mal formé si.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	loaded := true
	if err := godotenv.Load(files...); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("fichier .env illisible: %w", err)
		}
		loaded = false
	}

	cfg, err := FromEnv()
	cfg.EnvFileLoaded = loaded
	return cfg, err
}

func FromEnv() (Config, error) {
	cfg := Config{
		StorageKey: getenv("CART_STORAGE_KEY", cart.DefaultKey),
		Rate:       cart.DefaultRate,
		Backend:    getenv("CART_BACKEND", BackendFile),
		FilePath:   getenv("CART_FILE_PATH", "noirbleed-storage.json"),
		Redis: storage.RedisConfig{
			Addr:     os.Getenv("REDIS_HOST"),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
		CartTTL: 30 * 24 * time.Hour,
		Port:    getenv("PORT", "8080"),
	}

	if v := os.Getenv("CART_PKR_TO_USD_RATE"); v != "" {
		rate, err := decimal.NewFromString(v)
		if err != nil || !rate.IsPositive() {
			return cfg, fmt.Errorf("CART_PKR_TO_USD_RATE invalide: %q", v)
		}
		cfg.Rate = rate
	}

	if v := os.Getenv("REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("REDIS_DB invalide: %q", v)
		}
		cfg.Redis.DB = db
	}

	if v := os.Getenv("CART_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("CART_TTL invalide: %q", v)
		}
		cfg.CartTTL = ttl
	}

	if v := os.Getenv("CART_DEBUG"); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("CART_DEBUG invalide: %q", v)
		}
		cfg.Debug = debug
	}

	switch cfg.Backend {
	case BackendMemory, BackendFile, BackendRedis:
	default:
		return cfg, fmt.Errorf("CART_BACKEND inconnu: %q", cfg.Backend)
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
