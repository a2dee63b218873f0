package app

import (
	"context"
	"fmt"

	"noirbleed_cart/internal/cart"
	"noirbleed_cart/internal/config"
	"noirbleed_cart/internal/middleware"
	"noirbleed_cart/internal/storage"

	"go.uber.org/zap"
)

// OpenBackend ouvre le stockage choisi par CART_BACKEND. La fonction renvoyée
// ferme les connexions éventuelles.
func OpenBackend(ctx context.Context, cfg config.Config, logger *zap.Logger) (storage.Backend, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case config.BackendMemory:
		logger.Warn("stockage en mémoire : le panier sera perdu à l'arrêt")
		return storage.NewMemory(), noop, nil

	case config.BackendFile:
		logger.Info("stockage fichier", zap.String("path", cfg.FilePath))
		return storage.NewFile(cfg.FilePath), noop, nil

	case config.BackendRedis:
		client, err := storage.ConnectRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("connecté à Redis", zap.String("addr", cfg.Redis.Addr))
		r := storage.NewRedis(client,
			storage.WithTTL(cfg.CartTTL),
			storage.WithRedisLogger(logger),
		)
		return r, client.Close, nil
	}

	return nil, nil, fmt.Errorf("backend inconnu: %q", cfg.Backend)
}

func NewStore(cfg config.Config, backend storage.Backend, logger *zap.Logger) *cart.Store {
	return cart.NewStore(backend,
		cart.WithKey(cfg.StorageKey),
		cart.WithRate(cfg.Rate),
		cart.WithLogger(logger),
	)
}

// NewRateCounter partage Redis quand le panier y est stocké, sinon compte en
// mémoire (un seul processus).
func NewRateCounter(backend storage.Backend) middleware.Counter {
	if r, ok := backend.(*storage.Redis); ok {
		return middleware.NewRedisCounter(r.Client())
	}
	return middleware.NewMemoryCounter()
}
