package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"noirbleed_cart/internal/config"
	"noirbleed_cart/internal/middleware"
	"noirbleed_cart/internal/models"
	"noirbleed_cart/internal/storage"

	"github.com/alicebob/miniredis/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func product() models.Product {
	return models.Product{
		ID: models.IntID(1), Name: "Tee", Price: "PKR 1,000", Image: "tee.jpg",
		Color: "black", Size: "M", Quantity: 1,
	}
}

func TestOpenBackend_Memory(t *testing.T) {
	b, closeFn, err := OpenBackend(context.Background(), config.Config{Backend: config.BackendMemory}, zap.NewNop())
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &storage.Memory{}, b)
}

func TestOpenBackend_File(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.json")
	cfg := config.Config{Backend: config.BackendFile, FilePath: path, StorageKey: "k", Rate: decimal.RequireFromString("0.01")}

	b, closeFn, err := OpenBackend(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	defer closeFn()

	store := NewStore(cfg, b, zap.NewNop())
	assert.Equal(t, "k", store.Key())
	store.AddToCart(ctx, product())

	// Une seconde ouverture relit le même fichier.
	b2, _, err := OpenBackend(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	again := NewStore(cfg, b2, zap.NewNop())
	assert.Equal(t, 1, again.GetCartItemCount(ctx))
	assert.Equal(t, "10.00", again.CalculateTotals(again.GetCart(ctx)).Subtotal)
}

func TestOpenBackend_Redis(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	cfg := config.Config{
		Backend:    config.BackendRedis,
		StorageKey: "noirBleedCart",
		Rate:       decimal.RequireFromString("0.0036"),
		Redis:      storage.RedisConfig{Addr: mr.Addr()},
		CartTTL:    time.Hour,
	}

	b, closeFn, err := OpenBackend(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	defer closeFn()

	NewStore(cfg, b, zap.NewNop()).AddToCart(ctx, product())
	assert.True(t, mr.Exists("noirBleedCart"))
	assert.Equal(t, time.Hour, mr.TTL("noirBleedCart"))
}

func TestOpenBackend_RedisUnreachable(t *testing.T) {
	cfg := config.Config{Backend: config.BackendRedis}
	_, _, err := OpenBackend(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestOpenBackend_Unknown(t *testing.T) {
	_, _, err := OpenBackend(context.Background(), config.Config{Backend: "s3"}, zap.NewNop())
	assert.ErrorContains(t, err, "backend inconnu")
}

func TestNewRateCounter(t *testing.T) {
	assert.IsType(t, &middleware.MemoryCounter{}, NewRateCounter(storage.NewMemory()))

	mr := miniredis.RunT(t)
	client, err := storage.ConnectRedis(context.Background(), storage.RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	defer client.Close()
	assert.IsType(t, &middleware.RedisCounter{}, NewRateCounter(storage.NewRedis(client)))
}
