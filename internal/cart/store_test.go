package cart_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"noirbleed_cart/internal/cart"
	mock "noirbleed_cart/internal/mock/storage"
	"noirbleed_cart/internal/models"
	"noirbleed_cart/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func hoodie(color, size string, qty int) models.Product {
	return models.Product{
		ID:       models.IntID(4),
		Name:     "Noir Hoodie",
		Price:    "PKR 10,000",
		Image:    "images/product4men.jpg",
		Color:    color,
		Size:     size,
		Quantity: qty,
	}
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("line-%d", n)
	}
}

func newTestStore(backend storage.Backend) *cart.Store {
	return cart.NewStore(backend, cart.WithIDGenerator(sequentialIDs()))
}

func TestStore_GetCart(t *testing.T) {
	ctx := context.Background()

	t.Run("empty_when_absent", func(t *testing.T) {
		s := newTestStore(storage.NewMemory())
		lines := s.GetCart(ctx)
		assert.NotNil(t, lines)
		assert.Empty(t, lines)
	})

	t.Run("empty_when_not_json", func(t *testing.T) {
		mem := storage.NewMemory()
		require.NoError(t, mem.Set(ctx, cart.DefaultKey, "{not json"))

		assert.Empty(t, newTestStore(mem).GetCart(ctx))
	})

	t.Run("empty_when_not_an_array", func(t *testing.T) {
		mem := storage.NewMemory()
		for _, blob := range []string{`{"id":1}`, `null`, `42`, `"cart"`} {
			require.NoError(t, mem.Set(ctx, cart.DefaultKey, blob))
			assert.Empty(t, newTestStore(mem).GetCart(ctx), blob)
		}
	})

	t.Run("empty_when_backend_fails", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		backend := mock.NewMockBackend(ctrl)
		backend.EXPECT().Get(ctx, cart.DefaultKey).Return("", errors.New("storage unavailable"))

		assert.Empty(t, newTestStore(backend).GetCart(ctx))
	})

	t.Run("reads_legacy_cart_id", func(t *testing.T) {
		mem := storage.NewMemory()
		blob := `[{"id":999,"name":"Test Product","price":"PKR 1,000","image":"product1men.jpg","color":"black","size":"M","quantity":1,"cartId":"test_1700000000000"}]`
		require.NoError(t, mem.Set(ctx, cart.DefaultKey, blob))

		lines := newTestStore(mem).GetCart(ctx)
		require.Len(t, lines, 1)
		assert.Equal(t, "test_1700000000000", lines[0].CartLineID)
		assert.Contains(t, lines[0].Extra, "cartId")
	})
}

func TestStore_SaveCart(t *testing.T) {
	ctx := context.Background()

	t.Run("round_trip", func(t *testing.T) {
		s := newTestStore(storage.NewMemory())
		lines := []models.CartLine{
			{ID: models.IntID(1), Name: "A", Price: "PKR 1,000", Image: "a.jpg", Color: "black", Size: "M", Quantity: 2, CartLineID: "x1"},
			{ID: models.StringID("sku-2"), Name: "B", Price: "PKR 2,500", Image: "b.jpg", Color: "white", Size: "L", Quantity: 1, CartLineID: "x2",
				Extra: map[string]json.RawMessage{"cartId": json.RawMessage(`"legacy"`)}},
		}

		require.True(t, s.SaveCart(ctx, lines))
		assert.Equal(t, lines, s.GetCart(ctx))
	})

	t.Run("rejects_nil", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		backend := mock.NewMockBackend(ctrl)

		assert.False(t, newTestStore(backend).SaveCart(ctx, nil))
	})

	t.Run("false_on_quota_exceeded", func(t *testing.T) {
		s := newTestStore(storage.NewMemory(storage.WithQuota(32)))
		lines := []models.CartLine{{ID: models.IntID(1), Name: "A long enough name to blow the quota", Quantity: 1, CartLineID: "x"}}

		assert.False(t, s.SaveCart(ctx, lines))
	})

	t.Run("false_on_backend_error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		backend := mock.NewMockBackend(ctrl)
		backend.EXPECT().Set(ctx, cart.DefaultKey, "[]").Return(storage.ErrQuotaExceeded)

		assert.False(t, newTestStore(backend).SaveCart(ctx, []models.CartLine{}))
	})
}

func TestStore_AddToCart(t *testing.T) {
	ctx := context.Background()

	t.Run("merges_same_selection", func(t *testing.T) {
		s := newTestStore(storage.NewMemory())
		s.AddToCart(ctx, hoodie("black", "M", 1))
		lines := s.AddToCart(ctx, hoodie("black", "M", 2))

		require.Len(t, lines, 1)
		assert.Equal(t, 3, lines[0].Quantity)
		assert.Equal(t, "line-1", lines[0].CartLineID)
		assert.Equal(t, lines, s.GetCart(ctx))
	})

	t.Run("separates_by_id_color_size", func(t *testing.T) {
		s := newTestStore(storage.NewMemory())
		base := hoodie("black", "M", 1)
		otherID := base
		otherID.ID = models.IntID(5)
		sameDigitsAsString := base
		sameDigitsAsString.ID = models.StringID("4")

		s.AddToCart(ctx, base)
		s.AddToCart(ctx, otherID)
		s.AddToCart(ctx, sameDigitsAsString)
		s.AddToCart(ctx, hoodie("white", "M", 1))
		lines := s.AddToCart(ctx, hoodie("black", "L", 1))

		require.Len(t, lines, 5)
		seen := map[string]bool{}
		for _, l := range lines {
			assert.False(t, seen[l.CartLineID], "duplicate cartLineId %s", l.CartLineID)
			seen[l.CartLineID] = true
		}
	})

	t.Run("keeps_insertion_order", func(t *testing.T) {
		s := newTestStore(storage.NewMemory())
		s.AddToCart(ctx, hoodie("black", "S", 1))
		s.AddToCart(ctx, hoodie("black", "M", 1))
		lines := s.AddToCart(ctx, hoodie("black", "S", 1))

		require.Len(t, lines, 2)
		assert.Equal(t, "S", lines[0].Size)
		assert.Equal(t, 2, lines[0].Quantity)
		assert.Equal(t, "M", lines[1].Size)
	})

	t.Run("regenerates_colliding_line_id", func(t *testing.T) {
		ids := []string{"dup", "dup", "fresh"}
		s := cart.NewStore(storage.NewMemory(), cart.WithIDGenerator(func() string {
			id := ids[0]
			ids = ids[1:]
			return id
		}))

		s.AddToCart(ctx, hoodie("black", "M", 1))
		lines := s.AddToCart(ctx, hoodie("white", "M", 1))

		require.Len(t, lines, 2)
		assert.Equal(t, "dup", lines[0].CartLineID)
		assert.Equal(t, "fresh", lines[1].CartLineID)
	})

	t.Run("preserves_caller_extras", func(t *testing.T) {
		s := newTestStore(storage.NewMemory())
		p := hoodie("black", "M", 1)
		p.Extra = map[string]json.RawMessage{"cartId": json.RawMessage(`"test_1"`)}

		lines := s.AddToCart(ctx, p)
		require.Len(t, lines, 1)
		assert.Equal(t, "line-1", lines[0].CartLineID)
		assert.JSONEq(t, `"test_1"`, string(s.GetCart(ctx)[0].Extra["cartId"]))
	})

	t.Run("returns_lines_even_when_save_fails", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		backend := mock.NewMockBackend(ctrl)
		backend.EXPECT().Get(ctx, cart.DefaultKey).Return("", storage.ErrNotFound)
		backend.EXPECT().Set(ctx, cart.DefaultKey, gomock.Any()).Return(storage.ErrQuotaExceeded)

		lines := newTestStore(backend).AddToCart(ctx, hoodie("black", "M", 1))
		assert.Len(t, lines, 1)
	})
}

func TestStore_AddValidated(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(storage.NewMemory())

	_, err := s.AddValidated(ctx, hoodie("", "M", 1))
	require.Error(t, err)
	assert.True(t, cart.IsValidationError(err))
	assert.Equal(t, 0, s.GetCartItemCount(ctx))

	lines, err := s.AddValidated(ctx, hoodie("black", "M", 1))
	require.NoError(t, err)
	assert.Len(t, lines, 1)
}

func TestStore_RemoveFromCart(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(storage.NewMemory())
	s.AddToCart(ctx, hoodie("black", "M", 1))
	s.AddToCart(ctx, hoodie("white", "M", 1))

	first := s.RemoveFromCart(ctx, "line-1")
	second := s.RemoveFromCart(ctx, "line-1")

	require.Len(t, first, 1)
	assert.Equal(t, "line-2", first[0].CartLineID)
	assert.Equal(t, first, second)

	t.Run("unknown_id_is_noop", func(t *testing.T) {
		assert.Equal(t, first, s.RemoveFromCart(ctx, "nope"))
	})
}

func TestStore_UpdateQuantity(t *testing.T) {
	ctx := context.Background()

	setup := func() *cart.Store {
		s := newTestStore(storage.NewMemory())
		s.AddToCart(ctx, hoodie("black", "M", 1))
		s.AddToCart(ctx, hoodie("white", "M", 1))
		return s
	}

	t.Run("replaces_quantity", func(t *testing.T) {
		s := setup()
		lines := s.UpdateQuantity(ctx, "line-2", 7)

		require.Len(t, lines, 2)
		assert.Equal(t, 1, lines[0].Quantity)
		assert.Equal(t, 7, lines[1].Quantity)
		assert.Equal(t, lines, s.GetCart(ctx))
	})

	t.Run("below_one_removes", func(t *testing.T) {
		for _, qty := range []int{0, -5} {
			s := setup()
			removed := setup().RemoveFromCart(ctx, "line-1")
			assert.Equal(t, removed, s.UpdateQuantity(ctx, "line-1", qty))
		}
	})

	t.Run("unknown_id_is_noop", func(t *testing.T) {
		s := setup()
		before := s.GetCart(ctx)
		assert.Equal(t, before, s.UpdateQuantity(ctx, "nope", 3))
	})
}

func TestStore_ClearCart(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	s := newTestStore(mem)
	s.AddToCart(ctx, hoodie("black", "M", 1))

	s.ClearCart(ctx)

	assert.Empty(t, s.GetCart(ctx))
	_, err := mem.Get(ctx, cart.DefaultKey)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_GetCartItemCount(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(storage.NewMemory())
	assert.Equal(t, 0, s.GetCartItemCount(ctx))

	s.AddToCart(ctx, hoodie("black", "S", 2))
	s.AddToCart(ctx, hoodie("black", "M", 1))
	s.AddToCart(ctx, hoodie("black", "L", 3))

	assert.Equal(t, 6, s.GetCartItemCount(ctx))
}

func TestStore_CustomKey(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	s := cart.NewStore(mem, cart.WithKey("otherCart"))
	s.AddToCart(ctx, hoodie("black", "M", 1))

	_, err := mem.Get(ctx, "otherCart")
	assert.NoError(t, err)
	_, err = mem.Get(ctx, cart.DefaultKey)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_Snapshot(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(storage.NewMemory())
	s.AddToCart(ctx, hoodie("black", "M", 2))

	summary := s.Snapshot(ctx)
	assert.Equal(t, 2, summary.Count)
	assert.Len(t, summary.Items, 1)
	assert.Equal(t, "87.75", summary.Totals.Total)
}

func TestStore_AddToCart_IgnoresCallerLineID(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	s := newTestStore(mem)

	for _, raw := range []string{
		`{"id":1,"name":"Tee","price":"PKR 1,000","image":"a.jpg","color":"black","size":"M","quantity":1,"cartLineId":"dup","cartId":"page_1"}`,
		`{"id":2,"name":"Cap","price":"PKR 500","image":"b.jpg","color":"black","size":"M","quantity":1,"cartLineId":"dup"}`,
	} {
		var p models.Product
		require.NoError(t, json.Unmarshal([]byte(raw), &p))
		s.AddToCart(ctx, p)
	}

	stored, err := mem.Get(ctx, cart.DefaultKey)
	require.NoError(t, err)
	assert.NotContains(t, stored, `"dup"`)

	lines := s.GetCart(ctx)
	require.Len(t, lines, 2)
	assert.Equal(t, "line-1", lines[0].CartLineID)
	assert.Equal(t, "line-2", lines[1].CartLineID)
	assert.Contains(t, lines[0].Extra, "cartId")

	// Le round-trip est stable.
	require.True(t, s.SaveCart(ctx, lines))
	assert.Equal(t, lines, s.GetCart(ctx))

	assert.Len(t, s.RemoveFromCart(ctx, "line-1"), 1)
}
