package handlers

import (
	"net/http"
	"time"

	"noirbleed_cart/internal/cart"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CartHandler expose le panier en lecture seule aux scripts de page : les
// écritures restent faites côté page dans le stockage partagé.
type CartHandler struct {
	store        *cart.Store
	logger       *zap.Logger
	pingInterval time.Duration
}

func NewCartHandler(store *cart.Store, logger *zap.Logger) *CartHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartHandler{
		store:        store,
		logger:       logger.Named("cart.handler"),
		pingInterval: 30 * time.Second,
	}
}

// WithPingInterval est utilisé par les tests.
func (h *CartHandler) WithPingInterval(d time.Duration) *CartHandler {
	h.pingInterval = d
	return h
}

// 🟢 GET /api/cart
func (h *CartHandler) GetCart(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Snapshot(c.Request.Context()))
}

// 🟢 GET /api/cart/count
func (h *CartHandler) GetCount(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"count": h.store.GetCartItemCount(c.Request.Context())})
}
