package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"noirbleed_cart/internal/cart"
	"noirbleed_cart/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Les pages sont servies en statique, parfois depuis file://
		return true
	},
}

type cartMessage struct {
	Type string `json:"type"`
	models.CartSummary
}

// CartWebSocket pousse le panier à chaque écriture faite par un autre
// contexte (l'équivalent de l'événement "storage" du navigateur).
func (h *CartHandler) CartWebSocket(c *gin.Context) {
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// S'abonner avant l'upgrade pour pouvoir répondre en HTTP si c'est impossible.
	updates, err := h.store.Subscribe(ctx)
	if errors.Is(err, cart.ErrNotificationsUnsupported) {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "synchronisation indisponible avec ce stockage"})
		return
	}
	if err != nil {
		h.logger.Error("abonnement impossible", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "abonnement impossible"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("upgrade websocket refusé", zap.Error(err))
		return
	}
	defer conn.Close()

	// Lecture uniquement pour détecter la fermeture côté client.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := conn.WriteJSON(cartMessage{Type: "connected", CartSummary: h.store.Snapshot(ctx)}); err != nil {
		return
	}

	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case summary, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(cartMessage{Type: "cart_updated", CartSummary: summary}); err != nil {
				h.logger.Warn("envoi websocket impossible", zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
