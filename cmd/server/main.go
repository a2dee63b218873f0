package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"noirbleed_cart/internal/app"
	"noirbleed_cart/internal/config"
	"noirbleed_cart/internal/handlers"
	"noirbleed_cart/internal/logger"
	"noirbleed_cart/internal/middleware"
	"noirbleed_cart/internal/routes"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Configuration invalide : %v", err)
	}

	l, err := logger.New(cfg.Debug)
	if err != nil {
		log.Fatalf("❌ Logger : %v", err)
	}
	defer l.Sync()

	if !cfg.EnvFileLoaded {
		l.Warn("aucun fichier .env trouvé, on continue avec les variables d'environnement du système")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, closeBackend, err := app.OpenBackend(ctx, cfg, l)
	if err != nil {
		l.Fatal("ouverture du stockage impossible", zap.Error(err))
	}
	defer closeBackend()

	store := app.NewStore(cfg, backend, l)

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	routes.RegisterRoutes(r, handlers.NewCartHandler(store, l),
		middleware.APIRateLimit(app.NewRateCounter(backend), middleware.APIMaxRequests, middleware.APIWindow, l),
	)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		l.Info("🚀 passerelle panier lancée", zap.String("port", cfg.Port), zap.String("backend", cfg.Backend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatal("serveur arrêté", zap.Error(err))
		}
	}()

	<-ctx.Done()
	l.Info("arrêt en cours")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Error("arrêt forcé", zap.Error(err))
	}
}
