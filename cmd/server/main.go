package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jack/shortlink-analytics/internal/codegen"
	"github.com/jack/shortlink-analytics/internal/config"
	"github.com/jack/shortlink-analytics/internal/geo"
	"github.com/jack/shortlink-analytics/internal/handler"
	"github.com/jack/shortlink-analytics/internal/middleware"
	"github.com/jack/shortlink-analytics/internal/repository"
	"github.com/jack/shortlink-analytics/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	store, err := repository.Open(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.Store.Driver, err)
	}
	defer store.Close()
	log.Printf("Using %s store", cfg.Store.Driver)

	checks := map[string]handler.HealthCheck{
		"store": store.Health,
	}

	var cache service.MappingCache
	var redisRepo *repository.RedisRepository
	if cfg.Redis.Enabled {
		redisRepo, err = repository.NewRedisRepository(&cfg.Redis)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisRepo.Close()
		log.Println("Connected to Redis")

		cache = redisRepo
		checks["redis"] = redisRepo.Health
	}

	locator, err := geo.New(&cfg.Geo)
	if err != nil {
		log.Fatalf("Failed to set up geo lookup: %v", err)
	}
	if closer, ok := locator.(io.Closer); ok {
		defer closer.Close()
	}
	if redisRepo != nil && cfg.Geo.Provider != config.GeoProviderNone {
		locator = geo.NewCached(locator, redisRepo, cfg.Geo.CacheTTL)
	}
	log.Printf("Geo lookup: %s", cfg.Geo.Provider)

	generator, err := codegen.NewGenerator(cfg.URL.ShortCodeLength)
	if err != nil {
		log.Fatalf("Failed to create code generator: %v", err)
	}

	allocator := service.NewAllocator(store, generator, time.Now, cfg.URL.DefaultValidityMinutes, cfg.URL.MaxAllocationAttempts)
	resolver := service.NewResolver(store, cache, locator, time.Now)
	stats := service.NewStatsProjector(store, time.Now)

	h := handler.NewHandler(allocator, resolver, stats, cfg.App.BaseURL, checks)

	router := gin.New()

	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Printf("panic recovered: path=%s err=%v", c.Request.URL.Path, recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Internal server error",
		})
	}))
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORS(cfg.CORS.AllowedOrigins))

	// Behind Nginx or another proxy, only these sources may set X-Forwarded-For.
	if err := router.SetTrustedProxies([]string{"127.0.0.1", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"}); err != nil {
		log.Fatalf("Failed to set trusted proxies: %v", err)
	}

	mountDocs(router, &cfg.Docs)
	h.RegisterRoutes(router)

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.App.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		return
	}

	log.Println("Server exited properly")
}
