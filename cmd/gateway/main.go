package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cryptopay/internal/api"
	"cryptopay/internal/config"
	"cryptopay/internal/gateway"
	"cryptopay/internal/metrics"
	"cryptopay/internal/secure"
	"cryptopay/internal/store"
	"cryptopay/internal/token"
	"cryptopay/internal/tokencache"
)

func main() {
	cfgPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Store selection: Postgres when DATABASE_URL is set, in-memory otherwise.
	var st store.Store
	if cfg.DatabaseURL != "" {
		pg, err := store.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("failed to open postgres: %v", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := pg.Migrate(ctx); err != nil {
			log.Fatalf("failed to migrate: %v", err)
		}
		cancel()
		st = pg
	} else {
		st = store.NewMemory()
	}

	// Token cache slot: Redis when configured, else in-process.
	var slot tokencache.Slot
	if cfg.RedisURL != "" {
		rs, err := tokencache.NewRedis(cfg.RedisURL, cfg.TokenCacheKey)
		if err != nil {
			log.Fatalf("failed to open redis token cache: %v", err)
		}
		slot = rs
	} else {
		slot = tokencache.NewMemory()
	}

	// Event broker selection mirrors the token cache.
	var broker api.EventBroker
	if cfg.RedisURL != "" {
		if rb, err := api.NewRedisBroker(cfg.RedisURL); err == nil {
			broker = rb
		} else {
			log.Printf("redis broker unavailable, using in-memory: %v", err)
			broker = api.NewBroker()
		}
	} else {
		broker = api.NewBroker()
	}

	key := secure.DeriveKey(cfg.EncryptionSecret)
	tokens := token.NewManager(cfg.AuthURL, cfg.ClientID, cfg.ClientSecret, slot, key)
	keys := secure.NewKeySource(cfg.PublicKeyURL)
	client := gateway.NewClient(cfg.MerchantAPIURL, cfg.ProjectID, tokens, keys)
	client.AcceptedCurrencies = cfg.AcceptedCurrencies

	srv := api.NewServer(cfg, st, client, broker)
	metrics.RegisterDefault()

	mux := http.NewServeMux()

	// Gateway callbacks (public)
	mux.HandleFunc("/callback", srv.CallbackHandler)
	mux.HandleFunc("/cancel", srv.CancelHandler)

	// Host platform API
	mux.HandleFunc("/v1/orders", srv.OrdersHandler)
	mux.HandleFunc("/v1/orders/", srv.OrderStateHandler)
	mux.HandleFunc("/v1/orders/events/ws", srv.EventsWSHandler)

	// Admin
	mux.HandleFunc("/v1/admin/callbacks", srv.CallbackLogHandler)

	// Health
	mux.HandleFunc("/healthz", srv.HealthHandler)
	mux.HandleFunc("/readyz", srv.ReadyHandler)

	// Metrics
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	httpSrv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           logMiddleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	worker := srv.NewNotificationWorker()
	worker.Start()

	log.Printf("gateway client listening on %s (env %s)", cfg.Listen, cfg.Environment)
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		dur := time.Since(start)
		log.Printf("%s %s %s %v", r.RemoteAddr, r.Method, r.URL.Path, dur)
	})
}
