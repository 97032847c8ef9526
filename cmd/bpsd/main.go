// bpsd is the headless BPS Energy client daemon. It owns the authenticated
// API client, the charging-session cache and the deep-link router, and
// exposes a local admin surface: /health, /metrics, and POST /deeplink for
// QR scans forwarded by the device shell.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/chapski-dev/bps-energy-mobile-sub000/internal/api"
	"github.com/chapski-dev/bps-energy-mobile-sub000/internal/charging"
	"github.com/chapski-dev/bps-energy-mobile-sub000/internal/config"
	"github.com/chapski-dev/bps-energy-mobile-sub000/internal/deeplink"
	"github.com/chapski-dev/bps-energy-mobile-sub000/internal/kv"
	"github.com/chapski-dev/bps-energy-mobile-sub000/internal/notify"
	"github.com/chapski-dev/bps-energy-mobile-sub000/pkg/logger"
	"github.com/chapski-dev/bps-energy-mobile-sub000/pkg/metrics"
)

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: api=%s redis=%v", cfg.API.BaseURL, cfg.Redis.Host != "")

	store := openStore(cfg)

	transport := api.NewTransport(cfg.API)
	tokens := api.NewTokenStore(store)
	client := api.NewClient(transport, tokens, api.WithLogoutHook(func() {
		logger.Warn("session expired, credentials cleared; sign in again")
	}))

	chargingSvc := charging.New(client, cfg.Charging.PollInterval)
	defer chargingSvc.Close()
	notifySvc := notify.New(client, store)

	router := deeplink.NewRouter(cfg.DeepLink.Scheme, cfg.DeepLink.Hosts,
		deeplink.WithSessionStarter(chargingSvc.StartSession),
		deeplink.WithNavigator(func(link deeplink.Link) {
			logger.Infof("deeplink: navigate %+v", link)
		}),
	)

	// log charging events; a UI shell would subscribe the same way
	events, unsubscribe := chargingSvc.Subscribe()
	defer unsubscribe()
	go func() {
		for ev := range events {
			switch ev.Kind {
			case charging.EventUpdated:
				logger.Infof("charging: %d active session(s)", len(ev.Sessions))
			case charging.EventError:
				logger.Warnf("charging: %s", api.UserMessage(ev.Err))
			}
		}
	}()

	// prime the cache; a failure here is not fatal, the user may simply
	// not be signed in yet
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := chargingSvc.FetchSessions(ctx, ""); err != nil {
		logger.Debugf("initial session fetch: %v", err)
	}
	cancel()

	srv := adminServer(cfg, router, notifySvc)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("admin server: %v", err)
		}
	}()
	logger.Infof("bpsd admin listening on %s", cfg.Admin.Addr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("admin shutdown: %v", err)
	}
}

// openStore connects Redis when configured, otherwise falls back to the
// in-memory store (tokens then do not survive a restart).
func openStore(cfg *config.Config) kv.Store {
	if cfg.Redis.Host == "" {
		logger.Warn("no REDIS_HOST configured, using in-memory store")
		return kv.NewMemory()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warnf("redis unreachable (%s:%s): %v; using in-memory store", cfg.Redis.Host, cfg.Redis.Port, err)
		return kv.NewMemory()
	}
	logger.Infof("connected to redis %s:%s", cfg.Redis.Host, cfg.Redis.Port)
	return kv.NewRedis(client, "bps:")
}

func adminServer(cfg *config.Config, router *deeplink.Router, notifySvc *notify.Service) *http.Server {
	reg := prometheus.NewRegistry()
	metrics.RegisterCollectors(reg)

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	r.POST("/deeplink", func(c *gin.Context) {
		var req struct {
			URL string `json:"url"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || req.URL == "" {
			c.JSON(http.StatusBadRequest, gin.H{"message": "url required"})
			return
		}
		if err := router.Handle(c.Request.Context(), req.URL); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"message": api.UserMessage(err)})
			return
		}
		c.Status(http.StatusNoContent)
	})

	r.POST("/push-token", func(c *gin.Context) {
		var req struct {
			Token string `json:"token"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || req.Token == "" {
			c.JSON(http.StatusBadRequest, gin.H{"message": "token required"})
			return
		}
		if err := notifySvc.RegisterDevice(c.Request.Context(), req.Token); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"message": api.UserMessage(err)})
			return
		}
		c.Status(http.StatusNoContent)
	})

	return &http.Server{
		Addr:         cfg.Admin.Addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}
