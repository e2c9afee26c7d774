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
	"github.com/jason-s-yu/showtime/internal/auth"
	"github.com/jason-s-yu/showtime/internal/cache"
	"github.com/jason-s-yu/showtime/internal/config"
	"github.com/jason-s-yu/showtime/internal/database"
	"github.com/jason-s-yu/showtime/internal/game"
	"github.com/jason-s-yu/showtime/internal/handlers"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("load config")
	}
	log.SetLevel(cfg.LogLevel)
	log.SetFormatter(&log.JSONFormatter{})

	if err := run(cfg); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := database.Open(ctx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return err
	}
	defer store.Close()
	saver := database.NewSaver(store, database.SaverOptions{
		InitialInterval: cfg.SaveInitialInterval,
		MaxElapsed:      cfg.SaveMaxElapsed,
		Sweep:           cfg.SaveSweep,
	})

	hub := handlers.NewHub(0)
	opts := game.Options{Broadcaster: hub, Persister: saver}
	var profiles *cache.ProfileCache
	if cfg.RedisAddr != "" {
		rdb, err := cache.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return err
		}
		defer rdb.Close()
		opts.Broadcaster = game.Fanout{hub, cache.NewMirror(rdb)}
		opts.Publisher = cache.NewHistorian(rdb)
		profiles = cache.NewProfileCache(rdb, 0)
		log.WithField("addr", cfg.RedisAddr).Info("redis enabled")
	}

	manager := game.NewManager(opts)
	n, err := manager.Restore(ctx, store)
	if err != nil {
		return err
	}
	log.WithField("tables", n).Info("restored persisted tables")

	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	router := gin.New()
	router.Use(gin.Recovery())
	// A nil profile cache answers every lookup with the fallback.
	authHandler := handlers.NewAuthHandler(store, issuer, profiles, cfg.AdminIDs)
	tableHandler := handlers.NewTableHandler(manager, profiles, cfg.TableDefaults())
	handlers.SetupRoutes(router, authHandler, tableHandler, handlers.NewStreamHandler(manager, hub, nil), issuer)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	saverCtx, stopSaver := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithField("addr", srv.Addr).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return saver.Run(saverCtx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		// Countdowns stop before the final save pass so no state changes after it.
		manager.Close()
		stopSaver()
		return err
	})
	return g.Wait()
}
