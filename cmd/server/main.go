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
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/zaqqye/intervention_engine/internal/config"
	"github.com/zaqqye/intervention_engine/internal/database"
	"github.com/zaqqye/intervention_engine/internal/lifecycle"
	"github.com/zaqqye/intervention_engine/internal/logging"
	"github.com/zaqqye/intervention_engine/internal/routes"
	"github.com/zaqqye/intervention_engine/internal/store"
	"github.com/zaqqye/intervention_engine/internal/ws"
)

func main() {
	// Load .env (non-fatal if missing in production)
	_ = godotenv.Load()

	cfg := config.Load()

	log, err := logging.New(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(cfg, log)
	if err != nil {
		log.Fatal("store setup failed", zap.Error(err), zap.String("driver", cfg.DBDriver))
	}

	if cfg.SeedDemoStudent {
		if err := database.SeedDemoStudent(ctx, st, log); err != nil {
			log.Fatal("demo student seed failed", zap.Error(err))
		}
	}

	hubs := ws.NewHubs(log)
	go hubs.Run(ctx)

	var publisher lifecycle.Publisher = hubs
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer client.Close()
		bridge := ws.NewRedisBridge(client, cfg.RedisChannel, hubs, log)
		go bridge.Run(ctx)
		publisher = bridge
	}

	machine := lifecycle.NewMachine(st, publisher, log)

	gin.SetMode(gin.ReleaseMode)
	r := routes.NewRouter(routes.Deps{
		Machine:         machine,
		Store:           st,
		Hubs:            hubs,
		Log:             log,
		FrontendURL:     cfg.FrontendURL,
		MentorJWTSecret: cfg.MentorJWTSecret,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("intervention engine listening", zap.String("addr", srv.Addr), zap.String("driver", cfg.DBDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server exited with error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}

func openStore(cfg *config.Config, log *zap.Logger) (store.Store, error) {
	if cfg.DBDriver == "memory" {
		log.Warn("using in-memory store; data is lost on restart")
		return store.NewMemory(cfg.CheckInLogRetention), nil
	}
	db, err := database.Connect(cfg, log)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	return store.NewGorm(db, cfg.StoreTimeout, cfg.CheckInLogRetention), nil
}
