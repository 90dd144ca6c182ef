package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appcfg "github.com/tabla-live/tabla-server/internal/config"
	"github.com/tabla-live/tabla-server/internal/events"
	"github.com/tabla-live/tabla-server/internal/game"
	"github.com/tabla-live/tabla-server/internal/httpapi"
	"github.com/tabla-live/tabla-server/internal/msgcat"
	"github.com/tabla-live/tabla-server/internal/obslog"
	"github.com/tabla-live/tabla-server/internal/rng"
	"github.com/tabla-live/tabla-server/internal/tournament"
	"github.com/tabla-live/tabla-server/internal/ws"
)

func main() {
	_ = godotenv.Load()

	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	var seeds rng.Provider
	if cfg.BeaconURL != "" {
		seeds = rng.NewBeaconClient(cfg.BeaconURL, rng.WithTimeout(5*time.Second), rng.WithRetry(2))
		obslog.L().Info("randomness beacon enabled", zap.String("url", cfg.BeaconURL))
	} else {
		seeds = rng.NewLocal()
		obslog.L().Warn("using local randomness; configure BEACON_URL for staked play")
	}

	games, err := game.NewManager(cfg.RedisURL, seeds, cfg.PlatformAccount, time.Duration(cfg.GameTTLSec)*time.Second)
	if err != nil {
		log.Fatalf("game manager init error: %v", err)
	}
	defer games.Close()
	games.SetStakeLimit(cfg.MaxStake)

	if cfg.DatabaseURL != "" {
		repo, rerr := game.NewRepository(cfg.DatabaseURL)
		if rerr != nil {
			log.Fatalf("archive repo init error: %v", rerr)
		}
		defer repo.Close()
		if merr := repo.Migrate(context.Background()); merr != nil {
			log.Fatalf("archive migrate error: %v", merr)
		}
		games.AttachRepository(repo)
	}

	var producer *events.Producer
	if cfg.KafkaEnabled {
		p, perr := events.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		if perr != nil {
			log.Fatalf("kafka producer init error: %v", perr)
		}
		defer p.Close()
		producer = p
		games.AttachProducer(producer)
	}

	hub := ws.NewHub()
	games.AttachNotifier(hub)

	cat, err := msgcat.New(cfg.MessageDir)
	if err != nil {
		log.Fatalf("message catalog error: %v", err)
	}

	rdb, err := newRedisClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis client error: %v", err)
	}
	defer rdb.Close()
	tournaments := tournament.NewManager(rdb, time.Duration(cfg.GameTTLSec)*time.Second)
	tournaments.AttachProducer(producer)

	handler := httpapi.NewHandler(games, tournaments, hub, cat, func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		obslog.L().Info("listening", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			obslog.L().Fatal("server stopped", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	obslog.L().Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	_ = hub.Close(ctx)
}

func newRedisClient(rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}
