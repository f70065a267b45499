package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BearBump/ShipGate/config"
	carrierapi "github.com/BearBump/ShipGate/internal/api/carrier_api"
	"github.com/BearBump/ShipGate/internal/broker/kafka"
	"github.com/BearBump/ShipGate/internal/cache/rediscache"
	"github.com/BearBump/ShipGate/internal/integrations/carrier"
	"github.com/BearBump/ShipGate/internal/integrations/carrier/carriers"
	"github.com/BearBump/ShipGate/internal/services/rates"
	"github.com/BearBump/ShipGate/internal/services/trackings"
	"github.com/BearBump/ShipGate/internal/storage/pgtracking"
)

type carrierAPIApp struct {
	ctx      context.Context
	cancel   context.CancelFunc
	opts     carrierAPIOpts
	api      *carrierapi.API
	svc      *trackings.Service
	consumer *kafka.Consumer
	cache    *rediscache.RedisCache
	closeDB  func()
}

func mustBootstrapCarrierAPI() *carrierAPIApp {
	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		panic("configPath env var is required")
	}
	swaggerPath := os.Getenv("swaggerPath")
	if swaggerPath == "" {
		panic("swaggerPath env var is required")
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(fmt.Sprintf("ошибка парсинга конфига, %v", err))
	}

	opts := apiOpts(cfg, swaggerPath)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	st := mustOpenPostgresWithRetry(ctx, cfg.Database.ConnString(), 60*time.Second)
	rc := rediscache.New(cfg.Redis.Addr(), cfg.Redis.Prefix)

	fx := newCarrierClient(cfg.Carrier)

	svc := trackings.New(st, rc, config.Seconds(cfg.API.CurrentStatusTTLSeconds, 10*time.Minute),
		trackings.WithLiveTracker(fx, config.Seconds(cfg.API.TrackingLookupTTLSeconds, 5*time.Minute)),
		trackings.WithLogger(slog.Default()),
	)
	rs := rates.New(fx, rc, config.Seconds(cfg.API.RatesTTLSeconds, 15*time.Minute), slog.Default())

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers(), opts.topic, opts.consumerGroup)

	return &carrierAPIApp{
		ctx:      ctx,
		cancel:   cancel,
		opts:     opts,
		api:      carrierapi.New(rs, svc, slog.Default()),
		svc:      svc,
		consumer: consumer,
		cache:    rc,
		closeDB:  st.Close,
	}
}

func apiOpts(cfg *config.Config, swaggerPath string) carrierAPIOpts {
	grpcAddr := cfg.API.GRPCAddr
	if grpcAddr == "" {
		grpcAddr = ":50051"
	}
	httpAddr := cfg.API.HTTPAddr
	if httpAddr == "" {
		httpAddr = ":8080"
	}
	consumerGroup := cfg.API.KafkaConsumerGroup
	if consumerGroup == "" {
		consumerGroup = "carrier-api"
	}
	return carrierAPIOpts{
		grpcAddr:      grpcAddr,
		httpAddr:      httpAddr,
		grpcDialAddr:  grpcAddr,
		swaggerPath:   swaggerPath,
		topic:         cfg.Kafka.Topic(),
		consumerGroup: consumerGroup,
	}
}

// newCarrierClient не валит старт без ключей FedEx: реестр отправлений
// продолжает работать, а /v1/rates и /v1/tracking отвечают 503.
func newCarrierClient(cfg config.CarrierConfig) carrier.Client {
	fx, err := carriers.NewFedEx(cfg, slog.Default())
	if err != nil {
		slog.Warn("fedex client is not configured", "error", err.Error())
		return carriers.Unavailable(err)
	}
	return fx
}

func mustOpenPostgresWithRetry(ctx context.Context, connString string, wait time.Duration) *pgtracking.Storage {
	deadline := time.Now().Add(wait)
	var lastErr error
	for time.Now().Before(deadline) {
		st, err := pgtracking.New(ctx, connString)
		if err == nil {
			return st
		}
		lastErr = err
		select {
		case <-ctx.Done():
			panic(fmt.Sprintf("postgres wait interrupted: %v", lastErr))
		case <-time.After(1 * time.Second):
		}
	}
	panic(fmt.Sprintf("postgres is not ready after %s: %v", wait, lastErr))
}

func (a *carrierAPIApp) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.consumer != nil {
		_ = a.consumer.Close()
	}
	if a.cache != nil {
		_ = a.cache.Close()
	}
	if a.closeDB != nil {
		a.closeDB()
	}
}

func (a *carrierAPIApp) Run() error {
	return runCarrierAPI(a.ctx, a.opts, a.api, a.svc, a.consumer)
}
