package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/BearBump/ShipGate/config"
	"github.com/BearBump/ShipGate/internal/broker/kafka"
	"github.com/BearBump/ShipGate/internal/cache/rediscache"
	"github.com/BearBump/ShipGate/internal/integrations/carrier"
	"github.com/BearBump/ShipGate/internal/integrations/carrier/carriers"
	"github.com/BearBump/ShipGate/internal/services/poller"
	"github.com/BearBump/ShipGate/internal/storage/pgtracking"
)

type workerFactories struct {
	newStorage     func(ctx context.Context, cfg *config.Config) (repo poller.Repository, closeFn func(), err error)
	newProducer    func(cfg *config.Config) poller.Producer
	newRateLimiter func(cfg *config.Config) poller.RateLimiter
	newTrackers    func(cfg *config.Config) (map[string]carrier.Tracker, error)
}

func defaultWorkerFactories() workerFactories {
	return workerFactories{
		newStorage: func(ctx context.Context, cfg *config.Config) (poller.Repository, func(), error) {
			st, err := pgtracking.New(ctx, cfg.Database.ConnString())
			if err != nil {
				return nil, nil, err
			}
			return st, st.Close, nil
		},
		newProducer: func(cfg *config.Config) poller.Producer {
			return kafka.NewProducer(cfg.Kafka.Brokers())
		},
		newRateLimiter: func(cfg *config.Config) poller.RateLimiter {
			return rediscache.NewRateLimiter(cfg.Redis.Addr())
		},
		newTrackers: func(cfg *config.Config) (map[string]carrier.Tracker, error) {
			fx, err := carriers.NewFedEx(cfg.Carrier, slog.Default())
			if err != nil {
				return nil, err
			}
			return carriers.Trackers(fx), nil
		},
	}
}

func plannerConfig(w config.WorkerConfig) poller.PlannerConfig {
	pc := poller.PlannerConfig{
		InTransitMinDelay: config.Seconds(w.NextCheckInTransitMinSeconds, 0),
		InTransitMaxDelay: config.Seconds(w.NextCheckInTransitMaxSeconds, 0),
		NearDeliveryDelay: config.Seconds(w.NextCheckNearDeliverySeconds, 0),
		AttentionDelay:    config.Seconds(w.NextCheckNeedsAttentionSeconds, 0),
	}
	for _, s := range w.BackoffSeconds {
		pc.Backoff = append(pc.Backoff, config.Seconds(s, 0))
	}
	return pc
}

func newPoller(ctx context.Context, cfg *config.Config, f workerFactories) (*poller.Poller, func(), error) {
	repo, closeFn, err := f.newStorage(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if closeFn == nil {
		closeFn = func() {}
	}

	trackers, err := f.newTrackers(cfg)
	if err != nil {
		closeFn()
		return nil, nil, err
	}

	w := cfg.Worker
	p := poller.New(repo, trackers, f.newProducer(cfg), f.newRateLimiter(cfg), cfg.Kafka.Topic()).
		WithSettings(
			config.Seconds(w.PollIntervalSeconds, 2*time.Second),
			w.BatchSize,
			w.Concurrency,
			config.Seconds(w.LeaseSeconds, 120*time.Second),
			w.RateLimitPerMinute,
		).
		WithCarrierRateLimits(w.CarrierRateLimits).
		WithPlanner(plannerConfig(w)).
		WithTestMode(cfg.Carrier.TestMode)

	return p, closeFn, nil
}

func RunTrackWorker(ctx context.Context, cfg *config.Config, f workerFactories) error {
	p, closeFn, err := newPoller(ctx, cfg, f)
	if err != nil {
		return err
	}
	defer closeFn()

	return p.Run(ctx)
}
