package poller

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/BearBump/ShipGate/internal/broker/messages"
	"github.com/BearBump/ShipGate/internal/integrations/carrier"
	"github.com/BearBump/ShipGate/internal/metrics"
	"github.com/BearBump/ShipGate/internal/models"
)

type Repository interface {
	ClaimDueShipments(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]*models.Shipment, error)
}

type Producer interface {
	PublishJSON(ctx context.Context, topic, messageType string, key []byte, v any) error
}

type RateLimiter interface {
	Allow(ctx context.Context, scope string, limit int64, window time.Duration, now time.Time) (bool, int64, error)
}

const (
	publishAttempts = 10
	rateWindow      = time.Minute
)

var errUnsupportedCarrier = errors.New("unsupported carrier")

type Poller struct {
	repo     Repository
	trackers map[string]carrier.Tracker
	producer Producer
	rl       RateLimiter

	topic    string
	testMode bool

	planner *Planner
	logger  *slog.Logger
	now     func() time.Time

	pollInterval       time.Duration
	batchSize          int
	concurrency        int
	lease              time.Duration
	rateLimitPerMinute int64
	carrierLimits      map[string]int64

	triggerCh chan struct{}

	startedAtUnixNano   int64
	lastCycleUnixNano   atomic.Int64
	lastTriggerUnixNano atomic.Int64
	totalClaimed        atomic.Int64
	totalProcessed      atomic.Int64
	totalErrors         atomic.Int64
	totalDeferred       atomic.Int64
	inFlight            atomic.Int64
	lastErrorMu         sync.Mutex
	lastError           string
}

// New builds a poller. trackers maps a carrier code to its tracking client.
func New(repo Repository, trackers map[string]carrier.Tracker, producer Producer, rl RateLimiter, topic string) *Poller {
	return &Poller{
		repo: repo, trackers: trackers, producer: producer, rl: rl, topic: topic,
		planner:            NewPlanner(DefaultPlannerConfig(), nil),
		logger:             slog.Default().With("component", "poller"),
		now:                func() time.Time { return time.Now().UTC() },
		pollInterval:       2 * time.Second,
		batchSize:          100,
		concurrency:        10,
		lease:              120 * time.Second,
		rateLimitPerMinute: 120,
		carrierLimits:      map[string]int64{},
		triggerCh:          make(chan struct{}, 1),
		startedAtUnixNano:  time.Now().UTC().UnixNano(),
	}
}

func (p *Poller) WithSettings(pollInterval time.Duration, batchSize, concurrency int, lease time.Duration, rlPerMin int64) *Poller {
	if pollInterval > 0 {
		p.pollInterval = pollInterval
	}
	if batchSize > 0 {
		p.batchSize = batchSize
	}
	if concurrency > 0 {
		p.concurrency = concurrency
	}
	if lease > 0 {
		p.lease = lease
	}
	if rlPerMin > 0 {
		p.rateLimitPerMinute = rlPerMin
	}
	return p
}

func (p *Poller) WithPlanner(cfg PlannerConfig) *Poller {
	p.planner = NewPlanner(cfg, nil)
	return p
}

// WithCarrierRateLimits overrides the default per-minute limit for single carriers.
func (p *Poller) WithCarrierRateLimits(perMinute map[string]int64) *Poller {
	for code, n := range perMinute {
		if n > 0 {
			p.carrierLimits[code] = n
		}
	}
	return p
}

// WithTestMode sends carrier requests to the test endpoint.
func (p *Poller) WithTestMode(test bool) *Poller {
	p.testMode = test
	return p
}

func (p *Poller) WithLogger(l *slog.Logger) *Poller {
	p.logger = l.With("component", "poller")
	return p
}

// Trigger forces an immediate poll cycle (best-effort, non-blocking).
func (p *Poller) Trigger() {
	p.lastTriggerUnixNano.Store(time.Now().UTC().UnixNano())
	select {
	case p.triggerCh <- struct{}{}:
	default:
	}
}

type Stats struct {
	StartedAt      time.Time  `json:"startedAt"`
	LastCycleAt    *time.Time `json:"lastCycleAt,omitempty"`
	LastTriggerAt  *time.Time `json:"lastTriggerAt,omitempty"`
	TotalClaimed   int64      `json:"totalClaimed"`
	TotalProcessed int64      `json:"totalProcessed"`
	TotalErrors    int64      `json:"totalErrors"`
	TotalDeferred  int64      `json:"totalDeferred"`
	InFlight       int64      `json:"inFlight"`
	LastError      string     `json:"lastError,omitempty"`
}

func (p *Poller) Stats() Stats {
	st := Stats{
		StartedAt:      time.Unix(0, p.startedAtUnixNano).UTC(),
		TotalClaimed:   p.totalClaimed.Load(),
		TotalProcessed: p.totalProcessed.Load(),
		TotalErrors:    p.totalErrors.Load(),
		TotalDeferred:  p.totalDeferred.Load(),
		InFlight:       p.inFlight.Load(),
	}
	if n := p.lastCycleUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastCycleAt = &t
	}
	if n := p.lastTriggerUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastTriggerAt = &t
	}
	p.lastErrorMu.Lock()
	st.LastError = p.lastError
	p.lastErrorMu.Unlock()
	return st
}

func (p *Poller) Run(ctx context.Context) error {
	t := time.NewTicker(p.pollInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			p.runOnce(ctx)
		case <-p.triggerCh:
			p.runOnce(ctx)
		}
	}
}

func (p *Poller) setLastError(err error) {
	p.lastErrorMu.Lock()
	p.lastError = err.Error()
	p.lastErrorMu.Unlock()
}

func (p *Poller) runOnce(ctx context.Context) {
	now := p.now()
	p.lastCycleUnixNano.Store(now.UnixNano())

	items, err := p.repo.ClaimDueShipments(ctx, now, p.batchSize, p.lease)
	if err != nil {
		p.logger.Error("claim due shipments", "error", err.Error())
		p.setLastError(err)
		return
	}
	p.totalClaimed.Add(int64(len(items)))

	sem := make(chan struct{}, p.concurrency)
	var wg sync.WaitGroup
	for _, sh := range items {
		sem <- struct{}{}
		wg.Add(1)
		p.inFlight.Add(1)
		go func() {
			defer func() {
				p.inFlight.Add(-1)
				<-sem
				wg.Done()
			}()
			if err := p.processOne(ctx, sh); err != nil {
				p.totalErrors.Add(1)
				p.setLastError(err)
				p.logger.Error("process shipment", "shipment_id", sh.ID, "error", err.Error())
			}
			p.totalProcessed.Add(1)
		}()
	}
	wg.Wait()
}

func (p *Poller) limitFor(carrierCode string) int64 {
	if n, ok := p.carrierLimits[carrierCode]; ok {
		return n
	}
	return p.rateLimitPerMinute
}

func (p *Poller) processOne(ctx context.Context, sh *models.Shipment) error {
	now := p.now()

	if p.rl != nil {
		if limit := p.limitFor(sh.CarrierCode); limit > 0 {
			allowed, n, err := p.rl.Allow(ctx, "carrier:"+sh.CarrierCode, limit, rateWindow, now)
			if err != nil {
				return err
			}
			if !allowed {
				// Лимит исчерпан: отправление вернётся в выборку после истечения lease.
				p.totalDeferred.Add(1)
				metrics.PollerChecksTotal.WithLabelValues("deferred").Inc()
				p.logger.Warn("rate limit exceeded", "carrier", sh.CarrierCode, "count", n)
				return nil
			}
		}
	}

	msg := messages.TrackingUpdated{
		ShipmentID:     sh.ID,
		CarrierCode:    sh.CarrierCode,
		TrackingNumber: sh.TrackingNumber,
		CheckedAt:      now,
	}

	rec, err := p.check(ctx, sh)
	if err != nil {
		metrics.PollerChecksTotal.WithLabelValues("failed").Inc()
		e := err.Error()
		msg.Error = &e
		msg.NextCheckAt = now.Add(p.planner.BackoffDelay(sh.CheckFailCount + 1))
	} else {
		metrics.PollerChecksTotal.WithLabelValues("ok").Inc()
		status := rec.Status
		if status == "" {
			status = models.TrackingStatusUnknown
		}
		msg.Status = string(status)
		msg.StatusCode = rec.StatusCode
		msg.StatusDescription = rec.StatusDescription
		msg.DeliverySignature = rec.DeliverySignature
		msg.ShipTime = rec.ShipTime
		if last, ok := rec.LatestEvent(); ok {
			t := last.Time
			msg.StatusAt = &t
		}
		msg.Events = messages.EventsFromModels(rec.ShipmentEvents)
		msg.NextCheckAt = now.Add(p.planner.NextCheckDelay(status))
	}

	return p.publish(ctx, msg)
}

// check asks the carrier. A reply the carrier marks as failed counts as an error.
func (p *Poller) check(ctx context.Context, sh *models.Shipment) (*models.TrackingRecord, error) {
	tr, ok := p.trackers[sh.CarrierCode]
	if !ok {
		return nil, errors.Wrap(errUnsupportedCarrier, sh.CarrierCode)
	}

	resp, err := tr.FindTrackingInfo(ctx, sh.TrackingNumber, carrier.TrackingOptions{Test: p.testMode})
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, errors.Errorf("carrier reply: %s", resp.Message)
	}
	if resp.Tracking == nil {
		return nil, errors.New("carrier reply without tracking details")
	}
	return resp.Tracking, nil
}

func (p *Poller) publish(ctx context.Context, msg messages.TrackingUpdated) error {
	// Kafka может быть не готова сразу после старта docker compose.
	var pubErr error
	for i := 0; i < publishAttempts; i++ {
		pubErr = p.producer.PublishJSON(ctx, p.topic, messages.TypeTrackingUpdated, msg.Key(), msg)
		if pubErr == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(150*(i+1)) * time.Millisecond):
		}
	}
	return errors.Wrap(pubErr, "publish tracking update")
}
