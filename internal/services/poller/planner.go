package poller

import (
	"math/rand"
	"time"

	"github.com/BearBump/ShipGate/internal/models"
)

type Rand interface {
	Intn(n int) int
}

type PlannerConfig struct {
	FinalDelay time.Duration // default: 365 days

	InTransitMinDelay time.Duration // default: 30 minutes
	InTransitMaxDelay time.Duration // default: 120 minutes

	// Посылка у курьера: проверяем чаще.
	NearDeliveryDelay time.Duration // default: 15 minutes

	AttentionDelay time.Duration // default: 90 minutes

	Backoff []time.Duration // default: 5m, 15m, 30m, 60m
}

func DefaultPlannerConfig() PlannerConfig {
	return PlannerConfig{
		FinalDelay: 365 * 24 * time.Hour,

		InTransitMinDelay: 30 * time.Minute,
		InTransitMaxDelay: 120 * time.Minute,

		NearDeliveryDelay: 15 * time.Minute,

		AttentionDelay: 90 * time.Minute,

		Backoff: []time.Duration{5 * time.Minute, 15 * time.Minute, 30 * time.Minute, 60 * time.Minute},
	}
}

type Planner struct {
	cfg PlannerConfig
	r   Rand
}

func NewPlanner(cfg PlannerConfig, r Rand) *Planner {
	def := DefaultPlannerConfig()
	if cfg.FinalDelay <= 0 {
		cfg.FinalDelay = def.FinalDelay
	}
	if cfg.InTransitMinDelay <= 0 {
		cfg.InTransitMinDelay = def.InTransitMinDelay
	}
	if cfg.InTransitMaxDelay <= 0 {
		cfg.InTransitMaxDelay = def.InTransitMaxDelay
	}
	if cfg.InTransitMaxDelay < cfg.InTransitMinDelay {
		cfg.InTransitMaxDelay = cfg.InTransitMinDelay
	}
	if cfg.NearDeliveryDelay <= 0 {
		cfg.NearDeliveryDelay = def.NearDeliveryDelay
	}
	if cfg.AttentionDelay <= 0 {
		cfg.AttentionDelay = def.AttentionDelay
	}
	backoff := make([]time.Duration, 0, len(cfg.Backoff))
	for _, d := range cfg.Backoff {
		if d > 0 {
			backoff = append(backoff, d)
		}
	}
	if len(backoff) == 0 {
		backoff = def.Backoff
	}
	cfg.Backoff = backoff
	if r == nil {
		r = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Planner{cfg: cfg, r: r}
}

func (p *Planner) NextCheckDelay(status models.TrackingStatus) time.Duration {
	switch {
	case status.Final():
		return p.cfg.FinalDelay
	case status.NeedsAttention():
		return p.cfg.AttentionDelay
	case status == models.TrackingStatusOutForDelivery,
		status == models.TrackingStatusAtDelivery,
		status == models.TrackingStatusEnrouteToDelivery:
		return p.cfg.NearDeliveryDelay
	}

	lo := p.cfg.InTransitMinDelay
	hi := p.cfg.InTransitMaxDelay
	if hi == lo {
		return lo
	}
	secMin := int(lo.Seconds())
	secMax := int(hi.Seconds())
	if secMax < secMin {
		secMax = secMin
	}
	return time.Duration(secMin+p.r.Intn(secMax-secMin+1)) * time.Second
}

// BackoffDelay returns the delay after the n-th consecutive failure (1-based);
// past the end of the ladder the last step repeats.
func (p *Planner) BackoffDelay(nextFailCount int32) time.Duration {
	i := int(nextFailCount) - 1
	if i < 0 {
		i = 0
	}
	if i >= len(p.cfg.Backoff) {
		i = len(p.cfg.Backoff) - 1
	}
	return p.cfg.Backoff[i]
}
