package rates

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/pkg/errors"

	"github.com/BearBump/ShipGate/internal/cache"
	"github.com/BearBump/ShipGate/internal/integrations/carrier"
	"github.com/BearBump/ShipGate/internal/metrics"
	"github.com/BearBump/ShipGate/internal/models"
)

const MaxPackages = 99

var ErrInvalidInput = errors.New("invalid input")

type QuoteInput struct {
	Origin      models.Location     `json:"origin"`
	Destination models.Location     `json:"destination"`
	Packages    []models.Package    `json:"packages"`
	Options     carrier.RateOptions `json:"options"`
}

func (in QuoteInput) validate() error {
	if strings.TrimSpace(in.Origin.CountryCode) == "" {
		return errors.Wrap(ErrInvalidInput, "origin country_code is required")
	}
	if strings.TrimSpace(in.Destination.CountryCode) == "" {
		return errors.Wrap(ErrInvalidInput, "destination country_code is required")
	}
	if len(in.Packages) == 0 {
		return errors.Wrap(ErrInvalidInput, "at least one package is required")
	}
	if len(in.Packages) > MaxPackages {
		return errors.Wrap(ErrInvalidInput, fmt.Sprintf("too many packages (max %d)", MaxPackages))
	}
	for i, p := range in.Packages {
		if p.WeightKg <= 0 {
			return errors.Wrap(ErrInvalidInput, fmt.Sprintf("packages[%d]: weight must be positive", i))
		}
		if p.LengthCm < 0 || p.WidthCm < 0 || p.HeightCm < 0 {
			return errors.Wrap(ErrInvalidInput, fmt.Sprintf("packages[%d]: dimensions must not be negative", i))
		}
	}
	if in.Options.TurnAroundTimeHours < 0 {
		return errors.Wrap(ErrInvalidInput, "turn_around_time_hours must not be negative")
	}
	return nil
}

// ShipDate is the day the parcel leaves: now plus the turn-around time.
func (in QuoteInput) ShipDate(now time.Time) civil.Date {
	tat := max(in.Options.TurnAroundTimeHours, 0)
	return civil.DateOf(now.Add(time.Duration(tat) * time.Hour))
}

// CacheKey identifies a quote request for a ship date. Delivery dates in the
// reply depend on it, so a quote never outlives its day.
func (in QuoteInput) CacheKey(shipDate civil.Date) string {
	b, _ := json.Marshal(struct {
		QuoteInput
		ShipDate civil.Date `json:"ship_date"`
	}{in, shipDate})
	sum := sha256.Sum256(b)
	return "rates:" + hex.EncodeToString(sum[:])
}

// cachedQuote keeps the raw exchange next to the reply: both are hidden
// from the API JSON but belong to the response.
type cachedQuote struct {
	Response *models.RateResponse `json:"response"`
	Body     string               `json:"body"`
	Request  string               `json:"request"`
}

// Service quotes rates through the carrier, caching successful responses.
type Service struct {
	finder carrier.RateFinder
	cache  cache.BytesCache
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

func New(finder carrier.RateFinder, c cache.BytesCache, ttl time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{finder: finder, cache: c, ttl: ttl, logger: logger.With("component", "rates"), now: time.Now}
}

func (s *Service) Quote(ctx context.Context, in QuoteInput) (*models.RateResponse, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	useCache := s.cache != nil && s.ttl > 0
	key := in.CacheKey(in.ShipDate(s.now()))
	if useCache {
		if resp, ok := s.cached(ctx, key); ok {
			return resp, nil
		}
	}

	resp, err := s.finder.FindRates(ctx, in.Origin, in.Destination, in.Packages, in.Options)
	if err != nil {
		return nil, err
	}

	// Отказы перевозчика не кэшируем: адрес могут исправить.
	if useCache && resp.Success && len(resp.Rates) > 0 {
		b, err := json.Marshal(cachedQuote{Response: resp, Body: resp.Body, Request: resp.Request})
		if err == nil {
			if err := s.cache.Set(ctx, key, b, s.ttl); err != nil {
				s.logger.Warn("cache rate response", "key", key, "error", err.Error())
			}
		}
	}
	return resp, nil
}

func (s *Service) cached(ctx context.Context, key string) (*models.RateResponse, bool) {
	b, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		metrics.CacheLookupsTotal.WithLabelValues("rates", "error").Inc()
		s.logger.Warn("read rate cache", "key", key, "error", err.Error())
		return nil, false
	}
	if !ok {
		metrics.CacheLookupsTotal.WithLabelValues("rates", "miss").Inc()
		return nil, false
	}

	var c cachedQuote
	if err := json.Unmarshal(b, &c); err != nil || c.Response == nil {
		metrics.CacheLookupsTotal.WithLabelValues("rates", "miss").Inc()
		return nil, false
	}
	c.Response.Body = c.Body
	c.Response.Request = c.Request
	metrics.CacheLookupsTotal.WithLabelValues("rates", "hit").Inc()
	return c.Response, true
}
