package trackings

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/BearBump/ShipGate/internal/broker/messages"
	"github.com/BearBump/ShipGate/internal/cache"
	"github.com/BearBump/ShipGate/internal/integrations/carrier"
	"github.com/BearBump/ShipGate/internal/metrics"
	"github.com/BearBump/ShipGate/internal/models"
	"github.com/BearBump/ShipGate/internal/storage/pgtracking"
)

const MaxRegisterItems = 10_000

var ErrInvalidInput = errors.New("invalid input")

type Repository interface {
	CreateOrGetShipments(ctx context.Context, items []models.ShipmentCreateInput) ([]*models.Shipment, error)
	GetShipmentsByIDs(ctx context.Context, ids []uint64) ([]*models.Shipment, error)
	ListShipments(ctx context.Context, status models.TrackingStatus, limit, offset int) ([]*models.Shipment, error)
	ListShipmentEvents(ctx context.Context, shipmentID uint64, limit, offset int) ([]*models.StoredEvent, error)
	RefreshShipment(ctx context.Context, shipmentID uint64) error
	ApplyShipmentUpdate(ctx context.Context, upd pgtracking.ShipmentUpdate) error
}

type Service struct {
	repo       Repository
	cache      cache.BytesCache
	currentTTL time.Duration

	tracker   carrier.Tracker
	lookupTTL time.Duration

	logger *slog.Logger
}

type Option func(*Service)

// WithLiveTracker enables Track: direct carrier lookups cached for ttl.
func WithLiveTracker(tr carrier.Tracker, ttl time.Duration) Option {
	return func(s *Service) {
		s.tracker = tr
		s.lookupTTL = ttl
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func New(repo Repository, c cache.BytesCache, currentTTL time.Duration, opts ...Option) *Service {
	s := &Service{repo: repo, cache: c, currentTTL: currentTTL, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "trackings")
	return s
}

func invalid(msg string) error {
	return errors.Wrap(ErrInvalidInput, msg)
}

func (s *Service) RegisterShipments(ctx context.Context, items []models.ShipmentCreateInput) ([]*models.Shipment, error) {
	if len(items) == 0 {
		return nil, invalid("items is empty")
	}
	if len(items) > MaxRegisterItems {
		return nil, invalid(fmt.Sprintf("too many items (max %d)", MaxRegisterItems))
	}

	clean := make([]models.ShipmentCreateInput, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		it.CarrierCode = strings.ToLower(strings.TrimSpace(it.CarrierCode))
		it.TrackingNumber = strings.TrimSpace(it.TrackingNumber)
		if it.CarrierCode == "" {
			return nil, invalid("carrier_code is required")
		}
		if it.TrackingNumber == "" {
			return nil, invalid("tracking_number is required")
		}
		k := it.CarrierCode + "|" + it.TrackingNumber
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		clean = append(clean, it)
	}

	return s.repo.CreateOrGetShipments(ctx, clean)
}

func (s *Service) cacheEnabled() bool {
	return s.cache != nil && s.currentTTL > 0
}

func (s *Service) GetShipmentsByIDs(ctx context.Context, ids []uint64) ([]*models.Shipment, error) {
	if len(ids) == 0 {
		return []*models.Shipment{}, nil
	}

	miss := make([]uint64, 0, len(ids))
	got := make(map[uint64]*models.Shipment, len(ids))

	if s.cacheEnabled() {
		for _, id := range ids {
			b, ok, err := s.cache.Get(ctx, currentKey(id))
			if err != nil {
				metrics.CacheLookupsTotal.WithLabelValues("shipments", "error").Inc()
				miss = append(miss, id)
				continue
			}
			if !ok {
				metrics.CacheLookupsTotal.WithLabelValues("shipments", "miss").Inc()
				miss = append(miss, id)
				continue
			}
			var sh models.Shipment
			if json.Unmarshal(b, &sh) != nil {
				metrics.CacheLookupsTotal.WithLabelValues("shipments", "miss").Inc()
				miss = append(miss, id)
				continue
			}
			metrics.CacheLookupsTotal.WithLabelValues("shipments", "hit").Inc()
			got[id] = &sh
		}
	} else {
		miss = ids
	}

	if len(miss) > 0 {
		fromDB, err := s.repo.GetShipmentsByIDs(ctx, miss)
		if err != nil {
			return nil, err
		}
		for _, sh := range fromDB {
			s.storeCurrent(ctx, sh)
			got[sh.ID] = sh
		}
	}

	// Собираем ответ в том же порядке, что ids.
	out := make([]*models.Shipment, 0, len(ids))
	for _, id := range ids {
		if sh, ok := got[id]; ok {
			out = append(out, sh)
		}
	}
	return out, nil
}

func (s *Service) ListShipments(ctx context.Context, status models.TrackingStatus, limit, offset int) ([]*models.Shipment, error) {
	return s.repo.ListShipments(ctx, models.TrackingStatus(strings.ToUpper(string(status))), limit, offset)
}

func (s *Service) ListShipmentEvents(ctx context.Context, shipmentID uint64, limit, offset int) ([]*models.StoredEvent, error) {
	if shipmentID == 0 {
		return nil, invalid("shipment_id is required")
	}
	return s.repo.ListShipmentEvents(ctx, shipmentID, limit, offset)
}

func (s *Service) RefreshShipment(ctx context.Context, shipmentID uint64) error {
	if shipmentID == 0 {
		return invalid("shipment_id is required")
	}
	return s.repo.RefreshShipment(ctx, shipmentID)
}

func (s *Service) ApplyTrackingUpdate(ctx context.Context, msg messages.TrackingUpdated) error {
	if msg.ShipmentID == 0 {
		return invalid("shipment_id is required")
	}
	if msg.CheckedAt.IsZero() {
		msg.CheckedAt = time.Now().UTC()
	}
	if msg.NextCheckAt.IsZero() {
		// fallback: если воркер не послал next_check_at, ставим "через час"
		msg.NextCheckAt = msg.CheckedAt.Add(60 * time.Minute)
	}

	status := models.TrackingStatus(msg.Status)
	if status == "" {
		status = models.TrackingStatusUnknown
	}

	events := make([]models.ShipmentEvent, 0, len(msg.Events))
	for _, e := range msg.Events {
		events = append(events, e.Model())
	}

	err := s.repo.ApplyShipmentUpdate(ctx, pgtracking.ShipmentUpdate{
		ShipmentID:        msg.ShipmentID,
		CheckedAt:         msg.CheckedAt,
		Status:            status,
		StatusCode:        msg.StatusCode,
		StatusDescription: msg.StatusDescription,
		DeliverySignature: msg.DeliverySignature,
		ShipTime:          msg.ShipTime,
		StatusAt:          msg.StatusAt,
		NextCheckAt:       msg.NextCheckAt,
		Events:            events,
		Error:             msg.Error,
	})
	if err != nil {
		return err
	}

	if s.cacheEnabled() {
		// Просто перезагрузим из БД одну запись.
		fresh, err := s.repo.GetShipmentsByIDs(ctx, []uint64{msg.ShipmentID})
		if err != nil {
			s.logger.Warn("reload shipment for cache", "shipment_id", msg.ShipmentID, "error", err.Error())
			return nil
		}
		if len(fresh) == 1 {
			s.storeCurrent(ctx, fresh[0])
		}
	}
	return nil
}

// Track asks the carrier directly, bypassing storage. Successful replies are
// cached for the lookup TTL.
func (s *Service) Track(ctx context.Context, trackingNumber string, test bool) (*models.TrackingResponse, error) {
	trackingNumber = strings.TrimSpace(trackingNumber)
	if trackingNumber == "" {
		return nil, invalid("tracking_number is required")
	}
	if s.tracker == nil {
		return nil, errors.Wrap(carrier.ErrConfiguration, "live tracking is not configured")
	}

	key := lookupKey(trackingNumber, test)
	useCache := s.cache != nil && s.lookupTTL > 0
	if useCache {
		b, ok, err := s.cache.Get(ctx, key)
		switch {
		case err != nil:
			metrics.CacheLookupsTotal.WithLabelValues("trackings", "error").Inc()
		case ok:
			var resp models.TrackingResponse
			if json.Unmarshal(b, &resp) == nil {
				metrics.CacheLookupsTotal.WithLabelValues("trackings", "hit").Inc()
				return &resp, nil
			}
			metrics.CacheLookupsTotal.WithLabelValues("trackings", "miss").Inc()
		default:
			metrics.CacheLookupsTotal.WithLabelValues("trackings", "miss").Inc()
		}
	}

	resp, err := s.tracker.FindTrackingInfo(ctx, trackingNumber, carrier.TrackingOptions{Test: test})
	if err != nil {
		return nil, err
	}

	if useCache && resp.Success {
		if b, err := json.Marshal(resp); err == nil {
			if err := s.cache.Set(ctx, key, b, s.lookupTTL); err != nil {
				s.logger.Warn("cache tracking lookup", "tracking_number", trackingNumber, "error", err.Error())
			}
		}
	}
	return resp, nil
}

func (s *Service) storeCurrent(ctx context.Context, sh *models.Shipment) {
	if !s.cacheEnabled() {
		return
	}
	b, err := json.Marshal(sh)
	if err != nil {
		return
	}
	_ = s.cache.Set(ctx, currentKey(sh.ID), b, s.currentTTL)
}

func currentKey(id uint64) string {
	return fmt.Sprintf("shipment:%d:current", id)
}

func lookupKey(number string, test bool) string {
	if test {
		return "tracking:test:" + number
	}
	return "tracking:live:" + number
}
