package trackings

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/BearBump/ShipGate/internal/integrations/carrier"
	"github.com/BearBump/ShipGate/internal/models"
	"github.com/BearBump/ShipGate/internal/storage/pgtracking"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) CreateOrGetShipments(ctx context.Context, items []models.ShipmentCreateInput) ([]*models.Shipment, error) {
	args := m.Called(ctx, items)
	return args.Get(0).([]*models.Shipment), args.Error(1)
}

func (m *mockRepository) GetShipmentsByIDs(ctx context.Context, ids []uint64) ([]*models.Shipment, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]*models.Shipment), args.Error(1)
}

func (m *mockRepository) ListShipments(ctx context.Context, status models.TrackingStatus, limit, offset int) ([]*models.Shipment, error) {
	args := m.Called(ctx, status, limit, offset)
	return args.Get(0).([]*models.Shipment), args.Error(1)
}

func (m *mockRepository) ListShipmentEvents(ctx context.Context, shipmentID uint64, limit, offset int) ([]*models.StoredEvent, error) {
	args := m.Called(ctx, shipmentID, limit, offset)
	return args.Get(0).([]*models.StoredEvent), args.Error(1)
}

func (m *mockRepository) RefreshShipment(ctx context.Context, shipmentID uint64) error {
	return m.Called(ctx, shipmentID).Error(0)
}

func (m *mockRepository) ApplyShipmentUpdate(ctx context.Context, upd pgtracking.ShipmentUpdate) error {
	return m.Called(ctx, upd).Error(0)
}

type mockBytesCache struct {
	mock.Mock
}

func (m *mockBytesCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	args := m.Called(ctx, key)
	return args.Get(0).([]byte), args.Bool(1), args.Error(2)
}

func (m *mockBytesCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return m.Called(ctx, key, value, ttl).Error(0)
}

func (m *mockBytesCache) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

type mockTracker struct {
	mock.Mock
}

func (m *mockTracker) FindTrackingInfo(ctx context.Context, trackingNumber string, opts carrier.TrackingOptions) (*models.TrackingResponse, error) {
	args := m.Called(ctx, trackingNumber, opts)
	resp, _ := args.Get(0).(*models.TrackingResponse)
	return resp, args.Error(1)
}
