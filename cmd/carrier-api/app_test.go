package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	segkafka "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/BearBump/ShipGate/config"
	carrierapi "github.com/BearBump/ShipGate/internal/api/carrier_api"
	"github.com/BearBump/ShipGate/internal/broker/kafka"
	"github.com/BearBump/ShipGate/internal/broker/messages"
	"github.com/BearBump/ShipGate/internal/integrations/carrier"
	"github.com/BearBump/ShipGate/internal/models"
	"github.com/BearBump/ShipGate/internal/services/rates"
	"github.com/BearBump/ShipGate/internal/services/trackings"
	"github.com/BearBump/ShipGate/internal/storage/pgtracking"
)

type fakeRepo struct{}

func (r *fakeRepo) CreateOrGetShipments(ctx context.Context, items []models.ShipmentCreateInput) ([]*models.Shipment, error) {
	return []*models.Shipment{}, nil
}
func (r *fakeRepo) GetShipmentsByIDs(ctx context.Context, ids []uint64) ([]*models.Shipment, error) {
	return []*models.Shipment{}, nil
}
func (r *fakeRepo) ListShipments(ctx context.Context, status models.TrackingStatus, limit, offset int) ([]*models.Shipment, error) {
	return []*models.Shipment{}, nil
}
func (r *fakeRepo) ListShipmentEvents(ctx context.Context, shipmentID uint64, limit, offset int) ([]*models.StoredEvent, error) {
	return []*models.StoredEvent{}, nil
}
func (r *fakeRepo) RefreshShipment(ctx context.Context, shipmentID uint64) error { return nil }
func (r *fakeRepo) ApplyShipmentUpdate(ctx context.Context, upd pgtracking.ShipmentUpdate) error {
	return nil
}

type blockingConsumer struct{}

func (blockingConsumer) Consume(ctx context.Context, handler kafka.Handler) error {
	<-ctx.Done()
	return ctx.Err()
}

type failingConsumer struct{}

func (failingConsumer) Consume(ctx context.Context, handler kafka.Handler) error {
	return errors.New("broker is down")
}

type recordingApplier struct {
	got []messages.TrackingUpdated
	err error
}

func (a *recordingApplier) ApplyTrackingUpdate(ctx context.Context, msg messages.TrackingUpdated) error {
	a.got = append(a.got, msg)
	return a.err
}

func newTestAPI() (*carrierapi.API, *trackings.Service) {
	fx := newCarrierClient(config.CarrierConfig{})
	svc := trackings.New(&fakeRepo{}, nil, time.Minute, trackings.WithLiveTracker(fx, 0))
	rs := rates.New(fx, nil, 0, nil)
	return carrierapi.New(rs, svc, nil), svc
}

func writeSwagger(t *testing.T) string {
	t.Helper()
	sw := filepath.Join(t.TempDir(), "swagger.json")
	require.NoError(t, os.WriteFile(sw, []byte(`{"swagger":"2.0"}`), 0o600))
	return sw
}

func startAPI(t *testing.T, consumer updateConsumer) (string, context.CancelFunc, chan error) {
	t.Helper()
	api, svc := newTestAPI()

	ctx, cancel := context.WithCancel(context.Background())
	addrCh := make(chan string, 1)
	opts := carrierAPIOpts{
		grpcAddr:      "127.0.0.1:0",
		httpAddr:      "127.0.0.1:0",
		grpcDialAddr:  "127.0.0.1:0", // будет подменён внутри runCarrierAPI
		swaggerPath:   writeSwagger(t),
		topic:         "t",
		consumerGroup: "g",
		onListen:      func(_, httpAddr string) { addrCh <- httpAddr },
	}

	errCh := make(chan error, 1)
	go func() { errCh <- runCarrierAPI(ctx, opts, api, svc, consumer) }()

	return "http://" + <-addrCh, cancel, errCh
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	var (
		resp *http.Response
		err  error
	)
	require.Eventually(t, func() bool {
		resp, err = http.Get(url)
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func statusOf(url string) int {
	resp, err := http.Get(url)
	if err != nil {
		return 0
	}
	_ = resp.Body.Close()
	return resp.StatusCode
}

func TestRunCarrierAPI_Routes(t *testing.T) {
	base, cancel, errCh := startAPI(t, blockingConsumer{})

	code, body := get(t, base+"/swagger.json")
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, body, `"swagger"`)

	code, _ = get(t, base+"/metrics")
	require.Equal(t, http.StatusOK, code)

	require.Eventually(t, func() bool {
		return statusOf(base+"/healthz") == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	code, body = get(t, base+"/v1/shipments")
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, body, "shipments")

	// без ключей FedEx трекинг недоступен, но API живо
	code, _ = get(t, base+"/v1/tracking/123456789012")
	require.Equal(t, http.StatusServiceUnavailable, code)

	cancel()
	select {
	case err := <-errCh:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting servers to stop")
	}
}

func TestRunCarrierAPI_ConsumerFailureMarksHealth(t *testing.T) {
	base, cancel, errCh := startAPI(t, failingConsumer{})
	defer func() {
		cancel()
		<-errCh
	}()

	require.Eventually(t, func() bool {
		return statusOf(base+"/healthz?service="+updatesHealthService) == http.StatusServiceUnavailable
	}, 3*time.Second, 50*time.Millisecond)

	require.Eventually(t, func() bool {
		return statusOf(base+"/healthz") == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)
}

func TestRunCarrierAPI_SwaggerRequired(t *testing.T) {
	api, svc := newTestAPI()
	err := runCarrierAPI(context.Background(), carrierAPIOpts{}, api, svc, blockingConsumer{})
	require.Error(t, err)

	err = runCarrierAPI(context.Background(), carrierAPIOpts{swaggerPath: "/nope/swagger.json"}, api, svc, blockingConsumer{})
	require.ErrorContains(t, err, "swagger file not found")
}

func TestApplyUpdates(t *testing.T) {
	valid := messages.TrackingUpdated{
		ShipmentID:     7,
		CarrierCode:    "fedex",
		TrackingNumber: "123456789012",
		CheckedAt:      time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		Status:         "IN_TRANSIT",
	}
	payload, err := json.Marshal(valid)
	require.NoError(t, err)

	typed := func(v []byte, typ string) segkafka.Message {
		return segkafka.Message{
			Value:   v,
			Headers: []segkafka.Header{{Key: kafka.HeaderMessageType, Value: []byte(typ)}},
		}
	}

	t.Run("applies valid message", func(t *testing.T) {
		a := &recordingApplier{}
		require.NoError(t, applyUpdates(a)(context.Background(), typed(payload, messages.TypeTrackingUpdated)))
		require.Len(t, a.got, 1)
		require.Equal(t, uint64(7), a.got[0].ShipmentID)
	})

	t.Run("skips foreign type", func(t *testing.T) {
		a := &recordingApplier{}
		err := applyUpdates(a)(context.Background(), typed(payload, "other"))
		require.ErrorIs(t, err, kafka.ErrSkipMessage)
		require.Empty(t, a.got)
	})

	t.Run("skips broken json", func(t *testing.T) {
		a := &recordingApplier{}
		err := applyUpdates(a)(context.Background(), segkafka.Message{Value: []byte("{")})
		require.ErrorIs(t, err, kafka.ErrSkipMessage)
	})

	t.Run("skips invalid message", func(t *testing.T) {
		a := &recordingApplier{}
		err := applyUpdates(a)(context.Background(), segkafka.Message{Value: []byte(`{"shipment_id":0}`)})
		require.ErrorIs(t, err, kafka.ErrSkipMessage)
		require.Empty(t, a.got)
	})

	t.Run("storage error is returned", func(t *testing.T) {
		a := &recordingApplier{err: errors.New("db down")}
		err := applyUpdates(a)(context.Background(), typed(payload, messages.TypeTrackingUpdated))
		require.Error(t, err)
		require.NotErrorIs(t, err, kafka.ErrSkipMessage)
	})
}

func TestAPIOpts_Defaults(t *testing.T) {
	opts := apiOpts(&config.Config{}, "sw.json")
	require.Equal(t, ":50051", opts.grpcAddr)
	require.Equal(t, ":8080", opts.httpAddr)
	require.Equal(t, "carrier-api", opts.consumerGroup)
	require.Equal(t, "tracking.updated", opts.topic)
	require.Equal(t, "sw.json", opts.swaggerPath)
}

func TestNewCarrierClient(t *testing.T) {
	c := newCarrierClient(config.CarrierConfig{})
	_, err := c.FindTrackingInfo(context.Background(), "1", carrier.TrackingOptions{})
	require.ErrorIs(t, err, carrier.ErrConfiguration)

	c = newCarrierClient(config.CarrierConfig{UseEmulator: true})
	resp, err := c.FindTrackingInfo(context.Background(), "123456789012", carrier.TrackingOptions{})
	require.NoError(t, err)
	require.True(t, resp.Success)
}
