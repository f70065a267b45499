package poller

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/BearBump/ShipGate/internal/integrations/carrier"
	"github.com/BearBump/ShipGate/internal/integrations/carrier/fake"
	"github.com/BearBump/ShipGate/internal/integrations/carrier/fedex"
	"github.com/BearBump/ShipGate/internal/models"
)

type fakeRepo struct {
	mu    sync.Mutex
	calls int
	due   []*models.Shipment
	err   error
}

func (r *fakeRepo) ClaimDueShipments(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]*models.Shipment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	out := r.due
	r.due = nil
	return out, r.err
}

func (r *fakeRepo) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type recordingProducer struct {
	mu   sync.Mutex
	keys []string
}

func (p *recordingProducer) PublishJSON(ctx context.Context, topic, messageType string, key []byte, v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, string(key))
	return nil
}

func TestPoller_Run_StopsOnContextCancel(t *testing.T) {
	repo := &fakeRepo{}
	p := New(repo, nil, &recordingProducer{}, nil, "t").WithSettings(5*time.Millisecond, 1, 1, time.Second, 1)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := p.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.GreaterOrEqual(t, repo.callCount(), 1)
}

func TestPoller_runOnce_TracksThroughFedexEmulator(t *testing.T) {
	client, err := fedex.New(fake.Credentials(), fake.New())
	require.NoError(t, err)

	repo := &fakeRepo{due: []*models.Shipment{
		{ID: 1, CarrierCode: fedex.CarrierCode, TrackingNumber: "1"},
		{ID: 2, CarrierCode: fedex.CarrierCode, TrackingNumber: "2"},
		{ID: 3, CarrierCode: fedex.CarrierCode, TrackingNumber: "3"},
	}}
	prod := &recordingProducer{}
	p := New(repo, map[string]carrier.Tracker{fedex.CarrierCode: client}, prod, nil, "tracking.updated").
		WithSettings(time.Hour, 10, 2, time.Minute, 0)

	p.runOnce(context.Background())

	st := p.Stats()
	require.EqualValues(t, 3, st.TotalClaimed)
	require.EqualValues(t, 3, st.TotalProcessed)
	require.Zero(t, st.TotalErrors)
	require.Zero(t, st.InFlight)
	require.NotNil(t, st.LastCycleAt)
	require.ElementsMatch(t, []string{"1", "2", "3"}, prod.keys)
}

func TestPoller_runOnce_ClaimErrorRecorded(t *testing.T) {
	repo := &fakeRepo{err: context.DeadlineExceeded}
	p := New(repo, nil, &recordingProducer{}, nil, "t")

	p.runOnce(context.Background())
	require.Equal(t, context.DeadlineExceeded.Error(), p.Stats().LastError)
}

func TestPoller_Trigger_NonBlocking(t *testing.T) {
	p := New(&fakeRepo{}, nil, &recordingProducer{}, nil, "t")
	p.Trigger()
	p.Trigger()
	require.NotNil(t, p.Stats().LastTriggerAt)
	require.Len(t, p.triggerCh, 1)
}
