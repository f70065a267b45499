package fedex

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/BearBump/ShipGate/internal/integrations/carrier"
)

func fixture(t *testing.T, name string) []byte {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return b
}

type stubTransport struct {
	mu        sync.Mutex
	body      []byte
	err       error
	requests  [][]byte
	testModes []bool
}

func (s *stubTransport) Send(ctx context.Context, request []byte, creds carrier.Credentials, testMode bool) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, request)
	s.testModes = append(s.testModes, testMode)
	return s.body, s.err
}

func (s *stubTransport) lastRequest() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return nil
	}
	return s.requests[len(s.requests)-1]
}

var testCreds = carrier.Credentials{Key: "1111", Password: "2222", Account: "3333", Meter: "4444"}
