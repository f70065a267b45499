package httptransport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/BearBump/ShipGate/internal/integrations/carrier"
)

const (
	DefaultTestURL = "https://gatewaybeta.fedex.com/xml"
	DefaultLiveURL = "https://gateway.fedex.com/xml"

	maxBodyBytes = 8 << 20
)

// Transport posts XML requests to the FedEx gateway.
type Transport struct {
	testURL string
	liveURL string
	httpc   *http.Client
}

func New(testURL, liveURL string, timeout time.Duration) *Transport {
	if testURL == "" {
		testURL = DefaultTestURL
	}
	if liveURL == "" {
		liveURL = DefaultLiveURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Transport{
		testURL: testURL,
		liveURL: liveURL,
		httpc: &http.Client{
			Timeout: timeout,
		},
	}
}

// Send posts the request body. Credentials already travel inside the FedEx XML.
func (t *Transport) Send(ctx context.Context, request []byte, _ carrier.Credentials, testMode bool) ([]byte, error) {
	u := t.liveURL
	if testMode {
		u = t.testURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(request))
	if err != nil {
		return nil, errors.Wrap(err, "new request")
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("Accept", "text/xml")

	resp, err := t.httpc.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("fedex rate limit (429)")
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("fedex http %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}
	return body, nil
}
