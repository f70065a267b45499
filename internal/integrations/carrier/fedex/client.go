package fedex

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/BearBump/ShipGate/internal/integrations/carrier"
	"github.com/BearBump/ShipGate/internal/metrics"
	"github.com/BearBump/ShipGate/internal/models"
)

const (
	CarrierCode = "fedex"
	CarrierName = "FedEx"

	NoRatesMessage = "No shipping rates could be found for the destination address"
)

var validate = validator.New()

// Client talks to the FedEx Rate v6 and Track v3 XML services. It holds no
// mutable state and is safe for concurrent use.
type Client struct {
	creds     carrier.Credentials
	transport carrier.Transport
	now       func() time.Time
	newTxID   func() string
	logger    *slog.Logger
}

type Option func(*Client)

// WithClock overrides the wall clock used for ship timestamps and delivery dates.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func WithTransactionIDs(gen func() string) Option {
	return func(c *Client) { c.newTxID = gen }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func New(creds carrier.Credentials, transport carrier.Transport, opts ...Option) (*Client, error) {
	if err := validate.Struct(creds); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			missing := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				missing = append(missing, strings.ToLower(fe.Field()))
			}
			return nil, carrier.NewConfigurationError(missing...)
		}
		return nil, errors.Wrap(err, "validate credentials")
	}
	if transport == nil {
		return nil, carrier.NewConfigurationError("transport")
	}

	c := &Client{
		creds:     creds,
		transport: transport,
		now:       time.Now,
		newTxID:   uuid.NewString,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "fedex")
	return c, nil
}

func (c *Client) FindRates(ctx context.Context, origin, destination models.Location, packages []models.Package, opts carrier.RateOptions) (*models.RateResponse, error) {
	now := c.now()
	req, err := buildRateRequest(c.creds, c.newTxID(), rateRequestInput{
		Origin:      origin,
		Destination: destination,
		Packages:    packages,
		Options:     opts,
		Now:         now,
	})
	if err != nil {
		return nil, err
	}

	body, err := c.commit(ctx, "rate", req, opts.Test)
	if err != nil {
		return nil, err
	}

	reply, err := ParseRateReply(body)
	if err != nil {
		c.observe("rate", "content_error")
		c.logger.Error("parse rate reply", "error", err.Error())
		return nil, err
	}

	rates := make([]models.RateEstimate, 0, len(reply.Quotes))
	for _, q := range reply.Quotes {
		rates = append(rates, rateEstimate(now, q, packages, opts))
	}

	resp := &models.RateResponse{
		Response: models.Response{
			Success: reply.Success,
			Message: reply.Message,
			Params:  reply.Params,
			Body:    string(body),
			Request: string(req),
		},
		Rates: rates,
	}
	if len(rates) == 0 {
		resp.Success = false
		if resp.Message == "" {
			resp.Message = NoRatesMessage
		}
	}
	c.observeReply("rate", resp.Success)
	return resp, nil
}

func (c *Client) FindTrackingInfo(ctx context.Context, trackingNumber string, opts carrier.TrackingOptions) (*models.TrackingResponse, error) {
	req, err := buildTrackRequest(c.creds, c.newTxID(), trackingNumber, opts)
	if err != nil {
		return nil, err
	}

	body, err := c.commit(ctx, "track", req, opts.Test)
	if err != nil {
		return nil, err
	}

	reply, err := ParseTrackReply(body)
	if err != nil {
		c.observe("track", "content_error")
		c.logger.Error("parse track reply", "tracking_number", trackingNumber, "error", err.Error())
		return nil, err
	}

	number := reply.TrackingNumber
	if number == "" {
		number = trackingNumber
	}
	rec := &models.TrackingRecord{
		Carrier:           CarrierCode,
		CarrierName:       CarrierName,
		TrackingNumber:    number,
		Status:            TrackingStatusForCode(reply.StatusCode),
		StatusCode:        reply.StatusCode,
		StatusDescription: reply.StatusDescription,
		Delivered:         reply.Delivered,
		DeliverySignature: reply.DeliverySignature,
		Origin:            reply.Origin,
		Destination:       reply.Destination,
		Shipper:           reply.Shipper,
		ShipTime:          reply.ShipTime,
		ShipmentEvents:    ReconstructEvents(reply.Events),
	}

	c.observeReply("track", reply.Success)
	return &models.TrackingResponse{
		Response: models.Response{
			Success: reply.Success,
			Message: reply.Message,
			Params:  reply.Params,
			Body:    string(body),
			Request: string(req),
		},
		Tracking: rec,
	}, nil
}

func (c *Client) commit(ctx context.Context, op string, req []byte, testMode bool) ([]byte, error) {
	start := time.Now()
	body, err := c.transport.Send(ctx, req, c.creds, testMode)
	metrics.CarrierRequestDuration.WithLabelValues(CarrierCode, op).Observe(time.Since(start).Seconds())
	if err != nil {
		c.observe(op, "transport_error")
		c.logger.Warn("carrier request failed", "operation", op, "test", testMode, "error", err.Error())
		return nil, errors.Wrap(err, "fedex transport")
	}
	return body, nil
}

func (c *Client) observeReply(op string, success bool) {
	if success {
		c.observe(op, "success")
		return
	}
	c.observe(op, "failure")
}

func (c *Client) observe(op, outcome string) {
	metrics.CarrierRequestsTotal.WithLabelValues(CarrierCode, op, outcome).Inc()
}

func rateEstimate(now time.Time, q RateQuote, packages []models.Package, opts carrier.RateOptions) models.RateEstimate {
	code := q.ServiceCode()
	est := models.RateEstimate{
		Carrier:      CarrierName,
		ServiceCode:  code,
		ServiceName:  ServiceNameForCode(code),
		Currency:     NormalizeCurrency(q.Currency),
		TotalPrice:   q.TotalNetCharge,
		PackageRates: make([]models.PackageRate, 0, len(packages)),
	}
	// FedEx отдаёт только итог по отправлению, без разбивки по местам.
	for _, p := range packages {
		est.PackageRates = append(est.PackageRates, models.PackageRate{Package: p})
	}

	if e, ok := ResolveDelivery(now, DeliveryInput{
		DeliveryDate:        q.DeliveryDate,
		TransitDays:         q.TransitDays,
		MaxTransitDays:      q.MaxTransitDays,
		TurnAroundTimeHours: opts.TurnAroundTimeHours,
	}); ok {
		date, r := e.Date, e.Range
		est.DeliveryDate = &date
		est.DeliveryRange = &r
	}
	return est
}
