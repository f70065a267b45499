package carrier_api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/BearBump/ShipGate/internal/integrations/carrier"
	"github.com/BearBump/ShipGate/internal/metrics"
	"github.com/BearBump/ShipGate/internal/models"
	"github.com/BearBump/ShipGate/internal/services/rates"
	"github.com/BearBump/ShipGate/internal/services/trackings"
	"github.com/BearBump/ShipGate/internal/storage/pgtracking"
)

const maxBodyBytes = 1 << 20

type RateQuoter interface {
	Quote(ctx context.Context, in rates.QuoteInput) (*models.RateResponse, error)
}

type ShipmentService interface {
	RegisterShipments(ctx context.Context, items []models.ShipmentCreateInput) ([]*models.Shipment, error)
	GetShipmentsByIDs(ctx context.Context, ids []uint64) ([]*models.Shipment, error)
	ListShipments(ctx context.Context, status models.TrackingStatus, limit, offset int) ([]*models.Shipment, error)
	ListShipmentEvents(ctx context.Context, shipmentID uint64, limit, offset int) ([]*models.StoredEvent, error)
	RefreshShipment(ctx context.Context, shipmentID uint64) error
	Track(ctx context.Context, trackingNumber string, test bool) (*models.TrackingResponse, error)
}

// API is the public REST surface: live rate quotes and tracking lookups plus
// the registry of shipments polled in the background.
type API struct {
	rates     RateQuoter
	shipments ShipmentService
	validate  *validator.Validate
	logger    *slog.Logger
}

func New(r RateQuoter, s ShipmentService, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &API{rates: r, shipments: s, validate: v, logger: logger.With("component", "carrier-api")}
}

// Routes returns the /v1 router.
func (a *API) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(metrics.HTTP)

	r.Post("/v1/rates", a.quoteRates)
	r.Get("/v1/tracking/{number}", a.track)

	r.Route("/v1/shipments", func(r chi.Router) {
		r.Post("/", a.registerShipments)
		r.Get("/", a.listShipments)
		r.Get("/{id}/events", a.listShipmentEvents)
		r.Post("/{id}/refresh", a.refreshShipment)
	})
	return r
}

func (a *API) quoteRates(w http.ResponseWriter, r *http.Request) {
	var req rateRequestDTO
	if !a.decode(w, r, &req) {
		return
	}
	resp, err := a.rates.Quote(r.Context(), req.input())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) track(w http.ResponseWriter, r *http.Request) {
	test, err := boolQuery(r, "test")
	if err != nil {
		writeError(w, http.StatusBadRequest, "test must be a boolean")
		return
	}
	resp, err := a.shipments.Track(r.Context(), chi.URLParam(r, "number"), test)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) registerShipments(w http.ResponseWriter, r *http.Request) {
	var req registerShipmentsDTO
	if !a.decode(w, r, &req) {
		return
	}
	out, err := a.shipments.RegisterShipments(r.Context(), req.input())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, shipmentsResponse{Shipments: out})
}

// listShipments: ?ids=1,2,3 выбирает по id (через кэш), иначе постранично по статусу.
func (a *API) listShipments(w http.ResponseWriter, r *http.Request) {
	if raw := r.URL.Query().Get("ids"); raw != "" {
		ids, err := parseIDs(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		out, err := a.shipments.GetShipmentsByIDs(r.Context(), ids)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, shipmentsResponse{Shipments: out})
		return
	}

	limit, offset, err := paging(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	status := models.TrackingStatus(r.URL.Query().Get("status"))
	out, err := a.shipments.ListShipments(r.Context(), status, limit, offset)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if out == nil {
		out = []*models.Shipment{}
	}
	writeJSON(w, http.StatusOK, shipmentsResponse{Shipments: out})
}

func (a *API) listShipmentEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	limit, offset, err := paging(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	evs, err := a.shipments.ListShipmentEvents(r.Context(), id, limit, offset)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if evs == nil {
		evs = []*models.StoredEvent{}
	}
	writeJSON(w, http.StatusOK, eventsResponse{Events: evs})
}

func (a *API) refreshShipment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := a.shipments.RefreshShipment(r.Context(), id); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (a *API) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return false
	}
	if err := a.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			details := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				details = append(details, fe.Namespace()+": "+fe.Tag())
			}
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation failed", Details: details})
			return false
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// fail maps service and carrier errors onto HTTP statuses.
func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		a.logger.Error("request failed",
			"method", r.Method, "path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"status", status, "error", err.Error())
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, rates.ErrInvalidInput), errors.Is(err, trackings.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, pgtracking.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, carrier.ErrConfiguration):
		return http.StatusServiceUnavailable
	case errors.Is(err, carrier.ErrResponseContent):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return 499
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func pathID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		writeError(w, http.StatusBadRequest, "id must be a positive integer")
		return 0, false
	}
	return id, true
}

func parseIDs(raw string) ([]uint64, error) {
	parts := strings.Split(raw, ",")
	ids := make([]uint64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return nil, errors.Errorf("invalid id %q", p)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func paging(r *http.Request) (int, int, error) {
	q := r.URL.Query()
	limit, offset := 100, 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			return 0, 0, errors.New("limit must be between 1 and 500")
		}
		limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return 0, 0, errors.New("offset must be a non-negative integer")
		}
		offset = n
	}
	return limit, offset, nil
}

func boolQuery(r *http.Request, key string) (bool, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return false, nil
	}
	return strconv.ParseBool(v)
}
