package pgtracking

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/BearBump/ShipGate/internal/models"
)

var ErrNotFound = errors.New("shipment not found")

type ShipmentUpdate struct {
	ShipmentID uint64

	CheckedAt time.Time

	Status            models.TrackingStatus
	StatusCode        string
	StatusDescription string
	DeliverySignature *string
	ShipTime          *time.Time
	StatusAt          *time.Time

	NextCheckAt time.Time

	Events []models.ShipmentEvent

	Error *string
}

func (s *Storage) ListShipmentEvents(ctx context.Context, shipmentID uint64, limit, offset int) ([]*models.StoredEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.Query(ctx, `
SELECT
  id, shipment_id, event_time, name,
  city, state, postal_code, country_code, created_at
FROM shipment_events
WHERE shipment_id = $1
ORDER BY event_time DESC, id DESC
LIMIT $2 OFFSET $3
`, shipmentID, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "select events")
	}
	defer rows.Close()

	var out []*models.StoredEvent
	for rows.Next() {
		var e models.StoredEvent
		if err := rows.Scan(
			&e.ID, &e.ShipmentID, &e.Time, &e.Name,
			&e.Location.City, &e.Location.State, &e.Location.PostalCode, &e.Location.CountryCode, &e.CreatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan event")
		}
		out = append(out, &e)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func (s *Storage) ApplyShipmentUpdate(ctx context.Context, upd ShipmentUpdate) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if upd.Error != nil && *upd.Error != "" {
		_, err := tx.Exec(ctx, `
UPDATE shipments
SET
  last_checked_at = $2,
  check_fail_count = check_fail_count + 1,
  last_error = $3,
  next_check_at = $4,
  updated_at = now()
WHERE id = $1
`, upd.ShipmentID, upd.CheckedAt.UTC(), *upd.Error, upd.NextCheckAt.UTC())
		if err != nil {
			return errors.Wrap(err, "update shipment (error)")
		}
	} else {
		_, err := tx.Exec(ctx, `
UPDATE shipments
SET
  status = $3,
  status_code = $4,
  status_description = $5,
  delivery_signature = $6,
  ship_time = $7,
  status_at = $8,
  last_checked_at = $2,
  check_fail_count = 0,
  last_error = NULL,
  next_check_at = $9,
  updated_at = now()
WHERE id = $1
`, upd.ShipmentID, upd.CheckedAt.UTC(), string(upd.Status), upd.StatusCode, upd.StatusDescription,
			upd.DeliverySignature, upd.ShipTime, upd.StatusAt, upd.NextCheckAt.UTC())
		if err != nil {
			return errors.Wrap(err, "update shipment (ok)")
		}

		batch := &pgx.Batch{}
		for _, e := range upd.Events {
			batch.Queue(`
INSERT INTO shipment_events (
  shipment_id, event_time, name, city, state, postal_code, country_code, created_at
)
VALUES ($1,$2,$3,$4,$5,$6,$7, now())
ON CONFLICT (shipment_id, event_time, name, country_code, postal_code, city) DO NOTHING
`, upd.ShipmentID, e.Time.UTC(), e.Name, e.Location.City, e.Location.State, e.Location.PostalCode, e.Location.CountryCode)
		}
		if batch.Len() > 0 {
			if err := tx.SendBatch(ctx, batch).Close(); err != nil {
				return errors.Wrap(err, "insert shipment events")
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit tx")
	}
	return nil
}
