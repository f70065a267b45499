package pgtracking

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/BearBump/ShipGate/internal/models"
)

const shipmentColumns = `
  id, carrier_code, tracking_number,
  status, status_code, status_description,
  delivery_signature, ship_time, status_at,
  last_checked_at, next_check_at,
  check_fail_count, last_error,
  created_at, updated_at`

func scanShipment(row pgx.Row) (*models.Shipment, error) {
	var sh models.Shipment
	var status string
	if err := row.Scan(
		&sh.ID, &sh.CarrierCode, &sh.TrackingNumber,
		&status, &sh.StatusCode, &sh.StatusDescription,
		&sh.DeliverySignature, &sh.ShipTime, &sh.StatusAt,
		&sh.LastCheckedAt, &sh.NextCheckAt,
		&sh.CheckFailCount, &sh.LastError,
		&sh.CreatedAt, &sh.UpdatedAt,
	); err != nil {
		return nil, err
	}
	sh.Status = models.TrackingStatus(status)
	return &sh, nil
}

func collectShipments(rows pgx.Rows, capacity int) ([]*models.Shipment, error) {
	defer rows.Close()

	out := make([]*models.Shipment, 0, capacity)
	for rows.Next() {
		sh, err := scanShipment(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan shipment")
		}
		out = append(out, sh)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func (s *Storage) CreateOrGetShipments(ctx context.Context, items []models.ShipmentCreateInput) ([]*models.Shipment, error) {
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ids := make([]uint64, 0, len(items))
	for _, it := range items {
		var id uint64
		err := tx.QueryRow(ctx, `
INSERT INTO shipments (
  carrier_code, tracking_number, status, next_check_at, created_at, updated_at
)
VALUES ($1,$2,$3,$4,$4,$4)
ON CONFLICT (carrier_code, tracking_number)
DO UPDATE SET updated_at = shipments.updated_at
RETURNING id
`, it.CarrierCode, it.TrackingNumber, string(models.TrackingStatusUnknown), now).Scan(&id)
		if err != nil {
			return nil, errors.Wrap(err, "insert shipment")
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit tx")
	}

	return s.GetShipmentsByIDs(ctx, ids)
}

func (s *Storage) GetShipmentsByIDs(ctx context.Context, ids []uint64) ([]*models.Shipment, error) {
	if len(ids) == 0 {
		return []*models.Shipment{}, nil
	}

	rows, err := s.db.Query(ctx, `SELECT`+shipmentColumns+`
FROM shipments
WHERE id = ANY($1)
`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "select shipments")
	}
	return collectShipments(rows, len(ids))
}

// ListShipments pages through shipments, newest first. An empty status
// matches every shipment.
func (s *Storage) ListShipments(ctx context.Context, status models.TrackingStatus, limit, offset int) ([]*models.Shipment, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.Query(ctx, `SELECT`+shipmentColumns+`
FROM shipments
WHERE ($1 = '' OR status = $1)
ORDER BY id DESC
LIMIT $2 OFFSET $3
`, string(status), limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "list shipments")
	}
	return collectShipments(rows, limit)
}

func (s *Storage) RefreshShipment(ctx context.Context, shipmentID uint64) error {
	tag, err := s.db.Exec(ctx, `UPDATE shipments SET next_check_at = now(), updated_at = now() WHERE id = $1`, shipmentID)
	if err != nil {
		return errors.Wrap(err, "refresh shipment")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ClaimDueShipments выбирает пачку отправлений, готовых к проверке, и "бронирует" их,
// чтобы они не попадали в повторную выборку, пока воркер их обрабатывает.
// Финальные статусы (DELIVERED, CANCELED) больше не опрашиваются.
func (s *Storage) ClaimDueShipments(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]*models.Shipment, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `SELECT`+shipmentColumns+`
FROM shipments
WHERE next_check_at <= $1
  AND status <> ALL($2)
ORDER BY next_check_at ASC
LIMIT $3
FOR UPDATE SKIP LOCKED
`, now.UTC(), []string{string(models.TrackingStatusDelivered), string(models.TrackingStatusCanceled)}, limit)
	if err != nil {
		return nil, errors.Wrap(err, "select due shipments")
	}
	picked, err := collectShipments(rows, limit)
	if err != nil {
		return nil, err
	}

	leaseUntil := now.UTC().Add(lease)
	for _, sh := range picked {
		if _, err := tx.Exec(ctx, `UPDATE shipments SET next_check_at = $2, updated_at = now() WHERE id = $1`, sh.ID, leaseUntil); err != nil {
			return nil, errors.Wrap(err, "lease shipment")
		}
		sh.NextCheckAt = leaseUntil
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit tx")
	}
	return picked, nil
}
