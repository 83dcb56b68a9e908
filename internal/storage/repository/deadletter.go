package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/shipforge/payment-ledger/internal/models"
)

// SaveUnprocessedOrder dead-letters a vendor order the importer could not
// attribute to a user, keeping the raw payload for manual reconciliation.
// The order is keyed by (processor, order_id): a repeated import of the same
// order returns the existing row instead of inserting again, so the boolean
// reports whether a new row was created.
func (s *Storage) SaveUnprocessedOrder(ctx context.Context, order models.OrderData, reason string) (int, bool, error) {
	const op = "repository.SaveUnprocessedOrder"
	select {
	case <-ctx.Done():
		return 0, false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var existingID int
	err := s.DB.QueryRowContext(ctx,
		`SELECT id FROM unprocessed_orders WHERE processor = $1 AND order_id = $2`,
		order.Processor, order.OrderID).Scan(&existingID)
	if err == nil {
		return existingID, false, nil
	}
	if err != sql.ErrNoRows {
		return 0, false, fmt.Errorf("%s: %w", op, err)
	}

	payload, err := json.Marshal(order)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", op, err)
	}

	query := `INSERT INTO unprocessed_orders (processor, order_id, reason, payload)
			  VALUES ($1, $2, $3, $4) RETURNING id`
	var newID int
	if err := s.DB.QueryRowContext(ctx, query,
		order.Processor, order.OrderID, reason, payload).Scan(&newID); err != nil {
		return 0, false, fmt.Errorf("%s: %w", op, err)
	}
	return newID, true, nil
}

// ListUnprocessedOrders returns dead-lettered orders with pagination.
func (s *Storage) ListUnprocessedOrders(ctx context.Context, limit, offset int) ([]*models.DeadLetterOrder, error) {
	const op = "repository.ListUnprocessedOrders"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, processor, order_id, reason, payload, created_at
			  FROM unprocessed_orders
			  ORDER BY created_at DESC
			  LIMIT $1 OFFSET $2`
	rows, err := s.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.DeadLetterOrder
	for rows.Next() {
		var item models.DeadLetterOrder
		var payload []byte
		if err := rows.Scan(&item.ID, &item.Processor, &item.OrderID,
			&item.Reason, &payload, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &item.Payload); err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
