package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/shipforge/payment-ledger/internal/models"
)

// CreatePayment inserts a new ledger entry and returns its ID.
func (s *Storage) CreatePayment(ctx context.Context, p models.Payment) (int, error) {
	const op = "repository.CreatePayment"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	metadata, err := marshalPaymentMetadata(p.Metadata)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	query := `INSERT INTO payments (order_id, processor_order_id, user_uid, amount,
			      status, processor, product_name, metadata, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9, NOW()))
			  RETURNING id`
	var newID int
	var createdAt any
	if !p.CreatedAt.IsZero() {
		createdAt = p.CreatedAt
	}
	err = s.DB.QueryRowContext(ctx, query,
		p.OrderID, p.ProcessorOrderID, p.UserUID, p.Amount,
		p.Status, p.Processor, p.ProductName, metadata, createdAt).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// FindPaymentByOrderID resolves a ledger entry by processor and vendor order
// id, matching either the stored order_id or processor_order_id since
// historical rows are inconsistent about which one carries the raw vendor id.
// Vendor ids are only unique within one processor, so the processor is part
// of the key.
func (s *Storage) FindPaymentByOrderID(ctx context.Context, processor, orderID string) (*models.Payment, bool, error) {
	const op = "repository.FindPaymentByOrderID"
	select {
	case <-ctx.Done():
		return nil, false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := paymentSelect + ` WHERE processor = $1 AND (order_id = $2 OR processor_order_id = $2)`
	p, err := scanPayment(s.DB.QueryRowContext(ctx, query, processor, orderID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return p, true, nil
}

// UpdatePayment overwrites the mutable fields of an existing ledger entry.
// Status-transition rules are the caller's responsibility.
func (s *Storage) UpdatePayment(ctx context.Context, id int, amount int64, status string, userUID *string, metadata *models.PaymentMetadata) error {
	const op = "repository.UpdatePayment"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	md, err := marshalPaymentMetadata(metadata)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	query := `UPDATE payments
			  SET amount = $1, status = $2,
			      user_uid = COALESCE($3, user_uid),
			      metadata = $4, updated_at = NOW()
			  WHERE id = $5`
	if _, err := s.DB.ExecContext(ctx, query, amount, status, userUID, md, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListPaymentsByUser returns a user's ledger entries with pagination.
func (s *Storage) ListPaymentsByUser(ctx context.Context, userUID string, limit, offset int) ([]*models.Payment, error) {
	const op = "repository.ListPaymentsByUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := paymentSelect + `
			  WHERE user_uid = $1
			  ORDER BY created_at DESC
			  LIMIT $2 OFFSET $3`
	return s.listPayments(ctx, op, query, userUID, limit, offset)
}

// ListAllPayments returns all ledger entries with pagination.
func (s *Storage) ListAllPayments(ctx context.Context, limit, offset int) ([]*models.Payment, error) {
	const op = "repository.ListAllPayments"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := paymentSelect + `
			  ORDER BY created_at DESC
			  LIMIT $1 OFFSET $2`
	return s.listPayments(ctx, op, query, limit, offset)
}

// HasCompletedPayment reports whether any completed ledger entry exists for
// the user.
func (s *Storage) HasCompletedPayment(ctx context.Context, userUID string) (bool, error) {
	const op = "repository.HasCompletedPayment"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT EXISTS (
			      SELECT 1 FROM payments WHERE user_uid = $1 AND status = 'completed'
			  )`
	var exists bool
	if err := s.DB.QueryRowContext(ctx, query, userUID).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// HasCompletedPaymentForProduct reports whether the user has a completed
// ledger entry for the given product, matched on the stored product id or
// product name.
func (s *Storage) HasCompletedPaymentForProduct(ctx context.Context, userUID, productID string) (bool, error) {
	const op = "repository.HasCompletedPaymentForProduct"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT EXISTS (
			      SELECT 1 FROM payments
			      WHERE user_uid = $1 AND status = 'completed'
			        AND (product_name = $2 OR metadata->>'product_id' = $2)
			  )`
	var exists bool
	if err := s.DB.QueryRowContext(ctx, query, userUID, productID).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

func (s *Storage) listPayments(ctx context.Context, op, query string, args ...any) ([]*models.Payment, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

const paymentSelect = `SELECT id, order_id, processor_order_id, user_uid, amount,
			      status, processor, product_name, metadata, created_at, updated_at
			  FROM payments`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(row rowScanner) (*models.Payment, error) {
	p := &models.Payment{}
	var (
		userUID  sql.NullString
		metadata []byte
	)
	if err := row.Scan(&p.ID, &p.OrderID, &p.ProcessorOrderID, &userUID, &p.Amount,
		&p.Status, &p.Processor, &p.ProductName, &metadata, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if userUID.Valid {
		p.UserUID = &userUID.String
	}
	if len(metadata) > 0 {
		var md models.PaymentMetadata
		if err := json.Unmarshal(metadata, &md); err != nil {
			return nil, err
		}
		p.Metadata = &md
	}
	return p, nil
}

func marshalPaymentMetadata(md *models.PaymentMetadata) ([]byte, error) {
	if md == nil {
		return nil, nil
	}
	return json.Marshal(md)
}
