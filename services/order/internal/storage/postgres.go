package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) CreateOrder(ctx context.Context, order *Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	now := time.Now().UTC()
	if order.CreateDate.IsZero() {
		order.CreateDate = now
	}
	order.UpdatedAt = now
	order.Status = OrderStatusPending

	_, err := s.pool.Exec(ctx, `
		INSERT INTO orders (id, customer_id, asset_name, order_side, size, price, status, create_date, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, order.ID, order.CustomerID, order.AssetName, order.OrderSide,
		order.Size.String(), order.Price.String(), order.Status, order.CreateDate, order.UpdatedAt)
	return err
}

func (s *Store) GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, customer_id, asset_name, order_side, size::text, price::text, status, create_date, updated_at
		FROM orders
		WHERE id = $1
	`, id)
	return scanOrder(row)
}

func (s *Store) ListOrders(ctx context.Context, filter OrderFilter) ([]Order, error) {
	query := strings.Builder{}
	query.WriteString(`
		SELECT id, customer_id, asset_name, order_side, size::text, price::text, status, create_date, updated_at
		FROM orders
	`)
	var args []any
	var conds []string
	if filter.CustomerID != "" {
		args = append(args, filter.CustomerID)
		conds = append(conds, fmt.Sprintf("customer_id = $%d", len(args)))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		conds = append(conds, fmt.Sprintf("create_date >= $%d", len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		conds = append(conds, fmt.Sprintf("create_date <= $%d", len(args)))
	}
	if len(conds) > 0 {
		query.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}
	query.WriteString(" ORDER BY create_date DESC")

	rows, err := s.pool.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	return orders, rows.Err()
}

// CancelOrder flips a pending order to CANCELLED. The status guard lives in
// the WHERE clause so two racing cancels cannot both succeed.
func (s *Store) CancelOrder(ctx context.Context, id uuid.UUID, customerID string) (*Order, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE orders
		SET status = $1, updated_at = $2
		WHERE id = $3 AND customer_id = $4 AND status = $5
		RETURNING id, customer_id, asset_name, order_side, size::text, price::text, status, create_date, updated_at
	`, OrderStatusCancelled, time.Now().UTC(), id, customerID, OrderStatusPending)

	order, err := scanOrder(row)
	if errors.Is(err, ErrNotFound) {
		// Distinguish a missing order from one past cancelation.
		existing, getErr := s.GetOrderByID(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		if existing.CustomerID != customerID {
			return nil, ErrNotFound
		}
		return nil, ErrInvalidStatus
	}
	return order, err
}

// ApplyOutcome overwrites the order status with the settlement verdict. The
// write is unconditional: a late or duplicate outcome always wins.
func (s *Store) ApplyOutcome(ctx context.Context, id uuid.UUID, status string) (*Order, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE orders
		SET status = $1, updated_at = $2
		WHERE id = $3
		RETURNING id, customer_id, asset_name, order_side, size::text, price::text, status, create_date, updated_at
	`, status, time.Now().UTC(), id)
	return scanOrder(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*Order, error) {
	var order Order
	var sizeStr, priceStr string
	if err := row.Scan(&order.ID, &order.CustomerID, &order.AssetName, &order.OrderSide,
		&sizeStr, &priceStr, &order.Status, &order.CreateDate, &order.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var err error
	order.Size, err = decimal.NewFromString(sizeStr)
	if err != nil {
		return nil, fmt.Errorf("parse size: %w", err)
	}
	order.Price, err = decimal.NewFromString(priceStr)
	if err != nil {
		return nil, fmt.Errorf("parse price: %w", err)
	}
	return &order, nil
}
