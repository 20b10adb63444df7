package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) FindBySymbol(ctx context.Context, customerID, assetName string) (*Asset, error) {
	var asset Asset
	var totalStr, usableStr string
	row := s.pool.QueryRow(ctx, `
		SELECT id, customer_id, asset_name, total_size::text, usable_size::text, updated_at
		FROM assets
		WHERE customer_id = $1 AND asset_name = $2
	`, customerID, assetName)

	if err := row.Scan(&asset.ID, &asset.CustomerID, &asset.AssetName, &totalStr, &usableStr, &asset.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var err error
	asset.TotalSize, err = decimal.NewFromString(totalStr)
	if err != nil {
		return nil, fmt.Errorf("parse total size: %w", err)
	}
	asset.UsableSize, err = decimal.NewFromString(usableStr)
	if err != nil {
		return nil, fmt.Errorf("parse usable size: %w", err)
	}
	return &asset, nil
}

func (s *Store) ExistsBySymbol(ctx context.Context, customerID, assetName string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM assets WHERE customer_id = $1 AND asset_name = $2
		)
	`, customerID, assetName).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// SaveAtomic writes every given row in one transaction. Rows carry absolute
// balances; an advisory lock per customer serializes writers racing on the
// same customer across service instances.
func (s *Store) SaveAtomic(ctx context.Context, assets ...*Asset) error {
	if len(assets) == 0 {
		return nil
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	for _, customerID := range distinctCustomers(assets) {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, customerID); err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	for _, asset := range assets {
		var id uuid.UUID
		err := tx.QueryRow(ctx, `
			INSERT INTO assets (id, customer_id, asset_name, total_size, usable_size, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (customer_id, asset_name) DO UPDATE
			SET total_size = EXCLUDED.total_size,
			    usable_size = EXCLUDED.usable_size,
			    updated_at = EXCLUDED.updated_at
			RETURNING id
		`, newID(asset.ID), asset.CustomerID, asset.AssetName,
			asset.TotalSize.String(), asset.UsableSize.String(), now).Scan(&id)
		if err != nil {
			return err
		}
		asset.ID = id
		asset.UpdatedAt = now
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	committed = true
	return nil
}

func (s *Store) CreateAsset(ctx context.Context, asset *Asset) error {
	now := time.Now().UTC()
	err := s.pool.QueryRow(ctx, `
		INSERT INTO assets (id, customer_id, asset_name, total_size, usable_size, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, uuid.New(), asset.CustomerID, asset.AssetName,
		asset.TotalSize.String(), asset.UsableSize.String(), now).Scan(&asset.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return err
	}
	asset.UpdatedAt = now
	return nil
}

func (s *Store) ListAssets(ctx context.Context, filter AssetFilter) ([]Asset, error) {
	query := strings.Builder{}
	query.WriteString(`
		SELECT id, customer_id, asset_name, total_size::text, usable_size::text, updated_at
		FROM assets
	`)
	var args []any
	var conds []string
	if filter.CustomerID != "" {
		args = append(args, filter.CustomerID)
		conds = append(conds, fmt.Sprintf("customer_id = $%d", len(args)))
	}
	if filter.AssetName != "" {
		args = append(args, filter.AssetName)
		conds = append(conds, fmt.Sprintf("asset_name = $%d", len(args)))
	}
	if len(conds) > 0 {
		query.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}
	query.WriteString(" ORDER BY customer_id, asset_name")

	rows, err := s.pool.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []Asset
	for rows.Next() {
		var asset Asset
		var totalStr, usableStr string
		if err := rows.Scan(&asset.ID, &asset.CustomerID, &asset.AssetName, &totalStr, &usableStr, &asset.UpdatedAt); err != nil {
			return nil, err
		}
		asset.TotalSize, err = decimal.NewFromString(totalStr)
		if err != nil {
			return nil, fmt.Errorf("parse total size: %w", err)
		}
		asset.UsableSize, err = decimal.NewFromString(usableStr)
		if err != nil {
			return nil, fmt.Errorf("parse usable size: %w", err)
		}
		assets = append(assets, asset)
	}
	return assets, rows.Err()
}

func distinctCustomers(assets []*Asset) []string {
	seen := make(map[string]struct{}, len(assets))
	var customers []string
	for _, a := range assets {
		if _, ok := seen[a.CustomerID]; ok {
			continue
		}
		seen[a.CustomerID] = struct{}{}
		customers = append(customers, a.CustomerID)
	}
	sort.Strings(customers)
	return customers
}

func newID(id uuid.UUID) uuid.UUID {
	if id == uuid.Nil {
		return uuid.New()
	}
	return id
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
