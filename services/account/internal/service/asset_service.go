package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"brokerage/services/account/internal/storage"
)

var ErrInvalidInput = errors.New("invalid input")

type AssetStore interface {
	CreateAsset(ctx context.Context, asset *storage.Asset) error
	ListAssets(ctx context.Context, filter storage.AssetFilter) ([]storage.Asset, error)
}

// AssetService backs the admin asset API: seeding balances (deposits) and
// inspecting customer holdings. Settlement itself never goes through here.
type AssetService struct {
	store   AssetStore
	metrics *Metrics
	logger  *slog.Logger
}

func NewAssetService(store AssetStore, metrics *Metrics, logger *slog.Logger) *AssetService {
	return &AssetService{store: store, metrics: metrics, logger: logger}
}

type CreateAssetInput struct {
	CustomerID string
	AssetName  string
	Size       decimal.Decimal
}

func (s *AssetService) Create(ctx context.Context, input CreateAssetInput) (*storage.Asset, error) {
	customerID := strings.TrimSpace(input.CustomerID)
	if customerID == "" {
		return nil, fmt.Errorf("%w: customer_id is required", ErrInvalidInput)
	}
	assetName := strings.ToUpper(strings.TrimSpace(input.AssetName))
	if assetName == "" {
		return nil, fmt.Errorf("%w: asset_name is required", ErrInvalidInput)
	}
	if input.Size.IsNegative() {
		return nil, fmt.Errorf("%w: size must not be negative", ErrInvalidInput)
	}

	asset := &storage.Asset{
		CustomerID: customerID,
		AssetName:  assetName,
		TotalSize:  input.Size,
		UsableSize: input.Size,
	}
	if err := s.store.CreateAsset(ctx, asset); err != nil {
		return nil, err
	}

	s.metrics.AssetCreations.Inc()
	s.logger.Info("asset created",
		"customer_id", asset.CustomerID, "asset_name", asset.AssetName, "size", asset.TotalSize)
	return asset, nil
}

func (s *AssetService) List(ctx context.Context, filter storage.AssetFilter) ([]storage.Asset, error) {
	filter.AssetName = strings.ToUpper(strings.TrimSpace(filter.AssetName))
	return s.store.ListAssets(ctx, filter)
}
