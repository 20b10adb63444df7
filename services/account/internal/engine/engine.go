package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"brokerage/services/account/internal/event"
	"brokerage/services/account/internal/storage"
)

const (
	StatusMatched   = "MATCHED"
	StatusCancelled = "CANCELLED"
)

// Outcome is the settlement verdict for a single order. A domain rejection
// (missing or insufficient balance) is a CANCELLED outcome, not an error;
// errors are reserved for infrastructure failures.
type Outcome struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
}

func Matched(orderID string) Outcome {
	return Outcome{OrderID: orderID, Status: StatusMatched}
}

func Cancelled(orderID string) Outcome {
	return Outcome{OrderID: orderID, Status: StatusCancelled}
}

// Store is the ledger persistence port. SaveAtomic persists every given row
// in a single transaction; callers hand it absolute balances, not deltas.
type Store interface {
	FindBySymbol(ctx context.Context, customerID, assetName string) (*storage.Asset, error)
	ExistsBySymbol(ctx context.Context, customerID, assetName string) (bool, error)
	SaveAtomic(ctx context.Context, assets ...*storage.Asset) error
}

// Engine settles received orders against the asset ledger. Orders of the same
// customer are serialized through a per-customer mutex so the read-check-write
// sequence cannot interleave; distinct customers settle concurrently.
type Engine struct {
	store    Store
	currency string
	logger   *slog.Logger
	locks    sync.Map
}

func New(store Store, currencySymbol string, logger *slog.Logger) *Engine {
	return &Engine{store: store, currency: currencySymbol, logger: logger}
}

func (e *Engine) Process(ctx context.Context, received event.ReceivedOrder) (Outcome, error) {
	order := received.Order()

	unlock := e.lock(order.CustomerID)
	defer unlock()

	if order.Size.IsZero() {
		return Matched(order.ID), nil
	}

	switch received.(type) {
	case event.BuyOrderReceived:
		return e.settleBuy(ctx, order)
	case event.SellOrderReceived:
		return e.settleSell(ctx, order)
	default:
		return Outcome{}, fmt.Errorf("unsupported order event type %T", received)
	}
}

func (e *Engine) settleBuy(ctx context.Context, order event.OrderSnapshot) (Outcome, error) {
	total := order.TotalPrice()

	currency, err := e.store.FindBySymbol(ctx, order.CustomerID, e.currency)
	if errors.Is(err, storage.ErrNotFound) {
		e.logger.Info("order cancelled, customer holds no currency asset",
			"order_id", order.ID, "customer_id", order.CustomerID)
		return Cancelled(order.ID), nil
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("load currency asset: %w", err)
	}

	if currency.UsableSize.LessThan(total) {
		e.logger.Info("order cancelled, insufficient funds",
			"order_id", order.ID, "customer_id", order.CustomerID,
			"required", total, "usable", currency.UsableSize)
		return Cancelled(order.ID), nil
	}

	currency.TotalSize = currency.TotalSize.Sub(total)
	currency.UsableSize = currency.UsableSize.Sub(total)

	asset, err := e.store.FindBySymbol(ctx, order.CustomerID, order.AssetName)
	if errors.Is(err, storage.ErrNotFound) {
		asset = &storage.Asset{CustomerID: order.CustomerID, AssetName: order.AssetName}
		err = nil
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("load bought asset: %w", err)
	}

	asset.TotalSize = asset.TotalSize.Add(order.Size)
	asset.UsableSize = asset.UsableSize.Add(order.Size)

	if err := e.store.SaveAtomic(ctx, currency, asset); err != nil {
		return Outcome{}, fmt.Errorf("persist buy settlement: %w", err)
	}
	return Matched(order.ID), nil
}

func (e *Engine) settleSell(ctx context.Context, order event.OrderSnapshot) (Outcome, error) {
	asset, err := e.store.FindBySymbol(ctx, order.CustomerID, order.AssetName)
	if errors.Is(err, storage.ErrNotFound) {
		e.logger.Info("order cancelled, customer holds no such asset",
			"order_id", order.ID, "customer_id", order.CustomerID, "asset_name", order.AssetName)
		return Cancelled(order.ID), nil
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("load sold asset: %w", err)
	}

	if asset.UsableSize.LessThan(order.Size) {
		e.logger.Info("order cancelled, insufficient holdings",
			"order_id", order.ID, "customer_id", order.CustomerID,
			"required", order.Size, "usable", asset.UsableSize)
		return Cancelled(order.ID), nil
	}

	asset.TotalSize = asset.TotalSize.Sub(order.Size)
	asset.UsableSize = asset.UsableSize.Sub(order.Size)

	currency, err := e.currencyForCredit(ctx, order.CustomerID)
	if err != nil {
		return Outcome{}, err
	}

	total := order.TotalPrice()
	currency.TotalSize = currency.TotalSize.Add(total)
	currency.UsableSize = currency.UsableSize.Add(total)

	if err := e.store.SaveAtomic(ctx, asset, currency); err != nil {
		return Outcome{}, fmt.Errorf("persist sell settlement: %w", err)
	}
	return Matched(order.ID), nil
}

// currencyForCredit loads the customer's currency row, bootstrapping a zeroed
// row first when the customer has never held currency. The zero row is
// persisted on its own so a later crash leaves a visible, consistent balance.
func (e *Engine) currencyForCredit(ctx context.Context, customerID string) (*storage.Asset, error) {
	exists, err := e.store.ExistsBySymbol(ctx, customerID, e.currency)
	if err != nil {
		return nil, fmt.Errorf("check currency asset: %w", err)
	}
	if !exists {
		zero := &storage.Asset{CustomerID: customerID, AssetName: e.currency}
		if err := e.store.SaveAtomic(ctx, zero); err != nil {
			return nil, fmt.Errorf("bootstrap currency asset: %w", err)
		}
		return zero, nil
	}

	currency, err := e.store.FindBySymbol(ctx, customerID, e.currency)
	if err != nil {
		return nil, fmt.Errorf("load currency asset: %w", err)
	}
	return currency, nil
}

func (e *Engine) lock(customerID string) func() {
	v, _ := e.locks.LoadOrStore(customerID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
