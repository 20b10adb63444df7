package storage

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	OrderStatusPending   = "PENDING"
	OrderStatusMatched   = "MATCHED"
	OrderStatusCancelled = "CANCELLED"

	OrderSideBuy  = "BUY"
	OrderSideSell = "SELL"
)

var (
	ErrNotFound      = errors.New("order not found")
	ErrInvalidStatus = errors.New("order is not in a cancelable status")
)

type Order struct {
	ID         uuid.UUID
	CustomerID string
	AssetName  string
	OrderSide  string
	Size       decimal.Decimal
	Price      decimal.Decimal
	Status     string
	CreateDate time.Time
	UpdatedAt  time.Time
}

type OrderFilter struct {
	CustomerID string
	From       time.Time
	To         time.Time
}
