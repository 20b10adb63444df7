package storage

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound      = errors.New("asset not found")
	ErrAlreadyExists = errors.New("asset already exists")
)

// Asset is one ledger row: the per-customer, per-symbol balance. Total and
// usable size always move by the identical delta; there is no hold mechanism.
type Asset struct {
	ID         uuid.UUID
	CustomerID string
	AssetName  string
	TotalSize  decimal.Decimal
	UsableSize decimal.Decimal
	UpdatedAt  time.Time
}

type AssetFilter struct {
	CustomerID string
	AssetName  string
}
