package event

import (
	"github.com/shopspring/decimal"
)

const (
	SideBuy  = "BUY"
	SideSell = "SELL"

	opCreate = "c"
	opUpdate = "u"
)

// OrderSnapshot is the immutable order image carried by a change event. Price
// and size arrive as decimal strings on the wire.
type OrderSnapshot struct {
	ID         string          `json:"id"`
	AssetName  string          `json:"asset_name"`
	CreateDate int64           `json:"create_date"`
	CustomerID string          `json:"customer_id"`
	OrderSide  string          `json:"order_side"`
	Price      decimal.Decimal `json:"price"`
	Size       decimal.Decimal `json:"size"`
	Status     string          `json:"status"`
}

func (s OrderSnapshot) TotalPrice() decimal.Decimal {
	return s.Price.Mul(s.Size)
}

// ChangeEvent is the Debezium-style envelope produced on the orders topic.
type ChangeEvent struct {
	Op    string        `json:"op"`
	After OrderSnapshot `json:"after"`
}

// ReceivedOrder is the tagged union the parser produces and the ledger engine
// consumes. The interface is sealed: Buy and Sell are the only variants, and
// every switch over it must treat an unknown variant as a programming error.
type ReceivedOrder interface {
	Order() OrderSnapshot
	receivedOrder()
}

type BuyOrderReceived struct {
	order OrderSnapshot
}

func NewBuyOrderReceived(order OrderSnapshot) BuyOrderReceived {
	return BuyOrderReceived{order: order}
}

func (e BuyOrderReceived) Order() OrderSnapshot { return e.order }
func (e BuyOrderReceived) receivedOrder()       {}

type SellOrderReceived struct {
	order OrderSnapshot
}

func NewSellOrderReceived(order OrderSnapshot) SellOrderReceived {
	return SellOrderReceived{order: order}
}

func (e SellOrderReceived) Order() OrderSnapshot { return e.order }
func (e SellOrderReceived) receivedOrder()       {}
