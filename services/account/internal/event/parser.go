package event

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseError marks a change event that cannot be turned into a ReceivedOrder.
// The consumer logs and drops such messages; they are never retried.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return e.Reason
	}
	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Parse decodes a raw change-event envelope into the side-specific variant.
// It is pure: no I/O, no side effects.
func (p *Parser) Parse(raw []byte) (ReceivedOrder, error) {
	if len(raw) == 0 {
		return nil, &ParseError{Reason: "empty change event"}
	}

	var envelope ChangeEvent
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, &ParseError{Reason: "decode change event", Err: err}
	}

	if envelope.Op != opCreate && envelope.Op != opUpdate {
		return nil, &ParseError{Reason: fmt.Sprintf("unsupported op %q", envelope.Op)}
	}

	after := envelope.After
	if strings.TrimSpace(after.ID) == "" {
		return nil, &ParseError{Reason: "order id is required"}
	}
	if strings.TrimSpace(after.CustomerID) == "" {
		return nil, &ParseError{Reason: "customer id is required"}
	}
	if strings.TrimSpace(after.AssetName) == "" {
		return nil, &ParseError{Reason: "asset name is required"}
	}

	switch after.OrderSide {
	case SideBuy:
		return NewBuyOrderReceived(after), nil
	case SideSell:
		return NewSellOrderReceived(after), nil
	default:
		return nil, &ParseError{Reason: fmt.Sprintf("unknown order side %q", after.OrderSide)}
	}
}
