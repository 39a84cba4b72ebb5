package pmxt

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by OrderParams.Validate.
var (
	ErrInvalidSide     = errors.New("invalid order side")
	ErrInvalidType     = errors.New("invalid order type")
	ErrPriceMissing    = errors.New("price is required for limit orders")
	ErrPriceOutOfRange = errors.New("price out of valid range")
	ErrAmountTooLow    = errors.New("amount must be positive")
	ErrOutcomeMissing  = errors.New("outcome id is required")
)

// Validate runs pre-flight checks on an order submission. It fails fast:
// the first failing check returns an error and nothing is sent to the
// venue. Prediction-market prices are probabilities, so limit prices must
// lie strictly inside (0, 1).
func (p *OrderParams) Validate() error {
	if p.Side != SideBuy && p.Side != SideSell {
		return fmt.Errorf("%w: %q", ErrInvalidSide, p.Side)
	}
	if p.Type != OrderTypeLimit && p.Type != OrderTypeMarket {
		return fmt.Errorf("%w: %q", ErrInvalidType, p.Type)
	}
	if p.OutcomeID == "" {
		return ErrOutcomeMissing
	}
	if p.Type == OrderTypeLimit {
		if p.Price == 0 {
			return ErrPriceMissing
		}
		if p.Price <= 0 || p.Price >= 1 {
			return fmt.Errorf("%w: %.4f not in (0, 1)", ErrPriceOutOfRange, p.Price)
		}
	}
	if p.Amount <= 0 {
		return fmt.Errorf("%w: %.4f", ErrAmountTooLow, p.Amount)
	}
	return nil
}
