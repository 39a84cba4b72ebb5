package pmxt

import (
	"errors"
	"testing"
)

func validParams() *OrderParams {
	return &OrderParams{
		MarketID:  "BTC-100K",
		OutcomeID: "token-abc",
		Side:      SideBuy,
		Type:      OrderTypeLimit,
		Price:     0.55,
		Amount:    10,
	}
}

func TestValidate_Success(t *testing.T) {
	if err := validParams().Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidate_InvalidSide(t *testing.T) {
	p := validParams()
	p.Side = "hold"

	if err := p.Validate(); !errors.Is(err, ErrInvalidSide) {
		t.Fatalf("expected ErrInvalidSide, got %v", err)
	}
}

func TestValidate_InvalidType(t *testing.T) {
	p := validParams()
	p.Type = "stop"

	if err := p.Validate(); !errors.Is(err, ErrInvalidType) {
		t.Fatalf("expected ErrInvalidType, got %v", err)
	}
}

func TestValidate_LimitWithoutPrice(t *testing.T) {
	p := validParams()
	p.Price = 0

	if err := p.Validate(); !errors.Is(err, ErrPriceMissing) {
		t.Fatalf("expected ErrPriceMissing, got %v", err)
	}
}

func TestValidate_PriceTooHigh(t *testing.T) {
	p := validParams()
	p.Price = 1.0

	if err := p.Validate(); !errors.Is(err, ErrPriceOutOfRange) {
		t.Fatalf("expected ErrPriceOutOfRange, got %v", err)
	}
}

func TestValidate_PriceAtBoundaries(t *testing.T) {
	// Just above 0 — should pass.
	p := validParams()
	p.Price = 0.01
	if err := p.Validate(); err != nil {
		t.Fatalf("price 0.01 should be valid, got %v", err)
	}

	// Just below 1 — should pass.
	p = validParams()
	p.Price = 0.99
	if err := p.Validate(); err != nil {
		t.Fatalf("price 0.99 should be valid, got %v", err)
	}
}

func TestValidate_MarketOrderSkipsPriceCheck(t *testing.T) {
	p := validParams()
	p.Type = OrderTypeMarket
	p.Price = 0

	if err := p.Validate(); err != nil {
		t.Fatalf("market order with zero price should be valid, got %v", err)
	}
}

func TestValidate_MissingOutcome(t *testing.T) {
	p := validParams()
	p.OutcomeID = ""

	if err := p.Validate(); !errors.Is(err, ErrOutcomeMissing) {
		t.Fatalf("expected ErrOutcomeMissing, got %v", err)
	}
}

func TestValidate_AmountTooLow(t *testing.T) {
	p := validParams()
	p.Amount = 0

	if err := p.Validate(); !errors.Is(err, ErrAmountTooLow) {
		t.Fatalf("expected ErrAmountTooLow, got %v", err)
	}
}

func TestValidate_SellSide(t *testing.T) {
	p := validParams()
	p.Side = SideSell

	if err := p.Validate(); err != nil {
		t.Fatalf("sell order should be valid, got %v", err)
	}
}
