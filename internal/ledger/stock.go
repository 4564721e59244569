package ledger

import (
	"errors"
	"fmt"
)

// StockEpsilon absorbs float noise from parsing decimal strings such as "1000.700".
// It must not be loosened.
const StockEpsilon = 0.001

// ErrStockLimit is returned when a weight addition would exceed available stock.
var ErrStockLimit = errors.New("stock limit exceeded")

// StockLimitError carries the numbers behind a rejected addition.
type StockLimitError struct {
	Accumulated float64
	Increment   float64
	Available   float64
}

func (e *StockLimitError) Error() string {
	return fmt.Sprintf("%s: %s + %s KG exceeds available %s KG", ErrStockLimit,
		FormatAmount(e.Accumulated), FormatAmount(e.Increment), FormatAmount(e.Available))
}

func (e *StockLimitError) Unwrap() error {
	return ErrStockLimit
}

// CanAdd reports whether increment can be added to current without exceeding available stock.
func CanAdd(current, increment, available float64) bool {
	return !(current+increment > available+StockEpsilon)
}

// IsOverStock reports whether a total weight exceeds available stock.
func IsOverStock(weight, available float64) bool {
	return weight > available+StockEpsilon
}

// SaleDraft is the screen-local state of one sale, built up weight by weight.
type SaleDraft struct {
	AvailableStock    float64
	PreviousBalance   float64
	AccumulatedWeight float64
	Rate              float64
	Cash              float64
	UPI               float64
}

// NewSaleDraft starts an empty draft against a stock snapshot and the customer's balance.
func NewSaleDraft(availableStock, previousBalance float64) *SaleDraft {
	return &SaleDraft{AvailableStock: availableStock, PreviousBalance: previousBalance}
}

// AddWeight adds one weighed increment. Non-positive increments are ignored.
// A rejected increment leaves the draft unchanged.
func (d *SaleDraft) AddWeight(increment float64) (bool, error) {
	if increment <= 0 {
		return false, nil
	}
	if !CanAdd(d.AccumulatedWeight, increment, d.AvailableStock) {
		return false, &StockLimitError{
			Accumulated: d.AccumulatedWeight,
			Increment:   increment,
			Available:   d.AvailableStock,
		}
	}
	d.AccumulatedWeight += increment
	return true, nil
}

// AddWeightInput parses a raw increment and adds it.
func (d *SaleDraft) AddWeightInput(s string) (bool, error) {
	return d.AddWeight(ParseAmount(s))
}

// ClearWeight drops every weighed increment.
func (d *SaleDraft) ClearWeight() {
	d.AccumulatedWeight = 0
}

// SetPayment stores the rate and payments from raw form input.
func (d *SaleDraft) SetPayment(rate, cash, upi string) {
	d.Rate = ParseAmount(rate)
	d.Cash = ParseAmount(cash)
	d.UPI = ParseAmount(upi)
}

// OverStock reports whether the accumulated weight is beyond the snapshot.
func (d *SaleDraft) OverStock() bool {
	return IsOverStock(d.AccumulatedWeight, d.AvailableStock)
}

// Reconcile computes the bill and new balance for the current draft.
func (d *SaleDraft) Reconcile() Reconciliation {
	return Reconcile(d.PreviousBalance, d.AccumulatedWeight, d.Rate, d.Cash, d.UPI)
}
