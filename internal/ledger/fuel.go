package ledger

import "fmt"

// FuelField names one of the three linked inputs on the fuel form.
type FuelField int

const (
	FuelQuantity FuelField = iota + 1
	FuelRate
	FuelAmount
)

func (f FuelField) String() string {
	switch f {
	case FuelQuantity:
		return "quantity"
	case FuelRate:
		return "rate"
	case FuelAmount:
		return "amount"
	}
	return fmt.Sprintf("FuelField(%d)", int(f))
}

// ParseFuelField maps a field name back to a FuelField.
func ParseFuelField(name string) (FuelField, error) {
	switch name {
	case "quantity":
		return FuelQuantity, nil
	case "rate":
		return FuelRate, nil
	case "amount":
		return FuelAmount, nil
	}
	return 0, fmt.Errorf("unknown fuel field %q", name)
}

// FuelState holds the raw quantity, rate and amount strings, where amount = quantity * rate.
type FuelState struct {
	Quantity string `json:"quantity"`
	Rate     string `json:"rate"`
	Amount   string `json:"amount"`
}

// Edit stores value into field and performs at most one derivation. It returns
// the field that was recomputed, if any. Derived values are rounded to two
// decimals when written.
func (s *FuelState) Edit(field FuelField, value string) (FuelField, bool) {
	switch field {
	case FuelQuantity:
		s.Quantity = value
		return s.deriveAmount()
	case FuelRate:
		s.Rate = value
		return s.deriveAmount()
	case FuelAmount:
		s.Amount = value
		return s.deriveFromAmount()
	}
	return 0, false
}

func (s *FuelState) deriveAmount() (FuelField, bool) {
	q, qok := ParseField(s.Quantity)
	r, rok := ParseField(s.Rate)
	if !qok || !rok {
		return 0, false
	}
	s.Amount = FormatAmount(q * r)
	return FuelAmount, true
}

// deriveFromAmount solves for rate when quantity is known, and only falls back
// to solving for quantity when it is not. The order matters.
func (s *FuelState) deriveFromAmount() (FuelField, bool) {
	a, aok := ParseField(s.Amount)
	if !aok {
		return 0, false
	}
	if q, ok := ParseField(s.Quantity); ok && q > 0 {
		s.Rate = FormatAmount(a / q)
		return FuelRate, true
	}
	if r, ok := ParseField(s.Rate); ok && r > 0 {
		s.Quantity = FormatAmount(a / r)
		return FuelQuantity, true
	}
	return 0, false
}
