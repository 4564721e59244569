package ledger

// ComputeTotal returns weight * rate, unrounded.
func ComputeTotal(weight, rate float64) float64 {
	// the conversion forces the product to be rounded on its own, so it can't be
	// fused into a later addition
	return float64(weight * rate)
}

// ComputeNewBalance returns previous + bill - cash - upi. A negative result means
// the customer is in credit and is kept as is.
func ComputeNewBalance(previousBalance, billTotal, cashReceived, upiReceived float64) float64 {
	return previousBalance + billTotal - cashReceived - upiReceived
}

// Reconciliation is the full breakdown of one sale. Entry payloads and invoices
// both read from it so they cannot disagree.
type Reconciliation struct {
	PreviousBalance float64 `json:"previousBalance"`
	Weight          float64 `json:"weight"`
	Rate            float64 `json:"rate"`
	BillTotal       float64 `json:"billTotal"`
	Cash            float64 `json:"cash"`
	UPI             float64 `json:"upi"`
	NewBalance      float64 `json:"newBalance"`
}

// Paid is the total received in this sale.
func (r Reconciliation) Paid() float64 {
	return r.Cash + r.UPI
}

// Reconcile derives the bill total and new balance for a sale.
func Reconcile(previousBalance, weight, rate, cash, upi float64) Reconciliation {
	bill := ComputeTotal(weight, rate)
	return Reconciliation{
		PreviousBalance: previousBalance,
		Weight:          weight,
		Rate:            rate,
		BillTotal:       bill,
		Cash:            cash,
		UPI:             upi,
		NewBalance:      ComputeNewBalance(previousBalance, bill, cash, upi),
	}
}
