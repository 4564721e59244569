package models

// Customer is a buyer with a running udhar balance. Positive balance means the customer owes money.
type Customer struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Mobile  string  `json:"mobile"`
	Address string  `json:"address"`
	Balance float64 `json:"balance"`
}

// NewCustomer is the body of POST /api/customers
type NewCustomer struct {
	Name      string  `json:"name"`
	Mobile    string  `json:"mobile"`
	Address   string  `json:"address"`
	Balance   float64 `json:"balance"`
	VehicleID string  `json:"vehicleId,omitempty"`
}

// Advance is the body of POST /api/customers/:id/advance
type Advance struct {
	Amount  float64 `json:"amount"`
	Details string  `json:"details,omitempty"`
}

// CustomerLedger is the customer detail view: sales and recent financial notes
type CustomerLedger struct {
	Customer    Customer      `json:"customer"`
	Sales       []Transaction `json:"sales"`
	Notes       []Transaction `json:"notes"`
	TotalKg     float64       `json:"totalKg"`
	TotalAmount float64       `json:"totalAmount"`
}
