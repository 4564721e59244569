package models

import "time"

// TransactionType is the kind of a ledger transaction
type TransactionType string

const (
	TypeBuy            TransactionType = "BUY"
	TypeSell           TransactionType = "SELL"
	TypeFuel           TransactionType = "FUEL"
	TypePalti          TransactionType = "PALTI"
	TypeWeightLoss     TransactionType = "WEIGHT_LOSS"
	TypeShopBuy        TransactionType = "SHOP_BUY"
	TypeDebitNote      TransactionType = "DEBIT_NOTE"
	TypeCreditNote     TransactionType = "CREDIT_NOTE"
	TypeSalaryPayment  TransactionType = "SALARY_PAYMENT"
	TypeAdvancePayment TransactionType = "ADVANCE_PAYMENT"
)

// Unit of a transaction amount
type Unit string

const (
	UnitKG    Unit = "KG"
	UnitLitre Unit = "LITRE"
	UnitCount Unit = "COUNT"
	UnitINR   Unit = "INR"
)

// Weight-loss sub types
const (
	SubTypeMortality = "MORTALITY"
	SubTypeWaste     = "WASTE"
)

// Palti actions
const (
	PaltiAdd      = "ADD"
	PaltiSubtract = "SUBTRACT"
)

// Stock-keeping categories
const (
	ItemBoiler  = "Boiler"
	ItemChiller = "Chiller"
)

// Coords is a GPS fix
type Coords struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Transaction represents a ledger transaction as stored by the backend
type Transaction struct {
	ID                 string          `json:"id"`
	Type               TransactionType `json:"type"`
	SubType            string          `json:"subType,omitempty"`
	Amount             float64         `json:"amount"`
	Unit               Unit            `json:"unit"`
	Date               time.Time       `json:"date"`
	Details            string          `json:"details,omitempty"`
	ImageURL           string          `json:"imageUrl,omitempty"`
	TransferDriverName string          `json:"transferDriverName,omitempty"`
	PaltiAction        string          `json:"paltiAction,omitempty"`
	VehicleID          string          `json:"vehicleId,omitempty"`
	CustomerID         string          `json:"customerId,omitempty"`
	Rate               float64         `json:"rate,omitempty"`
	TotalAmount        float64         `json:"totalAmount,omitempty"`
	PaymentCash        float64         `json:"paymentCash,omitempty"`
	PaymentUPI         float64         `json:"paymentUpi,omitempty"`
	NewBalance         float64         `json:"newBalance,omitempty"`
	CurrentKm          float64         `json:"currentKm,omitempty"`
}

// Entry is the common part of every transaction-creation request
type Entry struct {
	Type    TransactionType `json:"type"`
	SubType string          `json:"subType,omitempty"`
	Amount  float64         `json:"amount"`
	Unit    Unit            `json:"unit"`
	Date    time.Time       `json:"date"`
	Details string          `json:"details,omitempty"`
}

// SellEntry is the body of POST /api/sell
type SellEntry struct {
	Entry
	CustomerID   string  `json:"customerId"`
	CustomerName string  `json:"customerName"`
	PreviousDue  float64 `json:"previousDue"`
	TotalAmount  float64 `json:"totalAmount"`
	PaymentCash  float64 `json:"paymentCash"`
	PaymentUPI   float64 `json:"paymentUpi"`
	NewBalance   float64 `json:"newBalance"`
}

// FuelEntry is the body of POST /api/fuel. Amount is litres.
type FuelEntry struct {
	Entry
	VehicleID      string  `json:"vehicleId"`
	VehicleReg     string  `json:"vehicleReg"`
	PreviousKm     float64 `json:"previousKm"`
	CurrentKm      float64 `json:"currentKm"`
	FuelType       string  `json:"fuelType"`
	Rate           float64 `json:"rate"`
	Location       string  `json:"location"`
	LocationCoords *Coords `json:"locationCoords,omitempty"`
	ImageURL       string  `json:"imageUrl,omitempty"`
}

// BuyEntry is the body of POST /api/buy
type BuyEntry struct {
	Entry
	CompanyName string `json:"companyName"`
	ItemType    string `json:"itemType"`
	ImageURL    string `json:"imageUrl,omitempty"`
}

// PaltiEntry is the body of POST /api/palti
type PaltiEntry struct {
	Entry
	PaltiAction        string `json:"paltiAction"`
	TransferDriverName string `json:"transferDriverName"`
	ItemType           string `json:"itemType"`
}

// WeightLossEntry is the body of POST /api/weight-loss
type WeightLossEntry struct {
	Entry
	ItemType       string  `json:"itemType"`
	ImageURL       string  `json:"imageUrl,omitempty"`
	Location       string  `json:"location,omitempty"`
	LocationCoords *Coords `json:"locationCoords,omitempty"`
}

// ShopBuyEntry is the body of POST /api/shop-buy
type ShopBuyEntry struct {
	Entry
	CompanyName string  `json:"companyName"`
	ItemType    string  `json:"itemType"`
	Rate        float64 `json:"rate"`
	TotalAmount float64 `json:"totalAmount"`
}
