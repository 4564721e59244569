package models

// Form inputs as typed by the driver. Numeric fields stay raw strings until the
// submission gate has accepted them; `msg` is the message shown when a rule fails.

// FuelForm is the fuel-fill screen
type FuelForm struct {
	VehicleID string  `json:"vehicleId" validate:"required" msg:"Please select a vehicle."`
	CurrentKm string  `json:"currentKm" validate:"required" msg:"Please enter Current KM."`
	SlipPath  string  `json:"slipPath" validate:"required" msg:"Please capture the fuel slip photo."`
	Quantity  string  `json:"quantity" validate:"required" msg:"Please enter Quantity and Amount."`
	Amount    string  `json:"amount" validate:"required" msg:"Please enter Quantity and Amount."`
	Location  string  `json:"location" validate:"min=10" msg:"Location must be at least 10 characters."`
	Rate      string  `json:"rate"`
	FuelType  string  `json:"fuelType"`
	Coords    *Coords `json:"coords,omitempty"`
	// Date is YYYY-MM-DD; empty means today
	Date string `json:"date"`
}

// BuyForm is a purchase from a supplier company
type BuyForm struct {
	CompanyName string `json:"companyName" validate:"required" msg:"Please fill all fields and upload a slip photo."`
	Kg          string `json:"kg" validate:"required,numeric" msg:"Please fill all fields and upload a slip photo."`
	SlipPath    string `json:"slipPath" validate:"required" msg:"Please fill all fields and upload a slip photo."`
	ItemType    string `json:"itemType" validate:"oneof=Boiler Chiller" msg:"Please select a Type (Boiler or Chiller)."`
}

// PaltiForm is a stock transfer with another driver
type PaltiForm struct {
	TransferDriverName string `json:"transferDriverName" validate:"required" msg:"Please fill all fields."`
	Kg                 string `json:"kg" validate:"required,numeric" msg:"Please fill all fields."`
	Action             string `json:"action" validate:"oneof=ADD SUBTRACT" msg:"Please choose Stock In or Stock Out."`
	ItemType           string `json:"itemType" validate:"oneof=Boiler Chiller" msg:"Please select a Type (Boiler or Chiller)."`
}

// ShopBuyForm is a purchase from a shop
type ShopBuyForm struct {
	ShopName string `json:"shopName" validate:"required,min=2" msg:"Please enter a valid Shop Name (min 2 chars)."`
	Weight   string `json:"weight" validate:"required,positive" msg:"Please enter a valid Weight (KG)."`
	Price    string `json:"price" validate:"required,positive" msg:"Please enter a valid Price per KG."`
	ItemType string `json:"itemType" validate:"required,oneof=Boiler Chiller" msg:"Please select a Type (Boiler or Chiller)."`
}

// MortalityForm records dead birds; photo and GPS are proof
type MortalityForm struct {
	Kg        string  `json:"kg" validate:"required,numeric" msg:"Please enter Weight (KG)."`
	ImagePath string  `json:"imagePath" validate:"required" msg:"Photo proof is required."`
	Coords    *Coords `json:"coords" validate:"required" msg:"GPS Location is required. Please retake photo."`
	ItemType  string  `json:"itemType" validate:"oneof=Boiler Chiller" msg:"Please select a Type (Boiler or Chiller)."`
}

// WasteForm records spoilage and trim loss
type WasteForm struct {
	Kg       string `json:"kg" validate:"required,numeric" msg:"Please enter Weight (KG)."`
	ItemType string `json:"itemType" validate:"oneof=Boiler Chiller" msg:"Please select a Type (Boiler or Chiller)."`
}

// CustomerForm adds a customer from the sale screen
type CustomerForm struct {
	Name           string `json:"name" validate:"required" msg:"Name and Mobile are required."`
	Mobile         string `json:"mobile" validate:"required,mobile" msg:"Name and Mobile are required." msg_mobile:"Please enter a valid mobile number."`
	Address        string `json:"address"`
	OpeningBalance string `json:"openingBalance"`
}

// AdvanceForm records an advance paid by a customer
type AdvanceForm struct {
	Amount  string `json:"amount" validate:"required,positive" msg:"Please enter a valid advance amount."`
	Details string `json:"details"`
}
