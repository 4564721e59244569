package models

// Vehicle is a delivery vehicle with its last recorded odometer reading
type Vehicle struct {
	ID           string  `json:"id"`
	Registration string  `json:"registration"`
	CurrentKm    float64 `json:"currentKm"`
}
