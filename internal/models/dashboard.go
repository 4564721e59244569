package models

import "time"

// DashboardSummary is returned by GET /api/dashboard/summary
type DashboardSummary struct {
	TodayStock      float64 `json:"todayStock"`
	TodayBuyKg      float64 `json:"todayBuyKg"`
	TodaySellKg     float64 `json:"todaySellKg"`
	TodayFuelLiters float64 `json:"todayFuelLiters"`
}

// Dashboard combines the summary with recent activity
type Dashboard struct {
	Summary DashboardSummary `json:"summary"`
	Recent  []Transaction    `json:"recent"`
}

// Notification is a message pushed to the driver by the back office
type Notification struct {
	ID      string    `json:"id"`
	Message string    `json:"message"`
	Date    time.Time `json:"date"`
	IsRead  bool      `json:"isRead"`
}
