package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Dan9191/field-ledger/internal/models"
)

// DashboardSummary returns today's totals for the driver
func (c *Client) DashboardSummary(ctx context.Context) (*models.DashboardSummary, error) {
	var s models.DashboardSummary
	if err := c.do(ctx, request{method: http.MethodGet, path: "/api/dashboard/summary", auth: true}, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// DriverStock returns the kilograms the driver can currently sell
func (c *Client) DriverStock(ctx context.Context) (float64, error) {
	s, err := c.DashboardSummary(ctx)
	if err != nil {
		return 0, err
	}
	return s.TodayStock, nil
}

// Recent returns the latest transactions of the driver
func (c *Client) Recent(ctx context.Context) ([]models.Transaction, error) {
	var txs []models.Transaction
	if err := c.do(ctx, request{method: http.MethodGet, path: "/api/recent", auth: true}, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

// History returns recent transactions of one type, optionally narrowed by sub type
func (c *Client) History(ctx context.Context, txType models.TransactionType, subType string) ([]models.Transaction, error) {
	txs, err := c.Recent(ctx)
	if err != nil {
		return nil, err
	}
	return FilterTransactions(txs, txType, subType), nil
}

// FilterTransactions keeps transactions of txType (and subType when non-empty)
func FilterTransactions(txs []models.Transaction, txType models.TransactionType, subType string) []models.Transaction {
	out := make([]models.Transaction, 0, len(txs))
	for _, t := range txs {
		if t.Type != txType {
			continue
		}
		if subType != "" && t.SubType != subType {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Vehicles lists the fleet
func (c *Client) Vehicles(ctx context.Context) ([]models.Vehicle, error) {
	var vs []models.Vehicle
	if err := c.do(ctx, request{method: http.MethodGet, path: "/admin/vehicles", auth: true}, &vs); err != nil {
		return nil, err
	}
	return vs, nil
}

// entryPaths maps transaction types to their creation endpoint
var entryPaths = map[models.TransactionType]string{
	models.TypeBuy:        "/api/buy",
	models.TypeSell:       "/api/sell",
	models.TypeFuel:       "/api/fuel",
	models.TypePalti:      "/api/palti",
	models.TypeWeightLoss: "/api/weight-loss",
	models.TypeShopBuy:    "/api/shop-buy",
}

// AddEntry posts a transaction of the given type. idempotencyKey is forwarded so
// the backend can drop replays.
func (c *Client) AddEntry(ctx context.Context, txType models.TransactionType, entry any, idempotencyKey string) (*models.Transaction, error) {
	path, ok := entryPaths[txType]
	if !ok {
		return nil, fmt.Errorf("no endpoint for transaction type %q", txType)
	}
	var tx models.Transaction
	err := c.do(ctx, request{
		method:         http.MethodPost,
		path:           path,
		body:           entry,
		auth:           true,
		idempotencyKey: idempotencyKey,
	}, &tx)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// Customers lists all customers visible to the driver
func (c *Client) Customers(ctx context.Context) ([]models.Customer, error) {
	var cs []models.Customer
	if err := c.do(ctx, request{method: http.MethodGet, path: "/api/customers", auth: true}, &cs); err != nil {
		return nil, err
	}
	return cs, nil
}

// CustomerByID finds one customer. The backend has no single-customer endpoint.
func (c *Client) CustomerByID(ctx context.Context, id string) (*models.Customer, error) {
	cs, err := c.Customers(ctx)
	if err != nil {
		return nil, err
	}
	for i := range cs {
		if cs[i].ID == id {
			return &cs[i], nil
		}
	}
	return nil, fmt.Errorf("customer %s: %w", id, ErrNotFound)
}

// AddCustomer creates a customer
func (c *Client) AddCustomer(ctx context.Context, nc models.NewCustomer) (*models.Customer, error) {
	var cust models.Customer
	if err := c.do(ctx, request{method: http.MethodPost, path: "/api/customers", body: nc, auth: true}, &cust); err != nil {
		return nil, err
	}
	return &cust, nil
}

// CustomerHistory returns every transaction recorded against a customer
func (c *Client) CustomerHistory(ctx context.Context, id string) ([]models.Transaction, error) {
	var txs []models.Transaction
	path := "/api/customers/" + url.PathEscape(id) + "/history"
	if err := c.do(ctx, request{method: http.MethodGet, path: path, auth: true}, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

// AddAdvance records an advance and returns the updated customer. idempotencyKey
// is forwarded like AddEntry's.
func (c *Client) AddAdvance(ctx context.Context, id string, adv models.Advance, idempotencyKey string) (*models.Customer, error) {
	var raw json.RawMessage
	err := c.do(ctx, request{
		method:         http.MethodPost,
		path:           "/api/customers/" + url.PathEscape(id) + "/advance",
		body:           adv,
		auth:           true,
		idempotencyKey: idempotencyKey,
	}, &raw)
	if err != nil {
		return nil, err
	}

	// the backend answers either {"customer": {...}} or the customer itself
	var wrapped struct {
		Customer *models.Customer `json:"customer"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Customer != nil {
		return wrapped.Customer, nil
	}
	var cust models.Customer
	if err := json.Unmarshal(raw, &cust); err != nil {
		return nil, fmt.Errorf("failed to decode advance response: %w", err)
	}
	return &cust, nil
}

// Notifications lists notifications, optionally only unread ones
func (c *Client) Notifications(ctx context.Context, unreadOnly bool) ([]models.Notification, error) {
	path := "/api/notifications"
	if unreadOnly {
		path += "?unreadOnly=true"
	}
	var ns []models.Notification
	if err := c.do(ctx, request{method: http.MethodGet, path: path, auth: true}, &ns); err != nil {
		return nil, err
	}
	return ns, nil
}

// MarkNotificationRead marks one notification as read
func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	return c.do(ctx, request{
		method: http.MethodPatch,
		path:   "/api/notifications/" + url.PathEscape(id),
		body:   map[string]bool{"isRead": true},
		auth:   true,
	}, nil)
}

// MarkAllNotificationsRead marks every notification as read
func (c *Client) MarkAllNotificationsRead(ctx context.Context) error {
	return c.do(ctx, request{method: http.MethodPatch, path: "/api/notifications/read-all", auth: true}, nil)
}
