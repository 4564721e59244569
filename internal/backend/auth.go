package backend

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Dan9191/field-ledger/internal/models"
)

// Login exchanges mobile and password for a token
func (c *Client) Login(ctx context.Context, mobile, password string) (*models.LoginResponse, error) {
	var resp models.LoginResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/login",
		body:   models.LoginRequest{Mobile: mobile, Password: password},
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, fmt.Errorf("login failed: no token in response")
	}
	return &resp, nil
}

// Register creates a driver account pending approval
func (c *Client) Register(ctx context.Context, req models.RegisterRequest) error {
	return c.do(ctx, request{method: http.MethodPost, path: "/auth/register", body: req}, nil)
}

// Me returns the user owning the current token
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var resp struct {
		User *models.User `json:"user"`
	}
	if err := c.do(ctx, request{method: http.MethodGet, path: "/auth/me", auth: true}, &resp); err != nil {
		return nil, err
	}
	if resp.User == nil {
		return nil, fmt.Errorf("no user in /auth/me response")
	}
	return resp.User, nil
}
