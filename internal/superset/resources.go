package superset

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ashureev/dashgenie/internal/builder"
	"github.com/ashureev/dashgenie/internal/rbac"
)

var (
	_ builder.Platform   = (*Client)(nil)
	_ rbac.UserDirectory = (*Client)(nil)
)

type userListResponse struct {
	Result []struct {
		ID int `json:"id"`
	} `json:"result"`
}

type createdResponse struct {
	ID int `json:"id"`
}

type filter struct {
	Col   string `json:"col"`
	Opr   string `json:"opr"`
	Value string `json:"value"`
}

// FindUserID looks up a user by exact username.
func (c *Client) FindUserID(ctx context.Context, username string) (int, error) {
	var users userListResponse
	q := queryParam(map[string][]filter{"filters": {{Col: "username", Opr: "eq", Value: username}}})
	if err := c.do(ctx, http.MethodGet, "/api/v1/security/users/", q, nil, &users); err != nil {
		return 0, fmt.Errorf("looking up user: %w", err)
	}
	if len(users.Result) == 0 {
		return 0, rbac.ErrUserNotFound
	}
	return users.Result[0].ID, nil
}

// CreateChart creates a chart and returns its id.
func (c *Client) CreateChart(ctx context.Context, req builder.ChartRequest) (int, error) {
	var created createdResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/chart/", nil, req, &created); err != nil {
		return 0, err
	}
	return created.ID, nil
}

// CreateDashboard creates a dashboard and returns its id.
func (c *Client) CreateDashboard(ctx context.Context, req builder.DashboardRequest) (int, error) {
	var created createdResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/dashboard/", nil, req, &created); err != nil {
		return 0, err
	}
	return created.ID, nil
}
