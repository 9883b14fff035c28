package backend

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type VendorApplication struct {
	StoreName   string `json:"storeName"`
	Description string `json:"description"`
	Phone       string `json:"phone,omitempty"`
}

type Application struct {
	ID     string `json:"_id"`
	Status string `json:"status"`
}

type AdRequest struct {
	ProductID string    `json:"productId"`
	Title     string    `json:"title"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
}

func (r AdRequest) Validate() error {
	if strings.TrimSpace(r.ProductID) == "" {
		return fmt.Errorf("product id required: %w", ErrValidation)
	}
	if r.StartDate.IsZero() || r.EndDate.IsZero() {
		return fmt.Errorf("start and end date required: %w", ErrValidation)
	}
	if r.EndDate.Before(r.StartDate) {
		return fmt.Errorf("end date before start date: %w", ErrValidation)
	}
	return nil
}

type TopProduct struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Sold      int    `json:"sold"`
}

type Analytics struct {
	Revenue     decimal.Decimal `json:"revenue"`
	OrderCount  int             `json:"orderCount"`
	TopProducts []TopProduct    `json:"topProducts"`
}

// Overview is the admin dashboard summary.
type Overview struct {
	Users               int             `json:"users"`
	Vendors             int             `json:"vendors"`
	Orders              int             `json:"orders"`
	Revenue             decimal.Decimal `json:"revenue"`
	PendingApplications int             `json:"pendingApplications"`
	PendingAds          int             `json:"pendingAds"`
}

func (c *Client) ApplyVendor(ctx context.Context, caller Caller, app VendorApplication) (*Application, error) {
	if strings.TrimSpace(app.StoreName) == "" {
		return nil, fmt.Errorf("store name required: %w", ErrValidation)
	}
	var out Application
	if err := c.do(ctx, http.MethodPost, "/vendors/apply", caller, app, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitAdRequest validates locally and never calls the backend with a bad
// date range.
func (c *Client) SubmitAdRequest(ctx context.Context, caller Caller, req AdRequest) (*Application, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var out Application
	if err := c.do(ctx, http.MethodPost, "/ads", caller, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) VendorAnalytics(ctx context.Context, caller Caller) (*Analytics, error) {
	var out Analytics
	if err := c.do(ctx, http.MethodGet, "/vendors/analytics", caller, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AdminOverview(ctx context.Context, caller Caller) (*Overview, error) {
	var out Overview
	if err := c.do(ctx, http.MethodGet, "/admin/overview", caller, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
