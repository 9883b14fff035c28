package backend

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentIntent struct {
	ClientSecret string `json:"clientSecret"`
}

type OrderLine struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

type Order struct {
	ID             string          `json:"_id,omitempty"`
	IdempotencyKey string          `json:"idempotencyKey,omitempty"`
	Lines          []OrderLine     `json:"items"`
	Total          decimal.Decimal `json:"total"`
	PaymentID      string          `json:"paymentId"`
	Status         string          `json:"status,omitempty"`
	CreatedAt      *time.Time      `json:"createdAt,omitempty"`
}

func (c *Client) CreatePaymentIntent(ctx context.Context, caller Caller, total decimal.Decimal) (*PaymentIntent, error) {
	in := map[string]string{"amount": total.StringFixed(2)}
	var out PaymentIntent
	if err := c.do(ctx, http.MethodPost, "/payments/intent", caller, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RecordOrder(ctx context.Context, caller Caller, o Order) (*Order, error) {
	var out Order
	if err := c.do(ctx, http.MethodPost, "/orders", caller, o, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListOrders(ctx context.Context, caller Caller) ([]Order, error) {
	var out []Order
	if err := c.do(ctx, http.MethodGet, "/orders", caller, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
