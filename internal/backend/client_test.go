package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL + "/")
}

func TestFetchProfile_SendsCredentials(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/u-1", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "u-1", r.Header.Get("X-User-Id"))
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "u-1", "role": "vendor", "name": "Ann"})
	})

	p, err := c.FetchProfile(context.Background(), "u-1", "tok")
	require.NoError(t, err)
	assert.Equal(t, "vendor", p.Role)
	assert.Equal(t, "Ann", p.DisplayName)
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		code int
		want error
	}{
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrForbidden},
		{http.StatusNotFound, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.code), func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
			})
			_, err := c.ListOrders(context.Background(), Caller{Token: "t"})
			assert.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("other", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusBadGateway)
		})
		_, err := c.GetProduct(context.Background(), "p1")
		var se *StatusError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, http.StatusBadGateway, se.Code)
		assert.Equal(t, "boom", se.Body)
	})
}

func TestListProducts_Query(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		assert.Equal(t, "shoes", r.URL.Query().Get("category"))
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"products":[{"_id":"p1","name":"Boot","price":"19.90"}],"total":11,"page":2,"totalPages":2}`))
	})

	page, err := c.ListProducts(context.Background(), 2, 10, "shoes")
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "19.90", page.Items[0].Price.StringFixed(2))
	assert.EqualValues(t, 11, page.Total)
}

func TestCreatePaymentIntent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "50.00", in["amount"])
		_, _ = w.Write([]byte(`{"clientSecret":"pi_secret"}`))
	})

	pi, err := c.CreatePaymentIntent(context.Background(), Caller{Token: "t"}, decimal.NewFromInt(50))
	require.NoError(t, err)
	assert.Equal(t, "pi_secret", pi.ClientSecret)
}

func TestSubmitAdRequest_RejectsBadRangeLocally(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"_id":"ad1","status":"pending"}`))
	})

	start := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)
	_, err := c.SubmitAdRequest(context.Background(), Caller{Token: "t"}, AdRequest{
		ProductID: "p1",
		StartDate: start,
		EndDate:   start.AddDate(0, 0, -1),
	})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Zero(t, calls.Load())

	app, err := c.SubmitAdRequest(context.Background(), Caller{Token: "t"}, AdRequest{
		ProductID: "p1",
		StartDate: start,
		EndDate:   start.AddDate(0, 0, 7),
	})
	require.NoError(t, err)
	assert.Equal(t, "pending", app.Status)
	assert.EqualValues(t, 1, calls.Load())
}

func TestApplyVendor_RequiresStoreName(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("backend must not be called")
	})
	_, err := c.ApplyVendor(context.Background(), Caller{Token: "t"}, VendorApplication{StoreName: "  "})
	assert.ErrorIs(t, err, ErrValidation)
}
