package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/backend"
	"github.com/Skotchmaster/storefront/internal/cart"
	"github.com/Skotchmaster/storefront/internal/kvstore"
)

type stubBackend struct {
	intentErr error
	recordErr error
	intents   []decimal.Decimal
	orders    []backend.Order
}

func (b *stubBackend) CreatePaymentIntent(_ context.Context, _ backend.Caller, total decimal.Decimal) (*backend.PaymentIntent, error) {
	if b.intentErr != nil {
		return nil, b.intentErr
	}
	b.intents = append(b.intents, total)
	return &backend.PaymentIntent{ClientSecret: "pi_secret"}, nil
}

func (b *stubBackend) RecordOrder(_ context.Context, _ backend.Caller, o backend.Order) (*backend.Order, error) {
	if b.recordErr != nil {
		return nil, b.recordErr
	}
	b.orders = append(b.orders, o)
	o.ID = "ord-1"
	return &o, nil
}

type stubProcessor struct {
	conf *Confirmation
	err  error
}

func (p stubProcessor) Confirm(context.Context, string, string) (*Confirmation, error) {
	return p.conf, p.err
}

type recordingPublisher struct {
	topics []string
}

func (p *recordingPublisher) Publish(_ context.Context, topic, _ string, _ any) error {
	p.topics = append(p.topics, topic)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func filledCart(t *testing.T) *cart.Manager {
	t.Helper()
	m := cart.NewManager(kvstore.NewMemory())
	t.Cleanup(m.Close)
	_, err := m.Add(cart.Product{ID: "p1", Name: "Mug", Price: decimal.RequireFromString("2.5")}, 3)
	require.NoError(t, err)
	_, err = m.Add(cart.Product{ID: "p2", Name: "Tea", Price: decimal.NewFromInt(1)}, 1)
	require.NoError(t, err)
	return m
}

func TestCheckout_Success(t *testing.T) {
	b := &stubBackend{}
	pub := &recordingPublisher{}
	s := NewService(b, stubProcessor{conf: &Confirmation{PaymentID: "pay_1", Status: StatusSucceeded}}, pub, nil)
	c := filledCart(t)

	order, err := s.Checkout(context.Background(), "sid-1", backend.Caller{UserID: "u1", Token: "t"}, c, "pm_card")
	require.NoError(t, err)
	assert.Equal(t, "ord-1", order.ID)

	require.Len(t, b.intents, 1)
	assert.Equal(t, "8.50", b.intents[0].StringFixed(2))
	require.Len(t, b.orders, 1)
	assert.Equal(t, "pay_1", b.orders[0].PaymentID)
	assert.Len(t, b.orders[0].Lines, 2)
	assert.NotEmpty(t, b.orders[0].IdempotencyKey)

	assert.Empty(t, c.Lines())
	assert.Equal(t, []string{"order_events"}, pub.topics)
}

type hookProcessor struct {
	during func()
}

func (p hookProcessor) Confirm(context.Context, string, string) (*Confirmation, error) {
	p.during()
	return &Confirmation{PaymentID: "pay_2", Status: StatusSucceeded}, nil
}

func TestCheckout_KeepsItemsAddedWhilePaying(t *testing.T) {
	b := &stubBackend{}
	c := filledCart(t)
	proc := hookProcessor{during: func() {
		_, err := c.Add(cart.Product{ID: "p3", Name: "Spoon", Price: decimal.NewFromInt(4)}, 1)
		require.NoError(t, err)
		_, err = c.Add(cart.Product{ID: "p1", Name: "Mug", Price: decimal.RequireFromString("2.5")}, 1)
		require.NoError(t, err)
	}}
	s := NewService(b, proc, nil, nil)

	_, err := s.Checkout(context.Background(), "sid-1", backend.Caller{Token: "t"}, c, "pm_card")
	require.NoError(t, err)

	require.Len(t, b.orders, 1)
	assert.Len(t, b.orders[0].Lines, 2)
	assert.Equal(t, "8.50", b.orders[0].Total.StringFixed(2))

	left := c.Lines()
	require.Len(t, left, 2)
	assert.Equal(t, "p1", left[0].ProductID)
	assert.Equal(t, 1, left[0].Quantity)
	assert.Equal(t, "p3", left[1].ProductID)
	assert.Equal(t, "6.50", c.Total())
}

func TestCheckout_OnePerProfile(t *testing.T) {
	b := &stubBackend{}
	c := filledCart(t)
	other := filledCart(t)
	var s *Service
	var nestedErr, otherErr error
	s = NewService(b, hookProcessor{during: func() {
		if nestedErr != nil || otherErr != nil {
			return
		}
		_, nestedErr = s.Checkout(context.Background(), "sid-1", backend.Caller{}, c, "pm_card")
		_, otherErr = s.Checkout(context.Background(), "sid-2", backend.Caller{}, other, "pm_card")
	}}, nil, nil)

	_, err := s.Checkout(context.Background(), "sid-1", backend.Caller{}, c, "pm_card")
	require.NoError(t, err)
	assert.ErrorIs(t, nestedErr, ErrInProgress)
	assert.NoError(t, otherErr)
	assert.Len(t, b.orders, 2)
	assert.Empty(t, c.Lines())
	assert.Empty(t, other.Lines())

	_, err = s.Checkout(context.Background(), "sid-1", backend.Caller{}, c, "pm_card")
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestCheckout_FailuresLeaveCartAlone(t *testing.T) {
	tests := []struct {
		name    string
		backend *stubBackend
		proc    stubProcessor
		wantErr error
	}{
		{
			name:    "declined",
			backend: &stubBackend{},
			proc:    stubProcessor{conf: &Confirmation{Status: "requires_payment_method"}},
			wantErr: ErrPaymentFailed,
		},
		{
			name:    "processor error",
			backend: &stubBackend{},
			proc:    stubProcessor{err: errors.New("card_declined")},
			wantErr: ErrPaymentFailed,
		},
		{
			name:    "nil confirmation",
			backend: &stubBackend{},
			proc:    stubProcessor{},
			wantErr: ErrPaymentFailed,
		},
		{
			name:    "intent unauthorized",
			backend: &stubBackend{intentErr: backend.ErrUnauthorized},
			proc:    stubProcessor{conf: &Confirmation{Status: StatusSucceeded}},
			wantErr: backend.ErrUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &recordingPublisher{}
			s := NewService(tt.backend, tt.proc, pub, nil)
			c := filledCart(t)

			_, err := s.Checkout(context.Background(), "sid-1", backend.Caller{Token: "t"}, c, "pm_card")
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Len(t, c.Lines(), 2)
			assert.Empty(t, tt.backend.orders)
			assert.Empty(t, pub.topics)
		})
	}
}

func TestCheckout_RecordFailureKeepsCart(t *testing.T) {
	b := &stubBackend{recordErr: &backend.StatusError{Code: 500}}
	s := NewService(b, stubProcessor{conf: &Confirmation{Status: StatusSucceeded}}, nil, nil)
	c := filledCart(t)

	_, err := s.Checkout(context.Background(), "sid-1", backend.Caller{Token: "t"}, c, "pm_card")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPaymentFailed)
	assert.Len(t, c.Lines(), 2)
}

func TestCheckout_EmptyCart(t *testing.T) {
	b := &stubBackend{}
	s := NewService(b, stubProcessor{}, nil, nil)
	c := cart.NewManager(kvstore.NewMemory())
	defer c.Close()

	_, err := s.Checkout(context.Background(), "sid-1", backend.Caller{}, c, "pm_card")
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Empty(t, b.intents)

	_, err = s.Checkout(context.Background(), "sid-1", backend.Caller{}, c, "")
	assert.ErrorIs(t, err, ErrMethod)
}

func TestHTTPProcessor_Confirm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in["payment_method"] == "pm_bad" {
			w.WriteHeader(http.StatusPaymentRequired)
			_, _ = w.Write([]byte(`{"message":"card declined"}`))
			return
		}
		assert.Equal(t, "pi_secret", in["client_secret"])
		_, _ = w.Write([]byte(`{"id":"pay_9","status":"succeeded"}`))
	}))
	defer srv.Close()

	p := NewHTTPProcessor(srv.URL)
	conf, err := p.Confirm(context.Background(), "pi_secret", "pm_card")
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, conf.Status)
	assert.Equal(t, "pay_9", conf.PaymentID)

	conf, err = p.Confirm(context.Background(), "pi_secret", "pm_bad")
	require.NoError(t, err)
	assert.Equal(t, "failed", conf.Status)
	assert.Equal(t, "card declined", conf.Message)
}
