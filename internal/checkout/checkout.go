// Package checkout runs the payment flow: intent from the backend,
// confirmation with the processor, then order recording and cart clear.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/internal/backend"
	"github.com/Skotchmaster/storefront/internal/cart"
	"github.com/Skotchmaster/storefront/internal/notify"
)

var (
	ErrEmptyCart     = errors.New("checkout: cart is empty")
	ErrPaymentFailed = errors.New("checkout: payment failed")
	ErrMethod        = errors.New("checkout: payment method required")
	ErrInProgress    = errors.New("checkout: already in progress")
)

const StatusSucceeded = "succeeded"

type Confirmation struct {
	PaymentID string `json:"id"`
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
}

// Processor confirms a payment intent with a collected payment method.
type Processor interface {
	Confirm(ctx context.Context, clientSecret, method string) (*Confirmation, error)
}

type Backend interface {
	CreatePaymentIntent(ctx context.Context, caller backend.Caller, total decimal.Decimal) (*backend.PaymentIntent, error)
	RecordOrder(ctx context.Context, caller backend.Caller, o backend.Order) (*backend.Order, error)
}

type Cart interface {
	Lines() []cart.Line
	RemovePaid(paid []cart.Line) []cart.Line
}

type Service struct {
	backend   Backend
	processor Processor
	publisher notify.Publisher
	log       *slog.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
}

func NewService(b Backend, p Processor, pub notify.Publisher, log *slog.Logger) *Service {
	if pub == nil {
		pub = notify.Nop{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		backend:   b,
		processor: p,
		publisher: pub,
		log:       log.With("component", "checkout"),
		inflight:  make(map[string]struct{}),
	}
}

// Checkout charges the cart. The order is recorded and the paid lines taken
// out of the cart only when the processor reports success; any earlier
// failure leaves both alone. One checkout runs per profile at a time.
func (s *Service) Checkout(ctx context.Context, profileID string, caller backend.Caller, c Cart, method string) (*backend.Order, error) {
	if method == "" {
		return nil, ErrMethod
	}
	if !s.acquire(profileID) {
		return nil, ErrInProgress
	}
	defer s.release(profileID)

	lines := c.Lines()
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}
	total := cart.Sum(lines)

	intent, err := s.backend.CreatePaymentIntent(ctx, caller, total)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}

	conf, err := s.processor.Confirm(ctx, intent.ClientSecret, method)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaymentFailed, err)
	}
	if conf == nil || conf.Status != StatusSucceeded {
		status := "unknown"
		if conf != nil {
			status = conf.Status
		}
		return nil, fmt.Errorf("%w: status %s", ErrPaymentFailed, status)
	}

	order := backend.Order{
		IdempotencyKey: uuid.NewString(),
		Lines:          toOrderLines(lines),
		Total:          total,
		PaymentID:      conf.PaymentID,
	}
	recorded, err := s.backend.RecordOrder(ctx, caller, order)
	if err != nil {
		s.log.Error("record_order_error", "payment_id", conf.PaymentID, "idempotency_key", order.IdempotencyKey, "error", err)
		return nil, fmt.Errorf("record order: %w", err)
	}
	c.RemovePaid(lines)

	s.publish(ctx, profileID, caller.UserID, recorded)
	s.log.Info("order placed", "order_id", recorded.ID, "total", total.StringFixed(2))
	return recorded, nil
}

func (s *Service) acquire(profileID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[profileID]; busy {
		return false
	}
	s.inflight[profileID] = struct{}{}
	return true
}

func (s *Service) release(profileID string) {
	s.mu.Lock()
	delete(s.inflight, profileID)
	s.mu.Unlock()
}

func (s *Service) publish(ctx context.Context, profileID, userID string, o *backend.Order) {
	env := notify.Envelope{
		Type:      "order_placed",
		ProfileID: profileID,
		UserID:    userID,
		Payload:   o,
		At:        time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, notify.TopicOrderEvents, profileID, env); err != nil {
		s.log.Warn("order_event_publish_error", "error", err)
	}
}

func toOrderLines(lines []cart.Line) []backend.OrderLine {
	out := make([]backend.OrderLine, 0, len(lines))
	for _, l := range lines {
		out = append(out, backend.OrderLine{
			ProductID: l.ProductID,
			Name:      l.Name,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
		})
	}
	return out
}
