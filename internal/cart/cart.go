package cart

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrValidation = errors.New("validation")

var (
	ErrInvalidQuantity = fmt.Errorf("invalid quantity: %w", ErrValidation)
	ErrInvalidProduct  = fmt.Errorf("invalid product: %w", ErrValidation)
)

// Product is the catalog snapshot copied into a line at add time.
type Product struct {
	ID       string          `json:"_id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	ImageRef string          `json:"productImage"`
}

type Line struct {
	ProductID string          `json:"_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"price"`
	ImageRef  string          `json:"productImage,omitempty"`
	Quantity  int             `json:"quantity"`
}

func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func Sum(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Subtotal())
	}
	return sum
}

// Total sums unit price times quantity and formats it with two decimals.
func Total(lines []Line) string {
	return Sum(lines).StringFixed(2)
}

type EventKind string

const (
	EventAdded   EventKind = "added"
	EventMerged  EventKind = "merged"
	EventRemoved EventKind = "removed"
	EventCleared EventKind = "cleared"
)

type Event struct {
	Kind      EventKind `json:"type"`
	ProductID string    `json:"product_id,omitempty"`
	Name      string    `json:"name,omitempty"`
	Quantity  int       `json:"quantity,omitempty"`
}

func (e Event) Message() string {
	switch e.Kind {
	case EventAdded:
		return fmt.Sprintf("%s added to cart", e.label())
	case EventMerged:
		return fmt.Sprintf("%s quantity updated to %d", e.label(), e.Quantity)
	case EventRemoved:
		return fmt.Sprintf("%s removed from cart", e.label())
	case EventCleared:
		return "Cart cleared"
	default:
		return string(e.Kind)
	}
}

func (e Event) label() string {
	if e.Name != "" {
		return e.Name
	}
	return "Item"
}

type Notifier interface {
	Notify(Event)
}

type NotifierFunc func(Event)

func (f NotifierFunc) Notify(e Event) { f(e) }

type nopNotifier struct{}

func (nopNotifier) Notify(Event) {}
