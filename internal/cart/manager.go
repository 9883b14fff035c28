package cart

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Skotchmaster/storefront/internal/kvstore"
)

const (
	DefaultKey      = "cart"
	DefaultDebounce = 300 * time.Millisecond
)

type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d unless the returned timer is stopped first.
type Scheduler func(d time.Duration, f func()) Timer

func realScheduler(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

type Option func(*Manager)

func WithDebounce(d time.Duration) Option {
	return func(m *Manager) { m.debounce = d }
}

func WithNotifier(n Notifier) Option {
	return func(m *Manager) {
		if n != nil {
			m.notifier = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

func WithKey(key string) Option {
	return func(m *Manager) { m.key = key }
}

func WithScheduler(s Scheduler) Option {
	return func(m *Manager) {
		if s != nil {
			m.schedule = s
		}
	}
}

// Manager owns one browser profile's cart. The in-memory lines are the
// source of truth; the store only mirrors them.
type Manager struct {
	mu       sync.Mutex
	store    kvstore.Store
	key      string
	debounce time.Duration
	notifier Notifier
	log      *slog.Logger
	schedule Scheduler

	lines   []Line
	pending Timer
	gen     uint64
	closed  bool
}

func NewManager(store kvstore.Store, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		key:      DefaultKey,
		debounce: DefaultDebounce,
		notifier: nopNotifier{},
		log:      slog.Default(),
		schedule: realScheduler,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.With("component", "cart", "key", m.key)
	m.lines = m.load()
	return m
}

func (m *Manager) load() []Line {
	raw, ok, err := m.store.Get(m.key)
	if err != nil {
		m.log.Warn("cart_load_error", "error", err)
		return nil
	}
	if !ok || raw == "" {
		return nil
	}
	lines, err := decodeLines(raw)
	if err != nil {
		m.log.Warn("cart_load_error", "error", err)
		return nil
	}
	return lines
}

// Add merges qty into the line for p.ID, appending a new line on first add.
func (m *Manager) Add(p Product, qty int) ([]Line, error) {
	if p.ID == "" {
		return nil, fmt.Errorf("product id required: %w", ErrInvalidProduct)
	}
	if qty < 1 {
		return nil, fmt.Errorf("quantity must be positive: %w", ErrInvalidQuantity)
	}
	if p.Price.IsNegative() {
		return nil, fmt.Errorf("price must be >= 0: %w", ErrInvalidProduct)
	}

	m.mu.Lock()
	ev := Event{Kind: EventAdded, ProductID: p.ID, Name: p.Name, Quantity: qty}
	if i := m.indexLocked(p.ID); i >= 0 {
		m.lines[i].Quantity += qty
		ev.Kind = EventMerged
		ev.Quantity = m.lines[i].Quantity
	} else {
		m.lines = append(m.lines, Line{
			ProductID: p.ID,
			Name:      p.Name,
			UnitPrice: p.Price,
			ImageRef:  p.ImageRef,
			Quantity:  qty,
		})
	}
	m.scheduleLocked()
	out := m.snapshotLocked()
	m.mu.Unlock()

	m.notifier.Notify(ev)
	return out, nil
}

// Remove drops the line for productID. Absent ids change nothing.
func (m *Manager) Remove(productID string) []Line {
	m.mu.Lock()
	removed, ok := m.removeLocked(productID)
	if ok {
		m.scheduleLocked()
	}
	out := m.snapshotLocked()
	m.mu.Unlock()

	if ok {
		m.notifier.Notify(Event{Kind: EventRemoved, ProductID: removed.ProductID, Name: removed.Name})
	}
	return out
}

// UpdateQuantity sets the quantity exactly; qty <= 0 removes the line.
func (m *Manager) UpdateQuantity(productID string, qty int) []Line {
	if qty <= 0 {
		return m.Remove(productID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexLocked(productID)
	if i < 0 || m.lines[i].Quantity == qty {
		return m.snapshotLocked()
	}
	m.lines[i].Quantity = qty
	m.scheduleLocked()
	return m.snapshotLocked()
}

// Clear empties the cart and removes the persisted copy right away,
// dropping any pending debounced write.
func (m *Manager) Clear() {
	m.mu.Lock()
	m.clearLocked()
	m.mu.Unlock()

	m.notifier.Notify(Event{Kind: EventCleared})
}

// RemovePaid subtracts each paid quantity from the matching line. Units
// added after the paid snapshot was taken stay in the cart.
func (m *Manager) RemovePaid(paid []Line) []Line {
	m.mu.Lock()
	var removed []Line
	for _, p := range paid {
		i := m.indexLocked(p.ProductID)
		if i < 0 {
			continue
		}
		if m.lines[i].Quantity > p.Quantity {
			m.lines[i].Quantity -= p.Quantity
			continue
		}
		if l, ok := m.removeLocked(p.ProductID); ok {
			removed = append(removed, l)
		}
	}
	emptied := len(m.lines) == 0
	if emptied {
		m.clearLocked()
	} else {
		m.scheduleLocked()
	}
	out := m.snapshotLocked()
	m.mu.Unlock()

	if emptied {
		m.notifier.Notify(Event{Kind: EventCleared})
		return out
	}
	for _, l := range removed {
		m.notifier.Notify(Event{Kind: EventRemoved, ProductID: l.ProductID, Name: l.Name})
	}
	return out
}

func (m *Manager) Lines() []Line {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) Total() string {
	return Total(m.Lines())
}

// Count is the number of units across all lines.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, l := range m.lines {
		n += l.Quantity
	}
	return n
}

// Flush writes a pending debounced state immediately.
func (m *Manager) Flush() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending == nil {
		return
	}
	m.cancelLocked()
	m.persistLocked()
}

// Close cancels any pending write. The cart stays readable and mutable in
// memory but is never written again.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelLocked()
	m.closed = true
}

func (m *Manager) clearLocked() {
	m.lines = nil
	m.cancelLocked()
	if m.closed {
		return
	}
	if err := m.store.Remove(m.key); err != nil {
		m.log.Error("cart_clear_error", "error", err)
	}
}

func (m *Manager) scheduleLocked() {
	if m.closed {
		return
	}
	m.cancelLocked()
	gen := m.gen
	m.pending = m.schedule(m.debounce, func() { m.fire(gen) })
}

func (m *Manager) cancelLocked() {
	if m.pending != nil {
		m.pending.Stop()
		m.pending = nil
	}
	m.gen++
}

func (m *Manager) fire(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	// a timer stopped after it already started running lands here stale
	if m.closed || gen != m.gen || m.pending == nil {
		return
	}
	m.pending = nil
	m.persistLocked()
}

func (m *Manager) persistLocked() {
	if m.closed {
		return
	}
	raw, err := encodeLines(m.lines)
	if err != nil {
		m.log.Error("cart_persist_error", "error", err)
		return
	}
	if err := m.store.Set(m.key, raw); err != nil {
		m.log.Error("cart_persist_error", "error", err)
		return
	}
	m.log.Debug("cart persisted", "lines", len(m.lines))
}

func (m *Manager) indexLocked(productID string) int {
	for i := range m.lines {
		if m.lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func (m *Manager) removeLocked(productID string) (Line, bool) {
	i := m.indexLocked(productID)
	if i < 0 {
		return Line{}, false
	}
	removed := m.lines[i]
	m.lines = append(m.lines[:i], m.lines[i+1:]...)
	return removed, true
}

func (m *Manager) snapshotLocked() []Line {
	out := make([]Line, len(m.lines))
	copy(out, m.lines)
	return out
}
