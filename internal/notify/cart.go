package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/Skotchmaster/storefront/internal/cart"
)

const publishTimeout = 2 * time.Second

// CartNotifier turns cart events into notices and, when a publisher is set,
// cart_events messages.
type CartNotifier struct {
	ProfileID string
	Inbox     *Inbox
	Publisher Publisher
	Log       *slog.Logger
}

func (n *CartNotifier) Notify(ev cart.Event) {
	if n.Inbox != nil {
		level := LevelInfo
		if ev.Kind == cart.EventAdded || ev.Kind == cart.EventMerged {
			level = LevelSuccess
		}
		n.Inbox.Push(Notice{Level: level, Message: ev.Message()})
	}
	if n.Publisher == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	env := Envelope{
		Type:      "cart_" + string(ev.Kind),
		ProfileID: n.ProfileID,
		Payload:   ev,
		At:        time.Now().UTC(),
	}
	if err := n.Publisher.Publish(ctx, TopicCartEvents, n.ProfileID, env); err != nil && n.Log != nil {
		n.Log.Warn("cart_event_publish_error", "type", env.Type, "error", err)
	}
}
