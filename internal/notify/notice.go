// Package notify carries user-visible notices and domain events out of the
// cart and checkout flows.
package notify

import "sync"

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

type Notice struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

const DefaultInboxSize = 20

// Inbox queues notices for one browser profile until the next response
// picks them up. When full the oldest notice is dropped.
type Inbox struct {
	mu    sync.Mutex
	items []Notice
	max   int
}

func NewInbox(size int) *Inbox {
	if size <= 0 {
		size = DefaultInboxSize
	}
	return &Inbox{max: size}
}

func (in *Inbox) Push(n Notice) {
	if n.Message == "" {
		return
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	if len(in.items) == in.max {
		in.items = in.items[1:]
	}
	in.items = append(in.items, n)
}

func (in *Inbox) Info(msg string)    { in.Push(Notice{Level: LevelInfo, Message: msg}) }
func (in *Inbox) Success(msg string) { in.Push(Notice{Level: LevelSuccess, Message: msg}) }
func (in *Inbox) Error(msg string)   { in.Push(Notice{Level: LevelError, Message: msg}) }

// Drain returns queued notices in arrival order and empties the inbox.
func (in *Inbox) Drain() []Notice {
	in.mu.Lock()
	defer in.mu.Unlock()
	out := in.items
	in.items = nil
	return out
}

func (in *Inbox) Len() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.items)
}
