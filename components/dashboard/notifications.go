package dashboard

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, Notification) {}

func normalizeNotifier(n Notifier) Notifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}

// NotifierFunc adapts a function into a Notifier.
type NotifierFunc func(ctx context.Context, n Notification)

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, n Notification) { f(ctx, n) }

// NotificationsClient is the minimal interface needed from an external
// notifications service.
type NotificationsClient interface {
	PublishDashboardNotification(ctx context.Context, n Notification) error
}

// NotificationsHook forwards notifications to an external client.
type NotificationsHook struct {
	Client NotificationsClient
}

// Notify publishes n; delivery failures are dropped.
func (h *NotificationsHook) Notify(ctx context.Context, n Notification) {
	if h == nil || h.Client == nil {
		return
	}
	_ = h.Client.PublishDashboardNotification(ctx, n)
}

// BroadcastNotifier fans notifications out to the owning user's subscribers.
type BroadcastNotifier struct {
	mu   sync.RWMutex
	subs map[int]subscription
	next int
}

type subscription struct {
	userID string
	ch     chan Notification
}

// NewBroadcastNotifier creates a broadcast notifier.
func NewBroadcastNotifier() *BroadcastNotifier {
	return &BroadcastNotifier{subs: make(map[int]subscription)}
}

// Notify delivers n to every subscriber of n.UserID without blocking.
func (b *BroadcastNotifier) Notify(_ context.Context, n Notification) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if sub.userID != n.UserID {
			continue
		}
		select {
		case sub.ch <- n:
		default:
		}
	}
}

// Subscribe returns the notification channel of userID and a cancel func.
func (b *BroadcastNotifier) Subscribe(userID string) (<-chan Notification, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	ch := make(chan Notification, 8)
	b.subs[id] = subscription{userID: userID, ch: ch}
	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub.ch)
		}
	}
	return ch, cancel
}

type notificationPayload struct {
	Level   NotificationLevel `json:"level"`
	Message string            `json:"message"`
	Version uint64            `json:"version"`
	Error   string            `json:"error,omitempty"`
}

func payloadFor(n Notification) notificationPayload {
	p := notificationPayload{Level: n.Level, Message: n.Message, Version: n.Version}
	if n.Err != nil {
		p.Error = n.Err.Error()
	}
	return p
}

// writeSSEEvent writes payload as a single data frame. A failed write means
// the client is gone.
func writeSSEEvent(w io.Writer, payload notificationPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	frame := make([]byte, 0, len(data)+8)
	frame = append(frame, "data: "...)
	frame = append(frame, data...)
	frame = append(frame, "\n\n"...)
	_, err = w.Write(frame)
	return err
}

// Subscribers returns the number of open subscriptions.
func (b *BroadcastNotifier) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket upgrades the request and streams userID's notifications as JSON.
func (b *BroadcastNotifier) ServeWebSocket(w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer conn.Close()

	events, cancel := b.Subscribe(userID)
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case n, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(payloadFor(n)); err != nil {
				return
			}
		}
	}
}

// ServeSSE streams userID's notifications as Server-Sent Events.
func (b *BroadcastNotifier) ServeSSE(w http.ResponseWriter, r *http.Request, userID string) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	events, cancel := b.Subscribe(userID)
	defer cancel()

	flusher, _ := w.(http.Flusher)
	w.WriteHeader(http.StatusOK)
	if flusher != nil {
		flusher.Flush()
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case n, ok := <-events:
			if !ok {
				return
			}
			if err := writeSSEEvent(w, payloadFor(n)); err != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}
