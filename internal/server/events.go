package server

import (
	"encoding/json"
	"sync"
	"time"

	"pulse/internal/models"
	"pulse/internal/observability"
	"pulse/internal/store"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// Event topics pushed over the /api/ws/events stream.
const (
	topicSession = "session"
	topicFriends = "friends"
	topicChats   = "chats"
)

// event is one store-change notification on the wire.
type event struct {
	Topic string      `json:"topic"`
	Data  interface{} `json:"data"`
	At    time.Time   `json:"at"`
}

// eventBroker fans store-change notifications out to connected WebSocket
// clients. Slow clients are dropped rather than blocking the stores.
type eventBroker struct {
	mu      sync.Mutex
	clients map[chan []byte]struct{}
	closed  bool
}

func newEventBroker() *eventBroker {
	return &eventBroker{clients: make(map[chan []byte]struct{})}
}

// wire subscribes the broker to every store's change feed.
func (b *eventBroker) wire(session *store.SessionStore, friends *store.FriendsStore, chats *store.ChatsStore) {
	session.Subscribe(func(u *models.User) {
		b.publish(topicSession, u)
	})
	friends.Subscribe(func(list []models.Friend) {
		b.publish(topicFriends, list)
	})
	chats.Subscribe(func(list []models.Chat) {
		b.publish(topicChats, list)
	})
}

func (b *eventBroker) publish(topic string, data interface{}) {
	payload, err := json.Marshal(event{Topic: topic, Data: data, At: time.Now()})
	if err != nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.clients {
		select {
		case ch <- payload:
			observability.EventsPublished.WithLabelValues(topic).Inc()
		default:
			// Client is not keeping up; drop it.
			delete(b.clients, ch)
			close(ch)
		}
	}
}

func (b *eventBroker) register() chan []byte {
	ch := make(chan []byte, 16)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.clients[ch] = struct{}{}
	return ch
}

func (b *eventBroker) unregister(ch chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.clients[ch]; ok {
		delete(b.clients, ch)
		close(ch)
	}
}

func (b *eventBroker) shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for ch := range b.clients {
		delete(b.clients, ch)
		close(ch)
	}
}

// EventsHandler handles GET /api/ws/events. Each connected client receives
// every store-change event as JSON.
func (s *Server) EventsHandler() fiber.Handler {
	handler := websocket.New(func(conn *websocket.Conn) {
		observability.EventConnections.Inc()
		defer observability.EventConnections.Dec()

		ch := s.events.register()
		defer s.events.unregister(ch)

		// Reader goroutine: the client sends nothing meaningful, but the
		// read loop detects disconnects.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case payload, ok := <-ch:
				if !ok {
					return
				}
				if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	})
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return handler(c)
	}
}
