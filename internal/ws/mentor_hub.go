package ws

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/zaqqye/intervention_engine/internal/apperr"
	"github.com/zaqqye/intervention_engine/internal/lifecycle"
)

// MentorSubscription receives every status change for mentor dashboards.
type MentorSubscription struct {
	hub    *MentorHub
	send   chan []byte
	closed bool
}

func (s *MentorSubscription) Messages() <-chan []byte { return s.send }

func (s *MentorSubscription) Close() {
	select {
	case s.hub.unregister <- s:
	case <-s.hub.done:
	}
}

// MentorHub broadcasts to all connected mentor dashboards.
type MentorHub struct {
	log        *zap.Logger
	register   chan *MentorSubscription
	unregister chan *MentorSubscription
	broadcast  chan []byte
	count      chan chan int
	done       chan struct{}
	clients    map[*MentorSubscription]struct{}
}

func NewMentorHub(log *zap.Logger) *MentorHub {
	if log == nil {
		log = zap.NewNop()
	}
	return &MentorHub{
		log:        log,
		register:   make(chan *MentorSubscription),
		unregister: make(chan *MentorSubscription),
		broadcast:  make(chan []byte, 256),
		count:      make(chan chan int),
		done:       make(chan struct{}),
		clients:    make(map[*MentorSubscription]struct{}),
	}
}

func (h *MentorHub) Subscribe() *MentorSubscription {
	s := &MentorSubscription{hub: h, send: make(chan []byte, endpointBufferSize)}
	select {
	case h.register <- s:
	case <-h.done:
		close(s.send)
	}
	return s
}

func (h *MentorHub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for s := range h.clients {
				h.drop(s)
			}
			return
		case s := <-h.register:
			h.clients[s] = struct{}{}
		case s := <-h.unregister:
			if !s.closed {
				h.drop(s)
			}
		case reply := <-h.count:
			reply <- len(h.clients)
		case payload := <-h.broadcast:
			for s := range h.clients {
				select {
				case s.send <- payload:
				default:
					h.log.Warn("evicting slow mentor dashboard",
						zap.Error(apperr.New("ws.MentorHub", apperr.ErrTransientDelivery, "endpoint buffer full")))
					h.drop(s)
				}
			}
		}
	}
}

// Count reports the connected dashboards.
func (h *MentorHub) Count() int {
	reply := make(chan int, 1)
	select {
	case h.count <- reply:
		return <-reply
	case <-h.done:
		return 0
	}
}

func (h *MentorHub) Publish(_ context.Context, _ string, ev lifecycle.Event) {
	if h == nil {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		h.log.Error("marshal mentor event", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- data:
	default:
		h.log.Warn("mentor hub queue full, event dropped",
			zap.Error(apperr.New("ws.MentorHub.Publish", apperr.ErrTransientDelivery, "hub queue full")))
	}
}

func (h *MentorHub) drop(s *MentorSubscription) {
	delete(h.clients, s)
	s.closed = true
	close(s.send)
}
