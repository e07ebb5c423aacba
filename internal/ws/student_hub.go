package ws

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/zaqqye/intervention_engine/internal/apperr"
	"github.com/zaqqye/intervention_engine/internal/lifecycle"
)

const endpointBufferSize = 64

// Endpoint is one delivery target, usually a websocket connection. It
// receives nothing until it is registered for a student.
type Endpoint struct {
	hub  *StudentHub
	send chan []byte

	// owned by the hub's Run goroutine
	studentID string
	closed    bool
}

// Messages yields encoded events. The channel is closed when the endpoint is
// closed or evicted.
func (e *Endpoint) Messages() <-chan []byte { return e.send }

// Register routes the student's events to this endpoint, moving it away from
// any student it was registered for before.
func (e *Endpoint) Register(studentID string) {
	select {
	case e.hub.register <- studentRegistration{endpoint: e, studentID: studentID}:
	case <-e.hub.done:
	}
}

func (e *Endpoint) Close() {
	select {
	case e.hub.unregister <- e:
	case <-e.hub.done:
	}
}

type studentRegistration struct {
	endpoint  *Endpoint
	studentID string
}

type studentNotification struct {
	studentID string
	payload   []byte
}

// StudentHub fans intervention events out to every endpoint registered for
// the student. The registry is only touched by Run.
type StudentHub struct {
	log        *zap.Logger
	attach     chan *Endpoint
	register   chan studentRegistration
	unregister chan *Endpoint
	notify     chan studentNotification
	count      chan countRequest
	done       chan struct{}
	clients    map[string]map[*Endpoint]struct{}
	endpoints  map[*Endpoint]struct{}
}

type countRequest struct {
	studentID string
	reply     chan int
}

func NewStudentHub(log *zap.Logger) *StudentHub {
	if log == nil {
		log = zap.NewNop()
	}
	return &StudentHub{
		log:        log,
		attach:     make(chan *Endpoint),
		register:   make(chan studentRegistration),
		unregister: make(chan *Endpoint),
		notify:     make(chan studentNotification, 256),
		count:      make(chan countRequest),
		done:       make(chan struct{}),
		clients:    make(map[string]map[*Endpoint]struct{}),
		endpoints:  make(map[*Endpoint]struct{}),
	}
}

// NewEndpoint returns an endpoint that is not yet registered for anyone.
// Its Messages channel is closed when the hub stops, registered or not.
func (h *StudentHub) NewEndpoint() *Endpoint {
	e := &Endpoint{hub: h, send: make(chan []byte, endpointBufferSize)}
	select {
	case h.attach <- e:
	case <-h.done:
		e.closed = true
		close(e.send)
	}
	return e
}

func (h *StudentHub) Subscribe(studentID string) *Endpoint {
	e := h.NewEndpoint()
	e.Register(studentID)
	return e
}

func (h *StudentHub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for e := range h.endpoints {
				h.drop(e)
			}
			return
		case e := <-h.attach:
			h.endpoints[e] = struct{}{}
		case reg := <-h.register:
			e := reg.endpoint
			if e.closed {
				continue
			}
			h.detach(e)
			e.studentID = reg.studentID
			set, ok := h.clients[e.studentID]
			if !ok {
				set = make(map[*Endpoint]struct{})
				h.clients[e.studentID] = set
			}
			set[e] = struct{}{}
		case e := <-h.unregister:
			if !e.closed {
				h.drop(e)
			}
		case req := <-h.count:
			if req.studentID == "" {
				n := 0
				for _, set := range h.clients {
					n += len(set)
				}
				req.reply <- n
			} else {
				req.reply <- len(h.clients[req.studentID])
			}
		case msg := <-h.notify:
			for e := range h.clients[msg.studentID] {
				select {
				case e.send <- msg.payload:
				default:
					h.log.Warn("evicting slow endpoint",
						zap.String("student_id", msg.studentID),
						zap.Error(apperr.New("ws.StudentHub", apperr.ErrTransientDelivery, "endpoint buffer full")),
					)
					h.drop(e)
				}
			}
		}
	}
}

// Count reports the endpoints registered for studentID, or for everyone when
// studentID is empty.
func (h *StudentHub) Count(studentID string) int {
	req := countRequest{studentID: studentID, reply: make(chan int, 1)}
	select {
	case h.count <- req:
		return <-req.reply
	case <-h.done:
		return 0
	}
}

// Publish queues an intervention event without blocking. Events for students
// with no endpoints are dropped.
func (h *StudentHub) Publish(_ context.Context, studentID string, ev lifecycle.Event) {
	if h == nil {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		h.log.Error("marshal student event", zap.Error(err))
		return
	}
	select {
	case h.notify <- studentNotification{studentID: studentID, payload: data}:
	default:
		h.log.Warn("student hub queue full, event dropped",
			zap.String("student_id", studentID),
			zap.Error(apperr.New("ws.StudentHub.Publish", apperr.ErrTransientDelivery, "hub queue full")),
		)
	}
}

func (h *StudentHub) detach(e *Endpoint) {
	if e.studentID == "" {
		return
	}
	if set, ok := h.clients[e.studentID]; ok {
		delete(set, e)
		if len(set) == 0 {
			delete(h.clients, e.studentID)
		}
	}
	e.studentID = ""
}

func (h *StudentHub) drop(e *Endpoint) {
	h.detach(e)
	delete(h.endpoints, e)
	e.closed = true
	close(e.send)
}
