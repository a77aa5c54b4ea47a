package scribe

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// State is a step of the per-request processing sequence.
type State string

const (
	StateReceived          State = "received"
	StateStored            State = "stored"
	StateTranscribed       State = "transcribed"
	StateEmptySpeech       State = "empty_speech"
	StateSentimentAnalyzed State = "sentiment_analyzed"
	StateResponded         State = "responded"
	StateCleaned           State = "cleaned"
)

// Request tracks one in-flight recording.
type Request struct {
	ID         uuid.UUID
	RemoteAddr string
	Started    time.Time

	mu      sync.Mutex
	history []State
	logger  *slog.Logger
}

func (r *Request) advance(next State) {
	r.mu.Lock()
	r.history = append(r.history, next)
	r.mu.Unlock()

	r.logger.Debug("Request state changed",
		"requestID", r.ID,
		"state", next,
		"elapsed", time.Since(r.Started))
}

func (r *Request) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.history[len(r.history)-1]
}

// History returns every state the request passed through, in order.
func (r *Request) History() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.history...)
}

// RequestSnapshot is the JSON view of an in-flight request.
type RequestSnapshot struct {
	ID         string  `json:"id"`
	RemoteAddr string  `json:"remoteAddr"`
	State      State   `json:"state"`
	AgeSeconds float64 `json:"ageSeconds"`
}

type RequestList struct {
	requests map[uuid.UUID]*Request
	mu       sync.RWMutex
	logger   *slog.Logger
}

func NewRequestList(logger *slog.Logger) *RequestList {
	return &RequestList{
		requests: make(map[uuid.UUID]*Request),
		logger:   logger,
	}
}

// Begin registers a new request in the received state.
func (rl *RequestList) Begin(remoteAddr string) *Request {
	req := &Request{
		ID:         uuid.New(),
		RemoteAddr: remoteAddr,
		Started:    time.Now(),
		history:    []State{StateReceived},
		logger:     rl.logger,
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.requests[req.ID] = req
	return req
}

func (rl *RequestList) End(id uuid.UUID) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.requests, id)
}

func (rl *RequestList) Get(id uuid.UUID) (*Request, bool) {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	req, ok := rl.requests[id]
	return req, ok
}

func (rl *RequestList) Len() int {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	return len(rl.requests)
}

func (rl *RequestList) Snapshot() []RequestSnapshot {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	out := make([]RequestSnapshot, 0, len(rl.requests))
	for _, req := range rl.requests {
		out = append(out, RequestSnapshot{
			ID:         req.ID.String(),
			RemoteAddr: req.RemoteAddr,
			State:      req.State(),
			AgeSeconds: time.Since(req.Started).Seconds(),
		})
	}
	return out
}
