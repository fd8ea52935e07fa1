package services

import (
	"context"
	"fmt"
	"sync"

	"flow-pantry-system/models"

	"go.uber.org/zap"
)

type SessionState int

const (
	SessionUninitialized SessionState = iota
	SessionAuthenticating
	SessionAuthenticated
	SessionAnonymous
)

func (s SessionState) String() string {
	switch s {
	case SessionUninitialized:
		return "uninitialized"
	case SessionAuthenticating:
		return "authenticating"
	case SessionAuthenticated:
		return "authenticated"
	case SessionAnonymous:
		return "anonymous"
	}
	return fmt.Sprintf("SessionState(%d)", int(s))
}

// allowed lists the legal moves out of each state.
var allowed = map[SessionState][]SessionState{
	SessionUninitialized:  {SessionAuthenticating, SessionAnonymous},
	SessionAuthenticating: {SessionAuthenticated, SessionAnonymous},
	SessionAuthenticated:  {SessionAnonymous},
	SessionAnonymous:      {SessionAuthenticating},
}

type Transition struct {
	From     SessionState
	To       SessionState
	Identity *models.Identity
}

// SessionListener is told about every transition of every session.
type SessionListener func(ctx context.Context, t Transition)

// SessionHub creates sessions and fans their transitions out to listeners.
type SessionHub struct {
	mu        sync.RWMutex
	nextID    int
	listeners map[int]SessionListener
}

func NewSessionHub() *SessionHub {
	return &SessionHub{listeners: map[int]SessionListener{}}
}

// Subscribe registers l and returns a function that removes it.
func (h *SessionHub) Subscribe(l SessionListener) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	h.listeners[id] = l
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.listeners, id)
	}
}

func (h *SessionHub) publish(ctx context.Context, t Transition) {
	h.mu.RLock()
	listeners := make([]SessionListener, 0, len(h.listeners))
	for _, l := range h.listeners {
		listeners = append(listeners, l)
	}
	h.mu.RUnlock()

	for _, l := range listeners {
		l(ctx, t)
	}
}

func (h *SessionHub) NewSession() *Session {
	return &Session{hub: h, state: SessionUninitialized}
}

// Session tracks one caller's authentication state.
type Session struct {
	hub      *SessionHub
	mu       sync.Mutex
	state    SessionState
	identity *models.Identity
}

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Identity returns the signed-in subject, if any.
func (s *Session) Identity() (models.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != SessionAuthenticated || s.identity == nil {
		return models.Identity{}, false
	}
	return *s.identity, true
}

func (s *Session) BeginAuthentication(ctx context.Context) error {
	return s.move(ctx, SessionAuthenticating, nil)
}

func (s *Session) Authenticate(ctx context.Context, identity models.Identity) error {
	return s.move(ctx, SessionAuthenticated, &identity)
}

func (s *Session) MarkAnonymous(ctx context.Context) error {
	return s.move(ctx, SessionAnonymous, nil)
}

func (s *Session) move(ctx context.Context, to SessionState, identity *models.Identity) error {
	s.mu.Lock()
	from := s.state
	ok := false
	for _, next := range allowed[from] {
		if next == to {
			ok = true
			break
		}
	}
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("session cannot go from %s to %s", from, to)
	}
	s.state = to
	s.identity = identity
	s.mu.Unlock()

	if s.hub != nil {
		s.hub.publish(ctx, Transition{From: from, To: to, Identity: identity})
	}
	return nil
}

// EnsureUserOnSignIn creates the user document whenever a session authenticates.
func EnsureUserOnSignIn(users *UserService, log *zap.Logger) SessionListener {
	return func(ctx context.Context, t Transition) {
		if t.To != SessionAuthenticated || t.Identity == nil {
			return
		}
		if _, err := users.EnsureUser(ctx, *t.Identity); err != nil {
			log.Warn("⚠️ [Session] could not ensure user document", zap.String("user_id", t.Identity.UID), zap.Error(err))
		}
	}
}
