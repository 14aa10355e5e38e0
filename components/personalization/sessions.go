package personalization

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// SessionsOptions carries the collaborators shared by every controller a
// Sessions instance creates.
type SessionsOptions struct {
	Registry    *Registry
	Store       PreferenceStore
	Logger      *zerolog.Logger
	Telemetry   Telemetry
	Notify      NotifyHook
	SaveTimeout time.Duration
}

// Sessions hands out one loaded Controller per user. Transports resolve the
// viewer from the request and ask Sessions for "the current user's
// controller"; anonymous viewers get an ephemeral controller that derives an
// empty layout.
type Sessions struct {
	opts SessionsOptions

	mu          sync.Mutex
	controllers map[string]*Controller
}

// NewSessions builds a session manager.
func NewSessions(opts SessionsOptions) *Sessions {
	return &Sessions{
		opts:        opts,
		controllers: make(map[string]*Controller),
	}
}

// Controller returns the loaded controller for the viewer, creating and
// loading one on first use. The first load for a user runs under the sessions
// lock so concurrent requests observe a settled document.
func (s *Sessions) Controller(ctx context.Context, viewer ViewerContext) *Controller {
	if viewer.UserID == "" {
		c := s.build(viewer)
		c.Load(ctx)
		return c
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.controllers[viewer.UserID]; ok {
		c.SetView(viewer.View)
		return c
	}
	c := s.build(viewer)
	c.Load(ctx)
	s.controllers[viewer.UserID] = c
	return c
}

// Evict discards a user's session, waiting for pending saves to settle.
func (s *Sessions) Evict(userID string) {
	s.mu.Lock()
	c, ok := s.controllers[userID]
	delete(s.controllers, userID)
	s.mu.Unlock()
	if ok {
		c.Close()
	}
}

// Close tears down every session.
func (s *Sessions) Close() {
	s.mu.Lock()
	controllers := make([]*Controller, 0, len(s.controllers))
	for _, c := range s.controllers {
		controllers = append(controllers, c)
	}
	s.controllers = make(map[string]*Controller)
	s.mu.Unlock()
	for _, c := range controllers {
		c.Close()
	}
}

func (s *Sessions) build(viewer ViewerContext) *Controller {
	return NewController(ControllerOptions{
		Registry:    s.opts.Registry,
		Store:       s.opts.Store,
		Viewer:      viewer,
		Logger:      s.opts.Logger,
		Telemetry:   s.opts.Telemetry,
		Notify:      s.opts.Notify,
		SaveTimeout: s.opts.SaveTimeout,
	})
}
