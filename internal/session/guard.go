// Package session gates dashboard views on an authenticated owner session.
//
// A Guard starts in Checking, asks its SessionSource once and moves to
// Authenticated (children rendered once) or Redirecting (one redirect, no
// rendering). While Authenticated it watches the owner's session events and
// redirects exactly once more when the session ends.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/survey-api/internal/domain/entity"
	"github.com/yourusername/survey-api/internal/domain/repository"
	"github.com/yourusername/survey-api/internal/metrics"
	"github.com/yourusername/survey-api/pkg/logger"
)

// State is the guard's position in its lifecycle
type State int

const (
	StateChecking State = iota
	StateAuthenticated
	StateRedirecting
)

func (s State) String() string {
	switch s {
	case StateChecking:
		return "checking"
	case StateAuthenticated:
		return "authenticated"
	case StateRedirecting:
		return "redirecting"
	}
	return "unknown"
}

// Session is an authenticated owner session
type Session struct {
	OwnerID   uuid.UUID
	TokenID   string
	Email     string
	ExpiresAt time.Time
}

// SessionSource resolves the current session and streams its changes.
// Current returns (nil, nil) when there is no session.
type SessionSource interface {
	Current(ctx context.Context) (*Session, error)
	Subscribe(ctx context.Context, ownerID uuid.UUID) (repository.SessionSubscription, error)
}

// Navigator sends the viewer to the sign-in entry point
type Navigator interface {
	Redirect(location string)
}

// Renderer shows the protected view
type Renderer interface {
	Render(s *Session)
}

// Guard protects one mounted view. Navigator and Renderer are called from
// the guard's goroutine and must not call back into the guard.
type Guard struct {
	source   SessionSource
	nav      Navigator
	renderer Renderer
	location string
	log      *logger.Logger

	mu       sync.Mutex
	state    State
	session  *Session
	torn     bool
	rendered bool

	mountOnce    sync.Once
	teardownOnce sync.Once
	cancel       context.CancelFunc
	done         chan struct{}
}

// NewGuard creates a guard that redirects to location
func NewGuard(source SessionSource, nav Navigator, renderer Renderer, location string, log *logger.Logger) *Guard {
	if location == "" {
		location = "/login"
	}
	return &Guard{
		source:   source,
		nav:      nav,
		renderer: renderer,
		location: location,
		log:      log.With("component", "SessionGuard"),
		state:    StateChecking,
		cancel:   func() {},
		done:     make(chan struct{}),
	}
}

// State returns the current state
func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Session returns the authenticated session, or nil
func (g *Guard) Session() *Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.session
}

// Done is closed when the guard's goroutine has exited
func (g *Guard) Done() <-chan struct{} {
	return g.done
}

// Mount starts the session check in the background. Calling it more than
// once has no effect.
func (g *Guard) Mount(ctx context.Context) {
	g.mountOnce.Do(func() {
		g.mu.Lock()
		if g.torn {
			g.mu.Unlock()
			close(g.done)
			return
		}
		ctx, g.cancel = context.WithCancel(ctx)
		g.mu.Unlock()

		go g.run(ctx)
	})
}

// Teardown stops watching session events. It is safe to call repeatedly
// and before Mount; no callback runs after it returns.
func (g *Guard) Teardown() {
	g.teardownOnce.Do(func() {
		g.mu.Lock()
		g.torn = true
		cancel := g.cancel
		g.mu.Unlock()
		cancel()
	})
}

func (g *Guard) run(ctx context.Context) {
	defer close(g.done)
	defer metrics.GuardMounted()()

	sess, err := g.source.Current(ctx)
	if err != nil {
		g.log.Warn("session check failed", "error", err)
		sess = nil
	}
	if sess == nil {
		g.redirect("no session")
		return
	}

	// Subscribe before rendering so a sign-out racing the render is not lost.
	sub, err := g.source.Subscribe(ctx, sess.OwnerID)
	if err != nil {
		g.log.Warn("session events unavailable", "owner_id", sess.OwnerID, "error", err)
		g.redirect("session events unavailable")
		return
	}
	defer sub.Close()

	if !g.authenticate(sess) {
		return
	}

	// nil blocks forever when the session carries no expiry
	var expiry <-chan time.Time
	if !sess.ExpiresAt.IsZero() {
		timer := time.NewTimer(time.Until(sess.ExpiresAt))
		defer timer.Stop()
		expiry = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-expiry:
			g.redirect(entity.SessionEventSessionLost)
			return
		case event, ok := <-sub.Events():
			if !ok {
				if ctx.Err() != nil {
					return
				}
				g.redirect("session events closed")
				return
			}
			if !g.ends(sess, event) {
				continue
			}
			g.redirect(event.Type)
			return
		}
	}
}

// ends reports whether event terminates sess. An event without a token ID
// ends every session of the owner; otherwise only the matching token's.
func (g *Guard) ends(sess *Session, event entity.SessionEvent) bool {
	if !event.EndsSession() || event.OwnerID != sess.OwnerID {
		return false
	}
	return event.TokenID == "" || event.TokenID == sess.TokenID
}

func (g *Guard) authenticate(sess *Session) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.torn || g.state != StateChecking {
		return false
	}
	g.state = StateAuthenticated
	g.session = sess
	if !g.rendered {
		g.rendered = true
		g.renderer.Render(sess)
	}
	g.log.Debug("session authenticated", "owner_id", sess.OwnerID)
	return true
}

func (g *Guard) redirect(reason string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.torn || g.state == StateRedirecting {
		return
	}
	g.state = StateRedirecting
	g.session = nil
	g.nav.Redirect(g.location)
	g.log.Info("redirecting to sign-in", "reason", reason, "location", g.location)
}
