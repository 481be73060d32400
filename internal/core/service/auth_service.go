package service

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/ismaelcontreras07/proyecto-programacion/internal/core/domain"
	"github.com/ismaelcontreras07/proyecto-programacion/internal/core/ports"
)

// AuthSnapshot is the identity state handed to consumers. Consumers must not
// make authorization decisions while IsLoading is true: the store has not
// been read yet and the state may still flip either way.
type AuthSnapshot struct {
	User            *domain.User
	AccessToken     string
	IsAuthenticated bool
	IsLoading       bool
}

// AuthService is the single integration point for identity. It keeps its
// snapshot current by subscribing to the session bridge, so every instance,
// in this process or another one sharing the session file, observes the same
// authentication state.
//
// The observable states are Initializing (before the first store read),
// Anonymous, and Authenticated. Login and Logout are the only writers of the
// persisted session and the only operations that navigate.
type AuthService struct {
	store  ports.SessionStore
	bridge ports.SessionBridge
	nav    ports.Navigator
	log    zerolog.Logger

	mu      sync.Mutex
	ready   bool
	current *domain.Session
	watches map[int]func(AuthSnapshot)
	nextID  int

	unsubscribe func()
}

func NewAuthService(store ports.SessionStore, bridge ports.SessionBridge, nav ports.Navigator, log zerolog.Logger) *AuthService {
	s := &AuthService{
		store:   store,
		bridge:  bridge,
		nav:     nav,
		log:     log,
		watches: make(map[int]func(AuthSnapshot)),
	}
	s.unsubscribe = bridge.Subscribe(s.refresh)
	return s
}

// Ready performs the first storage read, moving the service out of its
// Initializing state. Call it once the environment is confirmed able to read
// persisted storage.
func (s *AuthService) Ready() {
	sess, err := s.store.Read()

	s.mu.Lock()
	if s.ready {
		s.mu.Unlock()
		return
	}
	s.ready = true
	if err == nil {
		s.current = sess
	}
	s.mu.Unlock()

	s.notify()
}

// Snapshot returns the current identity state.
func (s *AuthService) Snapshot() AuthSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *AuthService) snapshotLocked() AuthSnapshot {
	snap := AuthSnapshot{IsLoading: !s.ready}
	if s.ready && s.current.Valid() {
		snap.User = s.current.User
		snap.AccessToken = s.current.AccessToken
		snap.IsAuthenticated = true
	}
	return snap
}

// CurrentUser returns the signed-in user, or nil.
func (s *AuthService) CurrentUser() *domain.User { return s.Snapshot().User }

// AccessToken returns the bearer token, or "" when signed out.
func (s *AuthService) AccessToken() string { return s.Snapshot().AccessToken }

// IsAuthenticated reports whether a valid session is present.
func (s *AuthService) IsAuthenticated() bool { return s.Snapshot().IsAuthenticated }

// Login persists the session, notifies every subscriber, then navigates:
// administrators to the dashboard, everyone else to the landing page.
// Sessions missing the token or the user are rejected outright.
func (s *AuthService) Login(sess *domain.Session) error {
	if !sess.Valid() {
		return domain.ErrNoSession
	}

	if err := s.store.Write(sess); err != nil {
		return err
	}
	// Write is complete; the bridge refreshes our snapshot synchronously.
	s.bridge.Publish()

	s.log.Info().Str("user", sess.User.Username).Str("role", string(sess.User.Role)).Msg("signed in")

	if sess.User.IsAdmin() {
		s.nav.Navigate(ports.RouteDashboard)
	} else {
		s.nav.Navigate(ports.RouteLanding)
	}
	return nil
}

// Logout clears the persisted session, notifies every subscriber, and
// navigates to the sign-in page.
func (s *AuthService) Logout() error {
	if err := s.store.Clear(); err != nil {
		return err
	}
	s.bridge.Publish()

	s.log.Info().Msg("signed out")
	s.nav.Navigate(ports.RouteLogin)
	return nil
}

// OnChange registers fn to receive the snapshot after every session change.
// The returned cancel func unregisters it.
func (s *AuthService) OnChange(fn func(AuthSnapshot)) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.watches[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.watches, id)
		s.mu.Unlock()
	}
}

// Close detaches the service from the bridge.
func (s *AuthService) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// refresh re-reads the store after a bridge notification. Readiness is only
// established through Ready; a background change never ends Initializing.
func (s *AuthService) refresh() {
	sess, err := s.store.Read()

	s.mu.Lock()
	if err != nil {
		s.current = nil
	} else {
		s.current = sess
	}
	ready := s.ready
	s.mu.Unlock()

	if ready {
		s.notify()
	}
}

func (s *AuthService) notify() {
	s.mu.Lock()
	snap := s.snapshotLocked()
	fns := make([]func(AuthSnapshot), 0, len(s.watches))
	for _, fn := range s.watches {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}
