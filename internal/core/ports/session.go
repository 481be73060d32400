package ports

import "github.com/ismaelcontreras07/proyecto-programacion/internal/core/domain"

// SessionStore owns the single persisted session record. It is the sole
// source of truth for "who is logged in".
type SessionStore interface {
	// Read returns the last valid session, or domain.ErrNoSession when the
	// record is absent, corrupt, partial, or foreign. It never panics.
	Read() (*domain.Session, error)
	// Write persists the session atomically from a reader's perspective.
	Write(s *domain.Session) error
	// Clear removes the persisted record. Clearing an absent record is a no-op.
	Clear() error
}

// SessionBridge propagates session changes to every interested subscriber,
// including subscribers in other processes sharing the same session file.
type SessionBridge interface {
	// Subscribe registers fn to run once per session change. The returned
	// cancel func unsubscribes; fn is not invoked for changes observed after
	// cancellation. fn may itself trigger a store write and Publish.
	Subscribe(fn func()) (cancel func())
	// Publish notifies subscribers of a change made by this process. Callers
	// must complete the store write before publishing so a subscriber that
	// reads synchronously inside its callback observes the post-write value.
	Publish()
}
