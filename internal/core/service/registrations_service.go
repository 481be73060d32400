package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ismaelcontreras07/proyecto-programacion/internal/core/domain"
	"github.com/ismaelcontreras07/proyecto-programacion/internal/core/ports"
)

// RegistrationsService backs the "my events" view: the student's
// registrations plus enroll and cancel actions. A successful cancel flips
// that one item's status locally; the next Load re-fetches, so the server
// stays authoritative.
type RegistrationsService struct {
	api  ports.APIClient
	auth *AuthService
	log  zerolog.Logger

	mu           sync.Mutex
	items        []domain.UserEventRegistration
	loading      bool
	errMsg       string
	successMsg   string
	cancellingID string
	enrolling    bool
	generation   int
}

func NewRegistrationsService(api ports.APIClient, auth *AuthService, log zerolog.Logger) *RegistrationsService {
	return &RegistrationsService{api: api, auth: auth, log: log}
}

func (s *RegistrationsService) token() (string, error) {
	snap := s.auth.Snapshot()
	if snap.IsLoading || !snap.IsAuthenticated {
		return "", domain.ErrUnauthorized
	}
	return snap.AccessToken, nil
}

// Load fetches the signed-in student's registrations. A cancelled load sets
// no error and leaves the list untouched; only the most recent load applies.
func (s *RegistrationsService) Load(ctx context.Context) error {
	token, err := s.token()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.loading = true
	s.errMsg = ""
	s.successMsg = ""
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	items, err := s.api.MyRegistrations(ctx, token)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return nil
	}
	s.loading = false
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return nil
	}
	if err != nil {
		s.errMsg = err.Error()
		return err
	}
	s.items = items
	return nil
}

// Items returns the last fetched registrations.
func (s *RegistrationsService) Items() []domain.UserEventRegistration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.UserEventRegistration, len(s.items))
	copy(out, s.items)
	return out
}

// Loading reports whether a fetch is in flight.
func (s *RegistrationsService) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// ErrorMessage returns the last failure banner, if any.
func (s *RegistrationsService) ErrorMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

// SuccessMessage returns the last success banner, if any.
func (s *RegistrationsService) SuccessMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.successMsg
}

// Enroll registers the signed-in student for an event. The account data on
// file is used; no additional form is involved.
func (s *RegistrationsService) Enroll(ctx context.Context, eventID, eventName string) error {
	token, err := s.token()
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.enrolling {
		s.mu.Unlock()
		return domain.ErrBusy
	}
	s.enrolling = true
	s.errMsg = ""
	s.successMsg = ""
	s.mu.Unlock()

	_, err = s.api.Enroll(ctx, token, eventID)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.enrolling = false
	if err != nil {
		s.errMsg = err.Error()
		return err
	}
	s.successMsg = fmt.Sprintf("your spot for %q is confirmed", eventName)
	return nil
}

// Cancel withdraws one registration. On success only that item's status
// flips to cancelled in the displayed list; every other item is untouched.
func (s *RegistrationsService) Cancel(ctx context.Context, registrationID, eventID string) error {
	token, err := s.token()
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.cancellingID != "" {
		s.mu.Unlock()
		return domain.ErrBusy
	}
	s.cancellingID = registrationID
	s.errMsg = ""
	s.successMsg = ""
	s.mu.Unlock()

	_, err = s.api.CancelRegistration(ctx, token, eventID)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancellingID = ""
	if err != nil {
		s.errMsg = err.Error()
		return err
	}

	for i := range s.items {
		if s.items[i].RegistrationID == registrationID {
			s.items[i].Status = domain.StatusCancelled
			s.successMsg = fmt.Sprintf("you cancelled your spot for %q", s.items[i].Event.Name)
			break
		}
	}
	return nil
}
