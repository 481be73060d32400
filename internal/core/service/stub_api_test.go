package service

import (
	"context"
	"errors"
	"io"

	"github.com/ismaelcontreras07/proyecto-programacion/internal/core/domain"
	"github.com/ismaelcontreras07/proyecto-programacion/internal/core/ports"
)

// stubAPI implements ports.APIClient through overridable function fields.
// Calls without an override fail loudly so a test can't silently hit an
// endpoint it did not mean to.
type stubAPI struct {
	loginFn      func(ctx context.Context, identifier, password string) (*domain.Session, error)
	registerFn   func(ctx context.Context, in ports.SignUpInput) (*domain.Session, *domain.PendingVerification, error)
	verifyFn     func(ctx context.Context, verificationID, code string) (*domain.Session, error)
	listFn       func(ctx context.Context, filter ports.EventFilter) ([]domain.EventSummary, error)
	getFn        func(ctx context.Context, eventID string) (*domain.EventDetail, error)
	createFn     func(ctx context.Context, token string, m domain.EventMutation) (*domain.EventDetail, error)
	updateFn     func(ctx context.Context, token, eventID string, m domain.EventMutation) (*domain.EventDetail, error)
	deleteFn     func(ctx context.Context, token, eventID string) error
	uploadFn     func(ctx context.Context, token, filename string, file io.Reader) (string, error)
	enrollFn     func(ctx context.Context, token, eventID string) (*domain.RegistrationPublic, error)
	myRegsFn     func(ctx context.Context, token string) ([]domain.UserEventRegistration, error)
	cancelRegFn  func(ctx context.Context, token, eventID string) (*domain.RegistrationPublic, error)
	summaryFn    func(ctx context.Context, token string) (*domain.AdminSummary, error)
	meFn         func(ctx context.Context, token string) (*domain.User, error)
	listCalls    int
	networkCalls int
}

var errUnexpectedCall = errors.New("unexpected api call")

func (s *stubAPI) Login(ctx context.Context, identifier, password string) (*domain.Session, error) {
	s.networkCalls++
	if s.loginFn == nil {
		return nil, errUnexpectedCall
	}
	return s.loginFn(ctx, identifier, password)
}

func (s *stubAPI) Register(ctx context.Context, in ports.SignUpInput) (*domain.Session, *domain.PendingVerification, error) {
	s.networkCalls++
	if s.registerFn == nil {
		return nil, nil, errUnexpectedCall
	}
	return s.registerFn(ctx, in)
}

func (s *stubAPI) VerifySMS(ctx context.Context, verificationID, code string) (*domain.Session, error) {
	s.networkCalls++
	if s.verifyFn == nil {
		return nil, errUnexpectedCall
	}
	return s.verifyFn(ctx, verificationID, code)
}

func (s *stubAPI) ListEvents(ctx context.Context, filter ports.EventFilter) ([]domain.EventSummary, error) {
	s.networkCalls++
	s.listCalls++
	if s.listFn == nil {
		return nil, errUnexpectedCall
	}
	return s.listFn(ctx, filter)
}

func (s *stubAPI) GetEvent(ctx context.Context, eventID string) (*domain.EventDetail, error) {
	s.networkCalls++
	if s.getFn == nil {
		return nil, errUnexpectedCall
	}
	return s.getFn(ctx, eventID)
}

func (s *stubAPI) CreateEvent(ctx context.Context, token string, m domain.EventMutation) (*domain.EventDetail, error) {
	s.networkCalls++
	if s.createFn == nil {
		return nil, errUnexpectedCall
	}
	return s.createFn(ctx, token, m)
}

func (s *stubAPI) UpdateEvent(ctx context.Context, token, eventID string, m domain.EventMutation) (*domain.EventDetail, error) {
	s.networkCalls++
	if s.updateFn == nil {
		return nil, errUnexpectedCall
	}
	return s.updateFn(ctx, token, eventID, m)
}

func (s *stubAPI) DeleteEvent(ctx context.Context, token, eventID string) error {
	s.networkCalls++
	if s.deleteFn == nil {
		return errUnexpectedCall
	}
	return s.deleteFn(ctx, token, eventID)
}

func (s *stubAPI) UploadImage(ctx context.Context, token, filename string, file io.Reader) (string, error) {
	s.networkCalls++
	if s.uploadFn == nil {
		return "", errUnexpectedCall
	}
	return s.uploadFn(ctx, token, filename, file)
}

func (s *stubAPI) Enroll(ctx context.Context, token, eventID string) (*domain.RegistrationPublic, error) {
	s.networkCalls++
	if s.enrollFn == nil {
		return nil, errUnexpectedCall
	}
	return s.enrollFn(ctx, token, eventID)
}

func (s *stubAPI) MyRegistrations(ctx context.Context, token string) ([]domain.UserEventRegistration, error) {
	s.networkCalls++
	if s.myRegsFn == nil {
		return nil, errUnexpectedCall
	}
	return s.myRegsFn(ctx, token)
}

func (s *stubAPI) CancelRegistration(ctx context.Context, token, eventID string) (*domain.RegistrationPublic, error) {
	s.networkCalls++
	if s.cancelRegFn == nil {
		return nil, errUnexpectedCall
	}
	return s.cancelRegFn(ctx, token, eventID)
}

func (s *stubAPI) AdminSummary(ctx context.Context, token string) (*domain.AdminSummary, error) {
	s.networkCalls++
	if s.summaryFn == nil {
		return nil, errUnexpectedCall
	}
	return s.summaryFn(ctx, token)
}

func (s *stubAPI) Me(ctx context.Context, token string) (*domain.User, error) {
	s.networkCalls++
	if s.meFn == nil {
		return nil, errUnexpectedCall
	}
	return s.meFn(ctx, token)
}
