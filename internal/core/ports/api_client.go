package ports

import (
	"context"
	"io"

	"github.com/ismaelcontreras07/proyecto-programacion/internal/core/domain"
)

// SignUpInput carries the profile fields submitted on registration.
type SignUpInput struct {
	FullName  string `json:"full_name"`
	StudentID string `json:"student_id"`
	Email     string `json:"email"`
	Career    string `json:"career"`
	Semester  int    `json:"semester"`
	Phone     string `json:"phone"`
}

// EventFilter narrows a catalog listing server-side. Zero values mean "all".
type EventFilter struct {
	Type  domain.EventType
	Month int
}

// APIClient is the outbound port to the campus REST API. Implementations
// convert non-2xx responses into human-readable errors (the server `detail`
// message when present) and preserve context cancellation through wrapping so
// callers can suppress aborted requests.
type APIClient interface {
	// Login exchanges a matrícula (or username) and password for a session.
	Login(ctx context.Context, identifier, password string) (*domain.Session, error)
	// Register submits the sign-up form. Exactly one of the results is
	// non-nil: a session when the account is created immediately, or a
	// pending verification when an SMS challenge is required first.
	Register(ctx context.Context, in SignUpInput) (*domain.Session, *domain.PendingVerification, error)
	// VerifySMS consumes a pending verification, producing a session.
	VerifySMS(ctx context.Context, verificationID, code string) (*domain.Session, error)

	ListEvents(ctx context.Context, filter EventFilter) ([]domain.EventSummary, error)
	// GetEvent returns domain.ErrEventNotFound on 404; "not found" is a
	// distinct state, not a generic error.
	GetEvent(ctx context.Context, eventID string) (*domain.EventDetail, error)

	CreateEvent(ctx context.Context, token string, m domain.EventMutation) (*domain.EventDetail, error)
	UpdateEvent(ctx context.Context, token, eventID string, m domain.EventMutation) (*domain.EventDetail, error)
	DeleteEvent(ctx context.Context, token, eventID string) error
	// UploadImage sends the cover image as multipart form data and returns
	// the server-assigned image URL.
	UploadImage(ctx context.Context, token, filename string, file io.Reader) (string, error)

	Enroll(ctx context.Context, token, eventID string) (*domain.RegistrationPublic, error)
	MyRegistrations(ctx context.Context, token string) ([]domain.UserEventRegistration, error)
	CancelRegistration(ctx context.Context, token, eventID string) (*domain.RegistrationPublic, error)

	AdminSummary(ctx context.Context, token string) (*domain.AdminSummary, error)
	Me(ctx context.Context, token string) (*domain.User, error)
}
