package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/ismaelcontreras07/proyecto-programacion/internal/core/domain"
	"github.com/ismaelcontreras07/proyecto-programacion/internal/core/ports"
)

// SignupMode tags the workflow's current step. The pending verification
// context exists only in ModeVerifySMS, so "verifying with nothing to verify"
// is unrepresentable.
type SignupMode string

const (
	ModeSignIn    SignupMode = "signin"
	ModeSignUp    SignupMode = "signup"
	ModeVerifySMS SignupMode = "verify_sms"
)

// SignUpForm carries the registration fields. Validation runs locally before
// any network call.
type SignUpForm struct {
	FullName  string `validate:"required,min=3,max=120"`
	StudentID string `validate:"required,matricula"`
	Email     string `validate:"required,email"`
	Career    string `validate:"required,min=3,max=120"`
	Semester  int    `validate:"required,min=1,max=12"`
	Phone     string `validate:"required,min=8,max=20"`
}

var matriculaPattern = regexp.MustCompile(`^[A-Z0-9]{8}-[A-Z0-9]{2}$`)

// NormalizeStudentID uppercases, strips separators, and re-inserts the dash
// of the XXXXXXXX-XX matrícula format, mirroring what the sign-in form does
// as the user types.
func NormalizeStudentID(value string) string {
	var compact strings.Builder
	for _, r := range strings.ToUpper(value) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			compact.WriteRune(r)
		}
	}
	id := compact.String()
	if len(id) > 10 {
		id = id[:10]
	}
	if len(id) <= 8 {
		return id
	}
	return id[:8] + "-" + id[8:]
}

// SignupService drives the sign-in / sign-up / SMS-verify sequence as a
// strict state machine; each step calls the API and advances only on
// success. A busy flag rejects overlapping submissions: requests in flight
// are never cancelled, just never doubled.
type SignupService struct {
	api      ports.APIClient
	auth     *AuthService
	validate *validator.Validate
	log      zerolog.Logger

	mu      sync.Mutex
	mode    SignupMode
	pending *domain.PendingVerification
	busy    bool
	errMsg  string
	infoMsg string
}

func NewSignupService(api ports.APIClient, auth *AuthService, log zerolog.Logger) *SignupService {
	v := validator.New()
	// Always passes the regexp on normalized input; raw user input may not.
	_ = v.RegisterValidation("matricula", func(fl validator.FieldLevel) bool {
		return matriculaPattern.MatchString(fl.Field().String())
	})

	return &SignupService{
		api:      api,
		auth:     auth,
		validate: v,
		log:      log,
		mode:     ModeSignIn,
	}
}

// Mode returns the workflow's current step.
func (s *SignupService) Mode() SignupMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Pending returns a copy of the pending verification context, or nil outside
// ModeVerifySMS. The destination phone and the optional development code stay
// available for display while verification is in progress.
func (s *SignupService) Pending() *domain.PendingVerification {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return nil
	}
	p := *s.pending
	return &p
}

// Busy reports whether a submission is in flight.
func (s *SignupService) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// ErrorMessage returns the banner text for the last failure, if any.
func (s *SignupService) ErrorMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

// InfoMessage returns the informational banner text, if any.
func (s *SignupService) InfoMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.infoMsg
}

// SwitchMode toggles between ModeSignIn and ModeSignUp, clearing transient
// messages. It refuses to interrupt an in-flight submission or an in-progress
// verification (use AbandonVerification for the latter).
func (s *SignupService) SwitchMode(to SignupMode) error {
	if to != ModeSignIn && to != ModeSignUp {
		return fmt.Errorf("cannot switch directly to %s", to)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return domain.ErrBusy
	}
	if s.mode == ModeVerifySMS {
		return domain.ErrNoPendingVerification
	}
	s.mode = to
	s.errMsg = ""
	s.infoMsg = ""
	return nil
}

// AbandonVerification discards the pending verification and returns to the
// sign-up step so the user can resubmit their registration data.
func (s *SignupService) AbandonVerification() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return domain.ErrBusy
	}
	if s.mode != ModeVerifySMS {
		return domain.ErrNoPendingVerification
	}
	s.pending = nil
	s.mode = ModeSignUp
	s.errMsg = ""
	s.infoMsg = ""
	return nil
}

// SubmitSignIn exchanges matrícula and password for a session and hands it to
// the auth facade. On failure the workflow stays in ModeSignIn with the error
// surfaced.
func (s *SignupService) SubmitSignIn(ctx context.Context, studentID, password string) error {
	if err := s.begin(ModeSignIn); err != nil {
		return err
	}

	sess, err := s.api.Login(ctx, studentID, password)
	if err != nil {
		return s.fail(err)
	}
	if err := s.auth.Login(sess); err != nil {
		return s.fail(err)
	}

	s.finish(func() {})
	return nil
}

// SubmitSignUp validates the form locally, then registers. Depending on the
// server's answer it either logs the new account straight in or transitions
// to ModeVerifySMS holding the pending verification.
func (s *SignupService) SubmitSignUp(ctx context.Context, form SignUpForm) error {
	if err := s.begin(ModeSignUp); err != nil {
		return err
	}

	if err := s.validate.Struct(form); err != nil {
		return s.fail(humanValidationError(err))
	}

	sess, pending, err := s.api.Register(ctx, ports.SignUpInput{
		FullName:  form.FullName,
		StudentID: form.StudentID,
		Email:     form.Email,
		Career:    form.Career,
		Semester:  form.Semester,
		Phone:     form.Phone,
	})
	if err != nil {
		return s.fail(err)
	}

	if pending != nil {
		s.finish(func() {
			s.mode = ModeVerifySMS
			s.pending = pending
			s.infoMsg = pending.Message
		})
		s.log.Info().Str("destination", pending.SMSDestination).Msg("sms verification pending")
		return nil
	}

	// Auto-login variant: the account was created without a challenge.
	if err := s.auth.Login(sess); err != nil {
		return s.fail(err)
	}
	s.finish(func() {})
	return nil
}

// SubmitCode confirms the SMS challenge. On success the pending verification
// is consumed and the resulting session handed to the auth facade; on failure
// the workflow stays in ModeVerifySMS with the pending context preserved.
func (s *SignupService) SubmitCode(ctx context.Context, code string) error {
	if err := s.begin(ModeVerifySMS); err != nil {
		return err
	}

	s.mu.Lock()
	pending := s.pending
	s.mu.Unlock()
	if pending == nil {
		s.finish(func() {})
		return domain.ErrNoPendingVerification
	}

	sess, err := s.api.VerifySMS(ctx, pending.VerificationID, code)
	if err != nil {
		return s.fail(err)
	}
	if err := s.auth.Login(sess); err != nil {
		return s.fail(err)
	}

	s.finish(func() {
		s.pending = nil
		s.mode = ModeSignIn
	})
	return nil
}

// begin marks a submission in flight after checking the workflow is in the
// expected step, and clears transient messages.
func (s *SignupService) begin(expected SignupMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return domain.ErrBusy
	}
	if s.mode != expected {
		return fmt.Errorf("workflow is in %s, not %s", s.mode, expected)
	}
	s.busy = true
	s.errMsg = ""
	s.infoMsg = ""
	return nil
}

// fail ends the submission in place, surfacing a human-readable message.
func (s *SignupService) fail(err error) error {
	s.mu.Lock()
	s.busy = false
	s.errMsg = err.Error()
	s.mu.Unlock()
	return err
}

// finish ends the submission and applies the state transition atomically.
func (s *SignupService) finish(apply func()) {
	s.mu.Lock()
	s.busy = false
	apply()
	s.mu.Unlock()
}

// humanValidationError flattens validator errors into one displayable
// message, one clause per failed field.
func humanValidationError(err error) error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, fieldError(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func fieldError(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "matricula":
		return field + " must match the format XXXXXXXX-XX"
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}
