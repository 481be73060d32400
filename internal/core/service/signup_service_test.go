package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ismaelcontreras07/proyecto-programacion/internal/core/domain"
	"github.com/ismaelcontreras07/proyecto-programacion/internal/core/ports"
)

func newTestAuth() (*AuthService, *recordNavigator) {
	nav := &recordNavigator{}
	auth := NewAuthService(&memStore{}, newMemBridge(), nav, zerolog.Nop())
	auth.Ready()
	return auth, nav
}

func validSignUpForm() SignUpForm {
	return SignUpForm{
		FullName:  "Ana Gómez Pérez",
		StudentID: "ABCD1234-56",
		Email:     "ana@example.com",
		Career:    "Sistemas Computacionales",
		Semester:  4,
		Phone:     "5512345678",
	}
}

func pendingVerification() *domain.PendingVerification {
	return &domain.PendingVerification{
		VerificationID:   "ver-1",
		ExpiresInSeconds: 300,
		SMSDestination:   "5512345678",
		DevSMSCode:       "123456",
		Message:          "We sent a verification code to your phone",
	}
}

func TestNormalizeStudentID(t *testing.T) {
	cases := map[string]string{
		"abcd123456":    "ABCD1234-56",
		"ABCD1234-56":   "ABCD1234-56",
		"ab cd-1234 56": "ABCD1234-56",
		"abcd12":        "ABCD12",
		"abcd1234567":   "ABCD1234-56",
	}
	for in, want := range cases {
		if got := NormalizeStudentID(in); got != want {
			t.Fatalf("NormalizeStudentID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSignupService_SignInSuccess(t *testing.T) {
	auth, _ := newTestAuth()
	defer auth.Close()
	api := &stubAPI{
		loginFn: func(_ context.Context, identifier, password string) (*domain.Session, error) {
			if identifier != "ABCD1234-56" || password != "s3cret" {
				return nil, errors.New("Invalid credentials")
			}
			return studentSession(), nil
		},
	}
	svc := NewSignupService(api, auth, zerolog.Nop())

	if err := svc.SubmitSignIn(context.Background(), "ABCD1234-56", "s3cret"); err != nil {
		t.Fatalf("sign in failed: %v", err)
	}
	if !auth.IsAuthenticated() {
		t.Fatalf("expected session after sign in")
	}
	if svc.Busy() {
		t.Fatalf("busy flag not released")
	}
}

func TestSignupService_SignInFailureStaysPut(t *testing.T) {
	auth, nav := newTestAuth()
	defer auth.Close()
	api := &stubAPI{
		loginFn: func(context.Context, string, string) (*domain.Session, error) {
			return nil, errors.New("Invalid credentials")
		},
	}
	svc := NewSignupService(api, auth, zerolog.Nop())

	if err := svc.SubmitSignIn(context.Background(), "ABCD1234-56", "wrong"); err == nil {
		t.Fatalf("expected error")
	}
	if svc.Mode() != ModeSignIn {
		t.Fatalf("failure must keep the workflow in sign-in, got %s", svc.Mode())
	}
	if svc.ErrorMessage() != "Invalid credentials" {
		t.Fatalf("unexpected error message: %q", svc.ErrorMessage())
	}
	if auth.IsAuthenticated() || len(nav.routes) != 0 {
		t.Fatalf("failed sign-in must not log in or navigate")
	}
}

func TestSignupService_SignUpValidationBlocksNetwork(t *testing.T) {
	auth, _ := newTestAuth()
	defer auth.Close()
	api := &stubAPI{}
	svc := NewSignupService(api, auth, zerolog.Nop())
	if err := svc.SwitchMode(ModeSignUp); err != nil {
		t.Fatalf("switch mode: %v", err)
	}

	form := validSignUpForm()
	form.StudentID = "not-a-matricula"
	err := svc.SubmitSignUp(context.Background(), form)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if api.networkCalls != 0 {
		t.Fatalf("validation failure must not reach the network")
	}
	if !strings.Contains(svc.ErrorMessage(), "XXXXXXXX-XX") {
		t.Fatalf("unexpected validation message: %q", svc.ErrorMessage())
	}
	if svc.Mode() != ModeSignUp {
		t.Fatalf("failure must keep the workflow in sign-up")
	}
}

func TestSignupService_SignUpTransitionsToVerify(t *testing.T) {
	auth, _ := newTestAuth()
	defer auth.Close()
	api := &stubAPI{
		registerFn: func(_ context.Context, in ports.SignUpInput) (*domain.Session, *domain.PendingVerification, error) {
			if in.StudentID != "ABCD1234-56" {
				t.Fatalf("unexpected student id: %s", in.StudentID)
			}
			return nil, pendingVerification(), nil
		},
	}
	svc := NewSignupService(api, auth, zerolog.Nop())
	if err := svc.SwitchMode(ModeSignUp); err != nil {
		t.Fatalf("switch mode: %v", err)
	}

	if err := svc.SubmitSignUp(context.Background(), validSignUpForm()); err != nil {
		t.Fatalf("sign up failed: %v", err)
	}
	if svc.Mode() != ModeVerifySMS {
		t.Fatalf("expected verify mode, got %s", svc.Mode())
	}

	pending := svc.Pending()
	if pending == nil {
		t.Fatalf("expected pending verification")
	}
	if pending.SMSDestination != "5512345678" {
		t.Fatalf("destination phone lost: %q", pending.SMSDestination)
	}
	if pending.DevSMSCode != "123456" {
		t.Fatalf("dev code lost: %q", pending.DevSMSCode)
	}
	if auth.IsAuthenticated() {
		t.Fatalf("must not be logged in before verification")
	}
}

func TestSignupService_SignUpAutoLoginVariant(t *testing.T) {
	auth, _ := newTestAuth()
	defer auth.Close()
	api := &stubAPI{
		registerFn: func(context.Context, ports.SignUpInput) (*domain.Session, *domain.PendingVerification, error) {
			return studentSession(), nil, nil
		},
	}
	svc := NewSignupService(api, auth, zerolog.Nop())
	if err := svc.SwitchMode(ModeSignUp); err != nil {
		t.Fatalf("switch mode: %v", err)
	}

	if err := svc.SubmitSignUp(context.Background(), validSignUpForm()); err != nil {
		t.Fatalf("sign up failed: %v", err)
	}
	if !auth.IsAuthenticated() {
		t.Fatalf("expected immediate session")
	}
	if svc.Mode() != ModeSignUp {
		t.Fatalf("auto-login leaves the mode alone, got %s", svc.Mode())
	}
}

func TestSignupService_WrongCodeKeepsPending(t *testing.T) {
	auth, _ := newTestAuth()
	defer auth.Close()
	api := &stubAPI{
		registerFn: func(context.Context, ports.SignUpInput) (*domain.Session, *domain.PendingVerification, error) {
			return nil, pendingVerification(), nil
		},
		verifyFn: func(_ context.Context, id, code string) (*domain.Session, error) {
			if code != "123456" {
				return nil, errors.New("Incorrect verification code")
			}
			return studentSession(), nil
		},
	}
	svc := NewSignupService(api, auth, zerolog.Nop())
	if err := svc.SwitchMode(ModeSignUp); err != nil {
		t.Fatalf("switch mode: %v", err)
	}
	if err := svc.SubmitSignUp(context.Background(), validSignUpForm()); err != nil {
		t.Fatalf("sign up failed: %v", err)
	}

	if err := svc.SubmitCode(context.Background(), "000000"); err == nil {
		t.Fatalf("expected wrong-code error")
	}
	if svc.Mode() != ModeVerifySMS {
		t.Fatalf("wrong code must keep verify mode, got %s", svc.Mode())
	}
	if pending := svc.Pending(); pending == nil || pending.SMSDestination != "5512345678" {
		t.Fatalf("pending context lost after wrong code")
	}
	if svc.ErrorMessage() != "Incorrect verification code" {
		t.Fatalf("unexpected error message: %q", svc.ErrorMessage())
	}

	// Correct code consumes the pending verification and signs in.
	if err := svc.SubmitCode(context.Background(), "123456"); err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if !auth.IsAuthenticated() {
		t.Fatalf("expected session after verification")
	}
	if svc.Pending() != nil {
		t.Fatalf("pending verification must be consumed")
	}
	if svc.Mode() != ModeSignIn {
		t.Fatalf("expected workflow reset, got %s", svc.Mode())
	}
}

func TestSignupService_AbandonVerification(t *testing.T) {
	auth, _ := newTestAuth()
	defer auth.Close()
	api := &stubAPI{
		registerFn: func(context.Context, ports.SignUpInput) (*domain.Session, *domain.PendingVerification, error) {
			return nil, pendingVerification(), nil
		},
	}
	svc := NewSignupService(api, auth, zerolog.Nop())
	if err := svc.SwitchMode(ModeSignUp); err != nil {
		t.Fatalf("switch mode: %v", err)
	}
	if err := svc.SubmitSignUp(context.Background(), validSignUpForm()); err != nil {
		t.Fatalf("sign up failed: %v", err)
	}

	if err := svc.AbandonVerification(); err != nil {
		t.Fatalf("abandon failed: %v", err)
	}
	if svc.Mode() != ModeSignUp {
		t.Fatalf("expected return to sign-up, got %s", svc.Mode())
	}
	if svc.Pending() != nil {
		t.Fatalf("pending verification must be discarded")
	}
}

func TestSignupService_SwitchModeClearsMessages(t *testing.T) {
	auth, _ := newTestAuth()
	defer auth.Close()
	api := &stubAPI{
		loginFn: func(context.Context, string, string) (*domain.Session, error) {
			return nil, errors.New("Invalid credentials")
		},
	}
	svc := NewSignupService(api, auth, zerolog.Nop())

	_ = svc.SubmitSignIn(context.Background(), "ABCD1234-56", "wrong")
	if svc.ErrorMessage() == "" {
		t.Fatalf("expected error message before switch")
	}

	if err := svc.SwitchMode(ModeSignUp); err != nil {
		t.Fatalf("switch mode: %v", err)
	}
	if svc.ErrorMessage() != "" || svc.InfoMessage() != "" {
		t.Fatalf("mode switch must clear transient messages")
	}

	if err := svc.SwitchMode(ModeVerifySMS); err == nil {
		t.Fatalf("direct switch to verify must be refused")
	}
}

func TestSignupService_VerifyModeBlocksDirectSwitch(t *testing.T) {
	auth, _ := newTestAuth()
	defer auth.Close()
	api := &stubAPI{
		registerFn: func(context.Context, ports.SignUpInput) (*domain.Session, *domain.PendingVerification, error) {
			return nil, pendingVerification(), nil
		},
	}
	svc := NewSignupService(api, auth, zerolog.Nop())
	if err := svc.SwitchMode(ModeSignUp); err != nil {
		t.Fatalf("switch mode: %v", err)
	}
	if err := svc.SubmitSignUp(context.Background(), validSignUpForm()); err != nil {
		t.Fatalf("sign up failed: %v", err)
	}

	if err := svc.SwitchMode(ModeSignIn); err != domain.ErrNoPendingVerification {
		t.Fatalf("expected ErrNoPendingVerification guarding verify mode, got %v", err)
	}
}
