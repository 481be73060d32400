package api

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ismaelcontreras07/proyecto-programacion/internal/apitest"
	"github.com/ismaelcontreras07/proyecto-programacion/internal/core/domain"
	"github.com/ismaelcontreras07/proyecto-programacion/internal/core/ports"
)

func newTestClient(t *testing.T) (*Client, *apitest.Server) {
	t.Helper()
	srv := apitest.NewServer()
	t.Cleanup(srv.Close)
	return NewClient(srv.URL(), nil, zerolog.Nop()), srv
}

func seedStudent(srv *apitest.Server) string {
	return srv.SeedUser(domain.User{
		ID:        "u1",
		Username:  "ABCD1234-56",
		FullName:  "Ana Gómez",
		Email:     "ana@example.com",
		Role:      domain.RoleUser,
		StudentID: "ABCD1234-56",
		Career:    "Sistemas",
		Semester:  4,
		Phone:     "5512345678",
	}, "s3cret")
}

func seedAdmin(srv *apitest.Server) string {
	return srv.SeedUser(domain.User{
		ID:       "a1",
		Username: "admin",
		FullName: "Coordinación",
		Role:     domain.RoleAdmin,
	}, "admin-pass")
}

func seedEvent(srv *apitest.Server, id, name string) {
	srv.SeedEvent(domain.EventDetail{
		EventSummary: domain.EventSummary{
			ID: id, Image: "/uploads/x.png", Name: name,
			Date: "2026-05-06", Time: "10:00", Place: "Auditorio",
			Location: "Campus", Spots: 100, Type: domain.EventOnsite,
		},
		Agenda:       []string{"Registro"},
		Requirements: []string{"Credencial"},
	})
}

func TestClient_LoginSuccess(t *testing.T) {
	client, srv := newTestClient(t)
	seedStudent(srv)

	sess, err := client.Login(context.Background(), "ABCD1234-56", "s3cret")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if !sess.Valid() {
		t.Fatalf("invalid session returned: %+v", sess)
	}
	if sess.AccessToken != "tok-u1" || sess.User.FullName != "Ana Gómez" {
		t.Fatalf("unexpected session: %+v", sess)
	}
}

func TestClient_LoginBadCredentials(t *testing.T) {
	client, srv := newTestClient(t)
	seedStudent(srv)

	_, err := client.Login(context.Background(), "ABCD1234-56", "wrong")
	if err == nil {
		t.Fatalf("expected error")
	}
	if err.Error() != "Invalid credentials" {
		t.Fatalf("server detail not surfaced: %q", err.Error())
	}
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("401 must map to ErrUnauthorized, got %v", err)
	}
}

func TestClient_RegisterReturnsPendingVerification(t *testing.T) {
	client, _ := newTestClient(t)

	sess, pending, err := client.Register(context.Background(), ports.SignUpInput{
		FullName:  "Luis Pérez",
		StudentID: "EFGH5678-90",
		Email:     "luis@example.com",
		Career:    "Industrial",
		Semester:  2,
		Phone:     "5587654321",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if sess != nil {
		t.Fatalf("pending variant must not return a session")
	}
	if pending == nil || pending.VerificationID == "" {
		t.Fatalf("missing pending verification: %+v", pending)
	}
	if pending.SMSDestination != "5587654321" {
		t.Fatalf("unexpected destination: %q", pending.SMSDestination)
	}
	if pending.DevSMSCode != apitest.DevCode {
		t.Fatalf("dev code not exposed: %q", pending.DevSMSCode)
	}
}

func TestClient_RegisterAutoLoginVariant(t *testing.T) {
	client, srv := newTestClient(t)
	srv.SMSEnabled = false

	sess, pending, err := client.Register(context.Background(), ports.SignUpInput{
		FullName:  "Luis Pérez",
		StudentID: "EFGH5678-90",
		Email:     "luis@example.com",
		Career:    "Industrial",
		Semester:  2,
		Phone:     "5587654321",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if pending != nil {
		t.Fatalf("auto-login variant must not return a pending verification")
	}
	if !sess.Valid() {
		t.Fatalf("invalid session: %+v", sess)
	}
}

func TestClient_VerifySMS(t *testing.T) {
	client, _ := newTestClient(t)

	_, pending, err := client.Register(context.Background(), ports.SignUpInput{
		FullName:  "Luis Pérez",
		StudentID: "EFGH5678-90",
		Email:     "luis@example.com",
		Career:    "Industrial",
		Semester:  2,
		Phone:     "5587654321",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if _, err := client.VerifySMS(context.Background(), pending.VerificationID, "000000"); err == nil {
		t.Fatalf("expected wrong-code error")
	} else if err.Error() != "Incorrect verification code" {
		t.Fatalf("unexpected message: %q", err.Error())
	}

	sess, err := client.VerifySMS(context.Background(), pending.VerificationID, apitest.DevCode)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if !sess.Valid() || !sess.User.PhoneVerified {
		t.Fatalf("expected verified session: %+v", sess)
	}

	// The challenge is single-use.
	if _, err := client.VerifySMS(context.Background(), pending.VerificationID, apitest.DevCode); err == nil {
		t.Fatalf("consumed verification must be rejected")
	}
}

func TestClient_GetEventNotFound(t *testing.T) {
	client, srv := newTestClient(t)
	seedEvent(srv, "e1", "Feria")

	if _, err := client.GetEvent(context.Background(), "missing"); !errors.Is(err, domain.ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound, got %v", err)
	}

	detail, err := client.GetEvent(context.Background(), "e1")
	if err != nil {
		t.Fatalf("get event failed: %v", err)
	}
	if detail.Name != "Feria" || len(detail.Agenda) != 1 {
		t.Fatalf("unexpected detail: %+v", detail)
	}
}

func TestClient_EventCRUD(t *testing.T) {
	client, srv := newTestClient(t)
	token := seedAdmin(srv)

	created, err := client.CreateEvent(context.Background(), token, domain.EventMutation{
		Image: "/uploads/new.png", Name: "Nuevo Taller", Date: "2026-06-01",
		Time: "12:00", Place: "Sala C", Location: "Campus", Spots: 30,
		Type: domain.EventOnline, Agenda: []string{"Apertura"},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.ID == "" || created.Name != "Nuevo Taller" {
		t.Fatalf("unexpected created event: %+v", created)
	}

	updated, err := client.UpdateEvent(context.Background(), token, created.ID, domain.EventMutation{
		Image: "/uploads/new.png", Name: "Taller Renombrado", Spots: 25,
		Type: domain.EventOnline,
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Name != "Taller Renombrado" || updated.Spots != 25 {
		t.Fatalf("unexpected updated event: %+v", updated)
	}

	if err := client.DeleteEvent(context.Background(), token, created.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := client.GetEvent(context.Background(), created.ID); !errors.Is(err, domain.ErrEventNotFound) {
		t.Fatalf("deleted event still served, err %v", err)
	}
}

func TestClient_AdminEndpointsRejectNonAdmin(t *testing.T) {
	client, srv := newTestClient(t)
	token := seedStudent(srv)

	_, err := client.CreateEvent(context.Background(), token, domain.EventMutation{Image: "/x.png", Name: "X"})
	if err == nil {
		t.Fatalf("expected rejection")
	}
	if err.Error() != "Admin privileges required" {
		t.Fatalf("unexpected message: %q", err.Error())
	}

	_, err = client.AdminSummary(context.Background(), "")
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("missing token must map to ErrUnauthorized, got %v", err)
	}
}

func TestClient_UploadImage(t *testing.T) {
	client, srv := newTestClient(t)
	token := seedAdmin(srv)

	url, err := client.UploadImage(context.Background(), token, "feria.png", strings.NewReader("png-bytes"))
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if url != "/uploads/feria.png" {
		t.Fatalf("unexpected url: %q", url)
	}
}

func TestClient_EnrollAndCancel(t *testing.T) {
	client, srv := newTestClient(t)
	token := seedStudent(srv)
	seedEvent(srv, "e1", "Feria")

	reg, err := client.Enroll(context.Background(), token, "e1")
	if err != nil {
		t.Fatalf("enroll failed: %v", err)
	}
	if reg.Status != domain.StatusRegistered || reg.FullName != "Ana Gómez" {
		t.Fatalf("unexpected registration: %+v", reg)
	}

	// Double enrollment is refused with the server's message.
	if _, err := client.Enroll(context.Background(), token, "e1"); err == nil {
		t.Fatalf("expected conflict")
	} else if err.Error() != "You are already registered for this event" {
		t.Fatalf("unexpected message: %q", err.Error())
	}

	mine, err := client.MyRegistrations(context.Background(), token)
	if err != nil {
		t.Fatalf("my registrations failed: %v", err)
	}
	if len(mine) != 1 || mine[0].Event.Name != "Feria" {
		t.Fatalf("unexpected rows: %+v", mine)
	}

	cancelled, err := client.CancelRegistration(context.Background(), token, "e1")
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if cancelled.Status != domain.StatusCancelled {
		t.Fatalf("unexpected status: %+v", cancelled)
	}
	if _, err := client.CancelRegistration(context.Background(), token, "e1"); err == nil {
		t.Fatalf("cancelling twice must fail")
	}
}

func TestClient_AdminSummary(t *testing.T) {
	client, srv := newTestClient(t)
	admin := seedAdmin(srv)
	student := seedStudent(srv)
	seedEvent(srv, "e1", "Feria")

	if _, err := client.Enroll(context.Background(), student, "e1"); err != nil {
		t.Fatalf("enroll failed: %v", err)
	}

	summary, err := client.AdminSummary(context.Background(), admin)
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}
	if summary.TotalEvents != 1 || summary.TotalRegistrations != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(summary.TopEvents) != 1 || summary.TopEvents[0].AvailableSpots != 99 {
		t.Fatalf("unexpected top events: %+v", summary.TopEvents)
	}
}

func TestClient_CancelledContextSurfacesAsCanceled(t *testing.T) {
	client, srv := newTestClient(t)
	seedEvent(srv, "e1", "Feria")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.ListEvents(ctx, ports.EventFilter{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("abort must stay recognizable through wrapping, got %v", err)
	}
}

func TestClient_Me(t *testing.T) {
	client, srv := newTestClient(t)
	token := seedStudent(srv)

	user, err := client.Me(context.Background(), token)
	if err != nil {
		t.Fatalf("me failed: %v", err)
	}
	if user.ID != "u1" || user.Career != "Sistemas" {
		t.Fatalf("unexpected user: %+v", user)
	}

	if _, err := client.Me(context.Background(), "bogus"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("bad token must map to ErrUnauthorized, got %v", err)
	}
}
