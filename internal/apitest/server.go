// Package apitest runs an in-memory stand-in for the campus REST API so
// client code can be exercised over real HTTP in tests. It mirrors the
// production API's conventions: JSON bodies and non-2xx errors carrying a
// `detail` message.
package apitest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"

	"github.com/ismaelcontreras07/proyecto-programacion/internal/core/domain"
)

// DevCode is the SMS code every pending verification accepts.
const DevCode = "123456"

type pendingSignup struct {
	id    string
	code  string
	user  domain.User
	phone string
}

// Server is the fake API. Seed state before pointing a client at URL().
type Server struct {
	httpSrv *httptest.Server

	// SMSEnabled switches sign-up between the pending-verification variant
	// and the immediate-session variant.
	SMSEnabled bool

	mu        sync.Mutex
	passwords map[string]string       // identifier -> password
	users     map[string]domain.User  // identifier -> user
	tokens    map[string]domain.User  // token -> user
	events    []domain.EventDetail
	regs      []domain.UserEventRegistration
	pending   map[string]pendingSignup
	nextID    int
}

func NewServer() *Server {
	s := &Server{
		SMSEnabled: true,
		passwords:  make(map[string]string),
		users:      make(map[string]domain.User),
		tokens:     make(map[string]domain.User),
		pending:    make(map[string]pendingSignup),
	}

	e := echo.New()
	e.HideBanner = true

	e.POST("/api/auth/login", s.login)
	e.POST("/api/auth/register", s.register)
	e.POST("/api/auth/verify-sms", s.verifySMS)
	e.GET("/api/auth/me", s.me)

	e.GET("/api/events", s.listEvents)
	e.GET("/api/events/:id", s.getEvent)
	e.POST("/api/events", s.createEvent)
	e.PUT("/api/events/:id", s.updateEvent)
	e.DELETE("/api/events/:id", s.deleteEvent)
	e.POST("/api/events/upload-image", s.uploadImage)

	e.POST("/api/registrations", s.enroll)
	e.GET("/api/registrations/me", s.myRegistrations)
	e.DELETE("/api/registrations/event/:id", s.cancelRegistration)

	e.GET("/api/admin/summary", s.adminSummary)

	s.httpSrv = httptest.NewServer(e)
	return s
}

func (s *Server) URL() string { return s.httpSrv.URL }
func (s *Server) Close()      { s.httpSrv.Close() }

func detail(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]string{"detail": msg})
}

// SeedUser registers an account and returns a bearer token for it.
func (s *Server) SeedUser(user domain.User, password string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.Username] = user
	s.passwords[user.Username] = password
	token := "tok-" + user.ID
	s.tokens[token] = user
	return token
}

// SeedEvent adds an event to the catalog.
func (s *Server) SeedEvent(ev domain.EventDetail) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
}

// SeedRegistration adds a registration row for /api/registrations/me.
func (s *Server) SeedRegistration(reg domain.UserEventRegistration) {
	s.mu.Lock()
	s.regs = append(s.regs, reg)
	s.mu.Unlock()
}

// Registrations returns a copy of the current registration rows.
func (s *Server) Registrations() []domain.UserEventRegistration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.UserEventRegistration, len(s.regs))
	copy(out, s.regs)
	return out
}

// Events returns a copy of the current catalog.
func (s *Server) Events() []domain.EventDetail {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.EventDetail, len(s.events))
	copy(out, s.events)
	return out
}

func (s *Server) authed(c echo.Context) (domain.User, bool) {
	header := c.Request().Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return domain.User{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.tokens[parts[1]]
	return user, ok
}

func (s *Server) requireAdmin(c echo.Context) (domain.User, error) {
	user, ok := s.authed(c)
	if !ok {
		// detail writes the response itself and returns nil on success, so a
		// non-nil sentinel is returned to make the calling handler bail out.
		if err := detail(c, http.StatusUnauthorized, "Not authenticated"); err != nil {
			return domain.User{}, err
		}
		return domain.User{}, echo.ErrUnauthorized
	}
	if user.Role != domain.RoleAdmin {
		if err := detail(c, http.StatusForbidden, "Admin privileges required"); err != nil {
			return domain.User{}, err
		}
		return domain.User{}, echo.ErrForbidden
	}
	return user, nil
}

// --- Auth -------------------------------------------------------------------

func (s *Server) login(c echo.Context) error {
	var req struct {
		Identifier string `json:"identifier"`
		Password   string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return detail(c, http.StatusBadRequest, "invalid payload")
	}

	s.mu.Lock()
	user, ok := s.users[req.Identifier]
	pass := s.passwords[req.Identifier]
	s.mu.Unlock()

	if !ok || pass != req.Password {
		return detail(c, http.StatusUnauthorized, "Invalid credentials")
	}

	token := "tok-" + user.ID
	s.mu.Lock()
	s.tokens[token] = user
	s.mu.Unlock()

	return c.JSON(http.StatusOK, map[string]any{
		"access_token": token,
		"token_type":   "bearer",
		"user":         user,
	})
}

func (s *Server) register(c echo.Context) error {
	var req struct {
		FullName  string `json:"full_name"`
		StudentID string `json:"student_id"`
		Email     string `json:"email"`
		Career    string `json:"career"`
		Semester  int    `json:"semester"`
		Phone     string `json:"phone"`
	}
	if err := c.Bind(&req); err != nil {
		return detail(c, http.StatusBadRequest, "invalid payload")
	}

	s.mu.Lock()
	if _, exists := s.users[req.StudentID]; exists {
		s.mu.Unlock()
		return detail(c, http.StatusConflict, "An account with this student id already exists")
	}
	s.nextID++
	user := domain.User{
		ID:        fmt.Sprintf("u-%d", s.nextID),
		Username:  req.StudentID,
		FullName:  req.FullName,
		Email:     req.Email,
		Role:      domain.RoleUser,
		StudentID: req.StudentID,
		Career:    req.Career,
		Semester:  req.Semester,
		Phone:     req.Phone,
	}

	if !s.SMSEnabled {
		s.users[user.Username] = user
		token := "tok-" + user.ID
		s.tokens[token] = user
		s.mu.Unlock()
		return c.JSON(http.StatusCreated, map[string]any{
			"access_token": token,
			"token_type":   "bearer",
			"user":         user,
		})
	}

	verificationID := fmt.Sprintf("ver-%d", s.nextID)
	s.pending[verificationID] = pendingSignup{
		id:    verificationID,
		code:  DevCode,
		user:  user,
		phone: req.Phone,
	}
	s.mu.Unlock()

	return c.JSON(http.StatusCreated, map[string]any{
		"verification_id":    verificationID,
		"expires_in_seconds": 300,
		"sms_destination":    req.Phone,
		"dev_sms_code":       DevCode,
		"message":            "We sent a verification code to your phone",
	})
}

func (s *Server) verifySMS(c echo.Context) error {
	var req struct {
		VerificationID string `json:"verification_id"`
		Code           string `json:"code"`
	}
	if err := c.Bind(&req); err != nil {
		return detail(c, http.StatusBadRequest, "invalid payload")
	}

	s.mu.Lock()
	p, ok := s.pending[req.VerificationID]
	if !ok {
		s.mu.Unlock()
		return detail(c, http.StatusNotFound, "Verification not found or expired")
	}
	if p.code != req.Code {
		s.mu.Unlock()
		return detail(c, http.StatusUnprocessableEntity, "Incorrect verification code")
	}
	delete(s.pending, req.VerificationID)
	p.user.PhoneVerified = true
	s.users[p.user.Username] = p.user
	token := "tok-" + p.user.ID
	s.tokens[token] = p.user
	s.mu.Unlock()

	return c.JSON(http.StatusOK, map[string]any{
		"access_token": token,
		"token_type":   "bearer",
		"user":         p.user,
	})
}

func (s *Server) me(c echo.Context) error {
	user, ok := s.authed(c)
	if !ok {
		return detail(c, http.StatusUnauthorized, "Not authenticated")
	}
	return c.JSON(http.StatusOK, user)
}

// --- Events -----------------------------------------------------------------

func (s *Server) listEvents(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.EventSummary, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, ev.EventSummary)
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) getEvent(c echo.Context) error {
	id := c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ev := range s.events {
		if ev.ID == id {
			return c.JSON(http.StatusOK, ev)
		}
	}
	return detail(c, http.StatusNotFound, "Event not found")
}

func (s *Server) createEvent(c echo.Context) error {
	if _, err := s.requireAdmin(c); err != nil {
		return err
	}
	var m domain.EventMutation
	if err := c.Bind(&m); err != nil {
		return detail(c, http.StatusBadRequest, "invalid payload")
	}
	if m.Image == "" {
		return detail(c, http.StatusUnprocessableEntity, "image is required")
	}

	s.mu.Lock()
	s.nextID++
	ev := domain.EventDetail{
		EventSummary: domain.EventSummary{
			ID:       fmt.Sprintf("ev-%d", s.nextID),
			Image:    m.Image,
			Name:     m.Name,
			Date:     m.Date,
			Time:     m.Time,
			Place:    m.Place,
			Location: m.Location,
			Spots:    m.Spots,
			Type:     m.Type,
			Summary:  m.Summary,
		},
		Agenda:       m.Agenda,
		Requirements: m.Requirements,
	}
	s.events = append(s.events, ev)
	s.mu.Unlock()

	return c.JSON(http.StatusCreated, ev)
}

func (s *Server) updateEvent(c echo.Context) error {
	if _, err := s.requireAdmin(c); err != nil {
		return err
	}
	var m domain.EventMutation
	if err := c.Bind(&m); err != nil {
		return detail(c, http.StatusBadRequest, "invalid payload")
	}

	id := c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.events {
		if s.events[i].ID != id {
			continue
		}
		s.events[i] = domain.EventDetail{
			EventSummary: domain.EventSummary{
				ID:       id,
				Image:    m.Image,
				Name:     m.Name,
				Date:     m.Date,
				Time:     m.Time,
				Place:    m.Place,
				Location: m.Location,
				Spots:    m.Spots,
				Type:     m.Type,
				Summary:  m.Summary,
			},
			Agenda:       m.Agenda,
			Requirements: m.Requirements,
		}
		return c.JSON(http.StatusOK, s.events[i])
	}
	return detail(c, http.StatusNotFound, "Event not found")
}

func (s *Server) deleteEvent(c echo.Context) error {
	if _, err := s.requireAdmin(c); err != nil {
		return err
	}
	id := c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.events {
		if s.events[i].ID == id {
			s.events = append(s.events[:i], s.events[i+1:]...)
			return c.NoContent(http.StatusNoContent)
		}
	}
	return detail(c, http.StatusNotFound, "Event not found")
}

func (s *Server) uploadImage(c echo.Context) error {
	if _, err := s.requireAdmin(c); err != nil {
		return err
	}
	file, err := c.FormFile("file")
	if err != nil {
		return detail(c, http.StatusBadRequest, "file is required")
	}
	return c.JSON(http.StatusOK, map[string]string{"image_url": "/uploads/" + file.Filename})
}

// --- Registrations ----------------------------------------------------------

func (s *Server) enroll(c echo.Context) error {
	user, ok := s.authed(c)
	if !ok {
		return detail(c, http.StatusUnauthorized, "Not authenticated")
	}
	var req struct {
		EventID string `json:"event_id"`
	}
	if err := c.Bind(&req); err != nil {
		return detail(c, http.StatusBadRequest, "invalid payload")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var event *domain.EventDetail
	for i := range s.events {
		if s.events[i].ID == req.EventID {
			event = &s.events[i]
			break
		}
	}
	if event == nil {
		return detail(c, http.StatusNotFound, "Event not found")
	}
	for _, r := range s.regs {
		if r.EventID == req.EventID && r.Status == domain.StatusRegistered {
			return detail(c, http.StatusConflict, "You are already registered for this event")
		}
	}

	s.nextID++
	reg := domain.RegistrationPublic{
		ID:        fmt.Sprintf("reg-%d", s.nextID),
		EventID:   req.EventID,
		FullName:  user.FullName,
		StudentID: user.StudentID,
		Email:     user.Email,
		Career:    user.Career,
		Semester:  user.Semester,
		Phone:     user.Phone,
		Status:    domain.StatusRegistered,
	}
	s.regs = append(s.regs, domain.UserEventRegistration{
		RegistrationID: reg.ID,
		EventID:        req.EventID,
		Status:         domain.StatusRegistered,
		Event:          event.EventSummary,
	})
	return c.JSON(http.StatusCreated, reg)
}

func (s *Server) myRegistrations(c echo.Context) error {
	if _, ok := s.authed(c); !ok {
		return detail(c, http.StatusUnauthorized, "Not authenticated")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.UserEventRegistration, len(s.regs))
	copy(out, s.regs)
	return c.JSON(http.StatusOK, out)
}

func (s *Server) cancelRegistration(c echo.Context) error {
	if _, ok := s.authed(c); !ok {
		return detail(c, http.StatusUnauthorized, "Not authenticated")
	}
	eventID := c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.regs {
		if s.regs[i].EventID == eventID && s.regs[i].Status == domain.StatusRegistered {
			s.regs[i].Status = domain.StatusCancelled
			return c.JSON(http.StatusOK, domain.RegistrationPublic{
				ID:      s.regs[i].RegistrationID,
				EventID: eventID,
				Status:  domain.StatusCancelled,
			})
		}
	}
	return detail(c, http.StatusNotFound, "Registration not found")
}

// --- Admin ------------------------------------------------------------------

func (s *Server) adminSummary(c echo.Context) error {
	if _, err := s.requireAdmin(c); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	perEvent := make(map[string]int)
	for _, r := range s.regs {
		if r.Status == domain.StatusRegistered {
			perEvent[r.EventID]++
		}
	}
	top := make([]domain.AdminEventStats, 0, len(s.events))
	for _, ev := range s.events {
		top = append(top, domain.AdminEventStats{
			EventID:            ev.ID,
			EventName:          ev.Name,
			TotalRegistrations: perEvent[ev.ID],
			AvailableSpots:     ev.Spots - perEvent[ev.ID],
		})
	}

	return c.JSON(http.StatusOK, domain.AdminSummary{
		TotalUsers:         len(s.users),
		TotalEvents:        len(s.events),
		TotalRegistrations: len(s.regs),
		RegistrationsToday: len(s.regs),
		TopEvents:          top,
	})
}
