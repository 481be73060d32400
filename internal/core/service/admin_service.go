package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ismaelcontreras07/proyecto-programacion/internal/core/domain"
	"github.com/ismaelcontreras07/proyecto-programacion/internal/core/ports"
)

// EventForm is the editable state behind the create/update form. Agenda and
// Requirements are multiline free text; they are split into ordered lists on
// submit.
type EventForm struct {
	Image        string
	Name         string
	Date         string
	Time         string
	Place        string
	Location     string
	Spots        int
	Type         domain.EventType
	Summary      string
	Agenda       string
	Requirements string
}

// DefaultEventForm returns the form's empty state.
func DefaultEventForm() EventForm {
	return EventForm{Spots: 50, Type: domain.EventOnsite}
}

// LinesToItems splits multiline free text into an ordered list of trimmed,
// non-empty lines.
func LinesToItems(value string) []string {
	items := make([]string, 0)
	for _, line := range strings.Split(value, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

func (f EventForm) payload() domain.EventMutation {
	return domain.EventMutation{
		Image:        strings.TrimSpace(f.Image),
		Name:         strings.TrimSpace(f.Name),
		Date:         f.Date,
		Time:         strings.TrimSpace(f.Time),
		Place:        strings.TrimSpace(f.Place),
		Location:     strings.TrimSpace(f.Location),
		Spots:        f.Spots,
		Type:         f.Type,
		Summary:      strings.TrimSpace(f.Summary),
		Agenda:       LinesToItems(f.Agenda),
		Requirements: LinesToItems(f.Requirements),
	}
}

// AdminService drives the event create/update/delete flows and the dashboard
// summary, available only to administrators. Every successful mutation
// re-fetches the full event list rather than patching it locally, keeping
// the displayed list authoritative.
type AdminService struct {
	api     ports.APIClient
	auth    *AuthService
	confirm ports.Confirmer
	log     zerolog.Logger

	mu         sync.Mutex
	events     []domain.EventSummary
	form       EventForm
	editingID  string
	submitting bool
	uploading  bool
	errMsg     string
	successMsg string

	summary        *domain.AdminSummary
	summaryLoading bool
	generation     int
}

func NewAdminService(api ports.APIClient, auth *AuthService, confirm ports.Confirmer, log zerolog.Logger) *AdminService {
	return &AdminService{
		api:     api,
		auth:    auth,
		confirm: confirm,
		log:     log,
		form:    DefaultEventForm(),
	}
}

// token fast-fails when the caller is not a signed-in administrator.
func (s *AdminService) token() (string, error) {
	snap := s.auth.Snapshot()
	if snap.IsLoading || !snap.IsAuthenticated {
		return "", domain.ErrUnauthorized
	}
	if !snap.User.IsAdmin() {
		return "", domain.ErrNotAdmin
	}
	return snap.AccessToken, nil
}

// LoadEvents re-fetches the event list for the admin table.
func (s *AdminService) LoadEvents(ctx context.Context) error {
	events, err := s.api.ListEvents(ctx, ports.EventFilter{})
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.errMsg = err.Error()
		return err
	}
	s.events = events
	return nil
}

// Events returns the last fetched list.
func (s *AdminService) Events() []domain.EventSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.EventSummary, len(s.events))
	copy(out, s.events)
	return out
}

// Form returns the current form state.
func (s *AdminService) Form() EventForm {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.form
}

// SetForm replaces the form state wholesale.
func (s *AdminService) SetForm(form EventForm) {
	s.mu.Lock()
	s.form = form
	s.mu.Unlock()
}

// EditingID returns the id of the event loaded for editing, or "" when the
// form is in create mode.
func (s *AdminService) EditingID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editingID
}

// ErrorMessage returns the last failure banner, if any.
func (s *AdminService) ErrorMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

// SuccessMessage returns the last success banner, if any.
func (s *AdminService) SuccessMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.successMsg
}

// ResetForm returns the form to its default empty state and leaves edit mode.
func (s *AdminService) ResetForm() {
	s.mu.Lock()
	s.resetFormLocked()
	s.mu.Unlock()
}

func (s *AdminService) resetFormLocked() {
	s.editingID = ""
	s.form = DefaultEventForm()
}

// Edit loads an event's detail into the form for updating. A vanished event
// surfaces as an error banner, not a crash.
func (s *AdminService) Edit(ctx context.Context, eventID string) error {
	s.clearBanners()

	detail, err := s.api.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrEventNotFound) {
			return s.failMsg("the event no longer exists")
		}
		return s.failMsg(err.Error())
	}

	s.mu.Lock()
	s.editingID = detail.ID
	s.form = EventForm{
		Image:        detail.Image,
		Name:         detail.Name,
		Date:         detail.Date,
		Time:         detail.Time,
		Place:        detail.Place,
		Location:     detail.Location,
		Spots:        detail.Spots,
		Type:         detail.Type,
		Summary:      detail.Summary,
		Agenda:       strings.Join(detail.Agenda, "\n"),
		Requirements: strings.Join(detail.Requirements, "\n"),
	}
	s.mu.Unlock()
	return nil
}

// Submit creates or updates the event depending on whether one is loaded for
// editing. A missing image is rejected locally before any network call. On
// success the form resets and the list is re-fetched.
func (s *AdminService) Submit(ctx context.Context) error {
	s.mu.Lock()
	if s.submitting {
		s.mu.Unlock()
		return domain.ErrBusy
	}
	s.submitting = true
	s.errMsg = ""
	s.successMsg = ""
	form := s.form
	editingID := s.editingID
	s.mu.Unlock()

	err := s.submit(ctx, form, editingID)

	s.mu.Lock()
	s.submitting = false
	s.mu.Unlock()
	return err
}

func (s *AdminService) submit(ctx context.Context, form EventForm, editingID string) error {
	if strings.TrimSpace(form.Image) == "" {
		s.mu.Lock()
		s.errMsg = domain.ErrMissingImage.Error()
		s.mu.Unlock()
		return domain.ErrMissingImage
	}

	token, err := s.token()
	if err != nil {
		return s.failMsg(err.Error())
	}

	payload := form.payload()
	if editingID != "" {
		_, err = s.api.UpdateEvent(ctx, token, editingID, payload)
	} else {
		_, err = s.api.CreateEvent(ctx, token, payload)
	}
	if err != nil {
		return s.failMsg(err.Error())
	}

	s.mu.Lock()
	s.resetFormLocked()
	if editingID != "" {
		s.successMsg = "event updated"
	} else {
		s.successMsg = "event created"
	}
	s.mu.Unlock()

	s.log.Info().Str("event_id", editingID).Msg("event saved")
	return s.LoadEvents(ctx)
}

// Delete removes an event after interactive confirmation. Deleting the event
// currently loaded for editing resets the form to its defaults.
func (s *AdminService) Delete(ctx context.Context, eventID string) error {
	s.clearBanners()

	if !s.confirm.Confirm("Delete this event? Its registrations are removed as well.") {
		return nil
	}

	token, err := s.token()
	if err != nil {
		return s.failMsg(err.Error())
	}
	if err := s.api.DeleteEvent(ctx, token, eventID); err != nil {
		return s.failMsg(err.Error())
	}

	s.mu.Lock()
	if s.editingID == eventID {
		s.resetFormLocked()
	}
	s.successMsg = "event deleted"
	s.mu.Unlock()

	s.log.Info().Str("event_id", eventID).Msg("event deleted")
	return s.LoadEvents(ctx)
}

// UploadImage sends the cover image and stores the returned URL into the
// form. Submissions remain blocked by the local image check until an upload
// succeeds.
func (s *AdminService) UploadImage(ctx context.Context, filename string, file io.Reader) (string, error) {
	s.mu.Lock()
	if s.uploading {
		s.mu.Unlock()
		return "", domain.ErrBusy
	}
	s.uploading = true
	s.errMsg = ""
	s.successMsg = ""
	s.mu.Unlock()

	url, err := s.uploadImage(ctx, filename, file)

	s.mu.Lock()
	s.uploading = false
	s.mu.Unlock()
	return url, err
}

func (s *AdminService) uploadImage(ctx context.Context, filename string, file io.Reader) (string, error) {
	token, err := s.token()
	if err != nil {
		return "", s.failMsg(err.Error())
	}

	url, err := s.api.UploadImage(ctx, token, filename, file)
	if err != nil {
		return "", s.failMsg(err.Error())
	}

	s.mu.Lock()
	s.form.Image = url
	s.successMsg = "image uploaded"
	s.mu.Unlock()
	return url, nil
}

// LoadSummary fetches the dashboard metrics. Cancellation leaves the current
// summary untouched and sets no error; only the most recent load applies.
func (s *AdminService) LoadSummary(ctx context.Context) error {
	token, err := s.token()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.summaryLoading = true
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	summary, err := s.api.AdminSummary(ctx, token)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return nil
	}
	s.summaryLoading = false
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return nil
	}
	if err != nil {
		s.errMsg = err.Error()
		return err
	}
	s.summary = summary
	return nil
}

// Summary returns the last loaded dashboard metrics, or nil.
func (s *AdminService) Summary() *domain.AdminSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary
}

// SummaryLoading reports whether a summary fetch is in flight.
func (s *AdminService) SummaryLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summaryLoading
}

func (s *AdminService) clearBanners() {
	s.mu.Lock()
	s.errMsg = ""
	s.successMsg = ""
	s.mu.Unlock()
}

func (s *AdminService) failMsg(msg string) error {
	s.mu.Lock()
	s.errMsg = msg
	s.mu.Unlock()
	return errors.New(msg)
}
