// Package api implements the outbound HTTP client for the campus REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ismaelcontreras07/proyecto-programacion/internal/core/domain"
	"github.com/ismaelcontreras07/proyecto-programacion/internal/core/ports"
)

// Client talks to the campus API. Non-2xx responses are converted into
// human-readable errors using the server `detail` field when one is present.
// No retries and no client-side timeouts are applied; cancellation comes from
// the caller's context and survives error wrapping.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

var _ ports.APIClient = (*Client)(nil)

// NewClient builds a Client for baseURL. A nil httpClient falls back to
// http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client, log zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: baseURL, http: httpClient, log: log}
}

// apiError is a non-2xx response decoded into its displayable message.
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string { return e.Message }

// Unwrap maps 401 onto the domain sentinel so callers can treat it as
// "session invalid" and redirect to sign-in.
func (e *apiError) Unwrap() error {
	if e.Status == http.StatusUnauthorized {
		return domain.ErrUnauthorized
	}
	return nil
}

type detailEnvelope struct {
	Detail string `json:"detail"`
}

// errorFromResponse reads the body looking for a JSON `detail` message; an
// unparseable body yields the generic fallback.
func errorFromResponse(resp *http.Response) *apiError {
	msg := fmt.Sprintf("request failed (%d)", resp.StatusCode)

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err == nil {
		var env detailEnvelope
		if json.Unmarshal(body, &env) == nil && env.Detail != "" {
			msg = env.Detail
		}
	}
	return &apiError{Status: resp.StatusCode, Message: msg}
}

// call performs one JSON round trip. in is marshalled as the request body
// when non-nil; the response is decoded into out when non-nil.
func (c *Client) call(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, token, out)
}

func (c *Client) send(req *http.Request, token string, out any) error {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	resp, err := c.http.Do(req)
	if err != nil {
		// The transport error wraps context.Canceled on abort; keep the
		// chain intact so callers can tell aborts from real failures.
		return fmt.Errorf("campus api: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := errorFromResponse(resp)
		c.log.Debug().
			Str("request_id", requestID).
			Str("method", req.Method).
			Str("path", req.URL.Path).
			Int("status", resp.StatusCode).
			Msg("api call failed")
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("campus api: decode %s %s: %w", req.Method, req.URL.Path, err)
	}
	return nil
}

// --- Auth -------------------------------------------------------------------

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// loginResponse doubles as the verify-sms response shape.
type loginResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	User        *domain.User `json:"user"`
}

func (r *loginResponse) session() *domain.Session {
	return &domain.Session{AccessToken: r.AccessToken, User: r.User}
}

func (c *Client) Login(ctx context.Context, identifier, password string) (*domain.Session, error) {
	var resp loginResponse
	err := c.call(ctx, http.MethodPost, "/api/auth/login", "", loginRequest{Identifier: identifier, Password: password}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.session(), nil
}

// registerResponse accommodates both sign-up variants: a pending SMS
// verification descriptor, or an immediate session (auto-login).
type registerResponse struct {
	VerificationID   string `json:"verification_id"`
	ExpiresInSeconds int    `json:"expires_in_seconds"`
	SMSDestination   string `json:"sms_destination"`
	DevSMSCode       string `json:"dev_sms_code"`
	Message          string `json:"message"`

	AccessToken string       `json:"access_token"`
	User        *domain.User `json:"user"`
}

func (c *Client) Register(ctx context.Context, in ports.SignUpInput) (*domain.Session, *domain.PendingVerification, error) {
	var resp registerResponse
	if err := c.call(ctx, http.MethodPost, "/api/auth/register", "", in, &resp); err != nil {
		return nil, nil, err
	}

	if resp.VerificationID != "" {
		return nil, &domain.PendingVerification{
			VerificationID:   resp.VerificationID,
			ExpiresInSeconds: resp.ExpiresInSeconds,
			SMSDestination:   resp.SMSDestination,
			DevSMSCode:       resp.DevSMSCode,
			Message:          resp.Message,
		}, nil
	}

	sess := &domain.Session{AccessToken: resp.AccessToken, User: resp.User}
	if !sess.Valid() {
		return nil, nil, fmt.Errorf("campus api: register: unrecognized response shape")
	}
	return sess, nil, nil
}

type verifySMSRequest struct {
	VerificationID string `json:"verification_id"`
	Code           string `json:"code"`
}

func (c *Client) VerifySMS(ctx context.Context, verificationID, code string) (*domain.Session, error) {
	var resp loginResponse
	err := c.call(ctx, http.MethodPost, "/api/auth/verify-sms", "", verifySMSRequest{VerificationID: verificationID, Code: code}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.session(), nil
}

func (c *Client) Me(ctx context.Context, token string) (*domain.User, error) {
	var user domain.User
	if err := c.call(ctx, http.MethodGet, "/api/auth/me", token, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// --- Events -----------------------------------------------------------------

func (c *Client) ListEvents(ctx context.Context, filter ports.EventFilter) ([]domain.EventSummary, error) {
	query := url.Values{}
	if filter.Type != "" {
		query.Set("type", string(filter.Type))
	}
	if filter.Month != 0 {
		query.Set("month", strconv.Itoa(filter.Month))
	}

	path := "/api/events"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var events []domain.EventSummary
	if err := c.call(ctx, http.MethodGet, path, "", nil, &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (c *Client) GetEvent(ctx context.Context, eventID string) (*domain.EventDetail, error) {
	var detail domain.EventDetail
	err := c.call(ctx, http.MethodGet, "/api/events/"+eventID, "", nil, &detail)
	if err != nil {
		var ae *apiError
		if errors.As(err, &ae) && ae.Status == http.StatusNotFound {
			return nil, domain.ErrEventNotFound
		}
		return nil, err
	}
	return &detail, nil
}

func (c *Client) CreateEvent(ctx context.Context, token string, m domain.EventMutation) (*domain.EventDetail, error) {
	var detail domain.EventDetail
	if err := c.call(ctx, http.MethodPost, "/api/events", token, m, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

func (c *Client) UpdateEvent(ctx context.Context, token, eventID string, m domain.EventMutation) (*domain.EventDetail, error) {
	var detail domain.EventDetail
	if err := c.call(ctx, http.MethodPut, "/api/events/"+eventID, token, m, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

func (c *Client) DeleteEvent(ctx context.Context, token, eventID string) error {
	return c.call(ctx, http.MethodDelete, "/api/events/"+eventID, token, nil, nil)
}

type uploadResponse struct {
	ImageURL string `json:"image_url"`
}

func (c *Client) UploadImage(ctx context.Context, token, filename string, file io.Reader) (string, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", err
	}
	if err := form.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/events/upload-image", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	var resp uploadResponse
	if err := c.send(req, token, &resp); err != nil {
		return "", err
	}
	return resp.ImageURL, nil
}

// --- Registrations ----------------------------------------------------------

type enrollRequest struct {
	EventID string `json:"event_id"`
}

func (c *Client) Enroll(ctx context.Context, token, eventID string) (*domain.RegistrationPublic, error) {
	var reg domain.RegistrationPublic
	if err := c.call(ctx, http.MethodPost, "/api/registrations", token, enrollRequest{EventID: eventID}, &reg); err != nil {
		return nil, err
	}
	return &reg, nil
}

func (c *Client) MyRegistrations(ctx context.Context, token string) ([]domain.UserEventRegistration, error) {
	var regs []domain.UserEventRegistration
	if err := c.call(ctx, http.MethodGet, "/api/registrations/me", token, nil, &regs); err != nil {
		return nil, err
	}
	return regs, nil
}

func (c *Client) CancelRegistration(ctx context.Context, token, eventID string) (*domain.RegistrationPublic, error) {
	var reg domain.RegistrationPublic
	if err := c.call(ctx, http.MethodDelete, "/api/registrations/event/"+eventID, token, nil, &reg); err != nil {
		return nil, err
	}
	return &reg, nil
}

// --- Admin ------------------------------------------------------------------

func (c *Client) AdminSummary(ctx context.Context, token string) (*domain.AdminSummary, error) {
	var summary domain.AdminSummary
	if err := c.call(ctx, http.MethodGet, "/api/admin/summary", token, nil, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}
