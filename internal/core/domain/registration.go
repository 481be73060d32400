package domain

// RegistrationStatus is the lifecycle state of an event registration.
type RegistrationStatus string

const (
	StatusRegistered RegistrationStatus = "registered"
	StatusCancelled  RegistrationStatus = "cancelled"
)

// UserEventRegistration is one row of the "my events" listing: the
// registration plus a denormalized summary of its event.
type UserEventRegistration struct {
	RegistrationID string             `json:"registration_id"`
	EventID        string             `json:"event_id"`
	Status         RegistrationStatus `json:"status"`
	RegisteredAt   string             `json:"registered_at"`
	Event          EventSummary       `json:"event"`
}

// RegistrationPublic is the full registration record the API returns from
// enroll and cancel calls.
type RegistrationPublic struct {
	ID        string             `json:"id"`
	EventID   string             `json:"event_id"`
	FullName  string             `json:"full_name"`
	StudentID string             `json:"student_id"`
	Email     string             `json:"email"`
	Career    string             `json:"career"`
	Semester  int                `json:"semester"`
	Phone     string             `json:"phone"`
	Status    RegistrationStatus `json:"status"`
	CreatedAt string             `json:"created_at"`
}

// PendingVerification is the ephemeral handle tying a sign-up attempt to an
// SMS code challenge. It is consumed when the code is confirmed and discarded
// when the user abandons verification.
type PendingVerification struct {
	VerificationID   string `json:"verification_id"`
	ExpiresInSeconds int    `json:"expires_in_seconds"`
	SMSDestination   string `json:"sms_destination"`
	DevSMSCode       string `json:"dev_sms_code,omitempty"`
	Message          string `json:"message"`
}

// AdminEventStats is one row of the dashboard's top-events table.
type AdminEventStats struct {
	EventID            string `json:"event_id"`
	EventName          string `json:"event_name"`
	TotalRegistrations int    `json:"total_registrations"`
	AvailableSpots     int    `json:"available_spots"`
}

// AdminSummary aggregates the counters shown on the admin dashboard.
type AdminSummary struct {
	TotalUsers         int               `json:"total_users"`
	TotalEvents        int               `json:"total_events"`
	TotalRegistrations int               `json:"total_registrations"`
	RegistrationsToday int               `json:"registrations_today"`
	TopEvents          []AdminEventStats `json:"top_events"`
}
