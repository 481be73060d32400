package domain

// Role names the authorization level granted to a user.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// User is the directory record describing the signed-in principal. It is
// supplied wholesale by the API on login or verified sign-up and never edited
// locally; the role is immutable for the lifetime of a session.
type User struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	FullName      string `json:"full_name"`
	Email         string `json:"email,omitempty"`
	Role          Role   `json:"role"`
	StudentID     string `json:"student_id,omitempty"`
	Career        string `json:"career,omitempty"`
	Semester      int    `json:"semester,omitempty"`
	Phone         string `json:"phone,omitempty"`
	PhoneVerified bool   `json:"phone_verified,omitempty"`
}

// IsAdmin reports whether the user may reach the admin tooling.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
