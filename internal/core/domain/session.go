package domain

// Session is the persisted pair of bearer token and user profile representing
// "signed in". It is replaced wholesale on every change, never mutated in
// place.
type Session struct {
	AccessToken string `json:"access_token"`
	User        *User  `json:"user"`
}

// Valid reports whether the session carries everything required to act as an
// authenticated principal. Partial or malformed persisted state is treated as
// "no session" at the storage boundary, so downstream code never observes a
// half-populated record.
func (s *Session) Valid() bool {
	return s != nil && s.AccessToken != "" && s.User != nil && s.User.ID != ""
}
