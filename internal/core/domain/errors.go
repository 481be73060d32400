package domain

import "errors"

var ErrNoSession = errors.New("no session")
var ErrUnauthorized = errors.New("session invalid or expired")
var ErrEventNotFound = errors.New("event not found")
var ErrMissingImage = errors.New("an image must be uploaded before saving the event")
var ErrBusy = errors.New("a submission is already in flight")
var ErrNotAdmin = errors.New("administrator role required")
var ErrNoPendingVerification = errors.New("no pending verification")
