package ports

// Route identifies a destination in the front end.
type Route string

const (
	RouteLanding   Route = "/"
	RouteLogin     Route = "/login"
	RouteDashboard Route = "/dashboard"
)

// Navigator performs post-login/post-logout navigation. Passive session reads
// never navigate; only Login and Logout on the auth facade do.
type Navigator interface {
	Navigate(to Route)
}

// Confirmer asks the user to approve a destructive action before it is
// issued, such as deleting an event.
type Confirmer interface {
	Confirm(prompt string) bool
}
