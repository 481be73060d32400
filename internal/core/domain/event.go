package domain

// EventType distinguishes on-site from online events. The values are the
// Spanish display strings the API serves; they double as filter values.
type EventType string

const (
	EventOnsite EventType = "Presencial"
	EventOnline EventType = "En línea"
)

// EventSummary is the catalog entry returned by the event listing. The spot
// count is authoritative server-side; the client only displays it and
// re-fetches after mutations.
type EventSummary struct {
	ID       string    `json:"id"`
	Image    string    `json:"image"`
	Name     string    `json:"name"`
	Date     string    `json:"date"`
	Time     string    `json:"time"`
	Place    string    `json:"place"`
	Location string    `json:"location"`
	Spots    int       `json:"spots"`
	Type     EventType `json:"type"`
	Summary  string    `json:"summary"`
}

// EventDetail extends the summary with the ordered agenda and requirement
// lists shown on the event page.
type EventDetail struct {
	EventSummary
	Agenda       []string `json:"agenda"`
	Requirements []string `json:"requirements"`
}

// EventMutation is the payload for creating or updating an event.
type EventMutation struct {
	Image        string    `json:"image"`
	Name         string    `json:"name"`
	Date         string    `json:"date"`
	Time         string    `json:"time"`
	Place        string    `json:"place"`
	Location     string    `json:"location"`
	Spots        int       `json:"spots"`
	Type         EventType `json:"type"`
	Summary      string    `json:"summary"`
	Agenda       []string  `json:"agenda"`
	Requirements []string  `json:"requirements"`
}
