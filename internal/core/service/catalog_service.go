package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ismaelcontreras07/proyecto-programacion/internal/core/domain"
	"github.com/ismaelcontreras07/proyecto-programacion/internal/core/ports"
)

// FilterAll is the sentinel for "no filter" on both the type and month
// selectors, matching the "Todos" option the catalog page renders.
const FilterAll = "Todos"

// Catalog dates arrive either ISO (API) or MM/DD/YYYY (legacy seed data).
var dateLayouts = []string{"2006-01-02", "01/02/2006"}

var spanishMonths = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

func parseEventDate(value string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// MonthKey derives the year-month key ("2026-05") an event is filed under.
// Unparseable dates yield "" and therefore match no specific month filter.
func MonthKey(date string) string {
	t, ok := parseEventDate(date)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month()))
}

// MonthLabel renders the es-MX display label for an event date, first letter
// capitalized ("Mayo de 2026"). Unparseable dates fall back to the raw value.
func MonthLabel(date string) string {
	t, ok := parseEventDate(date)
	if !ok {
		return date
	}
	name := spanishMonths[int(t.Month())-1]
	name = string(name[0]-'a'+'A') + name[1:]
	return fmt.Sprintf("%s de %d", name, t.Year())
}

// FilterEvents applies the type and month selection. It is a pure function
// of its inputs: an event passes when the type matches (or FilterAll) and its
// month key matches (or FilterAll).
func FilterEvents(events []domain.EventSummary, typ, month string) []domain.EventSummary {
	out := make([]domain.EventSummary, 0, len(events))
	for _, ev := range events {
		if typ != FilterAll && string(ev.Type) != typ {
			continue
		}
		if month != FilterAll && MonthKey(ev.Date) != month {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// MonthOption is one entry of the month selector.
type MonthOption struct {
	Value string
	Label string
}

// MonthOptions derives the distinct months present in the fetched set,
// sorted chronologically by earliest occurrence and deduplicated by
// year-month. Events with unparseable dates contribute no option.
func MonthOptions(events []domain.EventSummary) []MonthOption {
	sorted := make([]domain.EventSummary, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		ti, oki := parseEventDate(sorted[i].Date)
		tj, okj := parseEventDate(sorted[j].Date)
		if oki != okj {
			return oki
		}
		return ti.Before(tj)
	})

	seen := make(map[string]struct{})
	options := make([]MonthOption, 0, len(sorted))
	for _, ev := range sorted {
		key := MonthKey(ev.Date)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		options = append(options, MonthOption{Value: key, Label: MonthLabel(ev.Date)})
	}
	return options
}

// CatalogService fetches the event catalog once per load and derives
// filtered views locally without further network calls.
type CatalogService struct {
	api ports.APIClient
	log zerolog.Logger

	mu         sync.Mutex
	events     []domain.EventSummary
	loading    bool
	errMsg     string
	generation int
}

func NewCatalogService(api ports.APIClient, log zerolog.Logger) *CatalogService {
	return &CatalogService{api: api, log: log}
}

// Load fetches the catalog. A load whose context is cancelled surfaces no
// error and leaves the displayed list untouched; a load superseded by a newer
// one discards its result, so only the most recent fetch ever applies.
func (c *CatalogService) Load(ctx context.Context) error {
	c.mu.Lock()
	c.loading = true
	c.errMsg = ""
	c.generation++
	gen := c.generation
	c.mu.Unlock()

	events, err := c.api.ListEvents(ctx, ports.EventFilter{})

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		return nil
	}
	c.loading = false
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return nil
	}
	if err != nil {
		c.errMsg = err.Error()
		return err
	}
	c.events = events
	return nil
}

// Events returns the last fetched catalog.
func (c *CatalogService) Events() []domain.EventSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.EventSummary, len(c.events))
	copy(out, c.events)
	return out
}

// Filtered applies the current selection to the fetched set.
func (c *CatalogService) Filtered(typ, month string) []domain.EventSummary {
	return FilterEvents(c.Events(), typ, month)
}

// Months returns the month selector options for the fetched set.
func (c *CatalogService) Months() []MonthOption {
	return MonthOptions(c.Events())
}

// Loading reports whether a fetch is in flight.
func (c *CatalogService) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// ErrorMessage returns the banner text of the last failed load, if any.
func (c *CatalogService) ErrorMessage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errMsg
}
