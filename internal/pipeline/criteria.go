package pipeline

import (
	"time"

	"helplink/internal/models"
)

// Criteria selects donations. Zero Start or End leaves that side of the
// date range open; an empty Statuses list means every status.
type Criteria struct {
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	Statuses      []string  `json:"statuses,omitempty"`
	InstitutionID *int64    `json:"institution_id,omitempty"`
}

// Inverted reports whether both bounds are set and start falls after end.
func (c Criteria) Inverted() bool {
	return !c.Start.IsZero() && !c.End.IsZero() && calendarDay(c.Start).After(calendarDay(c.End))
}

// Filter returns the donations matching c, in input order. Donations whose
// request timestamp is unparsable are not constrained by the date range.
func Filter(donations []models.Donation, c Criteria) []models.Donation {
	filtered := make([]models.Donation, 0, len(donations))
	if len(donations) == 0 || c.Inverted() {
		return filtered
	}

	m := newMatcher(c)
	for _, d := range donations {
		if m.match(d) {
			filtered = append(filtered, d)
		}
	}
	return filtered
}

type matcher struct {
	start, end    time.Time
	statuses      map[string]struct{}
	institutionID *int64
}

func newMatcher(c Criteria) matcher {
	m := matcher{institutionID: c.InstitutionID}
	if !c.Start.IsZero() {
		m.start = calendarDay(c.Start)
	}
	if !c.End.IsZero() {
		m.end = calendarDay(c.End)
	}
	if len(c.Statuses) > 0 {
		m.statuses = toSet(c.Statuses)
	}
	return m
}

func (m matcher) match(d models.Donation) bool {
	if m.statuses != nil {
		if _, ok := m.statuses[d.Status]; !ok {
			return false
		}
	}
	if m.institutionID != nil && d.InstitutionID != *m.institutionID {
		return false
	}
	if d.RequestedAt.Valid {
		day := calendarDay(d.RequestedAt.Time)
		if !m.start.IsZero() && day.Before(m.start) {
			return false
		}
		if !m.end.IsZero() && day.After(m.end) {
			return false
		}
	}
	return true
}

// calendarDay keeps the year, month and day of t as seen in its own location.
func calendarDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
