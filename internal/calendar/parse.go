// Package calendar implements the external feed importer: fetching the
// third-party iCalendar feed, parsing it into normalized booking events, and
// caching the last good result so a flaky feed never blocks the rest of the
// system. Nothing in this package touches the database or the request path.
package calendar

import (
	"fmt"
	"io"
	"regexp"
	"time"

	"github.com/apognu/gocal"

	"github.com/ncarvajal/casita/backend/internal/domain"
)

// ParseError wraps a malformed-feed failure.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return fmt.Sprintf("parse feed: %v", e.Err) }
func (e *ParseError) Unwrap() error { return e.Err }

// codePattern matches channel confirmation codes embedded in event text,
// e.g. "Reserved - HMABCDE123" or a reservation details URL ending in the
// code. Events without a code are owner blocks and stay valid.
var codePattern = regexp.MustCompile(`\bHM[A-Z0-9]{6,12}\b`)

// Parse reads an iCalendar stream and returns its events normalized to civil
// dates in loc. All-day entries keep their literal date components;
// timestamped entries are converted into loc first. After this point nothing
// downstream ever compares raw instants — the timezone off-by-one has to die
// here at the boundary.
func Parse(r io.Reader, loc *time.Location) ([]domain.ExternalBookingEvent, error) {
	c := gocal.NewParser(r)

	// Bound the expansion window explicitly: a year back for history still
	// relevant to reconciliation, two years forward for future stays.
	start := time.Now().AddDate(-1, 0, 0)
	end := time.Now().AddDate(2, 0, 0)
	c.Start, c.End = &start, &end

	if err := c.Parse(); err != nil {
		return nil, &ParseError{Err: err}
	}

	events := make([]domain.ExternalBookingEvent, 0, len(c.Events))
	for _, e := range c.Events {
		if e.Start == nil || e.End == nil {
			continue // undated entries carry no stay window
		}

		ev := domain.ExternalBookingEvent{
			UID:             e.Uid,
			Summary:         e.Summary,
			Description:     e.Description,
			Status:          e.Status,
			Start:           normalizeDay(*e.Start, isAllDay(e.RawStart), loc),
			End:             normalizeDay(*e.End, isAllDay(e.RawEnd), loc),
			ReservationCode: extractCode(e.Summary + " " + e.Description),
		}
		events = append(events, ev)
	}

	return events, nil
}

// isAllDay reports whether the raw property was a VALUE=DATE entry.
func isAllDay(raw gocal.RawDate) bool {
	return raw.Params["VALUE"] == "DATE"
}

// normalizeDay maps a feed instant onto a civil date. All-day entries state
// a calendar date directly, so their components are taken as-is; converting
// them through a timezone would shift bookings by a day for properties east
// or west of the feed's reference zone. Timestamped entries are genuine
// instants and are converted into the property timezone first.
func normalizeDay(t time.Time, allDay bool, loc *time.Location) domain.Date {
	if allDay {
		return domain.DateOf(t)
	}
	return domain.DateOf(t.In(loc))
}

// extractCode returns the first confirmation code found in text, or "".
func extractCode(text string) string {
	return codePattern.FindString(text)
}
