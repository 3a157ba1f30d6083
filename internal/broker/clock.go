package broker

import "time"

// SessionClock answers market-hours questions from a fixed weekday session
// for venues without a clock endpoint. Exchange holidays are not modelled.
type SessionClock struct {
	loc         *time.Location
	open, close int // minutes after midnight, local time
}

func NewSessionClock(loc *time.Location, openMinutes, closeMinutes int) *SessionClock {
	return &SessionClock{loc: loc, open: openMinutes, close: closeMinutes}
}

func (c *SessionClock) Location() *time.Location {
	return c.loc
}

func (c *SessionClock) IsOpen(t time.Time) bool {
	now := t.In(c.loc)
	if !isWeekday(now) {
		return false
	}
	m := now.Hour()*60 + now.Minute()
	return m >= c.open && m < c.close
}

func (c *SessionClock) Hours(t time.Time) MarketHours {
	now := t.In(c.loc)
	hours := MarketHours{IsOpen: c.IsOpen(now)}

	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, c.loc)
	for i := 0; i < 8 && (hours.NextOpen.IsZero() || hours.NextClose.IsZero()); i++ {
		d := day.AddDate(0, 0, i)
		if !isWeekday(d) {
			continue
		}
		openAt := time.Date(d.Year(), d.Month(), d.Day(), c.open/60, c.open%60, 0, 0, c.loc)
		closeAt := time.Date(d.Year(), d.Month(), d.Day(), c.close/60, c.close%60, 0, 0, c.loc)
		if hours.NextOpen.IsZero() && openAt.After(now) {
			hours.NextOpen = openAt
		}
		if hours.NextClose.IsZero() && closeAt.After(now) {
			hours.NextClose = closeAt
		}
	}
	return hours
}

func isWeekday(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}
