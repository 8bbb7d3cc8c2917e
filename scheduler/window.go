package scheduler

import "time"

// maxAdvanceDays bounds the next-start search so a timezone or calendar
// miscalculation can never loop forever.
const maxAdvanceDays = 7

// OperatingWindow describes when the pipeline is allowed to run: a
// daily start/end time on an allowed set of weekdays, evaluated in one
// fixed timezone regardless of the host's local zone. Immutable after
// construction.
type OperatingWindow struct {
	Location    *time.Location
	StartHour   int
	StartMinute int
	EndHour     int
	EndMinute   int
	Weekdays    map[time.Weekday]bool
}

// NewWeekdayWindow creates a Monday-Friday operating window
func NewWeekdayWindow(location *time.Location, startHour, startMinute, endHour, endMinute int) OperatingWindow {
	return OperatingWindow{
		Location:    location,
		StartHour:   startHour,
		StartMinute: startMinute,
		EndHour:     endHour,
		EndMinute:   endMinute,
		Weekdays: map[time.Weekday]bool{
			time.Monday:    true,
			time.Tuesday:   true,
			time.Wednesday: true,
			time.Thursday:  true,
			time.Friday:    true,
		},
	}
}

// Contains reports whether now falls inside the window. Both the start
// and end boundaries are inclusive; days outside the weekday set are
// always outside the window.
func (w OperatingWindow) Contains(now time.Time) bool {
	now = now.In(w.Location)
	if !w.Weekdays[now.Weekday()] {
		return false
	}

	start := time.Date(now.Year(), now.Month(), now.Day(), w.StartHour, w.StartMinute, 0, 0, w.Location)
	end := time.Date(now.Year(), now.Month(), now.Day(), w.EndHour, w.EndMinute, 0, 0, w.Location)
	return !now.Before(start) && !now.After(end)
}

// UntilNextStart returns the duration from now until the next window
// start: today's start time if it is still ahead, otherwise the start
// time of the next allowed day. The day-advance loop is bounded.
func (w OperatingWindow) UntilNextStart(now time.Time) time.Duration {
	now = now.In(w.Location)
	next := time.Date(now.Year(), now.Month(), now.Day(), w.StartHour, w.StartMinute, 0, 0, w.Location)

	if !now.Before(next) {
		next = next.AddDate(0, 0, 1)
	}

	for i := 0; i < maxAdvanceDays && !w.Weekdays[next.Weekday()]; i++ {
		next = next.AddDate(0, 0, 1)
	}

	return next.Sub(now)
}
