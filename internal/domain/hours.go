package domain

import "time"

// BusinessHours describes the clinic's single shared calendar: one closed
// weekday and a daily bookable window. Open and Close are offsets from
// midnight; SlotDuration is the fixed length shared by every appointment.
type BusinessHours struct {
	ClosedWeekday time.Weekday
	Open          time.Duration
	Close         time.Duration
	SlotDuration  time.Duration
}

// LastStart is the latest offset from midnight at which an appointment may
// begin and still complete by closing time. The boundary is inclusive: with
// an 18:00 close and a 30-minute slot, 17:30 is bookable.
func (h BusinessHours) LastStart() time.Duration {
	return h.Close - h.SlotDuration
}

// ClosedOn reports whether t falls on the weekly closed day.
func (h BusinessHours) ClosedOn(t time.Time) bool {
	return t.Weekday() == h.ClosedWeekday
}

// WithinHours reports whether t's time of day lies in [Open, LastStart].
func (h BusinessHours) WithinHours(t time.Time) bool {
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	offset := t.Sub(midnight)
	return offset >= h.Open && offset <= h.LastStart()
}
