package attendance

import "time"

// Warning is the dashboard notice shown to a member about today's attendance.
type Warning string

const (
	WarningNone            Warning = ""
	WarningCheckinReminder Warning = "checkin_reminder"
	WarningCheckinMissed   Warning = "checkin_missed"
	WarningCheckoutOverdue Warning = "checkout_overdue"
)

// Message is the user-facing text for w.
func (w Warning) Message() string {
	switch w {
	case WarningCheckinReminder:
		return "Reminder: you have not checked in today. Please check in before the deadline."
	case WarningCheckinMissed:
		return "You did not check in before the deadline."
	case WarningCheckoutOverdue:
		return "You have not checked out and the overdue threshold since check-in has passed."
	}
	return ""
}

// Warn evaluates the dashboard warning for today's records at now.
// The overdue threshold is p.OverdueAfter, not p.CheckoutAfter.
func Warn(records []Record, now time.Time, p Policy) Warning {
	in, ok := CheckIn(records)
	if !ok {
		if !now.Before(deadline(now, p)) {
			return WarningCheckinMissed
		}
		return WarningCheckinReminder
	}
	if firstOf(records, KindCheckOut) != nil {
		return WarningNone
	}
	if now.Sub(in.OccurredAt) > p.OverdueAfter {
		return WarningCheckoutOverdue
	}
	return WarningNone
}

// deadline is the wall-clock check-in deadline on the local day holding now,
// so it stays at the same local time across DST changes.
func deadline(now time.Time, p Policy) time.Time {
	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	d := p.CheckinDeadline
	return time.Date(local.Year(), local.Month(), local.Day(),
		int(d/time.Hour), int(d%time.Hour/time.Minute), int(d%time.Minute/time.Second), 0, loc)
}
