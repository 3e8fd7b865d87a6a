package attendance

import "time"

// Tab is the page section shown first on the check-in screen.
type Tab string

const (
	TabCheckIn  Tab = "checkin"
	TabCheckOut Tab = "checkout"
)

// Policy holds the thresholds the gate and the warnings are evaluated against.
// CheckoutAfter and OverdueAfter are independent on purpose: the check-out
// unlock and the dashboard overdue warning use different values.
type Policy struct {
	CheckoutAfter   time.Duration
	OverdueAfter    time.Duration
	CheckinDeadline time.Duration // offset from local midnight
	Location        *time.Location
}

// DefaultPolicy returns the 8h unlock, 9h overdue, 09:00 deadline policy in UTC.
func DefaultPolicy() Policy {
	return Policy{
		CheckoutAfter:   8 * time.Hour,
		OverdueAfter:    9 * time.Hour,
		CheckinDeadline: 9 * time.Hour,
		Location:        time.UTC,
	}
}

// Eligibility is the gate's verdict for one user at one instant.
type Eligibility struct {
	HasCheckedIn     bool       `json:"hasCheckedIn"`
	HasCheckedOut    bool       `json:"hasCheckedOut"`
	CheckInLocked    bool       `json:"checkInLocked"`
	CheckOutUnlockAt *time.Time `json:"checkOutUnlockAt"`
	CheckOutLocked   bool       `json:"checkOutLocked"`
	DefaultTab       Tab        `json:"defaultTab"`
}

// Evaluate computes which actions are open given today's records and now.
// It has no side effects; records are not modified.
func Evaluate(records []Record, now time.Time, p Policy) Eligibility {
	in := firstOf(records, KindCheckIn)
	out := firstOf(records, KindCheckOut)

	e := Eligibility{
		HasCheckedIn:  in != nil,
		HasCheckedOut: out != nil,
		DefaultTab:    TabCheckIn,
	}
	e.CheckInLocked = e.HasCheckedIn

	if in == nil {
		e.CheckOutLocked = true
		return e
	}

	unlock := in.OccurredAt.Add(p.CheckoutAfter)
	e.CheckOutUnlockAt = &unlock
	e.CheckOutLocked = now.Before(unlock) || e.HasCheckedOut
	e.DefaultTab = TabCheckOut
	return e
}

// CheckIn returns the canonical check-in among records, the earliest one.
func CheckIn(records []Record) (Record, bool) {
	r := firstOf(records, KindCheckIn)
	if r == nil {
		return Record{}, false
	}
	return *r, true
}

// firstOf picks the record of kind k with the earliest OccurredAt.
// Duplicates can come from an inconsistent backend and are ignored.
func firstOf(records []Record, k Kind) *Record {
	var first *Record
	for i := range records {
		r := &records[i]
		if r.Kind != k {
			continue
		}
		if first == nil || r.OccurredAt.Before(first.OccurredAt) {
			first = r
		}
	}
	return first
}
