package attendance

import "time"

// Kind distinguishes the two daily attendance records.
type Kind string

const (
	KindCheckIn  Kind = "checkin"
	KindCheckOut Kind = "checkout"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	return k == KindCheckIn || k == KindCheckOut
}

const (
	StatusPresent = "present"
	StatusAbsent  = "absent"

	// MoodUnknown is stored when a check-in has no usable face inference.
	MoodUnknown = "unknown"
)

// FaceAttributes are the inference results attached to a check-in.
type FaceAttributes struct {
	Gender     string  `json:"gender"`
	Age        float64 `json:"age"`
	Expression string  `json:"expression"`
}

// Record is one attendance record as the backend stores and serves it.
type Record struct {
	ID         string          `json:"id"`
	UserID     string          `json:"userId"`
	Kind       Kind            `json:"type"`
	Mood       string          `json:"mood"`
	Note       string          `json:"description"`
	SelfieURL  string          `json:"selfieUrl,omitempty"`
	Face       *FaceAttributes `json:"faceResult,omitempty"`
	Status     string          `json:"status"`
	Day        string          `json:"date"`
	OccurredAt time.Time       `json:"createdAt"`
}

// Day returns the calendar date of t in loc, formatted as YYYY-MM-DD.
func Day(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(time.DateOnly)
}

// DayBounds returns the [start, end) instants of the calendar day holding t in loc.
func DayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}
