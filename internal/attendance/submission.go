package attendance

import (
	"sort"
	"strings"
	"time"
)

// Submission is the payload of a check-in or check-out action.
type Submission struct {
	Kind        Kind            `json:"type"`
	Mood        string          `json:"mood"`
	Note        string          `json:"description,omitempty"`
	SelfieImage string          `json:"selfieImage,omitempty"`
	Face        *FaceAttributes `json:"faceData,omitempty"`
}

// Validate checks required fields. A check-out needs a mood and a selfie,
// a check-in needs a selfie; the mood of a check-in is derived, not chosen.
func (s Submission) Validate() error {
	if !s.Kind.Valid() {
		return ErrInvalidKind
	}
	if s.Kind == KindCheckOut && strings.TrimSpace(s.Mood) == "" {
		return ErrMoodRequired
	}
	if strings.TrimSpace(s.SelfieImage) == "" {
		return ErrSelfieRequired
	}
	return nil
}

// Normalized returns s with the mood and face fields settled per kind:
// a check-in takes its mood from the face expression (or MoodUnknown) and a
// check-out never carries face attributes.
func (s Submission) Normalized() Submission {
	switch s.Kind {
	case KindCheckIn:
		s.Mood = MoodFromFace(s.Face)
	case KindCheckOut:
		s.Mood = strings.TrimSpace(s.Mood)
		s.Face = nil
	}
	s.Note = strings.TrimSpace(s.Note)
	return s
}

// Record builds the record a successful submission creates.
func (s Submission) Record(userID string, now time.Time, loc *time.Location) Record {
	s = s.Normalized()
	return Record{
		UserID:     userID,
		Kind:       s.Kind,
		Mood:       s.Mood,
		Note:       s.Note,
		SelfieURL:  s.SelfieImage,
		Face:       s.Face,
		Status:     StatusPresent,
		Day:        Day(now, loc),
		OccurredAt: now.UTC(),
	}
}

// MoodFromFace returns the dominant expression of f, or MoodUnknown.
func MoodFromFace(f *FaceAttributes) string {
	if f == nil {
		return MoodUnknown
	}
	expr := strings.TrimSpace(f.Expression)
	if expr == "" || expr == "-" {
		return MoodUnknown
	}
	return expr
}

// DominantExpression returns the label with the highest score. Ties go to the
// lexicographically smallest label so the result does not depend on map order.
func DominantExpression(scores map[string]float64) string {
	labels := make([]string, 0, len(scores))
	for k := range scores {
		labels = append(labels, k)
	}
	sort.Strings(labels)

	best := ""
	for _, l := range labels {
		if best == "" || scores[l] > scores[best] {
			best = l
		}
	}
	return best
}
