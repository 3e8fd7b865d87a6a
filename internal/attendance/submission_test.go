package attendance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const selfie = "data:image/png;base64,iVBORw0KGgo="

func TestSubmissionValidate(t *testing.T) {
	tests := []struct {
		name string
		sub  Submission
		want error
	}{
		{"unknown kind", Submission{Kind: "lunch", SelfieImage: selfie}, ErrInvalidKind},
		{"checkin without selfie", Submission{Kind: KindCheckIn}, ErrSelfieRequired},
		{"checkin with selfie", Submission{Kind: KindCheckIn, SelfieImage: selfie}, nil},
		{"checkout with selfie but no mood", Submission{Kind: KindCheckOut, SelfieImage: selfie}, ErrMoodRequired},
		{"checkout with blank mood", Submission{Kind: KindCheckOut, Mood: "  ", SelfieImage: selfie}, ErrMoodRequired},
		{"checkout with mood but no selfie", Submission{Kind: KindCheckOut, Mood: "Happy"}, ErrSelfieRequired},
		{"checkout complete", Submission{Kind: KindCheckOut, Mood: "Happy", SelfieImage: selfie}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sub.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, IsValidation(err))
		})
	}
}

func TestSubmissionNormalized(t *testing.T) {
	face := &FaceAttributes{Gender: "female", Age: 31.4, Expression: "happy"}

	in := Submission{Kind: KindCheckIn, Mood: "ignored", Face: face, Note: "  fine  "}.Normalized()
	assert.Equal(t, "happy", in.Mood)
	assert.Equal(t, face, in.Face)
	assert.Equal(t, "fine", in.Note)

	noFace := Submission{Kind: KindCheckIn}.Normalized()
	assert.Equal(t, MoodUnknown, noFace.Mood)

	out := Submission{Kind: KindCheckOut, Mood: " Stressed ", Face: face}.Normalized()
	assert.Equal(t, "Stressed", out.Mood)
	assert.Nil(t, out.Face)
}

func TestSubmissionRecord(t *testing.T) {
	now := at(9, 15)
	rec := Submission{Kind: KindCheckIn, SelfieImage: selfie}.Record("u1", now, nil)
	assert.Equal(t, "u1", rec.UserID)
	assert.Equal(t, KindCheckIn, rec.Kind)
	assert.Equal(t, MoodUnknown, rec.Mood)
	assert.Equal(t, selfie, rec.SelfieURL)
	assert.Equal(t, StatusPresent, rec.Status)
	assert.Equal(t, "2026-10-12", rec.Day)
	assert.Equal(t, now, rec.OccurredAt)
}

func TestMoodFromFace(t *testing.T) {
	assert.Equal(t, MoodUnknown, MoodFromFace(nil))
	assert.Equal(t, MoodUnknown, MoodFromFace(&FaceAttributes{Expression: "-"}))
	assert.Equal(t, MoodUnknown, MoodFromFace(&FaceAttributes{Expression: ""}))
	assert.Equal(t, "sad", MoodFromFace(&FaceAttributes{Expression: "sad"}))
}

func TestDominantExpression(t *testing.T) {
	assert.Equal(t, "", DominantExpression(nil))
	assert.Equal(t, "happy", DominantExpression(map[string]float64{
		"neutral": 0.12, "happy": 0.81, "sad": 0.02, "angry": 0.05,
	}))
	// Ties resolve to the alphabetically first label.
	assert.Equal(t, "angry", DominantExpression(map[string]float64{"sad": 0.5, "angry": 0.5}))
}
