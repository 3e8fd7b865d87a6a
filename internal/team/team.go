package team

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("team not found")
)

// Team groups users under an optional lead.
type Team struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Members     []string  `json:"members"`
	Lead        string    `json:"lead,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Input is the body of create and update requests.
type Input struct {
	Name        string   `json:"name" validate:"required,max=120"`
	Description string   `json:"description" validate:"max=2000"`
	Members     []string `json:"members"`
	Lead        string   `json:"lead"`
}

var validate = validator.New()

// normalize trims text and drops member and lead ids that are not UUIDs.
func (in Input) normalize() (Input, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Members = ValidIDs(in.Members)
	if _, err := uuid.Parse(in.Lead); err != nil {
		in.Lead = ""
	}
	if err := validate.Struct(in); err != nil {
		return Input{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return in, nil
}

// ValidIDs keeps the ids that parse as UUIDs, deduplicated, in order.
func ValidIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		parsed, err := uuid.Parse(strings.TrimSpace(id))
		if err != nil {
			continue
		}
		s := parsed.String()
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
