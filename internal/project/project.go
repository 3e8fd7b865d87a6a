package project

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"wellcheck/internal/team"
	"wellcheck/internal/user"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("project not found")
)

// Project assigns teams to a piece of work with optional dates.
type Project struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	StartDate   *time.Time `json:"startDate,omitempty"`
	EndDate     *time.Time `json:"endDate,omitempty"`
	Teams       []string   `json:"teams"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// TeamDetail is a team with its members expanded to profiles.
type TeamDetail struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Members     []user.User `json:"members"`
	Lead        string      `json:"lead,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// Detail is a project with its teams expanded.
type Detail struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	StartDate   *time.Time   `json:"startDate,omitempty"`
	EndDate     *time.Time   `json:"endDate,omitempty"`
	Teams       []TeamDetail `json:"teams"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// Input is the body of create and update requests.
type Input struct {
	Name        string     `json:"name" validate:"required,max=120"`
	Description string     `json:"description" validate:"max=2000"`
	StartDate   *time.Time `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
	Teams       []string   `json:"teams"`
}

var validate = validator.New()

func (in Input) normalize() (Input, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Teams = team.ValidIDs(in.Teams)
	if err := validate.Struct(in); err != nil {
		return Input{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if in.StartDate != nil && in.EndDate != nil && in.EndDate.Before(*in.StartDate) {
		return Input{}, fmt.Errorf("%w: endDate before startDate", ErrInvalidInput)
	}
	return in, nil
}
