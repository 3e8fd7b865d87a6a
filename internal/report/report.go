package report

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"wellcheck/internal/attendance"
	"wellcheck/internal/user"
)

var ErrInvalidPeriod = errors.New("invalid report period")

// Period kinds.
const (
	PeriodAll     = "all"
	PeriodMonthly = "monthly"
	PeriodYearly  = "yearly"
)

// Period restricts a report to a month, a year or everything.
type Period struct {
	Kind  string `json:"kind"`
	Year  int    `json:"year,omitempty"`
	Month int    `json:"month,omitempty"`
}

// ParsePeriod reads query values. An empty kind means PeriodAll.
func ParsePeriod(kind, year, month string) (Period, error) {
	switch kind {
	case "", PeriodAll:
		return Period{Kind: PeriodAll}, nil
	case PeriodMonthly, PeriodYearly:
	default:
		return Period{}, fmt.Errorf("%w: kind %q", ErrInvalidPeriod, kind)
	}
	y, err := strconv.Atoi(year)
	if err != nil || y < 1970 || y > 9999 {
		return Period{}, fmt.Errorf("%w: year %q", ErrInvalidPeriod, year)
	}
	p := Period{Kind: kind, Year: y}
	if kind == PeriodMonthly {
		m, err := strconv.Atoi(month)
		if err != nil || m < 1 || m > 12 {
			return Period{}, fmt.Errorf("%w: month %q", ErrInvalidPeriod, month)
		}
		p.Month = m
	}
	return p, nil
}

// Bounds returns the half-open interval covered by p in loc. Both are zero for PeriodAll.
func (p Period) Bounds(loc *time.Location) (from, to time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	switch p.Kind {
	case PeriodMonthly:
		from = time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, loc)
		return from, from.AddDate(0, 1, 0)
	case PeriodYearly:
		from = time.Date(p.Year, 1, 1, 0, 0, 0, 0, loc)
		return from, from.AddDate(1, 0, 0)
	}
	return time.Time{}, time.Time{}
}

// Contains reports whether t falls inside p in loc.
func (p Period) Contains(t time.Time, loc *time.Location) bool {
	from, to := p.Bounds(loc)
	if from.IsZero() {
		return true
	}
	return !t.Before(from) && t.Before(to)
}

// Label is a human readable name for the period.
func (p Period) Label() string {
	switch p.Kind {
	case PeriodMonthly:
		return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
	case PeriodYearly:
		return strconv.Itoa(p.Year)
	}
	return "All time"
}

// Summary is one user's attendance over a period.
type Summary struct {
	UserID    string         `json:"userId"`
	Name      string         `json:"name"`
	Role      string         `json:"role"`
	Present   int            `json:"present"`
	Absent    int            `json:"absent"`
	MoodCount map[string]int `json:"moodCount"`
}

// Moods renders MoodCount as "happy: 2x, sad: 1x", sorted by label.
func (s Summary) Moods() string {
	if len(s.MoodCount) == 0 {
		return "-"
	}
	labels := make([]string, 0, len(s.MoodCount))
	for m := range s.MoodCount {
		labels = append(labels, m)
	}
	sort.Strings(labels)
	parts := make([]string, len(labels))
	for i, m := range labels {
		parts[i] = fmt.Sprintf("%s: %dx", m, s.MoodCount[m])
	}
	return strings.Join(parts, ", ")
}

// Filter keeps the records inside p.
func Filter(records []attendance.Record, p Period, loc *time.Location) []attendance.Record {
	out := make([]attendance.Record, 0, len(records))
	for _, r := range records {
		if p.Contains(r.OccurredAt, loc) {
			out = append(out, r)
		}
	}
	return out
}

// Summarize aggregates records per known user. Present counts distinct days
// with a present record; every present record's mood is counted. Records of
// users not in users are ignored.
func Summarize(records []attendance.Record, users []user.User, p Period, loc *time.Location) []Summary {
	byID := make(map[string]user.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	sums := map[string]*Summary{}
	days := map[string]map[string]bool{}
	for _, r := range Filter(records, p, loc) {
		u, ok := byID[r.UserID]
		if !ok {
			continue
		}
		s, ok := sums[r.UserID]
		if !ok {
			s = &Summary{UserID: u.ID, Name: u.Name, Role: u.Role, MoodCount: map[string]int{}}
			sums[r.UserID] = s
			days[r.UserID] = map[string]bool{}
		}
		switch r.Status {
		case attendance.StatusAbsent:
			s.Absent++
		case attendance.StatusPresent, "":
			if !days[r.UserID][r.Day] {
				days[r.UserID][r.Day] = true
				s.Present++
			}
			if r.Mood != "" {
				s.MoodCount[r.Mood]++
			}
		}
	}

	out := make([]Summary, 0, len(sums))
	for _, s := range sums {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}
