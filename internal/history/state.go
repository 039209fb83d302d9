// Package history holds the filter and pagination state of the sensor history table.
//
// A State is an immutable value: every operation returns a new State and never touches the
// reading slice it was built from, so the same logic serves HTTP requests and chat sessions alike.
package history

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/abelzeko/water-monitor/internal/classifier"
	"github.com/abelzeko/water-monitor/internal/entities"
)

// PageSize is the number of rows per table page
const PageSize = 10

var (
	ErrUnknownStatus = errors.New("unknown status filter")
	ErrInvalidDate   = errors.New("invalid date filter")
)

// StatusFilter is either StatusAll or the name of a severity level
type StatusFilter string

// StatusAll disables the status filter
const StatusAll StatusFilter = "all"

// ParseStatusFilter validates a status filter value; an empty string means all
func ParseStatusFilter(s string) (StatusFilter, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == string(StatusAll) {
		return StatusAll, nil
	}
	level, err := entities.ParseSeverityLevel(s)
	if err != nil {
		return StatusAll, fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
	return StatusFor(level), nil
}

// StatusFor returns the filter that keeps only the given overall level
func StatusFor(level entities.SeverityLevel) StatusFilter {
	return StatusFilter(level.String())
}

// Matches reports whether an overall level passes the filter
func (f StatusFilter) Matches(level entities.SeverityLevel) bool {
	return f == "" || f == StatusAll || string(f) == level.String()
}

// Day is a calendar date without a time of day. The zero Day means "no date filter".
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDay parses a YYYY-MM-DD date; an empty string gives the zero Day
func ParseDay(s string) (Day, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Day{}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Day{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return DayOf(t, time.UTC), nil
}

// DayOf returns the calendar day of t in loc
func DayOf(t time.Time, loc *time.Location) Day {
	y, m, d := t.In(loc).Date()
	return Day{Year: y, Month: m, Day: d}
}

// IsZero reports whether the day is unset
func (d Day) IsZero() bool {
	return d == Day{}
}

func (d Day) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// State is one immutable snapshot of the history table view
type State struct {
	readings []entities.SensorReading
	search   string
	status   StatusFilter
	date     Day
	page     int
	loc      *time.Location
}

// New creates a table state over readings with no filters on page 1
func New(readings []entities.SensorReading) State {
	return State{readings: readings, status: StatusAll, page: 1, loc: time.Local}
}

// Readings returns the full, unfiltered reading list
func (s State) Readings() []entities.SensorReading { return s.readings }

// SearchText returns the active search text
func (s State) SearchText() string { return s.search }

// Status returns the active status filter
func (s State) Status() StatusFilter {
	if s.status == "" {
		return StatusAll
	}
	return s.status
}

// Date returns the active date filter
func (s State) Date() Day { return s.date }

// Page returns the current 1-based page
func (s State) Page() int {
	if s.page < 1 {
		return 1
	}
	return s.page
}

// Location returns the zone used to compute calendar days
func (s State) Location() *time.Location {
	if s.loc == nil {
		return time.Local
	}
	return s.loc
}

// HasFilters reports whether any filter is active
func (s State) HasFilters() bool {
	return s.search != "" || s.Status() != StatusAll || !s.date.IsZero()
}

// WithReadings replaces the reading list wholesale. The page is kept but clamped to the new page count.
func (s State) WithReadings(readings []entities.SensorReading) State {
	s.readings = readings
	return s.WithPage(s.Page())
}

// WithLocation sets the zone used for date filtering and display
func (s State) WithLocation(loc *time.Location) State {
	s.loc = loc
	return s
}

// WithSearch sets the search text and returns to page 1
func (s State) WithSearch(text string) State {
	s.search = text
	s.page = 1
	return s
}

// WithStatus sets the status filter and returns to page 1
func (s State) WithStatus(f StatusFilter) State {
	s.status = f
	s.page = 1
	return s
}

// WithDate sets the date filter and returns to page 1
func (s State) WithDate(d Day) State {
	s.date = d
	s.page = 1
	return s
}

// ResetFilters clears every filter and returns to page 1
func (s State) ResetFilters() State {
	s.search = ""
	s.status = StatusAll
	s.date = Day{}
	s.page = 1
	return s
}

// WithPage moves to page n, clamped to [1, TotalPages]
func (s State) WithPage(n int) State {
	total := s.TotalPages()
	if n > total {
		n = total
	}
	if n < 1 {
		n = 1
	}
	s.page = n
	return s
}

// Filtered applies the search, status and date filters (AND-composed)
func (s State) Filtered() []entities.SensorReading {
	status := s.Status()
	loc := s.Location()

	filtered := make([]entities.SensorReading, 0, len(s.readings))
	for _, r := range s.readings {
		if s.search != "" && !matchesSearch(r, s.search) {
			continue
		}
		if status != StatusAll && !status.Matches(classifier.Overall(r).Level) {
			continue
		}
		if !s.date.IsZero() && DayOf(r.CreatedAt, loc) != s.date {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered
}

// TotalPages returns the number of pages of the filtered list, at least 1
func (s State) TotalPages() int {
	return pageCount(len(s.Filtered()))
}

// PageReadings returns the filtered readings on the current page
func (s State) PageReadings() []entities.SensorReading {
	return pageOf(s.Filtered(), s.Page())
}

// Summary returns the "showing X of Y" line shown above the table
func (s State) Summary() string {
	filtered := s.Filtered()
	return fmt.Sprintf("Menampilkan %d dari %d data", len(pageOf(filtered, s.Page())), len(filtered))
}

func pageCount(n int) int {
	if n <= 0 {
		return 1
	}
	return (n + PageSize - 1) / PageSize
}

func pageOf(filtered []entities.SensorReading, page int) []entities.SensorReading {
	start := (page - 1) * PageSize
	if start >= len(filtered) || start < 0 {
		return []entities.SensorReading{}
	}
	end := start + PageSize
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[start:end]
}

func matchesSearch(r entities.SensorReading, text string) bool {
	fields := []string{
		strconv.FormatInt(r.ID, 10),
		formatNumber(r.Turbidity),
		formatNumber(r.PH),
		formatNumber(r.Temperature),
		formatNumber(r.WaterFlow),
	}
	for _, f := range fields {
		if strings.Contains(f, text) {
			return true
		}
	}
	return false
}

// formatNumber renders the shortest representation of v, e.g. 7 -> "7", 7.25 -> "7.25"
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
