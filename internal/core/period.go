// Package core holds the domain model and the period bucketing logic.
//
// A period is a string identifier bucketing income records into either a
// calendar month ("2025-01") or a week ("2025-W03", weeks start Monday).
// The string forms are persisted as Income.Period and must stay stable.
package core

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// MonthPeriod identifies a calendar month, wire format "2006-01".
type MonthPeriod string

// WeekPeriod identifies a week, wire format "2006-W02" with a zero-padded
// two-digit week number.
type WeekPeriod string

// ErrInvalidPeriod is returned for malformed period identifiers. Callers
// must not coerce a malformed identifier into a default.
var ErrInvalidPeriod = errors.New("invalid period")

const weekMarker = "-W"

// Direction selects the neighbor for NavigateMonth.
type Direction int

const (
	Prev Direction = -1
	Next Direction = 1
)

// IsWeekPeriod reports whether a raw period string carries the week form.
// The tag is inferred from the week marker substring, matching how the
// identifiers are persisted.
func IsWeekPeriod(period string) bool {
	return strings.Contains(period, weekMarker)
}

// MonthPeriodOf formats a date as its containing month identifier.
func MonthPeriodOf(t time.Time) MonthPeriod {
	return MonthPeriod(t.Format("2006-01"))
}

// WeekPeriodOf formats a date as its containing ISO week identifier. The
// year component is the ISO week-year, so dates in the first days of
// January may carry the previous year.
func WeekPeriodOf(t time.Time) WeekPeriod {
	year, week := t.ISOWeek()
	return WeekPeriod(fmt.Sprintf("%d-W%02d", year, week))
}

// ParseMonthPeriod returns the first day of the identified month.
func ParseMonthPeriod(p MonthPeriod) (time.Time, error) {
	t, err := time.Parse("2006-01", string(p))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, p)
	}
	return t, nil
}

// ParseWeekPeriod returns the Monday beginning week N of the given year,
// computed as the Monday-aligned start of January 1 plus N-1 weeks.
//
// This is a simplified approximation: no ISO-8601 week-year correction is
// applied, so week 1 is not guaranteed to contain the year's first
// Thursday. It is the inverse of WeekPeriodOf for most of the year but
// callers must not assume strict ISO-8601 compliance.
func ParseWeekPeriod(p WeekPeriod) (time.Time, error) {
	yearStr, weekStr, ok := strings.Cut(string(p), weekMarker)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, p)
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil || len(yearStr) != 4 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, p)
	}
	week, err := strconv.Atoi(weekStr)
	if err != nil || week < 1 || week > 54 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, p)
	}
	jan1 := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return mondayOnOrBefore(jan1).AddDate(0, 0, (week-1)*7), nil
}

// FormatPeriodDisplay renders a period for the UI: "Week 03" for week
// periods, long month name and year for month periods.
func FormatPeriodDisplay(period string) (string, error) {
	if IsWeekPeriod(period) {
		_, weekStr, _ := strings.Cut(period, weekMarker)
		if _, err := ParseWeekPeriod(WeekPeriod(period)); err != nil {
			return "", err
		}
		return "Week " + weekStr, nil
	}
	t, err := ParseMonthPeriod(MonthPeriod(period))
	if err != nil {
		return "", err
	}
	return t.Format("January 2006"), nil
}

// NavigateMonth returns the adjacent month period, rolling over year
// boundaries.
func NavigateMonth(p MonthPeriod, dir Direction) (MonthPeriod, error) {
	t, err := ParseMonthPeriod(p)
	if err != nil {
		return "", err
	}
	return MonthPeriodOf(t.AddDate(0, int(dir), 0)), nil
}

// MonthRange returns the first and last day of the identified month.
func MonthRange(p MonthPeriod) (start, end time.Time, err error) {
	start, err = ParseMonthPeriod(p)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end = start.AddDate(0, 1, -1)
	return start, end, nil
}

// DaysInMonth returns the calendar length of the month containing t.
func DaysInMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}

// WeekSet is the set of week periods overlapping a month. A week appears
// at most once regardless of how the enumeration produced it.
type WeekSet map[WeekPeriod]struct{}

func (s WeekSet) Contains(p WeekPeriod) bool {
	_, ok := s[p]
	return ok
}

func (s WeekSet) Len() int { return len(s) }

// Sorted returns the members in ascending identifier order, for stable
// display and tests.
func (s WeekSet) Sorted() []WeekPeriod {
	out := make([]WeekPeriod, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// WeeksOverlapping enumerates the week periods whose span intersects the
// identified month, including weeks that only partially overlap it. The
// walk starts at the Monday on or before the first day of the month and
// stops once a week begins after the month's last day.
func WeeksOverlapping(p MonthPeriod) (WeekSet, error) {
	start, end, err := MonthRange(p)
	if err != nil {
		return nil, err
	}
	weeks := make(WeekSet)
	for cur := mondayOnOrBefore(start); !cur.After(end); cur = cur.AddDate(0, 0, 7) {
		weeks[WeekPeriodOf(cur)] = struct{}{}
	}
	return weeks, nil
}

func mondayOnOrBefore(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7 // Monday=0 ... Sunday=6
	return t.AddDate(0, 0, -offset)
}
