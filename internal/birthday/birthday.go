// Package birthday derives ages, birthday countdowns and upcoming-birthday
// membership from person records. All functions are pure: they compute their
// result from the given birthday and reference instant and keep no state.
//
// Dates are compared at calendar-day granularity in UTC; the time-of-day part
// of the inputs is ignored. A February 29 birthday is treated as occurring on
// February 28 in non-leap years.
package birthday

import (
	"errors"
	"fmt"
	"time"

	"gitlab.com/dirk.krummacker/birthday-crm/internal/model"
)

// ErrInvalidDate is returned when a birthday lies after the reference
// instant. Such input is never silently corrected.
var ErrInvalidDate = errors.New("invalid birthday date")

// DefaultWindowDays is the upcoming-birthday window used when the caller
// does not choose one.
const DefaultWindowDays = 30

// Age returns the number of completed years between the birthday and now.
// On the birthday itself the new age is already counted.
func Age(birthday, now time.Time) (int, error) {
	b := toDay(birthday)
	n := toDay(now)
	if b.After(n) {
		return 0, fmt.Errorf("%w: birthday %s is after %s",
			ErrInvalidDate, b.Format(time.DateOnly), n.Format(time.DateOnly))
	}
	years := n.Year() - b.Year()
	if occurrenceIn(n.Year(), b).After(n) {
		years--
	}
	return years, nil
}

// NextOccurrence returns the date of the next calendar occurrence of the
// birthday's month and day. If the occurrence falls on now's calendar date
// it counts as the current occurrence and is returned as today, not deferred
// to next year.
func NextOccurrence(birthday, now time.Time) (time.Time, error) {
	b := toDay(birthday)
	n := toDay(now)
	if b.After(n) {
		return time.Time{}, fmt.Errorf("%w: birthday %s is after %s",
			ErrInvalidDate, b.Format(time.DateOnly), n.Format(time.DateOnly))
	}
	occurrence := occurrenceIn(n.Year(), b)
	if occurrence.Before(n) {
		occurrence = occurrenceIn(n.Year()+1, b)
	}
	return occurrence, nil
}

// DaysUntil returns the number of whole days from now to the next occurrence
// of the birthday. It returns 0 exactly on the birthday.
func DaysUntil(birthday, now time.Time) (int, error) {
	occurrence, err := NextOccurrence(birthday, now)
	if err != nil {
		return 0, err
	}
	return int(occurrence.Sub(toDay(now)) / (24 * time.Hour)), nil
}

// Upcoming returns every person whose birthday occurs within the next
// windowDays days, counting today. The result preserves the order of the
// input. Persons without a birthday are never upcoming. A person whose
// birthday lies after now makes the call fail with ErrInvalidDate.
func Upcoming(people []model.Person, now time.Time, windowDays int) ([]model.Person, error) {
	result := make([]model.Person, 0, len(people))
	for _, person := range people {
		if person.Birthday == nil {
			continue
		}
		days, err := DaysUntil(*person.Birthday, now)
		if err != nil {
			return nil, fmt.Errorf("person %d: %w", person.Id, err)
		}
		if days <= windowDays {
			result = append(result, person)
		}
	}
	return result, nil
}

// toDay truncates an instant to its calendar date in UTC.
func toDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// occurrenceIn returns the occurrence of the birthday's month and day in the
// given year. A February 29 birthday occurs on February 28 when the year is
// not a leap year.
func occurrenceIn(year int, birthday time.Time) time.Time {
	month, day := birthday.Month(), birthday.Day()
	if month == time.February && day == 29 && !isLeapYear(year) {
		day = 28
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// isLeapYear reports whether the given year has a February 29.
func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
