package engine

import (
	"time"

	ptime "github.com/yaa110/go-persian-calendar"
)

// LocalDate is a date in the Persian (Jalali) civil calendar used for
// school-year and monthly bucketing.
type LocalDate struct {
	Year  int
	Month int
	Day   int
}

// ToLocalDate converts a Gregorian timestamp into its Persian calendar date.
func ToLocalDate(t time.Time) LocalDate {
	pt := ptime.New(t)
	return LocalDate{Year: pt.Year(), Month: int(pt.Month()), Day: pt.Day()}
}

// SchoolYear returns the school year the date belongs to. The academic year
// spans local month 7 of year Y through local month 6 of year Y+1, so months
// 1-6 count toward the previous year's school year.
func (d LocalDate) SchoolYear() int {
	if d.Month >= 7 {
		return d.Year
	}
	return d.Year - 1
}

// SchoolYearBounds returns the Gregorian half-open interval [from, to)
// covering one school year: local 7/1 of the given year through local 7/1 of
// the next.
func SchoolYearBounds(year int) (time.Time, time.Time) {
	from := ptime.Date(year, ptime.Month(7), 1, 0, 0, 0, 0, ptime.Iran()).Time()
	to := ptime.Date(year+1, ptime.Month(7), 1, 0, 0, 0, 0, ptime.Iran()).Time()
	return from, to
}

// InScope reports whether the date falls within the requested school year and
// optional month (scope month 0 covers the whole year).
func (d LocalDate) InScope(year, month int) bool {
	if d.SchoolYear() != year {
		return false
	}
	return month == 0 || d.Month == month
}
