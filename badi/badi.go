/*
Package badi implements the Badí' calendar used to key all bookkeeping data.

PURPOSE:
  The store timestamps rows and anchors fiscal years in the Badí' calendar,
  not the Gregorian one. This package owns the conversion and the month
  catalog: 19 named months of 19 days each, plus the intercalary Ayyám-i-Há
  days between Mulk and 'Alá'.

KEY CONCEPTS:
  - Date:      (year, month, day) in the Badí' calendar
  - Month 1-19 are the named months; month 0 is Ayyám-i-Há
  - Year 1 began at Naw-Rúz 1844 (Gregorian)

TIMESTAMPS:
  Timestamp() renders an ISO-8601 string in the Badí' epoch, e.g.
  "0182-02-19T14:05:22". Ayyám-i-Há stamps carry month 00.

CONVERSION:
  Naw-Rúz is fixed at March 21 here. The astronomical rule (equinox at
  Tehran) shifts it to March 20 in some years; the bookkeeping model only
  needs year arithmetic and month bucketing, so the fixed anchor is used.

SEE ALSO:
  - fiscal/: fiscal-year chain built on these dates
  - store/sqlite/: seeds the month table from MonthNames()
*/
package badi

import (
	"fmt"
	"time"
)

// Epoch is the first Badí' year's Gregorian year at Naw-Rúz.
const Epoch = 1844

// DaysPerMonth is the length of every named Badí' month.
const DaysPerMonth = 19

// NamedMonths is the number of named months in a Badí' year.
const NamedMonths = 19

// AyyamIHa is the month ordinal used for the intercalary days.
const AyyamIHa = 0

// Date is a calendar date in the Badí' calendar.
// Month is 1..19 for the named months and AyyamIHa (0) for the
// intercalary days.
type Date struct {
	Year  int
	Month int
	Day   int
}

// MonthName pairs a month name with its ordinal.
type MonthName struct {
	Name    string
	Ordinal int
}

// monthNames lists the named months in order, with Ayyám-i-Há last.
// The ordinal is the seeding key; the month table is unique on both
// name and ordinal.
var monthNames = []MonthName{
	{"Baha", 1},
	{"Jalal", 2},
	{"Jamal", 3},
	{"Azamat", 4},
	{"Nur", 5},
	{"Rahmat", 6},
	{"Kalimat", 7},
	{"Kamal", 8},
	{"Asma", 9},
	{"Izzat", 10},
	{"Mashiyyat", 11},
	{"Ilm", 12},
	{"Qudrat", 13},
	{"Qawl", 14},
	{"Masail", 15},
	{"Sharaf", 16},
	{"Sultan", 17},
	{"Mulk", 18},
	{"Ala", 19},
	{"Ayyam-i-Ha", AyyamIHa},
}

// MonthNames returns the full month catalog in seeding order.
func MonthNames() []MonthName {
	out := make([]MonthName, len(monthNames))
	copy(out, monthNames)
	return out
}

// NameOf returns the name for a month ordinal, or "" if unknown.
func NameOf(ordinal int) string {
	for _, m := range monthNames {
		if m.Ordinal == ordinal {
			return m.Name
		}
	}
	return ""
}

// nawRuz returns the Gregorian instant of Naw-Rúz in the given
// Gregorian year.
func nawRuz(gregorianYear int) time.Time {
	return time.Date(gregorianYear, time.March, 21, 0, 0, 0, 0, time.UTC)
}

// FromGregorian converts a Gregorian time to a Badí' date.
func FromGregorian(t time.Time) Date {
	t = t.UTC()
	start := nawRuz(t.Year())
	if t.Before(start) {
		start = nawRuz(t.Year() - 1)
	}
	year := start.Year() - Epoch + 1

	days := int(t.Sub(start).Hours() / 24)
	if days < NamedMonths*DaysPerMonth-DaysPerMonth {
		// Months 1..18.
		return Date{Year: year, Month: days/DaysPerMonth + 1, Day: days%DaysPerMonth + 1}
	}

	// 'Alá' occupies the final 19 days before the next Naw-Rúz;
	// whatever lies between Mulk and 'Alá' is Ayyám-i-Há.
	next := nawRuz(start.Year() + 1)
	alaStart := next.AddDate(0, 0, -DaysPerMonth)
	if !t.Before(alaStart) {
		return Date{Year: year, Month: NamedMonths, Day: int(t.Sub(alaStart).Hours()/24) + 1}
	}
	return Date{Year: year, Month: AyyamIHa, Day: days - (NamedMonths-1)*DaysPerMonth + 1}
}

// Today returns the current Badí' date.
func Today() Date {
	return FromGregorian(time.Now())
}

// Timestamp renders t as an ISO-8601 string in the Badí' epoch.
func Timestamp(t time.Time) string {
	t = t.UTC()
	d := FromGregorian(t)
	return fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:%02d",
		d.Year, d.Month, d.Day, t.Hour(), t.Minute(), t.Second())
}

// Now returns the current Badí' timestamp.
func Now() string {
	return Timestamp(time.Now())
}

// ParseDate parses a "YYYY-MM-DD" Badí' date string.
func ParseDate(s string) (Date, error) {
	var d Date
	if _, err := fmt.Sscanf(s, "%4d-%2d-%2d", &d.Year, &d.Month, &d.Day); err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	if !d.Valid() {
		return Date{}, fmt.Errorf("invalid date %q: out of range", s)
	}
	return d, nil
}

// Valid reports whether d is a representable Badí' date.
// Ayyám-i-Há may have up to 5 days (leap years).
func (d Date) Valid() bool {
	if d.Year < 1 || d.Day < 1 {
		return false
	}
	if d.Month == AyyamIHa {
		return d.Day <= 5
	}
	return d.Month >= 1 && d.Month <= NamedMonths && d.Day <= DaysPerMonth
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}
