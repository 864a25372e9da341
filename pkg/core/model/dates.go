package model

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// serialEpoch is day zero of spreadsheet date serials
var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// DisplayLayout is how dates are written into reservation rows
const DisplayLayout = "02/01/2006"

// Date is a calendar date with no time or zone attached
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// DateOf returns the calendar date of t as seen in loc
func DateOf(t time.Time, loc *time.Location) Date {
	y, m, d := t.In(loc).Date()
	return Date{Year: y, Month: m, Day: d}
}

// DateFromSerial converts a spreadsheet serial (days since 1899-12-30) to a Date
func DateFromSerial(serial int) Date {
	return DateOf(serialEpoch.AddDate(0, 0, serial), time.UTC)
}

func (d Date) IsZero() bool {
	return d == Date{}
}

// At returns the instant hour:minute on d in loc
func (d Date) At(hour, minute int, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, hour, minute, 0, 0, loc)
}

// Serial is the number of days since 1899-12-30
func (d Date) Serial() int {
	secs := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Unix() - serialEpoch.Unix()
	return int(secs / 86400)
}

// Display formats the date as dd/MM/yyyy
func (d Date) Display() string {
	return fmt.Sprintf("%02d/%02d/%04d", d.Day, int(d.Month), d.Year)
}

// ISO formats the date as yyyy-MM-dd
func (d Date) ISO() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) Compare(o Date) int {
	switch {
	case d.Year != o.Year:
		return cmpInt(d.Year, o.Year)
	case d.Month != o.Month:
		return cmpInt(int(d.Month), int(o.Month))
	default:
		return cmpInt(d.Day, o.Day)
	}
}

func cmpInt(a, b int) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

var (
	yearFirstPattern = regexp.MustCompile(`^(\d{4})[/-](\d{1,2})[/-](\d{1,2})`)
	dayFirstPattern  = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})[/-](\d{2}|\d{4})$`)
	serialPattern    = regexp.MustCompile(`^\d+(\.\d+)?$`)
)

// ParseDate accepts dd/MM/yyyy, d/M/yyyy, dd-MM-yy, yyyy-MM-dd (optionally followed by a time,
// which is ignored) and spreadsheet serial numbers.
func ParseDate(raw string) (Date, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Date{}, ValidationError("empty date")
	}

	if serialPattern.MatchString(s) {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Date{}, ValidationError(fmt.Sprintf("invalid date %q", raw))
		}
		return DateFromSerial(int(f)), nil
	}

	var y, m, d int
	if match := yearFirstPattern.FindStringSubmatch(s); match != nil {
		y, _ = strconv.Atoi(match[1])
		m, _ = strconv.Atoi(match[2])
		d, _ = strconv.Atoi(match[3])
	} else if match := dayFirstPattern.FindStringSubmatch(s); match != nil {
		d, _ = strconv.Atoi(match[1])
		m, _ = strconv.Atoi(match[2])
		y, _ = strconv.Atoi(match[3])
		if len(match[3]) == 2 {
			y += 2000
		}
	} else {
		return Date{}, ValidationError(fmt.Sprintf("invalid date %q", raw))
	}

	// time.Date normalises overflow (31/02 -> 03/03), so round-trip to reject it
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return Date{}, ValidationError(fmt.Sprintf("invalid date %q", raw))
	}
	return Date{Year: y, Month: time.Month(m), Day: d}, nil
}

var instantLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"02/01/2006 15:04",
}

// ParseInstant reads an RFC 3339 timestamp, or a wall-clock time without offset which is taken
// in loc
func ParseInstant(raw string, loc *time.Location) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range instantLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ValidationError(fmt.Sprintf("invalid time %q, expected e.g. 2024-06-10T09:00", raw))
}
