package model

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const ReservationIDPrefix = "BH"

// MaxReservationNumber is the largest number that fits the eight digits of an id
const MaxReservationNumber int64 = 99999999

var reservationIDPattern = regexp.MustCompile(`(?i)^BH(\d{8})$`)

// FormatReservationID renders n as BH followed by eight zero-padded digits. Numbers outside
// 1..MaxReservationNumber have no id.
func FormatReservationID(n int64) (string, error) {
	if n < 1 || n > MaxReservationNumber {
		return "", ValidationError(fmt.Sprintf("reservation number %d outside 1..%d", n, MaxReservationNumber))
	}
	return fmt.Sprintf("%s%08d", ReservationIDPrefix, n), nil
}

// ParseReservationID returns the numeric part of a well-formed id. Surrounding whitespace is
// ignored and the prefix is matched case-insensitively.
func ParseReservationID(id string) (int64, bool) {
	match := reservationIDPattern.FindStringSubmatch(strings.TrimSpace(id))
	if match == nil {
		return 0, false
	}
	n, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// HighestReservationID returns the largest well-formed id number in ids, or 0 if there is none.
// Malformed ids are skipped.
func HighestReservationID(ids []string) int64 {
	var max int64
	for _, id := range ids {
		if n, ok := ParseReservationID(id); ok && n > max {
			max = n
		}
	}
	return max
}
