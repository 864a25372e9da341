package model

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePoolKind(t *testing.T) {
	tests := []struct {
		input string
		want  PoolKind
	}{
		{"Work", PoolWork},
		{"work", PoolWork},
		{" Trabajar ", PoolWork},
		{"REST", PoolRest},
		{"librar", PoolRest},
		{"overtime", PoolOvertime},
		{"Cobrar", PoolOvertime},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePoolKind(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParsePoolKind("holiday")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestDateSerial(t *testing.T) {
	assert.Equal(t, 0, NewDate(1899, time.December, 30).Serial())
	assert.Equal(t, 1, NewDate(1899, time.December, 31).Serial())
	assert.Equal(t, 45453, NewDate(2024, time.June, 10).Serial())
	assert.Equal(t, NewDate(2024, time.June, 10), DateFromSerial(45453))
}

func TestParseDate(t *testing.T) {
	june10 := NewDate(2024, time.June, 10)
	tests := []struct {
		input string
		want  Date
	}{
		{"10/06/2024", june10},
		{"10/6/2024", june10},
		{"10-06-24", june10},
		{"2024-06-10", june10},
		{"2024-06-10T09:00:00Z", june10},
		{"2024/6/10", june10},
		{"45453", june10},
		{"45453.375", june10},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "31/02/2024", "tomorrow", "2024-13-01", "10/06"} {
		t.Run("invalid "+bad, func(t *testing.T) {
			_, err := ParseDate(bad)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))
		})
	}
}

func TestDateFormatting(t *testing.T) {
	d := NewDate(2024, time.March, 5)
	assert.Equal(t, "05/03/2024", d.Display())
	assert.Equal(t, "2024-03-05", d.ISO())
	assert.Equal(t, -1, d.Compare(NewDate(2024, time.March, 6)))
	assert.Equal(t, 1, d.Compare(NewDate(2023, time.December, 31)))
	assert.Equal(t, 0, d.Compare(d))
}

func TestDateOfUsesLocation(t *testing.T) {
	madrid, err := time.LoadLocation("Europe/Madrid")
	require.NoError(t, err)

	// 23:30 UTC on the 9th is already the 10th in Madrid
	instant := time.Date(2024, time.June, 9, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, NewDate(2024, time.June, 10), DateOf(instant, madrid))
	assert.Equal(t, NewDate(2024, time.June, 9), DateOf(instant, time.UTC))
}

func TestReservationID(t *testing.T) {
	for n, want := range map[int64]string{1: "BH00000001", 12345: "BH00012345", MaxReservationNumber: "BH99999999"} {
		id, err := FormatReservationID(n)
		require.NoError(t, err)
		assert.Equal(t, want, id)
	}

	n, ok := ParseReservationID("BH00000042")
	require.True(t, ok)
	assert.Equal(t, int64(42), n)

	n, ok = ParseReservationID("bh00000007")
	require.True(t, ok)
	assert.Equal(t, int64(7), n)

	n, ok = ParseReservationID(" BH00000011\t")
	require.True(t, ok, "padding is ignored")
	assert.Equal(t, int64(11), n)

	for _, bad := range []string{"", "BH1", "BH000000001", "XX00000001", "BH0000000A", "BH 00000001"} {
		_, ok := ParseReservationID(bad)
		assert.False(t, ok, bad)
	}

	assert.Equal(t, int64(9), HighestReservationID([]string{"BH00000003", "junk", "BH00000009", "BH123", ""}))
	assert.Equal(t, int64(0), HighestReservationID(nil))
	assert.Equal(t, int64(12), HighestReservationID([]string{"BH00000003", " BH00000012 "}))
}

func TestFormatReservationID_OutOfRange(t *testing.T) {
	for _, n := range []int64{0, -1, MaxReservationNumber + 1} {
		id, err := FormatReservationID(n)
		assert.Empty(t, id)
		assert.True(t, errors.Is(err, ErrValidation), "%d", n)
	}
}

func TestDeriveKey(t *testing.T) {
	key := DeriveKey("Ventas", 45453, "09:00-10:00", "ana@example.com", PoolWork)
	assert.Equal(t, "Ventas4545309:00-10:00ana@example.comWork", key)
	assert.Equal(t, key, DeriveKey("Ventas", 45453, "09:00-10:00", "ana@example.com", PoolWork))

	variants := []string{
		DeriveKey("Soporte", 45453, "09:00-10:00", "ana@example.com", PoolWork),
		DeriveKey("Ventas", 45454, "09:00-10:00", "ana@example.com", PoolWork),
		DeriveKey("Ventas", 45453, "10:00-11:00", "ana@example.com", PoolWork),
		DeriveKey("Ventas", 45453, "09:00-10:00", "bob@example.com", PoolWork),
		DeriveKey("Ventas", 45453, "09:00-10:00", "ana@example.com", PoolRest),
	}
	for _, v := range variants {
		assert.NotEqual(t, key, v)
	}
}

func TestErrorTaxonomy(t *testing.T) {
	conflict := AvailabilityConflict([]string{"11:00-12:00"})
	assert.True(t, errors.Is(conflict, ErrAvailability))
	assert.False(t, errors.Is(conflict, ErrValidation))
	assert.Contains(t, conflict.Error(), "11:00-12:00")
	assert.Contains(t, UserMessage(conflict), "11:00-12:00")
	assert.False(t, IsRetryable(conflict))

	timeout := LockTimeoutError("reservation-id", 20*time.Second, errors.New("context deadline exceeded"))
	assert.True(t, errors.Is(timeout, ErrLockTimeout))
	assert.True(t, IsRetryable(timeout))
	assert.Contains(t, timeout.Error(), "reservation-id")

	wrapped := errors.Wrap(PolicyError("campaign not enabled"), "reserve")
	assert.True(t, errors.Is(wrapped, ErrPolicy))
	assert.Equal(t, "reserve: campaign not enabled", UserMessage(wrapped))

	assert.Equal(t, "", UserMessage(nil))
}

func TestParseInstant(t *testing.T) {
	madrid := time.FixedZone("CEST", 2*60*60)
	want := time.Date(2024, time.June, 10, 9, 0, 0, 0, madrid)

	for _, raw := range []string{
		"2024-06-10T09:00",
		" 2024-06-10 09:00 ",
		"2024-06-10T09:00:00",
		"10/06/2024 09:00",
		"2024-06-10T07:00:00Z",
		"2024-06-10T09:00:00+02:00",
	} {
		got, err := ParseInstant(raw, madrid)
		require.NoError(t, err, raw)
		assert.True(t, want.Equal(got), "%s parsed as %s", raw, got)
	}

	_, err := ParseInstant("tomorrow at nine", madrid)
	assert.True(t, errors.Is(err, ErrValidation))
}
