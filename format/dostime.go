package format

import (
	"errors"
	"time"
)

// ErrTimeOutOfRange is returned by TimeToDOSTime for timestamps that cannot
// be represented as a DOS date (before 1980 or after 2107).
var ErrTimeOutOfRange = errors.New("timestamp not representable as DOS date/time")

// DOSTimeToTime converts a packed 32-bit DOS timestamp (16-bit date in the
// high half, 16-bit time in the low half) into a time.Time.
// The resolution is 2s.
// See: https://learn.microsoft.com/en-us/windows/win32/api/winbase/nf-winbase-dosdatetimetofiletime
func DOSTimeToTime(packed uint32) time.Time {
	dosDate := uint16(packed >> 16)
	dosTime := uint16(packed)

	return time.Date(
		// date bits 0-4: day of month; 5-8: month; 9-15: years since 1980
		int(dosDate>>9+1980),
		time.Month(dosDate>>5&0xf),
		int(dosDate&0x1f),

		// time bits 0-4: second/2; 5-10: minute; 11-15: hour
		int(dosTime>>11),
		int(dosTime>>5&0x3f),
		int(dosTime&0x1f*2),
		0, // nanoseconds

		time.Local,
	)
}

// TimeToDOSTime converts t into a packed 32-bit DOS timestamp, truncating to
// the format's 2-second resolution.
func TimeToDOSTime(t time.Time) (uint32, error) {
	t = t.Local()
	year := t.Year()
	if year < 1980 || year > 2107 {
		return 0, ErrTimeOutOfRange
	}

	dosDate := uint16(year-1980)<<9 | uint16(t.Month())<<5 | uint16(t.Day())
	dosTime := uint16(t.Hour())<<11 | uint16(t.Minute())<<5 | uint16(t.Second()/2)

	return uint32(dosDate)<<16 | uint32(dosTime), nil
}
