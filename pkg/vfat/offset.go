package vfat

import "time"

// CurrentUTCOffsetMinutes returns the local UTC offset in minutes.
// Hosts without zone data report zero.
func CurrentUTCOffsetMinutes() int {
	return utcOffsetMinutes(time.Now())
}

// utcOffsetMinutes truncates toward zero, so -30s is 0 and +5:30 is 330
func utcOffsetMinutes(t time.Time) int {
	_, secs := t.Zone()
	return secs / 60
}
