package service

import "time"

// SystemClock reads the wall clock at one-second resolution, the precision
// tokens carry their timestamps in.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}
