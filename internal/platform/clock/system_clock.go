package clock

import "time"

// SystemClock reports UTC wall-clock time truncated to microseconds, the
// resolution of a timestamptz column, so joined/reviewed times read back from
// postgres compare equal to the values the services produced.
type SystemClock struct{}

func NewSystemClock() SystemClock { return SystemClock{} }

func (SystemClock) Now() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }
