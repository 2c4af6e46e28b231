package clock

import "time"

// Clock provides time to the application.
// Tests swap in a manual implementation to pin membership and review timestamps.
type Clock interface {
	Now() time.Time
}
