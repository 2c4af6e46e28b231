package clock

import (
	"testing"
	"time"
)

func TestSystemClock_NowIsUTCMicroseconds(t *testing.T) {
	now := NewSystemClock().Now()
	if now.Location() != time.UTC {
		t.Fatalf("location=%v", now.Location())
	}
	if now.Nanosecond()%1000 != 0 {
		t.Fatalf("not truncated to microseconds: %v", now)
	}
}
