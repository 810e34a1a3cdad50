package clock

import (
	"testing"
	"time"
)

func TestFakeClockSteps(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	c := Fake(start, time.Second)

	if got := c.Now(); !got.Equal(start) {
		t.Fatalf("first Now = %v, want %v", got, start)
	}
	if got := c.Now(); !got.Equal(start.Add(time.Second)) {
		t.Fatalf("second Now = %v", got)
	}

	c.Advance(time.Minute)
	if got := c.Now(); !got.Equal(start.Add(2*time.Second + time.Minute)) {
		t.Fatalf("after Advance Now = %v", got)
	}
}

func TestFakeClockFrozen(t *testing.T) {
	start := time.Unix(0, 0).UTC()
	c := Fake(start, 0)
	if !c.Now().Equal(c.Now()) {
		t.Fatal("zero-step fake clock should not move")
	}
}

func TestRealClockIsUTC(t *testing.T) {
	if loc := Real().Now().Location(); loc != time.UTC {
		t.Fatalf("location = %v, want UTC", loc)
	}
}
