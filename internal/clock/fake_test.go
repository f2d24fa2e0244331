package clock

import (
	"testing"
	"time"
)

func TestFakeAdvancesOnSleep(t *testing.T) {
	start := time.Unix(1000, 0)
	c := NewFake(start)
	c.Sleep(5 * time.Second)
	if !c.Now().Equal(start.Add(5 * time.Second)) {
		t.Fatalf("Now() = %v, want %v", c.Now(), start.Add(5*time.Second))
	}
}

func TestFakeAfterReturnsImmediately(t *testing.T) {
	c := NewFake(time.Unix(0, 0))
	select {
	case got := <-c.After(time.Hour):
		if !got.Equal(time.Unix(3600, 0)) {
			t.Fatalf("After() delivered %v, want %v", got, time.Unix(3600, 0))
		}
	default:
		t.Fatalf("expected After() channel to already have a value")
	}
}
