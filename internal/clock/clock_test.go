package clock_test

import (
	"testing"
	"time"

	"captionsync/internal/clock"
)

func TestFakeAdvance(t *testing.T) {
	start := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	c := clock.NewFake(start)
	c.Advance(90 * time.Second)
	if got := c.Now(); !got.Equal(start.Add(90 * time.Second)) {
		t.Fatalf("unexpected time %v", got)
	}
	var zero clock.Fake
	if !zero.Now().Equal(time.Unix(0, 0)) {
		t.Fatalf("zero fake should start at epoch, got %v", zero.Now())
	}
}

func TestSystemIsRecent(t *testing.T) {
	var c clock.Clock = clock.System{}
	if time.Since(c.Now()) > time.Minute {
		t.Fatal("system clock is stale")
	}
}
