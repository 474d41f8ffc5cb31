package tracker

import (
	"testing"
	"time"
)

func TestTrackerOpenAndClose(t *testing.T) {
	tr := New(20 * time.Minute)

	if tr.IsOpen("s1") {
		t.Fatal("unknown session should not be open")
	}

	tr.Open("s1", "p1", time.Now())
	if !tr.IsOpen("s1") {
		t.Fatal("session should be open after Open")
	}
	if tr.Len() != 1 {
		t.Fatalf("expected 1 open session, got %d", tr.Len())
	}

	tr.Close("s1")
	if tr.IsOpen("s1") {
		t.Fatal("session should not be open after Close")
	}

	// Close is idempotent
	tr.Close("s1")
}

func TestTrackerTouch(t *testing.T) {
	tr := New(20 * time.Minute)
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	now := started

	tr.SetClock(func() time.Time { return now })
	tr.Open("s1", "p1", started)

	now = started.Add(5 * time.Minute)
	tr.Touch("s1")

	entry := tr.Get("s1")
	if entry == nil {
		t.Fatal("expected entry")
	}
	if !entry.LastActivity.Equal(now) {
		t.Fatalf("expected last activity %v, got %v", now, entry.LastActivity)
	}

	// Touching an unknown session is a no-op
	tr.Touch("s2")
}

func TestTrackerExpired(t *testing.T) {
	tr := New(20 * time.Minute)
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	now := started

	tr.SetClock(func() time.Time { return now })
	tr.Open("s1", "p1", started)

	if tr.Expired("s1") {
		t.Fatal("fresh session should not be expired")
	}

	now = started.Add(20*time.Minute - time.Second)
	if tr.Expired("s1") {
		t.Fatal("session under the limit should not be expired")
	}

	now = started.Add(20 * time.Minute)
	if !tr.Expired("s1") {
		t.Fatal("session at the limit should be expired")
	}

	if tr.Expired("unknown") {
		t.Fatal("unknown sessions are not expired, they are not found")
	}
}

func TestTrackerReset(t *testing.T) {
	tr := New(20 * time.Minute)
	tr.Open("s1", "p1", time.Now())
	tr.Open("s2", "p2", time.Now())

	tr.Reset()
	if tr.Len() != 0 {
		t.Fatalf("expected empty tracker after reset, got %d", tr.Len())
	}
}
