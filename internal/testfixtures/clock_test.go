package testfixtures

import (
	"testing"
	"time"
)

func TestClockDefaultsToReferenceTime(t *testing.T) {
	clock := NewClock(time.Time{})
	if !clock.Now().Equal(ReferenceTime()) {
		t.Fatalf("expected ReferenceTime, got %v", clock.Now())
	}
}

func TestClockMovesWithinTheBookingDay(t *testing.T) {
	clock := NewClock(ReferenceTime())

	if got := clock.SetAt(12, 0); !got.Equal(ReferenceAt(12, 0)) {
		t.Fatalf("SetAt returned %v", got)
	}
	if got := clock.Advance(45 * time.Minute); !got.Equal(ReferenceAt(12, 45)) {
		t.Fatalf("Advance returned %v", got)
	}

	nowFn := clock.NowFunc()
	if got := nowFn(); !got.Equal(ReferenceAt(12, 45)) {
		t.Fatalf("NowFunc returned %v", got)
	}
	if got := clock.Tomorrow(9, 0); !got.Equal(ReferenceAt(9, 0).AddDate(0, 0, 1)) {
		t.Fatalf("Tomorrow returned %v", got)
	}
}

func TestClockAtFollowsLocation(t *testing.T) {
	jst := time.FixedZone("JST", 9*60*60)
	// 20:00 UTC on the 13th is already the 14th in Tokyo.
	clock := NewClock(time.Date(2024, time.March, 13, 20, 0, 0, 0, time.UTC))
	clock.In(jst)

	want := time.Date(2024, time.March, 14, 17, 30, 0, 0, jst)
	if got := clock.At(17, 30); !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestNilClockFallsBackToWallClock(t *testing.T) {
	var clock *Clock
	before := time.Now()
	if got := clock.NowFunc()(); got.Before(before) {
		t.Fatalf("expected wall clock time, got %v", got)
	}
}
