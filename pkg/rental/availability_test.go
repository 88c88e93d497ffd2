package rental

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDailyWindowsUseExclusiveEnd(test *testing.T) {
	test.Parallel()
	cases := []struct {
		name     string
		first    [2]int
		second   [2]int
		conflict bool
	}{
		{name: "identical ranges", first: [2]int{0, 3}, second: [2]int{0, 3}, conflict: true},
		{name: "partial overlap", first: [2]int{0, 3}, second: [2]int{2, 5}, conflict: true},
		{name: "contained range", first: [2]int{0, 5}, second: [2]int{1, 2}, conflict: true},
		{name: "back to back", first: [2]int{0, 3}, second: [2]int{3, 5}, conflict: false},
		{name: "disjoint", first: [2]int{0, 2}, second: [2]int{4, 6}, conflict: false},
	}
	for _, testCase := range cases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			first := mustDailyWindow(test, day(testCase.first[0]), day(testCase.first[1]))
			second := mustDailyWindow(test, day(testCase.second[0]), day(testCase.second[1]))
			if got := windowsConflict(KindDaily, first, second, 0); got != testCase.conflict {
				test.Fatalf("windowsConflict(%v, %v) = %v, want %v", testCase.first, testCase.second, got, testCase.conflict)
			}
			if got := windowsConflict(KindDaily, second, first, 0); got != testCase.conflict {
				test.Fatalf("windowsConflict is not symmetric for %s", testCase.name)
			}
		})
	}
}

func TestSlotWindowsReserveBuffer(test *testing.T) {
	test.Parallel()
	// Booked 10:00-11:00 with a 15 minute buffer blocks [10:00, 11:15).
	booked := mustSlotWindow(test, day(0), 600, 660)

	insideBuffer := mustSlotWindow(test, day(0), 660, 720)
	if !windowsConflict(KindSlot, booked, insideBuffer, 15) {
		test.Fatalf("11:00-12:00 should conflict with 10:00-11:00 plus 15m buffer")
	}
	afterBuffer := mustSlotWindow(test, day(0), 675, 735)
	if windowsConflict(KindSlot, booked, afterBuffer, 15) {
		test.Fatalf("11:15-12:15 should not conflict with 10:00-11:00 plus 15m buffer")
	}
	otherDay := mustSlotWindow(test, day(1), 600, 660)
	if windowsConflict(KindSlot, booked, otherDay, 15) {
		test.Fatalf("slots on different days never conflict")
	}
	// The buffer also applies to the candidate's own end.
	leadingSlot := mustSlotWindow(test, day(0), 540, 600)
	if !windowsConflict(KindSlot, booked, leadingSlot, 15) {
		test.Fatalf("9:00-10:00 plus buffer should conflict with a 10:00 start")
	}
}

func TestPendingBookingNeverBlocks(test *testing.T) {
	test.Parallel()
	wired := newFixture(test)
	ctx := context.Background()
	listingID := mustListingID(test, fixtureDailyListing)
	window := mustDailyWindow(test, day(2), day(5))

	if _, err := wired.bookings.Create(ctx, listingID, mustUserID(test, fixtureRenter), window); err != nil {
		test.Fatalf("first create: %v", err)
	}
	second, err := wired.bookings.Create(ctx, listingID, mustUserID(test, fixtureOtherRenter), window)
	if err != nil {
		test.Fatalf("pending booking must not block a competing request: %v", err)
	}
	if second.Status != BookingPending {
		test.Fatalf("expected pending, got %s", second.Status)
	}
}

func TestConfirmedBookingBlocksOverlap(test *testing.T) {
	test.Parallel()
	wired := newFixture(test)
	ctx := context.Background()
	listingID := mustListingID(test, fixtureDailyListing)

	first, err := wired.bookings.Create(ctx, listingID, mustUserID(test, fixtureRenter), mustDailyWindow(test, day(2), day(5)))
	if err != nil {
		test.Fatalf("create: %v", err)
	}
	if _, err := wired.bookings.Confirm(ctx, first.ID, mustUserID(test, fixtureHost)); err != nil {
		test.Fatalf("confirm: %v", err)
	}

	_, err = wired.bookings.Create(ctx, listingID, mustUserID(test, fixtureOtherRenter), mustDailyWindow(test, day(4), day(7)))
	if !errors.Is(err, ErrBookingConflict) {
		test.Fatalf("expected ErrBookingConflict, got %v", err)
	}

	// Exclusive end: checking out on day 5 leaves day 5 bookable.
	if _, err := wired.bookings.Create(ctx, listingID, mustUserID(test, fixtureOtherRenter), mustDailyWindow(test, day(5), day(7))); err != nil {
		test.Fatalf("back-to-back booking should be allowed: %v", err)
	}
}

func TestIsAvailableReportsWithoutReserving(test *testing.T) {
	test.Parallel()
	wired := newFixture(test)
	ctx := context.Background()
	listingID := mustListingID(test, fixtureDailyListing)
	window := mustDailyWindow(test, day(2), day(5))

	available, err := wired.bookings.IsAvailable(ctx, listingID, window)
	if err != nil {
		test.Fatalf("is available: %v", err)
	}
	if !available {
		test.Fatalf("empty calendar should be available")
	}

	booking, err := wired.bookings.Create(ctx, listingID, mustUserID(test, fixtureRenter), window)
	if err != nil {
		test.Fatalf("create: %v", err)
	}
	if _, err := wired.bookings.Confirm(ctx, booking.ID, mustUserID(test, fixtureHost)); err != nil {
		test.Fatalf("confirm: %v", err)
	}

	available, err = wired.bookings.IsAvailable(ctx, listingID, window)
	if err != nil {
		test.Fatalf("is available: %v", err)
	}
	if available {
		test.Fatalf("confirmed overlap should report unavailable")
	}
}

func TestSlotBookingConflictsThroughGuard(test *testing.T) {
	test.Parallel()
	wired := newFixture(test)
	ctx := context.Background()
	listingID := mustListingID(test, fixtureSlotListing)
	hostID := mustUserID(test, fixtureHost)

	booked, err := wired.bookings.Create(ctx, listingID, mustUserID(test, fixtureRenter), mustSlotWindow(test, day(3), 600, 660))
	if err != nil {
		test.Fatalf("create slot: %v", err)
	}
	if _, err := wired.bookings.Confirm(ctx, booked.ID, hostID); err != nil {
		test.Fatalf("confirm slot: %v", err)
	}

	_, err = wired.bookings.Create(ctx, listingID, mustUserID(test, fixtureOtherRenter), mustSlotWindow(test, day(3), 660, 720))
	if !errors.Is(err, ErrBookingConflict) {
		test.Fatalf("expected buffer conflict, got %v", err)
	}
	if _, err := wired.bookings.Create(ctx, listingID, mustUserID(test, fixtureOtherRenter), mustSlotWindow(test, day(3), 675, 735)); err != nil {
		test.Fatalf("slot after buffer should be bookable: %v", err)
	}
}

func TestWindowConstructorsValidate(test *testing.T) {
	test.Parallel()
	if _, err := NewDailyWindow(day(3), day(3)); !errors.Is(err, ErrInvalidBookingWindow) {
		test.Fatalf("zero-night window must be rejected, got %v", err)
	}
	if _, err := NewDailyWindow(day(3), day(1)); !errors.Is(err, ErrInvalidBookingWindow) {
		test.Fatalf("inverted window must be rejected, got %v", err)
	}
	if _, err := NewSlotWindow(day(0), 660, 600); !errors.Is(err, ErrInvalidBookingWindow) {
		test.Fatalf("inverted slot must be rejected, got %v", err)
	}
	if _, err := NewSlotWindow(day(0), -10, 60); !errors.Is(err, ErrInvalidBookingWindow) {
		test.Fatalf("negative start minute must be rejected, got %v", err)
	}
	if _, err := NewSlotWindow(day(0), 600, 24*60+1); !errors.Is(err, ErrInvalidBookingWindow) {
		test.Fatalf("slot past midnight must be rejected, got %v", err)
	}
	window, err := NewDailyWindow(time.Date(2026, time.March, 2, 15, 30, 0, 0, time.UTC), time.Date(2026, time.March, 4, 9, 0, 0, 0, time.UTC))
	if err != nil {
		test.Fatalf("daily window: %v", err)
	}
	if window.Nights() != 2 {
		test.Fatalf("expected dates truncated to 2 nights, got %d", window.Nights())
	}
}
