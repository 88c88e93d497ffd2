package rental

import (
	"context"
	"errors"
	"fmt"
)

// windowsConflict reports whether two booking windows collide. Daily ranges
// use the exclusive-end rule: a booking ending on day N does not conflict
// with one starting on day N. Slot ranges collide only on the same calendar
// day, with bufferMinutes of turnaround added after each slot's end.
func windowsConflict(kind BookingKind, a, b BookingWindow, bufferMinutes int) bool {
	if kind == KindSlot {
		if !a.StartDate.Equal(b.StartDate) {
			return false
		}
		aEnd := a.EndMinute + bufferMinutes
		bEnd := b.EndMinute + bufferMinutes
		return a.StartMinute < bEnd && b.StartMinute < aEnd
	}
	return a.StartDate.Before(b.EndDate) && b.StartDate.Before(a.EndDate)
}

// ensureAvailable is the availability guard: it loads the listing's blocking
// bookings under a row lock and fails with ErrBookingConflict if any of them
// overlaps the requested window. Must be called inside a transaction so the
// lock covers the caller's subsequent write.
func ensureAvailable(ctx context.Context, txStore Store, listing Listing, window BookingWindow, exclude *BookingID) error {
	blocking, err := txStore.ListBlockingBookingsForUpdate(ctx, listing.ID, exclude)
	if err != nil {
		return err
	}
	for _, existing := range blocking {
		if windowsConflict(listing.Kind, window, existing.Window, listing.SlotBufferMinutes) {
			return fmt.Errorf("%w: overlaps booking %s", ErrBookingConflict, existing.ID.String())
		}
	}
	return nil
}

// IsAvailable answers whether a window on a listing is free of blocking
// bookings. The check runs in its own transaction; a true answer can be
// stale by the time a booking is created, which is why Create and Confirm
// re-run the guard under their own locks.
func (service *BookingService) IsAvailable(ctx context.Context, listingID ListingID, window BookingWindow) (bool, error) {
	listing, err := service.listings.GetListing(ctx, listingID)
	if err != nil {
		return false, err
	}
	available := false
	err = service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
		guardErr := ensureAvailable(ctx, txStore, listing, window, nil)
		if guardErr == nil {
			available = true
			return nil
		}
		if errors.Is(guardErr, ErrBookingConflict) {
			return nil
		}
		return guardErr
	})
	return available, err
}
