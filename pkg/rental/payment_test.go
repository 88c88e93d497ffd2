package rental

import (
	"context"
	"errors"
	"testing"
)

func TestPaymentTransitionTable(test *testing.T) {
	test.Parallel()
	statuses := []PaymentStatus{PaymentCreated, PaymentAuthorized, PaymentCaptured, PaymentRefunded, PaymentCancelled}
	legal := map[PaymentStatus]map[PaymentStatus]bool{
		PaymentCreated:    {PaymentAuthorized: true},
		PaymentAuthorized: {PaymentCaptured: true, PaymentCancelled: true},
		PaymentCaptured:   {PaymentRefunded: true},
	}
	for _, from := range statuses {
		for _, to := range statuses {
			if got, want := canTransitionPayment(from, to), legal[from][to]; got != want {
				test.Fatalf("canTransitionPayment(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestAuthorizeRequiresRenter(test *testing.T) {
	test.Parallel()
	wired := newFixture(test)
	ctx := context.Background()

	booking, err := wired.bookings.Create(ctx, mustListingID(test, fixtureDailyListing), mustUserID(test, fixtureRenter), mustDailyWindow(test, day(2), day(5)))
	if err != nil {
		test.Fatalf("create: %v", err)
	}
	if _, err := wired.payments.Authorize(ctx, booking.ID, mustUserID(test, fixtureHost)); !errors.Is(err, ErrForbidden) {
		test.Fatalf("host authorizing: expected ErrForbidden, got %v", err)
	}

	intent, err := wired.payments.Authorize(ctx, booking.ID, mustUserID(test, fixtureRenter))
	if err != nil {
		test.Fatalf("authorize: %v", err)
	}
	if intent.Status != PaymentAuthorized {
		test.Fatalf("status = %s, want authorized", intent.Status)
	}
	if _, err := wired.payments.Authorize(ctx, booking.ID, mustUserID(test, fixtureRenter)); err != nil {
		test.Fatalf("repeat authorize should be a no-op: %v", err)
	}
}

func TestCaptureIsIdempotentOnLedger(test *testing.T) {
	test.Parallel()
	wired := newFixture(test)
	ctx := context.Background()
	renterID := mustUserID(test, fixtureRenter)

	booking := wired.paidBooking(test, fixtureRenter, day(2), day(5))

	intent, err := wired.payments.Capture(ctx, booking.ID, renterID)
	if err != nil {
		test.Fatalf("repeat capture should be a no-op: %v", err)
	}
	if intent.Status != PaymentCaptured {
		test.Fatalf("status = %s, want captured", intent.Status)
	}
	entries, err := wired.ledger.EntriesForBooking(ctx, intent.ID, booking.ID)
	if err != nil {
		test.Fatalf("entries: %v", err)
	}
	if len(entries) != 3 {
		test.Fatalf("capturing twice must not double-post, got %d entries", len(entries))
	}
}

func TestCaptureRejectsUnauthorizedIntent(test *testing.T) {
	test.Parallel()
	wired := newFixture(test)
	ctx := context.Background()
	renterID := mustUserID(test, fixtureRenter)

	booking, err := wired.bookings.Create(ctx, mustListingID(test, fixtureDailyListing), renterID, mustDailyWindow(test, day(2), day(5)))
	if err != nil {
		test.Fatalf("create: %v", err)
	}
	_, err = wired.payments.Capture(ctx, booking.ID, renterID)
	if !errors.Is(err, ErrInvalidTransition) {
		test.Fatalf("capturing a created intent: expected ErrInvalidTransition, got %v", err)
	}
	intent, err := wired.payments.GetByBooking(ctx, booking.ID)
	if err != nil {
		test.Fatalf("intent: %v", err)
	}
	entries, err := wired.ledger.EntriesForBooking(ctx, intent.ID, booking.ID)
	if err != nil {
		test.Fatalf("entries: %v", err)
	}
	if len(entries) != 0 {
		test.Fatalf("failed capture must not post, got %d entries", len(entries))
	}
}

func TestRefundReversesCapture(test *testing.T) {
	test.Parallel()
	wired := newFixture(test)
	ctx := context.Background()
	renterID := mustUserID(test, fixtureRenter)

	booking := wired.paidBooking(test, fixtureRenter, day(2), day(5))

	intent, err := wired.payments.Refund(ctx, booking.ID, renterID)
	if err != nil {
		test.Fatalf("refund: %v", err)
	}
	if intent.Status != PaymentRefunded {
		test.Fatalf("status = %s, want refunded", intent.Status)
	}

	entries, err := wired.ledger.EntriesForBooking(ctx, intent.ID, booking.ID)
	if err != nil {
		test.Fatalf("entries: %v", err)
	}
	if len(entries) != 6 {
		test.Fatalf("expected triple plus three reversals, got %d entries", len(entries))
	}

	again, err := wired.payments.Refund(ctx, booking.ID, renterID)
	if err != nil {
		test.Fatalf("repeat refund should be a no-op: %v", err)
	}
	if again.Status != PaymentRefunded {
		test.Fatalf("status = %s, want refunded", again.Status)
	}
	entries, err = wired.ledger.EntriesForBooking(ctx, intent.ID, booking.ID)
	if err != nil {
		test.Fatalf("entries: %v", err)
	}
	if len(entries) != 6 {
		test.Fatalf("repeat refund must not post extra reversals, got %d entries", len(entries))
	}
}

func TestRefundRejectedAfterPayoutSettles(test *testing.T) {
	test.Parallel()
	wired := newFixture(test)
	ctx := context.Background()
	hostID := mustUserID(test, fixtureHost)

	booking := wired.paidBooking(test, fixtureRenter, day(2), day(5))

	result, err := wired.payouts.CreatePayout(ctx, hostID, mustAmountCents(test, 27000), "bank_transfer", "ref-1", "")
	if err != nil {
		test.Fatalf("create payout: %v", err)
	}
	if _, err := wired.payouts.MarkPaid(ctx, result.Payout.ID, "bank_transfer", "wire-1"); err != nil {
		test.Fatalf("mark paid: %v", err)
	}

	_, err = wired.payments.Refund(ctx, booking.ID, mustUserID(test, fixtureRenter))
	if !errors.Is(err, ErrRefundAfterPayout) {
		test.Fatalf("expected ErrRefundAfterPayout, got %v", err)
	}

	intent, err := wired.payments.GetByBooking(ctx, booking.ID)
	if err != nil {
		test.Fatalf("intent: %v", err)
	}
	if intent.Status != PaymentCaptured {
		test.Fatalf("rejected refund must leave the intent captured, got %s", intent.Status)
	}
	entries, err := wired.ledger.EntriesForBooking(ctx, intent.ID, booking.ID)
	if err != nil {
		test.Fatalf("entries: %v", err)
	}
	for _, entry := range entries {
		if entry.Reason == ReasonRefundReversal {
			test.Fatalf("rejected refund must not post reversals")
		}
	}
}

func TestCancelOnlyVoidsAuthorized(test *testing.T) {
	test.Parallel()
	wired := newFixture(test)
	ctx := context.Background()
	renterID := mustUserID(test, fixtureRenter)

	booking, err := wired.bookings.Create(ctx, mustListingID(test, fixtureDailyListing), renterID, mustDailyWindow(test, day(2), day(5)))
	if err != nil {
		test.Fatalf("create: %v", err)
	}
	_, err = wired.payments.Cancel(ctx, booking.ID, renterID)
	if !errors.Is(err, ErrInvalidTransition) {
		test.Fatalf("cancelling a created intent: expected ErrInvalidTransition, got %v", err)
	}

	if _, err := wired.payments.Authorize(ctx, booking.ID, renterID); err != nil {
		test.Fatalf("authorize: %v", err)
	}
	intent, err := wired.payments.Cancel(ctx, booking.ID, renterID)
	if err != nil {
		test.Fatalf("cancel: %v", err)
	}
	if intent.Status != PaymentCancelled {
		test.Fatalf("status = %s, want cancelled", intent.Status)
	}
	if _, err := wired.payments.Cancel(ctx, booking.ID, renterID); err != nil {
		test.Fatalf("repeat cancel should be a no-op: %v", err)
	}
	_, err = wired.payments.Authorize(ctx, booking.ID, renterID)
	if !errors.Is(err, ErrInvalidTransition) {
		test.Fatalf("cancelled is terminal: expected ErrInvalidTransition, got %v", err)
	}
}

func TestPaymentActorChecks(test *testing.T) {
	test.Parallel()
	wired := newFixture(test)
	ctx := context.Background()
	strangerID := mustUserID(test, fixtureOtherRenter)

	booking := wired.paidBooking(test, fixtureRenter, day(2), day(5))

	if _, err := wired.payments.Capture(ctx, booking.ID, strangerID); !errors.Is(err, ErrForbidden) {
		test.Fatalf("stranger capturing: expected ErrForbidden, got %v", err)
	}
	if _, err := wired.payments.Refund(ctx, booking.ID, strangerID); !errors.Is(err, ErrForbidden) {
		test.Fatalf("stranger refunding: expected ErrForbidden, got %v", err)
	}
	if _, err := wired.payments.Cancel(ctx, booking.ID, strangerID); !errors.Is(err, ErrForbidden) {
		test.Fatalf("stranger cancelling: expected ErrForbidden, got %v", err)
	}
}
