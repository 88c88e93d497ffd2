package rental

import (
	"context"
	"fmt"
	"time"
)

// BookingService owns the booking lifecycle
// (pending → confirmed → paid → completed, or → cancelled) and consults the
// availability guard before any transition that reserves inventory.
type BookingService struct {
	store          Store
	listings       ListingDirectory
	payments       *PaymentService
	nowFn          func() int64
	commissionRate CommissionRate
	currency       string
	logger         OperationLogger
}

// NewBookingService wires a BookingService. The commission rate is
// snapshotted onto each booking at creation and used for every later
// capture of that booking.
func NewBookingService(store Store, listings ListingDirectory, payments *PaymentService, now func() int64, commissionRate CommissionRate, options ...Option) (*BookingService, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidServiceConfig)
	}
	if listings == nil {
		return nil, fmt.Errorf("%w: listing directory dependency is nil", ErrInvalidServiceConfig)
	}
	if payments == nil {
		return nil, fmt.Errorf("%w: payment service dependency is nil", ErrInvalidServiceConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidServiceConfig)
	}
	resolved := resolveOptions(options)
	return &BookingService{
		store:          store,
		listings:       listings,
		payments:       payments,
		nowFn:          now,
		commissionRate: commissionRate,
		currency:       resolved.currency,
		logger:         resolved.logger,
	}, nil
}

// Get returns a booking by id.
func (service *BookingService) Get(ctx context.Context, id BookingID) (Booking, error) {
	return service.store.GetBooking(ctx, id)
}

// Create reserves nothing yet: the booking starts pending, which never
// blocks competing requests. The guard still runs so a renter cannot open
// a request against a range that is already exclusively held. The payment
// intent is created alongside in the same transaction.
func (service *BookingService) Create(ctx context.Context, listingID ListingID, renterID UserID, window BookingWindow) (Booking, error) {
	var booking Booking
	operationError := service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
		listing, err := service.listings.GetListing(ctx, listingID)
		if err != nil {
			return err
		}
		if !listing.IsActive {
			return fmt.Errorf("%w: %s", ErrListingInactive, listingID.String())
		}
		if err := validateWindowKind(listing.Kind, window); err != nil {
			return err
		}
		total, err := priceWindow(listing, window)
		if err != nil {
			return err
		}
		if err := ensureAvailable(ctx, txStore, listing, window, nil); err != nil {
			return err
		}

		booking = Booking{
			ListingID:      listingID,
			RenterID:       renterID,
			HostID:         listing.HostID,
			Kind:           listing.Kind,
			Window:         window,
			TotalCents:     total,
			CommissionRate: service.commissionRate,
			Status:         BookingPending,
			Dispute:        DisputeNone,
			CreatedUnixUTC: service.nowFn(),
		}
		if err := txStore.CreateBooking(ctx, &booking); err != nil {
			return err
		}
		intent := PaymentIntent{
			BookingID:      booking.ID,
			RenterID:       renterID,
			HostID:         listing.HostID,
			AmountCents:    total,
			Currency:       service.currency,
			Status:         PaymentCreated,
			CreatedUnixUTC: booking.CreatedUnixUTC,
		}
		return txStore.CreatePaymentIntent(ctx, &intent)
	})
	logOperation(ctx, service.logger, OperationLog{
		Operation:   operationCreateBooking,
		Actor:       renterID,
		BookingID:   booking.ID,
		AmountCents: booking.TotalCents,
		Error:       operationError,
	})
	if operationError != nil {
		return Booking{}, operationError
	}
	return booking, nil
}

// Confirm converts a pending booking into an exclusive hold. Host only.
// The guard re-runs under lock because a competing booking may have been
// confirmed while this one sat pending; a failure here is a conflict, not a
// bad request. Idempotent on an already-confirmed booking.
func (service *BookingService) Confirm(ctx context.Context, bookingID BookingID, actorID UserID) (Booking, error) {
	var booking Booking
	operationError := service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
		var err error
		booking, err = txStore.GetBookingForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if actorID != booking.HostID {
			return fmt.Errorf("%w: only the host may confirm", ErrForbidden)
		}
		if booking.Status == BookingConfirmed {
			return nil
		}
		if booking.Status != BookingPending {
			return newTransitionError("booking", booking.Status, "confirm")
		}
		listing, err := service.listings.GetListing(ctx, booking.ListingID)
		if err != nil {
			return err
		}
		excludeID := booking.ID
		if err := ensureAvailable(ctx, txStore, listing, booking.Window, &excludeID); err != nil {
			return err
		}
		if err := txStore.UpdateBookingStatus(ctx, booking.ID, BookingPending, BookingConfirmed); err != nil {
			return err
		}
		booking.Status = BookingConfirmed
		return nil
	})
	logOperation(ctx, service.logger, OperationLog{
		Operation: operationConfirmBooking,
		Actor:     actorID,
		BookingID: bookingID,
		Error:     operationError,
	})
	if operationError != nil {
		return Booking{}, operationError
	}
	return booking, nil
}

// Pay settles a confirmed booking. Renter only. The payment intent must be
// authorized (or already captured); capture and the ledger triple post in
// the same transaction that marks the booking paid. Idempotent on an
// already-paid booking.
func (service *BookingService) Pay(ctx context.Context, bookingID BookingID, actorID UserID) (Booking, error) {
	var booking Booking
	operationError := service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
		var err error
		booking, err = txStore.GetBookingForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if actorID != booking.RenterID {
			return fmt.Errorf("%w: only the renter may pay", ErrForbidden)
		}
		if booking.Status == BookingPaid {
			return nil
		}
		if booking.Status != BookingConfirmed {
			return newTransitionError("booking", booking.Status, "pay")
		}
		intent, err := txStore.GetPaymentIntentByBookingForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if intent.Status != PaymentCaptured {
			if err := service.payments.captureLocked(ctx, txStore, &intent, booking); err != nil {
				return err
			}
		}
		if err := txStore.UpdateBookingStatus(ctx, booking.ID, BookingConfirmed, BookingPaid); err != nil {
			return err
		}
		booking.Status = BookingPaid
		return nil
	})
	logOperation(ctx, service.logger, OperationLog{
		Operation:   operationPayBooking,
		Actor:       actorID,
		BookingID:   bookingID,
		AmountCents: booking.TotalCents,
		Error:       operationError,
	})
	if operationError != nil {
		return Booking{}, operationError
	}
	return booking, nil
}

// Cancel asks the policy engine whether the actor may cancel and what
// refund is owed, then mutates booking and payment state accordingly.
// Forbidden for strangers, denied by policy after the stay has started
// (renter side), idempotent on an already-cancelled booking.
func (service *BookingService) Cancel(ctx context.Context, bookingID BookingID, actorID UserID) (Booking, CancellationDecision, error) {
	var booking Booking
	var decision CancellationDecision
	operationError := service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
		var err error
		booking, err = txStore.GetBookingForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		actor, err := cancellationActorFor(booking, actorID)
		if err != nil {
			return err
		}
		intent, err := txStore.GetPaymentIntentByBookingForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		now := time.Unix(service.nowFn(), 0).UTC()
		decision = EvaluateCancellation(actor, booking.Status, intent.Status, booking.Window.StartsAt(), booking.TotalCents, now)
		if booking.Status == BookingCancelled {
			return nil
		}
		if !decision.AllowCancel {
			return fmt.Errorf("%w: %s", ErrPolicyDenied, decision.Reason)
		}
		if decision.RefundCents.Int64() > 0 && intent.Status == PaymentCaptured {
			if err := service.payments.refundLocked(ctx, txStore, &intent); err != nil {
				return err
			}
		} else if intent.Status == PaymentAuthorized {
			if err := service.payments.cancelLocked(ctx, txStore, &intent); err != nil {
				return err
			}
		}
		if err := txStore.UpdateBookingStatus(ctx, booking.ID, booking.Status, BookingCancelled); err != nil {
			return err
		}
		booking.Status = BookingCancelled
		return nil
	})
	logOperation(ctx, service.logger, OperationLog{
		Operation:   operationCancelBooking,
		Actor:       actorID,
		BookingID:   bookingID,
		AmountCents: decision.RefundCents,
		Error:       operationError,
	})
	if operationError != nil {
		return Booking{}, CancellationDecision{}, operationError
	}
	return booking, decision, nil
}

// Complete closes out a paid booking once the stay has ended. Host only.
// Idempotent on an already-completed booking.
func (service *BookingService) Complete(ctx context.Context, bookingID BookingID, actorID UserID) (Booking, error) {
	var booking Booking
	operationError := service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
		var err error
		booking, err = txStore.GetBookingForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if actorID != booking.HostID {
			return fmt.Errorf("%w: only the host may complete", ErrForbidden)
		}
		if booking.Status == BookingCompleted {
			return nil
		}
		if booking.Status != BookingPaid {
			return newTransitionError("booking", booking.Status, "complete")
		}
		now := time.Unix(service.nowFn(), 0).UTC()
		if now.Before(booking.Window.EndsAt()) {
			return newTransitionError("booking", booking.Status, "complete before stay end")
		}
		if err := txStore.UpdateBookingStatus(ctx, booking.ID, BookingPaid, BookingCompleted); err != nil {
			return err
		}
		booking.Status = BookingCompleted
		return nil
	})
	logOperation(ctx, service.logger, OperationLog{
		Operation: operationCompleteBooking,
		Actor:     actorID,
		BookingID: bookingID,
		Error:     operationError,
	})
	if operationError != nil {
		return Booking{}, operationError
	}
	return booking, nil
}

// OpenDispute flags a booking so its HOST_PAYOUT_DUE credit drops out of
// payout eligibility immediately. Already-created payouts are untouched.
// Idempotent on an already-open dispute.
func (service *BookingService) OpenDispute(ctx context.Context, bookingID BookingID) (Booking, error) {
	var booking Booking
	operationError := service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
		var err error
		booking, err = txStore.GetBookingForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if booking.Dispute == DisputeOpen {
			return nil
		}
		if err := txStore.UpdateBookingDispute(ctx, booking.ID, booking.Dispute, DisputeOpen); err != nil {
			return err
		}
		booking.Dispute = DisputeOpen
		return nil
	})
	logOperation(ctx, service.logger, OperationLog{
		Operation: operationOpenDispute,
		BookingID: bookingID,
		Error:     operationError,
	})
	if operationError != nil {
		return Booking{}, operationError
	}
	return booking, nil
}

// ResolveDispute lifts the payout freeze. Idempotent on an
// already-resolved dispute.
func (service *BookingService) ResolveDispute(ctx context.Context, bookingID BookingID) (Booking, error) {
	var booking Booking
	operationError := service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
		var err error
		booking, err = txStore.GetBookingForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if booking.Dispute == DisputeResolved {
			return nil
		}
		if booking.Dispute != DisputeOpen {
			return newTransitionError("booking dispute", booking.Dispute, "resolve")
		}
		if err := txStore.UpdateBookingDispute(ctx, booking.ID, DisputeOpen, DisputeResolved); err != nil {
			return err
		}
		booking.Dispute = DisputeResolved
		return nil
	})
	logOperation(ctx, service.logger, OperationLog{
		Operation: operationResolveDispute,
		BookingID: bookingID,
		Error:     operationError,
	})
	if operationError != nil {
		return Booking{}, operationError
	}
	return booking, nil
}

func cancellationActorFor(booking Booking, actorID UserID) (CancellationActor, error) {
	switch actorID {
	case booking.RenterID:
		return ActorRenter, nil
	case booking.HostID:
		return ActorHost, nil
	}
	return "", fmt.Errorf("%w: actor is neither renter nor host", ErrForbidden)
}

func validateWindowKind(kind BookingKind, window BookingWindow) error {
	if kind == KindSlot {
		if window.EndMinute <= window.StartMinute {
			return fmt.Errorf("%w: slot listing requires a slot window", ErrInvalidBookingWindow)
		}
		return nil
	}
	if window.EndMinute != 0 || window.StartMinute != 0 {
		return fmt.Errorf("%w: daily listing requires a whole-day window", ErrInvalidBookingWindow)
	}
	if !window.EndDate.After(window.StartDate) {
		return fmt.Errorf("%w: end date must be after start date", ErrInvalidBookingWindow)
	}
	return nil
}

func priceWindow(listing Listing, window BookingWindow) (AmountCents, error) {
	if listing.Kind == KindSlot {
		return NewPositiveAmountCents(listing.PricePerSlotCents.Int64())
	}
	return NewPositiveAmountCents(listing.PricePerDayCents.Int64() * window.Nights())
}
