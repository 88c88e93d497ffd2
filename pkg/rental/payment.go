package rental

import (
	"context"
	"fmt"
)

// paymentTransitions is the only source of legal payment intent edges.
// refunded and cancelled are terminal.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentCreated:    {PaymentAuthorized},
	PaymentAuthorized: {PaymentCaptured, PaymentCancelled},
	PaymentCaptured:   {PaymentRefunded},
}

func canTransitionPayment(from, to PaymentStatus) bool {
	for _, allowed := range paymentTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// PaymentService owns the payment intent lifecycle. Capture and refund post
// to the ledger inside the same transaction that moves the intent, so a
// failure midway rolls back both.
type PaymentService struct {
	store    Store
	nowFn    func() int64
	currency string
	logger   OperationLogger
}

// NewPaymentService wires a PaymentService.
func NewPaymentService(store Store, now func() int64, options ...Option) (*PaymentService, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidServiceConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidServiceConfig)
	}
	resolved := resolveOptions(options)
	return &PaymentService{store: store, nowFn: now, currency: resolved.currency, logger: resolved.logger}, nil
}

// GetByBooking returns the payment intent tied to a booking.
func (service *PaymentService) GetByBooking(ctx context.Context, bookingID BookingID) (PaymentIntent, error) {
	return service.store.GetPaymentIntentByBooking(ctx, bookingID)
}

// Authorize moves the intent from created to authorized. Only the booking's
// renter may authorize. Idempotent on an already-authorized intent.
func (service *PaymentService) Authorize(ctx context.Context, bookingID BookingID, actorID UserID) (PaymentIntent, error) {
	var intent PaymentIntent
	operationError := service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
		var err error
		intent, err = txStore.GetPaymentIntentByBookingForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if actorID != intent.RenterID {
			return fmt.Errorf("%w: only the renter may authorize payment", ErrForbidden)
		}
		if intent.Status == PaymentAuthorized {
			return nil
		}
		if !canTransitionPayment(intent.Status, PaymentAuthorized) {
			return newTransitionError("payment intent", intent.Status, "authorize")
		}
		if err := txStore.UpdatePaymentIntentStatus(ctx, intent.ID, intent.Status, PaymentAuthorized); err != nil {
			return err
		}
		intent.Status = PaymentAuthorized
		return nil
	})
	logOperation(ctx, service.logger, OperationLog{
		Operation:   operationAuthorizePayment,
		Actor:       actorID,
		BookingID:   bookingID,
		AmountCents: intent.AmountCents,
		Error:       operationError,
	})
	if operationError != nil {
		return PaymentIntent{}, operationError
	}
	return intent, nil
}

// Capture settles an authorized intent and posts the capture triple to the
// ledger using the booking's commission snapshot. The gateway's capture leg
// is simulated; the state transition and ledger posting are the contract.
// Idempotent on an already-captured intent.
func (service *PaymentService) Capture(ctx context.Context, bookingID BookingID, actorID UserID) (PaymentIntent, error) {
	var intent PaymentIntent
	operationError := service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
		// Lock order: booking row before intent row, matching the booking
		// service flows.
		booking, err := txStore.GetBookingForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		intent, err = txStore.GetPaymentIntentByBookingForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if actorID != intent.RenterID && actorID != intent.HostID {
			return fmt.Errorf("%w: only the renter or host may capture payment", ErrForbidden)
		}
		if intent.Status == PaymentCaptured {
			return nil
		}
		return service.captureLocked(ctx, txStore, &intent, booking)
	})
	logOperation(ctx, service.logger, OperationLog{
		Operation:   operationCapturePayment,
		Actor:       actorID,
		BookingID:   bookingID,
		AmountCents: intent.AmountCents,
		Error:       operationError,
	})
	if operationError != nil {
		return PaymentIntent{}, operationError
	}
	return intent, nil
}

// Refund reverses a captured intent and its ledger triple. Rejected outright
// with ErrRefundAfterPayout once a HOST_PAYOUT entry exists for the booking:
// from that point refunds are a manual reconciliation event. Idempotent on
// an already-refunded intent.
func (service *PaymentService) Refund(ctx context.Context, bookingID BookingID, actorID UserID) (PaymentIntent, error) {
	var intent PaymentIntent
	operationError := service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
		if _, err := txStore.GetBookingForUpdate(ctx, bookingID); err != nil {
			return err
		}
		var err error
		intent, err = txStore.GetPaymentIntentByBookingForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if actorID != intent.RenterID && actorID != intent.HostID {
			return fmt.Errorf("%w: only the renter or host may refund payment", ErrForbidden)
		}
		if intent.Status == PaymentRefunded {
			return nil
		}
		return service.refundLocked(ctx, txStore, &intent)
	})
	logOperation(ctx, service.logger, OperationLog{
		Operation:   operationRefundPayment,
		Actor:       actorID,
		BookingID:   bookingID,
		AmountCents: intent.AmountCents,
		Error:       operationError,
	})
	if operationError != nil {
		return PaymentIntent{}, operationError
	}
	return intent, nil
}

// Cancel voids an authorized intent. A created intent has no authorization
// to void and a captured one must go through refund, so both are illegal
// edges. Idempotent on an already-cancelled intent.
func (service *PaymentService) Cancel(ctx context.Context, bookingID BookingID, actorID UserID) (PaymentIntent, error) {
	var intent PaymentIntent
	operationError := service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
		var err error
		intent, err = txStore.GetPaymentIntentByBookingForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if actorID != intent.RenterID && actorID != intent.HostID {
			return fmt.Errorf("%w: only the renter or host may cancel payment", ErrForbidden)
		}
		if intent.Status == PaymentCancelled {
			return nil
		}
		return service.cancelLocked(ctx, txStore, &intent)
	})
	logOperation(ctx, service.logger, OperationLog{
		Operation:   operationCancelPayment,
		Actor:       actorID,
		BookingID:   bookingID,
		AmountCents: intent.AmountCents,
		Error:       operationError,
	})
	if operationError != nil {
		return PaymentIntent{}, operationError
	}
	return intent, nil
}

// captureLocked transitions an authorized intent to captured and posts the
// ledger triple. Caller holds the intent and booking row locks.
func (service *PaymentService) captureLocked(ctx context.Context, txStore Store, intent *PaymentIntent, booking Booking) error {
	if !canTransitionPayment(intent.Status, PaymentCaptured) {
		return newTransitionError("payment intent", intent.Status, "capture")
	}
	if err := txStore.UpdatePaymentIntentStatus(ctx, intent.ID, intent.Status, PaymentCaptured); err != nil {
		return err
	}
	intent.Status = PaymentCaptured
	_, err := postCaptureEntries(ctx, txStore, service.nowFn(), service.currency, intent.ID, booking, intent.AmountCents, booking.CommissionRate)
	return err
}

// refundLocked transitions a captured intent to refunded and reverses the
// ledger triple, after the payout guardrail check. Caller holds the intent
// row lock.
func (service *PaymentService) refundLocked(ctx context.Context, txStore Store, intent *PaymentIntent) error {
	paidOut, err := txStore.HasPayoutDebit(ctx, intent.BookingID)
	if err != nil {
		return err
	}
	if paidOut {
		return ErrRefundAfterPayout
	}
	if !canTransitionPayment(intent.Status, PaymentRefunded) {
		return newTransitionError("payment intent", intent.Status, "refund")
	}
	if err := txStore.UpdatePaymentIntentStatus(ctx, intent.ID, intent.Status, PaymentRefunded); err != nil {
		return err
	}
	intent.Status = PaymentRefunded
	_, err = postRefundEntries(ctx, txStore, service.nowFn(), service.currency, intent.ID, intent.BookingID)
	return err
}

// cancelLocked voids an authorized intent. Caller holds the intent row lock.
func (service *PaymentService) cancelLocked(ctx context.Context, txStore Store, intent *PaymentIntent) error {
	if !canTransitionPayment(intent.Status, PaymentCancelled) {
		return newTransitionError("payment intent", intent.Status, "cancel")
	}
	if err := txStore.UpdatePaymentIntentStatus(ctx, intent.ID, intent.Status, PaymentCancelled); err != nil {
		return err
	}
	intent.Status = PaymentCancelled
	return nil
}
