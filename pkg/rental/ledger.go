package rental

import (
	"context"
	"fmt"
)

// LedgerService posts immutable double-entry rows on capture, reverses them
// on refund, and answers balance queries.
type LedgerService struct {
	store    Store
	nowFn    func() int64
	currency string
	logger   OperationLogger
}

// NewLedgerService wires a LedgerService.
func NewLedgerService(store Store, now func() int64, options ...Option) (*LedgerService, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidServiceConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidServiceConfig)
	}
	resolved := resolveOptions(options)
	return &LedgerService{store: store, nowFn: now, currency: resolved.currency, logger: resolved.logger}, nil
}

// PostCapture records the capture of a payment as three entries:
// RENT_PAID (CREDIT, total), COMMISSION (DEBIT), HOST_PAYOUT_DUE (CREDIT,
// total minus commission). Idempotent: a POSTED RENT_PAID row keyed on the
// same payment intent and booking short-circuits to the existing triple.
func (service *LedgerService) PostCapture(ctx context.Context, paymentIntentID PaymentIntentID, bookingID BookingID, total AmountCents, rate CommissionRate) ([]LedgerEntry, error) {
	var entries []LedgerEntry
	operationError := service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
		booking, err := txStore.GetBookingForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		entries, err = postCaptureEntries(ctx, txStore, service.nowFn(), service.currency, paymentIntentID, booking, total, rate)
		return err
	})
	logOperation(ctx, service.logger, OperationLog{
		Operation:   operationPostCapture,
		BookingID:   bookingID,
		AmountCents: total,
		Error:       operationError,
	})
	if operationError != nil {
		return nil, operationError
	}
	return entries, nil
}

// PostRefund reverses the booking's capture triple. Each non-reversed
// original gets one opposite-direction REFUND entry of identical amount and
// is flipped to REVERSED with a back-link. Idempotent once all originals
// are reversed.
func (service *LedgerService) PostRefund(ctx context.Context, paymentIntentID PaymentIntentID, bookingID BookingID) ([]LedgerEntry, error) {
	var entries []LedgerEntry
	operationError := service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
		if _, err := txStore.GetBookingForUpdate(ctx, bookingID); err != nil {
			return err
		}
		var err error
		entries, err = postRefundEntries(ctx, txStore, service.nowFn(), service.currency, paymentIntentID, bookingID)
		return err
	})
	logOperation(ctx, service.logger, OperationLog{
		Operation: operationPostRefund,
		BookingID: bookingID,
		Error:     operationError,
	})
	if operationError != nil {
		return nil, operationError
	}
	return entries, nil
}

// HostBalance nets the host's payable earnings: POSTED HOST_PAYOUT_DUE
// credits minus POSTED HOST_PAYOUT debits. Reversed credits drop out of the
// sum, so a fully refunded booking contributes exactly zero.
func (service *LedgerService) HostBalance(ctx context.Context, hostID UserID) (HostBalance, error) {
	balance, err := hostBalanceCents(ctx, service.store, hostID)
	if err != nil {
		return HostBalance{}, err
	}
	return HostBalance{AmountCents: balance, Currency: service.currency}, nil
}

// EntriesForBooking lists the ledger rows posted for a booking's payment.
func (service *LedgerService) EntriesForBooking(ctx context.Context, paymentIntentID PaymentIntentID, bookingID BookingID) ([]LedgerEntry, error) {
	return service.store.ListEntriesForBooking(ctx, paymentIntentID, bookingID)
}

func hostBalanceCents(ctx context.Context, store Store, hostID UserID) (AmountCents, error) {
	credits, err := store.SumEntries(ctx, hostID, EntryHostPayoutDue, DirectionCredit, EntryPosted)
	if err != nil {
		return 0, err
	}
	debits, err := store.SumEntries(ctx, hostID, EntryHostPayout, DirectionDebit, EntryPosted)
	if err != nil {
		return 0, err
	}
	return NewAmountCents(credits - debits)
}

func captureTriple(entries []LedgerEntry) []LedgerEntry {
	triple := make([]LedgerEntry, 0, 3)
	for _, entry := range entries {
		if entry.Reason == ReasonCapture {
			triple = append(triple, entry)
		}
	}
	return triple
}

func postCaptureEntries(ctx context.Context, txStore Store, nowUnixUTC int64, currency string, paymentIntentID PaymentIntentID, booking Booking, total AmountCents, rate CommissionRate) ([]LedgerEntry, error) {
	existing, err := txStore.ListEntriesForBooking(ctx, paymentIntentID, booking.ID)
	if err != nil {
		return nil, err
	}
	for _, entry := range existing {
		if entry.Type == EntryRentPaid && entry.Status == EntryPosted {
			return captureTriple(existing), nil
		}
	}

	commission := rate.CommissionFor(total)
	hostDue, err := NewAmountCents(total.Int64() - commission.Int64())
	if err != nil {
		return nil, WrapError(operationPostCapture, "commission", "exceeds_total", err)
	}

	rows := []LedgerEntry{
		{Type: EntryRentPaid, Direction: DirectionCredit, AmountCents: total},
		{Type: EntryCommission, Direction: DirectionDebit, AmountCents: commission},
		{Type: EntryHostPayoutDue, Direction: DirectionCredit, AmountCents: hostDue},
	}
	entries := make([]LedgerEntry, 0, len(rows))
	for _, row := range rows {
		row.BookingID = booking.ID
		row.PaymentIntentID = paymentIntentID
		row.HostID = booking.HostID
		row.Currency = currency
		row.Status = EntryPosted
		row.Reason = ReasonCapture
		row.CreatedUnixUTC = nowUnixUTC
		if err := txStore.InsertLedgerEntry(ctx, &row); err != nil {
			return nil, err
		}
		entries = append(entries, row)
	}
	return entries, nil
}

func postRefundEntries(ctx context.Context, txStore Store, nowUnixUTC int64, currency string, paymentIntentID PaymentIntentID, bookingID BookingID) ([]LedgerEntry, error) {
	existing, err := txStore.ListEntriesForBooking(ctx, paymentIntentID, bookingID)
	if err != nil {
		return nil, err
	}
	originals := captureTriple(existing)
	if len(originals) == 0 {
		return nil, fmt.Errorf("%w: no capture entries to refund", ErrEntryNotFound)
	}

	allReversed := true
	for _, original := range originals {
		if original.Status != EntryReversed {
			allReversed = false
			break
		}
	}
	if allReversed {
		reversals := make([]LedgerEntry, 0, len(originals))
		for _, entry := range existing {
			if entry.Reason == ReasonRefundReversal {
				reversals = append(reversals, entry)
			}
		}
		return reversals, nil
	}

	reversals := make([]LedgerEntry, 0, len(originals))
	for _, original := range originals {
		if original.Status == EntryReversed {
			continue
		}
		originalID := original.ID
		reversal := LedgerEntry{
			BookingID:       bookingID,
			PaymentIntentID: paymentIntentID,
			HostID:          original.HostID,
			Type:            EntryRefund,
			Direction:       original.Direction.Opposite(),
			AmountCents:     original.AmountCents,
			Currency:        currency,
			Status:          EntryPosted,
			Reason:          ReasonRefundReversal,
			ReversalOf:      &originalID,
			CreatedUnixUTC:  nowUnixUTC,
		}
		if err := txStore.InsertLedgerEntry(ctx, &reversal); err != nil {
			return nil, err
		}
		if err := txStore.MarkEntryReversed(ctx, original.ID, reversal.ID); err != nil {
			return nil, err
		}
		reversals = append(reversals, reversal)
	}
	return reversals, nil
}
