package rental

import "context"

// Store is the persistence contract shared by all services. Every
// read-decide-write span runs inside WithTx so the *ForUpdate reads hold
// row locks across the whole decision.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error

	CreateBooking(ctx context.Context, booking *Booking) error
	GetBooking(ctx context.Context, id BookingID) (Booking, error)
	GetBookingForUpdate(ctx context.Context, id BookingID) (Booking, error)
	// ListBlockingBookingsForUpdate returns the listing's bookings in a
	// blocking status, locked, optionally excluding one booking id.
	ListBlockingBookingsForUpdate(ctx context.Context, listingID ListingID, exclude *BookingID) ([]Booking, error)
	UpdateBookingStatus(ctx context.Context, id BookingID, from, to BookingStatus) error
	UpdateBookingDispute(ctx context.Context, id BookingID, from, to DisputeStatus) error

	CreatePaymentIntent(ctx context.Context, intent *PaymentIntent) error
	GetPaymentIntentByBooking(ctx context.Context, bookingID BookingID) (PaymentIntent, error)
	GetPaymentIntentByBookingForUpdate(ctx context.Context, bookingID BookingID) (PaymentIntent, error)
	UpdatePaymentIntentStatus(ctx context.Context, id PaymentIntentID, from, to PaymentStatus) error

	InsertLedgerEntry(ctx context.Context, entry *LedgerEntry) error
	GetLedgerEntry(ctx context.Context, id EntryID) (LedgerEntry, error)
	ListEntriesForBooking(ctx context.Context, paymentIntentID PaymentIntentID, bookingID BookingID) ([]LedgerEntry, error)
	MarkEntryReversed(ctx context.Context, id EntryID, reversedBy EntryID) error
	SumEntries(ctx context.Context, hostID UserID, entryType EntryType, direction EntryDirection, status EntryStatus) (int64, error)
	// ListEligiblePayoutCreditsForUpdate returns POSTED HOST_PAYOUT_DUE
	// credits not yet consumed by a payout item and whose booking has no
	// open dispute, oldest first, locked.
	ListEligiblePayoutCreditsForUpdate(ctx context.Context, hostID UserID) ([]LedgerEntry, error)
	HasPayoutDebit(ctx context.Context, bookingID BookingID) (bool, error)

	CreatePayout(ctx context.Context, payout *Payout, items []PayoutItem) error
	GetPayout(ctx context.Context, id PayoutID) (Payout, error)
	GetPayoutForUpdate(ctx context.Context, id PayoutID) (Payout, error)
	ListPayoutItems(ctx context.Context, payoutID PayoutID) ([]PayoutItem, error)
	MarkPayoutPaid(ctx context.Context, id PayoutID, method, reference string, paidAtUnixUTC int64) error
}
