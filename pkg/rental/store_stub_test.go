package rental

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"
)

// stubStore is an in-memory Store for service tests. Single-threaded; the
// locking contract is exercised against a real database in the gorm store
// tests.
type stubStore struct {
	sequence         int
	bookings         map[BookingID]*Booking
	intents          map[PaymentIntentID]*PaymentIntent
	intentsByBooking map[BookingID]PaymentIntentID
	entries          []*LedgerEntry
	payouts          map[PayoutID]*Payout
	payoutItems      []PayoutItem
}

func newStubStore() *stubStore {
	return &stubStore{
		bookings:         make(map[BookingID]*Booking),
		intents:          make(map[PaymentIntentID]*PaymentIntent),
		intentsByBooking: make(map[BookingID]PaymentIntentID),
		payouts:          make(map[PayoutID]*Payout),
	}
}

func (store *stubStore) nextID(prefix string) string {
	store.sequence++
	return fmt.Sprintf("%s-%d", prefix, store.sequence)
}

func (store *stubStore) WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error {
	return fn(ctx, store)
}

func (store *stubStore) CreateBooking(ctx context.Context, booking *Booking) error {
	if booking.ID.IsZero() {
		id, err := NewBookingID(store.nextID("bkg"))
		if err != nil {
			return err
		}
		booking.ID = id
	}
	stored := *booking
	store.bookings[booking.ID] = &stored
	return nil
}

func (store *stubStore) GetBooking(ctx context.Context, id BookingID) (Booking, error) {
	booking, ok := store.bookings[id]
	if !ok {
		return Booking{}, ErrBookingNotFound
	}
	return *booking, nil
}

func (store *stubStore) GetBookingForUpdate(ctx context.Context, id BookingID) (Booking, error) {
	return store.GetBooking(ctx, id)
}

func (store *stubStore) ListBlockingBookingsForUpdate(ctx context.Context, listingID ListingID, exclude *BookingID) ([]Booking, error) {
	var result []Booking
	for _, booking := range store.bookings {
		if booking.ListingID != listingID {
			continue
		}
		if exclude != nil && booking.ID == *exclude {
			continue
		}
		for _, status := range BlockingBookingStatuses {
			if booking.Status == status {
				result = append(result, *booking)
				break
			}
		}
	}
	return result, nil
}

func (store *stubStore) UpdateBookingStatus(ctx context.Context, id BookingID, from, to BookingStatus) error {
	booking, ok := store.bookings[id]
	if !ok {
		return ErrBookingNotFound
	}
	if booking.Status != from {
		return ErrStaleState
	}
	booking.Status = to
	return nil
}

func (store *stubStore) UpdateBookingDispute(ctx context.Context, id BookingID, from, to DisputeStatus) error {
	booking, ok := store.bookings[id]
	if !ok {
		return ErrBookingNotFound
	}
	if booking.Dispute != from {
		return ErrStaleState
	}
	booking.Dispute = to
	return nil
}

func (store *stubStore) CreatePaymentIntent(ctx context.Context, intent *PaymentIntent) error {
	if intent.ID.IsZero() {
		id, err := NewPaymentIntentID(store.nextID("pi"))
		if err != nil {
			return err
		}
		intent.ID = id
	}
	stored := *intent
	store.intents[intent.ID] = &stored
	store.intentsByBooking[intent.BookingID] = intent.ID
	return nil
}

func (store *stubStore) GetPaymentIntentByBooking(ctx context.Context, bookingID BookingID) (PaymentIntent, error) {
	intentID, ok := store.intentsByBooking[bookingID]
	if !ok {
		return PaymentIntent{}, ErrPaymentIntentNotFound
	}
	return *store.intents[intentID], nil
}

func (store *stubStore) GetPaymentIntentByBookingForUpdate(ctx context.Context, bookingID BookingID) (PaymentIntent, error) {
	return store.GetPaymentIntentByBooking(ctx, bookingID)
}

func (store *stubStore) UpdatePaymentIntentStatus(ctx context.Context, id PaymentIntentID, from, to PaymentStatus) error {
	intent, ok := store.intents[id]
	if !ok {
		return ErrPaymentIntentNotFound
	}
	if intent.Status != from {
		return ErrStaleState
	}
	intent.Status = to
	return nil
}

func (store *stubStore) InsertLedgerEntry(ctx context.Context, entry *LedgerEntry) error {
	if entry.ID.IsZero() {
		id, err := NewEntryID(store.nextID("ent"))
		if err != nil {
			return err
		}
		entry.ID = id
	}
	stored := *entry
	store.entries = append(store.entries, &stored)
	return nil
}

func (store *stubStore) GetLedgerEntry(ctx context.Context, id EntryID) (LedgerEntry, error) {
	for _, entry := range store.entries {
		if entry.ID == id {
			return *entry, nil
		}
	}
	return LedgerEntry{}, ErrEntryNotFound
}

func (store *stubStore) ListEntriesForBooking(ctx context.Context, paymentIntentID PaymentIntentID, bookingID BookingID) ([]LedgerEntry, error) {
	var result []LedgerEntry
	for _, entry := range store.entries {
		if entry.PaymentIntentID == paymentIntentID && entry.BookingID == bookingID {
			result = append(result, *entry)
		}
	}
	return result, nil
}

func (store *stubStore) MarkEntryReversed(ctx context.Context, id EntryID, reversedBy EntryID) error {
	for _, entry := range store.entries {
		if entry.ID == id {
			if entry.Status == EntryReversed {
				return ErrStaleState
			}
			entry.Status = EntryReversed
			linked := reversedBy
			entry.ReversedBy = &linked
			return nil
		}
	}
	return ErrEntryNotFound
}

func (store *stubStore) SumEntries(ctx context.Context, hostID UserID, entryType EntryType, direction EntryDirection, status EntryStatus) (int64, error) {
	var sum int64
	for _, entry := range store.entries {
		if entry.HostID == hostID && entry.Type == entryType && entry.Direction == direction && entry.Status == status {
			sum += entry.AmountCents.Int64()
		}
	}
	return sum, nil
}

func (store *stubStore) ListEligiblePayoutCreditsForUpdate(ctx context.Context, hostID UserID) ([]LedgerEntry, error) {
	consumed := make(map[EntryID]struct{}, len(store.payoutItems))
	for _, item := range store.payoutItems {
		consumed[item.EntryID] = struct{}{}
	}
	var result []LedgerEntry
	for _, entry := range store.entries {
		if entry.HostID != hostID || entry.Type != EntryHostPayoutDue || entry.Direction != DirectionCredit || entry.Status != EntryPosted {
			continue
		}
		if _, taken := consumed[entry.ID]; taken {
			continue
		}
		if booking, ok := store.bookings[entry.BookingID]; ok && booking.Dispute == DisputeOpen {
			continue
		}
		result = append(result, *entry)
	}
	sort.SliceStable(result, func(left, right int) bool {
		return result[left].CreatedUnixUTC < result[right].CreatedUnixUTC
	})
	return result, nil
}

func (store *stubStore) HasPayoutDebit(ctx context.Context, bookingID BookingID) (bool, error) {
	for _, entry := range store.entries {
		if entry.BookingID == bookingID && entry.Type == EntryHostPayout {
			return true, nil
		}
	}
	return false, nil
}

func (store *stubStore) CreatePayout(ctx context.Context, payout *Payout, items []PayoutItem) error {
	if payout.ID.IsZero() {
		id, err := NewPayoutID(store.nextID("po"))
		if err != nil {
			return err
		}
		payout.ID = id
	}
	stored := *payout
	store.payouts[payout.ID] = &stored
	for _, item := range items {
		item.PayoutID = payout.ID
		store.payoutItems = append(store.payoutItems, item)
	}
	return nil
}

func (store *stubStore) GetPayout(ctx context.Context, id PayoutID) (Payout, error) {
	payout, ok := store.payouts[id]
	if !ok {
		return Payout{}, ErrPayoutNotFound
	}
	return *payout, nil
}

func (store *stubStore) GetPayoutForUpdate(ctx context.Context, id PayoutID) (Payout, error) {
	return store.GetPayout(ctx, id)
}

func (store *stubStore) ListPayoutItems(ctx context.Context, payoutID PayoutID) ([]PayoutItem, error) {
	var result []PayoutItem
	for _, item := range store.payoutItems {
		if item.PayoutID == payoutID {
			result = append(result, item)
		}
	}
	return result, nil
}

func (store *stubStore) MarkPayoutPaid(ctx context.Context, id PayoutID, method, reference string, paidAtUnixUTC int64) error {
	payout, ok := store.payouts[id]
	if !ok {
		return ErrPayoutNotFound
	}
	if payout.Status != PayoutPending {
		return ErrStaleState
	}
	payout.Status = PayoutPaid
	payout.Method = method
	payout.Reference = reference
	payout.PaidAtUnixUTC = paidAtUnixUTC
	return nil
}

// stubListings is an in-memory ListingDirectory.
type stubListings struct {
	listings map[ListingID]Listing
}

func (directory *stubListings) GetListing(ctx context.Context, id ListingID) (Listing, error) {
	listing, ok := directory.listings[id]
	if !ok {
		return Listing{}, ErrListingNotFound
	}
	return listing, nil
}

// fixture wires all services over one stub store with a settable clock.
type fixture struct {
	store    *stubStore
	listings *stubListings
	bookings *BookingService
	payments *PaymentService
	ledger   *LedgerService
	payouts  *PayoutService
	nowUnix  int64
}

const (
	fixtureCommissionBps = 1000
	fixtureDailyListing  = "lst-daily"
	fixtureSlotListing   = "lst-slot"
	fixtureHost          = "host-1"
	fixtureRenter        = "renter-1"
	fixtureOtherRenter   = "renter-2"
)

// fixtureNow is 2026-03-01T12:00:00Z.
var fixtureNow = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

func newFixture(test *testing.T) *fixture {
	test.Helper()
	wired := &fixture{
		store:   newStubStore(),
		nowUnix: fixtureNow.Unix(),
	}
	clock := func() int64 { return wired.nowUnix }

	dailyID := mustListingID(test, fixtureDailyListing)
	slotID := mustListingID(test, fixtureSlotListing)
	hostID := mustUserID(test, fixtureHost)
	wired.listings = &stubListings{listings: map[ListingID]Listing{
		dailyID: {
			ID:               dailyID,
			HostID:           hostID,
			Kind:             KindDaily,
			PricePerDayCents: 10000,
			IsActive:         true,
		},
		slotID: {
			ID:                slotID,
			HostID:            hostID,
			Kind:              KindSlot,
			PricePerSlotCents: 30000,
			SlotBufferMinutes: 15,
			IsActive:          true,
		},
	}}

	rate := mustCommissionRate(test, fixtureCommissionBps)
	payments, err := NewPaymentService(wired.store, clock)
	if err != nil {
		test.Fatalf("payment service: %v", err)
	}
	bookings, err := NewBookingService(wired.store, wired.listings, payments, clock, rate)
	if err != nil {
		test.Fatalf("booking service: %v", err)
	}
	ledger, err := NewLedgerService(wired.store, clock)
	if err != nil {
		test.Fatalf("ledger service: %v", err)
	}
	payouts, err := NewPayoutService(wired.store, clock)
	if err != nil {
		test.Fatalf("payout service: %v", err)
	}
	wired.payments = payments
	wired.bookings = bookings
	wired.ledger = ledger
	wired.payouts = payouts
	return wired
}

// paidBooking drives a booking through create, confirm, and pay so tests
// start from a captured payment with a posted ledger triple.
func (wired *fixture) paidBooking(test *testing.T, renter string, start, end time.Time) Booking {
	test.Helper()
	ctx := context.Background()
	renterID := mustUserID(test, renter)
	hostID := mustUserID(test, fixtureHost)
	window := mustDailyWindow(test, start, end)
	booking, err := wired.bookings.Create(ctx, mustListingID(test, fixtureDailyListing), renterID, window)
	if err != nil {
		test.Fatalf("create booking: %v", err)
	}
	if _, err := wired.bookings.Confirm(ctx, booking.ID, hostID); err != nil {
		test.Fatalf("confirm booking: %v", err)
	}
	if _, err := wired.payments.Authorize(ctx, booking.ID, renterID); err != nil {
		test.Fatalf("authorize payment: %v", err)
	}
	paid, err := wired.bookings.Pay(ctx, booking.ID, renterID)
	if err != nil {
		test.Fatalf("pay booking: %v", err)
	}
	return paid
}

func mustUserID(test *testing.T, raw string) UserID {
	test.Helper()
	value, err := NewUserID(raw)
	if err != nil {
		test.Fatalf("user id: %v", err)
	}
	return value
}

func mustListingID(test *testing.T, raw string) ListingID {
	test.Helper()
	value, err := NewListingID(raw)
	if err != nil {
		test.Fatalf("listing id: %v", err)
	}
	return value
}

func mustBookingID(test *testing.T, raw string) BookingID {
	test.Helper()
	value, err := NewBookingID(raw)
	if err != nil {
		test.Fatalf("booking id: %v", err)
	}
	return value
}

func mustCommissionRate(test *testing.T, raw int64) CommissionRate {
	test.Helper()
	value, err := NewCommissionRate(raw)
	if err != nil {
		test.Fatalf("commission rate: %v", err)
	}
	return value
}

func mustAmountCents(test *testing.T, raw int64) AmountCents {
	test.Helper()
	value, err := NewAmountCents(raw)
	if err != nil {
		test.Fatalf("amount: %v", err)
	}
	return value
}

func mustDailyWindow(test *testing.T, start, end time.Time) BookingWindow {
	test.Helper()
	window, err := NewDailyWindow(start, end)
	if err != nil {
		test.Fatalf("daily window: %v", err)
	}
	return window
}

func mustSlotWindow(test *testing.T, day time.Time, startMinute, endMinute int) BookingWindow {
	test.Helper()
	window, err := NewSlotWindow(day, startMinute, endMinute)
	if err != nil {
		test.Fatalf("slot window: %v", err)
	}
	return window
}

func day(offset int) time.Time {
	return time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}
