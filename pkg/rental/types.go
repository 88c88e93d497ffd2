package rental

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// AmountCents is a non-negative integer currency amount in cents.
type AmountCents int64

// CommissionRate is the platform's cut in basis points (0..10000).
type CommissionRate int64

// UserID identifies a renter, host, or admin.
type UserID struct {
	value string
}

// ListingID identifies a rentable unit.
type ListingID struct {
	value string
}

// BookingID identifies a booking.
type BookingID struct {
	value string
}

// PaymentIntentID identifies the payment record tied 1:1 to a booking.
type PaymentIntentID struct {
	value string
}

// EntryID identifies a ledger entry.
type EntryID struct {
	value string
}

// PayoutID identifies a payout batch.
type PayoutID struct {
	value string
}

// NewUserID validates and normalizes a user id.
func NewUserID(raw string) (UserID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return UserID{}, fmt.Errorf("%w: empty value", ErrInvalidUserID)
	}
	return UserID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id UserID) String() string {
	return id.value
}

// IsZero reports whether the id is unset.
func (id UserID) IsZero() bool {
	return id.value == ""
}

// NewListingID validates and normalizes a listing id.
func NewListingID(raw string) (ListingID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ListingID{}, fmt.Errorf("%w: empty value", ErrInvalidListingID)
	}
	return ListingID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id ListingID) String() string {
	return id.value
}

// NewBookingID validates and normalizes a booking id.
func NewBookingID(raw string) (BookingID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return BookingID{}, fmt.Errorf("%w: empty value", ErrInvalidBookingID)
	}
	return BookingID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id BookingID) String() string {
	return id.value
}

// IsZero reports whether the id is unset.
func (id BookingID) IsZero() bool {
	return id.value == ""
}

// NewPaymentIntentID validates and normalizes a payment intent id.
func NewPaymentIntentID(raw string) (PaymentIntentID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return PaymentIntentID{}, fmt.Errorf("%w: empty value", ErrInvalidPaymentIntentID)
	}
	return PaymentIntentID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id PaymentIntentID) String() string {
	return id.value
}

// IsZero reports whether the id is unset.
func (id PaymentIntentID) IsZero() bool {
	return id.value == ""
}

// NewEntryID validates and normalizes a ledger entry id.
func NewEntryID(raw string) (EntryID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return EntryID{}, fmt.Errorf("%w: empty value", ErrInvalidEntryID)
	}
	return EntryID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id EntryID) String() string {
	return id.value
}

// IsZero reports whether the id is unset.
func (id EntryID) IsZero() bool {
	return id.value == ""
}

// NewPayoutID validates and normalizes a payout id.
func NewPayoutID(raw string) (PayoutID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return PayoutID{}, fmt.Errorf("%w: empty value", ErrInvalidPayoutID)
	}
	return PayoutID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id PayoutID) String() string {
	return id.value
}

// IsZero reports whether the id is unset.
func (id PayoutID) IsZero() bool {
	return id.value == ""
}

// NewAmountCents validates a non-negative amount.
func NewAmountCents(raw int64) (AmountCents, error) {
	if raw < 0 {
		return 0, fmt.Errorf("%w: must not be negative", ErrInvalidAmountCents)
	}
	return AmountCents(raw), nil
}

// NewPositiveAmountCents validates a strictly positive amount.
func NewPositiveAmountCents(raw int64) (AmountCents, error) {
	if raw <= 0 {
		return 0, fmt.Errorf("%w: must be greater than zero", ErrInvalidAmountCents)
	}
	return AmountCents(raw), nil
}

// Int64 returns the raw cents value.
func (amount AmountCents) Int64() int64 {
	return int64(amount)
}

// NewCommissionRate validates a rate in basis points.
func NewCommissionRate(raw int64) (CommissionRate, error) {
	if raw < 0 || raw > 10000 {
		return 0, fmt.Errorf("%w: must be within 0..10000 basis points", ErrInvalidCommissionRate)
	}
	return CommissionRate(raw), nil
}

// Int64 returns the raw basis points value.
func (rate CommissionRate) Int64() int64 {
	return int64(rate)
}

// CommissionFor computes the platform commission on total, rounded half-up,
// so that total = commission + (total - commission) holds exactly.
func (rate CommissionRate) CommissionFor(total AmountCents) AmountCents {
	return AmountCents((total.Int64()*rate.Int64() + 5000) / 10000)
}

// BookingStatus defines the booking lifecycle.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingPaid      BookingStatus = "paid"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

// String returns the status value.
func (status BookingStatus) String() string {
	return string(status)
}

// ParseBookingStatus validates a stored booking status.
func ParseBookingStatus(raw string) (BookingStatus, error) {
	switch BookingStatus(raw) {
	case BookingPending, BookingConfirmed, BookingPaid, BookingCompleted, BookingCancelled:
		return BookingStatus(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidBookingStatus, raw)
}

// BlockingBookingStatuses are the statuses that hold inventory exclusively.
// A pending booking never blocks a competing request.
var BlockingBookingStatuses = []BookingStatus{BookingConfirmed, BookingPaid, BookingCompleted}

// DisputeStatus defines the dispute flag on a booking.
type DisputeStatus string

const (
	DisputeNone     DisputeStatus = "none"
	DisputeOpen     DisputeStatus = "open"
	DisputeResolved DisputeStatus = "resolved"
)

// String returns the status value.
func (status DisputeStatus) String() string {
	return string(status)
}

// PaymentStatus defines the payment intent lifecycle.
type PaymentStatus string

const (
	PaymentCreated    PaymentStatus = "created"
	PaymentAuthorized PaymentStatus = "authorized"
	PaymentCaptured   PaymentStatus = "captured"
	PaymentRefunded   PaymentStatus = "refunded"
	PaymentCancelled  PaymentStatus = "cancelled"
)

// String returns the status value.
func (status PaymentStatus) String() string {
	return string(status)
}

// ParsePaymentStatus validates a stored payment status.
func ParsePaymentStatus(raw string) (PaymentStatus, error) {
	switch PaymentStatus(raw) {
	case PaymentCreated, PaymentAuthorized, PaymentCaptured, PaymentRefunded, PaymentCancelled:
		return PaymentStatus(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPaymentStatus, raw)
}

// EntryType enumerates ledger entry kinds.
type EntryType string

const (
	EntryRentPaid      EntryType = "RENT_PAID"
	EntryCommission    EntryType = "COMMISSION"
	EntryHostPayoutDue EntryType = "HOST_PAYOUT_DUE"
	EntryHostPayout    EntryType = "HOST_PAYOUT"
	EntryRefund        EntryType = "REFUND"
)

// String returns the entry type value.
func (entryType EntryType) String() string {
	return string(entryType)
}

// EntryDirection is the double-entry side of a ledger row.
type EntryDirection string

const (
	DirectionCredit EntryDirection = "CREDIT"
	DirectionDebit  EntryDirection = "DEBIT"
)

// String returns the direction value.
func (direction EntryDirection) String() string {
	return string(direction)
}

// Opposite returns the other side.
func (direction EntryDirection) Opposite() EntryDirection {
	if direction == DirectionCredit {
		return DirectionDebit
	}
	return DirectionCredit
}

// EntryStatus marks a ledger row as live or reversed.
type EntryStatus string

const (
	EntryPosted   EntryStatus = "POSTED"
	EntryReversed EntryStatus = "REVERSED"
)

// String returns the entry status value.
func (status EntryStatus) String() string {
	return string(status)
}

// ReasonCode is the closed set of causes a ledger row can carry.
type ReasonCode string

const (
	ReasonCapture          ReasonCode = "capture"
	ReasonRefundReversal   ReasonCode = "refund_reversal"
	ReasonPayoutSettlement ReasonCode = "payout_settlement"
)

// String returns the reason code value.
func (reason ReasonCode) String() string {
	return string(reason)
}

// PayoutStatus defines the payout lifecycle.
type PayoutStatus string

const (
	PayoutPending   PayoutStatus = "PENDING"
	PayoutPaid      PayoutStatus = "PAID"
	PayoutCancelled PayoutStatus = "CANCELLED"
)

// String returns the payout status value.
func (status PayoutStatus) String() string {
	return string(status)
}

// BookingKind distinguishes whole-day ranges from sub-day slots.
type BookingKind string

const (
	KindDaily BookingKind = "DAILY"
	KindSlot  BookingKind = "SLOT"
)

// String returns the kind value.
func (kind BookingKind) String() string {
	return string(kind)
}

// minutesPerDay bounds slot minute offsets.
const minutesPerDay = 24 * 60

// BookingWindow is the reserved time range of a booking. For DAILY bookings
// the range is [StartDate, EndDate) in whole days. For SLOT bookings
// StartDate equals EndDate and [StartMinute, EndMinute) are minutes since
// midnight on that day.
type BookingWindow struct {
	StartDate   time.Time
	EndDate     time.Time
	StartMinute int
	EndMinute   int
}

// NewDailyWindow builds a whole-day window with an exclusive end date.
func NewDailyWindow(start, end time.Time) (BookingWindow, error) {
	startDay := truncateToDay(start)
	endDay := truncateToDay(end)
	if !endDay.After(startDay) {
		return BookingWindow{}, fmt.Errorf("%w: end date must be after start date", ErrInvalidBookingWindow)
	}
	return BookingWindow{StartDate: startDay, EndDate: endDay}, nil
}

// NewSlotWindow builds a sub-day window on a single calendar day.
func NewSlotWindow(day time.Time, startMinute, endMinute int) (BookingWindow, error) {
	if startMinute < 0 || endMinute > minutesPerDay || startMinute >= endMinute {
		return BookingWindow{}, fmt.Errorf("%w: slot minutes must satisfy 0 <= start < end <= %d", ErrInvalidBookingWindow, minutesPerDay)
	}
	slotDay := truncateToDay(day)
	return BookingWindow{StartDate: slotDay, EndDate: slotDay, StartMinute: startMinute, EndMinute: endMinute}, nil
}

// Nights returns the number of whole days covered by a DAILY window.
func (window BookingWindow) Nights() int64 {
	return int64(window.EndDate.Sub(window.StartDate) / (24 * time.Hour))
}

// StartsAt returns the instant the stay begins, minute-precise for slots.
func (window BookingWindow) StartsAt() time.Time {
	return window.StartDate.Add(time.Duration(window.StartMinute) * time.Minute)
}

// EndsAt returns the instant the stay ends.
func (window BookingWindow) EndsAt() time.Time {
	if window.EndMinute > 0 {
		return window.StartDate.Add(time.Duration(window.EndMinute) * time.Minute)
	}
	return window.EndDate
}

func truncateToDay(value time.Time) time.Time {
	utc := value.UTC()
	return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
}

func sameCalendarDay(a, b time.Time) bool {
	return truncateToDay(a).Equal(truncateToDay(b))
}

// Booking is a reservation of a listing for a time range.
type Booking struct {
	ID             BookingID
	ListingID      ListingID
	RenterID       UserID
	HostID         UserID
	Kind           BookingKind
	Window         BookingWindow
	TotalCents     AmountCents
	CommissionRate CommissionRate
	Status         BookingStatus
	Dispute        DisputeStatus
	CreatedUnixUTC int64
}

// PaymentIntent is the money-movement record tied 1:1 to a booking.
type PaymentIntent struct {
	ID             PaymentIntentID
	BookingID      BookingID
	RenterID       UserID
	HostID         UserID
	AmountCents    AmountCents
	Currency       string
	Status         PaymentStatus
	CreatedUnixUTC int64
}

// LedgerEntry is one immutable row of the double-entry ledger. The only
// permitted mutation is flipping POSTED to REVERSED together with the
// reversal back-link.
type LedgerEntry struct {
	ID              EntryID
	BookingID       BookingID
	PaymentIntentID PaymentIntentID
	HostID          UserID
	Type            EntryType
	Direction       EntryDirection
	AmountCents     AmountCents
	Currency        string
	Status          EntryStatus
	Reason          ReasonCode
	ReversalOf      *EntryID
	ReversedBy      *EntryID
	CreatedUnixUTC  int64
}

// Payout is a batched payment of accumulated host earnings.
type Payout struct {
	ID             PayoutID
	HostID         UserID
	AmountCents    AmountCents
	Currency       string
	Status         PayoutStatus
	Method         string
	Reference      string
	Notes          string
	PaidAtUnixUTC  int64
	CreatedUnixUTC int64
}

// PayoutItem links a payout to exactly one HOST_PAYOUT_DUE credit,
// consuming it so no later payout can select it again.
type PayoutItem struct {
	PayoutID PayoutID
	EntryID  EntryID
}

// HostBalance is the payable balance view for a host.
type HostBalance struct {
	AmountCents AmountCents
	Currency    string
}

// Listing is the slice of the listings collaborator the core consumes.
type Listing struct {
	ID                ListingID
	HostID            UserID
	Kind              BookingKind
	PricePerDayCents  AmountCents
	PricePerSlotCents AmountCents
	SlotBufferMinutes int
	IsActive          bool
}

// ListingDirectory resolves listings owned by the out-of-scope listings service.
type ListingDirectory interface {
	GetListing(ctx context.Context, id ListingID) (Listing, error)
}
