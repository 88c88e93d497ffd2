package gormstore

import (
	"context"
	"errors"
	"time"

	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rentloop/rentcore/pkg/rental"
)

const (
	dialectPostgres       = "postgres"
	pgUniqueViolationCode = "23505"
	sqliteConstraintCode  = 19
	errorOperationStore   = "store"
	errorSubjectBooking   = "booking"
	errorSubjectIntent    = "payment_intent"
	errorSubjectEntry     = "entry"
	errorSubjectPayout    = "payout"
	errorSubjectItem      = "payout_item"
	errorCodeCreate       = "create"
	errorCodeDuplicate    = "duplicate"
	errorCodeGet          = "get"
	errorCodeInsert       = "insert"
	errorCodeInvalid      = "invalid"
	errorCodeList         = "list"
	errorCodeSum          = "sum"
	errorCodeUpdateStatus = "update_status"
)

// Store implements rental.Store using GORM.
type Store struct {
	db *gorm.DB
}

// New returns a Store backed by gorm.DB.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// WithTx executes fn within a transaction.
func (store *Store) WithTx(ctx context.Context, fn func(ctx context.Context, txStore rental.Store) error) error {
	return store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		return fn(ctx, &Store{db: transaction})
	})
}

// forUpdate adds a row lock on dialects that support it. SQLite rejects
// FOR UPDATE and serializes writers on its own.
func (store *Store) forUpdate(query *gorm.DB) *gorm.DB {
	if store.db.Dialector.Name() == dialectPostgres {
		return query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return query
}

func (store *Store) CreateBooking(ctx context.Context, booking *rental.Booking) error {
	row := Booking{
		BookingID:         booking.ID.String(),
		ListingID:         booking.ListingID.String(),
		RenterID:          booking.RenterID.String(),
		HostID:            booking.HostID.String(),
		Kind:              booking.Kind.String(),
		StartDate:         datatypes.Date(booking.Window.StartDate),
		EndDate:           datatypes.Date(booking.Window.EndDate),
		StartMinute:       booking.Window.StartMinute,
		EndMinute:         booking.Window.EndMinute,
		TotalCents:        booking.TotalCents.Int64(),
		CommissionRateBps: booking.CommissionRate.Int64(),
		Status:            booking.Status.String(),
		DisputeStatus:     booking.Dispute.String(),
		CreatedAt:         time.Unix(booking.CreatedUnixUTC, 0).UTC(),
	}
	if err := store.db.WithContext(ctx).Create(&row).Error; err != nil {
		return wrapStoreError(errorSubjectBooking, errorCodeCreate, err)
	}
	bookingID, err := rental.NewBookingID(row.BookingID)
	if err != nil {
		return wrapStoreError(errorSubjectBooking, errorCodeInvalid, err)
	}
	booking.ID = bookingID
	return nil
}

func (store *Store) GetBooking(ctx context.Context, id rental.BookingID) (rental.Booking, error) {
	return store.getBooking(ctx, id, false)
}

func (store *Store) GetBookingForUpdate(ctx context.Context, id rental.BookingID) (rental.Booking, error) {
	return store.getBooking(ctx, id, true)
}

func (store *Store) getBooking(ctx context.Context, id rental.BookingID, locked bool) (rental.Booking, error) {
	query := store.db.WithContext(ctx)
	if locked {
		query = store.forUpdate(query)
	}
	var row Booking
	err := query.Where("booking_id = ?", id.String()).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return rental.Booking{}, wrapStoreError(errorSubjectBooking, errorCodeGet, rental.ErrBookingNotFound)
		}
		return rental.Booking{}, wrapStoreError(errorSubjectBooking, errorCodeGet, err)
	}
	booking, err := mapBooking(row)
	if err != nil {
		return rental.Booking{}, wrapStoreError(errorSubjectBooking, errorCodeInvalid, err)
	}
	return booking, nil
}

func (store *Store) ListBlockingBookingsForUpdate(ctx context.Context, listingID rental.ListingID, exclude *rental.BookingID) ([]rental.Booking, error) {
	statuses := make([]string, 0, len(rental.BlockingBookingStatuses))
	for _, status := range rental.BlockingBookingStatuses {
		statuses = append(statuses, status.String())
	}
	query := store.forUpdate(store.db.WithContext(ctx)).
		Where("listing_id = ? AND status IN ?", listingID.String(), statuses)
	if exclude != nil {
		query = query.Where("booking_id <> ?", exclude.String())
	}
	var rows []Booking
	if err := query.Find(&rows).Error; err != nil {
		return nil, wrapStoreError(errorSubjectBooking, errorCodeList, err)
	}
	bookings := make([]rental.Booking, 0, len(rows))
	for _, row := range rows {
		booking, err := mapBooking(row)
		if err != nil {
			return nil, wrapStoreError(errorSubjectBooking, errorCodeInvalid, err)
		}
		bookings = append(bookings, booking)
	}
	return bookings, nil
}

func (store *Store) UpdateBookingStatus(ctx context.Context, id rental.BookingID, from, to rental.BookingStatus) error {
	result := store.db.WithContext(ctx).
		Model(&Booking{}).
		Where("booking_id = ? AND status = ?", id.String(), from.String()).
		Update("status", to.String())
	if result.Error != nil {
		return wrapStoreError(errorSubjectBooking, errorCodeUpdateStatus, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectBooking, errorCodeUpdateStatus, rental.ErrStaleState)
	}
	return nil
}

func (store *Store) UpdateBookingDispute(ctx context.Context, id rental.BookingID, from, to rental.DisputeStatus) error {
	result := store.db.WithContext(ctx).
		Model(&Booking{}).
		Where("booking_id = ? AND dispute_status = ?", id.String(), from.String()).
		Update("dispute_status", to.String())
	if result.Error != nil {
		return wrapStoreError(errorSubjectBooking, errorCodeUpdateStatus, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectBooking, errorCodeUpdateStatus, rental.ErrStaleState)
	}
	return nil
}

func (store *Store) CreatePaymentIntent(ctx context.Context, intent *rental.PaymentIntent) error {
	row := PaymentIntent{
		PaymentIntentID: intent.ID.String(),
		BookingID:       intent.BookingID.String(),
		RenterID:        intent.RenterID.String(),
		HostID:          intent.HostID.String(),
		AmountCents:     intent.AmountCents.Int64(),
		Currency:        intent.Currency,
		Status:          intent.Status.String(),
		CreatedAt:       time.Unix(intent.CreatedUnixUTC, 0).UTC(),
	}
	err := store.db.WithContext(ctx).Create(&row).Error
	if isUniqueViolation(err) {
		return wrapStoreError(errorSubjectIntent, errorCodeDuplicate, rental.ErrStaleState)
	}
	if err != nil {
		return wrapStoreError(errorSubjectIntent, errorCodeCreate, err)
	}
	intentID, err := rental.NewPaymentIntentID(row.PaymentIntentID)
	if err != nil {
		return wrapStoreError(errorSubjectIntent, errorCodeInvalid, err)
	}
	intent.ID = intentID
	return nil
}

func (store *Store) GetPaymentIntentByBooking(ctx context.Context, bookingID rental.BookingID) (rental.PaymentIntent, error) {
	return store.getPaymentIntent(ctx, bookingID, false)
}

func (store *Store) GetPaymentIntentByBookingForUpdate(ctx context.Context, bookingID rental.BookingID) (rental.PaymentIntent, error) {
	return store.getPaymentIntent(ctx, bookingID, true)
}

func (store *Store) getPaymentIntent(ctx context.Context, bookingID rental.BookingID, locked bool) (rental.PaymentIntent, error) {
	query := store.db.WithContext(ctx)
	if locked {
		query = store.forUpdate(query)
	}
	var row PaymentIntent
	err := query.Where("booking_id = ?", bookingID.String()).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return rental.PaymentIntent{}, wrapStoreError(errorSubjectIntent, errorCodeGet, rental.ErrPaymentIntentNotFound)
		}
		return rental.PaymentIntent{}, wrapStoreError(errorSubjectIntent, errorCodeGet, err)
	}
	intent, err := mapPaymentIntent(row)
	if err != nil {
		return rental.PaymentIntent{}, wrapStoreError(errorSubjectIntent, errorCodeInvalid, err)
	}
	return intent, nil
}

func (store *Store) UpdatePaymentIntentStatus(ctx context.Context, id rental.PaymentIntentID, from, to rental.PaymentStatus) error {
	result := store.db.WithContext(ctx).
		Model(&PaymentIntent{}).
		Where("payment_intent_id = ? AND status = ?", id.String(), from.String()).
		Update("status", to.String())
	if result.Error != nil {
		return wrapStoreError(errorSubjectIntent, errorCodeUpdateStatus, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectIntent, errorCodeUpdateStatus, rental.ErrStaleState)
	}
	return nil
}

func (store *Store) InsertLedgerEntry(ctx context.Context, entry *rental.LedgerEntry) error {
	var reversalOf *string
	if entry.ReversalOf != nil {
		value := entry.ReversalOf.String()
		reversalOf = &value
	}
	row := LedgerEntry{
		EntryID:         entry.ID.String(),
		BookingID:       entry.BookingID.String(),
		PaymentIntentID: entry.PaymentIntentID.String(),
		HostID:          entry.HostID.String(),
		Type:            entry.Type.String(),
		Direction:       entry.Direction.String(),
		AmountCents:     entry.AmountCents.Int64(),
		Currency:        entry.Currency,
		Status:          entry.Status.String(),
		Reason:          entry.Reason.String(),
		ReversalOf:      reversalOf,
		CreatedAt:       time.Unix(entry.CreatedUnixUTC, 0).UTC(),
	}
	if err := store.db.WithContext(ctx).Create(&row).Error; err != nil {
		return wrapStoreError(errorSubjectEntry, errorCodeInsert, err)
	}
	entryID, err := rental.NewEntryID(row.EntryID)
	if err != nil {
		return wrapStoreError(errorSubjectEntry, errorCodeInvalid, err)
	}
	entry.ID = entryID
	return nil
}

func (store *Store) GetLedgerEntry(ctx context.Context, id rental.EntryID) (rental.LedgerEntry, error) {
	var row LedgerEntry
	err := store.db.WithContext(ctx).Where("entry_id = ?", id.String()).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return rental.LedgerEntry{}, wrapStoreError(errorSubjectEntry, errorCodeGet, rental.ErrEntryNotFound)
		}
		return rental.LedgerEntry{}, wrapStoreError(errorSubjectEntry, errorCodeGet, err)
	}
	entry, err := mapLedgerEntry(row)
	if err != nil {
		return rental.LedgerEntry{}, wrapStoreError(errorSubjectEntry, errorCodeInvalid, err)
	}
	return entry, nil
}

func (store *Store) ListEntriesForBooking(ctx context.Context, paymentIntentID rental.PaymentIntentID, bookingID rental.BookingID) ([]rental.LedgerEntry, error) {
	var rows []LedgerEntry
	err := store.db.WithContext(ctx).
		Where("payment_intent_id = ? AND booking_id = ?", paymentIntentID.String(), bookingID.String()).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectEntry, errorCodeList, err)
	}
	entries := make([]rental.LedgerEntry, 0, len(rows))
	for _, row := range rows {
		entry, err := mapLedgerEntry(row)
		if err != nil {
			return nil, wrapStoreError(errorSubjectEntry, errorCodeInvalid, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (store *Store) MarkEntryReversed(ctx context.Context, id rental.EntryID, reversedBy rental.EntryID) error {
	result := store.db.WithContext(ctx).
		Model(&LedgerEntry{}).
		Where("entry_id = ? AND status = ?", id.String(), rental.EntryPosted.String()).
		Updates(map[string]interface{}{
			"status":      rental.EntryReversed.String(),
			"reversed_by": reversedBy.String(),
		})
	if result.Error != nil {
		return wrapStoreError(errorSubjectEntry, errorCodeUpdateStatus, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectEntry, errorCodeUpdateStatus, rental.ErrStaleState)
	}
	return nil
}

func (store *Store) SumEntries(ctx context.Context, hostID rental.UserID, entryType rental.EntryType, direction rental.EntryDirection, status rental.EntryStatus) (int64, error) {
	var sum sqlSum
	err := store.db.WithContext(ctx).
		Model(&LedgerEntry{}).
		Select("coalesce(sum(amount_cents),0) as total").
		Where("host_id = ? AND type = ? AND direction = ? AND status = ?",
			hostID.String(), entryType.String(), direction.String(), status.String()).
		Scan(&sum).Error
	if err != nil {
		return 0, wrapStoreError(errorSubjectEntry, errorCodeSum, err)
	}
	return sum.Total, nil
}

func (store *Store) ListEligiblePayoutCreditsForUpdate(ctx context.Context, hostID rental.UserID) ([]rental.LedgerEntry, error) {
	var rows []LedgerEntry
	err := store.forUpdate(store.db.WithContext(ctx)).
		Model(&LedgerEntry{}).
		Joins("JOIN bookings ON bookings.booking_id = ledger_entries.booking_id").
		Where("ledger_entries.host_id = ? AND ledger_entries.type = ? AND ledger_entries.direction = ? AND ledger_entries.status = ?",
			hostID.String(), rental.EntryHostPayoutDue.String(), rental.DirectionCredit.String(), rental.EntryPosted.String()).
		Where("bookings.dispute_status <> ?", rental.DisputeOpen.String()).
		Where("NOT EXISTS (SELECT 1 FROM payout_items WHERE payout_items.entry_id = ledger_entries.entry_id)").
		Order("ledger_entries.created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectEntry, errorCodeList, err)
	}
	entries := make([]rental.LedgerEntry, 0, len(rows))
	for _, row := range rows {
		entry, err := mapLedgerEntry(row)
		if err != nil {
			return nil, wrapStoreError(errorSubjectEntry, errorCodeInvalid, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (store *Store) HasPayoutDebit(ctx context.Context, bookingID rental.BookingID) (bool, error) {
	var count int64
	err := store.db.WithContext(ctx).
		Model(&LedgerEntry{}).
		Where("booking_id = ? AND type = ?", bookingID.String(), rental.EntryHostPayout.String()).
		Count(&count).Error
	if err != nil {
		return false, wrapStoreError(errorSubjectEntry, errorCodeList, err)
	}
	return count > 0, nil
}

func (store *Store) CreatePayout(ctx context.Context, payout *rental.Payout, items []rental.PayoutItem) error {
	row := Payout{
		PayoutID:    payout.ID.String(),
		HostID:      payout.HostID.String(),
		AmountCents: payout.AmountCents.Int64(),
		Currency:    payout.Currency,
		Status:      payout.Status.String(),
		Method:      payout.Method,
		Reference:   payout.Reference,
		Notes:       payout.Notes,
		CreatedAt:   time.Unix(payout.CreatedUnixUTC, 0).UTC(),
	}
	if err := store.db.WithContext(ctx).Create(&row).Error; err != nil {
		return wrapStoreError(errorSubjectPayout, errorCodeCreate, err)
	}
	payoutID, err := rental.NewPayoutID(row.PayoutID)
	if err != nil {
		return wrapStoreError(errorSubjectPayout, errorCodeInvalid, err)
	}
	payout.ID = payoutID
	for _, item := range items {
		itemRow := PayoutItem{PayoutID: row.PayoutID, EntryID: item.EntryID.String()}
		err := store.db.WithContext(ctx).Create(&itemRow).Error
		if isUniqueViolation(err) {
			return wrapStoreError(errorSubjectItem, errorCodeDuplicate, rental.ErrStaleState)
		}
		if err != nil {
			return wrapStoreError(errorSubjectItem, errorCodeCreate, err)
		}
	}
	return nil
}

func (store *Store) GetPayout(ctx context.Context, id rental.PayoutID) (rental.Payout, error) {
	return store.getPayout(ctx, id, false)
}

func (store *Store) GetPayoutForUpdate(ctx context.Context, id rental.PayoutID) (rental.Payout, error) {
	return store.getPayout(ctx, id, true)
}

func (store *Store) getPayout(ctx context.Context, id rental.PayoutID, locked bool) (rental.Payout, error) {
	query := store.db.WithContext(ctx)
	if locked {
		query = store.forUpdate(query)
	}
	var row Payout
	err := query.Where("payout_id = ?", id.String()).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return rental.Payout{}, wrapStoreError(errorSubjectPayout, errorCodeGet, rental.ErrPayoutNotFound)
		}
		return rental.Payout{}, wrapStoreError(errorSubjectPayout, errorCodeGet, err)
	}
	payout, err := mapPayout(row)
	if err != nil {
		return rental.Payout{}, wrapStoreError(errorSubjectPayout, errorCodeInvalid, err)
	}
	return payout, nil
}

func (store *Store) ListPayoutItems(ctx context.Context, payoutID rental.PayoutID) ([]rental.PayoutItem, error) {
	var rows []PayoutItem
	err := store.db.WithContext(ctx).
		Where("payout_id = ?", payoutID.String()).
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectItem, errorCodeList, err)
	}
	items := make([]rental.PayoutItem, 0, len(rows))
	for _, row := range rows {
		parsedPayoutID, err := rental.NewPayoutID(row.PayoutID)
		if err != nil {
			return nil, wrapStoreError(errorSubjectItem, errorCodeInvalid, err)
		}
		entryID, err := rental.NewEntryID(row.EntryID)
		if err != nil {
			return nil, wrapStoreError(errorSubjectItem, errorCodeInvalid, err)
		}
		items = append(items, rental.PayoutItem{PayoutID: parsedPayoutID, EntryID: entryID})
	}
	return items, nil
}

func (store *Store) MarkPayoutPaid(ctx context.Context, id rental.PayoutID, method, reference string, paidAtUnixUTC int64) error {
	paidAt := time.Unix(paidAtUnixUTC, 0).UTC()
	result := store.db.WithContext(ctx).
		Model(&Payout{}).
		Where("payout_id = ? AND status = ?", id.String(), rental.PayoutPending.String()).
		Updates(map[string]interface{}{
			"status":    rental.PayoutPaid.String(),
			"method":    method,
			"reference": reference,
			"paid_at":   paidAt,
		})
	if result.Error != nil {
		return wrapStoreError(errorSubjectPayout, errorCodeUpdateStatus, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectPayout, errorCodeUpdateStatus, rental.ErrStaleState)
	}
	return nil
}

func wrapStoreError(subject string, code string, err error) error {
	return rental.WrapError(errorOperationStore, subject, code, err)
}

type sqlSum struct {
	Total int64
}

func mapBooking(row Booking) (rental.Booking, error) {
	bookingID, err := rental.NewBookingID(row.BookingID)
	if err != nil {
		return rental.Booking{}, err
	}
	listingID, err := rental.NewListingID(row.ListingID)
	if err != nil {
		return rental.Booking{}, err
	}
	renterID, err := rental.NewUserID(row.RenterID)
	if err != nil {
		return rental.Booking{}, err
	}
	hostID, err := rental.NewUserID(row.HostID)
	if err != nil {
		return rental.Booking{}, err
	}
	status, err := rental.ParseBookingStatus(row.Status)
	if err != nil {
		return rental.Booking{}, err
	}
	totalCents, err := rental.NewAmountCents(row.TotalCents)
	if err != nil {
		return rental.Booking{}, err
	}
	commissionRate, err := rental.NewCommissionRate(row.CommissionRateBps)
	if err != nil {
		return rental.Booking{}, err
	}
	return rental.Booking{
		ID:        bookingID,
		ListingID: listingID,
		RenterID:  renterID,
		HostID:    hostID,
		Kind:      rental.BookingKind(row.Kind),
		Window: rental.BookingWindow{
			StartDate:   dayOf(time.Time(row.StartDate)),
			EndDate:     dayOf(time.Time(row.EndDate)),
			StartMinute: row.StartMinute,
			EndMinute:   row.EndMinute,
		},
		TotalCents:     totalCents,
		CommissionRate: commissionRate,
		Status:         status,
		Dispute:        rental.DisputeStatus(row.DisputeStatus),
		CreatedUnixUTC: row.CreatedAt.Unix(),
	}, nil
}

func mapPaymentIntent(row PaymentIntent) (rental.PaymentIntent, error) {
	intentID, err := rental.NewPaymentIntentID(row.PaymentIntentID)
	if err != nil {
		return rental.PaymentIntent{}, err
	}
	bookingID, err := rental.NewBookingID(row.BookingID)
	if err != nil {
		return rental.PaymentIntent{}, err
	}
	renterID, err := rental.NewUserID(row.RenterID)
	if err != nil {
		return rental.PaymentIntent{}, err
	}
	hostID, err := rental.NewUserID(row.HostID)
	if err != nil {
		return rental.PaymentIntent{}, err
	}
	status, err := rental.ParsePaymentStatus(row.Status)
	if err != nil {
		return rental.PaymentIntent{}, err
	}
	amountCents, err := rental.NewAmountCents(row.AmountCents)
	if err != nil {
		return rental.PaymentIntent{}, err
	}
	return rental.PaymentIntent{
		ID:             intentID,
		BookingID:      bookingID,
		RenterID:       renterID,
		HostID:         hostID,
		AmountCents:    amountCents,
		Currency:       row.Currency,
		Status:         status,
		CreatedUnixUTC: row.CreatedAt.Unix(),
	}, nil
}

func mapLedgerEntry(row LedgerEntry) (rental.LedgerEntry, error) {
	entryID, err := rental.NewEntryID(row.EntryID)
	if err != nil {
		return rental.LedgerEntry{}, err
	}
	bookingID, err := rental.NewBookingID(row.BookingID)
	if err != nil {
		return rental.LedgerEntry{}, err
	}
	intentID, err := rental.NewPaymentIntentID(row.PaymentIntentID)
	if err != nil {
		return rental.LedgerEntry{}, err
	}
	hostID, err := rental.NewUserID(row.HostID)
	if err != nil {
		return rental.LedgerEntry{}, err
	}
	amountCents, err := rental.NewAmountCents(row.AmountCents)
	if err != nil {
		return rental.LedgerEntry{}, err
	}
	var reversalOf *rental.EntryID
	if row.ReversalOf != nil {
		parsed, err := rental.NewEntryID(*row.ReversalOf)
		if err != nil {
			return rental.LedgerEntry{}, err
		}
		reversalOf = &parsed
	}
	var reversedBy *rental.EntryID
	if row.ReversedBy != nil {
		parsed, err := rental.NewEntryID(*row.ReversedBy)
		if err != nil {
			return rental.LedgerEntry{}, err
		}
		reversedBy = &parsed
	}
	return rental.LedgerEntry{
		ID:              entryID,
		BookingID:       bookingID,
		PaymentIntentID: intentID,
		HostID:          hostID,
		Type:            rental.EntryType(row.Type),
		Direction:       rental.EntryDirection(row.Direction),
		AmountCents:     amountCents,
		Currency:        row.Currency,
		Status:          rental.EntryStatus(row.Status),
		Reason:          rental.ReasonCode(row.Reason),
		ReversalOf:      reversalOf,
		ReversedBy:      reversedBy,
		CreatedUnixUTC:  row.CreatedAt.Unix(),
	}, nil
}

func mapPayout(row Payout) (rental.Payout, error) {
	payoutID, err := rental.NewPayoutID(row.PayoutID)
	if err != nil {
		return rental.Payout{}, err
	}
	hostID, err := rental.NewUserID(row.HostID)
	if err != nil {
		return rental.Payout{}, err
	}
	amountCents, err := rental.NewAmountCents(row.AmountCents)
	if err != nil {
		return rental.Payout{}, err
	}
	var paidAt int64
	if row.PaidAt != nil {
		paidAt = row.PaidAt.Unix()
	}
	return rental.Payout{
		ID:             payoutID,
		HostID:         hostID,
		AmountCents:    amountCents,
		Currency:       row.Currency,
		Status:         rental.PayoutStatus(row.Status),
		Method:         row.Method,
		Reference:      row.Reference,
		Notes:          row.Notes,
		PaidAtUnixUTC:  paidAt,
		CreatedUnixUTC: row.CreatedAt.Unix(),
	}, nil
}

func dayOf(value time.Time) time.Time {
	utc := value.UTC()
	return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode
	}
	var sqliteErr *gosqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xFF == sqliteConstraintCode
	}
	return false
}
