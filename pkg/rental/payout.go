package rental

import (
	"context"
	"fmt"
)

// PayoutService assembles host payouts from eligible ledger credits and
// posts the settlement debit that closes them out.
type PayoutService struct {
	store    Store
	nowFn    func() int64
	currency string
	logger   OperationLogger
}

// NewPayoutService wires a PayoutService.
func NewPayoutService(store Store, now func() int64, options ...Option) (*PayoutService, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidServiceConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidServiceConfig)
	}
	resolved := resolveOptions(options)
	return &PayoutService{store: store, nowFn: now, currency: resolved.currency, logger: resolved.logger}, nil
}

// PayoutResult is the creation response: the pending payout plus how many
// credits it consumed and how much they cover.
type PayoutResult struct {
	Payout       Payout
	ItemsCount   int
	CoveredCents AmountCents
}

// Get returns a payout by id.
func (service *PayoutService) Get(ctx context.Context, id PayoutID) (Payout, error) {
	return service.store.GetPayout(ctx, id)
}

// CreatePayout selects eligible HOST_PAYOUT_DUE credits oldest-first until
// they cover the requested amount, then creates a PENDING payout with one
// item per consumed credit, atomically. Rejected when the amount exceeds
// the host's balance, or when disputes and already-consumed credits leave
// too little eligible.
func (service *PayoutService) CreatePayout(ctx context.Context, hostID UserID, amount AmountCents, method, reference, notes string) (PayoutResult, error) {
	var result PayoutResult
	operationError := service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
		if amount.Int64() <= 0 {
			return fmt.Errorf("%w: payout amount must be positive", ErrInvalidAmountCents)
		}
		available, err := hostBalanceCents(ctx, txStore, hostID)
		if err != nil {
			return err
		}
		if amount.Int64() > available.Int64() {
			return fmt.Errorf("%w: requested %d, available %d", ErrInsufficientBalance, amount.Int64(), available.Int64())
		}

		eligible, err := txStore.ListEligiblePayoutCreditsForUpdate(ctx, hostID)
		if err != nil {
			return err
		}
		selected := make([]LedgerEntry, 0, len(eligible))
		var covered int64
		for _, credit := range eligible {
			if covered >= amount.Int64() {
				break
			}
			selected = append(selected, credit)
			covered += credit.AmountCents.Int64()
		}
		if covered < amount.Int64() {
			return fmt.Errorf("%w: eligible credits cover %d of %d", ErrInsufficientEligibleFunds, covered, amount.Int64())
		}

		payout := Payout{
			HostID:         hostID,
			AmountCents:    amount,
			Currency:       service.currency,
			Status:         PayoutPending,
			Method:         method,
			Reference:      reference,
			Notes:          notes,
			CreatedUnixUTC: service.nowFn(),
		}
		items := make([]PayoutItem, 0, len(selected))
		for _, credit := range selected {
			items = append(items, PayoutItem{EntryID: credit.ID})
		}
		if err := txStore.CreatePayout(ctx, &payout, items); err != nil {
			return err
		}
		coveredCents, err := NewAmountCents(covered)
		if err != nil {
			return err
		}
		result = PayoutResult{Payout: payout, ItemsCount: len(items), CoveredCents: coveredCents}
		return nil
	})
	logOperation(ctx, service.logger, OperationLog{
		Operation:   operationCreatePayout,
		Actor:       hostID,
		PayoutID:    result.Payout.ID,
		AmountCents: amount,
		Error:       operationError,
	})
	if operationError != nil {
		return PayoutResult{}, operationError
	}
	return result, nil
}

// MarkPaid settles a pending payout exactly once: stamps paidAt, and posts
// one HOST_PAYOUT debit for the payout's total, referencing the booking of
// its first item. Idempotent on a PAID payout; rejected on a CANCELLED one.
func (service *PayoutService) MarkPaid(ctx context.Context, payoutID PayoutID, method, reference string) (Payout, error) {
	var payout Payout
	operationError := service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
		var err error
		payout, err = txStore.GetPayoutForUpdate(ctx, payoutID)
		if err != nil {
			return err
		}
		if payout.Status == PayoutPaid {
			return nil
		}
		if payout.Status == PayoutCancelled {
			return fmt.Errorf("%w: %s", ErrPayoutCancelled, payoutID.String())
		}
		items, err := txStore.ListPayoutItems(ctx, payoutID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return fmt.Errorf("%w: payout has no items", ErrEntryNotFound)
		}
		firstCredit, err := txStore.GetLedgerEntry(ctx, items[0].EntryID)
		if err != nil {
			return err
		}

		paidAt := service.nowFn()
		if err := txStore.MarkPayoutPaid(ctx, payoutID, method, reference, paidAt); err != nil {
			return err
		}
		debit := LedgerEntry{
			BookingID:       firstCredit.BookingID,
			PaymentIntentID: firstCredit.PaymentIntentID,
			HostID:          payout.HostID,
			Type:            EntryHostPayout,
			Direction:       DirectionDebit,
			AmountCents:     payout.AmountCents,
			Currency:        payout.Currency,
			Status:          EntryPosted,
			Reason:          ReasonPayoutSettlement,
			CreatedUnixUTC:  paidAt,
		}
		if err := txStore.InsertLedgerEntry(ctx, &debit); err != nil {
			return err
		}
		payout.Status = PayoutPaid
		payout.Method = method
		payout.Reference = reference
		payout.PaidAtUnixUTC = paidAt
		return nil
	})
	logOperation(ctx, service.logger, OperationLog{
		Operation:   operationMarkPayoutPaid,
		Actor:       payout.HostID,
		PayoutID:    payoutID,
		AmountCents: payout.AmountCents,
		Error:       operationError,
	})
	if operationError != nil {
		return Payout{}, operationError
	}
	return payout, nil
}
