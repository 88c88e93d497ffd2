package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rentloop/rentcore/pkg/rental"
)

const dateLayout = "2006-01-02"

func errorResponse(code string, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}

// respondDomainError translates a domain error into an HTTP status and a
// stable error code. The refund guardrail gets its own code so callers can
// route it to manual reconciliation instead of retrying.
func respondDomainError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, rental.ErrBookingConflict):
		ctx.JSON(http.StatusConflict, errorResponse("booking_conflict", err.Error()))
	case errors.Is(err, rental.ErrRefundAfterPayout):
		ctx.JSON(http.StatusConflict, errorResponse("refund_after_payout", err.Error()))
	case errors.Is(err, rental.ErrPayoutCancelled):
		ctx.JSON(http.StatusConflict, errorResponse("payout_cancelled", err.Error()))
	case errors.Is(err, rental.ErrStaleState):
		ctx.JSON(http.StatusConflict, errorResponse("stale_state", err.Error()))
	case errors.Is(err, rental.ErrForbidden):
		ctx.JSON(http.StatusForbidden, errorResponse("forbidden", err.Error()))
	case errors.Is(err, rental.ErrBookingNotFound),
		errors.Is(err, rental.ErrPaymentIntentNotFound),
		errors.Is(err, rental.ErrPayoutNotFound),
		errors.Is(err, rental.ErrListingNotFound),
		errors.Is(err, rental.ErrEntryNotFound):
		ctx.JSON(http.StatusNotFound, errorResponse("not_found", err.Error()))
	case errors.Is(err, rental.ErrPolicyDenied):
		ctx.JSON(http.StatusUnprocessableEntity, errorResponse("cancellation_denied", err.Error()))
	case errors.Is(err, rental.ErrInsufficientBalance):
		ctx.JSON(http.StatusUnprocessableEntity, errorResponse("insufficient_balance", err.Error()))
	case errors.Is(err, rental.ErrInsufficientEligibleFunds):
		ctx.JSON(http.StatusUnprocessableEntity, errorResponse("insufficient_eligible_funds", err.Error()))
	case errors.Is(err, rental.ErrInvalidTransition):
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_transition", err.Error()))
	case errors.Is(err, rental.ErrListingInactive):
		ctx.JSON(http.StatusBadRequest, errorResponse("listing_inactive", err.Error()))
	case errors.Is(err, rental.ErrInvalidBookingWindow),
		errors.Is(err, rental.ErrInvalidAmountCents),
		errors.Is(err, rental.ErrInvalidUserID),
		errors.Is(err, rental.ErrInvalidListingID),
		errors.Is(err, rental.ErrInvalidBookingID),
		errors.Is(err, rental.ErrInvalidPayoutID):
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_request", err.Error()))
	default:
		ctx.JSON(http.StatusInternalServerError, errorResponse("internal_error", "internal error"))
	}
}

type bookingPayload struct {
	ID             string `json:"id"`
	ListingID      string `json:"listing_id"`
	RenterID       string `json:"renter_id"`
	HostID         string `json:"host_id"`
	Kind           string `json:"kind"`
	StartDate      string `json:"start_date"`
	EndDate        string `json:"end_date"`
	StartMinute    int    `json:"start_minute,omitempty"`
	EndMinute      int    `json:"end_minute,omitempty"`
	TotalCents     int64  `json:"total_cents"`
	CommissionBps  int64  `json:"commission_bps"`
	Status         string `json:"status"`
	DisputeStatus  string `json:"dispute_status"`
	CreatedUnixUTC int64  `json:"created_unix_utc"`
}

func bookingToPayload(booking rental.Booking) bookingPayload {
	return bookingPayload{
		ID:             booking.ID.String(),
		ListingID:      booking.ListingID.String(),
		RenterID:       booking.RenterID.String(),
		HostID:         booking.HostID.String(),
		Kind:           booking.Kind.String(),
		StartDate:      booking.Window.StartDate.Format(dateLayout),
		EndDate:        booking.Window.EndDate.Format(dateLayout),
		StartMinute:    booking.Window.StartMinute,
		EndMinute:      booking.Window.EndMinute,
		TotalCents:     booking.TotalCents.Int64(),
		CommissionBps:  booking.CommissionRate.Int64(),
		Status:         booking.Status.String(),
		DisputeStatus:  booking.Dispute.String(),
		CreatedUnixUTC: booking.CreatedUnixUTC,
	}
}

type paymentIntentPayload struct {
	ID             string `json:"id"`
	BookingID      string `json:"booking_id"`
	RenterID       string `json:"renter_id"`
	HostID         string `json:"host_id"`
	AmountCents    int64  `json:"amount_cents"`
	Currency       string `json:"currency"`
	Status         string `json:"status"`
	CreatedUnixUTC int64  `json:"created_unix_utc"`
}

func intentToPayload(intent rental.PaymentIntent) paymentIntentPayload {
	return paymentIntentPayload{
		ID:             intent.ID.String(),
		BookingID:      intent.BookingID.String(),
		RenterID:       intent.RenterID.String(),
		HostID:         intent.HostID.String(),
		AmountCents:    intent.AmountCents.Int64(),
		Currency:       intent.Currency,
		Status:         intent.Status.String(),
		CreatedUnixUTC: intent.CreatedUnixUTC,
	}
}

type decisionPayload struct {
	AllowCancel    bool   `json:"allow_cancel"`
	RefundCents    int64  `json:"refund_cents"`
	RefundType     string `json:"refund_type"`
	PenaltyApplied bool   `json:"penalty_applied"`
	Reason         string `json:"reason"`
}

func decisionToPayload(decision rental.CancellationDecision) decisionPayload {
	return decisionPayload{
		AllowCancel:    decision.AllowCancel,
		RefundCents:    decision.RefundCents.Int64(),
		RefundType:     string(decision.RefundType),
		PenaltyApplied: decision.PenaltyApplied,
		Reason:         decision.Reason,
	}
}

type payoutPayload struct {
	ID             string `json:"id"`
	HostID         string `json:"host_id"`
	AmountCents    int64  `json:"amount_cents"`
	Currency       string `json:"currency"`
	Status         string `json:"status"`
	Method         string `json:"method,omitempty"`
	Reference      string `json:"reference,omitempty"`
	Notes          string `json:"notes,omitempty"`
	PaidAtUnixUTC  int64  `json:"paid_at_unix_utc,omitempty"`
	CreatedUnixUTC int64  `json:"created_unix_utc"`
}

func payoutToPayload(payout rental.Payout) payoutPayload {
	return payoutPayload{
		ID:             payout.ID.String(),
		HostID:         payout.HostID.String(),
		AmountCents:    payout.AmountCents.Int64(),
		Currency:       payout.Currency,
		Status:         payout.Status.String(),
		Method:         payout.Method,
		Reference:      payout.Reference,
		Notes:          payout.Notes,
		PaidAtUnixUTC:  payout.PaidAtUnixUTC,
		CreatedUnixUTC: payout.CreatedUnixUTC,
	}
}
