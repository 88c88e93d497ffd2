package rental

import "time"

// CancellationActor is the party asking to cancel.
type CancellationActor string

const (
	ActorRenter CancellationActor = "RENTER"
	ActorHost   CancellationActor = "HOST"
)

// RefundType classifies the refund owed on cancellation.
type RefundType string

const (
	RefundNone RefundType = "NONE"
	RefundFull RefundType = "FULL"
)

// Cancellation decision reason codes.
const (
	ReasonBookingCompleted = "booking_completed"
	ReasonAlreadyCancelled = "already_cancelled"
	ReasonAlreadyRefunded  = "already_refunded"
	ReasonHostCancelled    = "host_cancelled"
	ReasonBeforeStart      = "before_start"
	ReasonAfterStart       = "after_start_penalty"
)

// CancellationDecision is the outcome of the cancellation policy table.
type CancellationDecision struct {
	AllowCancel    bool
	RefundCents    AmountCents
	RefundType     RefundType
	PenaltyApplied bool
	Reason         string
}

// EvaluateCancellation is the single source of truth for whether a
// cancellation is allowed and what refund it owes. It is a pure function:
// callers pass the clock in. A cancellation on the same calendar day as the
// stay's start counts as after start, regardless of time of day.
func EvaluateCancellation(actor CancellationActor, bookingStatus BookingStatus, paymentStatus PaymentStatus, start time.Time, totalCents AmountCents, now time.Time) CancellationDecision {
	if bookingStatus == BookingCompleted {
		return CancellationDecision{Reason: ReasonBookingCompleted, RefundType: RefundNone}
	}
	if bookingStatus == BookingCancelled {
		reason := ReasonAlreadyCancelled
		if paymentStatus == PaymentRefunded {
			reason = ReasonAlreadyRefunded
		}
		return CancellationDecision{AllowCancel: true, Reason: reason, RefundType: RefundNone}
	}
	if actor == ActorHost {
		decision := CancellationDecision{AllowCancel: true, Reason: ReasonHostCancelled, RefundType: RefundNone}
		if paymentStatus == PaymentCaptured {
			decision.RefundCents = totalCents
			decision.RefundType = RefundFull
		}
		return decision
	}
	if now.Before(start) && !sameCalendarDay(now, start) {
		decision := CancellationDecision{AllowCancel: true, Reason: ReasonBeforeStart, RefundType: RefundNone}
		if paymentStatus == PaymentCaptured {
			decision.RefundCents = totalCents
			decision.RefundType = RefundFull
		}
		return decision
	}
	return CancellationDecision{Reason: ReasonAfterStart, RefundType: RefundNone, PenaltyApplied: true}
}
