package rental

const (
	operationCreateBooking   = "create_booking"
	operationConfirmBooking  = "confirm_booking"
	operationPayBooking      = "pay_booking"
	operationCancelBooking   = "cancel_booking"
	operationCompleteBooking = "complete_booking"
	operationOpenDispute     = "open_dispute"
	operationResolveDispute  = "resolve_dispute"

	operationAuthorizePayment = "authorize_payment"
	operationCapturePayment   = "capture_payment"
	operationRefundPayment    = "refund_payment"
	operationCancelPayment    = "cancel_payment"

	operationPostCapture = "post_capture"
	operationPostRefund  = "post_refund"

	operationCreatePayout   = "create_payout"
	operationMarkPayoutPaid = "mark_payout_paid"

	operationStatusOK    = "ok"
	operationStatusError = "error"

	// DefaultCurrency is used when no currency is configured.
	DefaultCurrency = "USD"
)
