package httpserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rentloop/rentcore/pkg/rental"
)

type handler struct {
	logger   *zap.Logger
	bookings *rental.BookingService
	payments *rental.PaymentService
	ledger   *rental.LedgerService
	payouts  *rental.PayoutService
}

type createBookingRequest struct {
	ListingID   string `json:"listing_id" binding:"required"`
	StartDate   string `json:"start_date" binding:"required"`
	EndDate     string `json:"end_date"`
	StartMinute *int   `json:"start_minute"`
	EndMinute   *int   `json:"end_minute"`
}

func (request createBookingRequest) window() (rental.BookingWindow, error) {
	start, err := time.Parse(dateLayout, request.StartDate)
	if err != nil {
		return rental.BookingWindow{}, rental.ErrInvalidBookingWindow
	}
	if request.StartMinute != nil || request.EndMinute != nil {
		if request.StartMinute == nil || request.EndMinute == nil {
			return rental.BookingWindow{}, rental.ErrInvalidBookingWindow
		}
		return rental.NewSlotWindow(start, *request.StartMinute, *request.EndMinute)
	}
	end, err := time.Parse(dateLayout, request.EndDate)
	if err != nil {
		return rental.BookingWindow{}, rental.ErrInvalidBookingWindow
	}
	return rental.NewDailyWindow(start, end)
}

func (handler *handler) handleCreateBooking(ctx *gin.Context) {
	actorID, ok := actorFrom(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, errorResponse("unauthorized", "missing actor"))
		return
	}
	var request createBookingRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	listingID, err := rental.NewListingID(request.ListingID)
	if err != nil {
		respondDomainError(ctx, err)
		return
	}
	window, err := request.window()
	if err != nil {
		respondDomainError(ctx, err)
		return
	}
	booking, err := handler.bookings.Create(ctx.Request.Context(), listingID, actorID, window)
	if err != nil {
		respondDomainError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"booking": bookingToPayload(booking)})
}

func (handler *handler) handleGetBooking(ctx *gin.Context) {
	bookingID, err := rental.NewBookingID(ctx.Param("id"))
	if err != nil {
		respondDomainError(ctx, err)
		return
	}
	booking, err := handler.bookings.Get(ctx.Request.Context(), bookingID)
	if err != nil {
		respondDomainError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"booking": bookingToPayload(booking)})
}

// bookingAction adapts the confirm/pay/complete service calls, which share
// one request/response shape.
func (handler *handler) bookingAction(action func(ctx *gin.Context, bookingID rental.BookingID, actorID rental.UserID) (rental.Booking, error)) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		actorID, ok := actorFrom(ctx)
		if !ok {
			ctx.JSON(http.StatusUnauthorized, errorResponse("unauthorized", "missing actor"))
			return
		}
		bookingID, err := rental.NewBookingID(ctx.Param("id"))
		if err != nil {
			respondDomainError(ctx, err)
			return
		}
		booking, err := action(ctx, bookingID, actorID)
		if err != nil {
			respondDomainError(ctx, err)
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"booking": bookingToPayload(booking)})
	}
}

func (handler *handler) handleCancelBooking(ctx *gin.Context) {
	actorID, ok := actorFrom(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, errorResponse("unauthorized", "missing actor"))
		return
	}
	bookingID, err := rental.NewBookingID(ctx.Param("id"))
	if err != nil {
		respondDomainError(ctx, err)
		return
	}
	booking, decision, err := handler.bookings.Cancel(ctx.Request.Context(), bookingID, actorID)
	if err != nil {
		respondDomainError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"booking":  bookingToPayload(booking),
		"decision": decisionToPayload(decision),
	})
}

func (handler *handler) handleAvailability(ctx *gin.Context) {
	listingID, err := rental.NewListingID(ctx.Param("id"))
	if err != nil {
		respondDomainError(ctx, err)
		return
	}
	request := createBookingRequest{
		ListingID: listingID.String(),
		StartDate: ctx.Query("start_date"),
		EndDate:   ctx.Query("end_date"),
	}
	if raw := ctx.Query("start_minute"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil {
			respondDomainError(ctx, rental.ErrInvalidBookingWindow)
			return
		}
		request.StartMinute = &value
	}
	if raw := ctx.Query("end_minute"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil {
			respondDomainError(ctx, rental.ErrInvalidBookingWindow)
			return
		}
		request.EndMinute = &value
	}
	window, err := request.window()
	if err != nil {
		respondDomainError(ctx, err)
		return
	}
	available, err := handler.bookings.IsAvailable(ctx.Request.Context(), listingID, window)
	if err != nil {
		respondDomainError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"available": available})
}

// paymentAction adapts the authorize/capture/refund/cancel service calls.
func (handler *handler) paymentAction(action func(ctx *gin.Context, bookingID rental.BookingID, actorID rental.UserID) (rental.PaymentIntent, error)) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		actorID, ok := actorFrom(ctx)
		if !ok {
			ctx.JSON(http.StatusUnauthorized, errorResponse("unauthorized", "missing actor"))
			return
		}
		bookingID, err := rental.NewBookingID(ctx.Param("id"))
		if err != nil {
			respondDomainError(ctx, err)
			return
		}
		intent, err := action(ctx, bookingID, actorID)
		if err != nil {
			respondDomainError(ctx, err)
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"payment_intent": intentToPayload(intent)})
	}
}

func (handler *handler) handleGetPayment(ctx *gin.Context) {
	bookingID, err := rental.NewBookingID(ctx.Param("id"))
	if err != nil {
		respondDomainError(ctx, err)
		return
	}
	intent, err := handler.payments.GetByBooking(ctx.Request.Context(), bookingID)
	if err != nil {
		respondDomainError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"payment_intent": intentToPayload(intent)})
}

func (handler *handler) handleHostBalance(ctx *gin.Context) {
	hostID, err := rental.NewUserID(ctx.Param("id"))
	if err != nil {
		respondDomainError(ctx, err)
		return
	}
	balance, err := handler.ledger.HostBalance(ctx.Request.Context(), hostID)
	if err != nil {
		respondDomainError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"balance_cents": balance.AmountCents.Int64(),
		"currency":      balance.Currency,
	})
}

type createPayoutRequest struct {
	HostID      string `json:"host_id" binding:"required"`
	AmountCents int64  `json:"amount_cents" binding:"required"`
	Method      string `json:"method"`
	Reference   string `json:"reference"`
	Notes       string `json:"notes"`
}

func (handler *handler) handleCreatePayout(ctx *gin.Context) {
	var request createPayoutRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	hostID, err := rental.NewUserID(request.HostID)
	if err != nil {
		respondDomainError(ctx, err)
		return
	}
	amount, err := rental.NewPositiveAmountCents(request.AmountCents)
	if err != nil {
		respondDomainError(ctx, err)
		return
	}
	result, err := handler.payouts.CreatePayout(ctx.Request.Context(), hostID, amount, request.Method, request.Reference, request.Notes)
	if err != nil {
		respondDomainError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{
		"payout":        payoutToPayload(result.Payout),
		"items_count":   result.ItemsCount,
		"covered_cents": result.CoveredCents.Int64(),
	})
}

type markPayoutPaidRequest struct {
	Method    string `json:"method" binding:"required"`
	Reference string `json:"reference" binding:"required"`
}

func (handler *handler) handleMarkPayoutPaid(ctx *gin.Context) {
	payoutID, err := rental.NewPayoutID(ctx.Param("id"))
	if err != nil {
		respondDomainError(ctx, err)
		return
	}
	var request markPayoutPaidRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	payout, err := handler.payouts.MarkPaid(ctx.Request.Context(), payoutID, request.Method, request.Reference)
	if err != nil {
		respondDomainError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"payout": payoutToPayload(payout)})
}

func (handler *handler) handleGetPayout(ctx *gin.Context) {
	payoutID, err := rental.NewPayoutID(ctx.Param("id"))
	if err != nil {
		respondDomainError(ctx, err)
		return
	}
	payout, err := handler.payouts.Get(ctx.Request.Context(), payoutID)
	if err != nil {
		respondDomainError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"payout": payoutToPayload(payout)})
}

// disputeAction adapts open/resolve, which only need the booking id.
func (handler *handler) disputeAction(action func(ctx *gin.Context, bookingID rental.BookingID) (rental.Booking, error)) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		bookingID, err := rental.NewBookingID(ctx.Param("id"))
		if err != nil {
			respondDomainError(ctx, err)
			return
		}
		booking, err := action(ctx, bookingID)
		if err != nil {
			respondDomainError(ctx, err)
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"booking": bookingToPayload(booking)})
	}
}
