package ginserver

import (
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"rentloop/internal/app/commands"
	"rentloop/internal/app/dto"
	bookingapp "rentloop/internal/app/handlers/booking"
	"rentloop/internal/app/queries"
)

type BookingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
}

type createBookingRequest struct {
	ListingID string    `json:"listing_id"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
}

func (h BookingHandler) Create(c *gin.Context) {
	user, ok := actingUser(c)
	if !ok {
		return
	}
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := bookingapp.CreateBookingCommand{
		CommandID:       generateCommandID(),
		ListingID:       req.ListingID,
		RenterID:        user,
		Start:           req.Start,
		End:             req.End,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[bookingapp.CreateBookingCommand, *dto.BookingView](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h BookingHandler) Confirm(c *gin.Context) {
	user, ok := actingUser(c)
	if !ok {
		return
	}
	cmd := bookingapp.ConfirmBookingCommand{BookingID: c.Param("id"), ActingHostID: user}
	result, err := commands.Dispatch[bookingapp.ConfirmBookingCommand, *dto.BookingView](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

func (h BookingHandler) Reject(c *gin.Context) {
	user, ok := actingUser(c)
	if !ok {
		return
	}
	var req reasonRequest
	_ = c.ShouldBindJSON(&req)
	cmd := bookingapp.RejectBookingCommand{BookingID: c.Param("id"), ActingHostID: user, Reason: req.Reason}
	result, err := commands.Dispatch[bookingapp.RejectBookingCommand, *dto.BookingView](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type payBookingRequest struct {
	PaymentToken string `json:"payment_token"`
}

func (h BookingHandler) Pay(c *gin.Context) {
	user, ok := actingUser(c)
	if !ok {
		return
	}
	var req payBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := bookingapp.PayBookingCommand{
		BookingID:       c.Param("id"),
		ActingRenterID:  user,
		PaymentToken:    req.PaymentToken,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[bookingapp.PayBookingCommand, *dto.BookingView](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Cancel(c *gin.Context) {
	user, ok := actingUser(c)
	if !ok {
		return
	}
	var req reasonRequest
	_ = c.ShouldBindJSON(&req)
	cmd := bookingapp.CancelBookingCommand{BookingID: c.Param("id"), ActingUserID: user, Reason: req.Reason}
	result, err := commands.Dispatch[bookingapp.CancelBookingCommand, *dto.CancellationView](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Complete(c *gin.Context) {
	user, ok := actingUser(c)
	if !ok {
		return
	}
	cmd := bookingapp.CompleteBookingCommand{BookingID: c.Param("id"), ActingUserID: user}
	result, err := commands.Dispatch[bookingapp.CompleteBookingCommand, *dto.BookingView](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Get(c *gin.Context) {
	user, ok := actingUser(c)
	if !ok {
		return
	}
	q := bookingapp.GetBookingQuery{BookingID: c.Param("id"), ActingUserID: user}
	result, err := queries.Ask[bookingapp.GetBookingQuery, *dto.BookingView](c.Request.Context(), h.Queries, q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) NextStates(c *gin.Context) {
	user, ok := actingUser(c)
	if !ok {
		return
	}
	q := bookingapp.NextStatesQuery{BookingID: c.Param("id"), ActingUserID: user}
	result, err := queries.Ask[bookingapp.NextStatesQuery, *dto.NextStatesView](c.Request.Context(), h.Queries, q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) ListMine(c *gin.Context) {
	user, ok := actingUser(c)
	if !ok {
		return
	}
	q := bookingapp.ListRenterBookingsQuery{RenterID: user}
	result, err := queries.Ask[bookingapp.ListRenterBookingsQuery, *dto.BookingCollection](c.Request.Context(), h.Queries, q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) ListForHost(c *gin.Context) {
	user, ok := actingUser(c)
	if !ok {
		return
	}
	q := bookingapp.ListHostBookingsQuery{HostID: user}
	result, err := queries.Ask[bookingapp.ListHostBookingsQuery, *dto.BookingCollection](c.Request.Context(), h.Queries, q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func generateCommandID() string {
	return uuid.NewString()
}
