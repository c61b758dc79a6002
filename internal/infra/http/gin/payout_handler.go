package ginserver

import (
	"net/http"

	gin "github.com/gin-gonic/gin"

	"rentloop/internal/app/commands"
	"rentloop/internal/app/dto"
	payoutsapp "rentloop/internal/app/handlers/payouts"
	"rentloop/internal/app/queries"
	"rentloop/internal/domain/shared/money"
)

type PayoutHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Currency string
}

func (h PayoutHandler) Earnings(c *gin.Context) {
	user, ok := actingUser(c)
	if !ok {
		return
	}
	q := payoutsapp.GetEarningsQuery{HostID: user}
	result, err := queries.Ask[payoutsapp.GetEarningsQuery, *dto.EarningsView](c.Request.Context(), h.Queries, q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h PayoutHandler) List(c *gin.Context) {
	user, ok := actingUser(c)
	if !ok {
		return
	}
	q := payoutsapp.ListPayoutsQuery{HostID: user}
	result, err := queries.Ask[payoutsapp.ListPayoutsQuery, *dto.PayoutCollection](c.Request.Context(), h.Queries, q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type createPayoutRequest struct {
	Amount    int64  `json:"amount"`
	Method    string `json:"method"`
	Reference string `json:"reference"`
}

func (h PayoutHandler) Create(c *gin.Context) {
	user, ok := actingUser(c)
	if !ok {
		return
	}
	var req createPayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	amount, err := money.New(req.Amount, h.Currency)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := payoutsapp.CreatePayoutCommand{
		PayoutID:        generateCommandID(),
		HostID:          user,
		Amount:          amount,
		Method:          req.Method,
		Reference:       req.Reference,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[payoutsapp.CreatePayoutCommand, *dto.PayoutView](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

type settlePayoutRequest struct {
	Method    string `json:"method"`
	Reference string `json:"reference"`
}

func (h PayoutHandler) Settle(c *gin.Context) {
	user, ok := actingUser(c)
	if !ok {
		return
	}
	var req settlePayoutRequest
	_ = c.ShouldBindJSON(&req)
	cmd := payoutsapp.MarkPayoutPaidCommand{
		PayoutID:  c.Param("id"),
		HostID:    user,
		Method:    req.Method,
		Reference: req.Reference,
	}
	result, err := commands.Dispatch[payoutsapp.MarkPayoutPaidCommand, *dto.PayoutView](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
