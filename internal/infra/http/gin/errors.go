package ginserver

import (
	"errors"
	"net/http"

	gin "github.com/gin-gonic/gin"

	domainavailability "rentloop/internal/domain/availability"
	domainbooking "rentloop/internal/domain/booking"
	domainlistings "rentloop/internal/domain/listings"
	domainpayouts "rentloop/internal/domain/payouts"
)

// writeError maps domain errors onto HTTP statuses. Conflict-shaped errors
// (double booking, stale state transition) become 409 so clients can retry
// with fresh state; payment declines get their own 402.
func writeError(c *gin.Context, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, domainbooking.ErrBookingNotFound),
		errors.Is(err, domainlistings.ErrListingNotFound),
		errors.Is(err, domainpayouts.ErrPayoutNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domainbooking.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, domainbooking.ErrUnavailable),
		errors.Is(err, domainavailability.ErrRangeConflict),
		errors.Is(err, domainbooking.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, domainbooking.ErrPaymentFailed):
		status = http.StatusPaymentRequired
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// actingUser pulls the authenticated user from the request. Authentication
// itself lives in front of this service; the gateway forwards the subject in
// X-User-ID.
func actingUser(c *gin.Context) (string, bool) {
	user := c.GetHeader("X-User-ID")
	if user == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing X-User-ID header"})
		return "", false
	}
	return user, true
}
