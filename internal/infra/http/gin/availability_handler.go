package ginserver

import (
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"

	"rentloop/internal/app/dto"
	availabilityapp "rentloop/internal/app/handlers/availability"
	"rentloop/internal/app/queries"
)

type AvailabilityHandler struct {
	Queries queries.Bus
}

func (h AvailabilityHandler) Calendar(c *gin.Context) {
	q := availabilityapp.GetCalendarQuery{ListingID: c.Param("id")}
	if raw := c.Query("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from: " + err.Error()})
			return
		}
		q.From = from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to: " + err.Error()})
			return
		}
		q.To = to
	}
	result, err := queries.Ask[availabilityapp.GetCalendarQuery, *dto.Calendar](c.Request.Context(), h.Queries, q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AvailabilityHandler) DaySlots(c *gin.Context) {
	raw := c.Query("date")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date query parameter is required"})
		return
	}
	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date: " + err.Error()})
		return
	}
	q := availabilityapp.GetDaySlotsQuery{ListingID: c.Param("id"), Date: date}
	result, err := queries.Ask[availabilityapp.GetDaySlotsQuery, *dto.DaySlots](c.Request.Context(), h.Queries, q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
