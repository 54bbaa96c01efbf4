package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"co2_monitor/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	errFromInvalid  = "invalid 'from' time; use RFC3339 or YYYY-MM-DD"
	errToInvalid    = "invalid 'to' time; use RFC3339 or YYYY-MM-DD"
	errLimitInvalid = "invalid 'limit'; use a positive integer"
	errTierInvalid  = "invalid 'tier'; use none, yellow, orange or red"

	layoutDateTime = "2006-01-02 15:04:05"
	layoutDate     = "2006-01-02"
)

var validTiers = map[string]bool{"none": true, "yellow": true, "orange": true, "red": true}

// isDateOnly reports whether the query string represents a date without time component.
func isDateOnly(s string) bool {
	return !strings.ContainsAny(s, "T ")
}

// @Summary      List notifications
// @Description  Newest first. If 'to' is date-only, it is treated as end-of-day inclusive.
// @Tags         notifications
// @Produce      json
// @Param        from   query  string  false  "Start of range (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD')"  example(2025-08-01)
// @Param        to     query  string  false  "End of range. Date-only treated as end of day."  example(2025-08-31)
// @Param        tier   query  string  false  "Tier"  Enums(none,yellow,orange,red)
// @Param        limit  query  int     false  "Maximum rows (default 100, max 1000)"
// @Success      200  {object}  map[string]interface{}  "count, notifications"
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/notifications [get]
// @Security     BearerAuth
func (h *Handler) listNotifications(c *gin.Context) {
	var (
		from  time.Time
		to    time.Time
		limit int
		tier  = strings.ToLower(strings.TrimSpace(c.Query("tier")))
		err   error
	)
	if qs := c.Query("from"); qs != "" {
		from, err = parseQueryTime(qs)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errFromInvalid})
			return
		}
	}
	if qs := c.Query("to"); qs != "" {
		to, err = parseQueryTime(qs)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errToInvalid})
			return
		}
		if isDateOnly(qs) {
			to = to.Add(24*time.Hour - time.Nanosecond).UTC()
		}
	}
	if qs := c.Query("limit"); qs != "" {
		limit, err = strconv.Atoi(qs)
		if err != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": errLimitInvalid})
			return
		}
	}
	if tier != "" && !validTiers[tier] {
		c.JSON(http.StatusBadRequest, gin.H{"error": errTierInvalid})
		return
	}

	items, err := h.services.List(c.Request.Context(), service.HistoryFilter{
		From:  from,
		To:    to,
		Tier:  tier,
		Limit: limit,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidTimeRange) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "'from' must be <= 'to'"})
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to load notifications", "notifications_list_failed", err,
			"from", from, "to", to, "tier", tier)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":         len(items),
		"notifications": items,
	})
}

func parseQueryTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, layoutDateTime, layoutDate} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf(
		"invalid time format %q, expected one of: "+
			"RFC3339 (e.g. 2025-08-27T15:04:05Z), "+
			"'YYYY-MM-DD HH:MM:SS', "+
			"'YYYY-MM-DD'",
		s,
	)
}
