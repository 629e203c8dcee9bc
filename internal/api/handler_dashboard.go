package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const defaultListLimit = 50

func limitParam(c *gin.Context) int {
	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	return limit
}

// GetLogs handles GET /api/logs.
func (h *Handler) GetLogs(c *gin.Context) {
	logs, err := h.mirror.RecentLogs(c.Request.Context(), limitParam(c))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve logs"})
		return
	}
	c.JSON(http.StatusOK, logs)
}

// GetAppointments handles GET /api/appointments.
func (h *Handler) GetAppointments(c *gin.Context) {
	msgs, err := h.mirror.RecentAppointmentMessages(c.Request.Context(), limitParam(c))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve appointments"})
		return
	}
	c.JSON(http.StatusOK, msgs)
}

// responseView renders an archived snapshot with its payload decoded back
// into JSON rather than as an escaped string.
type responseView struct {
	ID        int64           `json:"id"`
	Timestamp string          `json:"timestamp"`
	Response  json.RawMessage `json:"response"`
}

// GetResponses handles GET /api/responses.
func (h *Handler) GetResponses(c *gin.Context) {
	recs, err := h.mirror.RecentResponses(c.Request.Context(), limitParam(c))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve responses"})
		return
	}

	views := make([]responseView, 0, len(recs))
	for _, r := range recs {
		payload := json.RawMessage(r.Response)
		if !json.Valid(payload) {
			payload, _ = json.Marshal(r.Response)
		}
		views = append(views, responseView{
			ID:        r.ID,
			Timestamp: r.Timestamp.UTC().Format("2006-01-02 15:04:05"),
			Response:  payload,
		})
	}
	c.JSON(http.StatusOK, views)
}

// GetUniqueAppointments handles GET /api/unique_appointments with optional
// ?column=&value= filtering over a whitelisted column set.
func (h *Handler) GetUniqueAppointments(c *gin.Context) {
	column := c.Query("column")
	value := c.Query("value")
	if column != "" && value == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "value is required when column is given"})
		return
	}

	recs, err := h.mirror.FilterUniqueAppointments(c.Request.Context(), column, value, limitParam(c))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, recs)
}

// GetLatestObservation handles GET /api/unique_appointments/:id/latest.
func (h *Handler) GetLatestObservation(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid appointment ID"})
		return
	}

	obs, err := h.mirror.LatestObservation(c.Request.Context(), id)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve observation"})
		return
	}
	if obs == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "No observations for this appointment"})
		return
	}
	c.JSON(http.StatusOK, obs)
}

// GetObservationHistory handles GET /api/unique_appointments/:id/history.
func (h *Handler) GetObservationHistory(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid appointment ID"})
		return
	}

	history, err := h.mirror.ObservationHistory(c.Request.Context(), id)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve history"})
		return
	}
	c.JSON(http.StatusOK, history)
}
