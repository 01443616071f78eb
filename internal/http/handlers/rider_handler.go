// README: Rider handlers for the view, map picks, device location, and quotes.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type RiderHandler struct {
	session RiderSession
}

func NewRiderHandler(session RiderSession) *RiderHandler {
	return &RiderHandler{session: session}
}

func (h *RiderHandler) View(c *gin.Context) {
	writeJSON(c, http.StatusOK, h.session.View())
}

func (h *RiderHandler) Map(c *gin.Context) {
	writeJSON(c, http.StatusOK, h.session.MapState())
}

func (h *RiderHandler) BeginPick(c *gin.Context) {
	if err := h.session.BeginPick(c.Param("target")); err != nil {
		writeRideError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, h.session.View())
}

func (h *RiderHandler) Tap(c *gin.Context) {
	p, ok := bindPoint(c)
	if !ok {
		return
	}
	accepted := h.session.Tap(p)
	writeJSON(c, http.StatusOK, map[string]any{"accepted": accepted})
}

func (h *RiderHandler) DeviceLocation(c *gin.Context) {
	p, ok := bindPoint(c)
	if !ok {
		return
	}
	h.session.DeviceLocation(p)
	c.Status(http.StatusNoContent)
}

type rideClassReq struct {
	RideClass string `json:"ride_class"`
}

func (h *RiderHandler) SetRideClass(c *gin.Context) {
	var req rideClassReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.session.SetRideClass(c.Request.Context(), req.RideClass); err != nil {
		writeRideError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, h.session.View())
}

func (h *RiderHandler) RetryQuote(c *gin.Context) {
	if _, err := h.session.RetryQuote(c.Request.Context()); err != nil {
		writeRideError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, h.session.View())
}
