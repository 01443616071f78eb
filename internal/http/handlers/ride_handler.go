// README: Ride handlers for submit, cancel, and rating.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type RideHandler struct {
	session RiderSession
}

func NewRideHandler(session RiderSession) *RideHandler {
	return &RideHandler{session: session}
}

func (h *RideHandler) Submit(c *gin.Context) {
	r, err := h.session.Submit(c.Request.Context())
	if err != nil {
		writeRideError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, map[string]any{"ride": r, "state": r.State})
}

func (h *RideHandler) Cancel(c *gin.Context) {
	if err := h.session.Cancel(c.Request.Context()); err != nil {
		writeRideError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, h.session.View())
}

type rateReq struct {
	Score   int    `json:"score"`
	Comment string `json:"comment"`
}

func (h *RideHandler) Rate(c *gin.Context) {
	var req rateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.session.Rate(c.Request.Context(), req.Score, req.Comment); err != nil {
		writeRideError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, h.session.View())
}

func (h *RideHandler) DismissRating(c *gin.Context) {
	h.session.DismissRating()
	writeJSON(c, http.StatusOK, h.session.View())
}
