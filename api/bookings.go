package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/Domenick1991/skyline/internal/domain"
	"github.com/Domenick1991/skyline/internal/service/booking"
	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	service booking.BookingUseCase
	logger  *slog.Logger
}

func NewBookingHandler(service booking.BookingUseCase, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{service: service, logger: logger}
}

// Register mounts the booking routes. Middleware in create applies to
// POST /booking only.
func (h *BookingHandler) Register(router *gin.RouterGroup, create ...gin.HandlerFunc) {
	router.POST("", append(create, h.create)...)
	router.GET("/:id", h.find)
	router.PUT("/:id", h.update)
	router.POST("/:id/cancel", h.cancel)
	router.POST("/:id/checkIn", h.checkIn)
}

func (h *BookingHandler) create(c *gin.Context) {
	var req booking.CreateBookingInput
	if !h.bind(c, &req) {
		return
	}

	created, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *BookingHandler) find(c *gin.Context) {
	found, err := h.service.Find(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, found)
}

func (h *BookingHandler) update(c *gin.Context) {
	var req booking.UpdateBookingInput
	if !h.bind(c, &req) {
		return
	}

	updated, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *BookingHandler) cancel(c *gin.Context) {
	canceled, err := h.service.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		var releaseErr *domain.SeatReleaseError
		if errors.As(err, &releaseErr) {
			h.logger.Error("seats need manual release", "booking_id", releaseErr.BookingID, "seat_ids", releaseErr.SeatIDs)
		}
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, canceled)
}

func (h *BookingHandler) checkIn(c *gin.Context) {
	var req booking.CheckInInput
	if !h.bind(c, &req) {
		return
	}

	checkedIn, err := h.service.CheckIn(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, checkedIn)
}

func (h *BookingHandler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Code: codeMalformedBody, Message: err.Error()})
		return false
	}
	return true
}
