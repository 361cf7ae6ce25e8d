package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Domenick1991/skyline/internal/domain"
	"github.com/Domenick1991/skyline/internal/service/booking"
	"github.com/gin-gonic/gin"
)

const (
	codeMalformedBody             = "MALFORMED_BODY"
	codeValidation                = "VALIDATION_FAILED"
	codeBookingNotFound           = "BOOKING_NOT_FOUND"
	codeFlightNotFound            = "FLIGHT_NOT_FOUND"
	codeSeatNotFound              = "SEAT_NOT_FOUND"
	codeFlightUnavailable         = "FLIGHT_UNAVAILABLE"
	codeAlreadyCanceled           = "ALREADY_CANCELED"
	codeAlreadyCheckedIn          = "ALREADY_CHECKED_IN"
	codePassengerCountChange      = "PASSENGER_COUNT_CHANGE"
	codeNotTicketed               = "NOT_TICKETED"
	codeCheckInValidation         = "CHECK_IN_VALIDATION"
	codePassengerAlreadyCheckedIn = "PASSENGER_ALREADY_CHECKED_IN"
	codeRequestInProgress         = "REQUEST_IN_PROGRESS"
	codeInternal                  = "INTERNAL_ERROR"
)

type errorDetail struct {
	Cause   string `json:"cause"`
	Message string `json:"message,omitempty"`
}

type errorResponse struct {
	Code    string        `json:"code"`
	Message string        `json:"message"`
	Details []errorDetail `json:"details,omitempty"`
}

var sentinelErrors = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrBookingNotFound, http.StatusNotFound, codeBookingNotFound},
	{domain.ErrFlightNotFound, http.StatusNotFound, codeFlightNotFound},
	{domain.ErrSeatNotFound, http.StatusNotFound, codeSeatNotFound},
	{domain.ErrFlightUnavailable, http.StatusConflict, codeFlightUnavailable},
	{domain.ErrAlreadyCanceled, http.StatusConflict, codeAlreadyCanceled},
	{domain.ErrAlreadyCheckedIn, http.StatusConflict, codeAlreadyCheckedIn},
	{domain.ErrPassengerCountChange, http.StatusConflict, codePassengerCountChange},
	{domain.ErrNotTicketed, http.StatusConflict, codeNotTicketed},
}

// errorStatus maps a service error to its HTTP status and response body.
// Unknown errors become a 500 without any detail.
func errorStatus(err error) (int, errorResponse) {
	var verrs booking.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]errorDetail, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, errorDetail{Cause: fe.Field, Message: fe.Message})
		}
		return http.StatusUnprocessableEntity, errorResponse{Code: codeValidation, Message: "request validation failed", Details: details}
	}

	// a canceled booking whose seats were not released is an integration failure
	var releaseErr *domain.SeatReleaseError
	if errors.As(err, &releaseErr) {
		return http.StatusInternalServerError, errorResponse{Code: codeInternal, Message: "Internal server error"}
	}

	var checkInErr *domain.CheckInValidationError
	if errors.As(err, &checkInErr) {
		return http.StatusConflict, passengerConflict(codeCheckInValidation, checkInErr.Error(), checkInErr.Index)
	}
	var checkedInErr *domain.PassengerAlreadyCheckedInError
	if errors.As(err, &checkedInErr) {
		return http.StatusConflict, passengerConflict(codePassengerAlreadyCheckedIn, checkedInErr.Error(), checkedInErr.Index)
	}

	for _, s := range sentinelErrors {
		if errors.Is(err, s.err) {
			return s.status, errorResponse{Code: s.code, Message: s.err.Error()}
		}
	}
	return http.StatusInternalServerError, errorResponse{Code: codeInternal, Message: "Internal server error"}
}

func passengerConflict(code, message string, index int) errorResponse {
	return errorResponse{
		Code:    code,
		Message: message,
		Details: []errorDetail{{Cause: fmt.Sprintf("body/passengers/%d", index)}},
	}
}

func (h *BookingHandler) writeError(c *gin.Context, err error) {
	status, body := errorStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
	}
	c.JSON(status, body)
}
