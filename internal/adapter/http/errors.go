package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"loan-ledger/internal/domain/loan"
	"loan-ledger/internal/domain/payment"
)

// retryAfterSeconds is sent with 503 when a loan is locked by another request.
const retryAfterSeconds = "1"

// writeError maps usecase errors to HTTP responses.
func writeError(c echo.Context, err error) error {
	var rejected *loan.PaymentRejectedError
	switch {
	case errors.As(err, &rejected):
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message:          rejected.Error(),
			SuggestedPayment: rejected.SuggestedPayment.StringFixed(2),
		})
	case errors.Is(err, loan.ErrInvalidPaymentAmount), errors.Is(err, loan.ErrInvalidDate):
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Message: err.Error()})
	case errors.Is(err, loan.ErrInvalidInput):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Message: err.Error()})
	case errors.Is(err, loan.ErrAlreadyPaidOff):
		return c.JSON(http.StatusConflict, ErrorResponse{Message: err.Error()})
	case errors.Is(err, loan.ErrNotFound), errors.Is(err, payment.ErrNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{Message: "not found"})
	case errors.Is(err, loan.ErrBusy):
		c.Response().Header().Set("Retry-After", retryAfterSeconds)
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{Message: err.Error()})
	}
	slog.ErrorContext(c.Request().Context(), "request failed",
		"method", c.Request().Method, "path", c.Path(), "err", err)
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "internal error"})
}

func validationFailed(c echo.Context, err error) error {
	return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
		Message: "validation failed",
		Details: ToFieldErrors(err),
	})
}

func invalidBody(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid body"})
}
