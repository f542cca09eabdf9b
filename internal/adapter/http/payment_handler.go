package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"loan-ledger/internal/adapter/middleware"
	"loan-ledger/internal/usecase/payment"
)

type PaymentHandler struct{ uc *payment.Usecase }

func NewPaymentHandler(uc *payment.Usecase) *PaymentHandler { return &PaymentHandler{uc: uc} }

// Amount sign and size are checked by the ledger so the client gets the
// domain error and, for oversized payments, a suggested payoff amount.
type makePaymentReq struct {
	PaymentAmount decimal.Decimal `json:"paymentAmount" validate:"dec2"`
	PaymentDate   string          `json:"paymentDate"   validate:"omitempty,datetime=2006-01-02"`
}

type payoffReq struct {
	PayoffDate string `json:"payoffDate" validate:"omitempty,datetime=2006-01-02"`
}

// parseDay returns the zero time for "", which the usecase reads as today.
func parseDay(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.DateOnly, s)
	return t
}

func (h *PaymentHandler) MakePayment(c echo.Context) error {
	var req makePaymentReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	if err := c.Validate(&req); err != nil {
		return validationFailed(c, err)
	}
	out, err := h.uc.Pay(c.Request().Context(), middleware.AccountID(c), c.Param("id"), payment.PayInput{
		Amount:      req.PaymentAmount,
		PaymentDate: parseDay(req.PaymentDate),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *PaymentHandler) Payoff(c echo.Context) error {
	var req payoffReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	if err := c.Validate(&req); err != nil {
		return validationFailed(c, err)
	}
	out, err := h.uc.Payoff(c.Request().Context(), middleware.AccountID(c), c.Param("id"), parseDay(req.PayoffDate))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *PaymentHandler) ListPayments(c echo.Context) error {
	out, err := h.uc.History(c.Request().Context(), middleware.AccountID(c), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *PaymentHandler) GetPayment(c echo.Context) error {
	out, err := h.uc.Receipt(c.Request().Context(), middleware.AccountID(c), c.Param("id"), c.Param("paymentId"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
