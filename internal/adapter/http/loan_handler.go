package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"loan-ledger/internal/adapter/middleware"
	domain "loan-ledger/internal/domain/loan"
	"loan-ledger/internal/usecase/loan"
)

type LoanHandler struct{ uc *loan.Usecase }

func NewLoanHandler(uc *loan.Usecase) *LoanHandler { return &LoanHandler{uc: uc} }

// createLoanReq accepts numbers or numeric strings for amounts and counts.
// endDate and status are accepted for compatibility; both are derived.
type createLoanReq struct {
	Title                string          `json:"title"                validate:"required,max=120"`
	LenderName           string          `json:"lenderName"           validate:"max=120"`
	Amount               decimal.Decimal `json:"amount"               validate:"gt=0,dec2"`
	InterestRate         decimal.Decimal `json:"interestRate"         validate:"gte=0,lte=100"`
	StartDate            string          `json:"startDate"            validate:"required,datetime=2006-01-02"`
	EndDate              string          `json:"endDate"              validate:"omitempty,datetime=2006-01-02"`
	PaymentFrequency     string          `json:"paymentFrequency"     validate:"required,frequency"`
	CompoundingFrequency string          `json:"compoundingFrequency" validate:"omitempty,frequency"`
	NumberOfPayments     decimal.Decimal `json:"numberOfPayments"     validate:"gt=0,lte=1200,intlike"`
	Status               string          `json:"status"               validate:"omitempty,oneof=active"`
	Notes                string          `json:"notes"                validate:"max=2000"`
}

func (r createLoanReq) input() loan.CreateLoanInput {
	start, _ := time.Parse(time.DateOnly, r.StartDate)
	compounding := r.CompoundingFrequency
	if compounding == "" {
		compounding = r.PaymentFrequency
	}
	return loan.CreateLoanInput{
		Title:                r.Title,
		LenderName:           r.LenderName,
		Amount:               r.Amount,
		InterestRate:         r.InterestRate,
		StartDate:            start,
		PaymentFrequency:     domain.Frequency(r.PaymentFrequency),
		CompoundingFrequency: domain.Frequency(compounding),
		NumberOfPayments:     int(r.NumberOfPayments.IntPart()),
		Notes:                r.Notes,
	}
}

func (h *LoanHandler) CreateLoan(c echo.Context) error {
	var req createLoanReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	if err := c.Validate(&req); err != nil {
		return validationFailed(c, err)
	}
	dto, err := h.uc.Create(c.Request().Context(), middleware.AccountID(c), req.input())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *LoanHandler) ListLoans(c echo.Context) error {
	page := 1
	if raw := c.QueryParam("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Message: "page must be an integer"})
		}
		page = n
	}
	out, err := h.uc.List(c.Request().Context(), middleware.AccountID(c), page)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *LoanHandler) GetLoan(c echo.Context) error {
	dto, err := h.uc.Get(c.Request().Context(), middleware.AccountID(c), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) GetSchedule(c echo.Context) error {
	out, err := h.uc.Schedule(c.Request().Context(), middleware.AccountID(c), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
