package http

import (
	"github.com/labstack/echo/v4"

	"loan-ledger/internal/adapter/middleware"
)

type Handlers struct {
	Health   *Handler
	Loans    *LoanHandler
	Payments *PaymentHandler
}

// Register mounts the API. idempotency wraps the mutating routes only.
func Register(e *echo.Echo, h Handlers, idempotency echo.MiddlewareFunc) {
	e.GET("/health", h.Health.Health)

	g := e.Group("/loan", middleware.RequireAccount())
	g.GET("", h.Loans.ListLoans)
	g.GET("/:id", h.Loans.GetLoan)
	g.GET("/:id/schedule", h.Loans.GetSchedule)
	g.GET("/:id/payments", h.Payments.ListPayments)
	g.GET("/:id/payments/:paymentId", h.Payments.GetPayment)

	g.POST("", h.Loans.CreateLoan, idempotency)
	g.POST("/:id/payment", h.Payments.MakePayment, idempotency)
	g.POST("/:id/payoff", h.Payments.Payoff, idempotency)
}
