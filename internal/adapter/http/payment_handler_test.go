package http

import (
	"context"
	"encoding/json"
	stdhttp "net/http"
	"testing"

	"loan-ledger/internal/domain/lock"
	"loan-ledger/internal/testutil/memstore"
	ucPayment "loan-ledger/internal/usecase/payment"
)

func newPaymentServer(t *testing.T) (*memstore.Store, func(method, path string, body any) (int, []byte)) {
	t.Helper()
	store := memstore.New()
	store.Seed(seededLoan(t))
	e := newServer(nil, store)
	return store, func(method, path string, body any) (int, []byte) {
		rec := serve(e, method, path, body)
		return rec.Code, rec.Body.Bytes()
	}
}

func TestMakePayment_Success(t *testing.T) {
	store, do := newPaymentServer(t)

	code, body := do(stdhttp.MethodPost, "/loan/"+testLoanID+"/payment", map[string]any{
		"paymentAmount": "106.62",
		"paymentDate":   "2025-02-01",
	})
	if code != stdhttp.StatusOK {
		t.Fatalf("status = %d body=%s", code, body)
	}
	var out ucPayment.PayResultDTO
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if out.PaymentDetails.Interest != "12.00" || out.PaymentDetails.PrincipalPaid != "94.62" {
		t.Fatalf("payment details: %+v", out.PaymentDetails)
	}
	if out.PaymentProgress.RemainingBalance != "1105.38" || out.PaymentProgress.PaymentsRemaining != 11 {
		t.Fatalf("progress: %+v", out.PaymentProgress)
	}
	var raw map[string]any
	_ = json.Unmarshal(body, &raw)
	if _, ok := raw["payoffDetails"]; ok {
		t.Fatalf("payoffDetails should be omitted for a regular payment")
	}

	l, _ := store.Loan(testLoanID)
	if l.RemainingBalance.StringFixed(2) != "1105.38" {
		t.Fatalf("stored balance = %s", l.RemainingBalance)
	}
}

func TestMakePayment_Errors(t *testing.T) {
	_, do := newPaymentServer(t)

	cases := []struct {
		name     string
		loanID   string
		body     map[string]any
		want     int
		suggests string
	}{
		{"oversized", testLoanID, map[string]any{"paymentAmount": "1320.01", "paymentDate": "2025-02-01"}, stdhttp.StatusUnprocessableEntity, "1212.00"},
		{"zero", testLoanID, map[string]any{"paymentAmount": "0", "paymentDate": "2025-02-01"}, stdhttp.StatusUnprocessableEntity, ""},
		{"before start", testLoanID, map[string]any{"paymentAmount": "10", "paymentDate": "2024-12-01"}, stdhttp.StatusUnprocessableEntity, ""},
		{"bad date format", testLoanID, map[string]any{"paymentAmount": "10", "paymentDate": "2025-2-1"}, stdhttp.StatusUnprocessableEntity, ""},
		{"unknown loan", "dddddddddddddddddddddddddddddddd", map[string]any{"paymentAmount": "10"}, stdhttp.StatusNotFound, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, body := do(stdhttp.MethodPost, "/loan/"+tc.loanID+"/payment", tc.body)
			if code != tc.want {
				t.Fatalf("status = %d, want %d; body=%s", code, tc.want, body)
			}
			var er ErrorResponse
			if err := json.Unmarshal(body, &er); err != nil {
				t.Fatalf("bad json: %v", err)
			}
			if er.Message == "" || er.SuggestedPayment != tc.suggests {
				t.Fatalf("unexpected error body: %+v", er)
			}
		})
	}
}

func TestPayoff_ThenPaymentConflicts(t *testing.T) {
	store, do := newPaymentServer(t)

	code, body := do(stdhttp.MethodPost, "/loan/"+testLoanID+"/payoff", map[string]any{"payoffDate": "2025-01-01"})
	if code != stdhttp.StatusOK {
		t.Fatalf("status = %d body=%s", code, body)
	}
	var out ucPayment.PayoffResultDTO
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if out.PayoffDetails.FinalPayment != "1200.00" || out.PayoffDetails.Savings != "79.42" {
		t.Fatalf("payoff details: %+v", out.PayoffDetails)
	}

	code, _ = do(stdhttp.MethodPost, "/loan/"+testLoanID+"/payment", map[string]any{"paymentAmount": "10", "paymentDate": "2025-02-01"})
	if code != stdhttp.StatusConflict {
		t.Fatalf("payment after payoff => %d, want 409", code)
	}
	code, _ = do(stdhttp.MethodPost, "/loan/"+testLoanID+"/payoff", nil)
	if code != stdhttp.StatusConflict {
		t.Fatalf("second payoff => %d, want 409", code)
	}

	code, body = do(stdhttp.MethodGet, "/loan/"+testLoanID+"/payments", nil)
	if code != stdhttp.StatusOK {
		t.Fatalf("history status = %d", code)
	}
	var h ucPayment.HistoryDTO
	_ = json.Unmarshal(body, &h)
	if len(h.Payments) != 1 || h.Payments[0].Kind != "payoff" {
		t.Fatalf("history: %+v", h)
	}
	if l, _ := store.Loan(testLoanID); l.Status != "paid_off" {
		t.Fatalf("status = %s", l.Status)
	}
}

type busyLocker struct{}

func (busyLocker) Acquire(context.Context, string) (func(), error) { return nil, lock.ErrTimeout }

func TestMakePayment_BusyReturns503(t *testing.T) {
	store := memstore.New()
	store.Seed(seededLoan(t))
	repos := store.Repos()
	h := NewPaymentHandler(ucPayment.NewUsecase(repos.Loans, repos.Payments, store, busyLocker{}))

	e := newEchoWithValidator()
	Register(e, Handlers{Health: NewHandler(nil), Loans: NewLoanHandler(nil), Payments: h}, passthrough)

	rec := serve(e, stdhttp.MethodPost, "/loan/"+testLoanID+"/payment", map[string]any{"paymentAmount": "10"})
	if rec.Code != stdhttp.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatalf("Retry-After header missing")
	}
	if l, _ := store.Loan(testLoanID); !l.AmountPaid.IsZero() {
		t.Fatalf("busy request must not change the loan")
	}
}

func TestMakePayment_NumericAmount(t *testing.T) {
	store, do := newPaymentServer(t)

	// the mobile client sends parseFloat output
	code, body := do(stdhttp.MethodPost, "/loan/"+testLoanID+"/payment", map[string]any{
		"paymentAmount": 106.62,
		"paymentDate":   "2025-02-01",
	})
	if code != stdhttp.StatusOK {
		t.Fatalf("status = %d body=%s", code, body)
	}
	var out ucPayment.PayResultDTO
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if out.PaymentDetails.Amount != "106.62" || out.PaymentProgress.RemainingBalance != "1105.38" {
		t.Fatalf("unexpected result: %+v", out)
	}

	code, _ = do(stdhttp.MethodPost, "/loan/"+testLoanID+"/payment", map[string]any{"paymentAmount": 10.005})
	if code != stdhttp.StatusUnprocessableEntity {
		t.Fatalf("three decimals => %d, want 422", code)
	}
	if l, _ := store.Loan(testLoanID); !l.AmountPaid.Equal(l.PaymentAmount) {
		t.Fatalf("amountPaid = %s", l.AmountPaid)
	}
}

func TestGetPayment(t *testing.T) {
	store, do := newPaymentServer(t)

	code, body := do(stdhttp.MethodPost, "/loan/"+testLoanID+"/payment", map[string]any{"paymentAmount": "106.62", "paymentDate": "2025-02-01"})
	if code != stdhttp.StatusOK {
		t.Fatalf("pay status = %d body=%s", code, body)
	}
	paymentID := store.Payments()[0].PaymentID

	code, body = do(stdhttp.MethodGet, "/loan/"+testLoanID+"/payments/"+paymentID, nil)
	if code != stdhttp.StatusOK {
		t.Fatalf("status = %d body=%s", code, body)
	}
	var p ucPayment.PaymentDTO
	if err := json.Unmarshal(body, &p); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if p.PaymentID != paymentID || p.Interest != "12.00" || p.BalanceAfter != "1105.38" {
		t.Fatalf("payment: %+v", p)
	}

	code, _ = do(stdhttp.MethodGet, "/loan/"+testLoanID+"/payments/dddddddddddddddddddddddddddddddd", nil)
	if code != stdhttp.StatusNotFound {
		t.Fatalf("unknown payment => %d, want 404", code)
	}
}
