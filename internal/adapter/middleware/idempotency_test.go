package middleware

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

const (
	payPath   = "/loan/:id/payment"
	payURL    = "/loan/cccccccccccccccccccccccccccccccc/payment"
	requestID = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	accountID = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

func newMiniredisClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

// setupEcho mounts handler behind the middleware on the payment route.
func setupEcho(rdb *redis.Client, ttl time.Duration, handler echo.HandlerFunc) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(IdempotencyMiddleware(rdb, ttl))
	e.POST(payPath, handler)
	e.GET("/loan/:id", handler)
	return e
}

func validHeaders() map[string]string {
	return map[string]string{
		HeaderRequestID: requestID,
		HeaderRequestAt: time.Now().UTC().Format(time.RFC3339),
		HeaderAccountID: accountID,
	}
}

func doReq(t *testing.T, e *echo.Echo, method, path string, body io.Reader, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func countingHandler(calls *int32, code int) echo.HandlerFunc {
	return func(c echo.Context) error {
		n := atomic.AddInt32(calls, 1)
		return c.JSON(code, map[string]any{"call": n})
	}
}

func Test_BypassOnGET_NoHeadersRequired(t *testing.T) {
	_, rdb := newMiniredisClient(t)
	var calls int32
	e := setupEcho(rdb, 30*time.Second, countingHandler(&calls, http.StatusOK))

	rec := doReq(t, e, http.MethodGet, "/loan/x", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func Test_ValidationFailures(t *testing.T) {
	_, rdb := newMiniredisClient(t)
	var calls int32
	e := setupEcho(rdb, 30*time.Second, countingHandler(&calls, http.StatusCreated))

	cases := []struct {
		name   string
		header string
		value  string // "" removes the header
	}{
		{"missing request id", HeaderRequestID, ""},
		{"invalid request id", HeaderRequestID, "NOT-VALID"},
		{"invalid request at", HeaderRequestAt, "not-a-time"},
		{"skewed request at", HeaderRequestAt, time.Now().UTC().Add(-maxClockSkew - time.Minute).Format(time.RFC3339)},
		{"missing account", HeaderAccountID, ""},
		{"invalid account", HeaderAccountID, "not32hex"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := validHeaders()
			if tc.value == "" {
				delete(h, tc.header)
			} else {
				h[tc.header] = tc.value
			}
			rec := doReq(t, e, http.MethodPost, payURL, strings.NewReader(`{"paymentAmount":"10"}`), h)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("want 400, got %d body=%s", rec.Code, rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), `"message"`) {
				t.Fatalf("error body should carry message: %s", rec.Body.String())
			}
		})
	}
	if calls != 0 {
		t.Fatalf("handler ran %d times for rejected requests", calls)
	}
}

func Test_HappyPath_Then_Replay(t *testing.T) {
	_, rdb := newMiniredisClient(t)
	var calls int32
	e := setupEcho(rdb, 2*time.Minute, countingHandler(&calls, http.StatusOK))

	h := validHeaders()
	rec1 := doReq(t, e, http.MethodPost, payURL, strings.NewReader(`{"paymentAmount":"106.62"}`), h)
	if rec1.Code != http.StatusOK {
		t.Fatalf("first request => want 200, got %d, body: %s", rec1.Code, rec1.Body.String())
	}

	rec2 := doReq(t, e, http.MethodPost, payURL, strings.NewReader(`{"paymentAmount":"106.62"}`), h)
	if rec2.Code != http.StatusOK {
		t.Fatalf("replay => want 200, got %d, body: %s", rec2.Code, rec2.Body.String())
	}
	if rec1.Body.String() != rec2.Body.String() {
		t.Fatalf("replay body mismatch: %q vs %q", rec1.Body.String(), rec2.Body.String())
	}
	if rec2.Header().Get(HeaderReplayed) != "true" {
		t.Fatalf("replayed response should be marked")
	}
	if calls != 1 {
		t.Fatalf("payment handler ran %d times, want 1", calls)
	}
}

func Test_ClientErrorsAreReplayed(t *testing.T) {
	_, rdb := newMiniredisClient(t)
	var calls int32
	e := setupEcho(rdb, 2*time.Minute, countingHandler(&calls, http.StatusUnprocessableEntity))

	h := validHeaders()
	for i := 0; i < 2; i++ {
		rec := doReq(t, e, http.MethodPost, payURL, strings.NewReader(`{"paymentAmount":"9999"}`), h)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("attempt %d => want 422, got %d", i, rec.Code)
		}
	}
	if calls != 1 {
		t.Fatalf("handler ran %d times, want 1", calls)
	}
}

func Test_ServerErrorsAreNotStored(t *testing.T) {
	mr, rdb := newMiniredisClient(t)
	var calls int32
	e := setupEcho(rdb, 2*time.Minute, func(c echo.Context) error {
		if atomic.AddInt32(&calls, 1) == 1 {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"message": "loan is busy, retry later"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "applied"})
	})

	h := validHeaders()
	rec := doReq(t, e, http.MethodPost, payURL, strings.NewReader(`{"paymentAmount":"10"}`), h)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("first attempt => want 503, got %d", rec.Code)
	}
	if mr.Exists(buildKey(http.MethodPost, payPath, accountID, requestID)) {
		t.Fatalf("key should be released after a 5xx")
	}

	rec = doReq(t, e, http.MethodPost, payURL, strings.NewReader(`{"paymentAmount":"10"}`), h)
	if rec.Code != http.StatusOK {
		t.Fatalf("retry => want 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	if calls != 2 {
		t.Fatalf("handler ran %d times, want 2", calls)
	}
}

func Test_KeysAreScopedPerAccount(t *testing.T) {
	_, rdb := newMiniredisClient(t)
	var calls int32
	e := setupEcho(rdb, 2*time.Minute, countingHandler(&calls, http.StatusOK))

	h := validHeaders()
	doReq(t, e, http.MethodPost, payURL, strings.NewReader(`{}`), h)
	h[HeaderAccountID] = strings.Repeat("d", 32)
	doReq(t, e, http.MethodPost, payURL, strings.NewReader(`{}`), h)

	if calls != 2 {
		t.Fatalf("same request id from two accounts ran %d times, want 2", calls)
	}
}

func Test_Conflict_When_InProgress(t *testing.T) {
	_, rdb := newMiniredisClient(t)
	var calls int32
	e := setupEcho(rdb, 2*time.Minute, countingHandler(&calls, http.StatusOK))

	body := []byte(`{"paymentAmount":"10"}`)
	key := buildKey(http.MethodPost, payPath, accountID, requestID)
	entry := idempEntry{
		InProgress:  true,
		BodySHA256:  bodyHash(body),
		RequestID:   requestID,
		RequestAtMS: time.Now().UnixMilli(),
		CreatedAt:   time.Now().UTC(),
	}
	if ok, err := (idempStore{rdb}).reserve(context.Background(), key, entry); err != nil || !ok {
		t.Fatalf("seed provisional failed, ok=%v err=%v", ok, err)
	}

	rec := doReq(t, e, http.MethodPost, payURL, bytes.NewReader(body), validHeaders())
	if rec.Code != http.StatusConflict {
		t.Fatalf("in-progress => want 409, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func Test_Conflict_When_SameReqID_DifferentBody(t *testing.T) {
	_, rdb := newMiniredisClient(t)
	var calls int32
	e := setupEcho(rdb, 2*time.Minute, countingHandler(&calls, http.StatusOK))

	key := buildKey(http.MethodPost, payPath, accountID, requestID)
	final := idempEntry{
		Code:        http.StatusOK,
		Body:        []byte(`{"call":1}`),
		BodySHA256:  bodyHash([]byte(`{"paymentAmount":"10"}`)),
		RequestID:   requestID,
		RequestAtMS: time.Now().UnixMilli(),
		CreatedAt:   time.Now().UTC(),
	}
	if err := (idempStore{rdb}).save(context.Background(), key, final, 5*time.Minute); err != nil {
		t.Fatalf("seed final failed: %v", err)
	}

	rec := doReq(t, e, http.MethodPost, payURL, strings.NewReader(`{"paymentAmount":"20"}`), validHeaders())
	if rec.Code != http.StatusConflict {
		t.Fatalf("different body same reqID => want 409, got %d", rec.Code)
	}
}

func Test_StoreUnavailable_Returns503(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	var calls int32
	e := setupEcho(rdb, time.Minute, countingHandler(&calls, http.StatusOK))

	rec := doReq(t, e, http.MethodPost, payURL, strings.NewReader(`{}`), validHeaders())
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("store unavailable => want 503, got %d", rec.Code)
	}
	if calls != 0 {
		t.Fatalf("handler must not run without the store")
	}
}
