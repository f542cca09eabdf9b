package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestRequireAccount(t *testing.T) {
	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"valid", accountID, http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"uppercase", "BBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB", http.StatusUnauthorized},
		{"short", "bbbb", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := echo.New()
			var seen string
			e.GET("/loan", func(c echo.Context) error {
				seen = AccountID(c)
				return c.NoContent(http.StatusOK)
			}, RequireAccount())

			req := httptest.NewRequest(http.MethodGet, "/loan", nil)
			if tc.header != "" {
				req.Header.Set(HeaderAccountID, tc.header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
			if tc.want == http.StatusOK && seen != accountID {
				t.Fatalf("AccountID = %q", seen)
			}
		})
	}
}
