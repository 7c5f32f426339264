package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const widgetHTML = `<!DOCTYPE html>
<html><body>
<div class="cotacao">
<table>
<thead><tr><th>Data</th><th>Preço</th><th>Variação</th></tr></thead>
<tbody>
<tr><td> 19/09/2025 </td><td> 2.292,66 </td><td>+0,5%</td></tr>
<tr><td>18/09/2025</td><td>2.281,10</td><td>-0,2%</td></tr>
</tbody>
</table>
</div>
</body></html>`

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func newTestFetcher(url string) *NoticiasAgricolas {
	return NewNoticiasAgricolas(Options{
		URL:       url,
		UserAgent: "test-agent",
		Timeout:   time.Second,
	}, noopLogger())
}

func TestFetchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "test-agent" {
			t.Errorf("expected configured User-Agent, got %q", got)
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(widgetHTML))
	}))
	defer srv.Close()

	quote, err := newTestFetcher(srv.URL).Fetch(context.Background())
	if err != nil {
		t.Fatalf("well-formed widget should parse: %v", err)
	}
	if quote.ReferenceDate != "19/09/2025" {
		t.Fatalf("reference date should be the trimmed first cell, got %q", quote.ReferenceDate)
	}
	want := decimal.RequireFromString("2292.66")
	if !quote.Price.Equal(want) {
		t.Fatalf("expected price %s, got %s", want, quote.Price)
	}
	if quote.Currency != "BRL" || quote.Unit != "saca" {
		t.Fatalf("quote should be priced in BRL per saca, got %s/%s", quote.Currency, quote.Unit)
	}
}

func TestFetchNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := newTestFetcher(srv.URL).Fetch(context.Background())
	if err == nil {
		t.Fatal("HTTP 403 should fail the fetch")
	}

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected *FetchError, got %T", err)
	}
	if fetchErr.StatusCode != http.StatusForbidden {
		t.Fatalf("expected status 403 in error, got %d", fetchErr.StatusCode)
	}
}

func TestFetchTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	_, err := newTestFetcher(srv.URL).Fetch(context.Background())
	if err == nil {
		t.Fatal("unreachable server should fail the fetch")
	}

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected *FetchError, got %T", err)
	}
}

func TestFetchParseErrors(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"no table body", `<html><body><p>maintenance</p></body></html>`},
		{"no rows", `<html><body><table><tbody></tbody></table></body></html>`},
		{"single cell", `<html><body><table><tbody><tr><td>19/09/2025</td></tr></tbody></table></body></html>`},
		{"non numeric price", `<html><body><table><tbody><tr><td>19/09/2025</td><td>indisponível</td></tr></tbody></table></body></html>`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := newTestFetcher(srv.URL).Fetch(context.Background())
			if err == nil {
				t.Fatal("malformed widget should fail the fetch")
			}

			var parseErr *ParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("expected *ParseError, got %T (%v)", err, err)
			}
		})
	}
}

func TestParseLocalePrice(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"2.292,66", "2292.66"},
		{"1.402,21", "1402.21"},
		{"985,00", "985.00"},
		{"1.234.567,89", "1234567.89"},
	}

	for _, tc := range cases {
		got, err := parseLocalePrice(tc.raw)
		if err != nil {
			t.Fatalf("parseLocalePrice(%q): %v", tc.raw, err)
		}
		if !got.Equal(decimal.RequireFromString(tc.want)) {
			t.Fatalf("parseLocalePrice(%q) = %s, want %s", tc.raw, got, tc.want)
		}
	}

	if _, err := parseLocalePrice("n/d"); err == nil {
		t.Fatal("non-numeric input should not parse")
	}
}
