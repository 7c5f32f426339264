package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Options parameterise a widget fetcher.
type Options struct {
	URL       string
	UserAgent string
	Timeout   time.Duration
}

// NoticiasAgricolas scrapes one Notícias Agrícolas quote widget. The widget
// serves an HTML fragment whose first table row carries the reference date
// and the price in Brazilian locale format ("2.292,66").
type NoticiasAgricolas struct {
	opts   Options
	logger zerolog.Logger
	client *resty.Client
}

// NewNoticiasAgricolas constructs a widget fetcher.
func NewNoticiasAgricolas(opts Options, logger zerolog.Logger) *NoticiasAgricolas {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := resty.New().SetTimeout(timeout)
	if opts.UserAgent != "" {
		client.SetHeader("User-Agent", opts.UserAgent)
	}

	return &NoticiasAgricolas{
		opts:   opts,
		logger: logger.With().Str("component", "quote_fetcher").Str("url", opts.URL).Logger(),
		client: client,
	}
}

// Fetch retrieves and parses the widget. There is no retry: any failure is
// returned to the caller and aborts the run.
func (f *NoticiasAgricolas) Fetch(ctx context.Context) (Quote, error) {
	res, err := f.client.R().
		SetContext(ctx).
		Get(f.opts.URL)
	if err != nil {
		return Quote{}, &FetchError{URL: f.opts.URL, Err: err}
	}

	if res.StatusCode() < 200 || res.StatusCode() >= 300 {
		return Quote{}, &FetchError{URL: f.opts.URL, StatusCode: res.StatusCode()}
	}

	quote, err := f.parseQuote(res.Body())
	if err != nil {
		return Quote{}, err
	}

	f.logger.Debug().
		Str("reference_date", quote.ReferenceDate).
		Str("price", quote.Price.String()).
		Msg("quote fetched")
	return quote, nil
}

func (f *NoticiasAgricolas) parseQuote(body []byte) (Quote, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Quote{}, &ParseError{URL: f.opts.URL, Reason: "invalid html: " + err.Error()}
	}

	tbody := doc.Find("tbody").First()
	if tbody.Length() == 0 {
		return Quote{}, &ParseError{URL: f.opts.URL, Reason: "quote table body not found"}
	}

	row := tbody.Find("tr").First()
	if row.Length() == 0 {
		return Quote{}, &ParseError{URL: f.opts.URL, Reason: "quote table has no rows"}
	}

	cells := row.Find("td")
	if cells.Length() < 2 {
		return Quote{}, &ParseError{URL: f.opts.URL, Reason: "quote row has fewer than two cells"}
	}

	referenceDate := strings.TrimSpace(cells.Eq(0).Text())
	rawPrice := strings.TrimSpace(cells.Eq(1).Text())

	price, err := parseLocalePrice(rawPrice)
	if err != nil {
		return Quote{}, &ParseError{URL: f.opts.URL, Reason: fmt.Sprintf("price cell %q is not a number", rawPrice)}
	}

	return Quote{
		ReferenceDate: referenceDate,
		Price:         price,
		Currency:      "BRL",
		Unit:          "saca",
	}, nil
}

// parseLocalePrice normalises a pt-BR formatted number ("." thousands
// separator, "," decimal separator) and parses it as a decimal.
func parseLocalePrice(raw string) (decimal.Decimal, error) {
	normalized := strings.ReplaceAll(raw, ".", "")
	normalized = strings.ReplaceAll(normalized, ",", ".")
	return decimal.NewFromString(normalized)
}

var _ QuoteFetcher = (*NoticiasAgricolas)(nil)
