package fetcher

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Quote is a single commodity price as published by the source widget.
// ReferenceDate is the source-supplied trading date, passed through verbatim.
type Quote struct {
	ReferenceDate string
	Price         decimal.Decimal
	Currency      string
	Unit          string
}

// QuoteFetcher retrieves one commodity quote.
type QuoteFetcher interface {
	Fetch(ctx context.Context) (Quote, error)
}

// FetchError indicates the quote request failed at the transport layer or
// the source answered with a non-success status.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError indicates the response did not contain the expected quote table
// or the price cell did not parse as a number.
type ParseError struct {
	URL    string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse quote from %s: %s", e.URL, e.Reason)
}
