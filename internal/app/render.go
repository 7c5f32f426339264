package app

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/opedromartinss/cotacoes-cafe/internal/fetcher"
	"github.com/opedromartinss/cotacoes-cafe/internal/service"
)

// RenderOptions carry operator-supplied prices for an offline run.
type RenderOptions struct {
	Arabica decimal.Decimal
	Conilon decimal.Decimal
}

// Render runs the artifact writers with fixed prices and no network access.
// Useful for validating the site files and the display patch locally.
func (a *App) Render(ctx context.Context, opts RenderOptions) error {
	if opts.Arabica.Sign() <= 0 || opts.Conilon.Sign() <= 0 {
		return errors.New("--arabica and --conilon must be positive prices")
	}

	referenceDate := time.Now().Format("02/01/2006")
	arabica := &staticQuoteFetcher{quote: staticQuote(opts.Arabica, referenceDate)}
	conilon := &staticQuoteFetcher{quote: staticQuote(opts.Conilon, referenceDate)}

	svc := service.New(a.Config, arabica, conilon, a.newWriter(), nil, nil, nil, a.Logger)
	return svc.Run(ctx)
}

func staticQuote(price decimal.Decimal, referenceDate string) fetcher.Quote {
	return fetcher.Quote{
		ReferenceDate: referenceDate,
		Price:         price,
		Currency:      "BRL",
		Unit:          "saca",
	}
}

type staticQuoteFetcher struct {
	quote fetcher.Quote
}

func (s *staticQuoteFetcher) Fetch(ctx context.Context) (fetcher.Quote, error) {
	return s.quote, nil
}

var _ fetcher.QuoteFetcher = (*staticQuoteFetcher)(nil)
