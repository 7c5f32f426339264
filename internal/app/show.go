package app

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/opedromartinss/cotacoes-cafe/internal/storage"
)

type sampleLister interface {
	ListRecentSamples(ctx context.Context, limit int) ([]storage.QuoteSample, error)
}

// Show prints recent observations: from the archive when a database is
// configured, otherwise from the bounded history artifact.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	if store != nil {
		return a.showArchive(ctx, store, opts)
	}
	return a.showHistoryFile(opts)
}

func (a *App) showArchive(ctx context.Context, store sampleLister, opts ShowOptions) error {
	samples, err := store.ListRecentSamples(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		fmt.Fprintln(os.Stdout, "no samples found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Captured\tReference\tArabica\tConilon\tOpen\tSource")

	for _, sample := range samples {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%v\t%s\n",
			sample.CapturedAt.Format(time.RFC3339),
			sample.ReferenceDate,
			formatDecimal(sample.ArabicaBRL, 2),
			formatDecimal(sample.ConilonBRL, 2),
			sample.MarketOpen,
			sample.Source,
		)
	}

	return writer.Flush()
}

func (a *App) showHistoryFile(opts ShowOptions) error {
	entries, err := a.newWriter().History()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(os.Stdout, "no history entries found")
		return nil
	}

	if opts.Limit > 0 && len(entries) > opts.Limit {
		entries = entries[len(entries)-opts.Limit:]
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Collected\tReference\tType\tValue\tUnit\tCurrency")

	for _, entry := range entries {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%.2f\t%s\t%s\n",
			entry.ColetadoEm,
			entry.ReferenteA,
			entry.Tipo,
			entry.Valor,
			entry.Unidade,
			entry.Moeda,
		)
	}

	return writer.Flush()
}
