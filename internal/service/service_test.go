package service

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opedromartinss/cotacoes-cafe/internal/alerting"
	"github.com/opedromartinss/cotacoes-cafe/internal/config"
	"github.com/opedromartinss/cotacoes-cafe/internal/fetcher"
	"github.com/opedromartinss/cotacoes-cafe/internal/site"
)

type staticFetcher struct {
	quote fetcher.Quote
	err   error
}

func (s *staticFetcher) Fetch(ctx context.Context) (fetcher.Quote, error) {
	if s.err != nil {
		return fetcher.Quote{}, s.err
	}
	return s.quote, nil
}

type recordingNotifier struct {
	notes []alerting.Notification
}

func (r *recordingNotifier) Notify(ctx context.Context, note alerting.Notification) error {
	r.notes = append(r.notes, note)
	return nil
}

func quoteOf(price, referenceDate string) fetcher.Quote {
	return fetcher.Quote{
		ReferenceDate: referenceDate,
		Price:         decimal.RequireFromString(price),
		Currency:      "BRL",
		Unit:          "saca",
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Source: config.SourceConfig{Label: "Notícias Agrícolas"},
	}
}

func newTestService(t *testing.T, cfg *config.Config, arabica, conilon fetcher.QuoteFetcher, notifier alerting.Notifier) (*Service, string) {
	t.Helper()
	dir := t.TempDir()
	writer := site.NewWriter(site.Options{
		SnapshotPath: filepath.Join(dir, "prices.json"),
		HistoryPath:  filepath.Join(dir, "precos.json"),
		DisplayPath:  filepath.Join(dir, "index.html"),
		HistoryLimit: 20,
	}, zerolog.Nop())

	svc := New(cfg, arabica, conilon, writer, nil, nil, notifier, zerolog.Nop())
	return svc, dir
}

func TestRunEndToEnd(t *testing.T) {
	arabica := &staticFetcher{quote: quoteOf("2292.66", "19/09/2025")}
	conilon := &staticFetcher{quote: quoteOf("1402.21", "19/09/2025")}

	svc, dir := newTestService(t, testConfig(), arabica, conilon, nil)
	friday := time.Date(2025, 9, 19, 18, 20, 18, 0, time.Local)
	svc.now = func() time.Time { return friday }

	displayPath := filepath.Join(dir, "index.html")
	page := `<html><body><span id="preco-arabica"></span><span id="preco-robusta"></span></body></html>`
	require.NoError(t, os.WriteFile(displayPath, []byte(page), 0o644))

	require.NoError(t, svc.Run(context.Background()))

	// Snapshot: market open on a Friday, both prices present.
	var snap site.Snapshot
	data, err := os.ReadFile(filepath.Join(dir, "prices.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.True(t, snap.PregaoAberto)
	assert.Equal(t, 2292.66, snap.Cafe.Arabica.Preco)
	assert.Equal(t, 1402.21, snap.Cafe.Conilon.Preco)

	// History: exactly one run's entries, reference date is the capture date.
	var entries []site.HistoryEntry
	data, err = os.ReadFile(filepath.Join(dir, "precos.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "19/09/2025", entries[0].ReferenteA)

	// Display: both anchors patched with formatted prices.
	data, err = os.ReadFile(displayPath)
	require.NoError(t, err)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(data)))
	require.NoError(t, err)
	assert.Equal(t, "R$2.292,66", doc.Find("#preco-arabica").Text())
	assert.Equal(t, "R$1.402,21", doc.Find("#preco-robusta").Text())
}

func TestRunWeekendSnapshot(t *testing.T) {
	arabica := &staticFetcher{quote: quoteOf("2292.66", "19/09/2025")}
	conilon := &staticFetcher{quote: quoteOf("1402.21", "19/09/2025")}

	svc, dir := newTestService(t, testConfig(), arabica, conilon, nil)
	saturday := time.Date(2025, 9, 20, 12, 0, 0, 0, time.Local)
	svc.now = func() time.Time { return saturday }

	require.NoError(t, svc.Run(context.Background()))

	var snap site.Snapshot
	data, err := os.ReadFile(filepath.Join(dir, "prices.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.False(t, snap.PregaoAberto, "weekend capture closes the market flag regardless of prices")
}

func TestRunAbortsBeforeWritesOnFetchFailure(t *testing.T) {
	cases := []struct {
		name    string
		arabica *staticFetcher
		conilon *staticFetcher
	}{
		{
			name:    "first fetch fails",
			arabica: &staticFetcher{err: errors.New("widget unavailable")},
			conilon: &staticFetcher{quote: quoteOf("1402.21", "19/09/2025")},
		},
		{
			name:    "second fetch fails",
			arabica: &staticFetcher{quote: quoteOf("2292.66", "19/09/2025")},
			conilon: &staticFetcher{err: errors.New("widget unavailable")},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, dir := newTestService(t, testConfig(), tc.arabica, tc.conilon, nil)

			err := svc.Run(context.Background())
			require.Error(t, err)

			// Both quotes are required before any writer runs.
			_, statErr := os.Stat(filepath.Join(dir, "prices.json"))
			assert.True(t, os.IsNotExist(statErr))
			_, statErr = os.Stat(filepath.Join(dir, "precos.json"))
			assert.True(t, os.IsNotExist(statErr))
		})
	}
}

func TestRunEmitsAlertOnThresholdBreach(t *testing.T) {
	cfg := testConfig()
	cfg.Alerting = config.AlertingConfig{
		Enabled:      true,
		ThresholdPct: 2.0,
		Channels:     []string{"telegram"},
	}

	notifier := &recordingNotifier{}
	arabica := &staticFetcher{quote: quoteOf("2000.00", "18/09/2025")}
	conilon := &staticFetcher{quote: quoteOf("1400.00", "18/09/2025")}
	svc, _ := newTestService(t, cfg, arabica, conilon, notifier)

	// First run seeds the history; no previous value, so no alert.
	require.NoError(t, svc.Run(context.Background()))
	assert.Empty(t, notifier.notes)

	// Arabica jumps 5%, conilon stays flat: exactly one alert.
	arabica.quote = quoteOf("2100.00", "19/09/2025")
	require.NoError(t, svc.Run(context.Background()))

	require.Len(t, notifier.notes, 1)
	note := notifier.notes[0]
	assert.Equal(t, site.TipoArabica, note.Grade)
	assert.True(t, note.ChangePct.Equal(decimal.RequireFromString("5")), "change pct was %s", note.ChangePct)
	assert.True(t, note.PreviousBRL.Equal(decimal.RequireFromString("2000")))
	assert.True(t, note.CurrentBRL.Equal(decimal.RequireFromString("2100")))
}

func TestRunNoAlertBelowThreshold(t *testing.T) {
	cfg := testConfig()
	cfg.Alerting = config.AlertingConfig{
		Enabled:      true,
		ThresholdPct: 2.0,
		Channels:     []string{"telegram"},
	}

	notifier := &recordingNotifier{}
	arabica := &staticFetcher{quote: quoteOf("2000.00", "18/09/2025")}
	conilon := &staticFetcher{quote: quoteOf("1400.00", "18/09/2025")}
	svc, _ := newTestService(t, cfg, arabica, conilon, notifier)

	require.NoError(t, svc.Run(context.Background()))

	arabica.quote = quoteOf("2020.00", "19/09/2025") // +1%
	require.NoError(t, svc.Run(context.Background()))

	assert.Empty(t, notifier.notes)
}
