package app

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opedromartinss/cotacoes-cafe/internal/storage"
)

func sampleSeries(n int) []storage.QuoteSample {
	start := time.Date(2025, 9, 1, 9, 0, 0, 0, time.Local)
	samples := make([]storage.QuoteSample, 0, n)
	for i := 0; i < n; i++ {
		samples = append(samples, storage.QuoteSample{
			CapturedAt: start.AddDate(0, 0, i),
			ArabicaBRL: decimal.NewFromInt(int64(2000 + i)),
			ConilonBRL: decimal.NewFromInt(int64(1400 + i)),
		})
	}
	return samples
}

func TestDownsampleSamplesWithinLimit(t *testing.T) {
	samples := sampleSeries(5)

	assert.Len(t, downsampleSamples(samples, 10), 5, "fewer samples than max pass through")
	assert.Len(t, downsampleSamples(samples, 5), 5)
	assert.Len(t, downsampleSamples(samples, 0), 5, "non-positive max disables downsampling")
}

func TestDownsampleSamplesKeepsEndpoints(t *testing.T) {
	samples := sampleSeries(11)

	got := downsampleSamples(samples, 3)
	require.Len(t, got, 3)
	assert.Equal(t, samples[0].CapturedAt, got[0].CapturedAt)
	assert.Equal(t, samples[10].CapturedAt, got[2].CapturedAt)
}

func TestDownsampleSamplesToSinglePoint(t *testing.T) {
	samples := sampleSeries(3)

	got := downsampleSamples(samples, 1)
	require.Len(t, got, 1)
	assert.Equal(t, samples[2].CapturedAt, got[0].CapturedAt, "a single-point window keeps the most recent sample")
}
