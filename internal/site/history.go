package site

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/shopspring/decimal"
)

const defaultHistoryLimit = 20

const (
	// TipoArabica identifies arabica history entries.
	TipoArabica = "arabica"
	// TipoConillon identifies conilon entries. The doubled "l" is the
	// spelling the site's data loader matches on, so it stays.
	TipoConillon = "conillon"
)

// HistoryEntry is one commodity price observation in the bounded history
// artifact. Two entries are appended per run, one per grade.
type HistoryEntry struct {
	ReferenteA string  `json:"referente_a"`
	ColetadoEm string  `json:"coletado_em"`
	Produto    string  `json:"produto"`
	Tipo       string  `json:"tipo"`
	Valor      float64 `json:"valor"`
	Unidade    string  `json:"unidade"`
	Moeda      string  `json:"moeda"`
}

// History returns the current history entries, oldest first. A missing file
// yields an empty history. A file that exists but does not parse is treated
// as empty too; see loadHistory.
func (w *Writer) History() ([]HistoryEntry, error) {
	return w.loadHistory()
}

// loadHistory reads the history artifact. A present-but-corrupt file is
// deliberately discarded rather than surfaced as an error: the history is a
// derived, bounded artifact and losing it only costs the last few runs.
// The next write rebuilds it from scratch.
func (w *Writer) loadHistory() ([]HistoryEntry, error) {
	data, err := os.ReadFile(w.opts.HistoryPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}

	var entries []HistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		w.logger.Warn().
			Str("path", w.opts.HistoryPath).
			Err(err).
			Msg("history file is corrupt; discarding and starting over")
		return nil, nil
	}
	return entries, nil
}

// AppendHistory appends one entry per commodity grade and truncates the
// history to its configured limit, dropping the oldest entries first.
func (w *Writer) AppendHistory(arabica, conilon decimal.Decimal, referenceDate string, capturedAt time.Time) error {
	entries, err := w.loadHistory()
	if err != nil {
		return err
	}

	collectedAt := capturedAt.Format(timestampLayout)
	entries = append(entries,
		HistoryEntry{
			ReferenteA: referenceDate,
			ColetadoEm: collectedAt,
			Produto:    "cafe",
			Tipo:       TipoArabica,
			Valor:      arabica.InexactFloat64(),
			Unidade:    "saca",
			Moeda:      "BRL",
		},
		HistoryEntry{
			ReferenteA: referenceDate,
			ColetadoEm: collectedAt,
			Produto:    "cafe",
			Tipo:       TipoConillon,
			Valor:      conilon.InexactFloat64(),
			Unidade:    "saca",
			Moeda:      "BRL",
		},
	)

	// Keep the trailing window. The limit is validated to be a multiple of
	// the per-run entry count, so a run is never split by truncation.
	if len(entries) > w.opts.HistoryLimit {
		entries = entries[len(entries)-w.opts.HistoryLimit:]
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}

	if err := ensureParentDir(w.opts.HistoryPath); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}
	if err := os.WriteFile(w.opts.HistoryPath, data, 0o644); err != nil {
		return fmt.Errorf("write history: %w", err)
	}

	w.logger.Info().
		Str("path", w.opts.HistoryPath).
		Int("entries", len(entries)).
		Msg("history updated")
	return nil
}
