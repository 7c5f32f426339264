package site

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
)

const (
	arabicaAnchor = "#preco-arabica"
	robustaAnchor = "#preco-robusta"
)

// PatchDisplay rewrites the two price anchors inside the landing page,
// leaving the rest of the document as the parser round-trips it. A missing
// document or a missing anchor is not an error: the page is owned by the
// site and may legitimately not carry the anchors yet.
func (w *Writer) PatchDisplay(arabica, conilon decimal.Decimal) error {
	path := w.opts.DisplayPath
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		w.logger.Debug().Str("path", path).Msg("display document absent; skipping patch")
		return nil
	}
	if err != nil {
		return fmt.Errorf("read display document: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("parse display document: %w", err)
	}

	patched := 0
	if sel := doc.Find(arabicaAnchor); sel.Length() > 0 {
		sel.SetText(FormatBRL(arabica))
		patched++
	}
	if sel := doc.Find(robustaAnchor); sel.Length() > 0 {
		sel.SetText(FormatBRL(conilon))
		patched++
	}
	// With no anchors there is nothing to change, so the document is not
	// rewritten at all; a parser round trip would only reshuffle its markup.
	if patched == 0 {
		w.logger.Warn().Str("path", path).Msg("no price anchors found in display document")
		return nil
	}

	html, err := doc.Html()
	if err != nil {
		return fmt.Errorf("serialize display document: %w", err)
	}

	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		return fmt.Errorf("write display document: %w", err)
	}

	w.logger.Info().Str("path", path).Int("anchors", patched).Msg("display document patched")
	return nil
}
