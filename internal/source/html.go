package source

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/quadrant/internal/contracts"
	"github.com/wonny/quadrant/pkg/httputil"
	"github.com/wonny/quadrant/pkg/logger"
)

// HTMLConfig describes a labelled company page
type HTMLConfig struct {
	URLTemplate string // {symbol} is replaced
	PELabel     string // e.g. "Stock P/E"
	MarginLabel string // e.g. "Net profit margin"
}

// HTML extracts metrics from a page by label text
// ⭐ SSOT: HTML 라벨 기반 추출은 여기서만
//
// Lookup order per label:
//  1. a list item containing the label; value from span.number, else the first span without the label
//  2. a table row containing the label; value from its last cell
type HTML struct {
	cfg        HTMLConfig
	httpClient *httputil.Client
	logger     *logger.Logger
}

// NewHTML creates an HTML labelled-page source
func NewHTML(cfg HTMLConfig, httpClient *httputil.Client, log *logger.Logger) *HTML {
	return &HTML{
		cfg:        cfg,
		httpClient: httpClient,
		logger:     log,
	}
}

// Name implements contracts.DataSource
func (h *HTML) Name() string { return "html" }

// Fetch implements contracts.DataSource
func (h *HTML) Fetch(ctx context.Context, symbol string) (*contracts.RawObservation, error) {
	url := expandURL(h.cfg.URLTemplate, symbol)

	body, err := h.httpClient.GetBody(ctx, url, nil)
	if err != nil {
		return nil, fetchError(symbol, err)
	}

	obs, err := h.parse(body, symbol)
	if err != nil {
		return nil, err
	}

	h.logger.WithFields(map[string]interface{}{
		"symbol":     symbol,
		"pe_ratio":   obs.PERatioText,
		"net_margin": obs.NetMarginText,
	}).Debug("Parsed labelled page")

	if !obs.HasPERatio() && !obs.HasNetMargin() {
		return nil, contracts.ErrNoData
	}
	return obs, nil
}

// parse extracts both labels from a page body
func (h *HTML) parse(body []byte, symbol string) (*contracts.RawObservation, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html for %s: %w", symbol, err)
	}

	return &contracts.RawObservation{
		Symbol:        symbol,
		PERatioText:   findLabelled(doc, h.cfg.PELabel),
		NetMarginText: findLabelled(doc, h.cfg.MarginLabel),
		Source:        h.Name(),
	}, nil
}

// findLabelled returns the raw value text next to label, or ""
func findLabelled(doc *goquery.Document, label string) string {
	if label == "" {
		return ""
	}
	if v := fromListItem(doc, label); v != "" {
		return v
	}
	return fromTableRow(doc, label)
}

func fromListItem(doc *goquery.Document, label string) string {
	var value string

	doc.Find("li").EachWithBreak(func(_ int, li *goquery.Selection) bool {
		if !containsLabel(li.Text(), label) {
			return true
		}

		// innermost item wins
		nested := li.Find("li").FilterFunction(func(_ int, s *goquery.Selection) bool {
			return containsLabel(s.Text(), label)
		})
		if nested.Length() > 0 {
			return true
		}

		if num := li.Find("span.number").First(); num.Length() > 0 {
			value = squash(num.Text())
			return value == ""
		}

		li.Find("span").EachWithBreak(func(_ int, span *goquery.Selection) bool {
			text := squash(span.Text())
			if text == "" || containsLabel(text, label) {
				return true
			}
			value = text
			return false
		})
		return value == ""
	})

	return value
}

func fromTableRow(doc *goquery.Document, label string) string {
	var value string

	doc.Find("tr").EachWithBreak(func(_ int, tr *goquery.Selection) bool {
		if !containsLabel(tr.Text(), label) {
			return true
		}

		cells := tr.Find("td")
		if cells.Length() == 0 {
			return true
		}

		last := squash(cells.Last().Text())
		if last == "" || containsLabel(last, label) {
			return true
		}
		value = last
		return false
	})

	return value
}

// containsLabel matches case-insensitively with collapsed whitespace
func containsLabel(text, label string) bool {
	return strings.Contains(strings.ToLower(squash(text)), strings.ToLower(squash(label)))
}

// squash trims and collapses internal whitespace runs
func squash(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
