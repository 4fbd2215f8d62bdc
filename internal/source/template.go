package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/wonny/quadrant/internal/contracts"
	"github.com/wonny/quadrant/pkg/httputil"
)

// SymbolPlaceholder is replaced with the escaped symbol in URL templates
const SymbolPlaceholder = "{symbol}"

// expandURL fills a URL template with the path-escaped symbol
func expandURL(template, symbol string) string {
	return strings.ReplaceAll(template, SymbolPlaceholder, url.PathEscape(symbol))
}

// fetchError wraps a request failure. An unknown or delisted symbol (404, 410) is ErrNoData.
func fetchError(symbol string, err error) error {
	var statusErr *httputil.StatusError
	if errors.As(err, &statusErr) &&
		(statusErr.StatusCode == http.StatusNotFound || statusErr.StatusCode == http.StatusGone) {
		return fmt.Errorf("fetch %s: %w (status %d)", symbol, contracts.ErrNoData, statusErr.StatusCode)
	}
	return fmt.Errorf("fetch %s: %w", symbol, err)
}

// isUpstreamFailure reports whether err says the source itself is unhealthy.
// Transport errors, 5xx and 429 count; other 4xx are about the symbol.
func isUpstreamFailure(err error) bool {
	if err == nil || errors.Is(err, contracts.ErrNoData) || errors.Is(err, context.Canceled) {
		return false
	}
	var statusErr *httputil.StatusError
	if errors.As(err, &statusErr) {
		return httputil.IsRetryableError(statusErr.StatusCode)
	}
	return true
}
