package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/wonny/quadrant/internal/contracts"
	"github.com/wonny/quadrant/pkg/httputil"
	"github.com/wonny/quadrant/pkg/logger"
)

// JSONAPIConfig describes a REST endpoint returning ratios as JSON
type JSONAPIConfig struct {
	URLTemplate  string // {symbol} is replaced
	PEPath       string // gjson path, may contain {symbol}
	MarginPath   string // gjson path, may contain {symbol}
	APIKey       string
	APIKeyHeader string // header name; takes precedence over APIKeyParam
	APIKeyParam  string // query parameter name
}

// JSONAPI reads ratios from a JSON REST endpoint
// ⭐ SSOT: JSON REST 비율 조회는 여기서만
type JSONAPI struct {
	cfg        JSONAPIConfig
	httpClient *httputil.Client
	logger     *logger.Logger
}

// NewJSONAPI creates a JSON REST source
func NewJSONAPI(cfg JSONAPIConfig, httpClient *httputil.Client, log *logger.Logger) *JSONAPI {
	return &JSONAPI{
		cfg:        cfg,
		httpClient: httpClient,
		logger:     log,
	}
}

// Name implements contracts.DataSource
func (j *JSONAPI) Name() string { return "jsonapi" }

// Fetch implements contracts.DataSource
func (j *JSONAPI) Fetch(ctx context.Context, symbol string) (*contracts.RawObservation, error) {
	target, headers, err := j.request(symbol)
	if err != nil {
		return nil, err
	}

	body, err := j.httpClient.GetBody(ctx, target, headers)
	if err != nil {
		return nil, fetchError(symbol, err)
	}

	obs, err := j.parse(body, symbol)
	if err != nil {
		return nil, err
	}

	j.logger.WithFields(map[string]interface{}{
		"symbol":     symbol,
		"pe_ratio":   obs.PERatioText,
		"net_margin": obs.NetMarginText,
	}).Debug("Parsed JSON ratios")

	if !obs.HasPERatio() && !obs.HasNetMargin() {
		return nil, contracts.ErrNoData
	}
	return obs, nil
}

// request builds the URL and headers, attaching the API key if configured
func (j *JSONAPI) request(symbol string) (string, map[string]string, error) {
	target := expandURL(j.cfg.URLTemplate, symbol)
	if j.cfg.APIKey == "" {
		return target, nil, nil
	}

	if j.cfg.APIKeyHeader != "" {
		return target, map[string]string{j.cfg.APIKeyHeader: j.cfg.APIKey}, nil
	}

	u, err := url.Parse(target)
	if err != nil {
		return "", nil, fmt.Errorf("invalid URL template: %w", err)
	}
	param := j.cfg.APIKeyParam
	if param == "" {
		param = "apikey"
	}
	q := u.Query()
	q.Set(param, j.cfg.APIKey)
	u.RawQuery = q.Encode()

	return u.String(), nil, nil
}

// parse pulls both fields out of a JSON body
func (j *JSONAPI) parse(body []byte, symbol string) (*contracts.RawObservation, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("malformed JSON response for %s", symbol)
	}

	return &contracts.RawObservation{
		Symbol:        symbol,
		PERatioText:   lookup(body, j.cfg.PEPath, symbol),
		NetMarginText: lookup(body, j.cfg.MarginPath, symbol),
		Source:        j.Name(),
	}, nil
}

// lookup returns the raw text at path; null, objects and arrays yield ""
func lookup(body []byte, path, symbol string) string {
	if path == "" {
		return ""
	}

	res := gjson.GetBytes(body, strings.ReplaceAll(path, SymbolPlaceholder, symbol))
	switch res.Type {
	case gjson.Number:
		return res.Raw
	case gjson.String:
		return res.Str
	default:
		return ""
	}
}
