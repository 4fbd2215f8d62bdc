package contracts

import (
	"context"
	"errors"
)

// ErrNoData signals that a data source has nothing for the requested symbol
var ErrNoData = errors.New("no data available")

// RawObservation is what a data source returns for one symbol
// ⭐ SSOT: Data Source → Normalizer 원본 데이터 전달
// Empty text means the source had no value for that field.
type RawObservation struct {
	Symbol        string `json:"symbol" yaml:"symbol"`
	PERatioText   string `json:"pe_ratio" yaml:"pe_ratio"`
	NetMarginText string `json:"net_margin" yaml:"net_margin"`
	Source        string `json:"source,omitempty" yaml:"source,omitempty"`
}

// HasPERatio reports whether the source supplied any P/E text
func (o *RawObservation) HasPERatio() bool {
	return o != nil && o.PERatioText != ""
}

// HasNetMargin reports whether the source supplied any net margin text
func (o *RawObservation) HasNetMargin() bool {
	return o != nil && o.NetMarginText != ""
}

// Complete reports whether both fields carry text
func (o *RawObservation) Complete() bool {
	return o.HasPERatio() && o.HasNetMargin()
}

// DataSource produces raw observations for symbols
// ⭐ SSOT: 외부 데이터 소스 인터페이스 (스크래핑, REST, 픽스처)
type DataSource interface {
	// Name identifies the source in logs and metrics
	Name() string

	// Fetch returns the observation for symbol, or ErrNoData
	Fetch(ctx context.Context, symbol string) (*RawObservation, error)
}

// SourceFunc adapts a plain function to DataSource
type SourceFunc func(ctx context.Context, symbol string) (*RawObservation, error)

// Name implements DataSource
func (f SourceFunc) Name() string { return "func" }

// Fetch implements DataSource
func (f SourceFunc) Fetch(ctx context.Context, symbol string) (*RawObservation, error) {
	return f(ctx, symbol)
}
