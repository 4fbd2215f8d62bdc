package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/quadrant/internal/batch"
	"github.com/wonny/quadrant/internal/contracts"
	"github.com/wonny/quadrant/pkg/config"
	"github.com/wonny/quadrant/pkg/httputil"
	"github.com/wonny/quadrant/pkg/logger"
	"github.com/wonny/quadrant/pkg/redis"
)

func testHTTPClient() *httputil.Client {
	return httputil.New(&config.Config{
		HTTP: config.HTTPConfig{Timeout: 5 * time.Second, UserAgent: "quadrant-test"},
	}, logger.Nop())
}

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// ============================================================================
// Static / fixture
// ============================================================================

func TestStatic_Fetch(t *testing.T) {
	src := NewStatic(contracts.RawObservation{Symbol: " tcs ", PERatioText: "28", NetMarginText: "21.5"})

	obs, err := src.Fetch(context.Background(), "TCS")
	require.NoError(t, err)
	assert.Equal(t, "TCS", obs.Symbol)
	assert.Equal(t, "static", obs.Source)

	_, err = src.Fetch(context.Background(), "INFY")
	assert.ErrorIs(t, err, contracts.ErrNoData)
}

func TestStatic_WithFailure(t *testing.T) {
	boom := errors.New("boom")
	src := NewStatic().WithFailure("bad", boom)

	_, err := src.Fetch(context.Background(), "BAD")
	assert.ErrorIs(t, err, boom)
}

func TestStatic_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewStatic().Fetch(ctx, "TCS")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadFixture(t *testing.T) {
	src, err := LoadFixture("testdata/fixture.yaml")
	require.NoError(t, err)
	assert.Equal(t, 4, src.Len())
	assert.Equal(t, "fixture", src.Name())

	obs, err := src.Fetch(context.Background(), "ZOMATO")
	require.NoError(t, err)
	assert.Equal(t, "(2.4)", obs.NetMarginText)
	assert.Equal(t, "fixture", obs.Source)
}

func TestLoadFixture_Errors(t *testing.T) {
	_, err := LoadFixture("testdata/missing.yaml")
	assert.Error(t, err)

	dir := t.TempDir()
	path := dir + "/bad.yaml"
	require.NoError(t, os.WriteFile(path, []byte("observations:\n  - pe_ratio: \"1\"\n"), 0o644))
	_, err = LoadFixture(path)
	assert.ErrorContains(t, err, "has no symbol")
}

// ============================================================================
// HTML
// ============================================================================

func TestHTML_Fetch(t *testing.T) {
	page, err := os.ReadFile("testdata/company.html")
	require.NoError(t, err)

	var path atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path.Store(r.URL.Path)
		w.Write(page)
	}))
	defer srv.Close()

	src := NewHTML(HTMLConfig{
		URLTemplate: srv.URL + "/company/" + SymbolPlaceholder + "/",
		PELabel:     "Stock P/E",
		MarginLabel: "Net profit margin",
	}, testHTTPClient(), logger.Nop())

	obs, err := src.Fetch(context.Background(), "TCS")
	require.NoError(t, err)
	assert.Equal(t, "/company/TCS/", path.Load())
	assert.Equal(t, "28.0", obs.PERatioText)
	assert.Equal(t, "21.5%", obs.NetMarginText)
	assert.Equal(t, "html", obs.Source)
}

func TestHTML_MissingLabels(t *testing.T) {
	srv := serve(t, http.StatusOK, "<html><body><p>nothing here</p></body></html>")

	src := NewHTML(HTMLConfig{URLTemplate: srv.URL, PELabel: "Stock P/E", MarginLabel: "Net profit margin"},
		testHTTPClient(), logger.Nop())

	_, err := src.Fetch(context.Background(), "TCS")
	assert.ErrorIs(t, err, contracts.ErrNoData)
}

func TestHTML_StatusError(t *testing.T) {
	srv := serve(t, http.StatusInternalServerError, "")

	src := NewHTML(HTMLConfig{URLTemplate: srv.URL, PELabel: "Stock P/E"}, testHTTPClient(), logger.Nop())

	_, err := src.Fetch(context.Background(), "TCS")
	var statusErr *httputil.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	assert.NotErrorIs(t, err, contracts.ErrNoData)
}

func TestHTML_UnknownSymbolIsNoData(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusGone} {
		srv := serve(t, status, "")

		src := NewHTML(HTMLConfig{URLTemplate: srv.URL, PELabel: "Stock P/E"}, testHTTPClient(), logger.Nop())

		_, err := src.Fetch(context.Background(), "TYPO")
		assert.ErrorIs(t, err, contracts.ErrNoData, "status %d", status)
	}
}

func TestHTML_SpanFallback(t *testing.T) {
	srv := serve(t, http.StatusOK, `<ul><li><span>Stock P/E</span><span> 31.2 </span></li></ul>`)

	src := NewHTML(HTMLConfig{URLTemplate: srv.URL, PELabel: "stock p/e"}, testHTTPClient(), logger.Nop())

	obs, err := src.Fetch(context.Background(), "TCS")
	require.NoError(t, err)
	assert.Equal(t, "31.2", obs.PERatioText)
	assert.Empty(t, obs.NetMarginText)
}

func TestExpandURL(t *testing.T) {
	assert.Equal(t, "https://x.test/company/BRK%20B/", expandURL("https://x.test/company/{symbol}/", "BRK B"))
	assert.Equal(t, "https://x.test/q", expandURL("https://x.test/q", "TCS"))
}

// ============================================================================
// JSON API
// ============================================================================

func TestJSONAPI_Fetch(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"data":{"TCS":{"pe":28,"margin":"21.5%"}}}`)

	src := NewJSONAPI(JSONAPIConfig{
		URLTemplate: srv.URL + "/ratios/{symbol}",
		PEPath:      "data.{symbol}.pe",
		MarginPath:  "data.{symbol}.margin",
	}, testHTTPClient(), logger.Nop())

	obs, err := src.Fetch(context.Background(), "TCS")
	require.NoError(t, err)
	assert.Equal(t, "28", obs.PERatioText)
	assert.Equal(t, "21.5%", obs.NetMarginText)
	assert.Equal(t, "jsonapi", obs.Source)
}

func TestJSONAPI_NullAndMissing(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"peRatio":null,"netProfitMargin":12.5}`)

	src := NewJSONAPI(JSONAPIConfig{URLTemplate: srv.URL, PEPath: "peRatio", MarginPath: "netProfitMargin"},
		testHTTPClient(), logger.Nop())

	obs, err := src.Fetch(context.Background(), "TCS")
	require.NoError(t, err)
	assert.Empty(t, obs.PERatioText)
	assert.Equal(t, "12.5", obs.NetMarginText)
}

func TestJSONAPI_Empty(t *testing.T) {
	srv := serve(t, http.StatusOK, `{}`)

	src := NewJSONAPI(JSONAPIConfig{URLTemplate: srv.URL, PEPath: "peRatio", MarginPath: "netProfitMargin"},
		testHTTPClient(), logger.Nop())

	_, err := src.Fetch(context.Background(), "TCS")
	assert.ErrorIs(t, err, contracts.ErrNoData)
}

func TestJSONAPI_Malformed(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"peRatio": 28,`)

	src := NewJSONAPI(JSONAPIConfig{URLTemplate: srv.URL, PEPath: "peRatio"}, testHTTPClient(), logger.Nop())

	_, err := src.Fetch(context.Background(), "TCS")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed JSON")
	assert.NotErrorIs(t, err, contracts.ErrNoData)
}

func TestJSONAPI_UnknownSymbolIsNoData(t *testing.T) {
	srv := serve(t, http.StatusNotFound, `{"error":"unknown symbol"}`)

	src := NewJSONAPI(JSONAPIConfig{URLTemplate: srv.URL, PEPath: "peRatio"}, testHTTPClient(), logger.Nop())

	_, err := src.Fetch(context.Background(), "TYPO")
	assert.ErrorIs(t, err, contracts.ErrNoData)
}

func TestJSONAPI_APIKey(t *testing.T) {
	var gotHeader, gotParam atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader.Store(r.Header.Get("X-Api-Key"))
		gotParam.Store(r.URL.Query().Get("token"))
		w.Write([]byte(`{"peRatio":10}`))
	}))
	defer srv.Close()

	t.Run("header", func(t *testing.T) {
		src := NewJSONAPI(JSONAPIConfig{
			URLTemplate: srv.URL, PEPath: "peRatio", APIKey: "k1", APIKeyHeader: "X-Api-Key",
		}, testHTTPClient(), logger.Nop())

		_, err := src.Fetch(context.Background(), "TCS")
		require.NoError(t, err)
		assert.Equal(t, "k1", gotHeader.Load())
		assert.Equal(t, "", gotParam.Load())
	})

	t.Run("query param", func(t *testing.T) {
		src := NewJSONAPI(JSONAPIConfig{
			URLTemplate: srv.URL + "?symbol={symbol}", PEPath: "peRatio", APIKey: "k2", APIKeyParam: "token",
		}, testHTTPClient(), logger.Nop())

		_, err := src.Fetch(context.Background(), "TCS")
		require.NoError(t, err)
		assert.Equal(t, "", gotHeader.Load())
		assert.Equal(t, "k2", gotParam.Load())
	})
}

// ============================================================================
// Chain
// ============================================================================

func TestChain_MergesFields(t *testing.T) {
	first := NewStatic(contracts.RawObservation{Symbol: "TCS", PERatioText: "28", NetMarginText: "N/A"})
	second := NewStatic(contracts.RawObservation{Symbol: "TCS", PERatioText: "30", NetMarginText: "21.5"})
	second.name = "backup"

	obs, err := NewChain(logger.Nop(), first, second).Fetch(context.Background(), "TCS")
	require.NoError(t, err)
	assert.Equal(t, "28", obs.PERatioText)
	assert.Equal(t, "21.5", obs.NetMarginText)
	assert.Equal(t, "static+backup", obs.Source)
}

func TestChain_StopsWhenComplete(t *testing.T) {
	var calls int32
	second := contracts.SourceFunc(func(ctx context.Context, symbol string) (*contracts.RawObservation, error) {
		atomic.AddInt32(&calls, 1)
		return nil, contracts.ErrNoData
	})
	first := NewStatic(contracts.RawObservation{Symbol: "TCS", PERatioText: "28", NetMarginText: "21.5"})

	obs, err := NewChain(logger.Nop(), first, second).Fetch(context.Background(), "TCS")
	require.NoError(t, err)
	assert.Equal(t, "static", obs.Source)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestChain_SkipsFailures(t *testing.T) {
	failing := NewStatic().WithFailure("TCS", errors.New("timeout"))
	ok := NewStatic(contracts.RawObservation{Symbol: "TCS", PERatioText: "28", NetMarginText: "21.5"})

	obs, err := NewChain(logger.Nop(), failing, ok).Fetch(context.Background(), "TCS")
	require.NoError(t, err)
	assert.Equal(t, "28", obs.PERatioText)
}

func TestChain_AllFail(t *testing.T) {
	failing := NewStatic().WithFailure("TCS", errors.New("timeout"))

	_, err := NewChain(logger.Nop(), failing, NewStatic()).Fetch(context.Background(), "TCS")
	require.Error(t, err)
	assert.ErrorIs(t, err, contracts.ErrNoData)
	assert.Contains(t, err.Error(), "timeout")
}

func TestChain_Name(t *testing.T) {
	assert.Equal(t, "chain(static,func)", NewChain(logger.Nop(), NewStatic(), contracts.SourceFunc(nil)).Name())
}

// ============================================================================
// Breaker
// ============================================================================

func TestBreaker_TripsOnFailures(t *testing.T) {
	var calls int32
	inner := contracts.SourceFunc(func(ctx context.Context, symbol string) (*contracts.RawObservation, error) {
		atomic.AddInt32(&calls, 1)
		return nil, errors.New("upstream down")
	})

	b := NewBreaker(inner, BreakerSettings{ConsecutiveFailures: 2, OpenTimeout: time.Minute}, logger.Nop())

	for i := 0; i < 2; i++ {
		_, err := b.Fetch(context.Background(), "TCS")
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())

	_, err := b.Fetch(context.Background(), "TCS")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestBreaker_NoDataIsNotFailure(t *testing.T) {
	b := NewBreaker(NewStatic(), BreakerSettings{ConsecutiveFailures: 1, OpenTimeout: time.Minute}, logger.Nop())

	for i := 0; i < 5; i++ {
		_, err := b.Fetch(context.Background(), "MISSING")
		assert.ErrorIs(t, err, contracts.ErrNoData)
	}
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestBreaker_UnknownSymbolsDoNotTrip(t *testing.T) {
	page, err := os.ReadFile("testdata/company.html")
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/company/TCS/" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write(page)
	}))
	defer srv.Close()

	html := NewHTML(HTMLConfig{
		URLTemplate: srv.URL + "/company/" + SymbolPlaceholder + "/",
		PELabel:     "Stock P/E",
		MarginLabel: "Net profit margin",
	}, testHTTPClient(), logger.Nop())
	b := NewBreaker(html, DefaultBreakerSettings(), logger.Nop())

	results := batch.NewRunner(b, nil, logger.Nop()).
		Run(context.Background(), []string{"TCS", "TYPO1", "TYPO2", "TYPO3", "TCS"})

	require.Len(t, results, 5)
	assert.Equal(t, contracts.QuadrantQ4, results[0].Quadrant)
	for _, r := range results[1:4] {
		assert.Equal(t, contracts.QuadrantNotClassified, r.Quadrant, r.Symbol)
		assert.Contains(t, r.Error, contracts.ErrNoData.Error())
	}
	assert.Equal(t, contracts.QuadrantQ4, results[4].Quadrant)
	assert.Empty(t, results[4].Error)
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestBreaker_ServerErrorsTrip(t *testing.T) {
	srv := serve(t, http.StatusServiceUnavailable, "")

	html := NewHTML(HTMLConfig{URLTemplate: srv.URL, PELabel: "Stock P/E"}, testHTTPClient(), logger.Nop())
	b := NewBreaker(html, BreakerSettings{ConsecutiveFailures: 2, OpenTimeout: time.Minute}, logger.Nop())

	for i := 0; i < 2; i++ {
		_, err := b.Fetch(context.Background(), "TCS")
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())
}

func TestIsUpstreamFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"no data", contracts.ErrNoData, false},
		{"cancelled", context.Canceled, false},
		{"bad request", &httputil.StatusError{StatusCode: http.StatusBadRequest}, false},
		{"forbidden", &httputil.StatusError{StatusCode: http.StatusForbidden}, false},
		{"too many requests", &httputil.StatusError{StatusCode: http.StatusTooManyRequests}, true},
		{"bad gateway", &httputil.StatusError{StatusCode: http.StatusBadGateway}, true},
		{"transport", errors.New("connection refused"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isUpstreamFailure(tt.err))
		})
	}
}

func TestBreaker_PassesThrough(t *testing.T) {
	inner := NewStatic(contracts.RawObservation{Symbol: "TCS", PERatioText: "28"})
	b := NewBreaker(inner, DefaultBreakerSettings(), logger.Nop())

	obs, err := b.Fetch(context.Background(), "TCS")
	require.NoError(t, err)
	assert.Equal(t, "28", obs.PERatioText)
	assert.Equal(t, "static", b.Name())
}

// ============================================================================
// Cached
// ============================================================================

func TestCached_DisabledPassThrough(t *testing.T) {
	client, err := redis.New(&config.Config{Redis: config.RedisConfig{Enabled: false}})
	require.NoError(t, err)

	var calls int32
	inner := contracts.SourceFunc(func(ctx context.Context, symbol string) (*contracts.RawObservation, error) {
		atomic.AddInt32(&calls, 1)
		return &contracts.RawObservation{Symbol: symbol, PERatioText: "28"}, nil
	})

	c := NewCached(inner, redis.NewCache(client, "quadrant"), 0, logger.Nop())
	for i := 0; i < 3; i++ {
		obs, err := c.Fetch(context.Background(), "TCS")
		require.NoError(t, err)
		assert.Equal(t, "28", obs.PERatioText)
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, redis.TTLMedium, c.ttl)
}

func miniCache(t *testing.T) (*redis.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := redis.New(&config.Config{Redis: config.RedisConfig{
		Host:    mr.Host(),
		Port:    mr.Port(),
		Enabled: true,
	}})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return redis.NewCache(client, "quadrant"), mr
}

func TestCached_HitSkipsInner(t *testing.T) {
	cache, mr := miniCache(t)

	var calls int32
	inner := contracts.SourceFunc(func(ctx context.Context, symbol string) (*contracts.RawObservation, error) {
		atomic.AddInt32(&calls, 1)
		return &contracts.RawObservation{Symbol: symbol, PERatioText: "28", NetMarginText: "21.5%", Source: "func"}, nil
	})

	c := NewCached(inner, cache, time.Minute, logger.Nop())

	first, err := c.Fetch(context.Background(), "TCS")
	require.NoError(t, err)
	assert.True(t, mr.Exists("quadrant:cache:"+redis.ObservationKey("func", "TCS")))

	second, err := c.Fetch(context.Background(), "TCS")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "second fetch served from cache")
	assert.Equal(t, first, second)

	mr.FastForward(2 * time.Minute)
	_, err = c.Fetch(context.Background(), "TCS")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls), "expired entry refetched")
}

func TestCached_FailuresNotStored(t *testing.T) {
	cache, mr := miniCache(t)

	var calls int32
	inner := contracts.SourceFunc(func(ctx context.Context, symbol string) (*contracts.RawObservation, error) {
		atomic.AddInt32(&calls, 1)
		if symbol == "BAD" {
			return nil, errors.New("upstream down")
		}
		return nil, contracts.ErrNoData
	})

	c := NewCached(inner, cache, time.Minute, logger.Nop())

	for i := 0; i < 2; i++ {
		_, err := c.Fetch(context.Background(), "BAD")
		assert.Error(t, err)
		_, err = c.Fetch(context.Background(), "TYPO")
		assert.ErrorIs(t, err, contracts.ErrNoData)
	}

	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
	assert.Empty(t, mr.Keys())
}

// ============================================================================
// Build
// ============================================================================

func TestBuild(t *testing.T) {
	disabled := redis.NewCache(nil, "quadrant")

	t.Run("static fixture", func(t *testing.T) {
		cfg := &config.Config{Source: config.SourceConfig{Kind: config.SourceStatic, FixturePath: "testdata/fixture.yaml"}}
		src, err := Build(cfg, testHTTPClient(), disabled, logger.Nop())
		require.NoError(t, err)
		assert.Equal(t, "fixture", src.Name())
	})

	t.Run("html with breaker", func(t *testing.T) {
		cfg := &config.Config{Source: config.SourceConfig{
			Kind: config.SourceHTML, HTMLURLTemplate: "http://x.test/{symbol}", BreakerEnabled: true,
		}}
		src, err := Build(cfg, testHTTPClient(), disabled, logger.Nop())
		require.NoError(t, err)
		assert.IsType(t, &Breaker{}, src)
	})

	t.Run("chain", func(t *testing.T) {
		cfg := &config.Config{Source: config.SourceConfig{
			Kind:            config.SourceChain,
			Chain:           []string{config.SourceHTML, config.SourceJSONAPI},
			HTMLURLTemplate: "http://x.test/{symbol}",
			JSONURLTemplate: "http://y.test/{symbol}",
		}}
		src, err := Build(cfg, testHTTPClient(), disabled, logger.Nop())
		require.NoError(t, err)
		assert.Equal(t, "chain(html,jsonapi)", src.Name())
	})

	t.Run("unknown", func(t *testing.T) {
		cfg := &config.Config{Source: config.SourceConfig{Kind: "ftp"}}
		_, err := Build(cfg, testHTTPClient(), disabled, logger.Nop())
		assert.Error(t, err)
	})
}
