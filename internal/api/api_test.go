package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uniasset/pkg/uniasset"
)

const demoAddress = "0x1111111111111111111111111111111111111111"

type envelope struct {
	Code      int             `json:"code"`
	Message   string          `json:"message"`
	ErrorCode string          `json:"error_code"`
	RequestID string          `json:"request_id"`
	Data      json.RawMessage `json:"data"`
}

type stubGateway struct {
	answer string
	draft  uniasset.AssetDraft
}

func (stubGateway) Available() bool { return true }

func (g stubGateway) ParseAssetEntry(context.Context, string, *uniasset.ImageInput) (uniasset.AssetDraft, error) {
	return g.draft, nil
}

func (g stubGateway) AdvisoryResponse(context.Context, uniasset.AdvisoryRequest) (string, error) {
	return g.answer, nil
}

func (stubGateway) MarketInsights(context.Context, []uniasset.Asset) ([]uniasset.MarketEvent, error) {
	return []uniasset.MarketEvent{{
		Type:           uniasset.EventUpcoming,
		Title:          "CPI Print",
		Date:           "2024-06-12",
		AffectedAssets: []string{"TLT"},
		ImpactStrength: uniasset.ImpactHigh,
		Direction:      uniasset.DirectionNegative,
	}}, nil
}

func (stubGateway) MarketData(context.Context, string) (uniasset.Quote, error) {
	return uniasset.Quote{}, errors.New("offline")
}

func setupRouter(t *testing.T, gw uniasset.AIGateway, logger *slog.Logger) http.Handler {
	t.Helper()
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	core, err := uniasset.OpenWithOptions(uniasset.Options{
		Logger:   logger,
		Gateway:  gw,
		Fetcher:  uniasset.MockWalletService{},
		SeedDemo: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = core.Close() })
	return NewRouter(core, logger)
}

func doRequest(t *testing.T, h http.Handler, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
	return rr, env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out), string(env.Data))
	return out
}

func TestHealthAndDashboard(t *testing.T) {
	h := setupRouter(t, nil, nil)

	rr, env := doRequest(t, h, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	health := decodeData[healthResponse](t, env)
	assert.Equal(t, "ok", health.Status)
	assert.False(t, health.AIAvailable)

	rr, env = doRequest(t, h, http.MethodGet, "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	summary := decodeData[map[string]any](t, env)
	assert.Equal(t, 75700.0, summary["total_value"])
	assert.Equal(t, 3.0, summary["asset_count"])
}

func TestAssetLifecycle(t *testing.T) {
	h := setupRouter(t, nil, nil)

	rr, env := doRequest(t, h, http.MethodPost, "/api/assets", map[string]any{
		"platform": "Schwab", "product_type": "stock", "symbol": "aapl",
		"quantity": 10, "unit_price": 150, "currency": "usd", "exposure_tags": []string{"US Tech"},
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decodeData[uniasset.Asset](t, env)
	assert.Equal(t, "AAPL", created.Symbol)
	assert.Equal(t, uniasset.ProductStock, created.ProductType)
	assert.True(t, created.TotalValue.Equal(uniasset.NewAmount(1500)))

	_, env = doRequest(t, h, http.MethodGet, "/api/assets", nil)
	assert.Len(t, decodeData[[]uniasset.Asset](t, env), 4)

	rr, env = doRequest(t, h, http.MethodPut, "/api/assets/1", map[string]any{
		"platform": "Fidelity", "product_type": "Stock", "symbol": "NVDA",
		"quantity": 60, "unit_price": 850, "exposure_tags": []string{"AI Hardware"},
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	updated := decodeData[uniasset.Asset](t, env)
	assert.True(t, updated.TotalValue.Equal(uniasset.NewAmount(51000)))
	require.Len(t, updated.UpdateHistory, 1)
	assert.Equal(t, uniasset.FieldQuantity, updated.UpdateHistory[0].Changes[0].Field)

	rr, _ = doRequest(t, h, http.MethodDelete, "/api/assets/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr, env = doRequest(t, h, http.MethodDelete, "/api/assets/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, string(uniasset.ErrCodeNotFound), env.ErrorCode)
	assert.NotEmpty(t, env.RequestID)

	_, env = doRequest(t, h, http.MethodGet, "/api/operation-logs?limit=2", nil)
	logs := decodeData[operationLogsResponse](t, env)
	assert.Equal(t, 2, logs.Limit)
	require.Len(t, logs.Items, 2)
	assert.Equal(t, uniasset.OpAssetDelete, logs.Items[0].Operation)
}

func TestAddAssetValidation(t *testing.T) {
	h := setupRouter(t, nil, nil)

	tests := []struct {
		name    string
		body    any
		code    uniasset.ErrorCode
		message string
	}{
		{"unknown product type", map[string]any{"symbol": "X", "quantity": 1, "product_type": "Bond"}, uniasset.ErrCodeValidation, "product_type"},
		{"unknown currency", map[string]any{"symbol": "X", "quantity": 1, "currency": "XYZ"}, uniasset.ErrCodeValidation, "currency"},
		{"negative price", map[string]any{"symbol": "X", "quantity": 1, "unit_price": -1}, uniasset.ErrCodeValidation, "unit_price"},
		{"missing quantity", map[string]any{"symbol": "X"}, uniasset.ErrCodeValidation, "quantity"},
		{"missing symbol", map[string]any{"quantity": 1}, uniasset.ErrCodeValidation, "symbol"},
		{"quantity above ceiling", map[string]any{"symbol": "X", "quantity": 1e300, "unit_price": 1e300}, uniasset.ErrCodeValidation, "quantity failed lte=1e15"},
		{"total above ceiling", map[string]any{"symbol": "X", "quantity": 1e12, "unit_price": 1e12}, uniasset.ErrCodeValidation, "must not exceed"},
		{"unknown field", map[string]any{"symbol": "X", "quantity": 1, "colour": "red"}, uniasset.ErrCodeInvalidInput, "invalid request body"},
		{"empty body", "", uniasset.ErrCodeInvalidInput, "request body is required"},
	}
	for _, tt := range tests {
		rr, env := doRequest(t, h, http.MethodPost, "/api/assets", tt.body)
		assert.Equal(t, http.StatusBadRequest, rr.Code, tt.name)
		assert.Equal(t, string(tt.code), env.ErrorCode, tt.name)
		assert.Contains(t, env.Message, tt.message, tt.name)
	}

	_, env := doRequest(t, h, http.MethodGet, "/api/assets", nil)
	assert.Len(t, decodeData[[]uniasset.Asset](t, env), 3, "failed submissions leave the store untouched")

	rr, env := doRequest(t, h, http.MethodGet, "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, env.Data, "dashboard still encodes after rejected submissions")
}

func TestReconcileDraft(t *testing.T) {
	h := setupRouter(t, nil, nil)

	rr, env := doRequest(t, h, http.MethodPost, "/api/assets/reconcile", map[string]any{
		"draft": map[string]any{"symbol": "SOL", "quantity": 10, "unit_price": 5, "total_value": 50},
		"field": "total_value",
		"value": 100,
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	draft := decodeData[uniasset.AssetDraft](t, env)
	assert.True(t, draft.Quantity.Equal(uniasset.NewAmount(10)))
	assert.True(t, draft.UnitPrice.Equal(uniasset.NewAmount(10)))
	assert.True(t, draft.TotalValue.Equal(uniasset.NewAmount(100)))

	rr, env = doRequest(t, h, http.MethodPost, "/api/assets/reconcile", map[string]any{"field": "fees", "value": 1})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, env.Message, "field failed oneof")
}

func TestParseDraft(t *testing.T) {
	h := setupRouter(t, nil, nil)
	rr, env := doRequest(t, h, http.MethodPost, "/api/assets/parse", map[string]any{"text": "10 apple"})
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, string(uniasset.ErrCodeAIUnavailable), env.ErrorCode)

	parsed := uniasset.AssetDraft{Symbol: "AAPL", ProductType: uniasset.ProductStock, Quantity: uniasset.NewAmount(10), UnitPrice: uniasset.NewAmount(150)}
	h = setupRouter(t, stubGateway{draft: parsed}, nil)
	rr, env = doRequest(t, h, http.MethodPost, "/api/assets/parse", map[string]any{
		"draft": map[string]any{"platform": "Schwab"},
		"text":  "10 apple at 150",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	draft := decodeData[uniasset.AssetDraft](t, env)
	assert.Equal(t, "Schwab", draft.Platform)
	assert.Equal(t, "AAPL", draft.Symbol)
	assert.True(t, draft.TotalValue.Equal(uniasset.NewAmount(1500)))

	rr, env = doRequest(t, h, http.MethodPost, "/api/assets/parse", map[string]any{"image": "not base64!"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, string(uniasset.ErrCodeValidation), env.ErrorCode)
}

func TestQuoteRequiresSymbol(t *testing.T) {
	h := setupRouter(t, nil, nil)
	rr, env := doRequest(t, h, http.MethodGet, "/api/assets/quote", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, string(uniasset.ErrCodeValidation), env.ErrorCode)
}

func TestCatalog(t *testing.T) {
	h := setupRouter(t, nil, nil)
	_, env := doRequest(t, h, http.MethodGet, "/api/catalog/symbols?q=gold", nil)
	symbols := decodeData[[]uniasset.SymbolInfo](t, env)
	require.Len(t, symbols, 1)
	assert.Equal(t, "GLD", symbols[0].Symbol)

	_, env = doRequest(t, h, http.MethodGet, "/api/catalog/platforms?q=RA", nil)
	assert.Equal(t, []string{"E*TRADE", "Interactive Brokers", "Kraken"}, decodeData[[]string](t, env))
}

func TestWalletFlow(t *testing.T) {
	h := setupRouter(t, nil, nil)

	_, env := doRequest(t, h, http.MethodGet, "/api/wallets", nil)
	assert.JSONEq(t, `[]`, string(env.Data), "no wallets encodes as an empty list")

	_, env = doRequest(t, h, http.MethodGet, "/api/wallets/classify?address="+demoAddress, nil)
	classified := decodeData[classifyResponse](t, env)
	assert.True(t, classified.Valid)
	assert.Equal(t, uniasset.ChainEthereum, classified.Chain)
	assert.True(t, classified.Demo)

	_, env = doRequest(t, h, http.MethodGet, "/api/wallets/classify?address=hello", nil)
	invalid := decodeData[classifyResponse](t, env)
	assert.False(t, invalid.Valid)
	assert.False(t, invalid.Demo)

	rr, env := doRequest(t, h, http.MethodPost, "/api/wallets", map[string]any{"address": demoAddress})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	connected := decodeData[walletAssetsResponse](t, env)
	assert.Len(t, connected.Assets, 4)
	assert.Equal(t, uniasset.ChainEthereum, connected.Wallet.Chain)

	rr, env = doRequest(t, h, http.MethodPost, "/api/wallets", map[string]any{"address": demoAddress})
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, string(uniasset.ErrCodeDuplicate), env.ErrorCode)

	rr, env = doRequest(t, h, http.MethodPost, "/api/wallets", map[string]any{"address": "not-an-address"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, string(uniasset.ErrCodeValidation), env.ErrorCode)

	rr, env = doRequest(t, h, http.MethodPost, "/api/wallets", map[string]any{"address": demoAddress, "chain": "Dogecoin"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, env.Message, "unsupported chain")

	rr, env = doRequest(t, h, http.MethodPost, "/api/wallets/"+connected.Wallet.ID+"/sync", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Len(t, decodeData[walletAssetsResponse](t, env).Assets, 4)

	rr, env = doRequest(t, h, http.MethodPost, "/api/wallets/sync", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, 1, decodeData[uniasset.SyncAllResult](t, env).Synced)

	_, env = doRequest(t, h, http.MethodGet, "/api/assets", nil)
	assert.Len(t, decodeData[[]uniasset.Asset](t, env), 7)

	rr, env = doRequest(t, h, http.MethodDelete, "/api/wallets/"+connected.Wallet.ID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 4, decodeData[removeWalletResponse](t, env).RemovedAssets)

	rr, _ = doRequest(t, h, http.MethodPost, "/api/wallets/"+connected.Wallet.ID+"/sync", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestEvents(t *testing.T) {
	h := setupRouter(t, stubGateway{}, nil)

	_, env := doRequest(t, h, http.MethodGet, "/api/events", nil)
	feed := decodeData[uniasset.EventFeed](t, env)
	assert.Len(t, feed.Past, 1)
	assert.Len(t, feed.Upcoming, 2)

	_, env = doRequest(t, h, http.MethodGet, "/api/events/e2/exposure", nil)
	exposure := decodeData[uniasset.Exposure](t, env)
	assert.True(t, exposure.ExposureValue.Equal(uniasset.NewAmount(42500)))

	rr, _ := doRequest(t, h, http.MethodGet, "/api/events/nope/exposure", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr, env = doRequest(t, h, http.MethodPost, "/api/events/refresh", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	refreshed := decodeData[refreshResponse](t, env)
	require.Len(t, refreshed.Added, 1)
	assert.Equal(t, "CPI Print", refreshed.Added[0].Title)
	assert.Len(t, refreshed.Feed.Upcoming, 3)

	_, env = doRequest(t, h, http.MethodPost, "/api/events/refresh", nil)
	assert.Empty(t, decodeData[refreshResponse](t, env).Added, "same title is not added twice")
}

func TestAdvisoryMessages(t *testing.T) {
	h := setupRouter(t, stubGateway{answer: "**Hedge** your duration."}, nil)

	_, env := doRequest(t, h, http.MethodGet, "/api/advisory/messages", nil)
	transcript := decodeData[transcriptResponse](t, env)
	require.Len(t, transcript.Messages, 1)
	assert.Equal(t, uniasset.RoleModel, transcript.Messages[0].Role)
	assert.Contains(t, transcript.Messages[0].HTML, "<p>")

	rr, env := doRequest(t, h, http.MethodPost, "/api/advisory/messages", map[string]any{"text": "Rates?"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	reply := decodeData[chatMessageView](t, env)
	assert.Equal(t, "**Hedge** your duration.", reply.Text)
	assert.Contains(t, reply.HTML, "<strong>Hedge</strong>")

	_, env = doRequest(t, h, http.MethodGet, "/api/advisory/messages", nil)
	assert.Len(t, decodeData[transcriptResponse](t, env).Messages, 3)

	rr, env = doRequest(t, h, http.MethodPost, "/api/advisory/messages", map[string]any{"text": "   "})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, string(uniasset.ErrCodeValidation), env.ErrorCode)
}

func TestAdvisoryWithoutCredential(t *testing.T) {
	h := setupRouter(t, nil, nil)
	rr, env := doRequest(t, h, http.MethodPost, "/api/advisory/messages", map[string]any{"text": "Rates?"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, uniasset.ReplyNoCredential, decodeData[chatMessageView](t, env).Text)
}

func TestRequestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	h := setupRouter(t, nil, logger)

	doRequest(t, h, http.MethodGet, "/api/health", nil)
	logs := buf.String()
	assert.Contains(t, logs, "http request completed")
	assert.Contains(t, logs, "status=200")
	assert.Contains(t, logs, "route=/api/health")
	assert.Contains(t, logs, "request_id=")

	buf.Reset()
	doRequest(t, h, http.MethodDelete, "/api/assets/missing", nil)
	logs = buf.String()
	assert.Contains(t, logs, "level=WARN")
	assert.Contains(t, logs, "status=404")
	assert.Contains(t, logs, "error_message=")
}

func TestPanicRecovery(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	h := NewRouter(nil, logger)

	rr, env := doRequest(t, h, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "internal server error", env.Message)
	assert.Contains(t, buf.String(), "panic recovered")
	assert.Contains(t, buf.String(), "level=ERROR")
}

func TestMapErrorCodeToHTTPStatus(t *testing.T) {
	tests := map[uniasset.ErrorCode]int{
		uniasset.ErrCodeInvalidInput:  http.StatusBadRequest,
		uniasset.ErrCodeValidation:    http.StatusBadRequest,
		uniasset.ErrCodeNotFound:      http.StatusNotFound,
		uniasset.ErrCodeDuplicate:     http.StatusConflict,
		uniasset.ErrCodeStaleSync:     http.StatusConflict,
		uniasset.ErrCodeBusy:          http.StatusConflict,
		uniasset.ErrCodeAIUnavailable: http.StatusServiceUnavailable,
		uniasset.ErrCodeSyncFailed:    http.StatusBadGateway,
		uniasset.ErrCodeDatabase:      http.StatusInternalServerError,
		uniasset.ErrCodeInternal:      http.StatusInternalServerError,
	}
	for code, want := range tests {
		assert.Equal(t, want, mapErrorCodeToHTTPStatus(code), string(code))
	}
}
