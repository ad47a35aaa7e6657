package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/kpizzy812/futures-scenario-engine/auth"
	"github.com/kpizzy812/futures-scenario-engine/collector"
	"github.com/kpizzy812/futures-scenario-engine/engine"
	"github.com/kpizzy812/futures-scenario-engine/market"
	"github.com/kpizzy812/futures-scenario-engine/mcp"
	"github.com/kpizzy812/futures-scenario-engine/store"
)

type fakeProvider struct{ klines []market.Kline }

func (p *fakeProvider) Name() string { return "fake" }
func (p *fakeProvider) Klines(ctx context.Context, symbol, timeframe string, limit int) ([]market.Kline, error) {
	return p.klines, nil
}
func (p *fakeProvider) Funding(ctx context.Context, symbol string) (float64, bool, error) {
	return 0.01, true, nil
}
func (p *fakeProvider) OpenInterest(ctx context.Context, symbol string) (float64, bool, error) {
	return 1000, true, nil
}
func (p *fakeProvider) LongShortRatio(ctx context.Context, symbol string) (float64, bool, error) {
	return 1.1, true, nil
}

type fakeAIClient struct{ response string }

func (f *fakeAIClient) GetProvider() string { return "fake" }
func (f *fakeAIClient) IsConfigured() bool  { return true }
func (f *fakeAIClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return f.response, nil
}
func (f *fakeAIClient) CallWithMessages(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return f.response, nil
}
func (f *fakeAIClient) CallWithRequest(ctx context.Context, req *mcp.Request) (string, error) {
	return f.response, nil
}

const fakeScenarioResponse = `<reasoning>trend continuation</reasoning>
<scenarios>
` + "```json" + `
[{"id":"s1","name":"n","bias":"long","confidence":0.6,"entry":{"price_min":98,"price_max":100,"type":"limit_order","reason":"r"},"stop_loss":{"conservative":90,"aggressive":94,"recommended":95,"reason":"r"},"targets":[{"level":1,"price":105,"partial_close_pct":50,"rr":1,"reason":"r"},{"level":2,"price":110,"partial_close_pct":30,"rr":2,"reason":"r"},{"level":3,"price":115,"partial_close_pct":20,"rr":3,"reason":"r"}],"leverage":{"recommended":"2x","max_safe":"3x","volatility_adjusted":true,"atr_pct":1.5},"invalidation":{"price":94,"condition":"close below 94"},"why":{"bullish_factors":["f"],"risks":["r"]},"conditions":["c"]}]
` + "```" + `
</scenarios>`

func sampleKlines(n int) []market.Kline {
	out := make([]market.Kline, n)
	price := 100.0
	for i := range out {
		price += 0.1
		out[i] = market.Kline{OpenTime: int64(i), Open: price - 0.1, High: price + 0.5, Low: price - 0.5, Close: price, Volume: 100}
	}
	return out
}

func newTestServer(t *testing.T) (*gin.Engine, *Server, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	coll := collector.New(&fakeProvider{klines: sampleKlines(250)}, nil, nil, "", nil)
	client := &fakeAIClient{response: fakeScenarioResponse}
	eng := engine.New(coll, client, engine.StructureConfig{SwingMinSeparation: 5, LookbackIntraday: 50, LookbackDaily: 30}, 3, 5*time.Second, 8, 5*time.Second)

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	profiles, err := store.NewProfileStore(db)
	require.NoError(t, err)

	issuer := auth.NewIssuer("test-secret")
	token, err := issuer.IssueToken("test-client", time.Hour)
	require.NoError(t, err)

	s := NewServer(eng, profiles, issuer)
	r := gin.New()
	s.RegisterRoutes(r)
	return r, s, token
}

func TestHealthzIsUnauthenticated(t *testing.T) {
	r, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAnalyzeRequiresAuth(t *testing.T) {
	r, _, _ := newTestServer(t)

	body, _ := json.Marshal(map[string]any{"symbol": "BTCUSDT", "timeframe": "1h"})
	req := httptest.NewRequest(http.MethodPost, "/v1/analyze", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAnalyzeSucceedsWithValidToken(t *testing.T) {
	r, _, token := newTestServer(t)

	body, _ := json.Marshal(map[string]any{"symbol": "BTCUSDT", "timeframe": "1h"})
	req := httptest.NewRequest(http.MethodPost, "/v1/analyze", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "BTCUSDT", resp["symbol"])
}

func TestAnalyzeRejectsUnknownSymbol(t *testing.T) {
	r, _, token := newTestServer(t)

	body, _ := json.Marshal(map[string]any{"symbol": "not-a-symbol", "timeframe": "1h"})
	req := httptest.NewRequest(http.MethodPost, "/v1/analyze", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeRejectsUnknownTimeframe(t *testing.T) {
	r, _, token := newTestServer(t)

	body, _ := json.Marshal(map[string]any{"symbol": "BTCUSDT", "timeframe": "7x"})
	req := httptest.NewRequest(http.MethodPost, "/v1/analyze", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProfileCRUDLifecycle(t *testing.T) {
	r, _, token := newTestServer(t)
	bearer := "Bearer " + token

	listReq := httptest.NewRequest(http.MethodGet, "/v1/profiles", nil)
	listReq.Header.Set("Authorization", bearer)
	listRec := httptest.NewRecorder()
	r.ServeHTTP(listRec, listReq)
	require.Equal(t, http.StatusOK, listRec.Code)

	createBody, _ := json.Marshal(map[string]any{"name": "aggressive"})
	createReq := httptest.NewRequest(http.MethodPost, "/v1/profiles", bytes.NewReader(createBody))
	createReq.Header.Set("Content-Type", "application/json")
	createReq.Header.Set("Authorization", bearer)
	createRec := httptest.NewRecorder()
	r.ServeHTTP(createRec, createReq)
	require.Equal(t, http.StatusOK, createRec.Code)

	var created map[string]any
	require.NoError(t, json.Unmarshal(createRec.Body.Bytes(), &created))
	id := created["id"].(string)
	require.NotEmpty(t, id)

	getReq := httptest.NewRequest(http.MethodGet, "/v1/profiles/"+id, nil)
	getReq.Header.Set("Authorization", bearer)
	getRec := httptest.NewRecorder()
	r.ServeHTTP(getRec, getReq)
	assert.Equal(t, http.StatusOK, getRec.Code)

	activateReq := httptest.NewRequest(http.MethodPost, "/v1/profiles/"+id+"/activate", nil)
	activateReq.Header.Set("Authorization", bearer)
	activateRec := httptest.NewRecorder()
	r.ServeHTTP(activateRec, activateReq)
	assert.Equal(t, http.StatusOK, activateRec.Code)

	deleteReq := httptest.NewRequest(http.MethodDelete, "/v1/profiles/"+id, nil)
	deleteReq.Header.Set("Authorization", bearer)
	deleteRec := httptest.NewRecorder()
	r.ServeHTTP(deleteRec, deleteReq)
	assert.Equal(t, http.StatusOK, deleteRec.Code)
}

func TestProfileDeleteRefusesSystemDefault(t *testing.T) {
	r, _, token := newTestServer(t)

	req := httptest.NewRequest(http.MethodDelete, "/v1/profiles/default", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
