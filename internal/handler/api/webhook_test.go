package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"TradeRelay/internal/domain/models"
	"TradeRelay/internal/domain/repository"
	"TradeRelay/internal/service/ratelimit"
	"TradeRelay/internal/usecase"
	"TradeRelay/pkg/kv"
	"TradeRelay/pkg/logger"

	"github.com/labstack/echo/v4"
)

type stubDispatcher struct {
	sent []models.DeliveryMessage
	fail bool
}

func (d *stubDispatcher) Send(_ context.Context, msg models.DeliveryMessage) models.DeliveryResult {
	d.sent = append(d.sent, msg)
	if d.fail {
		return models.DeliveryResult{Channel: "discord", Success: false, Attempts: 3, Error: "unavailable"}
	}
	return models.DeliveryResult{Channel: "discord", Success: true, Attempts: 1}
}

func (d *stubDispatcher) SendBatches(ctx context.Context, header string, lines []string) []models.DeliveryResult {
	return []models.DeliveryResult{d.Send(ctx, models.DeliveryMessage{Text: header})}
}

func newTestHandler(disp repository.Dispatcher, limiter *ratelimit.Limiter) *Handler {
	store := kv.NewMemory()
	l := logger.Nop()
	m := repository.NopMetrics{}

	suppressor := usecase.NewSuppressor(store, 5*time.Second)
	tracker := usecase.NewTracker(store, time.UTC, 9*60+34, 11*60, l, m)
	bias := usecase.NewBias(store, disp, time.UTC, 8*60+30, l)
	processor := usecase.NewProcessor(suppressor, tracker, bias, disp, m, l, time.UTC,
		"NQ|NAS100", "https://img.example/buy.png", "https://img.example/sell.png")

	if limiter == nil {
		limiter = ratelimit.New(0, 0)
	}
	return NewHandler(processor, limiter, l)
}

func doWebhook(t *testing.T, h *Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	if err := h.Webhook(e.NewContext(req, rec)); err != nil {
		t.Fatalf("webhook handler: %v", err)
	}
	return rec
}

const entryBody = `{
	"type": "LONG_ENTRY",
	"symbol": "NQ1!",
	"tf": "5",
	"tradeId": 1,
	"time": "2025-03-10T10:00:00Z",
	"entry": 100,
	"sl": 95,
	"tp1": 105,
	"tp2": 110
}`

func TestWebhookAcceptsEntry(t *testing.T) {
	disp := &stubDispatcher{}
	h := newTestHandler(disp, nil)

	rec := doWebhook(t, h, entryBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var out models.Outcome
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Status != models.StatusSuccess {
		t.Errorf("outcome status = %q (reason %q)", out.Status, out.Reason)
	}
	if out.ActiveTrades != 1 {
		t.Errorf("activeTradesCount = %d, want 1", out.ActiveTrades)
	}
	if len(disp.sent) != 1 {
		t.Errorf("delivered %d messages, want 1", len(disp.sent))
	}
}

func TestWebhookScrubsNumericAndNullFields(t *testing.T) {
	disp := &stubDispatcher{}
	h := newTestHandler(disp, nil)

	body := `{"type":"LONG_ENTRY","symbol":"NQ1!","tradeId":"2","time":"2025-03-10T10:00:00Z","entry":100.25,"sl":95,"tp1":null,"tp2":110}`
	rec := doWebhook(t, h, body)

	var out models.Outcome
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// A null price field is an invalid position value, not a transport error.
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if out.Reason != models.ReasonInvalidPrices {
		t.Errorf("reason = %q, want invalid prices", out.Reason)
	}
}

func TestWebhookNullStringTradeIDGetsGeneratedID(t *testing.T) {
	disp := &stubDispatcher{}
	h := newTestHandler(disp, nil)

	// Unset alert placeholders arrive as the literal string "null"; the entry
	// is accepted under a generated id instead of failing id validation.
	body := strings.Replace(entryBody, `"tradeId": 1`, `"tradeId": "null"`, 1)
	rec := doWebhook(t, h, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var out models.Outcome
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Status != models.StatusSuccess {
		t.Fatalf("outcome status = %q (reason %q)", out.Status, out.Reason)
	}
	if !strings.HasPrefix(out.TradeID, "TRADE_") {
		t.Errorf("tradeId = %q, want generated TRADE_ id", out.TradeID)
	}
	if len(disp.sent) != 1 {
		t.Errorf("delivered %d messages, want 1", len(disp.sent))
	}
}

func TestScrubNullishStrings(t *testing.T) {
	cases := []struct {
		in   interface{}
		want string
	}{
		{"null", ""},
		{"NULL", ""},
		{"undefined", ""},
		{" null ", ""},
		{"  NQ1!  ", "NQ1!"},
		{"nullable", "nullable"},
		{nil, ""},
	}
	for _, tc := range cases {
		if got := scrub(tc.in); got != tc.want {
			t.Errorf("scrub(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestWebhookMissingTypeIs400(t *testing.T) {
	h := newTestHandler(&stubDispatcher{}, nil)

	rec := doWebhook(t, h, `{"symbol":"NQ1!"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestWebhookMalformedTradeIDIs400(t *testing.T) {
	h := newTestHandler(&stubDispatcher{}, nil)

	body := strings.Replace(entryBody, `"tradeId": 1`, `"tradeId": "abc"`, 1)
	rec := doWebhook(t, h, body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", rec.Code, rec.Body.String())
	}

	var out models.Outcome
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Reason != models.ReasonInvalidTradeID {
		t.Errorf("reason = %q", out.Reason)
	}
}

func TestWebhookRejectionIs200(t *testing.T) {
	h := newTestHandler(&stubDispatcher{}, nil)

	body := `{"type":"LONG_TP2","tradeId":"9","time":"2025-03-10T10:30:00Z","price":110}`
	rec := doWebhook(t, h, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for application-level rejection", rec.Code)
	}

	var out models.Outcome
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Status != models.StatusRejected || out.Reason != models.ReasonNoActiveTrade {
		t.Errorf("outcome = %q/%q", out.Status, out.Reason)
	}
}

func TestWebhookDeliveryFailureIs502(t *testing.T) {
	h := newTestHandler(&stubDispatcher{fail: true}, nil)

	rec := doWebhook(t, h, entryBody)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502: %s", rec.Code, rec.Body.String())
	}
}

func TestWebhookRateLimit(t *testing.T) {
	limiter := ratelimit.New(0.001, 1)
	h := newTestHandler(&stubDispatcher{}, limiter)

	if rec := doWebhook(t, h, entryBody); rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", rec.Code)
	}
	if rec := doWebhook(t, h, entryBody); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", rec.Code)
	}
}

func TestHealthReportsLiveTrades(t *testing.T) {
	h := newTestHandler(&stubDispatcher{}, nil)

	if rec := doWebhook(t, h, entryBody); rec.Code != http.StatusOK {
		t.Fatalf("seed entry failed: %d", rec.Code)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	if err := h.Health(e.NewContext(req, rec)); err != nil {
		t.Fatalf("health handler: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q, want ok", resp.Status)
	}
	if resp.ActiveTradesCount != 1 || len(resp.ActiveTrades) != 1 {
		t.Errorf("activeTrades = %d/%d, want 1/1", resp.ActiveTradesCount, len(resp.ActiveTrades))
	}
	if resp.ActiveTrades[0].ID != "1" {
		t.Errorf("trade id = %q, want 1", resp.ActiveTrades[0].ID)
	}
}
