package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"TradeRelay/internal/domain/models"
	"TradeRelay/internal/service/ratelimit"
	"TradeRelay/internal/usecase"
	pkghttp "TradeRelay/pkg/http"
	"TradeRelay/pkg/logger"
	"TradeRelay/pkg/util"

	"github.com/labstack/echo/v4"
)

// WebhookRequest is the raw alert payload. Only type is mandatory; the other
// fields arrive as strings, numbers or null depending on how the alert
// template was configured, so they bind loosely and are scrubbed afterward.
type WebhookRequest struct {
	Type    string      `json:"type" validate:"required"`
	Symbol  interface{} `json:"symbol"`
	TF      interface{} `json:"tf"`
	TradeID interface{} `json:"tradeId"`
	Time    interface{} `json:"time"`
	Entry   interface{} `json:"entry"`
	SL      interface{} `json:"sl"`
	TP1     interface{} `json:"tp1"`
	TP2     interface{} `json:"tp2"`
	Price   interface{} `json:"price"`
	Profile interface{} `json:"profile"`
}

// scrub normalizes a loosely-typed payload field to a string. Numbers keep
// their shortest representation; null and absent fields become empty. Alert
// templates with unset placeholders send the literal strings "null" or
// "undefined", which are treated the same as a missing field.
func scrub(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		s := strings.TrimSpace(x)
		if strings.EqualFold(s, "null") || strings.EqualFold(s, "undefined") {
			return ""
		}
		return s
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprintf("%v", x)
	}
}

// Handler exposes the webhook intake and the health endpoint.
type Handler struct {
	processor *usecase.Processor
	limiter   *ratelimit.Limiter
	logger    *logger.Logger
}

// NewHandler creates the API handler.
func NewHandler(p *usecase.Processor, l *ratelimit.Limiter, log *logger.Logger) *Handler {
	return &Handler{processor: p, limiter: l, logger: log}
}

// RegisterRoutes registers the handler's routes on e.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/webhook", h.Webhook)
	e.GET("/health", h.Health)
}

// Webhook ingests one alert. Rejections are 200s with a rejected body so the
// sender does not retry them; only a malformed trade id is the sender's
// fault and gets a 400. Failed delivery of a committed state change is a
// 502.
func (h *Handler) Webhook(c echo.Context) error {
	if !h.limiter.Allow(c.RealIP()) {
		return pkghttp.TooManyRequestsResponse(c)
	}

	var req WebhookRequest
	if errs := pkghttp.ReadAndValidateRequest(c, &req); errs != nil {
		return pkghttp.ValidationFailedResponse(c, errs)
	}

	sig := &models.Signal{
		Type:    models.ParseSignalType(req.Type),
		Symbol:  scrub(req.Symbol),
		TF:      scrub(req.TF),
		TradeID: scrub(req.TradeID),
		Entry:   scrub(req.Entry),
		SL:      scrub(req.SL),
		TP1:     scrub(req.TP1),
		TP2:     scrub(req.TP2),
		Price:   scrub(req.Price),
		Profile: scrub(req.Profile),
	}
	sig.Time, _ = util.ParseTime(scrub(req.Time))

	outcome, err := h.processor.Handle(c.Request().Context(), sig, req.Type)
	if err != nil {
		h.logger.Error("signal processing failed",
			logger.String("type", req.Type),
			logger.Error(err),
		)
		return pkghttp.InternalServerErrorResponse(c)
	}

	return c.JSON(statusCode(outcome), outcome)
}

// statusCode maps a processing outcome to an HTTP status.
func statusCode(o *models.Outcome) int {
	switch o.Status {
	case models.StatusError:
		return http.StatusBadGateway
	case models.StatusRejected:
		if o.Reason == models.ReasonInvalidTradeID {
			return http.StatusBadRequest
		}
		return http.StatusOK
	default:
		return http.StatusOK
	}
}

// HealthResponse is the health endpoint body.
type HealthResponse struct {
	Status            string                `json:"status"`
	ActiveTradesCount int                   `json:"activeTradesCount"`
	ActiveTrades      []models.TradeSummary `json:"activeTrades"`
	Timestamp         string                `json:"timestamp"`
}

// Health reports liveness and the current live trades.
func (h *Handler) Health(c echo.Context) error {
	live, err := h.processor.Health(c.Request().Context())
	if err != nil {
		h.logger.Error("health check failed", logger.Error(err))
		return pkghttp.InternalServerErrorResponse(c)
	}
	return c.JSON(http.StatusOK, HealthResponse{
		Status:            "ok",
		ActiveTradesCount: len(live),
		ActiveTrades:      live,
		Timestamp:         time.Now().UTC().Format(time.RFC3339),
	})
}
