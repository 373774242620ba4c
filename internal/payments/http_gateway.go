package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-core/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-core/pkg/errors"
	"github.com/angelmondragon/storefront-core/pkg/logger"
)

const maxGatewayBody = 64 << 10

type createOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type createOrderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// HTTPGateway talks to the provider's REST orders API with basic auth.
type HTTPGateway struct {
	baseURL    string
	keyID      string
	keySecret  string
	currency   string
	timeout    time.Duration
	httpClient *http.Client
	logg       *logger.Logger
	observer   gatewayObserver
}

func NewHTTPGateway(cfg config.GatewayConfig, logg *logger.Logger, observer gatewayObserver) *HTTPGateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPGateway{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		keyID:      cfg.KeyID,
		keySecret:  cfg.KeySecret,
		currency:   cfg.Currency,
		timeout:    timeout,
		httpClient: &http.Client{Timeout: timeout},
		logg:       logg,
		observer:   observer,
	}
}

// CreateOrder registers amountMinor (paise, cents) against receipt. Every
// failure, including timeouts and non-2xx answers, is GATEWAY_UNAVAILABLE.
// Nothing is retried.
func (g *HTTPGateway) CreateOrder(ctx context.Context, amountMinor int64, receipt string) (id string, err error) {
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		if g.observer != nil {
			g.observer.ObserveGateway(opCreateOrder, outcome, time.Since(start))
		}
	}()

	if amountMinor <= 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	logCtx := g.logg.WithFields(ctx, map[string]any{
		"receipt":      receipt,
		"amount_minor": amountMinor,
		"currency":     g.currency,
	})

	body, err := json.Marshal(createOrderRequest{Amount: amountMinor, Currency: g.currency, Receipt: receipt})
	if err != nil {
		return "", unavailable(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return "", unavailable(err)
	}
	req.SetBasicAuth(g.keyID, g.keySecret)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		g.logg.Error(logCtx, "gateway.create_order.request_failed", err)
		return "", unavailable(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxGatewayBody))
	if err != nil {
		g.logg.Error(logCtx, "gateway.create_order.read_failed", err)
		return "", unavailable(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := fmt.Errorf("gateway returned status %d", resp.StatusCode)
		g.logg.Error(g.logg.WithFields(logCtx, map[string]any{
			"status": resp.StatusCode,
			"body":   truncate(string(raw), 512),
		}), "gateway.create_order.rejected", statusErr)
		return "", unavailable(statusErr)
	}

	var decoded createOrderResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		g.logg.Error(logCtx, "gateway.create_order.decode_failed", err)
		return "", unavailable(err)
	}
	if strings.TrimSpace(decoded.ID) == "" {
		missing := fmt.Errorf("gateway response missing order id")
		g.logg.Error(logCtx, "gateway.create_order.decode_failed", missing)
		return "", unavailable(missing)
	}

	g.logg.Info(g.logg.WithField(logCtx, "gateway_order_id", decoded.ID), "gateway.create_order.ok")
	return decoded.ID, nil
}

func unavailable(err error) error {
	return pkgerrors.Wrap(pkgerrors.CodeGatewayUnavailable, err, "payment gateway unavailable")
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max]
}
