package venue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/polymarket/go-order-utils/pkg/model"
	"go.uber.org/zap"

	"github.com/marketarb/agent/pkg/fixedpoint"
	"github.com/marketarb/agent/pkg/retry"
	"github.com/marketarb/agent/pkg/types"
)

const opinionFeeBps = 200

// OpinionConfig configures the Opinion execution client.
type OpinionConfig struct {
	BaseURL         string
	APIKey          string
	PrivateKeyHex   string
	ProxyAddress    string
	ChainID         int64
	SignatureType   int
	DryRun          bool
	ExchangeAddress string
	Logger          *zap.Logger
}

// OpinionClient implements venue.Client for the Opinion family. It
// shares the Predict family's wire shape (x-api-key plus a derived
// bearer JWT, server-managed salt-based nonce, 404-on-IOC/FOK-status
// means FILLED) per the Design Notes' per-client-family grouping,
// against Opinion's own base URL and market id space.
type OpinionClient struct {
	cfg        OpinionConfig
	httpClient *http.Client
	signer     *orderSigner
	logger     *zap.Logger

	auth  credentialRefresher
	token string
}

func NewOpinionClient(cfg OpinionConfig) (*OpinionClient, error) {
	resolve := func(string) string { return cfg.ExchangeAddress }
	signer, err := newOrderSigner(cfg.PrivateKeyHex, cfg.ProxyAddress, cfg.ChainID, model.SignatureType(cfg.SignatureType), resolve)
	if err != nil {
		return nil, fmt.Errorf("opinion: %w", err)
	}
	return &OpinionClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		signer:     signer,
		logger:     cfg.Logger,
	}, nil
}

func (c *OpinionClient) Venue() types.Venue { return types.VenueOpinion }

func (c *OpinionClient) SetNonce(uint64) {
	// Server-managed, salt-based replay protection; no local nonce to
	// track (spec.md §9 decision 3).
}

func (c *OpinionClient) EnsureApprovals(ctx context.Context) error {
	return nil
}

func (c *OpinionClient) Authenticate(ctx context.Context) error {
	return c.auth.refreshIfNeeded(ctx, 30*time.Second, func(ctx context.Context) (time.Time, error) {
		if c.cfg.DryRun {
			return time.Now().Add(24 * time.Hour), nil
		}

		msg, err := c.fetchAuthMessage(ctx)
		if err != nil {
			return time.Time{}, &types.AuthError{Venue: "Opinion", Reason: err.Error()}
		}
		token, expiresAt, err := c.postAuth(ctx, msg)
		if err != nil {
			return time.Time{}, &types.AuthError{Venue: "Opinion", Reason: err.Error()}
		}
		c.token = token
		return expiresAt, nil
	})
}

func (c *OpinionClient) fetchAuthMessage(ctx context.Context) (string, error) {
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

func (c *OpinionClient) postAuth(ctx context.Context, message string) (string, time.Time, error) {
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

func (c *OpinionClient) PlaceOrder(ctx context.Context, params types.OrderParams) (types.OrderResult, error) {
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
		signed, err := c.signer.buildAndSign(params, salt.String(), opinionFeeBps)
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
			return &types.TransientNetworkError{Venue: "Opinion", Op: "placeOrder", Err: fmt.Errorf("retrying after 401")}
		case status >= 500:
			return &types.TransientNetworkError{Venue: "Opinion", Op: "placeOrder", Err: fmt.Errorf("status %d: %s", status, resp)}
		case status != http.StatusOK && status != http.StatusCreated:
			return &types.ValidationError{Venue: "Opinion", Field: "order", Reason: resp}
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

func (c *OpinionClient) submitOrder(ctx context.Context, order *model.SignedOrder, ioc bool) (string, int, error) {
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
		return "", 0, &types.TransientNetworkError{Venue: "Opinion", Op: "placeOrder", Err: err}
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	return string(respBody), resp.StatusCode, nil
}

func (c *OpinionClient) CancelOrder(ctx context.Context, orderID string, _ string) (bool, error) {
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
		return false, &types.TransientNetworkError{Venue: "Opinion", Op: "cancelOrder", Err: err}
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300, nil
}

func (c *OpinionClient) GetOrderStatus(ctx context.Context, orderID string) (types.FillStatus, error) {
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
		return types.FillStatusUnknown, &types.TransientNetworkError{Venue: "Opinion", Op: "getOrderStatus", Err: err}
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

func (c *OpinionClient) GetOpenOrders(ctx context.Context) ([]types.OpenOrder, error) {
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
		return nil, &types.TransientNetworkError{Venue: "Opinion", Op: "getOpenOrders", Err: err}
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
