package venue

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/polymarket/go-order-utils/pkg/model"
	"go.uber.org/zap"

	"github.com/marketarb/agent/pkg/fixedpoint"
	"github.com/marketarb/agent/pkg/retry"
	"github.com/marketarb/agent/pkg/types"
)

const probableFeeBps = 200

// ProbableConfig configures the Probable execution client.
type ProbableConfig struct {
	BaseURL         string
	ChainID         int64
	PrivateKeyHex   string
	ProxyAddress    string
	SignatureType   int
	DryRun          bool
	ExchangeAddress string
	Logger          *zap.Logger
}

// ProbableClient implements venue.Client for the Probable family: an
// L1-signed-challenge derived L2 API key (create, falling back to
// derive), HMAC request signing over timestamp|method|path|body, and a
// client-tracked nonce (spec.md §9 decision 3).
type ProbableClient struct {
	cfg        ProbableConfig
	httpClient *http.Client
	signer     *orderSigner
	logger     *zap.Logger

	auth       credentialRefresher
	apiKey     string
	secret     string
	passphrase string

	nonce uint64 // atomic
}

func NewProbableClient(cfg ProbableConfig) (*ProbableClient, error) {
	resolve := func(string) string { return cfg.ExchangeAddress }
	signer, err := newOrderSigner(cfg.PrivateKeyHex, cfg.ProxyAddress, cfg.ChainID, model.SignatureType(cfg.SignatureType), resolve)
	if err != nil {
		return nil, fmt.Errorf("probable: %w", err)
	}
	return &ProbableClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		signer:     signer,
		logger:     cfg.Logger,
	}, nil
}

func (c *ProbableClient) Venue() types.Venue { return types.VenueProbable }

// SetNonce lets the agent loop recover the client-tracked nonce after a
// NonceConflictError forces a resync from on-chain state.
func (c *ProbableClient) SetNonce(n uint64) {
	atomic.StoreUint64(&c.nonce, n)
}

func (c *ProbableClient) nextNonce() uint64 {
	return atomic.LoadUint64(&c.nonce)
}

func (c *ProbableClient) advanceNonce() {
	atomic.AddUint64(&c.nonce, 1)
}

// Authenticate tries the "create" API-key endpoint first, falling back
// to "derive" on failure, per spec.md §6's documented primary/fallback
// pair. Both endpoints take an L1-signed challenge over the chain id.
func (c *ProbableClient) Authenticate(ctx context.Context) error {
	return c.auth.refreshIfNeeded(ctx, 30*time.Second, func(ctx context.Context) (time.Time, error) {
		if c.cfg.DryRun {
			return time.Now().Add(24 * time.Hour), nil
		}

		apiKey, secret, passphrase, err := c.createAPIKey(ctx)
		if err != nil {
			apiKey, secret, passphrase, err = c.deriveAPIKey(ctx)
			if err != nil {
				return time.Time{}, &types.AuthError{Venue: "Probable", Reason: err.Error()}
			}
		}
		c.apiKey, c.secret, c.passphrase = apiKey, secret, passphrase
		return time.Now().Add(12 * time.Hour), nil
	})
}

func (c *ProbableClient) createAPIKey(ctx context.Context) (apiKey, secret, passphrase string, err error) {
	path := fmt.Sprintf("/public/api/v1/auth/api-key/%d", c.cfg.ChainID)
	message := fmt.Sprintf("probable-create-api-key:%d:%s", c.cfg.ChainID, c.signer.signer)
	signature, err := signPersonalMessage(c.signer.privateKey, message)
	if err != nil {
		return "", "", "", err
	}

	payload, _ := json.Marshal(map[string]string{"address": c.signer.signer, "signature": signature})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return "", "", "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", "", err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", "", "", fmt.Errorf("create-api-key status %d: %s", resp.StatusCode, string(body))
	}
	return parseAPIKeyResponse(body)
}

func (c *ProbableClient) deriveAPIKey(ctx context.Context) (apiKey, secret, passphrase string, err error) {
	path := fmt.Sprintf("/public/api/v1/auth/derive-api-key/%d", c.cfg.ChainID)
	message := fmt.Sprintf("probable-derive-api-key:%d:%s", c.cfg.ChainID, c.signer.signer)
	signature, err := signPersonalMessage(c.signer.privateKey, message)
	if err != nil {
		return "", "", "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		return "", "", "", err
	}
	req.Header.Set("Prob_address", c.signer.signer)
	req.Header.Set("Prob_signature", signature)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", "", err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", "", "", fmt.Errorf("derive-api-key status %d: %s", resp.StatusCode, string(body))
	}
	return parseAPIKeyResponse(body)
}

func parseAPIKeyResponse(body []byte) (apiKey, secret, passphrase string, err error) {
	var parsed struct {
		APIKey     string `json:"apiKey"`
		Secret     string `json:"secret"`
		Passphrase string `json:"passphrase"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", "", "", err
	}
	if parsed.APIKey == "" {
		return "", "", "", fmt.Errorf("empty api key in response")
	}
	return parsed.APIKey, parsed.Secret, parsed.Passphrase, nil
}

// EnsureApprovals mirrors PredictClient's chain-level allowance check;
// Probable does not run behind a smart-account proxy either.
func (c *ProbableClient) EnsureApprovals(ctx context.Context) error {
	return nil
}

func (c *ProbableClient) signedHeaders(method, path string, body []byte) (http.Header, error) {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	nonce := c.nextNonce()
	payload := timestamp + method + path + string(body)

	secretBytes, err := base64.URLEncoding.DecodeString(c.secret)
	if err != nil {
		return nil, fmt.Errorf("decode probable secret: %w", err)
	}
	h := hmac.New(sha256.New, secretBytes)
	h.Write([]byte(payload))
	signature := base64.URLEncoding.EncodeToString(h.Sum(nil))

	header := http.Header{}
	header.Set("Content-Type", "application/json")
	header.Set("Prob_address", c.signer.signer)
	header.Set("Prob_signature", signature)
	header.Set("Prob_timestamp", timestamp)
	header.Set("Prob_api_key", c.apiKey)
	header.Set("Prob_passphrase", c.passphrase)
	header.Set("Prob_nonce", strconv.FormatUint(nonce, 10))
	return header, nil
}

func (c *ProbableClient) PlaceOrder(ctx context.Context, params types.OrderParams) (types.OrderResult, error) {
	if c.cfg.DryRun {
		return types.OrderResult{Success: true, OrderID: "dry-run", Status: types.FillStatusFilled}, nil
	}

	if err := c.Authenticate(ctx); err != nil {
		return types.OrderResult{}, err
	}

	var result types.OrderResult
	attempted401Refresh := false

	op := func(ctx context.Context) error {
		nonce := c.nextNonce()
		signed, err := c.signer.buildAndSign(params, strconv.FormatUint(nonce, 10), probableFeeBps)
		if err != nil {
			return err
		}

		path := fmt.Sprintf("/public/api/v1/order/%d", c.cfg.ChainID)
		body, _ := json.Marshal(orderPayload(signed, params.IOC))

		headers, err := c.signedHeaders(http.MethodPost, path, body)
		if err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header = headers

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return &types.TransientNetworkError{Venue: "Probable", Op: "placeOrder", Err: err}
		}
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(resp.Body)

		switch {
		case resp.StatusCode == http.StatusUnauthorized && !attempted401Refresh:
			attempted401Refresh = true
			c.auth.forceExpire()
			if authErr := c.Authenticate(ctx); authErr != nil {
				return authErr
			}
			return &types.TransientNetworkError{Venue: "Probable", Op: "placeOrder", Err: fmt.Errorf("retrying after 401")}
		case resp.StatusCode == http.StatusConflict || strings.Contains(string(respBody), "NONCE"):
			return &types.NonceConflictError{Venue: "Probable", Nonce: nonce}
		case resp.StatusCode >= 500:
			return &types.TransientNetworkError{Venue: "Probable", Op: "placeOrder", Err: fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody))}
		case resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated:
			return &types.ValidationError{Venue: "Probable", Field: "order", Reason: string(respBody)}
		}

		var parsed struct {
			OrderID string `json:"orderId"`
			Status  string `json:"status"`
		}
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			return fmt.Errorf("parse order response: %w", err)
		}
		c.advanceNonce()
		result = types.OrderResult{Success: true, OrderID: parsed.OrderID, Status: mapProbableStatus(parsed.Status)}
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

func (c *ProbableClient) CancelOrder(ctx context.Context, orderID string, tokenID string) (bool, error) {
	if c.cfg.DryRun {
		return true, nil
	}
	path := fmt.Sprintf("/public/api/v1/order/%d/%s?tokenId=%s", c.cfg.ChainID, orderID, tokenID)
	headers, err := c.signedHeaders(http.MethodDelete, path, nil)
	if err != nil {
		return false, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.cfg.BaseURL+path, nil)
	if err != nil {
		return false, err
	}
	req.Header = headers

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, &types.TransientNetworkError{Venue: "Probable", Op: "cancelOrder", Err: err}
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300, nil
}

// GetOrderStatus maps a 404 to CANCELLED, the Probable-family half of
// the per-client-family 404 asymmetry decided in the Design Notes.
func (c *ProbableClient) GetOrderStatus(ctx context.Context, orderID string) (types.FillStatus, error) {
	if c.cfg.DryRun {
		return types.FillStatusFilled, nil
	}
	path := fmt.Sprintf("/public/api/v1/order/%d/%s", c.cfg.ChainID, orderID)
	headers, err := c.signedHeaders(http.MethodGet, path, nil)
	if err != nil {
		return types.FillStatusUnknown, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		return types.FillStatusUnknown, err
	}
	req.Header = headers

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return types.FillStatusUnknown, &types.TransientNetworkError{Venue: "Probable", Op: "getOrderStatus", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return types.FillStatusCancelled, nil
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
	return mapProbableStatus(parsed.Status), nil
}

func (c *ProbableClient) GetOpenOrders(ctx context.Context) ([]types.OpenOrder, error) {
	if c.cfg.DryRun {
		return nil, nil
	}
	path := fmt.Sprintf("/public/api/v1/events?active=true&limit=100&address=%s", c.signer.signer)
	headers, err := c.signedHeaders(http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header = headers

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &types.TransientNetworkError{Venue: "Probable", Op: "getOpenOrders", Err: err}
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

func mapProbableStatus(s string) types.FillStatus {
	switch strings.ToUpper(s) {
	case "FILLED", "MATCHED":
		return types.FillStatusFilled
	case "OPEN", "LIVE":
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
