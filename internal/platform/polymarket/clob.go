package polymarket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/alanyoungcy/edgebot/internal/crypto"
	"github.com/alanyoungcy/edgebot/internal/domain"
)

// amountScale converts human prices/sizes to the 6-decimal base units the
// exchange contracts use.
const amountScale = 1_000_000

const zeroAddress = "0x0000000000000000000000000000000000000000"

// ClobClient is the REST client for the CLOB (Central Limit Order Book)
// API. It handles credential derivation, book queries, order placement, and
// balance lookups.
type ClobClient struct {
	baseURL       string
	httpClient    *http.Client
	signer        *crypto.Signer
	signatureType int

	mu    sync.RWMutex
	creds crypto.APICreds
}

// NewClobClient creates a new CLOB REST client.
//
// baseURL is the CLOB API root, e.g. "https://clob.polymarket.com".
// signer is the EIP-712 signer for order signatures and auth messages; it
// may be nil for read-only use (GetBook works unauthenticated).
func NewClobClient(baseURL string, signer *crypto.Signer, signatureType int) *ClobClient {
	return &ClobClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		signer:        signer,
		signatureType: signatureType,
	}
}

// Ready reports whether the client holds the credentials required for
// authenticated calls.
func (c *ClobClient) Ready() bool {
	if c.signer == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.creds.Empty()
}

// DeriveAPIKey performs the auth flow to obtain HMAC API credentials. It
// signs a ClobAuth EIP-712 message and sends it with L1 headers to the
// derive-api-key endpoint. On success the credentials are stored for
// subsequent authenticated requests.
func (c *ClobClient) DeriveAPIKey(ctx context.Context) error {
	if c.signer == nil {
		return fmt.Errorf("polymarket/clob: %w: no signer configured", domain.ErrMissingCredentials)
	}

	address := c.signer.Address().Hex()
	timestamp := time.Now().Unix()
	nonce := int64(0)

	sig, err := c.signer.SignAuthMessage(address, timestamp, nonce)
	if err != nil {
		return fmt.Errorf("polymarket/clob: sign auth message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/derive-api-key", nil)
	if err != nil {
		return fmt.Errorf("polymarket/clob: create auth request: %w", err)
	}
	req.Header.Set("POLY_ADDRESS", address)
	req.Header.Set("POLY_SIGNATURE", sig)
	req.Header.Set("POLY_TIMESTAMP", strconv.FormatInt(timestamp, 10))
	req.Header.Set("POLY_NONCE", strconv.FormatInt(nonce, 10))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("polymarket/clob: auth request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("polymarket/clob: read auth response: %w", err)
	}
	if err := checkHTTPStatus(resp.StatusCode, respBody); err != nil {
		return fmt.Errorf("polymarket/clob: derive api key: %w", err)
	}

	var authResp struct {
		APIKey     string `json:"apiKey"`
		Secret     string `json:"secret"`
		Passphrase string `json:"passphrase"`
	}
	if err := json.Unmarshal(respBody, &authResp); err != nil {
		return fmt.Errorf("polymarket/clob: decode auth response: %w", err)
	}

	c.mu.Lock()
	c.creds = crypto.APICreds{
		Key:        authResp.APIKey,
		Secret:     authResp.Secret,
		Passphrase: authResp.Passphrase,
	}
	c.mu.Unlock()
	return nil
}

// GetBook fetches the current orderbook snapshot for an outcome token. No
// authentication required.
func (c *ClobClient) GetBook(ctx context.Context, tokenID string) (domain.BookSnapshot, error) {
	params := url.Values{}
	params.Set("token_id", tokenID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/book?"+params.Encode(), nil)
	if err != nil {
		return domain.BookSnapshot{}, fmt.Errorf("polymarket/clob: create book request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.BookSnapshot{}, fmt.Errorf("polymarket/clob: book request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.BookSnapshot{}, fmt.Errorf("polymarket/clob: read book response: %w", err)
	}
	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return domain.BookSnapshot{}, fmt.Errorf("polymarket/clob: get book %s: %w", tokenID, err)
	}

	var apiBook APIBook
	if err := json.Unmarshal(body, &apiBook); err != nil {
		return domain.BookSnapshot{}, fmt.Errorf("polymarket/clob: decode book: %w", err)
	}
	snap := apiBook.ToDomainSnapshot(time.Now())
	snap.TokenID = tokenID
	return snap, nil
}

// PostOrder signs and submits a GTC limit order and returns the exchange's
// result.
func (c *ClobClient) PostOrder(ctx context.Context, order domain.OrderRequest) (domain.OrderResult, error) {
	if !c.Ready() {
		return domain.OrderResult{}, domain.ErrMissingCredentials
	}
	if order.Price <= 0 || order.Price >= 1 || order.Size <= 0 {
		return domain.OrderResult{}, fmt.Errorf("%w: price=%g size=%g", domain.ErrInvalidOrder, order.Price, order.Size)
	}

	payload, err := c.buildSignedOrder(order)
	if err != nil {
		return domain.OrderResult{}, err
	}

	respBody, err := c.doAuthenticatedRequest(ctx, http.MethodPost, "/order", payload)
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("polymarket/clob: post order: %w", err)
	}

	var apiResult APIOrderResult
	if err := json.Unmarshal(respBody, &apiResult); err != nil {
		return domain.OrderResult{}, fmt.Errorf("polymarket/clob: decode order result: %w", err)
	}

	result := apiResult.ToDomainOrderResult()
	if !result.Success {
		return result, fmt.Errorf("polymarket/clob: order rejected: %s", result.Message)
	}
	return result, nil
}

// GetBalances returns the wallet's collateral balance and exchange
// allowance.
func (c *ClobClient) GetBalances(ctx context.Context) (domain.Balances, error) {
	if !c.Ready() {
		return domain.Balances{}, domain.ErrMissingCredentials
	}

	path := "/balance-allowance?asset_type=COLLATERAL"
	respBody, err := c.doAuthenticatedRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return domain.Balances{}, fmt.Errorf("polymarket/clob: get balances: %w", err)
	}

	var ba APIBalanceAllowance
	if err := json.Unmarshal(respBody, &ba); err != nil {
		return domain.Balances{}, fmt.Errorf("polymarket/clob: decode balances: %w", err)
	}

	var out domain.Balances
	if v, err := strconv.ParseFloat(ba.Balance, 64); err == nil {
		out.Collateral = v / amountScale
	}
	if v, err := strconv.ParseFloat(ba.Allowance, 64); err == nil {
		out.Allowance = v / amountScale
	}
	return out, nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// buildSignedOrder converts an OrderRequest into the signed wire payload.
// For a BUY the maker pays collateral and takes outcome tokens; for a SELL
// the reverse. Amounts use 6-decimal base units.
func (c *ClobClient) buildSignedOrder(order domain.OrderRequest) (map[string]any, error) {
	address := c.signer.Address().Hex()

	tokenUnits := int64(math.Round(order.Size * amountScale))
	collateralUnits := int64(math.Round(order.Price * order.Size * amountScale))

	var makerAmount, takerAmount int64
	var side int
	if order.Side == domain.OrderSideBuy {
		makerAmount, takerAmount = collateralUnits, tokenUnits
		side = 0
	} else {
		makerAmount, takerAmount = tokenUnits, collateralUnits
		side = 1
	}

	payload := crypto.OrderPayload{
		Salt:          strconv.FormatInt(rand.Int63(), 10),
		Maker:         address,
		Signer:        address,
		Taker:         zeroAddress,
		TokenID:       order.TokenID,
		MakerAmount:   strconv.FormatInt(makerAmount, 10),
		TakerAmount:   strconv.FormatInt(takerAmount, 10),
		Expiration:    "0",
		Nonce:         "0",
		FeeRateBps:    "0",
		Side:          side,
		SignatureType: c.signatureType,
	}

	sig, err := c.signer.SignOrder(payload)
	if err != nil {
		return nil, fmt.Errorf("polymarket/clob: %w: %v", domain.ErrSigningFailed, err)
	}

	sideStr := "BUY"
	if side == 1 {
		sideStr = "SELL"
	}

	return map[string]any{
		"order": map[string]any{
			"salt":          payload.Salt,
			"maker":         payload.Maker,
			"signer":        payload.Signer,
			"taker":         payload.Taker,
			"tokenID":       payload.TokenID,
			"makerAmount":   payload.MakerAmount,
			"takerAmount":   payload.TakerAmount,
			"expiration":    payload.Expiration,
			"nonce":         payload.Nonce,
			"feeRateBps":    payload.FeeRateBps,
			"side":          sideStr,
			"signatureType": payload.SignatureType,
			"signature":     sig,
		},
		"owner":     address,
		"orderType": "GTC",
	}, nil
}

// doAuthenticatedRequest builds, signs (HMAC), sends, and reads an HTTP
// request against the CLOB API. It returns the raw response body.
func (c *ClobClient) doAuthenticatedRequest(ctx context.Context, method, path string, body any) ([]byte, error) {
	var bodyReader io.Reader
	var bodyStr string

	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyStr = string(jsonBody)
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.mu.RLock()
	creds := c.creds
	c.mu.RUnlock()
	for k, v := range creds.L2Headers(c.signer.Address().Hex(), method, path, bodyStr) {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, respBody); err != nil {
		return nil, err
	}
	return respBody, nil
}

// checkHTTPStatus maps non-2xx status codes to appropriate domain errors.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := string(body)
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, bodyStr)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, bodyStr)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, bodyStr)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, bodyStr)
	}
}
