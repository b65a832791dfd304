package solana

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

// Default configuration values.
const (
	DefaultTimeout      = 30 * time.Second
	DefaultMaxRetries   = 3
	DefaultRetryDelay   = 1 * time.Second
	DefaultMaxDelay     = 10 * time.Second
	DefaultBackoffMult  = 2.0
	DefaultPollInterval = 500 * time.Millisecond
)

// ErrBlockhashExpired is returned by Confirm when the chain advances past
// the blockhash validity horizon before the transaction lands.
var ErrBlockhashExpired = errors.New("blockhash expired before confirmation")

// HTTPClient implements LedgerClient using HTTP JSON-RPC 2.0.
type HTTPClient struct {
	endpoint     string
	client       *http.Client
	maxRetries   int
	retryDelay   time.Duration
	maxDelay     time.Duration
	backoffMult  float64
	pollInterval time.Duration
	requestID    atomic.Uint64
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.maxDelay = d
	}
}

// WithPollInterval sets the confirmation polling interval.
func WithPollInterval(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.pollInterval = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// NewHTTPClient creates a new Solana RPC HTTP client.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint:     endpoint,
		client:       &http.Client{Timeout: DefaultTimeout},
		maxRetries:   DefaultMaxRetries,
		retryDelay:   DefaultRetryDelay,
		maxDelay:     DefaultMaxDelay,
		backoffMult:  DefaultBackoffMult,
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// rpcError represents a JSON-RPC 2.0 error.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// IsBlockhashNotFound reports whether err indicates the node rejected a
// transaction because its blockhash is no longer recent.
func IsBlockhashNotFound(err error) bool {
	var rpcErr *rpcError
	if errors.As(err, &rpcErr) {
		return strings.Contains(rpcErr.Message, "Blockhash not found")
	}
	return errors.Is(err, ErrBlockhashExpired)
}

// call performs a JSON-RPC call with retries and exponential backoff.
func (c *HTTPClient) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	reqID := c.requestID.Add(1)
	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			// Exponential backoff
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		// Handle rate limiting
		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
			continue
		}

		var rpcResp rpcResponse
		if err := json.Unmarshal(respBody, &rpcResp); err != nil {
			lastErr = fmt.Errorf("unmarshal response: %w", err)
			continue
		}

		if rpcResp.Error != nil {
			// RPC errors are not retried
			return rpcResp.Error
		}

		if result != nil && rpcResp.Result != nil {
			if err := json.Unmarshal(rpcResp.Result, result); err != nil {
				return fmt.Errorf("unmarshal result: %w", err)
			}
		}

		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// GetLatestBlockhash retrieves a recent blockhash with its validity horizon.
func (c *HTTPClient) GetLatestBlockhash(ctx context.Context) (*Blockhash, error) {
	params := []interface{}{
		map[string]interface{}{"commitment": "confirmed"},
	}

	var result getLatestBlockhashResult
	if err := c.call(ctx, "getLatestBlockhash", params, &result); err != nil {
		return nil, err
	}

	return &Blockhash{
		Hash:                 result.Value.Blockhash,
		LastValidBlockHeight: result.Value.LastValidBlockHeight,
	}, nil
}

type getLatestBlockhashResult struct {
	Value struct {
		Blockhash            string `json:"blockhash"`
		LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
	} `json:"value"`
}

// SendTransaction submits a signed serialized transaction.
func (c *HTTPClient) SendTransaction(ctx context.Context, signedTx []byte) (string, error) {
	params := []interface{}{
		base64.StdEncoding.EncodeToString(signedTx),
		map[string]interface{}{
			"encoding":            "base64",
			"skipPreflight":       false,
			"preflightCommitment": "confirmed",
		},
	}

	var signature string
	if err := c.call(ctx, "sendTransaction", params, &signature); err != nil {
		return "", err
	}

	return signature, nil
}

// GetSignatureStatuses retrieves confirmation status for signatures.
func (c *HTTPClient) GetSignatureStatuses(ctx context.Context, signatures []string) ([]*SignatureStatus, error) {
	params := []interface{}{
		signatures,
		map[string]interface{}{"searchTransactionHistory": true},
	}

	var result getSignatureStatusesResult
	if err := c.call(ctx, "getSignatureStatuses", params, &result); err != nil {
		return nil, err
	}

	statuses := make([]*SignatureStatus, len(result.Value))
	for i, v := range result.Value {
		if v == nil {
			continue
		}
		status := &SignatureStatus{
			Slot:               v.Slot,
			Confirmations:      v.Confirmations,
			ConfirmationStatus: v.ConfirmationStatus,
			Err:                v.Err,
		}
		if i < len(signatures) {
			status.Signature = signatures[i]
		}
		statuses[i] = status
	}

	return statuses, nil
}

type getSignatureStatusesResult struct {
	Value []*signatureStatusValue `json:"value"`
}

type signatureStatusValue struct {
	Slot               int64       `json:"slot"`
	Confirmations      *int        `json:"confirmations"`
	ConfirmationStatus string      `json:"confirmationStatus"`
	Err                interface{} `json:"err"`
}

// Confirm polls signature status until confirmed commitment is reached or
// the blockhash validity horizon passes.
func (c *HTTPClient) Confirm(ctx context.Context, signature string, lastValidBlockHeight uint64) (*SignatureStatus, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		statuses, err := c.GetSignatureStatuses(ctx, []string{signature})
		if err != nil {
			return nil, err
		}

		if len(statuses) > 0 && statuses[0] != nil {
			status := statuses[0]
			if status.Err != nil {
				return status, fmt.Errorf("transaction %s failed: %v", signature, status.Err)
			}
			if status.Confirmed() {
				return status, nil
			}
		}

		height, err := c.GetBlockHeight(ctx)
		if err != nil {
			return nil, err
		}
		if height > lastValidBlockHeight {
			return nil, ErrBlockhashExpired
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// GetAccountInfo retrieves account info by public key.
// Returns nil if account not found.
func (c *HTTPClient) GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error) {
	params := []interface{}{
		pubkey,
		map[string]interface{}{
			"encoding": "base64",
		},
	}

	var result getAccountInfoResult
	if err := c.call(ctx, "getAccountInfo", params, &result); err != nil {
		return nil, err
	}

	if result.Value == nil {
		return nil, nil
	}

	info := &AccountInfo{
		Lamports:   result.Value.Lamports,
		Owner:      result.Value.Owner,
		Executable: result.Value.Executable,
		RentEpoch:  result.Value.RentEpoch,
	}

	if len(result.Value.Data) >= 1 {
		info.Data = result.Value.Data[0]
	}

	return info, nil
}

type getAccountInfoResult struct {
	Value *accountInfoValue `json:"value"`
}

type accountInfoValue struct {
	Lamports   uint64   `json:"lamports"`
	Owner      string   `json:"owner"`
	Data       []string `json:"data"` // [base64_data, encoding]
	Executable bool     `json:"executable"`
	RentEpoch  uint64   `json:"rentEpoch"`
}

// GetProgramAccounts retrieves all accounts owned by a program.
func (c *HTTPClient) GetProgramAccounts(ctx context.Context, programID string, filters []AccountFilter) ([]ProgramAccount, error) {
	config := map[string]interface{}{
		"encoding": "base64",
	}

	if len(filters) > 0 {
		rpcFilters := make([]interface{}, 0, len(filters))
		for _, f := range filters {
			if f.DataSize != nil {
				rpcFilters = append(rpcFilters, map[string]interface{}{
					"dataSize": *f.DataSize,
				})
			}
			if f.Memcmp != nil {
				rpcFilters = append(rpcFilters, map[string]interface{}{
					"memcmp": map[string]interface{}{
						"offset": f.Memcmp.Offset,
						"bytes":  f.Memcmp.Bytes,
					},
				})
			}
		}
		config["filters"] = rpcFilters
	}

	params := []interface{}{programID, config}

	var result []getProgramAccountsItem
	if err := c.call(ctx, "getProgramAccounts", params, &result); err != nil {
		return nil, err
	}

	accounts := make([]ProgramAccount, 0, len(result))
	for _, item := range result {
		acc := ProgramAccount{
			Pubkey: item.Pubkey,
			Account: AccountInfo{
				Lamports:   item.Account.Lamports,
				Owner:      item.Account.Owner,
				Executable: item.Account.Executable,
				RentEpoch:  item.Account.RentEpoch,
			},
		}
		if len(item.Account.Data) >= 1 {
			acc.Account.Data = item.Account.Data[0]
		}
		accounts = append(accounts, acc)
	}

	return accounts, nil
}

type getProgramAccountsItem struct {
	Pubkey  string           `json:"pubkey"`
	Account accountInfoValue `json:"account"`
}

// GetSlot retrieves the current slot.
func (c *HTTPClient) GetSlot(ctx context.Context) (int64, error) {
	var result int64
	if err := c.call(ctx, "getSlot", nil, &result); err != nil {
		return 0, err
	}
	return result, nil
}

// GetBlockHeight retrieves the current block height.
func (c *HTTPClient) GetBlockHeight(ctx context.Context) (uint64, error) {
	var result uint64
	if err := c.call(ctx, "getBlockHeight", nil, &result); err != nil {
		return 0, err
	}
	return result, nil
}

// GetMinimumBalanceForRentExemption returns the rent-exempt minimum for an
// account of the given size.
func (c *HTTPClient) GetMinimumBalanceForRentExemption(ctx context.Context, dataLen int) (uint64, error) {
	params := []interface{}{dataLen}

	var result uint64
	if err := c.call(ctx, "getMinimumBalanceForRentExemption", params, &result); err != nil {
		return 0, err
	}
	return result, nil
}
