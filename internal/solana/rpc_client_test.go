package solana

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestHTTPClient_GetLatestBlockhash(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		if req.Method != "getLatestBlockhash" {
			t.Errorf("expected method getLatestBlockhash, got %s", req.Method)
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": map[string]interface{}{
				"value": map[string]interface{}{
					"blockhash":            "EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N",
					"lastValidBlockHeight": uint64(3090),
				},
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)

	bh, err := client.GetLatestBlockhash(context.Background())
	if err != nil {
		t.Fatalf("GetLatestBlockhash: %v", err)
	}

	if bh.Hash != "EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N" {
		t.Errorf("unexpected blockhash %s", bh.Hash)
	}

	if bh.LastValidBlockHeight != 3090 {
		t.Errorf("expected lastValidBlockHeight 3090, got %d", bh.LastValidBlockHeight)
	}
}

func TestHTTPClient_SendTransaction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		if req.Method != "sendTransaction" {
			t.Errorf("expected method sendTransaction, got %s", req.Method)
		}

		// First param is the base64 transaction
		if len(req.Params) < 2 {
			t.Errorf("expected 2 params, got %d", len(req.Params))
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  "5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnbJLgp8uirBgmQpjKhoR4tjF3ZpRzrFmBV6UjKdiSZkQUW",
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)

	sig, err := client.SendTransaction(context.Background(), []byte{1, 2, 3})
	if err != nil {
		t.Fatalf("SendTransaction: %v", err)
	}

	if sig != "5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnbJLgp8uirBgmQpjKhoR4tjF3ZpRzrFmBV6UjKdiSZkQUW" {
		t.Errorf("unexpected signature %s", sig)
	}
}

func TestHTTPClient_SendTransaction_BlockhashNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error": map[string]interface{}{
				"code":    -32002,
				"message": "Transaction simulation failed: Blockhash not found",
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)

	_, err := client.SendTransaction(context.Background(), []byte{1, 2, 3})
	if err == nil {
		t.Fatal("expected error")
	}

	if !IsBlockhashNotFound(err) {
		t.Errorf("expected blockhash-not-found classification for %v", err)
	}
}

func TestHTTPClient_GetSignatureStatuses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		if req.Method != "getSignatureStatuses" {
			t.Errorf("expected method getSignatureStatuses, got %s", req.Method)
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": map[string]interface{}{
				"value": []interface{}{
					map[string]interface{}{
						"slot":               int64(48),
						"confirmations":      nil,
						"confirmationStatus": "finalized",
						"err":                nil,
					},
					nil,
				},
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)

	statuses, err := client.GetSignatureStatuses(context.Background(), []string{"sig1", "sig2"})
	if err != nil {
		t.Fatalf("GetSignatureStatuses: %v", err)
	}

	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}

	if statuses[0] == nil || !statuses[0].Confirmed() {
		t.Errorf("expected first status confirmed, got %+v", statuses[0])
	}

	if statuses[0].Signature != "sig1" {
		t.Errorf("expected signature sig1, got %s", statuses[0].Signature)
	}

	if statuses[1] != nil {
		t.Errorf("expected nil for unknown signature, got %+v", statuses[1])
	}
}

func TestHTTPClient_Confirm_BlockhashExpired(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		var result interface{}
		switch req.Method {
		case "getSignatureStatuses":
			result = map[string]interface{}{"value": []interface{}{nil}}
		case "getBlockHeight":
			result = uint64(500)
		default:
			t.Errorf("unexpected method %s", req.Method)
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  result,
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, WithPollInterval(10*time.Millisecond))

	// Chain height 500 is already past the validity horizon of 400.
	_, err := client.Confirm(context.Background(), "sig1", 400)
	if err != ErrBlockhashExpired {
		t.Errorf("expected ErrBlockhashExpired, got %v", err)
	}
}

func TestHTTPClient_GetAccountInfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		if req.Method != "getAccountInfo" {
			t.Errorf("expected method getAccountInfo, got %s", req.Method)
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": map[string]interface{}{
				"value": map[string]interface{}{
					"lamports":   uint64(1000000),
					"owner":      "11111111111111111111111111111111",
					"data":       []string{"dGVzdA==", "base64"},
					"executable": false,
					"rentEpoch":  uint64(361),
				},
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)

	info, err := client.GetAccountInfo(context.Background(), "testpubkey")
	if err != nil {
		t.Fatalf("GetAccountInfo: %v", err)
	}

	if info == nil {
		t.Fatal("expected account info, got nil")
	}

	if info.Lamports != 1000000 {
		t.Errorf("expected 1000000 lamports, got %d", info.Lamports)
	}

	if info.Data != "dGVzdA==" {
		t.Errorf("expected base64 data, got %s", info.Data)
	}
}

func TestHTTPClient_GetAccountInfo_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  map[string]interface{}{"value": nil},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)

	info, err := client.GetAccountInfo(context.Background(), "nonexistent")
	if err != nil {
		t.Fatalf("GetAccountInfo: %v", err)
	}

	if info != nil {
		t.Errorf("expected nil for missing account, got %+v", info)
	}
}

func TestHTTPClient_GetProgramAccounts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		if req.Method != "getProgramAccounts" {
			t.Errorf("expected method getProgramAccounts, got %s", req.Method)
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": []interface{}{
				map[string]interface{}{
					"pubkey": "acc1",
					"account": map[string]interface{}{
						"lamports": uint64(500),
						"owner":    "prog1",
						"data":     []string{"", "base64"},
					},
				},
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)

	size := 165
	accounts, err := client.GetProgramAccounts(context.Background(), "prog1", []AccountFilter{
		{DataSize: &size},
		{Memcmp: &MemcmpFilter{Offset: 8, Bytes: "abc"}},
	})
	if err != nil {
		t.Fatalf("GetProgramAccounts: %v", err)
	}

	if len(accounts) != 1 {
		t.Fatalf("expected 1 account, got %d", len(accounts))
	}

	if accounts[0].Pubkey != "acc1" {
		t.Errorf("expected pubkey acc1, got %s", accounts[0].Pubkey)
	}
}

func TestHTTPClient_RetryOn429(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}

		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  int64(42),
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, WithRetryDelay(10*time.Millisecond))

	slot, err := client.GetSlot(context.Background())
	if err != nil {
		t.Fatalf("GetSlot: %v", err)
	}

	if slot != 42 {
		t.Errorf("expected slot 42, got %d", slot)
	}

	if attempts.Load() != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts.Load())
	}
}

func TestHTTPClient_RPCErrorNotRetried(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)

		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error": map[string]interface{}{
				"code":    -32602,
				"message": "Invalid params",
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, WithRetryDelay(10*time.Millisecond))

	_, err := client.GetSlot(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}

	if attempts.Load() != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts.Load())
	}
}

func TestHTTPClient_GetMinimumBalanceForRentExemption(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		if req.Method != "getMinimumBalanceForRentExemption" {
			t.Errorf("expected method getMinimumBalanceForRentExemption, got %s", req.Method)
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  uint64(2039280),
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)

	lamports, err := client.GetMinimumBalanceForRentExemption(context.Background(), 165)
	if err != nil {
		t.Fatalf("GetMinimumBalanceForRentExemption: %v", err)
	}

	if lamports != 2039280 {
		t.Errorf("expected 2039280 lamports, got %d", lamports)
	}
}
