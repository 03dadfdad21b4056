package relayer

// relay.go — Gasless transaction submission through the Polymarket relayer.
//
// The relayer accepts a list of call descriptors and executes them as one
// batched transaction on behalf of the funder wallet. Implements
// ports.RelaySubmitter.
//
// 429 responses are NOT retried here: the settlement quota gate owns
// rate-limit handling, and it needs the raw error body to parse the
// "resets in N seconds" hint. Retrying would burn the daily budget blind.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/polycopy/internal/domain"
)

const (
	submitPath      = "/submit"
	transactionPath = "/transaction"
)

// Client talks to the relayer HTTP API.
type Client struct {
	http    *http.Client
	baseURL string
	funder  string
	apiKey  string
}

// NewClient creates a relayer client for the given funder wallet.
func NewClient(baseURL, funder, apiKey string) *Client {
	return &Client{
		http:    &http.Client{Timeout: 20 * time.Second},
		baseURL: baseURL,
		funder:  funder,
		apiKey:  apiKey,
	}
}

type submitRequest struct {
	From         string             `json:"from"`
	Transactions []domain.RelayCall `json:"transactions"`
	Note         string             `json:"note,omitempty"`
}

type submitResponse struct {
	TransactionID   string `json:"transactionID"`
	TransactionHash string `json:"transactionHash"`
	State           string `json:"state"`
}

type transactionResponse struct {
	TransactionID   string `json:"transactionID"`
	TransactionHash string `json:"transactionHash"`
	State           string `json:"state"`
}

// SubmitBatch submits all calls as a single relayer transaction and returns
// the submission handle. One call here costs exactly one quota unit on the
// relayer side, regardless of how many sub-calls the batch carries.
func (c *Client) SubmitBatch(ctx context.Context, calls []domain.RelayCall, note string) (domain.RelaySubmission, error) {
	if len(calls) == 0 {
		return domain.RelaySubmission{}, fmt.Errorf("relayer.SubmitBatch: empty batch")
	}

	body, err := json.Marshal(submitRequest{
		From:         c.funder,
		Transactions: calls,
		Note:         note,
	})
	if err != nil {
		return domain.RelaySubmission{}, fmt.Errorf("relayer.SubmitBatch: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+submitPath, bytes.NewReader(body))
	if err != nil {
		return domain.RelaySubmission{}, fmt.Errorf("relayer.SubmitBatch: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Idempotency-Key", uuid.NewString())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.RelaySubmission{}, fmt.Errorf("relayer.SubmitBatch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Body text matters upstream: the quota gate parses rate-limit hints.
		raw, _ := io.ReadAll(resp.Body)
		return domain.RelaySubmission{}, fmt.Errorf("relayer.SubmitBatch: status %d: %s", resp.StatusCode, string(raw))
	}

	var out submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.RelaySubmission{}, fmt.Errorf("relayer.SubmitBatch: decode: %w", err)
	}

	return domain.RelaySubmission{
		TransactionID: out.TransactionID,
		TxHash:        out.TransactionHash,
	}, nil
}

// TransactionState returns the current state of a submitted transaction.
func (c *Client) TransactionState(ctx context.Context, transactionID string) (domain.RelayState, string, error) {
	u := fmt.Sprintf("%s%s?id=%s", c.baseURL, transactionPath, url.QueryEscape(transactionID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", "", fmt.Errorf("relayer.TransactionState: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("relayer.TransactionState: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return "", "", fmt.Errorf("relayer.TransactionState: status %d: %s", resp.StatusCode, string(raw))
	}

	var out transactionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", "", fmt.Errorf("relayer.TransactionState: decode: %w", err)
	}

	return domain.RelayState(out.State), out.TransactionHash, nil
}
