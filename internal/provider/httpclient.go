package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

// Compile-time interface check.
var _ Client = (*HTTPClient)(nil)

// HTTPClient implements the Client interface using HTTP/JSON-RPC.
type HTTPClient struct {
	http      *http.Client
	requestID atomic.Int64
}

// ClientOption configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets the HTTP client timeout. Streaming requests are exempt;
// they run until the stream ends or the context is cancelled.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.http.Timeout = d
	}
}

// WithHTTPClient replaces the underlying *http.Client entirely.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.http = hc
	}
}

// NewHTTPClient creates a new provider HTTP client.
func NewHTTPClient(opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		http: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generate submits a batch request via the content/generate JSON-RPC method
// and blocks until the finished job comes back.
func (c *HTTPClient) Generate(ctx context.Context, endpoint string, req GenerateRequest) (*Job, error) {
	var job Job
	if err := c.call(ctx, endpoint, MethodGenerate, req, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// GetJob retrieves a job by ID via the jobs/get JSON-RPC method.
func (c *HTTPClient) GetJob(ctx context.Context, endpoint string, req GetJobRequest) (*Job, error) {
	var job Job
	if err := c.call(ctx, endpoint, MethodGetJob, req, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// ListJobs queries jobs via the jobs/list JSON-RPC method.
func (c *HTTPClient) ListJobs(ctx context.Context, endpoint string, req ListJobsRequest) (*ListJobsResponse, error) {
	var resp ListJobsResponse
	if err := c.call(ctx, endpoint, MethodListJobs, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CancelJob cancels a running job via the jobs/cancel JSON-RPC method.
func (c *HTTPClient) CancelJob(ctx context.Context, endpoint string, req CancelJobRequest) (*Job, error) {
	var job Job
	if err := c.call(ctx, endpoint, MethodCancelJob, req, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// StreamGenerate submits a batch request via content/stream and returns the
// SSE event channel. The channel closes when the provider finishes the job,
// the connection drops, or ctx is cancelled.
func (c *HTTPClient) StreamGenerate(ctx context.Context, endpoint string, req GenerateRequest) (<-chan StreamEvent, error) {
	paramsJSON, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("provider: marshal params: %w", err)
	}

	rpcReq := JSONRPCRequest{
		JSONRPC: JSONRPCVersion,
		ID:      c.nextID(),
		Method:  MethodStreamGenerate,
		Params:  paramsJSON,
	}

	body, err := json.Marshal(rpcReq)
	if err != nil {
		return nil, fmt.Errorf("provider: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("provider: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	// Bypass the client timeout; streams outlive single-call deadlines.
	streamClient := &http.Client{Transport: c.http.Transport}
	resp, err := streamClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("provider: %s: %w", MethodStreamGenerate, err)
	}

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("provider: %s: HTTP %d: %s", MethodStreamGenerate, resp.StatusCode, string(respBody))
	}

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		resp.Body.Close()
		return nil, fmt.Errorf("provider: %s: unexpected content type %q", MethodStreamGenerate, ct)
	}

	return ReadEvents(ctx, resp.Body), nil
}

// Discover fetches the Provider Card from the well-known URI.
func (c *HTTPClient) Discover(ctx context.Context, baseURL string) (*ProviderCard, error) {
	url := strings.TrimRight(baseURL, "/") + "/.well-known/provider-card.json"

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("provider: create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("provider: discover: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("provider: discover: HTTP %d: %s", resp.StatusCode, string(body))
	}

	var card ProviderCard
	if err := json.NewDecoder(resp.Body).Decode(&card); err != nil {
		return nil, fmt.Errorf("provider: decode provider card: %w", err)
	}
	return &card, nil
}

// nextID returns a monotonically increasing request ID for JSON-RPC calls.
func (c *HTTPClient) nextID() int64 {
	return c.requestID.Add(1)
}

// call performs a JSON-RPC 2.0 call over HTTP POST.
func (c *HTTPClient) call(ctx context.Context, endpoint, method string, params any, result any) error {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("provider: marshal params: %w", err)
	}

	rpcReq := JSONRPCRequest{
		JSONRPC: JSONRPCVersion,
		ID:      c.nextID(),
		Method:  method,
		Params:  paramsJSON,
	}

	body, err := json.Marshal(rpcReq)
	if err != nil {
		return fmt.Errorf("provider: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("provider: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("provider: %s: %w", method, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("provider: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("provider: %s: HTTP %d: %s", method, resp.StatusCode, string(respBody))
	}

	var rpcResp JSONRPCResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return fmt.Errorf("provider: decode response: %w", err)
	}

	if rpcResp.Error != nil {
		return &RPCError{
			Method:  method,
			Code:    rpcResp.Error.Code,
			Message: rpcResp.Error.Message,
			Data:    rpcResp.Error.Data,
		}
	}

	if result != nil && rpcResp.Result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("provider: decode result: %w", err)
		}
	}

	return nil
}

// RPCError represents a JSON-RPC error returned by a remote provider.
type RPCError struct {
	Method  string
	Code    int
	Message string
	Data    json.RawMessage
}

// Error implements the error interface.
func (e *RPCError) Error() string {
	if len(e.Data) > 0 {
		return fmt.Sprintf("provider: %s: rpc error %d: %s (data: %s)", e.Method, e.Code, e.Message, string(e.Data))
	}
	return fmt.Sprintf("provider: %s: rpc error %d: %s", e.Method, e.Code, e.Message)
}
