package a2a

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/agentbench/a2abridge/pkg/httpclient"
	"github.com/agentbench/a2abridge/pkg/observability"
)

// ============================================================================
// A2A CLIENT - JSON-RPC 2.0 over HTTP
// Owns the network boundary for one remote agent connection.
// ============================================================================

// Client is an A2A protocol client. It performs agent discovery (cached for
// the client's lifetime), message exchange, and records one MetricRecord per
// request. A Client either owns its transport (created here, released by
// Close) or borrows a caller-supplied one, which Close never touches.
type Client struct {
	cfg        *Config
	httpClient *http.Client
	ownsClient bool
	tracer     trace.Tracer

	mu      sync.Mutex
	card    *AgentCard
	metrics []MetricRecord
}

// NewClient creates a client for the given connection config. When
// httpClient is nil the client builds and owns its own transport using the
// config's timeout and TLS options; otherwise the supplied client is
// borrowed and its lifecycle stays with the caller.
func NewClient(cfg *Config, httpClient *http.Client) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := cfg.Normalize(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	owns := httpClient == nil
	if owns {
		transport, err := httpclient.ConfigureTLS(cfg.TLS)
		if err != nil {
			return nil, fmt.Errorf("failed to configure transport: %w", err)
		}
		httpClient = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		}
	}

	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		ownsClient: owns,
		tracer:     observability.GetTracer("a2abridge/a2a"),
	}, nil
}

// Config returns the normalized connection config.
func (c *Client) Config() *Config {
	return c.cfg
}

func (c *Client) buildHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.cfg.AuthToken != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.cfg.AuthToken))
	}
}

// ============================================================================
// AGENT DISCOVERY
// ============================================================================

// Discover fetches the agent card from the well-known discovery path and
// caches it for the lifetime of this client. A second call returns the
// cached card without a network round trip; creating a fresh Client is the
// only way to force rediscovery.
func (c *Client) Discover(ctx context.Context) (*AgentCard, error) {
	c.mu.Lock()
	if c.card != nil {
		card := c.card
		c.mu.Unlock()
		return card, nil
	}
	c.mu.Unlock()

	start := time.Now()
	card, err := c.fetchAgentCard(ctx)
	observability.GetGlobalMetrics().RecordDiscovery(ctx, c.cfg.Endpoint, time.Since(start), err)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.card = card
	c.mu.Unlock()

	slog.Info("discovered A2A agent",
		"agent_name", card.Name,
		"agent_version", card.Version,
		"endpoint", c.cfg.Endpoint,
	)

	return card, nil
}

func (c *Client) fetchAgentCard(ctx context.Context) (*AgentCard, error) {
	slog.Debug("discovering A2A agent", "endpoint", c.cfg.Endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.URL(AgentCardPath), nil)
	if err != nil {
		return nil, NewDiscoveryError(fmt.Sprintf("failed to create discovery request: %v", err), c.cfg.Endpoint)
	}
	c.buildHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			slog.Error("agent discovery timed out", "endpoint", c.cfg.Endpoint)
			return nil, NewTimeoutError("agent discovery timed out", c.cfg.Timeout)
		}
		slog.Error("agent discovery failed", "endpoint", c.cfg.Endpoint, "error", err)
		return nil, NewDiscoveryError(fmt.Sprintf("agent discovery failed: %v", err), c.cfg.Endpoint)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, NewAuthError("agent discovery requires authentication")
	case resp.StatusCode == http.StatusNotFound:
		return nil, NewDiscoveryError("agent card not found at /"+AgentCardPath, c.cfg.Endpoint)
	case resp.StatusCode >= 400:
		return nil, NewDiscoveryError(fmt.Sprintf("agent discovery failed with status %d", resp.StatusCode), c.cfg.Endpoint)
	}

	var card AgentCard
	if err := json.NewDecoder(resp.Body).Decode(&card); err != nil {
		slog.Error("failed to parse agent card", "error", err)
		return nil, NewDiscoveryError(fmt.Sprintf("invalid agent card format: %v", err), c.cfg.Endpoint)
	}
	if err := card.Validate(); err != nil {
		slog.Error("failed to parse agent card", "error", err)
		return nil, NewDiscoveryError(fmt.Sprintf("invalid agent card format: %v", err), c.cfg.Endpoint)
	}

	return &card, nil
}

// ============================================================================
// MESSAGE EXCHANGE (message/send)
// ============================================================================

// Send posts content to the agent as a JSON-RPC message/send request and
// returns the response text plus the context token for the conversation.
// contextID carries the token from previous turns; empty means none yet.
// Every call, on every outcome, appends exactly one MetricRecord.
func (c *Client) Send(ctx context.Context, content string, contextID string) (string, string, error) {
	requestID := uuid.New().String()
	start := time.Now()
	inputTokens := EstimateTokens(content)

	ctx, span := c.tracer.Start(ctx, "a2a.message/send",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("a2a.endpoint", c.cfg.Endpoint),
			attribute.String("a2a.request_id", requestID),
		),
	)
	defer span.End()

	// finish appends the single metric record for this call and mirrors it
	// into the live recorder. Called exactly once on every path.
	finish := func(statusCode int, outputTokens *int, respContextID string, callErr error) {
		latency := time.Since(start)
		rec := MetricRecord{
			RequestID:    requestID,
			Endpoint:     c.cfg.Endpoint,
			Method:       http.MethodPost,
			StatusCode:   statusCode,
			LatencyMS:    float64(latency.Microseconds()) / 1000.0,
			InputTokens:  inputTokens,
			OutputTokens: outputTokens,
			ContextID:    respContextID,
			Timestamp:    time.Now().UTC().Format(time.RFC3339Nano),
		}
		out := 0
		if outputTokens != nil {
			out = *outputTokens
		}
		if callErr != nil {
			rec.Error = callErr.Error()
			span.RecordError(callErr)
			span.SetStatus(codes.Error, callErr.Error())
		}
		c.mu.Lock()
		c.metrics = append(c.metrics, rec)
		c.mu.Unlock()
		observability.GetGlobalMetrics().RecordProtocolRequest(ctx, c.cfg.Endpoint, statusCode, latency, inputTokens, out, callErr)
	}

	rpcReq := rpcRequest{
		JSONRPC: "2.0",
		ID:      uuid.New().String(),
		Method:  sendMethod,
		Params: sendParams{
			Message: wireMessage{
				MessageID: uuid.New().String(),
				Role:      "user",
				Parts:     []wirePart{{Text: content}},
				ContextID: optionalString(contextID),
			},
		},
	}

	body, err := json.Marshal(rpcReq)
	if err != nil {
		sendErr := NewMessageError(fmt.Sprintf("failed to marshal request: %v", err))
		finish(0, nil, contextID, sendErr)
		return "", "", sendErr
	}

	slog.Debug("sending A2A message",
		"request_id", requestID,
		"endpoint", c.cfg.Endpoint,
		"context_id", contextID,
		"message_length", len(content),
		"input_tokens", inputTokens,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		sendErr := NewProtocolError(fmt.Sprintf("failed to create request: %v", err), 0)
		finish(0, nil, contextID, sendErr)
		return "", "", sendErr
	}
	c.buildHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			slog.Error("A2A message timeout",
				"request_id", requestID,
				"endpoint", c.cfg.Endpoint,
				"timeout", c.cfg.Timeout,
				"input_tokens", inputTokens,
			)
			sendErr := NewTimeoutError("agent response timeout", c.cfg.Timeout)
			finish(0, nil, contextID, sendErr)
			return "", "", sendErr
		}
		slog.Error("A2A message send failed",
			"request_id", requestID,
			"endpoint", c.cfg.Endpoint,
			"error", err,
		)
		sendErr := NewProtocolError(fmt.Sprintf("failed to send message: %v", err), 0)
		finish(0, nil, contextID, sendErr)
		return "", "", sendErr
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		sendErr := NewProtocolError(fmt.Sprintf("failed to read response: %v", err), resp.StatusCode)
		finish(resp.StatusCode, nil, contextID, sendErr)
		return "", "", sendErr
	}

	if resp.StatusCode == http.StatusUnauthorized {
		sendErr := NewAuthError("authentication failed")
		finish(resp.StatusCode, nil, contextID, sendErr)
		return "", "", sendErr
	}

	if resp.StatusCode == http.StatusRequestTimeout {
		sendErr := NewTimeoutError("agent response timeout", c.cfg.Timeout)
		finish(resp.StatusCode, nil, contextID, sendErr)
		return "", "", sendErr
	}

	if resp.StatusCode >= 400 {
		errMsg := fmt.Sprintf("message send failed with status %d", resp.StatusCode)
		if detail := embeddedErrorDetail(respBody); detail != "" {
			errMsg = fmt.Sprintf("%s: %s", errMsg, detail)
		}
		sendErr := NewProtocolError(errMsg, resp.StatusCode)
		finish(resp.StatusCode, nil, contextID, sendErr)
		return "", "", sendErr
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		slog.Error("failed to parse A2A response", "request_id", requestID, "error", err)
		sendErr := NewMessageError(fmt.Sprintf("invalid A2A response format: %v", err))
		finish(resp.StatusCode, nil, contextID, sendErr)
		return "", "", sendErr
	}

	if rpcResp.Error != nil {
		detail := rpcResp.Error.Message
		if detail == "" {
			detail = "Unknown error"
		}
		sendErr := NewMessageError(fmt.Sprintf("agent returned error: %s", detail))
		finish(resp.StatusCode, nil, contextID, sendErr)
		return "", "", sendErr
	}

	var result resultEnvelope
	if len(rpcResp.Result) > 0 {
		if err := json.Unmarshal(rpcResp.Result, &result); err != nil {
			slog.Error("failed to parse A2A response", "request_id", requestID, "error", err)
			sendErr := NewMessageError(fmt.Sprintf("invalid A2A response format: %v", err))
			finish(resp.StatusCode, nil, contextID, sendErr)
			return "", "", sendErr
		}
	}

	responseContent := result.extractText()
	if responseContent != "" {
		slog.Debug("A2A agent response content",
			"request_id", requestID,
			"content_length", len(responseContent),
		)
	} else {
		slog.Warn("A2A agent returned empty response",
			"request_id", requestID,
			"artifacts_count", len(result.Artifacts),
			"history_count", len(result.History),
		)
	}

	outputTokens := EstimateTokens(responseContent)
	respContextID := result.contextToken()

	slog.Info("A2A message exchange completed",
		"request_id", requestID,
		"endpoint", c.cfg.Endpoint,
		"status_code", resp.StatusCode,
		"latency_ms", time.Since(start).Milliseconds(),
		"input_tokens", inputTokens,
		"output_tokens", outputTokens,
		"context_id", respContextID,
	)

	finish(resp.StatusCode, &outputTokens, respContextID, nil)
	return responseContent, respContextID, nil
}

// ============================================================================
// METRICS ACCESSORS
// ============================================================================

// Metrics returns a copy of all records collected by this client.
func (c *Client) Metrics() []MetricRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]MetricRecord, len(c.metrics))
	copy(out, c.metrics)
	return out
}

// ClearMetrics drops all collected records.
func (c *Client) ClearMetrics() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics = nil
}

// Close releases the transport when this client owns it. A borrowed
// transport is left untouched. Safe to call multiple times.
func (c *Client) Close() error {
	if c.ownsClient && c.httpClient != nil {
		c.httpClient.CloseIdleConnections()
	}
	return nil
}

// ============================================================================
// RESPONSE TEXT EXTRACTION
// ============================================================================

// extractText walks the possible result layouts in priority order and
// returns the first one yielding non-empty text, fragments joined with
// newlines. The order is fixed: artifacts, direct parts, status.message,
// wrapped message, history (last agent entry). Servers could in principle
// populate more than one layout; first match wins.
func (r *resultEnvelope) extractText() string {
	var candidates [][]textPart

	for _, artifact := range r.Artifacts {
		candidates = append(candidates, artifact.Parts)
	}
	if joined := joinTexts(candidates...); joined != "" {
		return joined
	}

	if joined := joinTexts(r.Parts); joined != "" {
		return joined
	}

	if joined := joinTexts(r.Status.Message.Parts); joined != "" {
		return joined
	}

	if joined := joinTexts(r.Message.Parts); joined != "" {
		return joined
	}

	for i := len(r.History) - 1; i >= 0; i-- {
		if r.History[i].Role == "agent" {
			return joinTexts(r.History[i].Parts)
		}
	}

	return ""
}

func (r *resultEnvelope) contextToken() string {
	if r.ContextID != "" {
		return r.ContextID
	}
	return r.Message.ContextID
}

func joinTexts(partLists ...[]textPart) string {
	var texts []string
	for _, parts := range partLists {
		texts = append(texts, collectText(parts)...)
	}
	if len(texts) == 0 {
		return ""
	}
	joined := texts[0]
	for _, t := range texts[1:] {
		joined += "\n" + t
	}
	return joined
}

// embeddedErrorDetail pulls the server-provided error object out of an
// HTTP-level error body, when the body parses at all.
func embeddedErrorDetail(body []byte) string {
	var payload struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Error) == 0 {
		return ""
	}
	return string(payload.Error)
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
