// Package agent bridges a turn-based evaluation harness onto a remote A2A
// agent. Each conversation turn is translated to wire content, exchanged
// over the protocol client, and translated back into a structured message,
// with the server's context token threaded through immutable turn state.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/agentbench/a2abridge/pkg/a2a"
	"github.com/agentbench/a2abridge/pkg/message"
	"github.com/agentbench/a2abridge/pkg/tool"
)

// agentType identifies this adapter in exported metrics.
const agentType = "a2a_agent"

// State is the immutable per-conversation state threaded through turns.
// NextTurn never mutates its input; it returns a successor.
type State struct {
	// ContextID is the server-assigned context token, empty until the
	// first response that carries one.
	ContextID string

	// History holds every turn so far, oldest first.
	History []message.Message

	// RequestCount is the number of completed exchanges.
	RequestCount int
}

// Clone returns a deep-enough copy: the history slice is duplicated so
// appends on the successor never alias the original.
func (s *State) Clone() *State {
	history := make([]message.Message, len(s.History))
	copy(history, s.History)
	return &State{
		ContextID:    s.ContextID,
		History:      history,
		RequestCount: s.RequestCount,
	}
}

// Agent adapts the synchronous turn interface onto the A2A protocol client.
// One Agent drives one remote agent; turns on the same Agent are serialized
// so context tokens cannot interleave.
type Agent struct {
	cfg    *a2a.Config
	client *a2a.Client
	tools  []tool.Descriptor

	mu       sync.Mutex
	stopOnce sync.Once
}

// New creates an agent adapter for the given connection config. tools is
// the catalog advertised to the remote agent on user turns; it may be
// empty. httpClient follows the same ownership rule as a2a.NewClient.
func New(cfg *a2a.Config, tools []tool.Descriptor, httpClient *http.Client) (*Agent, error) {
	client, err := a2a.NewClient(cfg, httpClient)
	if err != nil {
		return nil, fmt.Errorf("failed to create A2A client: %w", err)
	}

	slog.Info("initialized A2A agent adapter",
		"endpoint", cfg.Endpoint,
		"timeout", cfg.Timeout,
		"tools", len(tools),
	)

	return &Agent{
		cfg:    cfg,
		client: client,
		tools:  tools,
	}, nil
}

// Client exposes the underlying protocol client, mainly for discovery.
func (a *Agent) Client() *a2a.Client {
	return a.client
}

// InitState creates the starting state for a new conversation seeded with
// an optional prior history. The context token always starts empty; the
// remote agent assigns one on the first exchange.
func (a *Agent) InitState(history []message.Message) *State {
	s := &State{History: history}
	return s.Clone()
}

// NextTurn sends one conversation turn to the remote agent and returns the
// agent's reply plus the successor state. The tool catalog is attached only
// to user turns; assistant echoes and tool results go bare. On error the
// input state remains valid and unchanged.
func (a *Agent) NextTurn(msg message.Message, state *State) (message.Message, *State, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if state == nil {
		return message.Message{}, nil, fmt.Errorf("nil conversation state")
	}

	var tools []tool.Descriptor
	if msg.Role == message.RoleUser {
		tools = a.tools
	}

	content, err := a2a.ToWireContent(msg, tools)
	if err != nil {
		return message.Message{}, nil, fmt.Errorf("failed to translate message: %w", err)
	}

	type exchange struct {
		text      string
		contextID string
	}
	result, err := runBridged(a.cfg.Timeout, func(ctx context.Context) (exchange, error) {
		text, contextID, err := a.client.Send(ctx, content, state.ContextID)
		return exchange{text: text, contextID: contextID}, err
	})
	if err != nil {
		return message.Message{}, nil, err
	}

	next := state.Clone()
	next.ContextID = a.trackContext(state.ContextID, result.contextID)
	next.RequestCount++

	reply, err := a2a.FromWireContent(result.text)
	if err != nil {
		return message.Message{}, nil, err
	}

	next.History = append(next.History, msg, reply)

	return reply, next, nil
}

// trackContext reconciles the context token across an exchange. The token
// is sticky: an empty response token keeps the previous one.
func (a *Agent) trackContext(prev, got string) string {
	switch {
	case got == "":
		if prev != "" {
			slog.Debug("response carried no context token, keeping previous", "context_id", prev)
		}
		return prev
	case prev == "":
		slog.Info("A2A context established", "context_id", got)
		return got
	case got != prev:
		slog.Warn("A2A context token changed unexpectedly",
			"previous", prev,
			"received", got,
		)
		return got
	default:
		return prev
	}
}

// Stop releases the protocol client. Idempotent and safe to call on an
// agent that never sent a turn.
func (a *Agent) Stop() {
	a.stopOnce.Do(func() {
		if err := a.client.Close(); err != nil {
			slog.Warn("error closing A2A client", "error", err)
		}
	})
}

// Metrics returns a copy of the per-request protocol records.
func (a *Agent) Metrics() []a2a.MetricRecord {
	return a.client.Metrics()
}

// AggregatedMetrics summarizes all records collected so far.
func (a *Agent) AggregatedMetrics() a2a.AggregatedMetrics {
	return a2a.Aggregate(a.client.Metrics())
}

// ClearMetrics drops all collected protocol records.
func (a *Agent) ClearMetrics() {
	a.client.ClearMetrics()
}

// MetricsExport is the JSON document produced by ExportMetrics: the task
// correlation ID, the adapter kind, the raw per-request records, and their
// aggregate summary.
type MetricsExport struct {
	TaskID          *string               `json:"task_id"`
	AgentType       string                `json:"agent_type"`
	ProtocolMetrics []a2a.MetricRecord    `json:"protocol_metrics"`
	Summary         a2a.AggregatedMetrics `json:"summary"`
}

// ExportMetrics packages the collected records for external reporting.
// taskID may be empty, in which case it serializes as null.
func (a *Agent) ExportMetrics(taskID string) MetricsExport {
	records := a.client.Metrics()
	if records == nil {
		records = []a2a.MetricRecord{}
	}

	export := MetricsExport{
		AgentType:       agentType,
		ProtocolMetrics: records,
		Summary:         a2a.Aggregate(records),
	}
	if taskID != "" {
		export.TaskID = &taskID
	}
	return export
}
