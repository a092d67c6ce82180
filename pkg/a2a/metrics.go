package a2a

// ============================================================================
// PROTOCOL METRICS
// One record per request/response exchange, owned by the Client.
// ============================================================================

// MetricRecord is one measurement of a single protocol exchange. Records are
// immutable once appended. StatusCode is 0 when no HTTP status was observed,
// OutputTokens is nil except on success, Error is empty except on failure.
type MetricRecord struct {
	RequestID    string  `json:"request_id"`
	Endpoint     string  `json:"endpoint"`
	Method       string  `json:"method"`
	StatusCode   int     `json:"status_code,omitempty"`
	LatencyMS    float64 `json:"latency_ms"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens *int    `json:"output_tokens,omitempty"`
	ContextID    string  `json:"context_id,omitempty"`
	Error        string  `json:"error,omitempty"`
	Timestamp    string  `json:"timestamp"`
}

// AggregatedMetrics is a pure reduction over a list of MetricRecord.
type AggregatedMetrics struct {
	TotalRequests  int     `json:"total_requests"`
	TotalTokens    int     `json:"total_tokens"`
	TotalLatencyMS float64 `json:"total_latency_ms"`
	AvgLatencyMS   float64 `json:"avg_latency_ms"`
	ErrorCount     int     `json:"error_count"`
}

// Aggregate computes summary statistics over records. It is stable under
// record reordering and safe to call repeatedly; nil token estimates count
// as zero and the average latency is 0 for an empty input.
func Aggregate(records []MetricRecord) AggregatedMetrics {
	agg := AggregatedMetrics{TotalRequests: len(records)}

	for _, r := range records {
		agg.TotalTokens += r.InputTokens
		if r.OutputTokens != nil {
			agg.TotalTokens += *r.OutputTokens
		}
		agg.TotalLatencyMS += r.LatencyMS
		if r.Error != "" {
			agg.ErrorCount++
		}
	}

	if agg.TotalRequests > 0 {
		agg.AvgLatencyMS = agg.TotalLatencyMS / float64(agg.TotalRequests)
	}

	return agg
}

// EstimateTokens provides a rough, deterministic token estimation
// (~4 characters per token). Not a real tokenizer.
func EstimateTokens(text string) int {
	return len(text) / 4
}
