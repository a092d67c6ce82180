package a2a

import (
	"math/rand"
	"strings"
	"testing"
)

func intPtr(v int) *int { return &v }

func TestAggregate_Empty(t *testing.T) {
	agg := Aggregate(nil)

	if agg.TotalRequests != 0 {
		t.Errorf("expected 0 requests, got %d", agg.TotalRequests)
	}
	if agg.AvgLatencyMS != 0 {
		t.Errorf("expected avg latency 0 for empty input, got %f", agg.AvgLatencyMS)
	}
}

func TestAggregate(t *testing.T) {
	records := []MetricRecord{
		{InputTokens: 10, OutputTokens: intPtr(20), LatencyMS: 100},
		{InputTokens: 5, OutputTokens: intPtr(5), LatencyMS: 50},
		{InputTokens: 7, LatencyMS: 30, Error: "timeout"},
	}

	agg := Aggregate(records)

	if agg.TotalRequests != 3 {
		t.Errorf("expected 3 requests, got %d", agg.TotalRequests)
	}
	if agg.TotalTokens != 47 {
		t.Errorf("expected 47 tokens, got %d", agg.TotalTokens)
	}
	if agg.TotalLatencyMS != 180 {
		t.Errorf("expected total latency 180, got %f", agg.TotalLatencyMS)
	}
	if agg.AvgLatencyMS != 60 {
		t.Errorf("expected avg latency 60, got %f", agg.AvgLatencyMS)
	}
	if agg.ErrorCount != 1 {
		t.Errorf("expected 1 error, got %d", agg.ErrorCount)
	}
}

func TestAggregate_OrderIndependent(t *testing.T) {
	records := []MetricRecord{
		{InputTokens: 1, OutputTokens: intPtr(2), LatencyMS: 10},
		{InputTokens: 3, LatencyMS: 20, Error: "x"},
		{InputTokens: 5, OutputTokens: intPtr(8), LatencyMS: 30},
		{InputTokens: 13, LatencyMS: 40},
	}

	want := Aggregate(records)

	shuffled := make([]MetricRecord, len(records))
	copy(shuffled, records)
	rand.New(rand.NewSource(42)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	if got := Aggregate(shuffled); got != want {
		t.Errorf("aggregation changed under reordering: got %+v, want %+v", got, want)
	}
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"ab", 0},
		{"abcd", 1},
		{"hello, world!", 3},
		{strings.Repeat("x", 1000), 250},
	}

	for _, tt := range tests {
		if got := EstimateTokens(tt.text); got != tt.want {
			t.Errorf("EstimateTokens(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestEstimateTokens_Deterministic(t *testing.T) {
	text := "the same input always yields the same estimate"
	first := EstimateTokens(text)
	for i := 0; i < 10; i++ {
		if got := EstimateTokens(text); got != first {
			t.Fatalf("estimate changed between calls: %d vs %d", first, got)
		}
	}
}
