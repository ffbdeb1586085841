package metrics

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewCollector(t *testing.T) {
	collector := NewCollector()

	if collector == nil {
		t.Fatal("NewCollector() returned nil")
	}

	if collector.counters == nil {
		t.Fatal("counters not initialized")
	}

	metrics := collector.GetMetrics()
	if metrics.FetchRequests != 0 {
		t.Errorf("Expected no fetch requests, got %d", metrics.FetchRequests)
	}
	if metrics.StartTime.IsZero() {
		t.Error("Expected start time to be set")
	}
}

func TestIncludeOutcomeMetrics(t *testing.T) {
	collector := NewCollector()

	collector.IncrementPagesProcessed()
	collector.AddDirectivesFound(3)
	collector.AddDirectivesFound(0)
	collector.IncrementPopulated()
	collector.IncrementPopulated()
	collector.IncrementFailed()

	metrics := collector.GetMetrics()
	if metrics.PagesProcessed != 1 {
		t.Errorf("Expected 1 page processed, got %d", metrics.PagesProcessed)
	}
	if metrics.DirectivesFound != 3 {
		t.Errorf("Expected 3 directives, got %d", metrics.DirectivesFound)
	}
	if metrics.IncludesPopulated != 2 {
		t.Errorf("Expected 2 populated, got %d", metrics.IncludesPopulated)
	}
	if metrics.IncludesFailed != 1 {
		t.Errorf("Expected 1 failed, got %d", metrics.IncludesFailed)
	}

	rate := collector.GetFailureRate()
	if rate < 33.3 || rate > 33.4 {
		t.Errorf("Expected failure rate ~33.3%%, got %f", rate)
	}
}

func TestFetchConcurrencyTracking(t *testing.T) {
	collector := NewCollector()

	collector.IncrementFetchStarted()
	collector.IncrementFetchStarted()
	collector.IncrementFetchFinished()
	collector.IncrementFetchStarted()
	collector.IncrementFetchFinished()
	collector.IncrementFetchFinished()

	metrics := collector.GetMetrics()
	if metrics.FetchRequests != 3 {
		t.Errorf("Expected 3 fetch requests, got %d", metrics.FetchRequests)
	}
	if metrics.ActiveFetches != 0 {
		t.Errorf("Expected 0 active fetches, got %d", metrics.ActiveFetches)
	}
	if metrics.MaxConcurrentFetches != 2 {
		t.Errorf("Expected max concurrent 2, got %d", metrics.MaxConcurrentFetches)
	}
}

func TestConcurrentUpdates(t *testing.T) {
	collector := NewCollector()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			collector.IncrementFetchStarted()
			collector.IncrementPopulated()
			collector.IncrementFetchFinished()
		}()
	}
	wg.Wait()

	metrics := collector.GetMetrics()
	if metrics.FetchRequests != 50 || metrics.IncludesPopulated != 50 {
		t.Errorf("Expected 50/50, got %d/%d", metrics.FetchRequests, metrics.IncludesPopulated)
	}
	if metrics.MaxConcurrentFetches < 1 || metrics.MaxConcurrentFetches > 50 {
		t.Errorf("Unexpected max concurrent fetches %d", metrics.MaxConcurrentFetches)
	}
}

func TestNilCollector(t *testing.T) {
	var collector *Collector

	// None of these may panic
	collector.AddDirectivesFound(1)
	collector.IncrementFetchStarted()
	collector.IncrementFetchFinished()
	collector.IncrementPopulated()
	collector.IncrementFailed()
	collector.IncrementPagesProcessed()
	collector.Reset()

	if got := collector.GetMetrics(); got.FetchRequests != 0 {
		t.Errorf("Expected zero metrics from nil collector, got %+v", got)
	}
	if rate := collector.GetFailureRate(); rate != 0 {
		t.Errorf("Expected zero failure rate from nil collector, got %f", rate)
	}

	reg := prometheus.NewRegistry()
	if err := collector.Register(reg); err != nil {
		t.Fatalf("Register on nil collector failed: %v", err)
	}
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	if len(families) != 0 {
		t.Errorf("Expected nil collector to register nothing, got %d families", len(families))
	}
}

func TestReset(t *testing.T) {
	collector := NewCollector()
	collector.IncrementFailed()
	collector.IncrementPagesProcessed()

	collector.Reset()

	metrics := collector.GetMetrics()
	if metrics.IncludesFailed != 0 || metrics.PagesProcessed != 0 {
		t.Errorf("Expected metrics reset, got %+v", metrics)
	}
}

func TestMetricsJSON(t *testing.T) {
	collector := NewCollector()
	collector.IncrementPopulated()

	data, err := json.Marshal(collector.GetMetrics())
	if err != nil {
		t.Fatalf("Failed to marshal metrics: %v", err)
	}

	if !strings.Contains(string(data), `"includes_populated":1`) {
		t.Errorf("Expected includes_populated in JSON, got %s", data)
	}
}

func TestRegister(t *testing.T) {
	collector := NewCollector()
	reg := prometheus.NewRegistry()

	if err := collector.Register(reg); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	collector.IncrementFailed()
	collector.IncrementFailed()

	expected := `
# HELP htmlinclude_includes_failed_total Elements replaced with the error placeholder.
# TYPE htmlinclude_includes_failed_total counter
htmlinclude_includes_failed_total 2
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "htmlinclude_includes_failed_total"); err != nil {
		t.Errorf("Unexpected metric output: %v", err)
	}

	// A second registration of the same names must fail
	if err := collector.Register(reg); err == nil {
		t.Error("Expected duplicate registration to fail")
	}
}
