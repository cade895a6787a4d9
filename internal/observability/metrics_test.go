package observability

import (
	"sync"
	"testing"
	"time"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.RecordRequest("/slack/interactivity", "POST", 200, time.Duration(10)*time.Millisecond)
			m.RecordInteraction("filter_change", "ok")
		}()
	}
	wg.Wait()
	m.RecordError("/slack/commands", "POST", "UNAUTHORIZED")
	m.RecordRequest("/slack/interactivity", "POST", 200, 250*time.Millisecond)

	s := m.Snapshot()
	if got := s.Requests["/slack/interactivity|POST|200"]; got != 21 {
		t.Fatalf("requests = %d", got)
	}
	if got := s.Interactions["filter_change|ok"]; got != 20 {
		t.Fatalf("interactions = %d", got)
	}
	if got := s.Errors["/slack/commands|POST|UNAUTHORIZED"]; got != 1 {
		t.Fatalf("errors = %d", got)
	}
	if got := s.SlowestMS["/slack/interactivity"]; got != 250 {
		t.Fatalf("slowest = %d", got)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", 200, time.Second)
	m.RecordInteraction("x", "ok")
	if s := m.Snapshot(); len(s.Requests) != 0 {
		t.Fatalf("nil metrics produced counters")
	}
}
