// ABOUTME: Tests for Prometheus metrics
// ABOUTME: Verifies recording helpers against a private registry
package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordChunk(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordChunk(300, 2*time.Millisecond, 0)
	m.RecordChunk(500, 3*time.Millisecond, 2)

	if got := testutil.ToFloat64(m.ChunksEncoded); got != 2 {
		t.Errorf("expected 2 chunks, got %v", got)
	}
	if got := testutil.ToFloat64(m.BytesEncoded); got != 800 {
		t.Errorf("expected 800 bytes, got %v", got)
	}
	if got := testutil.ToFloat64(m.OverflowRetries); got != 2 {
		t.Errorf("expected 2 overflow retries, got %v", got)
	}
}

func TestListenerGauges(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordListenerJoin("http")
	m.RecordListenerJoin("http")
	m.RecordListenerJoin("websocket")
	m.RecordListenerLeave("http")

	if got := testutil.ToFloat64(m.ActiveListeners.WithLabelValues("http")); got != 1 {
		t.Errorf("expected 1 active http listener, got %v", got)
	}
	if got := testutil.ToFloat64(m.ListenersTotal.WithLabelValues("http")); got != 2 {
		t.Errorf("expected 2 total http listeners, got %v", got)
	}
	if got := testutil.ToFloat64(m.ActiveListeners.WithLabelValues("websocket")); got != 1 {
		t.Errorf("expected 1 active websocket listener, got %v", got)
	}
}

func TestRecordDrop(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordDrop("slow_listener")
	m.RecordDrop("slow_listener")
	m.RecordEncodeError()

	if got := testutil.ToFloat64(m.ChunksDropped.WithLabelValues("slow_listener")); got != 2 {
		t.Errorf("expected 2 drops, got %v", got)
	}
	if got := testutil.ToFloat64(m.EncoderErrors); got != 1 {
		t.Errorf("expected 1 encoder error, got %v", got)
	}
}

func TestNewRegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	// Vec metrics without observations are not gathered
	if len(families) < 5 {
		t.Errorf("expected at least 5 metric families, got %d", len(families))
	}
}
