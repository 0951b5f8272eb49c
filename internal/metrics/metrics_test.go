package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsExist(t *testing.T) {
	tests := []struct {
		name   string
		metric interface{}
	}{
		{"SyncRunsTotal", SyncRunsTotal},
		{"TracksDiscoveredTotal", TracksDiscoveredTotal},
		{"TracksPrunedTotal", TracksPrunedTotal},
		{"Playlists", Playlists},
		{"DescriptorWritesTotal", DescriptorWritesTotal},
		{"DescriptorCorruptionsTotal", DescriptorCorruptionsTotal},
		{"TrackLoadsTotal", TrackLoadsTotal},
		{"PlaybackPositionSeconds", PlaybackPositionSeconds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.metric == nil {
				t.Errorf("%s metric is nil", tt.name)
			}
		})
	}
}

func TestResult(t *testing.T) {
	if Result(nil) != ResultOK {
		t.Errorf("Expected %q for nil error", ResultOK)
	}
	if Result(errors.New("boom")) != ResultError {
		t.Errorf("Expected %q for non-nil error", ResultError)
	}
}

func TestCounterIncrements(t *testing.T) {
	before := testutil.ToFloat64(SyncRunsTotal.WithLabelValues(ResultOK))
	SyncRunsTotal.WithLabelValues(ResultOK).Inc()
	after := testutil.ToFloat64(SyncRunsTotal.WithLabelValues(ResultOK))
	if after != before+1 {
		t.Errorf("Expected counter to grow by 1, got %v -> %v", before, after)
	}
}

func TestRouter(t *testing.T) {
	r := NewRouter()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 from /healthz, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 from /metrics, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "tunefolder_") {
		t.Error("Expected tunefolder metrics in exposition output")
	}
}
