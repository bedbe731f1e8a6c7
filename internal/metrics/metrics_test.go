package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// findMetric はレジストリから指定名・ラベルのメトリクスを探す。見つからない場合はnil。
func findMetric(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) *dto.Metric {
	t.Helper()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if labelsMatch(m, labels) {
				return m
			}
		}
	}
	return nil
}

func labelsMatch(m *dto.Metric, labels map[string]string) bool {
	got := make(map[string]string, len(m.GetLabel()))
	for _, lp := range m.GetLabel() {
		got[lp.GetName()] = lp.GetValue()
	}
	for k, v := range labels {
		if got[k] != v {
			return false
		}
	}
	return true
}

func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	if c := NewCollector(reg); c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

func TestRecordPostView_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordPostView()
	c.RecordPostView()

	m := findMetric(t, reg, "marsblog_post_views_total", nil)
	if m == nil {
		t.Fatal("marsblog_post_views_total metric not found")
	}
	if v := m.GetCounter().GetValue(); v != 2 {
		t.Errorf("post_views_total = %v, want 2", v)
	}
}

func TestRecordLike_LabelsByResult(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordLike(LikeResultCounted)
	c.RecordLike(LikeResultCounted)
	c.RecordLike(LikeResultAlreadyLiked)

	tests := []struct {
		result string
		want   float64
	}{
		{LikeResultCounted, 2},
		{LikeResultAlreadyLiked, 1},
	}
	for _, tt := range tests {
		m := findMetric(t, reg, "marsblog_post_likes_total", map[string]string{"result": tt.result})
		if m == nil {
			t.Fatalf("likes metric with result=%s not found", tt.result)
		}
		if v := m.GetCounter().GetValue(); v != tt.want {
			t.Errorf("likes{result=%s} = %v, want %v", tt.result, v, tt.want)
		}
	}
}

func TestRecordSubscriptionAndNotification(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordSubscription()
	c.RecordNotification(NotifyResultFailed)

	if m := findMetric(t, reg, "marsblog_subscriptions_total", nil); m == nil || m.GetCounter().GetValue() != 1 {
		t.Errorf("subscriptions_total not recorded: %v", m)
	}
	if m := findMetric(t, reg, "marsblog_notifications_total", map[string]string{"result": "failed"}); m == nil || m.GetCounter().GetValue() != 1 {
		t.Errorf("notifications_total{result=failed} not recorded: %v", m)
	}
}

func TestRecordHTTPStatus_IncrementsCounterWithLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(404)

	if m := findMetric(t, reg, "marsblog_http_status_total", map[string]string{"status_code": "200"}); m == nil || m.GetCounter().GetValue() != 2 {
		t.Errorf("status 200 count wrong: %v", m)
	}
	if m := findMetric(t, reg, "marsblog_http_status_total", map[string]string{"status_code": "404"}); m == nil || m.GetCounter().GetValue() != 1 {
		t.Errorf("status 404 count wrong: %v", m)
	}
}

func TestRecordRequestLatency_ObservesHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRequestLatency(150 * time.Millisecond)

	m := findMetric(t, reg, "marsblog_http_request_duration_seconds", nil)
	if m == nil {
		t.Fatal("latency histogram not found")
	}
	if n := m.GetHistogram().GetSampleCount(); n != 1 {
		t.Errorf("sample count = %d, want 1", n)
	}
}

// TestMultipleCollectors_IndependentRegistries は別レジストリへの登録が衝突しないことを検証する。
func TestMultipleCollectors_IndependentRegistries(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("registering on separate registries panicked: %v", r)
		}
	}()
	NewCollector(prometheus.NewRegistry())
	NewCollector(prometheus.NewRegistry())
}
