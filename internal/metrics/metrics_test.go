package metrics

import (
	"net/http/httptest"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

func scrape(t *testing.T, m *Metrics) map[string]*dto.MetricFamily {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 200 {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	parser := &expfmt.TextParser{}
	mfs, err := parser.TextToMetricFamilies(rec.Body)
	if err != nil {
		t.Fatalf("parse metrics: %v", err)
	}
	return mfs
}

func TestMetrics_Exposition(t *testing.T) {
	m := New()
	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()
	m.MessageSent()
	m.MessageSent()
	m.MessageSent()
	m.SessionError(ReasonSend)
	m.Request("/ws/log", "101")

	mfs := scrape(t, m)

	if got := mfs["streamlog_stream_sessions_active"].GetMetric()[0].GetGauge().GetValue(); got != 1 {
		t.Errorf("sessions_active = %v, want 1", got)
	}
	if got := mfs["streamlog_stream_messages_sent_total"].GetMetric()[0].GetCounter().GetValue(); got != 3 {
		t.Errorf("messages_sent_total = %v, want 3", got)
	}

	errs := mfs["streamlog_stream_session_errors_total"]
	if errs == nil || len(errs.GetMetric()) != 1 {
		t.Fatalf("session_errors_total = %v", errs)
	}
	if lbl := errs.GetMetric()[0].GetLabel()[0]; lbl.GetName() != "reason" || lbl.GetValue() != ReasonSend {
		t.Errorf("session_errors_total label = %v", lbl)
	}

	if _, ok := mfs["go_goroutines"]; !ok {
		t.Errorf("go collector not registered")
	}
	if _, ok := mfs["streamlog_http_requests_total"]; !ok {
		t.Errorf("http_requests_total missing")
	}
}
