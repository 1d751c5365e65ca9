package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMetrics_RecordDecision(t *testing.T) {
	m := NewMetrics()

	m.RecordDecision("deals", "read", true)
	m.RecordDecision("deals", "read", false)
	m.RecordDecision("deals", "read", false)

	body := scrape(t, m)
	if !strings.Contains(body, `access_decisions_total{action="read",outcome="allow",resource="deals"} 1`) {
		t.Error("Expected allow counter at 1")
	}
	if !strings.Contains(body, `access_decisions_total{action="read",outcome="deny",resource="deals"} 2`) {
		t.Error("Expected deny counter at 2")
	}
}

func TestMetrics_RecordMenuResolution(t *testing.T) {
	m := NewMetrics()

	m.RecordMenuResolution("tenant")
	m.RecordMenuResolution("unresolved")

	body := scrape(t, m)
	if !strings.Contains(body, `access_menu_resolutions_total{scope="tenant"} 1`) {
		t.Error("Expected tenant scope counter")
	}
	if !strings.Contains(body, `access_menu_resolutions_total{scope="unresolved"} 1`) {
		t.Error("Expected unresolved scope counter")
	}
}

func TestMetrics_HTTPMiddleware(t *testing.T) {
	m := NewMetrics()

	handler := m.HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest("GET", "/access/check", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	body := scrape(t, m)
	if !strings.Contains(body, `access_http_requests_total{method="GET",path="/access/check",status="418"} 1`) {
		t.Errorf("Expected request counter with captured status, got:\n%s", body)
	}
}

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	return rec.Body.String()
}
