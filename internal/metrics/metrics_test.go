package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Dan9191/loanflow/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollector_Counts(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordApplication(models.DecisionEligible)
	c.RecordApplication(models.DecisionEligible)
	c.RecordApplication(models.DecisionReject)
	c.RecordTransition(models.StatusApproved, OutcomeApplied)
	c.RecordTransition(models.StatusApproved, OutcomeIllegal)
	c.RecordAuthFailure("expired")

	if got := testutil.ToFloat64(c.applications.WithLabelValues("ELIGIBLE")); got != 2 {
		t.Errorf("eligible = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.applications.WithLabelValues("REJECT")); got != 1 {
		t.Errorf("reject = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.transitions.WithLabelValues("APPROVED", OutcomeIllegal)); got != 1 {
		t.Errorf("illegal = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.authFailures.WithLabelValues("expired")); got != 1 {
		t.Errorf("expired = %v, want 1", got)
	}
}

func TestHandler_ExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordApplication(models.DecisionReview)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `loanflow_applications_total{decision="REVIEW"} 1`) {
		t.Fatalf("metric missing from output:\n%s", body)
	}
}
