package service

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/therafiali/internal-app-sub000/internal/models"
)

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService
	assert.NotPanics(t, func() {
		m.ObserveHTTPRequest(http.MethodGet, "/x", 200, time.Millisecond)
		m.RecordTransition(models.RequestTypeRecharge, "process", "ok")
		m.RecordLockAttempt(models.RequestTypeRecharge, true)
		m.RecordLocksSwept(models.RequestTypeRedeem, 2)
		m.RecordNotification(TemplateRedeemPaid, "sent")
		m.SubscriberDelta(1)
	})
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsServiceExposesWorkflowCounters(t *testing.T) {
	m := NewMetricsService()
	m.RecordTransition(models.RequestTypeRecharge, "process", "ok")
	m.RecordTransition(models.RequestTypeRecharge, "process", "ok")
	m.SubscriberDelta(3)
	m.SubscriberDelta(-1)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.transitions.WithLabelValues("recharge", "process", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.subscribers))
	assert.Equal(t, 0.5, testutil.ToFloat64(m.cacheHitRatio))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "request_transitions_total"))
}
