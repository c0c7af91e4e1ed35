package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsRecordNothing(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ReminderFired()
		m.NotifyFailed()
		m.SetActiveReminders(3)
		m.ObserveLookup(KindName, 1.5, nil)
		m.StorageFailed("save")
		m.StaleLookup()
	})
	assert.NotNil(t, m.Handler())
}

func TestObserveLookup(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveLookup(KindImage, 0.3, nil)
	m.ObserveLookup(KindImage, 2, errors.New("boom"))
	m.ObserveLookup(KindTranslate, 1, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Lookups.WithLabelValues(KindImage, "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Lookups.WithLabelValues(KindImage, "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Lookups.WithLabelValues(KindTranslate, "success")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.LookupDuration))
}

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ReminderFired()
	m.ReminderFired()
	m.NotifyFailed()
	m.SetActiveReminders(4)
	m.StorageFailed("load")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RemindersFired))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotifyFailures))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.RemindersActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StorageFailures.WithLabelValues("load")))
}

func TestHandlerServesRegistry(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ReminderFired()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "medilens_reminders_fired_total 1")
}
