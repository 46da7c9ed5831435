package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"arkwarden/internal/domain"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetProfileStatusesResetsMissingStatuses(t *testing.T) {
	SetProfileStatuses([]domain.Profile{
		{ID: "a", Status: domain.StatusRunning},
		{ID: "b", Status: domain.StatusRunning},
		{ID: "c", Status: domain.StatusStopped},
	})
	assert.Equal(t, 2.0, testutil.ToFloat64(ProfilesByStatus.WithLabelValues(string(domain.StatusRunning))))
	assert.Equal(t, 1.0, testutil.ToFloat64(ProfilesByStatus.WithLabelValues(string(domain.StatusStopped))))

	SetProfileStatuses([]domain.Profile{{ID: "c", Status: domain.StatusStopped}})
	assert.Equal(t, 0.0, testutil.ToFloat64(ProfilesByStatus.WithLabelValues(string(domain.StatusRunning))))
	assert.Equal(t, 0.0, testutil.ToFloat64(ProfilesByStatus.WithLabelValues(string(domain.StatusError))))
}

func TestHandlerExposesCounters(t *testing.T) {
	Transitions.WithLabelValues(string(domain.StatusStarting)).Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "arkwarden_status_transitions_total")
}
