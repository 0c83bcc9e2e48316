package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetConnectionState(t *testing.T) {
	states := []string{"disconnected", "connecting", "connected"}

	SetConnectionState("/metrics-test", "connecting", states)
	assert.Equal(t, 1.0, testutil.ToFloat64(ConnectionState.WithLabelValues("/metrics-test", "connecting")))
	assert.Equal(t, 0.0, testutil.ToFloat64(ConnectionState.WithLabelValues("/metrics-test", "connected")))

	SetConnectionState("/metrics-test", "connected", states)
	assert.Equal(t, 0.0, testutil.ToFloat64(ConnectionState.WithLabelValues("/metrics-test", "connecting")))
	assert.Equal(t, 1.0, testutil.ToFloat64(ConnectionState.WithLabelValues("/metrics-test", "connected")))
}

func TestHandler(t *testing.T) {
	MessagesSent.WithLabelValues("/handler-test", StatusSuccess).Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `roomwire_ws_messages_sent_total{endpoint="/handler-test",status="success"} 1`)
}
