package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersIncrement(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.TokenIssued("login")
	m.TokenIssued("login")
	m.GuardDecision("rejected", "revoked")
	m.Revoked("all")
	m.PasswordReset("requested")
	m.Mail("failed")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.TokensIssued.WithLabelValues("login")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GuardDecisions.WithLabelValues("rejected", "revoked")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Revocations.WithLabelValues("all")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PasswordResets.WithLabelValues("requested")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MailDispatch.WithLabelValues("failed")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.TokenIssued("register")
		m.GuardDecision("authenticated", "")
		m.Revoked("token")
		m.PasswordReset("consumed")
		m.Mail("published")
	})
}

func TestHandlerExposesAuthMetrics(t *testing.T) {
	reg, m := NewRegistry()
	m.TokenIssued("register")

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `auth_tokens_issued_total{flow="register"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
