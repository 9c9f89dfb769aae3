package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordHTTPRequest(t *testing.T) {
	HTTPRequestsTotal.Reset()
	HTTPRequestDuration.Reset()

	RecordHTTPRequest("POST", "/api/v1/auth/login", "200", 0.1)
	RecordHTTPRequest("POST", "/api/v1/auth/login", "200", 0.2)
	RecordHTTPRequest("POST", "/api/v1/auth/login", "401", 0.05)

	assert.Equal(t, float64(2), testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/api/v1/auth/login", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/api/v1/auth/login", "401")))
}

func TestRecordLedgerMutation(t *testing.T) {
	LedgerMutationsTotal.Reset()

	RecordLedgerMutation("debit", "ok")
	RecordLedgerMutation("debit", "insufficient_balance")
	RecordLedgerMutation("debit", "ok")

	assert.Equal(t, float64(2), testutil.ToFloat64(LedgerMutationsTotal.WithLabelValues("debit", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(LedgerMutationsTotal.WithLabelValues("debit", "insufficient_balance")))
}

func TestRecordReuseDetected(t *testing.T) {
	RefreshReuseDetectedTotal.Reset()

	RecordReuseDetected("revoked_token_presented")

	assert.Equal(t, float64(1), testutil.ToFloat64(RefreshReuseDetectedTotal.WithLabelValues("revoked_token_presented")))
}

func TestRecordRefreshIssued(t *testing.T) {
	before := testutil.ToFloat64(RefreshTokensIssuedTotal)

	RecordRefreshIssued()

	assert.Equal(t, before+1, testutil.ToFloat64(RefreshTokensIssuedTotal))
}

func TestRecordTrackingJob(t *testing.T) {
	TrackingJobsTotal.Reset()

	RecordTrackingJob("retried")
	RecordTrackingJob("activated")

	assert.Equal(t, float64(1), testutil.ToFloat64(TrackingJobsTotal.WithLabelValues("retried")))
	assert.Equal(t, float64(1), testutil.ToFloat64(TrackingJobsTotal.WithLabelValues("activated")))
}
