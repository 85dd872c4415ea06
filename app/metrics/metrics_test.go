package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestInitializeIsIdempotent(t *testing.T) {
	assert.Same(t, Initialize(), Get())
}

func TestRecordEngineOp(t *testing.T) {
	m := Get()
	m.EngineOpsTotal.Reset()

	RecordEngineOp("like", OutcomeOK, 0.01)
	RecordEngineOp("like", OutcomeOK, 0.02)
	RecordEngineOp("like", OutcomeRolledBack, 0.03)
	RecordEngineOp("delete", OutcomeRejected, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.EngineOpsTotal.WithLabelValues("like", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EngineOpsTotal.WithLabelValues("like", OutcomeRolledBack)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EngineOpsTotal.WithLabelValues("delete", OutcomeRejected)))
}

func TestRecordStoreFailureAndAuth(t *testing.T) {
	m := Get()
	m.StoreFailuresTotal.Reset()
	m.AuthAttemptsTotal.Reset()

	RecordStoreFailure("posts.update")
	RecordAuth("login", "wrong_password")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.StoreFailuresTotal.WithLabelValues("posts.update")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuthAttemptsTotal.WithLabelValues("login", "wrong_password")))
}
