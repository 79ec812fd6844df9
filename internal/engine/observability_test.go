package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tycooncore/pkg/domain"
)

type recordedObservation struct {
	op      string
	success bool
}

type captureMetrics struct {
	mu  sync.Mutex
	obs []recordedObservation
}

func (c *captureMetrics) Observe(_ context.Context, op string, success bool, _ time.Duration) {
	c.mu.Lock()
	c.obs = append(c.obs, recordedObservation{op: op, success: success})
	c.mu.Unlock()
}

type captureAudit struct {
	mu      sync.Mutex
	entries []AuditEntry
}

func (c *captureAudit) Record(_ context.Context, e AuditEntry) {
	c.mu.Lock()
	c.entries = append(c.entries, e)
	c.mu.Unlock()
}

func TestServiceRecordsEveryOperation(t *testing.T) {
	metrics := &captureMetrics{}
	audit := &captureAudit{}
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)
	h := newHarness(t, WithMetricsRecorder(metrics), WithAuditRecorder(audit), WithTracer(tracer))
	ctx := context.Background()

	require.NoError(t, h.svc.Unassign(ctx, marta))
	_, err := h.svc.Hire(ctx, "cand-ghost", "")
	require.Error(t, err)

	assert.Equal(t, []recordedObservation{
		{op: "new_game", success: true},
		{op: "unassign", success: true},
		{op: "hire", success: false},
	}, metrics.obs)

	require.Len(t, audit.entries, 3)
	assert.Equal(t, AuditStatusSuccess, audit.entries[1].Status)
	assert.Equal(t, marta, audit.entries[1].EntityID)
	assert.Equal(t, AuditStatusError, audit.entries[2].Status)
	assert.Contains(t, audit.entries[2].Error, "cand-ghost")

	entries := tracer.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "hire", entries[2].Operation)
	assert.Equal(t, "error", entries[2].Status)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	var decoded JSONTraceEntry
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &decoded))
	assert.Equal(t, "unassign", decoded.Operation)
	assert.Equal(t, "success", decoded.Status)
}

func TestPrometheusMetricsRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder(reg)
	require.NoError(t, err)

	h := newHarness(t, WithMetricsRecorder(rec))
	ctx := context.Background()
	_, err = h.svc.RequestUpgrade(ctx, starterBar, domain.CategoryCuisine)
	require.NoError(t, err)
	_, err = h.svc.ConfirmUpgrade(ctx)
	require.NoError(t, err)
	_, err = h.svc.ConfirmUpgrade(ctx)
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(rec.results.WithLabelValues("confirm_upgrade", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.results.WithLabelValues("confirm_upgrade", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.results.WithLabelValues("new_game", "success")))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.ElementsMatch(t, []string{"tycoon_engine_operation_duration_seconds", "tycoon_engine_operations_total"}, names)

	_, err = NewPrometheusMetricsRecorder(reg)
	assert.Error(t, err, "collectors register once per registry")
}

func TestNoopObserversAreSafe(t *testing.T) {
	var l Logger = noopLogger{}
	l.Debug("x")
	l.Info("x", "k", 1)
	l.Warn("x")
	l.Error("x")

	ctx, span := noopTracer{}.Start(context.Background(), "op")
	span.End(nil)
	noopMetrics{}.Observe(ctx, "op", true, time.Second)
	noopAudit{}.Record(ctx, AuditEntry{Operation: "op"})
}
