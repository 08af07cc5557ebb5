package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestPredictionMetrics_Counters(t *testing.T) {
	m, err := NewPredictionMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	m.ObservePrediction(OutcomeSuccess, 120*time.Millisecond)
	m.ObservePrediction(OutcomeSuccess, 80*time.Millisecond)
	m.ObservePrediction(OutcomeNotFound, time.Millisecond)
	m.IncDegraded("archive")

	require.InDelta(t, 2, testutil.ToFloat64(m.Predictions.WithLabelValues(OutcomeSuccess)), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.Predictions.WithLabelValues(OutcomeNotFound)), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.DegradedStages.WithLabelValues("archive")), 0)
}

func TestChatMetrics_Counters(t *testing.T) {
	registry := prometheus.NewRegistry()
	m, err := NewChatMetrics(registry)
	require.NoError(t, err)

	m.IncChatMessage(ChatEcho)
	m.IncChatMessage(ChatEcho)
	m.IncChatMessage(ChatUploadFailed)

	require.InDelta(t, 2, testutil.ToFloat64(m.ChatMessages.WithLabelValues(ChatEcho)), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.ChatMessages.WithLabelValues(ChatUploadFailed)), 0)
}

func TestChatMetrics_OnlyChatSeries(t *testing.T) {
	registry := prometheus.NewRegistry()
	m, err := NewChatMetrics(registry)
	require.NoError(t, err)
	m.IncChatMessage(ChatAnswered)

	families, err := registry.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	require.Equal(t, "polybot_chat_messages_total", families[0].GetName())
}

func TestMetrics_SameRegistry(t *testing.T) {
	registry := prometheus.NewRegistry()
	_, err := NewPredictionMetrics(registry)
	require.NoError(t, err)
	_, err = NewChatMetrics(registry)
	require.NoError(t, err)
}

func TestPredictionMetrics_DuplicateRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()
	_, err := NewPredictionMetrics(registry)
	require.NoError(t, err)

	_, err = NewPredictionMetrics(registry)
	require.Error(t, err)
}

func TestPredictionMetrics_NilSafe(t *testing.T) {
	var m *PredictionMetrics
	var c *ChatMetrics
	require.NotPanics(t, func() {
		m.ObservePrediction(OutcomeFailed, time.Second)
		m.IncDegraded("persist")
		c.IncChatMessage(ChatAnswered)
	})
}
