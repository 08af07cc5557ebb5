// Package metrics содержит Prometheus-метрики конвейера распознавания.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Исходы запроса распознавания.
const (
	OutcomeSuccess  = "success"
	OutcomeNotFound = "not_found"
	OutcomeFailed   = "failed"
)

// Исходы обработки сообщения чата.
const (
	ChatEcho           = "echo"
	ChatAnswered       = "answered"
	ChatDownloadFailed = "download_failed"
	ChatUploadFailed   = "upload_failed"
	ChatPredictFailed  = "predict_failed"
)

// PredictionMetrics собирает метрики сервиса распознавания.
// Методы безопасно вызывать у nil.
type PredictionMetrics struct {
	Predictions        *prometheus.CounterVec
	DegradedStages     *prometheus.CounterVec
	PredictionDuration prometheus.Histogram
}

// ChatMetrics собирает метрики бота. Методы безопасно вызывать у nil.
type ChatMetrics struct {
	ChatMessages *prometheus.CounterVec
}

// NewPredictionMetrics создаёт метрики и регистрирует их в registry.
func NewPredictionMetrics(registry prometheus.Registerer) (*PredictionMetrics, error) {
	m := &PredictionMetrics{
		Predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "polybot_predictions_total",
			Help: "Total number of prediction requests by outcome.",
		}, []string{"outcome"}),
		DegradedStages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "polybot_degraded_stages_total",
			Help: "Total number of non-fatal stage failures by stage.",
		}, []string{"stage"}),
		PredictionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "polybot_prediction_duration_seconds",
			Help:    "Duration of prediction requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
	}

	if err := register(registry, m.Predictions, m.DegradedStages, m.PredictionDuration); err != nil {
		return nil, fmt.Errorf("register prediction metrics: %w", err)
	}
	return m, nil
}

// NewChatMetrics создаёт метрики бота и регистрирует их в registry.
func NewChatMetrics(registry prometheus.Registerer) (*ChatMetrics, error) {
	m := &ChatMetrics{
		ChatMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "polybot_chat_messages_total",
			Help: "Total number of handled chat messages by outcome.",
		}, []string{"outcome"}),
	}

	if err := register(registry, m.ChatMessages); err != nil {
		return nil, fmt.Errorf("register chat metrics: %w", err)
	}
	return m, nil
}

func register(registry prometheus.Registerer, collectors ...prometheus.Collector) error {
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObservePrediction учитывает завершённый запрос распознавания.
func (m *PredictionMetrics) ObservePrediction(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Predictions.WithLabelValues(outcome).Inc()
	m.PredictionDuration.Observe(elapsed.Seconds())
}

// IncDegraded учитывает нефатальный сбой этапа.
func (m *PredictionMetrics) IncDegraded(stage string) {
	if m == nil {
		return
	}
	m.DegradedStages.WithLabelValues(stage).Inc()
}

// IncChatMessage учитывает обработанное сообщение чата.
func (m *ChatMetrics) IncChatMessage(outcome string) {
	if m == nil {
		return
	}
	m.ChatMessages.WithLabelValues(outcome).Inc()
}
