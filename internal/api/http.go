package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"polybot/internal/domain/entity"
	"polybot/internal/domain/port"
)

// HTTPServer обслуживает HTTP-интерфейс сервиса распознавания
type HTTPServer struct {
	echo      *echo.Echo
	predictor port.Predictor
	results   port.ResultStore
	log       *slog.Logger
}

// NewHTTPServer создаёт сервер и регистрирует маршруты
func NewHTTPServer(predictor port.Predictor, results port.ResultStore, gatherer prometheus.Gatherer, log *slog.Logger) *HTTPServer {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &HTTPServer{echo: e, predictor: predictor, results: results, log: log}

	e.POST("/predict", s.handlePredict)
	e.GET("/predictions/:id", s.handleGetPrediction)
	e.GET("/health", s.handleHealth)
	if gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	return s
}

// ServeHTTP позволяет использовать сервер как http.Handler
func (s *HTTPServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start слушает addr до вызова Shutdown
func (s *HTTPServer) Start(addr string) error {
	s.log.Info("inference server listening", "addr", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown останавливает сервер, дожидаясь активных запросов
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// handlePredict обрабатывает POST /predict?imgName=<ключ>
func (s *HTTPServer) handlePredict(c echo.Context) error {
	imgName := c.QueryParam("imgName")
	if imgName == "" {
		return c.String(http.StatusBadRequest, "imgName query parameter is required")
	}

	summary, err := s.predictor.Predict(c.Request().Context(), imgName)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, summary)
	case errors.Is(err, entity.ErrImageNotFound):
		return c.String(http.StatusNotFound, fmt.Sprintf("Image %s not found", imgName))
	case errors.Is(err, entity.ErrNoDetectionOutput):
		return c.String(http.StatusNotFound, fmt.Sprintf("Prediction result for %s not found", imgName))
	case errors.Is(err, entity.ErrNotFound):
		return c.String(http.StatusNotFound, fmt.Sprintf("%s not found", imgName))
	case errors.Is(err, entity.ErrInvalidImageKey):
		return c.String(http.StatusBadRequest, fmt.Sprintf("Invalid image name %q", imgName))
	default:
		s.log.Error("prediction request failed", "img_name", imgName, "error", err)
		return c.String(http.StatusInternalServerError, "Prediction failed")
	}
}

// handleGetPrediction обрабатывает GET /predictions/:id
func (s *HTTPServer) handleGetPrediction(c echo.Context) error {
	id := c.Param("id")

	summary, err := s.results.FindByID(c.Request().Context(), id)
	if errors.Is(err, entity.ErrNotFound) {
		return c.String(http.StatusNotFound, fmt.Sprintf("Prediction %s not found", id))
	}
	if err != nil {
		s.log.Error("failed to load prediction", "prediction_id", id, "error", err)
		return c.String(http.StatusInternalServerError, "Failed to load prediction")
	}
	return c.JSON(http.StatusOK, summary)
}

func (s *HTTPServer) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
