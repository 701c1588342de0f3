package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/LilVoxy/dice_warehouse/ETL/metrics"
	"github.com/LilVoxy/dice_warehouse/ETL/models"
	"github.com/LilVoxy/dice_warehouse/ETL/utils"
	"github.com/LilVoxy/dice_warehouse/ETL/validate"
)

// Runner выполняет один запуск ETL
type Runner interface {
	Run(ctx context.Context) (*models.Warehouse, *validate.Report, error)
}

// Server - HTTP API над результатом последнего успешного запуска
type Server struct {
	runner  Runner
	metrics *metrics.Metrics
	logger  *utils.ETLLogger
	router  *mux.Router

	mu        sync.RWMutex
	warehouse *models.Warehouse
	report    *validate.Report
	lastRun   time.Time
	lastError string

	// запуски выполняются по одному
	runMu sync.Mutex
}

// NewServer создает сервер и настраивает маршруты
func NewServer(runner Runner, m *metrics.Metrics, logger *utils.ETLLogger) *Server {
	s := &Server{
		runner:  runner,
		metrics: m,
		logger:  logger.With("module", "api"),
		router:  mux.NewRouter(),
	}
	SetupRoutes(s.router, s)
	return s
}

// Handler возвращает корневой HTTP-обработчик
func (s *Server) Handler() http.Handler {
	return s.router
}

// Trigger выполняет запуск ETL и публикует результат
func (s *Server) Trigger(ctx context.Context) (*validate.Report, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	w, report, err := s.runner.Run(ctx)
	if err != nil {
		s.mu.Lock()
		s.lastError = err.Error()
		s.mu.Unlock()
		return nil, err
	}
	s.Publish(w, report)
	return report, nil
}

// Publish делает хранилище и отчет текущими
func (s *Server) Publish(w *models.Warehouse, report *validate.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warehouse = w
	s.report = report
	s.lastRun = time.Now().UTC()
	s.lastError = ""
}

// snapshot возвращает текущий результат; ok=false до первого успешного запуска
func (s *Server) snapshot() (*models.Warehouse, *validate.Report, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.warehouse, s.report, s.warehouse != nil && s.report != nil
}

// ListenAndServe обслуживает запросы до отмены ctx, затем корректно останавливает сервер
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP API запущен на %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("ошибка HTTP сервера: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("Остановка HTTP API...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("ошибка остановки HTTP сервера: %w", err)
	}
	return nil
}
