package server

import (
	"github.com/gorilla/mux"
)

// SetupRoutes настраивает все маршруты API
func SetupRoutes(router *mux.Router, s *Server) {
	// Состояние сервиса
	router.HandleFunc("/api/health", HealthHandler(s)).Methods("GET")

	// Отчет о целостности
	router.HandleFunc("/api/report", ReportHandler(s)).Methods("GET")

	// Таблицы хранилища
	router.HandleFunc("/api/tables", TablesHandler(s)).Methods("GET")
	router.HandleFunc("/api/tables/{name}", TableCSVHandler(s)).Methods("GET")

	// Ручной запуск ETL
	router.HandleFunc("/api/runs", TriggerRunHandler(s)).Methods("POST")

	// Метрики Prometheus
	if s.metrics != nil {
		router.Handle("/metrics", s.metrics.Handler()).Methods("GET")
	}
}
