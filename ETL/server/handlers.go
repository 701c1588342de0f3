package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/LilVoxy/dice_warehouse/ETL/load"
	"github.com/LilVoxy/dice_warehouse/ETL/validate"
)

// HealthResponse - ответ /api/health
type HealthResponse struct {
	Status    string     `json:"status"`
	Ready     bool       `json:"ready"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	LastError string     `json:"last_error,omitempty"`
}

// TableInfo - описание таблицы хранилища
type TableInfo struct {
	Name    string   `json:"name"`
	Rows    int      `json:"rows"`
	Columns []string `json:"columns"`
}

// TablesResponse - ответ /api/tables
type TablesResponse struct {
	Tables []TableInfo `json:"tables"`
}

// RunResponse - ответ /api/runs
type RunResponse struct {
	RunID             string           `json:"run_id"`
	IntegrityScore    float64          `json:"integrity_score"`
	CompletenessScore float64          `json:"completeness_score"`
	Summary           validate.Summary `json:"summary"`
}

// HealthHandler сообщает о готовности сервиса
func HealthHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		resp := HealthResponse{
			Status:    "ok",
			Ready:     s.warehouse != nil,
			LastError: s.lastError,
		}
		if !s.lastRun.IsZero() {
			lastRun := s.lastRun
			resp.LastRun = &lastRun
		}
		s.mu.RUnlock()

		writeJSON(w, http.StatusOK, resp)
	}
}

// ReportHandler отдает отчет последнего запуска в JSON или, с ?format=yaml, в YAML
func ReportHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, report, ok := s.snapshot()
		if !ok {
			http.Error(w, "Хранилище еще не построено", http.StatusServiceUnavailable)
			return
		}

		switch r.URL.Query().Get("format") {
		case "", "json":
			data, err := report.JSON()
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write(data)
		case "yaml":
			data, err := report.YAML()
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/yaml")
			w.Write(data)
		case "text":
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			report.WriteText(w)
		default:
			http.Error(w, "Неизвестный формат отчета", http.StatusBadRequest)
		}
	}
}

// TablesHandler перечисляет таблицы хранилища
func TablesHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		warehouse, _, ok := s.snapshot()
		if !ok {
			http.Error(w, "Хранилище еще не построено", http.StatusServiceUnavailable)
			return
		}

		resp := TablesResponse{Tables: []TableInfo{}}
		for _, name := range warehouse.Names() {
			t, _ := warehouse.Get(name)
			resp.Tables = append(resp.Tables, TableInfo{
				Name:    name,
				Rows:    t.Len(),
				Columns: t.ColumnNames(),
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// TableCSVHandler отдает таблицу в CSV
func TableCSVHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		warehouse, _, ok := s.snapshot()
		if !ok {
			http.Error(w, "Хранилище еще не построено", http.StatusServiceUnavailable)
			return
		}

		name := mux.Vars(r)["name"]
		t, found := warehouse.Get(name)
		if !found {
			http.Error(w, "Таблица не найдена", http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+name+`.csv"`)
		if err := load.WriteTable(w, t); err != nil {
			s.logger.Error("Ошибка при отдаче таблицы %s: %v", name, err)
		}
	}
}

// TriggerRunHandler выполняет запуск ETL и возвращает сводку отчета
func TriggerRunHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := s.Trigger(r.Context())
		if err != nil {
			s.logger.Error("Ошибка при запуске ETL через API: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}

		writeJSON(w, http.StatusOK, RunResponse{
			RunID:             report.RunID,
			IntegrityScore:    report.IntegrityScore,
			CompletenessScore: report.CompletenessScore,
			Summary:           report.Summary,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
