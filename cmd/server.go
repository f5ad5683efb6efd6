package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/temp-anomaly/internal/anomaly"
	"github.com/sells-group/temp-anomaly/internal/check"
	"github.com/sells-group/temp-anomaly/internal/export"
	"github.com/sells-group/temp-anomaly/internal/model"
	"github.com/sells-group/temp-anomaly/internal/store"
)

// maxUploadBytes bounds a POST /datasets body.
const maxUploadBytes = 64 << 20

type server struct {
	env *appEnv
}

// buildRouter wires the HTTP API over env. env.Store must be open; env.Weather may be nil,
// in which case the live-check endpoints answer 503.
func buildRouter(env *appEnv, origins []string) http.Handler {
	s := &server{env: env}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)
	r.Route("/datasets", func(r chi.Router) {
		r.Post("/", s.createDataset)
		r.Get("/", s.listDatasets)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/baselines", s.getBaselines)
			r.Get("/checks", s.listChecks)
			r.Post("/check-all", s.checkAll)
			r.Get("/cities/{city}/summary", s.citySummary)
			r.Get("/cities/{city}/check", s.checkCity)
		})
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createDatasetResponse struct {
	Dataset   *model.Dataset `json:"dataset"`
	Baselines int            `json:"baselines"`
	Anomalies int            `json:"anomalies"`
	Window    int            `json:"window"`
	ElapsedMS int64          `json:"elapsed_ms"`
}

func (s *server) createDataset(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err)
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("empty body"))
		return
	}

	source := r.URL.Query().Get("source")
	if source == "" {
		source = "upload"
		if strings.Contains(r.Header.Get("Content-Type"), "spreadsheetml") {
			source = "upload.xlsx"
		}
	}

	ds, analysis, err := ingest(r.Context(), s.env, source, data)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	writeJSON(w, http.StatusCreated, createDatasetResponse{
		Dataset:   ds,
		Baselines: analysis.Baselines.Len(),
		Anomalies: analysis.AnomalyCount(),
		Window:    analysis.Window,
		ElapsedMS: analysis.Elapsed.Milliseconds(),
	})
}

func (s *server) listDatasets(w http.ResponseWriter, r *http.Request) {
	datasets, err := s.env.Store.ListDatasets(r.Context(), queryInt(r, "limit"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if datasets == nil {
		datasets = []model.Dataset{}
	}
	writeJSON(w, http.StatusOK, datasets)
}

// dataset resolves the {id} path parameter, writing 404 when it is unknown.
func (s *server) dataset(w http.ResponseWriter, r *http.Request) (*model.Dataset, bool) {
	ds, err := s.env.Store.GetDataset(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return nil, false
	}
	return ds, true
}

func (s *server) baselines(w http.ResponseWriter, r *http.Request, ds *model.Dataset) (*model.BaselineTable, bool) {
	b, err := s.env.Store.GetBaselines(r.Context(), ds.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return nil, false
	}
	return b, true
}

func (s *server) getBaselines(w http.ResponseWriter, r *http.Request) {
	ds, ok := s.dataset(w, r)
	if !ok {
		return
	}
	table, ok := s.baselines(w, r, ds)
	if !ok {
		return
	}

	format := export.FormatJSON
	if f := r.URL.Query().Get("format"); f != "" {
		parsed, err := export.ParseFormat(f)
		if err != nil || parsed == export.FormatXLSX {
			writeError(w, http.StatusBadRequest, errors.New("format must be json, yaml or csv"))
			return
		}
		format = parsed
	}

	switch format {
	case export.FormatCSV:
		w.Header().Set("Content-Type", "text/csv")
	case export.FormatYAML:
		w.Header().Set("Content-Type", "application/yaml")
	default:
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(http.StatusOK)
	if err := export.WriteBaselines(w, format, table); err != nil {
		zap.L().Error("write baselines", zap.String("dataset", ds.ID), zap.Error(err))
	}
}

func (s *server) citySummary(w http.ResponseWriter, r *http.Request) {
	ds, ok := s.dataset(w, r)
	if !ok {
		return
	}
	analysis, ok := s.env.Memo.Get(memoKey(ds.Hash))
	if !ok {
		writeError(w, http.StatusConflict, errors.New("dataset analysis is not loaded; upload the dataset again"))
		return
	}

	summary, err := summarizeCity(analysis, chi.URLParam(r, "city"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *server) checker(w http.ResponseWriter, r *http.Request, ds *model.Dataset, mode string) (*check.Checker, bool) {
	if s.env.Weather == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("weather client not configured"))
		return nil, false
	}
	table, ok := s.baselines(w, r, ds)
	if !ok {
		return nil, false
	}
	if mode == "" {
		mode = cfg.Check.Mode
	}
	return s.env.newChecker(table, ds.ID, mode, cfg.Check.Concurrency), true
}

func (s *server) checkCity(w http.ResponseWriter, r *http.Request) {
	ds, ok := s.dataset(w, r)
	if !ok {
		return
	}
	c, ok := s.checker(w, r, ds, "")
	if !ok {
		return
	}

	result, err := c.Check(r.Context(), chi.URLParam(r, "city"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type checkAllRequest struct {
	Cities []string `json:"cities"`
	Mode   string   `json:"mode"`
}

func (s *server) checkAll(w http.ResponseWriter, r *http.Request) {
	var req checkAllRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
			return
		}
	}
	if req.Mode != "" && req.Mode != string(check.ModeSync) && req.Mode != string(check.ModeAsync) {
		writeError(w, http.StatusBadRequest, errors.New("mode must be sync or async"))
		return
	}

	ds, ok := s.dataset(w, r)
	if !ok {
		return
	}
	c, ok := s.checker(w, r, ds, req.Mode)
	if !ok {
		return
	}

	cities := req.Cities
	if len(cities) == 0 {
		table, ok := s.baselines(w, r, ds)
		if !ok {
			return
		}
		cities = table.Cities()
	}

	report, err := c.CheckAll(r.Context(), cities)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *server) listChecks(w http.ResponseWriter, r *http.Request) {
	ds, ok := s.dataset(w, r)
	if !ok {
		return
	}
	checks, err := s.env.Store.ListChecks(r.Context(), store.CheckFilter{
		DatasetID: ds.ID,
		City:      r.URL.Query().Get("city"),
		Limit:     queryInt(r, "limit"),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if checks == nil {
		checks = []model.CheckRecord{}
	}
	writeJSON(w, http.StatusOK, checks)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, anomaly.ErrUnknownCity), anomaly.IsMissingBaseline(err):
		return http.StatusNotFound
	case anomaly.IsMalformedInput(err):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		zap.L().Error("request failed", zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
