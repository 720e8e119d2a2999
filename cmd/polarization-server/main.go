package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/discoursenet/polarization-service/pkg/aggregation"
	"github.com/discoursenet/polarization-service/pkg/models"
	"github.com/discoursenet/polarization-service/pkg/polarization"
	"github.com/discoursenet/polarization-service/pkg/source"
)

// statementRecord is the wire form of one coded statement.
type statementRecord struct {
	ID         int                    `json:"id"`
	DocumentID int                    `json:"document_id"`
	Time       time.Time              `json:"time"`
	Author     string                 `json:"author"`
	Source     string                 `json:"source"`
	Section    string                 `json:"section"`
	Type       string                 `json:"type"`
	Title      string                 `json:"title"`
	Values     map[string]interface{} `json:"values"`
}

// jobRequest is the payload of a polarization job submission.
type jobRequest struct {
	Config     map[string]interface{} `json:"config"`
	DataTypes  map[string]string      `json:"data_types"`
	Statements []statementRecord      `json:"statements"`
}

// job tracks one submitted computation.
type job struct {
	ID        string                               `json:"id"`
	Status    string                               `json:"status"`
	Error     string                               `json:"error,omitempty"`
	Submitted time.Time                            `json:"submitted"`
	Result    *models.PolarizationResultTimeSeries `json:"result,omitempty"`
}

// jobStore keeps submitted jobs in memory.
type jobStore struct {
	mu   sync.RWMutex
	jobs map[string]*job
}

func newJobStore() *jobStore {
	return &jobStore{jobs: make(map[string]*job)}
}

func (s *jobStore) put(j *job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[j.ID] = j
}

func (s *jobStore) get(id string) (*job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	return j, ok
}

type handlers struct {
	store *jobStore
}

// SubmitJob accepts a configuration plus statements and runs the engine in
// the background under a fresh job ID.
func (h *handlers) SubmitJob(w http.ResponseWriter, r *http.Request) {
	var req jobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	statements := make([]*models.Statement, 0, len(req.Statements))
	for _, rec := range req.Statements {
		st := models.NewStatement(rec.ID, rec.Time)
		st.DocumentID = rec.DocumentID
		st.Author = rec.Author
		st.Source = rec.Source
		st.Section = rec.Section
		st.Type = rec.Type
		st.Title = rec.Title
		for variable, value := range rec.Values {
			// JSON numbers decode as float64; integer-typed variables get ints
			if f, ok := value.(float64); ok && req.DataTypes[variable] == models.DataTypeInteger {
				st.SetValue(variable, int(f))
			} else {
				st.SetValue(variable, value)
			}
		}
		statements = append(statements, st)
	}

	cfg := polarization.NewConfig()
	for key, value := range req.Config {
		cfg.Set(key, value)
	}

	src := source.NewInMemorySource(statements, req.DataTypes)
	aggregator := aggregation.New(cfg.Kernel(), cfg.TimeWindow(), cfg.WindowSize(),
		req.DataTypes[cfg.Qualifier()], cfg.CreateLogger())
	engine := polarization.NewEngine(cfg, src, aggregator)

	j := &job{
		ID:        uuid.New().String(),
		Status:    "running",
		Submitted: time.Now(),
	}
	h.store.put(j)
	accepted := *j

	go func() {
		result, err := engine.Compute(context.Background())
		h.store.mu.Lock()
		defer h.store.mu.Unlock()
		if err != nil {
			j.Status = "failed"
			j.Error = err.Error()
			log.Error().Err(err).Str("job_id", j.ID).Msg("Polarization job failed")
			return
		}
		j.Status = "completed"
		j.Result = result
	}()

	log.Info().
		Str("job_id", j.ID).
		Int("statements", len(statements)).
		Msg("Polarization job submitted")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(accepted)
}

// GetJob returns the status and, when finished, the result of a job.
func (h *handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	j, ok := h.store.get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "job not found", nil)
		return
	}
	h.store.mu.RLock()
	defer h.store.mu.RUnlock()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(j)
}

// Health reports liveness.
func (h *handlers) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	body := map[string]string{"error": message}
	if err != nil {
		body["detail"] = err.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// loggingMiddleware logs every request with its duration.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	})
}

// recoveryMiddleware turns panics into 500 responses.
func recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("Handler panicked")
				writeError(w, http.StatusInternalServerError, "internal server error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	addr := os.Getenv("POLARIZATION_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	h := &handlers{store: newJobStore()}

	router := mux.NewRouter()
	router.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/polarization", h.SubmitJob).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/polarization/{id}", h.GetJob).Methods(http.MethodGet)
	router.Use(loggingMiddleware)
	router.Use(recoveryMiddleware)

	handler := cors.Default().Handler(router)

	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second,
	}

	go func() {
		log.Info().Str("address", addr).Msg("Polarization server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server shutdown complete")
}
