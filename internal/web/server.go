package web

import (
	"embed"
	"encoding/json"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/aquifer-labs/aquifer/internal/logger"
	"github.com/aquifer-labs/aquifer/internal/state"
	"github.com/aquifer-labs/aquifer/internal/telemetry"
)

var webLogger = logger.GetForComponent("web_server")

//go:embed static/*
var staticFiles embed.FS

//go:embed static/index.html
var dashboardHTML []byte

// WebServer handles HTTP requests for pool data visualization
type WebServer struct {
	router *mux.Router
	port   string
}

// NewWebServer creates a new web server instance
func NewWebServer(port string) *WebServer {
	if port == "" {
		port = "8080"
	}

	server := &WebServer{
		router: mux.NewRouter(),
		port:   port,
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	// Static files
	staticHandler := http.FileServer(http.FS(staticFiles))
	ws.router.PathPrefix("/static/").Handler(http.StripPrefix("/", staticHandler))

	// Dashboard routes
	ws.router.HandleFunc("/", ws.handleDashboard).Methods("GET")
	ws.router.HandleFunc("/dashboard", ws.handleDashboard).Methods("GET")

	// Health endpoint (direct route)
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")

	// Prometheus scrape endpoint
	ws.router.Handle("/metrics", telemetry.Handler()).Methods("GET")

	// API endpoints
	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", ws.handleHealth).Methods("GET")
	api.HandleFunc("/snapshots", ws.handleGetSnapshots).Methods("GET")
	api.HandleFunc("/snapshots/latest", ws.handleGetLatestSnapshot).Methods("GET")
	api.HandleFunc("/receipts", ws.handleGetReceipts).Methods("GET")
	api.HandleFunc("/planner-parameters", ws.handleGetPlannerParameters).Methods("GET")
	api.HandleFunc("/pool/summary", ws.handleGetPoolSummary).Methods("GET")
	api.HandleFunc("/validators", ws.handleGetValidators).Methods("GET")

	// Add CORS middleware
	ws.router.Use(ws.corsMiddleware)
	ws.router.Use(ws.loggingMiddleware)
}

// Start starts the web server
func (ws *WebServer) Start() error {
	webLogger.Info().Str("port", ws.port).Msg("Starting web server")

	server := &http.Server{
		Addr:         ":" + ws.port,
		Handler:      ws.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

// handleHealth returns comprehensive server health status
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	// Get runtime memory stats
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	// Get latest snapshot information
	latest, snapErr := state.GetRecentSnapshots(1)
	var snapshotInfo map[string]interface{}
	var hasErrors bool
	var lastSnapshotTime *time.Time

	if snapErr == nil && len(latest) > 0 {
		snapshot := latest[0]
		snapshotInfo = map[string]interface{}{
			"last_epoch":         snapshot.Epoch,
			"last_snapshot_time": snapshot.Timestamp,
			"cycle_id":           snapshot.CycleID,
			"active_validators":  snapshot.ActiveValidators,
		}
		lastSnapshotTime = &snapshot.Timestamp
	} else {
		snapshotInfo = map[string]interface{}{
			"last_epoch":         0,
			"last_snapshot_time": nil,
			"cycle_id":           "",
			"active_validators":  0,
		}
		hasErrors = true // No snapshot data available indicates an issue
	}

	// Get database connection status
	dbHealthy := true
	dbErr := state.TestDBConnection()
	if dbErr != nil {
		dbHealthy = false
		hasErrors = true
	}

	// Determine overall status
	overallStatus := "OK"
	if hasErrors {
		overallStatus = "DEGRADED"
	}

	// Seconds since the maintainer last completed a cycle
	var secondsSinceCycle int64
	if lastSnapshotTime != nil {
		secondsSinceCycle = int64(time.Since(*lastSnapshotTime).Seconds())
	}

	response := map[string]interface{}{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"system": map[string]interface{}{
			"version":            runtime.Version(),
			"goroutines_count":   runtime.NumGoroutine(),
			"total_alloc_bytes":  memStats.TotalAlloc,
			"heap_objects_count": memStats.HeapObjects,
			"alloc_bytes":        memStats.Alloc,
			"sys_bytes":          memStats.Sys,
			"gc_cycles":          memStats.NumGC,
		},
		"component": map[string]interface{}{
			"name":    "aquifer-pool-maintainer",
			"version": "1.0.0",
		},
		"pool_status": map[string]interface{}{
			"database_healthy":         dbHealthy,
			"has_recent_errors":        hasErrors,
			"seconds_since_last_cycle": secondsSinceCycle,
			"snapshot_info":            snapshotInfo,
		},
	}

	// Set appropriate HTTP status code
	statusCode := http.StatusOK
	if hasErrors {
		statusCode = http.StatusServiceUnavailable
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// handleDashboard serves the main dashboard HTML
func (ws *WebServer) handleDashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.WriteHeader(http.StatusOK)
	w.Write(dashboardHTML)
}

// handleGetSnapshots returns paginated snapshot data
func (ws *WebServer) handleGetSnapshots(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= 100 {
			limit = parsedLimit
		}
	}

	snapshots, err := state.GetRecentSnapshots(limit)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get recent snapshots")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve snapshots")
		return
	}

	response := map[string]interface{}{
		"snapshots": snapshots,
		"count":     len(snapshots),
		"limit":     limit,
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetLatestSnapshot returns the most recent snapshot
func (ws *WebServer) handleGetLatestSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshots, err := state.GetRecentSnapshots(1)
	if err != nil || len(snapshots) == 0 {
		webLogger.Error().Err(err).Msg("Failed to get latest snapshot")
		ws.writeErrorResponse(w, http.StatusNotFound, "No snapshots found")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, snapshots[0])
}

// handleGetReceipts returns recent stake action receipts
func (ws *WebServer) handleGetReceipts(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= 100 {
			limit = parsedLimit
		}
	}

	receipts, err := state.GetRecentActionReceipts(limit)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get action receipts")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve receipts")
		return
	}

	response := map[string]interface{}{
		"receipts": receipts,
		"count":    len(receipts),
		"limit":    limit,
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetPlannerParameters returns current planner parameters
func (ws *WebServer) handleGetPlannerParameters(w http.ResponseWriter, r *http.Request) {
	params, err := state.LoadActivePlannerParameters("default_aquifer_strategy")
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get planner parameters")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve planner parameters")
		return
	}

	response := map[string]interface{}{
		"parameters": params,
		"timestamp":  time.Now().UTC(),
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetPoolSummary returns pool summary statistics
func (ws *WebServer) handleGetPoolSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := state.GetPoolSummary()
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get pool summary")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve pool summary")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, summary)
}

// handleGetValidators returns the per-validator breakdown of the latest snapshot
func (ws *WebServer) handleGetValidators(w http.ResponseWriter, r *http.Request) {
	snapshot, err := state.LoadLatestPoolSnapshot()
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to load latest snapshot")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve validators")
		return
	}
	if snapshot == nil {
		ws.writeErrorResponse(w, http.StatusNotFound, "No snapshots found")
		return
	}

	response := map[string]interface{}{
		"cycle_id":   snapshot.CycleID,
		"epoch":      snapshot.Epoch,
		"timestamp":  snapshot.Timestamp,
		"validators": snapshot.Validators,
		"count":      len(snapshot.Validators),
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// writeJSONResponse writes a JSON response
func (ws *WebServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (ws *WebServer) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	response := map[string]interface{}{
		"error":     true,
		"message":   message,
		"timestamp": time.Now().UTC(),
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// corsMiddleware adds CORS headers
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create a response writer wrapper to capture status code
		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)

		webLogger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", wrapper.statusCode).
			Dur("duration", duration).
			Msg("HTTP request")
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
