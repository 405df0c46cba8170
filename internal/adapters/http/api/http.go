// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/pitchtrace/internal/domain/model"
	"github.com/okian/pitchtrace/pkg/logger"
)

// Ingester accepts sample batches.
type Ingester interface {
	// Ingest processes a batch now and returns the stored summaries.
	Ingest(ctx context.Context, b model.Batch) ([]model.SessionSummary, error)
	// Enqueue hands a batch to the worker pool.
	Enqueue(ctx context.Context, b model.Batch) error
}

// Reader exposes stored summaries.
type Reader interface {
	All(ctx context.Context) ([]model.SessionSummary, error)
	Players(ctx context.Context) ([]int64, error)
	MatchDates(ctx context.Context) ([]string, error)
	PlayerMatchDates(ctx context.Context, playerID int64) ([]string, error)
	DayPlayers(ctx context.Context, day string) ([]int64, error)
	ByDay(ctx context.Context, day string, playerIDs []int64) ([]model.SessionSummary, error)
	PlayerHistory(ctx context.Context, playerID int64, days []string) ([]model.SessionSummary, error)
}

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Ingester
	Reader
}

// TrackerFetcher downloads a CSV export from a tracker.
type TrackerFetcher interface {
	Fetch(ctx context.Context, host, file string) ([]model.RawSample, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	uploadHandler    *UploadHandler
	importHandler    *ImportHandler
	dataHandler      *DataHandler
	exportHandler    *ExportHandler
	dashboardHandler *dashboardHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, tracker TrackerFetcher, opts ...Option) *Server {
	cfg := defaultServerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	log := cfg.logger
	if log == nil {
		log = logger.Get().Named("api")
	}

	return &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(statsProvider),
		uploadHandler:    NewUploadHandler(deps, cfg.maxBodyBytes, log),
		importHandler:    NewImportHandler(deps, tracker, log),
		dataHandler:      NewDataHandler(deps),
		exportHandler:    NewExportHandler(deps),
		dashboardHandler: newDashboardHandler(),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/dashboard", s.dashboardHandler.HandleDashboard)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("/data/upload", MetricsMiddleware(s.uploadHandler.HandleUpload, "upload"))
	mux.HandleFunc("/data/upload-fit", MetricsMiddleware(s.uploadHandler.HandleUploadFIT, "upload_fit"))
	mux.HandleFunc("/data/import-csv", MetricsMiddleware(s.importHandler.HandleImportCSV, "import_csv"))
	mux.HandleFunc("/data/export", MetricsMiddleware(s.exportHandler.HandleExport, "export"))

	mux.HandleFunc("/data/players", MetricsMiddleware(s.dataHandler.HandlePlayers, "players"))
	mux.HandleFunc("/data/player-match-dates", MetricsMiddleware(s.dataHandler.HandlePlayerMatchDates, "player_match_dates"))
	mux.HandleFunc("/data/calculated", MetricsMiddleware(s.dataHandler.HandleCalculated, "calculated"))
	mux.HandleFunc("/data/match-dates", MetricsMiddleware(s.dataHandler.HandleMatchDates, "match_dates"))
	mux.HandleFunc("/data/match-players", MetricsMiddleware(s.dataHandler.HandleMatchPlayers, "match_players"))
	mux.HandleFunc("/data/player-metrics", MetricsMiddleware(s.dataHandler.HandlePlayerMetrics, "player_metrics"))
	mux.HandleFunc("/data/player-history", MetricsMiddleware(s.dataHandler.HandlePlayerHistory, "player_history"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
