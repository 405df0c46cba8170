package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/okian/pitchtrace/internal/domain/model"
	"github.com/okian/pitchtrace/internal/domain/types"
)

const (
	msgPlayerIDRequired  = `A valid "playerId" is required.`
	msgInvalidDate       = "Invalid date format"
	msgCreatedAtRequired = `The "created_at" query parameter is required.`
	msgCreatedAtInvalid  = `Invalid date format for "created_at".`
	msgMetricsParams     = "Both created_at and playerId are required."
	msgDatesRequired     = `The "dates" parameter is required.`
)

// DataHandler serves read queries over stored summaries.
type DataHandler struct {
	deps Reader
}

// NewDataHandler creates a new data handler.
func NewDataHandler(deps Reader) *DataHandler {
	return &DataHandler{deps: deps}
}

// HandlePlayers handles GET /data/players.
func (h *DataHandler) HandlePlayers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	ids, err := h.deps.Players(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap("api.players", err))
		return
	}
	writeJSON(w, http.StatusOK, types.PlayerRefs(ids))
}

// HandlePlayerMatchDates handles GET /data/player-match-dates?playerId=N.
func (h *DataHandler) HandlePlayerMatchDates(w http.ResponseWriter, r *http.Request) {
	const op = "api.player_match_dates"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	playerID, ok := parsePlayerID(r.URL.Query().Get("playerId"))
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", badRequest(op, msgPlayerIDRequired))
		return
	}
	days, err := h.deps.PlayerMatchDates(r.Context(), playerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, nonNil(days))
}

// HandleCalculated handles GET /data/calculated. Without both created_at
// and playerIds it returns every summary, newest first.
func (h *DataHandler) HandleCalculated(w http.ResponseWriter, r *http.Request) {
	const op = "api.calculated"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()
	createdAt, rawIDs := q.Get("created_at"), q.Get("playerIds")

	if createdAt == "" || rawIDs == "" {
		all, err := h.deps.All(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
			return
		}
		writeJSON(w, http.StatusOK, nonNil(all))
		return
	}

	day, ok := parseDay(createdAt)
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", badRequest(op, msgInvalidDate))
		return
	}
	ids := parseIDs(rawIDs)
	if len(ids) == 0 {
		writeJSON(w, http.StatusOK, []model.SessionSummary{})
		return
	}

	sums, err := h.deps.ByDay(r.Context(), day, ids)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, nonNil(sums))
}

// HandleMatchDates handles GET /data/match-dates.
func (h *DataHandler) HandleMatchDates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	days, err := h.deps.MatchDates(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap("api.match_dates", err))
		return
	}
	writeJSON(w, http.StatusOK, nonNil(days))
}

// HandleMatchPlayers handles GET /data/match-players?created_at=D.
func (h *DataHandler) HandleMatchPlayers(w http.ResponseWriter, r *http.Request) {
	const op = "api.match_players"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	createdAt := r.URL.Query().Get("created_at")
	if createdAt == "" {
		writeError(w, http.StatusBadRequest, "bad_request", badRequest(op, msgCreatedAtRequired))
		return
	}
	day, ok := parseDay(createdAt)
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", badRequest(op, msgCreatedAtInvalid))
		return
	}
	ids, err := h.deps.DayPlayers(r.Context(), day)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, types.PlayerRefs(ids))
}

// HandlePlayerMetrics handles GET /data/player-metrics?created_at=D&playerId=N.
func (h *DataHandler) HandlePlayerMetrics(w http.ResponseWriter, r *http.Request) {
	const op = "api.player_metrics"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()
	createdAt, rawID := q.Get("created_at"), q.Get("playerId")
	if createdAt == "" || rawID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", badRequest(op, msgMetricsParams))
		return
	}
	day, ok := parseDay(createdAt)
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", badRequest(op, msgInvalidDate))
		return
	}
	playerID, ok := parsePlayerID(rawID)
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", badRequest(op, msgPlayerIDRequired))
		return
	}
	sums, err := h.deps.ByDay(r.Context(), day, []int64{playerID})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, nonNil(sums))
}

// HandlePlayerHistory handles GET /data/player-history?playerId=N&dates=D1,D2.
// Unparseable dates are skipped.
func (h *DataHandler) HandlePlayerHistory(w http.ResponseWriter, r *http.Request) {
	const op = "api.player_history"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()
	playerID, ok := parsePlayerID(q.Get("playerId"))
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", badRequest(op, msgPlayerIDRequired))
		return
	}
	rawDates := q.Get("dates")
	if rawDates == "" {
		writeError(w, http.StatusBadRequest, "bad_request", badRequest(op, msgDatesRequired))
		return
	}

	var days []string
	for _, part := range strings.Split(rawDates, ",") {
		if day, ok := parseDay(part); ok {
			days = append(days, day)
		}
	}
	if len(days) == 0 {
		writeJSON(w, http.StatusOK, []model.SessionSummary{})
		return
	}

	sums, err := h.deps.PlayerHistory(r.Context(), playerID, days)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, nonNil(sums))
}

// parseDay accepts YYYY-MM-DD or an RFC 3339 timestamp and returns the UTC day.
func parseDay(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if t, err := time.ParseInLocation(model.DayLayout, s, time.UTC); err == nil {
		return t.Format(model.DayLayout), true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC().Format(model.DayLayout), true
	}
	return "", false
}

func parsePlayerID(s string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// parseIDs parses a comma separated id list, dropping entries that are not integers.
func parseIDs(s string) []int64 {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		if id, ok := parsePlayerID(part); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
