package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/okian/pitchtrace/internal/adapters/ingest/tracker"
	"github.com/okian/pitchtrace/internal/domain/model"
	"github.com/okian/pitchtrace/internal/domain/types"
	"github.com/okian/pitchtrace/pkg/logger"
)

// ImportHandler pulls CSV exports from trackers on the local network.
type ImportHandler struct {
	deps    Ingester
	tracker TrackerFetcher
	logger  logger.Logger
}

// NewImportHandler creates a new import handler.
func NewImportHandler(deps Ingester, tracker TrackerFetcher, log logger.Logger) *ImportHandler {
	return &ImportHandler{deps: deps, tracker: tracker, logger: log}
}

// HandleImportCSV handles GET /data/import-csv?ip=&file= requests.
func (h *ImportHandler) HandleImportCSV(w http.ResponseWriter, r *http.Request) {
	const op = "api.import_csv"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	q := r.URL.Query()
	host, file := strings.TrimSpace(q.Get("ip")), strings.TrimSpace(q.Get("file"))
	if host == "" || file == "" {
		writeError(w, http.StatusBadRequest, "bad_request", badRequest(op, "ip and file are required"))
		return
	}

	samples, err := h.tracker.Fetch(r.Context(), host, file)
	switch {
	case errors.Is(err, tracker.ErrTrackerUnreachable):
		writeError(w, http.StatusBadGateway, "tracker_unreachable", WrapKind(op, ErrUpstream, err))
		return
	case errors.Is(err, tracker.ErrEmptyCSV), errors.Is(err, tracker.ErrHeaderMismatch):
		writeError(w, http.StatusUnprocessableEntity, "invalid_csv", WrapKind(op, ErrBadRequest, err))
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}

	b := model.Batch{Source: model.SourceCSV, Samples: samples}
	sums, err := h.deps.Ingest(r.Context(), b)
	if err != nil {
		if writeIngestError(w, op, "", err) {
			return
		}
		if len(sums) == 0 {
			writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
			return
		}
		h.logger.Warn(r.Context(), "csv import partially processed", logger.String("file", file), logger.Error(err))
	}

	writeJSON(w, http.StatusOK, types.ImportResult{
		Message:           "csv imported and metrics calculated successfully",
		RowsInserted:      len(samples),
		PlayersCalculated: len(sums),
		Filename:          file,
		Calculated:        sums,
	})
}
