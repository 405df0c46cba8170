package api

import (
	"fmt"
	"net/http"

	"github.com/okian/pitchtrace/internal/adapters/export"
	"github.com/okian/pitchtrace/internal/domain/model"
)

// ExportHandler streams stored summaries as a Parquet file.
type ExportHandler struct {
	deps Reader
}

// NewExportHandler creates a new export handler.
func NewExportHandler(deps Reader) *ExportHandler {
	return &ExportHandler{deps: deps}
}

// HandleExport handles GET /data/export[?created_at=D].
func (h *ExportHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	const op = "api.export"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	filename := "summaries.parquet"
	var day string
	if raw := r.URL.Query().Get("created_at"); raw != "" {
		var ok bool
		if day, ok = parseDay(raw); !ok {
			writeError(w, http.StatusBadRequest, "bad_request", badRequest(op, msgInvalidDate))
			return
		}
		filename = fmt.Sprintf("summaries-%s.parquet", day)
	}

	sums, err := h.deps.All(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	if day != "" {
		sums = onDay(sums, day)
	}

	data, err := export.Parquet(sums)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func onDay(sums []model.SessionSummary, day string) []model.SessionSummary {
	out := sums[:0:0]
	for i := range sums {
		if sums[i].Day() == day {
			out = append(out, sums[i])
		}
	}
	return out
}
