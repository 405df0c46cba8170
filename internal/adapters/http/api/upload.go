package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/pitchtrace/internal/adapters/ingest/fitfile"
	"github.com/okian/pitchtrace/internal/adapters/ingest/tracker"
	"github.com/okian/pitchtrace/internal/adapters/mq/queue"
	service "github.com/okian/pitchtrace/internal/app"
	"github.com/okian/pitchtrace/internal/domain/model"
	"github.com/okian/pitchtrace/internal/domain/types"
	"github.com/okian/pitchtrace/pkg/logger"
)

// BatchIDHeader carries the client's idempotency key.
const BatchIDHeader = "X-Batch-ID"

// UploadHandler handles tracker uploads.
type UploadHandler struct {
	deps         Ingester
	maxBodyBytes int64
	logger       logger.Logger
}

// NewUploadHandler creates a new upload handler.
func NewUploadHandler(deps Ingester, maxBodyBytes int64, log logger.Logger) *UploadHandler {
	return &UploadHandler{deps: deps, maxBodyBytes: maxBodyBytes, logger: log}
}

// HandleUpload handles POST /data/upload with a JSON reading array.
func (h *UploadHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	const op = "api.upload"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	samples, err := tracker.DecodeJSON(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		if tooLarge(err) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", WrapKind(op, ErrPayloadTooLarge, err))
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", badRequest(op, "invalid tracker payload"))
		return
	}

	b := model.Batch{
		ID:      strings.TrimSpace(r.Header.Get(BatchIDHeader)),
		Source:  model.SourceUpload,
		Samples: samples,
	}
	if async, _ := strconv.ParseBool(r.URL.Query().Get("async")); async {
		h.enqueue(r.Context(), w, op, b)
		return
	}
	h.ingest(r.Context(), w, op, b, "tracker data processed successfully")
}

// HandleUploadFIT handles POST /data/upload-fit?playerId=N with a FIT body.
func (h *UploadHandler) HandleUploadFIT(w http.ResponseWriter, r *http.Request) {
	const op = "api.upload_fit"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	playerID, ok := parsePlayerID(r.URL.Query().Get("playerId"))
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", badRequest(op, msgPlayerIDRequired))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		if tooLarge(err) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", WrapKind(op, ErrPayloadTooLarge, err))
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	samples, err := fitfile.DecodeBytes(body, playerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	b := model.Batch{
		ID:      strings.TrimSpace(r.Header.Get(BatchIDHeader)),
		Source:  model.SourceFIT,
		Samples: samples,
	}
	h.ingest(r.Context(), w, op, b, "fit activity processed successfully")
}

func (h *UploadHandler) ingest(ctx context.Context, w http.ResponseWriter, op string, b model.Batch, message string) { //nolint:gocritic // hugeParam: Batch is handed to the service by value
	sums, err := h.deps.Ingest(ctx, b)
	if err != nil {
		if writeIngestError(w, op, b.ID, err) {
			return
		}
		if len(sums) == 0 {
			writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
			return
		}
		h.logger.Warn(ctx, "upload partially processed",
			logger.String("batch_id", b.ID),
			logger.Int("summaries", len(sums)),
			logger.Error(err),
		)
	}

	writeJSON(w, http.StatusOK, types.UploadResult{
		Message:      message,
		RowsInserted: len(b.Samples),
		Calculated:   sums,
	})
}

func (h *UploadHandler) enqueue(ctx context.Context, w http.ResponseWriter, op string, b model.Batch) { //nolint:gocritic // hugeParam: Batch is handed to the service by value
	if err := h.deps.Enqueue(ctx, b); err != nil {
		if writeIngestError(w, op, b.ID, err) {
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusAccepted, types.Ack{Status: "accepted", BatchID: b.ID})
}

// writeIngestError writes the response for known service errors.
func writeIngestError(w http.ResponseWriter, op, batchID string, err error) bool {
	switch {
	case errors.Is(err, service.ErrDuplicate):
		writeJSON(w, http.StatusOK, types.Ack{Status: "duplicate", Duplicate: true, BatchID: batchID})
	case errors.Is(err, service.ErrEmptyBatch):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
	case errors.Is(err, service.ErrBatchTooBig):
		writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", WrapKind(op, ErrPayloadTooLarge, err))
	case errors.Is(err, queue.ErrFull):
		writeError(w, http.StatusTooManyRequests, "backpressure", NewKind(op, ErrBackpressure))
	case errors.Is(err, queue.ErrClosed), errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUpstream, err))
	default:
		return false
	}
	return true
}

func tooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}
