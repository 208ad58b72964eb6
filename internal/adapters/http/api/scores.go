// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	repository "github.com/okian/teamboard/internal/adapters/repository"
	"github.com/okian/teamboard/internal/adapters/sources"
	"github.com/okian/teamboard/internal/domain/model"
	"github.com/okian/teamboard/internal/domain/scoring"
	"github.com/okian/teamboard/pkg/logger"
)

// IngestDependencies defines the interface for score ingestion.
type IngestDependencies interface {
	Ingest(ctx context.Context, batch model.RawScoreBatch) (repository.Snapshot, error)
}

// ScoresHandler handles score batch submissions.
type ScoresHandler struct {
	deps         IngestDependencies
	maxBodyBytes int64
	logger       logger.Logger
}

// NewScoresHandler creates a new scores handler.
func NewScoresHandler(deps IngestDependencies, maxBodyBytes int64, log logger.Logger) *ScoresHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &ScoresHandler{deps: deps, maxBodyBytes: maxBodyBytes, logger: log.Named("api.data")}
}

// ackResponse acknowledges an accepted batch with the committed snapshot.
type ackResponse struct {
	Status   string `json:"status"`
	ID       string `json:"id"`
	Version  uint64 `json:"version"`
	Entries  int    `json:"entries"`
	Dropped  int    `json:"dropped"`
	MaxScore int64  `json:"max_score"`
}

// HandlePostScores handles POST /data requests. The body is a JSON object
// mapping login to score.
func (h *ScoresHandler) HandlePostScores(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_data"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", WrapKind(op, ErrTooLarge, err))
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	var batch model.RawScoreBatch
	if err := json.Unmarshal(body, &batch); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	snap, err := h.deps.Ingest(r.Context(), batch)
	if err != nil {
		status, code, kind := classify(err)
		h.logger.Warn(r.Context(), "batch rejected",
			logger.String("requestId", RequestID(r.Context())),
			logger.Int("pairs", len(batch)),
			logger.Int("status", status),
			logger.Error(err),
		)
		writeError(w, status, code, WrapKind(op, kind, err))
		return
	}

	h.logger.Debug(r.Context(), "batch accepted",
		logger.String("requestId", RequestID(r.Context())),
		logger.Uint64("version", snap.Version),
	)
	writeJSON(w, http.StatusOK, ackResponse{
		Status:   "ok",
		ID:       snap.ID,
		Version:  snap.Version,
		Entries:  snap.Board.Len(),
		Dropped:  snap.Dropped,
		MaxScore: snap.Board.MaxScore,
	})
}

// classify maps an ingestion failure to its HTTP status, error code and kind.
func classify(err error) (int, string, error) {
	switch {
	case errors.Is(err, sources.ErrSourceUnavailable):
		return http.StatusBadGateway, "source_unavailable", ErrUnavailable
	case errors.Is(err, scoring.ErrInconsistentTeamData):
		return http.StatusConflict, "inconsistent_team_data", ErrInconsistent
	case errors.Is(err, scoring.ErrInvalidScore):
		return http.StatusBadRequest, "bad_request", ErrBadRequest
	default:
		return http.StatusInternalServerError, "internal_error", nil
	}
}
