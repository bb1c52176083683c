package question

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/ladder-quiz/internal/db/repository"
	httperrors "github.com/gokatarajesh/ladder-quiz/pkg/http/errors"
)

// EditorKeyHeader carries the editor key on question submissions.
const EditorKeyHeader = "X-Editor-Key"

// CustomRepository stores and lists custom questions.
type CustomRepository interface {
	CustomStore
	Create(ctx context.Context, q repository.CustomQuestion) (repository.CustomQuestion, error)
}

// KeyVerifier checks the editor key of a submission.
type KeyVerifier interface {
	VerifyEditorKey(key string) error
}

// HTTPHandler exposes the question editor endpoints.
type HTTPHandler struct {
	repo     CustomRepository
	verifier KeyVerifier
	logger   zerolog.Logger
}

// NewHTTPHandler constructs the handler. A nil verifier accepts every submission.
func NewHTTPHandler(repo CustomRepository, verifier KeyVerifier, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{
		repo:     repo,
		verifier: verifier,
		logger:   logger.With().Str("component", "question_http").Logger(),
	}
}

type createQuestionRequest struct {
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex *int     `json:"correct_index"`
	Difficulty   string   `json:"difficulty"`
	Category     string   `json:"category"`
}

// HandleCreate stores a custom question.
// Route: POST /v1/questions
func (h *HTTPHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if h.verifier != nil {
		if err := h.verifier.VerifyEditorKey(r.Header.Get(EditorKeyHeader)); err != nil {
			httperrors.RespondUnauthorized(w, httperrors.ErrCodeUnauthorized, "valid editor key required")
			return
		}
	}

	var req createQuestionRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "invalid request body")
		return
	}
	if req.CorrectIndex == nil {
		httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "correct_index is required", "correct_index")
		return
	}

	saved, err := h.repo.Create(r.Context(), repository.CustomQuestion{
		Text:         req.Text,
		Options:      req.Options,
		CorrectIndex: *req.CorrectIndex,
		Difficulty:   req.Difficulty,
		Category:     req.Category,
	})
	if err != nil {
		if errors.Is(err, repository.ErrInvalidCustomQuestion) {
			httperrors.RespondBadRequest(w, httperrors.ErrCodeValidationFailed, err.Error())
			return
		}
		h.logger.Error().Err(err).Msg("store custom question failed")
		httperrors.RespondInternalError(w, "failed to save question")
		return
	}

	h.logger.Info().Str("question_id", saved.ID.String()).Str("difficulty", saved.Difficulty).Msg("custom question saved")
	writeJSON(w, http.StatusCreated, saved)
}

// HandleList lists custom questions, optionally filtered.
// Route: GET /v1/questions?difficulty=easy,medium
func (h *HTTPHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	var difficulties []string
	if raw := r.URL.Query().Get("difficulty"); raw != "" {
		for _, d := range strings.Split(raw, ",") {
			if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
				difficulties = append(difficulties, d)
			}
		}
	}

	rows, err := h.repo.ListByDifficulty(r.Context(), difficulties)
	if err != nil {
		h.logger.Error().Err(err).Msg("list custom questions failed")
		httperrors.RespondInternalError(w, "failed to list questions")
		return
	}
	if rows == nil {
		rows = []repository.CustomQuestion{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"questions": rows,
		"count":     len(rows),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
