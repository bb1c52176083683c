package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/ladder-quiz/internal/game"
	httperrors "github.com/gokatarajesh/ladder-quiz/pkg/http/errors"
	ws "github.com/gokatarajesh/ladder-quiz/pkg/http/ws"
)

type topReader interface {
	Top(ctx context.Context, window string, tier game.Tier, limit int) ([]Entry, error)
}

// HTTPHandler exposes REST endpoints for leaderboard queries.
type HTTPHandler struct {
	svc    topReader
	logger zerolog.Logger
}

// NewHTTPHandler constructs a leaderboard HTTP handler.
func NewHTTPHandler(svc topReader, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{
		svc:    svc,
		logger: logger.With().Str("component", "leaderboard_http").Logger(),
	}
}

// HandleGet responds with the best games of a window, optionally for one tier.
// Route: GET /v1/leaderboard?window=all_time&tier=HARD&limit=10
func (h *HTTPHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	window := query.Get("window")
	if window == "" {
		window = WindowAllTime
	}
	if !isValidWindow(window) {
		httperrors.RespondNotFound(w, httperrors.ErrCodeUnknownWindow, "unknown leaderboard window")
		return
	}

	var tier game.Tier
	if raw := query.Get("tier"); raw != "" {
		parsed, err := game.ParseTier(raw)
		if err != nil {
			httperrors.RespondValidationError(w, httperrors.ErrCodeUnknownTier, "unknown tier", "tier")
			return
		}
		tier = parsed
	}

	limit := 10
	if raw := query.Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	entries, err := h.svc.Top(r.Context(), window, tier, limit)
	if err != nil {
		if errors.Is(err, ErrUnknownWindow) {
			httperrors.RespondNotFound(w, httperrors.ErrCodeUnknownWindow, err.Error())
			return
		}
		h.logger.Warn().Err(err).Str("window", window).Msg("leaderboard fetch failed")
		httperrors.RespondServiceUnavailable(w, httperrors.ErrCodeLeaderboardFetchFailed, "leaderboard unavailable")
		return
	}

	writeJSON(w, map[string]interface{}{
		"window":      window,
		"tier":        string(tier),
		"top":         nonNil(toWSEntries(entries)),
		"retrievedAt": time.Now().UTC().Format(time.RFC3339),
	})
}

func nonNil(entries []ws.LeaderboardEntry) []ws.LeaderboardEntry {
	if entries == nil {
		return []ws.LeaderboardEntry{}
	}
	return entries
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}
