package play

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/ladder-quiz/internal/game"
	httperrors "github.com/gokatarajesh/ladder-quiz/pkg/http/errors"
	ws "github.com/gokatarajesh/ladder-quiz/pkg/http/ws"
)

const defaultIntentTimeout = 5 * time.Second

// Handler serves the game WebSocket and maps client messages to session intents.
type Handler struct {
	registry      *Registry
	upgrader      websocket.Upgrader
	intentTimeout time.Duration
	logger        zerolog.Logger
}

// NewHandler creates a game WebSocket handler.
func NewHandler(registry *Registry, upgrader websocket.Upgrader, logger zerolog.Logger) *Handler {
	return &Handler{
		registry:      registry,
		upgrader:      upgrader,
		intentTimeout: defaultIntentTimeout,
		logger:        logger.With().Str("component", "play_ws").Logger(),
	}
}

// HandleWebSocket upgrades the connection and attaches it to a session.
// Route: GET /ws/game?token=<session token>
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	wsConn := ws.NewConnection(conn, h.logger)
	att, err := h.registry.Attach(r.Context(), r.URL.Query().Get("token"), wsConn)
	if err != nil {
		h.logger.Warn().Err(err).Msg("attach failed")
		_ = conn.WriteJSON(errorMessage("", httperrors.ErrCodeServiceUnavailable, "no session available"))
		_ = conn.Close()
		return
	}
	sessionID := att.Session.ID()

	go wsConn.WritePump()

	wsConn.ReadPump(func(msg ws.Message) error {
		return h.handleMessage(att.Session, wsConn, msg)
	})

	h.registry.Detach(sessionID, wsConn)
}

// handleMessage routes one client message to the session.
func (h *Handler) handleMessage(s *game.Session, conn *ws.Connection, msg ws.Message) error {
	ctx, cancel := context.WithTimeout(context.Background(), h.intentTimeout)
	defer cancel()

	var err error
	switch msg.Type {
	case ws.TypePing:
		pong, _ := ws.NewMessage(ws.TypePong, nil)
		pong.RequestID = msg.RequestID
		return conn.Send(pong)
	case ws.TypeEnterStudio:
		err = s.EnterStudio(ctx)
	case ws.TypeBack:
		err = s.Back(ctx)
	case ws.TypeChooseDifficulty:
		var req ws.ChooseDifficultyPayload
		if decodeErr := decode(msg.Payload, &req); decodeErr != nil {
			return h.sendError(conn, msg, httperrors.ErrCodeInvalidPayload, "Invalid choose_difficulty payload")
		}
		tier, parseErr := game.ParseTier(req.Tier)
		if parseErr != nil {
			return h.sendError(conn, msg, httperrors.ErrCodeInvalidIntent, parseErr.Error())
		}
		err = s.ChooseDifficulty(ctx, tier)
	case ws.TypeSelectOption:
		var req ws.SelectOptionPayload
		if decodeErr := decode(msg.Payload, &req); decodeErr != nil || req.Index == nil {
			return h.sendError(conn, msg, httperrors.ErrCodeInvalidPayload, "Invalid select_option payload")
		}
		err = s.SelectOption(ctx, *req.Index)
	case ws.TypeUseLifeline:
		var req ws.UseLifelinePayload
		if decodeErr := decode(msg.Payload, &req); decodeErr != nil {
			return h.sendError(conn, msg, httperrors.ErrCodeInvalidPayload, "Invalid use_lifeline payload")
		}
		kind, parseErr := game.ParseLifeline(req.Lifeline)
		if parseErr != nil {
			return h.sendError(conn, msg, httperrors.ErrCodeInvalidIntent, parseErr.Error())
		}
		err = s.UseLifeline(ctx, kind)
	case ws.TypeDismissLifeline:
		err = s.DismissLifeline(ctx)
	case ws.TypeRestart:
		err = s.Restart(ctx)
	case ws.TypeSetMuted:
		var req ws.SetMutedPayload
		if decodeErr := decode(msg.Payload, &req); decodeErr != nil {
			return h.sendError(conn, msg, httperrors.ErrCodeInvalidPayload, "Invalid set_muted payload")
		}
		err = s.SetMuted(ctx, req.Muted)
	default:
		return h.sendError(conn, msg, httperrors.ErrCodeUnknownMessageType, fmt.Sprintf("Unknown message type: %s", msg.Type))
	}

	if err != nil {
		h.logger.Debug().Err(err).Str("type", msg.Type).Str("session_id", s.ID().String()).Msg("intent rejected")
		if ignorable(err) {
			return nil
		}
		code := httperrors.ErrCodeInvalidIntent
		if errors.Is(err, game.ErrSessionClosed) {
			code = httperrors.ErrCodeSessionClosed
		}
		return h.sendError(conn, msg, code, err.Error())
	}
	return nil
}

// ignorable reports rejections caused by clicks racing the round (a spent
// lifeline, a locked answer, a closed round). They leave the state untouched
// and are dropped without telling the player.
func ignorable(err error) bool {
	for _, target := range []error{
		game.ErrLifelineUsed,
		game.ErrLifelineDisplayed,
		game.ErrNoLifelineShown,
		game.ErrAnswerLocked,
		game.ErrOptionRemoved,
		game.ErrRoundClosed,
		game.ErrFetchPending,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (h *Handler) sendError(conn *ws.Connection, req ws.Message, code, message string) error {
	return conn.Send(errorMessage(req.RequestID, code, message))
}

func errorMessage(requestID, code, message string) ws.Message {
	msg, _ := ws.NewMessage(ws.TypeError, ws.ErrorPayload{Code: code, Message: message})
	msg.RequestID = requestID
	return msg
}

func decode(payload json.RawMessage, v interface{}) error {
	if len(payload) == 0 {
		return errors.New("empty payload")
	}
	return json.Unmarshal(payload, v)
}
