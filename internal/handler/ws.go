package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/finmate-ai/voice-platform/internal/middleware"
	"github.com/finmate-ai/voice-platform/internal/model"
	"github.com/finmate-ai/voice-platform/internal/pipeline"
	"github.com/finmate-ai/voice-platform/internal/session"
	"github.com/finmate-ai/voice-platform/pkg/logger"
	"github.com/finmate-ai/voice-platform/pkg/metrics"
)

// QueryRecorder is the query-log surface the front ends need.
// *querylog.Log satisfies it.
type QueryRecorder interface {
	Record(ctx context.Context, sessionID, query, loanType string)
}

// WSHandler serves the bidirectional live chat/voice channel.
type WSHandler struct {
	pipe     *pipeline.Pipeline
	sessions *session.Store
	qlog     QueryRecorder
	logger   *logger.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates the WebSocket handler.
func NewWSHandler(pipe *pipeline.Pipeline, sessions *session.Store, qlog QueryRecorder, log *logger.Logger) *WSHandler {
	return &WSHandler{
		pipe:     pipe,
		sessions: sessions,
		qlog:     qlog,
		logger:   log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Browser clients connect from arbitrary origins; auth for
			// the live channel is handled at the edge.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// wsConn serializes writes; gorilla permits one concurrent writer.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) send(eventType string, data any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(model.Envelope{Type: eventType, Data: data})
}

// inboundEnvelope defers payload decoding until the type is known.
type inboundEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Serve handles GET /ws. Each connection is one session; each inbound
// message runs the pipeline end-to-end on the connection's read loop.
func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	sessionID := uuid.Must(uuid.NewV7()).String()
	h.sessions.Touch(sessionID)
	metrics.IncrementWSConnections()
	defer metrics.DecrementWSConnections()
	defer conn.Close()

	c := &wsConn{conn: conn}
	if err := c.send(model.EventStatus, map[string]string{"status": "connected", "session_id": sessionID}); err != nil {
		return
	}

	h.logger.Info("websocket session opened", "session_id", sessionID)
	for {
		var env inboundEnvelope
		if err := conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read failed", "session_id", sessionID, "error", err)
			}
			return
		}
		h.dispatch(r.Context(), c, sessionID, env)
	}
}

func (h *WSHandler) dispatch(ctx context.Context, c *wsConn, sessionID string, env inboundEnvelope) {
	switch env.Type {
	case model.EventSendMessage:
		var payload model.SendMessagePayload
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			c.send(model.EventError, model.ErrorPayload{Message: "malformed message payload"})
			return
		}
		h.handleText(ctx, c, sessionID, payload)

	case model.EventAudioMessage:
		var payload model.AudioMessagePayload
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			c.send(model.EventError, model.ErrorPayload{Message: "malformed audio payload"})
			return
		}
		h.handleAudio(ctx, c, sessionID, payload)

	case model.EventGetChatHistory:
		c.send(model.EventChatHistory, h.sessions.History(sessionID))

	default:
		c.send(model.EventError, model.ErrorPayload{Message: "unknown event type"})
	}
}

func (h *WSHandler) handleText(ctx context.Context, c *wsConn, sessionID string, payload model.SendMessagePayload) {
	if err := middleware.ValidateMessageContent(payload.Msg); err != nil {
		c.send(model.EventError, model.ErrorPayload{Message: err.Error()})
		return
	}
	if err := middleware.ValidateLanguageTag(payload.Language); err != nil {
		c.send(model.EventError, model.ErrorPayload{Message: err.Error()})
		return
	}

	res, err := h.pipe.Exchange(ctx, pipeline.Request{
		SessionID: sessionID,
		Channel:   "websocket",
		Text:      payload.Msg,
		Language:  payload.Language,
	})
	if err != nil {
		h.sendExchangeError(c, sessionID, err)
		return
	}

	h.qlog.Record(ctx, sessionID, payload.Msg, res.LoanType)
	c.send(model.EventResponse, model.ResponsePayload{
		Text:      res.Text,
		Language:  res.Language,
		Timestamp: res.Timestamp,
	})
}

func (h *WSHandler) handleAudio(ctx context.Context, c *wsConn, sessionID string, payload model.AudioMessagePayload) {
	if err := middleware.ValidateAudioPayload(payload.Audio); err != nil {
		c.send(model.EventError, model.ErrorPayload{Message: err.Error()})
		return
	}

	res, err := h.pipe.Exchange(ctx, pipeline.Request{
		SessionID:  sessionID,
		Channel:    "websocket",
		Audio:      payload.Audio,
		Language:   payload.Language,
		AutoDetect: payload.AutoDetect,
		WantAudio:  true,
	})
	if err != nil {
		h.sendExchangeError(c, sessionID, err)
		return
	}

	h.qlog.Record(ctx, sessionID, res.Query, res.LoanType)

	if res.DetectedLanguage != "" {
		c.send(model.EventDetectedLanguage, model.DetectedLanguagePayload{Language: res.DetectedLanguage})
	}

	var firstAudio string
	if len(res.AudioSegments) > 0 {
		firstAudio = res.AudioSegments[0]
	}
	c.send(model.EventAudioResponse, model.ResponsePayload{
		Text:          res.Text,
		Audio:         firstAudio,
		AudioSegments: res.AudioSegments,
		Language:      res.Language,
		Timestamp:     res.Timestamp,
		Confidence:    res.Confidence,
	})
}

// sendExchangeError maps pipeline failures to a short user-visible
// message; internal error text stays in the logs.
func (h *WSHandler) sendExchangeError(c *wsConn, sessionID string, err error) {
	h.logger.Error("exchange failed", "session_id", sessionID, "error", err)
	msg := "something went wrong, please try again"
	if errors.Is(err, pipeline.ErrTranscriptionFailed) {
		msg = "could not understand the audio, please try again"
	}
	c.send(model.EventError, model.ErrorPayload{Message: msg})
}
